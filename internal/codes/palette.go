package codes

// Palette is the fixed set of highlight colors offered for codes, assigned
// round-robin when a code is created without an explicit color.
var Palette = []string{
	"#ffcc00", // amber
	"#ff7043", // coral
	"#4db6ac", // teal
	"#9575cd", // lavender
	"#64b5f6", // sky
	"#f48fb1", // pink
	"#aed581", // green
	"#ffab40", // orange
	"#90a4ae", // grey
	"#ff6f61", // red
}

// DefaultColor is used when a fragment or code has no color at all, e.g.
// state files written by hand.
const DefaultColor = "#fff59d"
