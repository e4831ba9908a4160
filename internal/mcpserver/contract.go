package mcpserver

// CodingContract describes how LLM consumers should work with codes,
// fragments, and memos in a Raiz project.
const CodingContract = `# Raiz Coding Contract

Raiz organises qualitative analysis around three things: documents (imported
plain text), codes (a named hierarchy of analytic labels), and fragments
(verbatim text selections attached to codes).

## Rules

1. **Code names are unique across the whole project**, not per branch.
   Check the code book before inventing a new name; reuse existing codes
   where they fit.
2. **Fragments are verbatim.** The ` + "`" + `text` + "`" + ` you pass to ` + "`" + `code_selection` + "`" + ` must be
   copied exactly from the document, and ` + "`" + `start` + "`" + `/` + "`" + `end` + "`" + ` are byte offsets into
   the document with ` + "`" + `end` + "`" + ` exclusive. If the offsets drift the application can
   usually relocate the text, but exact offsets avoid ambiguity when the same
   phrase appears more than once.
3. **Prefer shallow hierarchies.** Create a child code (pass a parent when
   the tool supports it) only when a clear theme/sub-theme relation exists.
4. **Memos explain, fragments evidence.** Use memos for analytic reasoning
   about a code; do not paste document text into memos.
5. **Document names end in .txt** and are flat (no directories). Imports of
   docx and pdf are converted to plain text on the way in.

## Typical workflow

1. ` + "`" + `list_documents` + "`" + ` then ` + "`" + `read_document` + "`" + ` to study the material.
2. ` + "`" + `get_code_book` + "`" + ` to learn the existing coding frame.
3. ` + "`" + `code_selection` + "`" + ` for each meaningful passage.
4. ` + "`" + `search_project` + "`" + ` to find related passages already coded elsewhere.
`
