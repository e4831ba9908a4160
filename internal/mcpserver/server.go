// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Raiz project tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/verdin/raiz/internal/index"
	"github.com/verdin/raiz/internal/project"
)

// Server wraps the MCP server with Raiz project tools.
type Server struct {
	mcp *server.MCPServer
	svc *project.Service
	db  *index.DB
}

// New creates a new MCP server with all Raiz tools registered. db may be nil
// when the search index is disabled; search tools then report an error.
func New(svc *project.Service, db *index.DB) *Server {
	s := &Server{svc: svc, db: db}

	s.mcp = server.NewMCPServer(
		"Raiz",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_documents",
		mcp.WithDescription("List the documents in the open project, grouped by folder."),
	), s.listDocuments)

	s.mcp.AddTool(mcp.NewTool("read_document",
		mcp.WithDescription("Read the full plain text of a project document."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Document name (e.g. interview1.txt)")),
	), s.readDocument)

	s.mcp.AddTool(mcp.NewTool("search_project",
		mcp.WithDescription("Full-text search across document text and coded fragments."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchProject)

	s.mcp.AddTool(mcp.NewTool("get_code_book",
		mcp.WithDescription("Return the hierarchical code book: every code with its depth, memo, and fragment count."),
	), s.getCodeBook)

	s.mcp.AddTool(mcp.NewTool("get_memo",
		mcp.WithDescription("Read the analytic memo attached to a code."),
		mcp.WithString("code", mcp.Required(), mcp.Description("Code name")),
	), s.getMemo)

	s.mcp.AddTool(mcp.NewTool("code_selection",
		mcp.WithDescription("Attach a text selection from a document to a code. "+
			"The code is created first if it does not exist. Offsets are byte positions "+
			"into the document text; read the contract via get_coding_contract or the "+
			"raiz://coding-guide resource before coding."),
		mcp.WithString("code", mcp.Required(), mcp.Description("Code name to attach the selection to")),
		mcp.WithString("document", mcp.Required(), mcp.Description("Document name the selection comes from")),
		mcp.WithString("text", mcp.Required(), mcp.Description("Exact verbatim text of the selection")),
		mcp.WithNumber("start", mcp.Required(), mcp.Description("Start offset of the selection")),
		mcp.WithNumber("end", mcp.Required(), mcp.Description("End offset of the selection (exclusive)")),
	), s.codeSelection)

	s.mcp.AddTool(mcp.NewTool("import_document",
		mcp.WithDescription("Download a source document (txt, docx, or pdf) from a URL or "+
			"data URI and import it into the project."),
		mcp.WithString("url", mcp.Required(), mcp.Description("http(s) URL or base64 data URI of the source file")),
		mcp.WithString("filename", mcp.Description("Optional filename override (extension selects the import format)")),
		mcp.WithString("folder", mcp.Description("Optional document folder to file the import under")),
	), s.importDocument)

	s.mcp.AddTool(mcp.NewTool("get_coding_contract",
		mcp.WithDescription("Returns the coding workflow contract. "+
			"Call this before creating codes or coding selections."),
	), s.getCodingContract)

	// Resource: coding workflow guide.
	s.mcp.AddResource(
		mcp.NewResource("raiz://coding-guide", "Coding Workflow Guide",
			mcp.WithResourceDescription("How codes, fragments, and memos are structured in this project."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readCodingGuideResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) listDocuments(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	groups := s.svc.DocumentGroups()
	out, _ := json.MarshalIndent(groups, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) readDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	text, err := s.svc.ReadDocument(name)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", name)), nil
	}
	return mcp.NewToolResultText(text), nil
}

func (s *Server) searchProject(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if s.db == nil {
		return mcp.NewToolResultError("search index disabled"), nil
	}
	docs, err := s.db.Search(query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	frags, err := s.db.SearchFragments(query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(map[string]any{
		"documents": docs,
		"fragments": frags,
	}, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getCodeBook(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(s.codeBookMarkdown()), nil
}

// codeBookMarkdown renders the code book as an indented markdown list.
func (s *Server) codeBookMarkdown() string {
	rows := s.svc.CodeBook()
	if len(rows) == 0 {
		return "(no codes yet)"
	}
	var b strings.Builder
	for _, row := range rows {
		b.WriteString(strings.Repeat("  ", row.Depth))
		fmt.Fprintf(&b, "- %s (%d fragments)", row.Name, row.Count)
		if row.Memo != "" {
			fmt.Fprintf(&b, " — memo: %s", row.Memo)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func (s *Server) getMemo(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	code, err := req.RequireString("code")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if _, err := s.svc.GetCode(code); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("unknown code: %s", code)), nil
	}
	memo := s.svc.GetMemo(code)
	if memo == "" {
		return mcp.NewToolResultText("(no memo)"), nil
	}
	return mcp.NewToolResultText(memo), nil
}

func (s *Server) codeSelection(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	code, err := req.RequireString("code")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	document, err := req.RequireString("document")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	start, err := req.RequireInt("start")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	end, err := req.RequireInt("end")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if _, getErr := s.svc.GetCode(code); getErr != nil {
		if _, createErr := s.svc.CreateCode(code, "", ""); createErr != nil {
			return mcp.NewToolResultError(createErr.Error()), nil
		}
	}
	frag, err := s.svc.AddFragment(code, document, text, start, end)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("coded %q [%d,%d) in %s under %s",
		frag.Text, frag.Start, frag.End, frag.Document, code)), nil
}

func (s *Server) getCodingContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(CodingContract), nil
}

func (s *Server) readCodingGuideResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "raiz://coding-guide",
			MIMEType: "text/markdown",
			Text:     CodingContract + "\n\n## Current code book\n\n" + s.codeBookMarkdown(),
		},
	}, nil
}
