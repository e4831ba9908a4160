package mcpserver

import (
	"context"
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/verdin/raiz/internal/project"
	"github.com/verdin/raiz/internal/testutil"
)

func testServer(t *testing.T) (*Server, *project.Service) {
	t.Helper()
	_, svc := testutil.TestProject(t)
	return New(svc, testutil.TestDB(t)), svc
}

func importTxt(t *testing.T, svc *project.Service, name, text string) string {
	t.Helper()
	src := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(src, []byte(text), 0o644); err != nil {
		t.Fatal(err)
	}
	stored, err := svc.ImportDocument(src, "")
	if err != nil {
		t.Fatal(err)
	}
	return stored
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go doesn't expose a direct "call tool" test helper, so we invoke
	// the handler functions directly.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "list_documents":
		result, err = srv.listDocuments(ctx, req)
	case "read_document":
		result, err = srv.readDocument(ctx, req)
	case "search_project":
		result, err = srv.searchProject(ctx, req)
	case "get_code_book":
		result, err = srv.getCodeBook(ctx, req)
	case "get_memo":
		result, err = srv.getMemo(ctx, req)
	case "code_selection":
		result, err = srv.codeSelection(ctx, req)
	case "import_document":
		result, err = srv.importDocument(ctx, req)
	case "get_coding_contract":
		result, err = srv.getCodingContract(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestReadDocument(t *testing.T) {
	srv, svc := testServer(t)
	importTxt(t, svc, "interview.txt", "Alice said hello.")

	r := callTool(t, srv, "read_document", map[string]interface{}{"name": "interview.txt"})
	if got := resultText(r); got != "Alice said hello." {
		t.Errorf("read result = %q", got)
	}
}

func TestReadDocumentMissing(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "read_document", map[string]interface{}{"name": "nope.txt"})
	if !r.IsError {
		t.Error("expected error for missing document")
	}
}

func TestListDocuments(t *testing.T) {
	srv, svc := testServer(t)
	importTxt(t, svc, "a.txt", "a")

	r := callTool(t, srv, "list_documents", map[string]interface{}{})
	if !strings.Contains(resultText(r), "a.txt") {
		t.Errorf("list = %q", resultText(r))
	}
}

func TestCodeSelectionCreatesCode(t *testing.T) {
	srv, svc := testServer(t)
	importTxt(t, svc, "d.txt", "Alice said hello.")

	r := callTool(t, srv, "code_selection", map[string]interface{}{
		"code":     "Greeting",
		"document": "d.txt",
		"text":     "hello",
		"start":    11,
		"end":      16,
	})
	if r.IsError {
		t.Fatalf("code_selection error: %s", resultText(r))
	}

	c, err := svc.GetCode("Greeting")
	if err != nil || len(c.Fragments) != 1 {
		t.Errorf("code = %+v, %v", c, err)
	}
}

func TestCodeBookAndMemo(t *testing.T) {
	srv, svc := testServer(t)
	_, _ = svc.CreateCode("Theme", "", "")
	_, _ = svc.CreateCode("Sub", "Theme", "")
	_ = svc.SetMemo("Sub", "narrow this down")

	r := callTool(t, srv, "get_code_book", map[string]interface{}{})
	text := resultText(r)
	if !strings.Contains(text, "- Theme") || !strings.Contains(text, "  - Sub") {
		t.Errorf("code book = %q", text)
	}

	r = callTool(t, srv, "get_memo", map[string]interface{}{"code": "Sub"})
	if got := resultText(r); got != "narrow this down" {
		t.Errorf("memo = %q", got)
	}

	r = callTool(t, srv, "get_memo", map[string]interface{}{"code": "Nope"})
	if !r.IsError {
		t.Error("expected error for unknown code")
	}
}

func TestSearchProject(t *testing.T) {
	srv, svc := testServer(t)
	name := importTxt(t, svc, "s.txt", "uniqueword appears here")
	text, _ := svc.ReadDocument(name)
	_ = srv.db.UpsertDocument(name, []byte(text))

	r := callTool(t, srv, "search_project", map[string]interface{}{"query": "uniqueword"})
	if !strings.Contains(resultText(r), "s.txt") {
		t.Errorf("search = %q", resultText(r))
	}
}

func TestImportDocumentFromDataURI(t *testing.T) {
	srv, svc := testServer(t)

	encoded := base64.StdEncoding.EncodeToString([]byte("imported body"))
	r := callTool(t, srv, "import_document", map[string]interface{}{
		"url":      "data:text/plain;base64," + encoded,
		"filename": "notes.txt",
	})
	if r.IsError {
		t.Fatalf("import error: %s", resultText(r))
	}
	if got := resultText(r); got != "imported: notes.txt" {
		t.Errorf("result = %q", got)
	}
	if text, err := svc.ReadDocument("notes.txt"); err != nil || text != "imported body" {
		t.Errorf("document = %q, %v", text, err)
	}
}

func TestImportDocumentRejectsBadExtension(t *testing.T) {
	srv, _ := testServer(t)
	encoded := base64.StdEncoding.EncodeToString([]byte("x"))
	r := callTool(t, srv, "import_document", map[string]interface{}{
		"url":      "data:text/plain;base64," + encoded,
		"filename": "evil.exe",
	})
	if !r.IsError {
		t.Error("expected error for disallowed extension")
	}
}

func TestCodingContract(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "get_coding_contract", map[string]interface{}{})
	if !strings.Contains(resultText(r), "Coding Contract") {
		t.Error("contract missing")
	}
}
