package lsp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"soldef/internal/index"
	"soldef/internal/resolver"
)

func testResolver(t *testing.T) (*resolver.Resolver, string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "C.sol")
	src := "contract C {\n    uint256 counter;\n    function f() public { counter = 1; }\n}\n"
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}

	ix := index.New()
	ix.SetFilePath(0, path)
	ix.Add(index.Entry{
		NodeID: 1, FileID: 0, StartByte: 0, EndByte: 75,
		TypeTag: "ContractDefinition", Depth: 0,
		Raw: map[string]any{"id": float64(1), "name": "C"},
	})
	ix.Add(index.Entry{
		NodeID: 42, FileID: 0, StartByte: 17, EndByte: 32,
		TypeTag: "VariableDeclaration", Depth: 1,
		Raw: map[string]any{"id": float64(42), "name": "counter"},
	})
	ix.Add(index.Entry{
		NodeID: 50, FileID: 0, StartByte: 59, EndByte: 66,
		TypeTag: "Identifier", Depth: 3,
		Raw: map[string]any{"id": float64(50), "referencedDeclaration": float64(42)},
	})
	ix.Finalize()
	return resolver.New(ix), path
}

func runSession(t *testing.T, res *resolver.Resolver, requests []string) ([]rpcMessage, error) {
	t.Helper()
	var in bytes.Buffer
	for _, req := range requests {
		if err := writeMessage(&in, []byte(req)); err != nil {
			t.Fatalf("frame request: %v", err)
		}
	}
	var out bytes.Buffer
	server := NewServer(bytes.NewReader(in.Bytes()), &out, res)
	runErr := server.Run(context.Background())

	var responses []rpcMessage
	reader := bufio.NewReader(bytes.NewReader(out.Bytes()))
	for {
		payload, err := readMessage(reader)
		if err != nil {
			break
		}
		var msg rpcMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			t.Fatalf("bad response: %v", err)
		}
		responses = append(responses, msg)
	}
	return responses, runErr
}

func TestServerLifecycle(t *testing.T) {
	res, _ := testResolver(t)
	responses, err := runSession(t, res, []string{
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`,
		`{"jsonrpc":"2.0","method":"initialized"}`,
		`{"jsonrpc":"2.0","id":2,"method":"shutdown"}`,
		`{"jsonrpc":"2.0","method":"exit"}`,
	})
	if !errors.Is(err, ErrExit) {
		t.Fatalf("expected ErrExit, got %v", err)
	}
	if len(responses) != 2 {
		t.Fatalf("expected 2 responses, got %d", len(responses))
	}

	var init initializeResult
	if err := json.Unmarshal(responses[0].Result, &init); err != nil {
		t.Fatalf("decode initialize result: %v", err)
	}
	if !init.Capabilities.DefinitionProvider || !init.Capabilities.HoverProvider {
		t.Errorf("unexpected capabilities: %+v", init.Capabilities)
	}
}

func TestServerExitWithoutShutdown(t *testing.T) {
	res, _ := testResolver(t)
	_, err := runSession(t, res, []string{`{"jsonrpc":"2.0","method":"exit"}`})
	if !errors.Is(err, ErrExitWithoutShutdown) {
		t.Fatalf("expected ErrExitWithoutShutdown, got %v", err)
	}
}

func TestServerDefinition(t *testing.T) {
	res, path := testResolver(t)
	req := `{"jsonrpc":"2.0","id":7,"method":"textDocument/definition","params":{` +
		`"textDocument":{"uri":"file://` + path + `"},` +
		`"position":{"line":2,"character":27}}}`
	responses, err := runSession(t, res, []string{req})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(responses) != 1 {
		t.Fatalf("expected 1 response, got %d", len(responses))
	}

	var locs []location
	if err := json.Unmarshal(responses[0].Result, &locs); err != nil {
		t.Fatalf("decode locations: %v", err)
	}
	if len(locs) != 1 {
		t.Fatalf("expected 1 location, got %d", len(locs))
	}
	if locs[0].URI != "file://"+path {
		t.Errorf("uri = %q", locs[0].URI)
	}
	want := position{Line: 1, Character: 4}
	if locs[0].Range.Start != want {
		t.Errorf("range start = %+v, want %+v", locs[0].Range.Start, want)
	}
}

func TestServerDefinitionMissIsEmptyList(t *testing.T) {
	res, path := testResolver(t)
	req := `{"jsonrpc":"2.0","id":8,"method":"textDocument/definition","params":{` +
		`"textDocument":{"uri":"file://` + path + `"},` +
		`"position":{"line":50,"character":0}}}`
	responses, err := runSession(t, res, []string{req})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	var locs []location
	if err := json.Unmarshal(responses[0].Result, &locs); err != nil {
		t.Fatalf("decode locations: %v", err)
	}
	if len(locs) != 0 {
		t.Fatalf("expected empty location list, got %+v", locs)
	}
}

func TestServerHover(t *testing.T) {
	res, path := testResolver(t)
	req := `{"jsonrpc":"2.0","id":9,"method":"textDocument/hover","params":{` +
		`"textDocument":{"uri":"file://` + path + `"},` +
		`"position":{"line":1,"character":8}}}`
	responses, err := runSession(t, res, []string{req})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	var h hover
	if err := json.Unmarshal(responses[0].Result, &h); err != nil {
		t.Fatalf("decode hover: %v", err)
	}
	if h.Contents.Value != "**VariableDeclaration** `counter` (node 42)" {
		t.Errorf("hover = %q", h.Contents.Value)
	}
}

func TestServerUnknownMethod(t *testing.T) {
	res, _ := testResolver(t)
	responses, err := runSession(t, res, []string{
		`{"jsonrpc":"2.0","id":3,"method":"textDocument/completion","params":{}}`,
		`{"jsonrpc":"2.0","method":"textDocument/didOpen","params":{}}`,
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	// Only the request gets a reply; unknown notifications are dropped.
	if len(responses) != 1 {
		t.Fatalf("expected 1 response, got %d", len(responses))
	}
	if responses[0].Error == nil || responses[0].Error.Code != -32601 {
		t.Fatalf("expected -32601, got %+v", responses[0].Error)
	}
}
