// Package lsp is the stdio transport shell around the resolver: message
// framing, request dispatch, and a minimal handshake. Beyond the handshake
// it exposes exactly two lookups, textDocument/definition and
// textDocument/hover, both read-only projections over a sealed index, so
// every request may be served without coordination.
package lsp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"soldef/internal/index"
	"soldef/internal/resolver"
	"soldef/internal/textpos"
)

var (
	// ErrExit signals a graceful shutdown after receiving "exit".
	ErrExit = errors.New("lsp exit")
	// ErrExitWithoutShutdown signals an "exit" without a preceding "shutdown".
	ErrExitWithoutShutdown = errors.New("lsp exit without shutdown")
)

// Server handles stdio JSON-RPC over a sealed artifact index.
type Server struct {
	in     *bufio.Reader
	out    *bufio.Writer
	sendMu sync.Mutex

	resolver *resolver.Resolver

	mu                sync.Mutex
	shutdownRequested bool
}

// NewServer constructs a server that answers queries through res.
func NewServer(in io.Reader, out io.Writer, res *resolver.Resolver) *Server {
	return &Server{
		in:       bufio.NewReader(in),
		out:      bufio.NewWriter(out),
		resolver: res,
	}
}

// Run serves requests until shutdown. The index behind the resolver is
// read-only, so each request could equally be dispatched on its own
// goroutine; the loop stays sequential because no handler blocks.
func (s *Server) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		payload, err := readMessage(s.in)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		var msg rpcMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			s.logf("failed to parse message: %v", err)
			continue
		}
		if msg.Method == "" {
			continue
		}
		if err := s.handleMessage(&msg); err != nil {
			return err
		}
	}
}

func (s *Server) handleMessage(msg *rpcMessage) error {
	switch msg.Method {
	case "initialize":
		return s.handleInitialize(msg)
	case "initialized":
		return nil
	case "shutdown":
		return s.handleShutdown(msg)
	case "exit":
		s.mu.Lock()
		requested := s.shutdownRequested
		s.mu.Unlock()
		if requested {
			return ErrExit
		}
		return ErrExitWithoutShutdown
	case "textDocument/definition":
		return s.handleDefinition(msg)
	case "textDocument/hover":
		return s.handleHover(msg)
	default:
		if len(msg.ID) > 0 {
			return s.sendError(msg.ID, -32601, "method not found")
		}
		return nil
	}
}

func (s *Server) handleInitialize(msg *rpcMessage) error {
	var params initializeParams
	if len(msg.Params) > 0 {
		if err := json.Unmarshal(msg.Params, &params); err != nil {
			return s.sendError(msg.ID, -32602, "invalid params")
		}
	}
	result := initializeResult{
		Capabilities: serverCapabilities{
			TextDocumentSync:   0,
			HoverProvider:      true,
			DefinitionProvider: true,
		},
	}
	return s.sendResponse(msg.ID, result)
}

func (s *Server) handleShutdown(msg *rpcMessage) error {
	s.mu.Lock()
	s.shutdownRequested = true
	s.mu.Unlock()
	return s.sendResponse(msg.ID, nil)
}

func (s *Server) handleDefinition(msg *rpcMessage) error {
	var params definitionParams
	if len(msg.Params) > 0 {
		if err := json.Unmarshal(msg.Params, &params); err != nil {
			return s.sendError(msg.ID, -32602, "invalid params")
		}
	}
	entry, err := s.locate(params.TextDocument.URI, params.Position)
	if err != nil {
		s.logf("definition: %v", err)
		return s.sendResponse(msg.ID, []location{})
	}
	if entry == nil {
		return s.sendResponse(msg.ID, []location{})
	}
	loc, err := s.resolver.ResolveDeclaration(entry)
	if err != nil {
		s.logf("definition: %v", err)
		return s.sendResponse(msg.ID, []location{})
	}
	if loc == nil {
		return s.sendResponse(msg.ID, []location{})
	}
	pos := position{Line: loc.Position.Line, Character: loc.Position.Character}
	return s.sendResponse(msg.ID, []location{{
		URI:   loc.URI,
		Range: lspRange{Start: pos, End: pos},
	}})
}

func (s *Server) handleHover(msg *rpcMessage) error {
	var params hoverParams
	if len(msg.Params) > 0 {
		if err := json.Unmarshal(msg.Params, &params); err != nil {
			return s.sendError(msg.ID, -32602, "invalid params")
		}
	}
	entry, err := s.locate(params.TextDocument.URI, params.Position)
	if err != nil {
		s.logf("hover: %v", err)
		return s.sendResponse(msg.ID, nil)
	}
	if entry == nil {
		return s.sendResponse(msg.ID, nil)
	}
	return s.sendResponse(msg.ID, hover{
		Contents: markupContent{
			Kind:  "markdown",
			Value: hoverText(entry),
		},
	})
}

func hoverText(entry *index.Entry) string {
	text := fmt.Sprintf("**%s** (node %d)", entry.TypeTag, entry.NodeID)
	if name, ok := index.StringField(entry.Raw, "name"); ok && name != "" {
		text = fmt.Sprintf("**%s** `%s` (node %d)", entry.TypeTag, name, entry.NodeID)
	}
	return text
}

func (s *Server) locate(uri string, pos position) (*index.Entry, error) {
	return s.resolver.Locate(uri, textpos.Position{Line: pos.Line, Character: pos.Character})
}

func (s *Server) sendResponse(id json.RawMessage, result any) error {
	msg := map[string]any{
		"jsonrpc": "2.0",
		"id":      json.RawMessage(id),
		"result":  result,
	}
	return s.send(msg)
}

func (s *Server) sendError(id json.RawMessage, code int, message string) error {
	msg := map[string]any{
		"jsonrpc": "2.0",
		"id":      json.RawMessage(id),
		"error": rpcError{
			Code:    code,
			Message: message,
		},
	}
	return s.send(msg)
}

func (s *Server) send(msg any) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	if err := writeMessage(s.out, payload); err != nil {
		return err
	}
	return s.out.Flush()
}

func (s *Server) logf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "lsp: "+format+"\n", args...)
}
