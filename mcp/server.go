package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/westshgit/apidoc/logging"
)

// maxLineSize bounds a single JSON-RPC message.
const maxLineSize = 1 << 20

// ToolHandler runs a tool. A returned error is reported to the caller as a
// tool result with isError set, not as a protocol error.
type ToolHandler func(ctx context.Context, args map[string]any) (string, error)

// ResourceHandler returns the text body of a resource.
type ResourceHandler func(ctx context.Context) (string, error)

// PromptHandler renders a prompt into the text of a single user message.
type PromptHandler func(ctx context.Context, args map[string]string) (string, error)

type toolEntry struct {
	tool    Tool
	handler ToolHandler
}

type resourceEntry struct {
	resource Resource
	handler  ResourceHandler
}

type promptEntry struct {
	prompt  Prompt
	handler PromptHandler
}

// Server answers MCP requests read line by line from a stream.
type Server struct {
	info   Implementation
	logger *logging.Logger

	mu        sync.RWMutex
	tools     []toolEntry
	resources []resourceEntry
	prompts   []promptEntry

	writeMu sync.Mutex
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithServerLogger sets the logger for request tracing.
func WithServerLogger(l *logging.Logger) ServerOption {
	return func(s *Server) {
		s.logger = l
	}
}

// NewServer creates a server that introduces itself as name.
func NewServer(name, version string, opts ...ServerOption) *Server {
	s := &Server{
		info:   Implementation{Name: name, Version: version},
		logger: logging.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterTool adds a tool. Registering a name twice replaces the handler.
func (s *Server) RegisterTool(tool Tool, h ToolHandler) {
	if tool.InputSchema == nil {
		tool.InputSchema = map[string]any{"type": "object"}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.tools {
		if s.tools[i].tool.Name == tool.Name {
			s.tools[i] = toolEntry{tool, h}
			return
		}
	}
	s.tools = append(s.tools, toolEntry{tool, h})
}

// RegisterResource adds a resource keyed by its URI.
func (s *Server) RegisterResource(res Resource, h ResourceHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.resources {
		if s.resources[i].resource.URI == res.URI {
			s.resources[i] = resourceEntry{res, h}
			return
		}
	}
	s.resources = append(s.resources, resourceEntry{res, h})
}

// RegisterPrompt adds a prompt keyed by its name.
func (s *Server) RegisterPrompt(p Prompt, h PromptHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.prompts {
		if s.prompts[i].prompt.Name == p.Name {
			s.prompts[i] = promptEntry{p, h}
			return
		}
	}
	s.prompts = append(s.prompts, promptEntry{p, h})
}

// Serve reads requests from r and writes responses to w until r reaches EOF
// or ctx is done. EOF is a clean exit and returns nil.
func (s *Server) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	lines := make(chan []byte)
	readErr := make(chan error, 1)

	go func() {
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
		for scanner.Scan() {
			line := append([]byte(nil), scanner.Bytes()...)
			select {
			case lines <- line:
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-readErr:
			if err != nil {
				return fmt.Errorf("read request: %w", err)
			}
			return nil
		case line := <-lines:
			if len(line) == 0 {
				continue
			}
			resp := s.handleLine(ctx, line)
			if resp == nil {
				continue
			}
			if err := s.write(w, resp); err != nil {
				return fmt.Errorf("write response: %w", err)
			}
		}
	}
}

func (s *Server) write(w io.Writer, resp *Response) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	data, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%s\n", data)
	return err
}

// handleLine decodes one message and returns the response to send, or nil
// for notifications.
func (s *Server) handleLine(ctx context.Context, line []byte) *Response {
	var req Request
	if err := json.Unmarshal(line, &req); err != nil {
		s.logger.Warn("mcp_parse_error", logging.Fields{"error": err.Error()})
		return errorResponse(json.RawMessage("null"), CodeParseError, "parse error")
	}
	if req.JSONRPC != "2.0" || req.Method == "" {
		if req.IsNotification() {
			return nil
		}
		return errorResponse(req.ID, CodeInvalidRequest, "invalid request")
	}

	s.logger.Debug("mcp_request", logging.Fields{"method": req.Method})

	result, err := s.dispatch(ctx, &req)
	if req.IsNotification() {
		return nil
	}
	if err != nil {
		var rpcErr *RPCError
		if errors.As(err, &rpcErr) {
			return errorResponse(req.ID, rpcErr.Code, rpcErr.Message)
		}
		return errorResponse(req.ID, CodeInternalError, err.Error())
	}

	data, err := json.Marshal(result)
	if err != nil {
		return errorResponse(req.ID, CodeInternalError, err.Error())
	}
	return &Response{JSONRPC: "2.0", ID: req.ID, Result: data}
}

func (s *Server) dispatch(ctx context.Context, req *Request) (any, error) {
	switch req.Method {
	case "initialize":
		return InitializeResult{
			ProtocolVersion: ProtocolVersion,
			Capabilities: map[string]any{
				"tools":     map[string]any{},
				"resources": map[string]any{},
				"prompts":   map[string]any{},
			},
			ServerInfo: s.info,
		}, nil
	case "notifications/initialized", "notifications/cancelled":
		return nil, nil
	case "ping":
		return struct{}{}, nil
	case "tools/list":
		return s.listTools(), nil
	case "tools/call":
		var p ToolCallParams
		if err := decodeParams(req.Params, &p); err != nil {
			return nil, err
		}
		return s.callTool(ctx, p)
	case "resources/list":
		return s.listResources(), nil
	case "resources/read":
		var p ResourceReadParams
		if err := decodeParams(req.Params, &p); err != nil {
			return nil, err
		}
		return s.readResource(ctx, p.URI)
	case "prompts/list":
		return s.listPrompts(), nil
	case "prompts/get":
		var p PromptGetParams
		if err := decodeParams(req.Params, &p); err != nil {
			return nil, err
		}
		return s.getPrompt(ctx, p)
	default:
		return nil, &RPCError{Code: CodeMethodNotFound, Message: "method not found: " + req.Method}
	}
}

func decodeParams(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return &RPCError{Code: CodeInvalidParams, Message: "missing params"}
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return &RPCError{Code: CodeInvalidParams, Message: err.Error()}
	}
	return nil
}

func (s *Server) listTools() ToolsListResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := ToolsListResult{Tools: make([]Tool, 0, len(s.tools))}
	for _, e := range s.tools {
		out.Tools = append(out.Tools, e.tool)
	}
	return out
}

func (s *Server) callTool(ctx context.Context, p ToolCallParams) (*ToolCallResult, error) {
	s.mu.RLock()
	var handler ToolHandler
	for _, e := range s.tools {
		if e.tool.Name == p.Name {
			handler = e.handler
			break
		}
	}
	s.mu.RUnlock()
	if handler == nil {
		return nil, &RPCError{Code: CodeInvalidParams, Message: "unknown tool: " + p.Name}
	}

	text, err := handler(ctx, p.Arguments)
	if err != nil {
		s.logger.Warn("mcp_tool_failed", logging.Fields{"tool": p.Name, "error": err.Error()})
		return &ToolCallResult{Content: []Content{TextContent(err.Error())}, IsError: true}, nil
	}
	return &ToolCallResult{Content: []Content{TextContent(text)}}, nil
}

func (s *Server) listResources() ResourcesListResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := ResourcesListResult{Resources: make([]Resource, 0, len(s.resources))}
	for _, e := range s.resources {
		out.Resources = append(out.Resources, e.resource)
	}
	return out
}

func (s *Server) readResource(ctx context.Context, uri string) (*ResourceReadResult, error) {
	s.mu.RLock()
	var entry *resourceEntry
	for i := range s.resources {
		if s.resources[i].resource.URI == uri {
			e := s.resources[i]
			entry = &e
			break
		}
	}
	s.mu.RUnlock()
	if entry == nil {
		return nil, &RPCError{Code: CodeInvalidParams, Message: "unknown resource: " + uri}
	}

	text, err := entry.handler(ctx)
	if err != nil {
		return nil, err
	}
	mime := entry.resource.MimeType
	if mime == "" {
		mime = "text/plain"
	}
	return &ResourceReadResult{Contents: []ResourceContents{{URI: uri, MimeType: mime, Text: text}}}, nil
}

func (s *Server) listPrompts() PromptsListResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := PromptsListResult{Prompts: make([]Prompt, 0, len(s.prompts))}
	for _, e := range s.prompts {
		out.Prompts = append(out.Prompts, e.prompt)
	}
	return out
}

func (s *Server) getPrompt(ctx context.Context, p PromptGetParams) (*PromptGetResult, error) {
	s.mu.RLock()
	var entry *promptEntry
	for i := range s.prompts {
		if s.prompts[i].prompt.Name == p.Name {
			e := s.prompts[i]
			entry = &e
			break
		}
	}
	s.mu.RUnlock()
	if entry == nil {
		return nil, &RPCError{Code: CodeInvalidParams, Message: "unknown prompt: " + p.Name}
	}

	text, err := entry.handler(ctx, p.Arguments)
	if err != nil {
		return nil, err
	}
	return &PromptGetResult{
		Description: entry.prompt.Description,
		Messages:    []PromptMessage{{Role: "user", Content: TextContent(text)}},
	}, nil
}

func errorResponse(id json.RawMessage, code int, msg string) *Response {
	if len(id) == 0 {
		id = json.RawMessage("null")
	}
	return &Response{JSONRPC: "2.0", ID: id, Error: &RPCError{Code: code, Message: msg}}
}
