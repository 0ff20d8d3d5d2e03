package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"sync/atomic"
)

// ErrClosed is returned by calls made after the server stream has ended.
var ErrClosed = errors.New("mcp: connection closed")

// Client speaks MCP to a single server over a pair of streams.
type Client struct {
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	scanner *bufio.Scanner
	mu      sync.Mutex
	id      atomic.Int64
	pending map[string]chan *Response
	pendMu  sync.Mutex
	closed  chan struct{}
	tools   []Tool
	ready   bool
}

// NewClient wraps an already connected stream pair. Requests are written to
// w and responses read from r.
func NewClient(w io.WriteCloser, r io.Reader) *Client {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	c := &Client{
		stdin:   w,
		scanner: scanner,
		pending: make(map[string]chan *Response),
		closed:  make(chan struct{}),
	}
	go c.readResponses()
	return c
}

// Dial starts the server process described by config and connects to its
// stdin and stdout.
func Dial(config ServerConfig) (*Client, error) {
	cmd := exec.Command(config.Command, config.Args...)

	cmd.Env = os.Environ()
	for k, v := range config.Env {
		cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, v))
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to get stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to get stdout: %w", err)
	}
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start server: %w", err)
	}

	c := NewClient(stdin, stdout)
	c.cmd = cmd
	return c, nil
}

// Initialize performs the MCP initialization handshake.
func (c *Client) Initialize(ctx context.Context, info Implementation) (*InitializeResult, error) {
	raw, err := c.call(ctx, "initialize", map[string]any{
		"protocolVersion": ProtocolVersion,
		"capabilities":    map[string]any{},
		"clientInfo":      info,
	})
	if err != nil {
		return nil, fmt.Errorf("initialize failed: %w", err)
	}

	var result InitializeResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("failed to parse initialize result: %w", err)
	}

	if err := c.notify("notifications/initialized", nil); err != nil {
		return nil, err
	}
	c.ready = true
	return &result, nil
}

// ListTools fetches available tools from the server.
func (c *Client) ListTools(ctx context.Context) ([]Tool, error) {
	var result ToolsListResult
	if err := c.request(ctx, "tools/list", nil, &result); err != nil {
		return nil, err
	}
	c.tools = result.Tools
	return result.Tools, nil
}

// CallTool invokes a tool on the server.
func (c *Client) CallTool(ctx context.Context, name string, args map[string]any) (*ToolCallResult, error) {
	var result ToolCallResult
	if err := c.request(ctx, "tools/call", ToolCallParams{Name: name, Arguments: args}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListResources fetches the resources the server exposes.
func (c *Client) ListResources(ctx context.Context) ([]Resource, error) {
	var result ResourcesListResult
	if err := c.request(ctx, "resources/list", nil, &result); err != nil {
		return nil, err
	}
	return result.Resources, nil
}

// ReadResource reads the resource at uri.
func (c *Client) ReadResource(ctx context.Context, uri string) (*ResourceReadResult, error) {
	var result ResourceReadResult
	if err := c.request(ctx, "resources/read", ResourceReadParams{URI: uri}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListPrompts fetches the prompts the server exposes.
func (c *Client) ListPrompts(ctx context.Context) ([]Prompt, error) {
	var result PromptsListResult
	if err := c.request(ctx, "prompts/list", nil, &result); err != nil {
		return nil, err
	}
	return result.Prompts, nil
}

// GetPrompt renders the named prompt.
func (c *Client) GetPrompt(ctx context.Context, name string, args map[string]string) (*PromptGetResult, error) {
	var result PromptGetResult
	if err := c.request(ctx, "prompts/get", PromptGetParams{Name: name, Arguments: args}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Tools returns the tools cached by the last ListTools.
func (c *Client) Tools() []Tool {
	return c.tools
}

// Close closes the request stream and, for a dialed server, waits for the
// process to exit.
func (c *Client) Close() error {
	err := c.stdin.Close()
	if c.cmd != nil {
		return c.cmd.Wait()
	}
	return err
}

func (c *Client) request(ctx context.Context, method string, params, out any) error {
	if !c.ready {
		return fmt.Errorf("client not initialized")
	}
	raw, err := c.call(ctx, method, params)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to parse %s result: %w", method, err)
	}
	return nil
}

func (c *Client) call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	id := strconv.FormatInt(c.id.Add(1), 10)

	req := struct {
		JSONRPC string          `json:"jsonrpc"`
		ID      json.RawMessage `json:"id"`
		Method  string          `json:"method"`
		Params  any             `json:"params,omitempty"`
	}{
		JSONRPC: "2.0",
		ID:      json.RawMessage(id),
		Method:  method,
		Params:  params,
	}

	respCh := make(chan *Response, 1)
	c.pendMu.Lock()
	c.pending[id] = respCh
	c.pendMu.Unlock()

	defer func() {
		c.pendMu.Lock()
		delete(c.pending, id)
		c.pendMu.Unlock()
	}()

	if err := c.send(req); err != nil {
		return nil, err
	}

	select {
	case resp := <-respCh:
		if resp.Error != nil {
			return nil, resp.Error
		}
		return resp.Result, nil
	case <-c.closed:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Client) notify(method string, params any) error {
	req := struct {
		JSONRPC string `json:"jsonrpc"`
		Method  string `json:"method"`
		Params  any    `json:"params,omitempty"`
	}{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
	}
	return c.send(req)
}

func (c *Client) send(msg any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(c.stdin, "%s\n", data)
	return err
}

func (c *Client) readResponses() {
	defer close(c.closed)

	for c.scanner.Scan() {
		line := c.scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var resp Response
		if err := json.Unmarshal(line, &resp); err != nil {
			continue // Skip malformed responses
		}

		c.pendMu.Lock()
		ch, ok := c.pending[string(resp.ID)]
		c.pendMu.Unlock()

		if ok {
			ch <- &resp
		}
	}
}
