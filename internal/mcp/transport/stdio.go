// Package transport carries tool calls between a client and the runtime.
// The stdio adapter speaks MCP JSON-RPC on stdin/stdout; the mock adapter
// drives the same handler contract from tests.
package transport

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"surface/internal/core/config"
	"surface/internal/mcp/contracts"
	"surface/internal/mcp/schema"
	"surface/internal/shared/util"
)

type Handler func(ctx context.Context, tool string, raw map[string]any) (any, error)

type Adapter interface {
	Start(ctx context.Context, handler Handler) error
	Stop() error
}

type Stdio struct {
	limiter *util.Limiter
	in      io.Reader
	out     io.Writer

	mu      sync.Mutex
	running bool
}

func NewStdio(cfg config.MCP) *Stdio {
	s := &Stdio{in: os.Stdin, out: os.Stdout}
	if cfg.RatePerSecond > 0 {
		s.limiter = util.NewLimiter(cfg.RatePerSecond, cfg.RateBurst)
	}
	return s
}

func (s *Stdio) Start(ctx context.Context, handler Handler) error {
	if ctx == nil {
		ctx = context.Background()
	}

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		<-ctx.Done()
		return ctx.Err()
	}
	s.running = true
	s.mu.Unlock()

	err := s.serve(ctx, handler)

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()

	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return ctx.Err()
}

func (s *Stdio) Stop() error {
	return nil
}

type rpcResponse struct {
	JSONRPC string    `json:"jsonrpc"`
	ID      any       `json:"id,omitempty"`
	Result  any       `json:"result,omitempty"`
	Error   *rpcError `json:"error,omitempty"`
}

type rpcError struct {
	Code    int            `json:"code"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data,omitempty"`
}

func (s *Stdio) serve(ctx context.Context, handler Handler) error {
	if handler == nil {
		return contracts.ToolError{Code: contracts.ErrorInvalidArgument, Message: "stdio handler is required"}
	}

	decoder := json.NewDecoder(bufio.NewReader(s.in))
	writer := bufio.NewWriter(s.out)
	encoder := json.NewEncoder(writer)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		var raw map[string]any
		if err := decoder.Decode(&raw); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		if s.limiter != nil && !s.limiter.Allow(1) {
			resp := rpcResponse{
				JSONRPC: "2.0",
				ID:      raw["id"],
				Error: &rpcError{
					Code:    -32005,
					Message: "Rate limit exceeded",
				},
			}
			if err := writeResponse(encoder, writer, resp); err != nil {
				return err
			}
			continue
		}

		if err := s.handleMessage(ctx, handler, raw, encoder, writer); err != nil {
			return err
		}
	}
}

func (s *Stdio) handleMessage(ctx context.Context, handler Handler, raw map[string]any, encoder *json.Encoder, writer *bufio.Writer) error {
	method, _ := raw["method"].(string)
	if method == "" {
		resp := rpcResponse{
			JSONRPC: "2.0",
			ID:      raw["id"],
			Error:   &rpcError{Code: -32600, Message: "Invalid request"},
		}
		return writeResponse(encoder, writer, resp)
	}

	// notifications carry no id and expect no reply
	if method == "notifications/initialized" {
		return nil
	}

	resp := rpcResponse{JSONRPC: "2.0", ID: raw["id"]}
	params, _ := raw["params"].(map[string]any)

	switch method {
	case "initialize":
		resp.Result = map[string]any{
			"protocolVersion": "2025-06-18",
			"capabilities": map[string]any{
				"tools": map[string]any{},
			},
			"serverInfo": map[string]any{
				"name":    contracts.ToolNameSurface,
				"version": contracts.ContractVersion,
			},
		}
	case "ping":
		resp.Result = map[string]any{}
	case "tools/list":
		toolDefs := schema.BuildToolDefinitions()
		tools := make([]map[string]any, 0, len(toolDefs))
		for _, def := range toolDefs {
			tools = append(tools, map[string]any{
				"name":        def.Name,
				"description": def.Description,
				"inputSchema": def.InputSchema,
			})
		}
		resp.Result = map[string]any{"tools": tools}
	case "tools/call":
		name, _ := params["name"].(string)
		args, _ := params["arguments"].(map[string]any)
		if args == nil {
			args = map[string]any{}
		}
		result, err := handler(ctx, name, args)
		if err != nil {
			toolErr := normalizeToolError(err)
			resp.Result = map[string]any{
				"isError": true,
				"content": []map[string]any{
					{"type": "text", "text": fmt.Sprintf("%s: %s", toolErr.Code, toolErr.Message)},
				},
			}
		} else {
			resp.Result = map[string]any{
				"isError":           false,
				"structuredContent": result,
				"content": []map[string]any{
					{"type": "text", "text": mustJSONText(result)},
				},
			}
		}
	default:
		resp.Error = &rpcError{Code: -32601, Message: "Method not found"}
	}

	return writeResponse(encoder, writer, resp)
}

func writeResponse(encoder *json.Encoder, writer *bufio.Writer, resp rpcResponse) error {
	if err := encoder.Encode(resp); err != nil {
		return err
	}
	return writer.Flush()
}

func mustJSONText(v any) string {
	if v == nil {
		return "null"
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}

func normalizeToolError(err error) contracts.ToolError {
	var toolErr contracts.ToolError
	if errors.As(err, &toolErr) {
		return toolErr
	}
	return contracts.ToolError{Code: contracts.ErrorInternal, Message: err.Error()}
}
