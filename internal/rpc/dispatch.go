// Package rpc is groundeffect's JSON-RPC tool-dispatch adapter: a thin
// stdin/stdout loop and a name-keyed handler table, grounded on diane's
// mcp/server.go request/response shapes and decode loop.
package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/jamiequint/groundeffect/internal/geerrors"
)

// Request is one incoming JSON-RPC call.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Response is one outgoing JSON-RPC reply.
type Response struct {
	JSONRPC string `json:"jsonrpc"`
	ID      any    `json:"id"`
	Result  any    `json:"result,omitempty"`
	Error   *Error `json:"error,omitempty"`
}

// Error is the fixed wire shape spec.md §6.4 names: a machine code drawn
// from a closed set, a human message, and an optional recovery hint.
type Error struct {
	Code       int    `json:"code"`
	Message    string `json:"message"`
	MachineTag string `json:"machine_tag"`
	ActionHint string `json:"action_hint,omitempty"`
}

// jsonRPCInternalErrorCode is the standard JSON-RPC 2.0 code used for every
// groundeffect error; the machine-readable distinction lives in MachineTag
// instead of inventing a parallel numeric code space.
const jsonRPCInternalErrorCode = -32000

// toolCallParams is the shape every "tools/call" request's params take.
type toolCallParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// ToolHandler implements one JSON-RPC tool.
type ToolHandler func(ctx context.Context, args map[string]any) (any, error)

// Service dispatches JSON-RPC requests to the tool handler table built in
// tools.go from the sync/search/account components it's constructed with.
type Service struct {
	deps      Deps
	handlers  map[string]ToolHandler
	startedAt time.Time
}

// HandleRequest routes req.Method, returning a Response ready to encode.
// Unlike diane's proxy-aware dispatch (which falls through several
// provider tables), groundeffect has exactly one flat tool table, matching
// the closed tool list in spec.md §6.4.
func (s *Service) HandleRequest(ctx context.Context, req Request) Response {
	resp := Response{JSONRPC: "2.0", ID: req.ID}
	switch req.Method {
	case "initialize":
		resp.Result = map[string]any{
			"protocolVersion": "2024-11-05",
			"capabilities":    map[string]any{"tools": map[string]any{"listChanged": false}},
			"serverInfo":      map[string]any{"name": "groundeffect", "version": Version},
		}
	case "tools/list":
		resp.Result = map[string]any{"tools": s.toolSchemas()}
	case "tools/call":
		var call toolCallParams
		if err := json.Unmarshal(req.Params, &call); err != nil {
			resp.Error = &Error{Code: -32602, Message: fmt.Sprintf("invalid params: %v", err), MachineTag: "INVALID_REQUEST"}
			return resp
		}
		result, err := s.callTool(ctx, call.Name, call.Arguments)
		if err != nil {
			resp.Error = toRPCError(err)
			return resp
		}
		resp.Result = result
	default:
		resp.Error = &Error{Code: -32601, Message: fmt.Sprintf("method not found: %s", req.Method), MachineTag: "TOOL_NOT_FOUND"}
	}
	return resp
}

func (s *Service) callTool(ctx context.Context, name string, args map[string]any) (any, error) {
	handler, ok := s.handlers[name]
	if !ok {
		return nil, geerrors.ToolNotFound(name)
	}
	return handler(ctx, args)
}

// toRPCError renders a *geerrors.Error into the wire shape; any other
// error (should not occur from a well-behaved handler) is wrapped as
// INTERNAL_ERROR rather than leaking an untyped message.
func toRPCError(err error) *Error {
	var ge *geerrors.Error
	if !geerrors.As(err, &ge) {
		return &Error{Code: jsonRPCInternalErrorCode, Message: err.Error(), MachineTag: "INTERNAL_ERROR"}
	}
	hint, _ := ge.ActionHint()
	return &Error{Code: jsonRPCInternalErrorCode, Message: ge.Error(), MachineTag: ge.MCPCode(), ActionHint: hint}
}

// Serve runs the stdin/stdout JSON-RPC loop until in returns io.EOF or ctx
// is cancelled, mirroring diane's mcp/server.go decode loop.
func (s *Service) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	decoder := json.NewDecoder(in)
	encoder := json.NewEncoder(out)

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		var req Request
		if err := decoder.Decode(&req); err != nil {
			if err == io.EOF {
				return nil
			}
			return geerrors.Internal(err)
		}

		resp := s.HandleRequest(ctx, req)
		if err := encoder.Encode(resp); err != nil {
			return geerrors.Internal(err)
		}
	}
}

// Version is set at build time via -ldflags.
var Version = "dev"
