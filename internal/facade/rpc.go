package facade

import (
	"context"
	"encoding/json"

	"github.com/nodalmind/memoria/internal/errs"
)

// JSON-RPC 2.0 error codes. The reserved range below -32000 follows the
// spec; application-specific codes occupy the -32000..-32099 server-error
// band, mirroring the teacher's internal/api/mcp error code table.
const (
	ErrCodeParseError     = -32700
	ErrCodeInvalidRequest = -32600
	ErrCodeMethodNotFound = -32601
	ErrCodeInvalidParams  = -32602
	ErrCodeInternalError  = -32603
	ErrCodeServerError    = -32000
	ErrCodeNotFound       = -32001
	ErrCodeConflict       = -32002
)

// Request is a JSON-RPC 2.0 request envelope (spec.md §1: "transport
// framing ... out of scope"; this struct exists only so HandleRequest has
// somewhere to park the tool name and params it hands to Server.Call).
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

// Response is a JSON-RPC 2.0 response envelope.
type Response struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
}

// RPCError is the JSON-RPC error object.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// HandleRequest decodes a single JSON-RPC request, dispatches it to the
// matching tool, and always returns a well-formed response — errors are
// encoded into Response.Error rather than returned, matching the teacher's
// HandleRequest contract (internal/api/mcp/server.go).
//
// memory_graph_search doubles as a backward-compatible alias of
// memory_traverse (spec.md §6.1). The two tools take disjoint required
// fields (traverse requires start_memory_id; graph_search requires query),
// so a request calling itself memory_graph_search but carrying
// start_memory_id is routed to the traverse handler instead — this is the
// one place spec.md's "also accepted as an alias" note is resolved into
// concrete routing (see DESIGN.md).
func HandleRequest(ctx context.Context, srv *Server, requestJSON []byte) []byte {
	var req Request
	if err := json.Unmarshal(requestJSON, &req); err != nil {
		return encodeResponse(nil, nil, ErrCodeParseError, "parse error")
	}

	method := req.Method
	if method == string(ToolGraphSearch) && hasField(req.Params, "start_memory_id") {
		method = string(ToolTraverse)
	}

	tool := ToolName(method)
	if !isKnownTool(tool) {
		return encodeResponse(req.ID, nil, ErrCodeMethodNotFound, "method not found: "+req.Method)
	}

	result, err := srv.Call(ctx, tool, req.Params)
	if err != nil {
		code, msg := mapError(err)
		return encodeResponse(req.ID, nil, code, msg)
	}
	return encodeResponse(req.ID, result, 0, "")
}

// hasField reports whether rawJSON decodes as an object containing key.
func hasField(rawJSON json.RawMessage, key string) bool {
	if len(rawJSON) == 0 {
		return false
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(rawJSON, &m); err != nil {
		return false
	}
	_, ok := m[key]
	return ok
}

func isKnownTool(tool ToolName) bool {
	for _, t := range Catalog {
		if t == tool {
			return true
		}
	}
	return false
}

// mapError converts an internal/errs.Code into a JSON-RPC error code and a
// production-safe message (spec.md §7: "no stack traces in production").
func mapError(err error) (int, string) {
	switch errs.Code_(err) {
	case errs.CodeInvalidParams:
		return ErrCodeInvalidParams, err.Error()
	case errs.CodeNotFound:
		return ErrCodeNotFound, err.Error()
	case errs.CodeConflict:
		return ErrCodeConflict, err.Error()
	case errs.CodeLogic:
		return ErrCodeServerError, err.Error()
	case errs.CodeTransient:
		return ErrCodeServerError, "temporarily unavailable, retry later"
	default:
		return ErrCodeInternalError, "internal error"
	}
}

func encodeResponse(id interface{}, result interface{}, errCode int, errMsg string) []byte {
	resp := Response{JSONRPC: "2.0", ID: id, Result: result}
	if errCode != 0 {
		resp.Error = &RPCError{Code: errCode, Message: errMsg}
	}
	raw, err := json.Marshal(resp)
	if err != nil {
		// Marshaling our own Response can only fail if a handler returned an
		// unencodable result; fall back to a bare internal-error frame.
		raw, _ = json.Marshal(Response{
			JSONRPC: "2.0",
			ID:      id,
			Error:   &RPCError{Code: ErrCodeInternalError, Message: "internal error"},
		})
	}
	return raw
}
