package jsonrpc

import (
	"context"
	"encoding/json"
	"sort"
)

type HandlerFunc func(ctx context.Context, params json.RawMessage) (any, *RPCError)

type Handler struct {
	methods map[string]HandlerFunc
}

func NewHandler() *Handler {
	return &Handler{methods: make(map[string]HandlerFunc)}
}

func (h *Handler) Register(method string, fn HandlerFunc) {
	h.methods[method] = fn
}

func (h *Handler) Methods() []string {
	names := make([]string, 0, len(h.methods))
	for name := range h.methods {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (h *Handler) Handle(ctx context.Context, req Request) Response {
	if req.JSONRPC != Version || req.Method == "" {
		return Response{JSONRPC: Version, Error: &RPCError{Code: ErrInvalidRequest, Message: "Invalid Request"}, ID: req.ID}
	}
	fn, ok := h.methods[req.Method]
	if !ok {
		return Response{JSONRPC: Version, Error: &RPCError{Code: ErrMethodNotFound, Message: "Method not found"}, ID: req.ID}
	}
	params := json.RawMessage(req.Params)
	result, err := fn(ctx, params)
	if err != nil {
		return Response{JSONRPC: Version, Error: err, ID: req.ID}
	}
	return Response{JSONRPC: Version, Result: result, ID: req.ID}
}

// HandleBytes decodes a raw request, dispatches it and returns the encoded response.
func (h *Handler) HandleBytes(ctx context.Context, data []byte) []byte {
	var req Request
	var resp Response
	if err := json.Unmarshal(data, &req); err != nil {
		resp = Response{JSONRPC: Version, Error: &RPCError{Code: ErrParseError, Message: "Parse error"}}
	} else {
		resp = h.Handle(ctx, req)
	}
	out, err := json.Marshal(resp)
	if err != nil {
		out, _ = json.Marshal(Response{JSONRPC: Version, Error: &RPCError{Code: ErrInternalError, Message: err.Error()}, ID: req.ID})
	}
	return out
}

const (
	ErrParseError     = -32700
	ErrInvalidRequest = -32600
	ErrMethodNotFound = -32601
	ErrInvalidParams  = -32602
	ErrInternalError  = -32603
	ErrAgentNotFound  = -32003
	ErrSessionClosed  = -32009
)
