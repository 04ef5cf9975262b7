package jsonrpc

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEchoHandler() *Handler {
	h := NewHandler()
	h.Register("echo", func(ctx context.Context, params json.RawMessage) (any, *RPCError) {
		var req struct {
			Text string `json:"text"`
		}
		if err := json.Unmarshal(params, &req); err != nil || req.Text == "" {
			return nil, &RPCError{Code: ErrInvalidParams, Message: "text required"}
		}
		return map[string]string{"text": req.Text}, nil
	})
	return h
}

func TestHandleDispatch(t *testing.T) {
	h := newEchoHandler()

	resp := h.Handle(context.Background(), Request{JSONRPC: Version, Method: "echo", Params: json.RawMessage(`{"text":"hi"}`), ID: "1"})
	require.Nil(t, resp.Error)
	var out struct {
		Text string `json:"text"`
	}
	require.NoError(t, resp.Decode(&out))
	assert.Equal(t, "hi", out.Text)
	assert.Equal(t, "1", resp.ID)
}

func TestHandleErrors(t *testing.T) {
	h := newEchoHandler()
	ctx := context.Background()

	resp := h.Handle(ctx, Request{JSONRPC: "1.0", Method: "echo"})
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrInvalidRequest, resp.Error.Code)

	resp = h.Handle(ctx, Request{JSONRPC: Version, Method: "missing"})
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrMethodNotFound, resp.Error.Code)

	resp = h.Handle(ctx, Request{JSONRPC: Version, Method: "echo", Params: json.RawMessage(`{}`)})
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrInvalidParams, resp.Error.Code)

	var out map[string]any
	err := resp.Decode(&out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "text required")
}

func TestHandleBytes(t *testing.T) {
	h := newEchoHandler()
	ctx := context.Background()

	var resp Response
	require.NoError(t, json.Unmarshal(h.HandleBytes(ctx, []byte(`{not json`)), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrParseError, resp.Error.Code)

	resp = Response{}
	require.NoError(t, json.Unmarshal(h.HandleBytes(ctx, []byte(`{"jsonrpc":"2.0","method":"echo","params":{"text":"x"},"id":7}`)), &resp))
	assert.Nil(t, resp.Error)
	assert.Equal(t, []string{"echo"}, h.Methods())
}
