package hub

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"

	"agents-chat/internal/jsonrpc"
)

// LocalCaller dispatches JSON-RPC requests to the in-process handler.
type LocalCaller struct {
	handler *jsonrpc.Handler
}

func NewLocalCaller(handler *jsonrpc.Handler) *LocalCaller {
	return &LocalCaller{handler: handler}
}

func (c *LocalCaller) Call(ctx context.Context, method string, params []byte) (jsonrpc.Response, error) {
	req := jsonrpc.Request{JSONRPC: jsonrpc.Version, Method: method, Params: params, ID: "internal"}
	resp := c.handler.Handle(ctx, req)
	return resp, nil
}

// Invoke marshals params, calls method and decodes the result into out (when non-nil).
// RPC failures come back as *jsonrpc.RPCError.
func (c *LocalCaller) Invoke(ctx context.Context, method string, params any, out any) error {
	var raw []byte
	if params != nil {
		data, err := json.Marshal(params)
		if err != nil {
			return errors.Wrapf(err, "encode %s params", method)
		}
		raw = data
	}
	resp, err := c.Call(ctx, method, raw)
	if err != nil {
		return err
	}
	if resp.Error != nil {
		return resp.Error
	}
	if out == nil {
		return nil
	}
	return errors.Wrapf(resp.Decode(out), "decode %s result", method)
}
