package wallet

import (
	"context"
	"encoding/json"
	"errors"
)

// Methods exposed by Freighter-compatible signers.
const (
	MethodIsConnected     = "isConnected"
	MethodRequestAccess   = "requestAccess"   // current API
	MethodGetPublicKey    = "getPublicKey"    // legacy API
	MethodSignTransaction = "signTransaction" // both APIs
)

// ErrMethodNotFound reports that the signer does not implement a method.
var ErrMethodNotFound = errors.New("method not found")

// Extension is the raw call surface of an external signer. Results are
// left undecoded because their shape depends on the signer's version.
type Extension interface {
	Call(ctx context.Context, method string, params any) (json.RawMessage, error)
}

// ExtensionFunc adapts a function to Extension.
type ExtensionFunc func(ctx context.Context, method string, params any) (json.RawMessage, error)

// Call implements Extension.
func (f ExtensionFunc) Call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	return f(ctx, method, params)
}

// SignParams is the payload of a signTransaction call.
type SignParams struct {
	XDR               string `json:"xdr"`
	NetworkPassphrase string `json:"networkPassphrase"`
}
