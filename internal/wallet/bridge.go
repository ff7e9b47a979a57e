package wallet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/stellar/go/strkey"

	"github.com/stellarpay-dev/stellarpay/internal/logging"
	"github.com/stellarpay-dev/stellarpay/internal/model"
)

// Bridge is the single capability {detect, get key, sign} the rest of the
// program uses, whatever shape the underlying signer speaks.
type Bridge struct {
	ext    Extension
	logger *slog.Logger
}

// NewBridge wraps ext. A nil ext behaves as an absent signer.
func NewBridge(ext Extension, logger *slog.Logger) *Bridge {
	return &Bridge{ext: ext, logger: logging.OrDiscard(logger)}
}

// keyShape is one way of asking a signer for its public key.
type keyShape struct {
	method    string
	allowBare bool // accept a bare JSON string result
	fields    []string
}

// Current API first, legacy second.
var keyShapes = []keyShape{
	{method: MethodRequestAccess, fields: []string{"address", "publicKey"}},
	{method: MethodGetPublicKey, allowBare: true, fields: []string{"publicKey"}},
}

// Detect reports whether a signer is present and answering. It never
// fails: any problem reads as "not installed".
func (b *Bridge) Detect(ctx context.Context) (ok bool) {
	if b.ext == nil {
		return false
	}
	defer func() {
		if r := recover(); r != nil {
			b.logger.Warn("signer detection panicked", "panic", r)
			ok = false
		}
	}()

	raw, err := b.ext.Call(ctx, MethodIsConnected, nil)
	if err != nil {
		b.logger.Debug("signer not detected", "error", err)
		return false
	}

	var flag bool
	if json.Unmarshal(raw, &flag) == nil {
		return flag
	}
	var obj struct {
		IsConnected bool `json:"isConnected"`
	}
	if json.Unmarshal(raw, &obj) == nil {
		return obj.IsConnected
	}
	return false
}

// RequestPublicKey asks the signer for the active account, trying the
// current access-request API and then the legacy retrieval API. It fails
// with WalletUnavailable when neither yields a valid key.
func (b *Bridge) RequestPublicKey(ctx context.Context) (string, error) {
	if b.ext == nil {
		return "", model.Errorf(model.CodeWalletUnavailable, "no signer configured")
	}

	var attempts []error
	for _, shape := range keyShapes {
		key, err := b.requestKey(ctx, shape)
		if err == nil {
			b.logger.Debug("public key retrieved", "method", shape.method)
			return key, nil
		}
		attempts = append(attempts, fmt.Errorf("%s: %w", shape.method, err))
		if ctx.Err() != nil {
			break
		}
	}
	return "", model.NewError(model.CodeWalletUnavailable, errors.Join(attempts...))
}

func (b *Bridge) requestKey(ctx context.Context, shape keyShape) (string, error) {
	raw, err := b.ext.Call(ctx, shape.method, nil)
	if err != nil {
		return "", err
	}
	if msg := errorField(raw); msg != "" {
		return "", errors.New(msg)
	}
	key := stringResult(raw, shape.allowBare, shape.fields...)
	if key == "" {
		return "", errors.New("no key in response")
	}
	if !strkey.IsValidEd25519PublicKey(key) {
		return "", fmt.Errorf("malformed key %q", key)
	}
	return key, nil
}

// SignEnvelope hands an unsigned base64 envelope to the signer together
// with the network passphrase it was built for, and returns the signed
// envelope. Any refusal or failure is SigningRejected. No timeout is
// applied: signing waits on the user.
func (b *Bridge) SignEnvelope(ctx context.Context, envelope, passphrase string) (string, error) {
	if b.ext == nil {
		return "", model.Errorf(model.CodeSigningRejected, "no signer configured")
	}

	raw, err := b.ext.Call(ctx, MethodSignTransaction, SignParams{XDR: envelope, NetworkPassphrase: passphrase})
	if err != nil {
		return "", model.NewError(model.CodeSigningRejected, err)
	}
	if msg := errorField(raw); msg != "" {
		return "", model.Errorf(model.CodeSigningRejected, "%s", msg)
	}
	signed := stringResult(raw, true, "signedTxXdr")
	if signed == "" {
		return "", model.Errorf(model.CodeSigningRejected, "signer returned no transaction")
	}
	return signed, nil
}

// stringResult extracts a string from a bare JSON string (when allowed) or
// from the first non-empty named field of a JSON object.
func stringResult(raw json.RawMessage, allowBare bool, fields ...string) string {
	if allowBare {
		var s string
		if json.Unmarshal(raw, &s) == nil {
			return strings.TrimSpace(s)
		}
	}
	var obj map[string]any
	if json.Unmarshal(raw, &obj) != nil {
		return ""
	}
	for _, f := range fields {
		if v, ok := obj[f].(string); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// errorField returns the signer-reported error in an object result, which
// is either a string or an object with a message.
func errorField(raw json.RawMessage) string {
	var obj struct {
		Error json.RawMessage `json:"error"`
	}
	if json.Unmarshal(raw, &obj) != nil || len(obj.Error) == 0 || string(obj.Error) == "null" {
		return ""
	}
	var s string
	if json.Unmarshal(obj.Error, &s) == nil {
		return s
	}
	var detail struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(obj.Error, &detail) == nil && detail.Message != "" {
		return detail.Message
	}
	return "signer error"
}
