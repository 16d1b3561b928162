package log

import (
	"context"
	"io"
	"log/slog"
	"regexp"
	"strings"
)

// sensitiveKeys are attribute keys whose values are always masked.
var sensitiveKeys = map[string]bool{
	// Wallet key material
	"private_key":  true,
	"privatekey":   true,
	"priv":         true,
	"wif":          true,
	"xprv":         true,
	"tprv":         true,
	"extended_key": true,
	"seed":         true,
	"seed_hex":     true,
	"mnemonic":     true,
	"passphrase":   true,
	"wallet_key":   true,

	// Node RPC credentials
	"rpcpassword":   true,
	"rpc_password":  true,
	"rpcauth":       true,
	"password":      true,
	"secret":        true,
	"authorization": true,
}

// sensitiveKeywords mask any key that contains them.
// Bare "key" is left out: "key_map" and "keymap" are ordinary attributes here.
var sensitiveKeywords = []string{
	"password", "passphrase", "secret", "private", "mnemonic", "seed", "xprv", "tprv",
}

// sensitivePatterns mask string values regardless of their key.
// Addresses and transaction hashes must never match.
var sensitivePatterns = []*regexp.Regexp{
	// WIF private keys: uncompressed (5...) and compressed (K..., L...) main-net,
	// testnet (9..., c...).
	regexp.MustCompile(`^[5KLc9][1-9A-HJ-NP-Za-km-z]{50,51}$`),

	// BIP-32 extended private keys (xprv, tprv, yprv, zprv, uprv, vprv).
	regexp.MustCompile(`^[xtyzuv]prv[1-9A-HJ-NP-Za-km-z]{100,112}$`),

	// BIP-39 style mnemonics: 12 to 24 lowercase words.
	regexp.MustCompile(`^(?:[a-z]{3,8} ){11,23}[a-z]{3,8}$`),

	// PEM private key blocks.
	regexp.MustCompile(`(?i)-----BEGIN.*(PRIVATE|SECRET).*KEY-----`),
}

// MaskValue replaces sensitive values.
const MaskValue = "***REDACTED***"

// SecureHandler wraps an slog.Handler and masks wallet key material before
// records reach the underlying handler. Record files never contain keys,
// but config files and wrapping tools may log them by accident.
type SecureHandler struct {
	handler slog.Handler
}

// NewSecureHandler wraps handler. A nil handler wraps slog.Default().Handler().
func NewSecureHandler(handler slog.Handler) *SecureHandler {
	if handler == nil {
		handler = slog.Default().Handler()
	}
	return &SecureHandler{handler: handler}
}

// Enabled delegates to the underlying handler.
func (h *SecureHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// Handle masks the record's attributes and forwards it.
func (h *SecureHandler) Handle(ctx context.Context, r slog.Record) error {
	masked := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
	r.Attrs(func(a slog.Attr) bool {
		masked.AddAttrs(maskAttr(a))
		return true
	})
	return h.handler.Handle(ctx, masked)
}

// WithAttrs masks attrs and returns a handler carrying them.
func (h *SecureHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	masked := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		masked[i] = maskAttr(a)
	}
	return &SecureHandler{handler: h.handler.WithAttrs(masked)}
}

// WithGroup returns a handler that nests attributes under name.
func (h *SecureHandler) WithGroup(name string) slog.Handler {
	return &SecureHandler{handler: h.handler.WithGroup(name)}
}

// maskAttr masks one attribute, descending into groups.
func maskAttr(a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindGroup {
		group := a.Value.Group()
		masked := make([]slog.Attr, len(group))
		for i, ga := range group {
			masked[i] = maskAttr(ga)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(masked...)}
	}

	if isSensitiveKey(a.Key) {
		return slog.String(a.Key, MaskValue)
	}

	if a.Value.Kind() == slog.KindString && isSensitiveValue(a.Value.String()) {
		return slog.String(a.Key, MaskValue)
	}
	return a
}

// isSensitiveKey reports whether key names wallet key material or a credential.
func isSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	if sensitiveKeys[lower] {
		return true
	}
	for _, keyword := range sensitiveKeywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}

// isSensitiveValue reports whether value looks like key material.
func isSensitiveValue(value string) bool {
	value = strings.TrimSpace(value)
	for _, pattern := range sensitivePatterns {
		if pattern.MatchString(value) {
			return true
		}
	}
	return false
}

// level returns Debug in verbose mode and Warn otherwise.
func level(verbose bool) slog.Level {
	if verbose {
		return slog.LevelDebug
	}
	return slog.LevelWarn
}

// NewSecureLogger returns a text logger writing to w with masking enabled.
// verbose selects Debug level; otherwise only warnings and errors are logged.
func NewSecureLogger(w io.Writer, verbose bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level(verbose)}
	return slog.New(NewSecureHandler(slog.NewTextHandler(w, opts)))
}

// NewSecureJSONLogger is NewSecureLogger with JSON output.
func NewSecureJSONLogger(w io.Writer, verbose bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level(verbose)}
	return slog.New(NewSecureHandler(slog.NewJSONHandler(w, opts)))
}
