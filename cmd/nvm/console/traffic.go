package console

import "context"

type ctxKey int

const ctxKeyDumpTraffic ctxKey = iota

// WithTraffic marks the context so bus adapters hex dump the raw reports they
// exchange with the debug probe.
func WithTraffic(parent context.Context, dump bool) context.Context {
	return context.WithValue(parent, ctxKeyDumpTraffic, dump)
}

// DumpTraffic reports whether probe traffic dumps were requested.
func DumpTraffic(ctx context.Context) bool {
	val := ctx.Value(ctxKeyDumpTraffic)
	if val == nil {
		return false
	}
	return val.(bool)
}
