package models

import "context"

type attributionContextKey struct{}

// Attribution carries identity-provider data about the paying user so ledger
// backends can store it alongside a record without widening the LedgerStore
// interface.
type Attribution struct {
	DisplayName string `json:"display_name,omitempty"`
	Email       string `json:"email,omitempty"`
	PhotoURL    string `json:"photo_url,omitempty"`
}

// WithAttribution attaches user attribution to a context.
func WithAttribution(ctx context.Context, a *Attribution) context.Context {
	return context.WithValue(ctx, attributionContextKey{}, a)
}

// GetAttribution retrieves user attribution from context, or nil if absent.
func GetAttribution(ctx context.Context) *Attribution {
	a, _ := ctx.Value(attributionContextKey{}).(*Attribution)
	return a
}
