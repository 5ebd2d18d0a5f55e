package auth

import (
	"context"
	"strings"
)

type ctxKey string

const ctxKeySub ctxKey = "sub"

func WithSubject(ctx context.Context, sub string) context.Context {
	return context.WithValue(ctx, ctxKeySub, sub)
}

func SubjectFromContext(ctx context.Context) string {
	if v := ctx.Value(ctxKeySub); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// Identity splits the caller into the user or guest session an attempt
// belongs to. Exactly one of the two is non-empty for an authenticated caller.
func Identity(ctx context.Context) (userID, sessionID string) {
	sub := SubjectFromContext(ctx)
	if sid, ok := strings.CutPrefix(sub, GuestPrefix); ok {
		return "", sid
	}
	return sub, ""
}
