package auth

import "context"

type (
	key byte
)

var (
	sessionKey = key(1)
)

// WithSession returns a copy of ctx carrying s.
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionKey, s)
}

// SessionFrom returns the session established for the current request,
// ok is false for anonymous requests.
func SessionFrom(ctx context.Context) (s Session, ok bool) {
	s, ok = ctx.Value(sessionKey).(Session)
	return
}
