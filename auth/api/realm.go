package api

import (
	"crypto/subtle"
	"net/http"

	"github.com/andrebq/quill/auth"
	"github.com/andrebq/quill/internal/logutil"
)

type (
	// Realm is the authorization gate and anti-forgery guard of the web
	// application. It moves sessions between the client cookie and the
	// request context.
	Realm struct {
		codec          *auth.Codec
		dir            auth.Directory
		cookieName     string
		loginPath      string
		insecureCookie bool
	}
)

const (
	DefaultCookieName = "quill_session"
	DefaultLoginPath  = "/login"

	CSRFField  = "csrf_token"
	CSRFHeader = "X-CSRF-Token"
)

func NewRealm(codec *auth.Codec, dir auth.Directory, allowHTTPCookie bool) *Realm {
	return &Realm{
		codec:          codec,
		dir:            dir,
		cookieName:     DefaultCookieName,
		loginPath:      DefaultLoginPath,
		insecureCookie: allowHTTPCookie,
	}
}

func (s *Realm) CookieName() string {
	return s.cookieName
}

// Public serves handler to everyone. A session is still established when
// the client has one, and then state changing requests must carry its
// anti-forgery token.
func (s *Realm) Public(handler http.Handler) http.Handler {
	return Chain(handler, s.Establish, s.CSRF)
}

// Protect requires an authenticated session.
func (s *Realm) Protect(sensitive http.Handler) http.Handler {
	return Chain(sensitive, s.Establish, s.Authenticated, s.CSRF)
}

// ProtectAdmin requires an authenticated session whose user is currently
// an administrator.
func (s *Realm) ProtectAdmin(sensitive http.Handler) http.Handler {
	return Chain(sensitive, s.Establish, s.Admin, s.CSRF)
}

// Establish resolves the session cookie. Invalid or expired tokens are
// treated as anonymous and cleared, valid ones are refreshed.
func (s *Realm) Establish(r *http.Request) (*http.Request, Decision) {
	c, err := r.Cookie(s.cookieName)
	if err != nil {
		return r, allow()
	}
	session, refreshed, err := s.codec.Resolve(c.Value)
	if err != nil {
		logger := logutil.GetOrDefault(r.Context())
		logger.Debug().Err(err).Msg("Discarding invalid session")
		return r, allow(s.expiredCookie())
	}
	return r.WithContext(auth.WithSession(r.Context(), session)), allow(s.sessionCookie(refreshed))
}

func (s *Realm) Authenticated(r *http.Request) (*http.Request, Decision) {
	if _, ok := auth.SessionFrom(r.Context()); !ok {
		return r, redirectTo(s.loginPath)
	}
	return r, allow()
}

// Admin checks the role stored in the directory, never the snapshot kept
// in the session.
func (s *Realm) Admin(r *http.Request) (*http.Request, Decision) {
	session, ok := auth.SessionFrom(r.Context())
	if !ok {
		return r, redirectTo(s.loginPath)
	}
	if auth.CurrentRole(r.Context(), s.dir, session.ID) != auth.RoleAdmin {
		logger := logutil.Audit(r.Context())
		logger.Warn().
			Str("event", auth.EventAccessDenied).
			Str("user_id", session.ID).
			Str("username", session.Username).
			Str("path", r.URL.Path).
			Msg("Access denied")
		return r, deny(http.StatusForbidden, auth.AccessDenied{}.Error())
	}
	return r, allow()
}

// CSRF rejects state changing requests from a session that do not carry
// the session anti-forgery token.
func (s *Realm) CSRF(r *http.Request) (*http.Request, Decision) {
	if isSafeMethod(r.Method) {
		return r, allow()
	}
	session, ok := auth.SessionFrom(r.Context())
	if !ok {
		return r, allow()
	}
	received := r.Header.Get(CSRFHeader)
	if received == "" {
		received = r.PostFormValue(CSRFField)
	}
	if subtle.ConstantTimeCompare([]byte(session.CSRF), []byte(received)) == 1 {
		return r, allow()
	}
	reason := "token mismatch"
	if received == "" {
		reason = "token missing"
	}
	logger := logutil.Audit(r.Context())
	logger.Warn().
		Str("event", auth.EventCSRFRejected).
		Str("user_id", session.ID).
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Str("reason", reason).
		Msg("CSRF error")
	return r, deny(http.StatusBadRequest, auth.ForgeryRejected{Reason: reason}.Error())
}

// StartSession mints a new session for id and hands it to the client.
// Any previous token is replaced.
func (s *Realm) StartSession(w http.ResponseWriter, id auth.Identity) (auth.Session, error) {
	token, session, err := s.codec.Mint(id)
	if err != nil {
		return auth.Session{}, err
	}
	http.SetCookie(w, s.sessionCookie(token))
	return session, nil
}

// EndSession asks the client to forget its token.
func (s *Realm) EndSession(w http.ResponseWriter) {
	http.SetCookie(w, s.expiredCookie())
}

func (s *Realm) sessionCookie(token string) *http.Cookie {
	return &http.Cookie{
		Name:     s.cookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   !s.insecureCookie,
		SameSite: http.SameSiteLaxMode,
	}
}

func (s *Realm) expiredCookie() *http.Cookie {
	c := s.sessionCookie("")
	c.MaxAge = -1
	return c
}

func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return true
	default:
		return false
	}
}
