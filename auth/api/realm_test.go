package api

import (
	"bytes"
	"context"
	"crypto/rand"
	"net/http"
	"sync/atomic"
	"testing"

	"github.com/andrebq/quill/auth"
	"github.com/andrebq/quill/internal/logutil"
	"github.com/andrebq/quill/internal/testutil"
	"github.com/andrebq/quill/store"
	"github.com/rs/zerolog"
	"github.com/steinfletcher/apitest"
	"github.com/stretchr/testify/require"
)

type (
	fixture struct {
		realm   *Realm
		codec   *auth.Codec
		st      *store.Store
		alice   auth.Identity
		root    auth.Identity
		audit   *bytes.Buffer
		count   *uint32
		handler http.Handler
	}
)

func newFixture(t *testing.T) (*fixture, func()) {
	var audit bytes.Buffer
	ctx := logutil.WithAudit(context.Background(), zerolog.New(&audit))
	st, cleanup := testutil.AcquireStore(ctx, t, "realm")
	key, err := auth.NewProcessKey(rand.Reader)
	require.NoError(t, err)
	codec, err := auth.NewCodec(auth.Settings{Key: key})
	require.NoError(t, err)

	alice, err := auth.Register(ctx, st, rand.Reader, "alice", auth.PlainText("Password1!"), auth.RoleOrdinary)
	require.NoError(t, err)
	root, err := auth.Register(ctx, st, rand.Reader, "root", auth.PlainText("Password1!"), auth.RoleAdmin)
	require.NoError(t, err)

	var count uint32
	f := &fixture{
		realm: NewRealm(codec, st, true),
		codec: codec,
		st:    st,
		alice: auth.Identity{ID: alice.ID, Username: alice.Username, Role: auth.RoleOrdinary},
		root:  auth.Identity{ID: root.ID, Username: root.Username, Role: auth.RoleAdmin},
		audit: &audit,
		count: &count,
	}
	f.handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddUint32(&count, 1)
		if _, ok := auth.SessionFrom(r.Context()); !ok && r.URL.Path != "/public" {
			http.Error(w, "session missing from context", http.StatusInternalServerError)
			return
		}
		http.Error(w, "OK", http.StatusOK)
	})
	return f, cleanup
}

type minted struct {
	Token string
	CSRF  string
}

func (f *fixture) mint(t *testing.T, id auth.Identity) minted {
	token, s, err := f.codec.Mint(id)
	require.NoError(t, err)
	return minted{Token: token, CSRF: s.CSRF}
}

func tamper(token string) string {
	i := len(token) - 10
	replacement := byte('A')
	if token[i] == 'A' {
		replacement = 'B'
	}
	return token[:i] + string(replacement) + token[i+1:]
}

// withAudit makes the fixture audit buffer reachable from request contexts
func (f *fixture) withAudit(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := logutil.WithAudit(r.Context(), zerolog.New(f.audit))
		h.ServeHTTP(w, r.WithContext(ctx))
	})
}

func TestProtect(t *testing.T) {
	f, cleanup := newFixture(t)
	defer cleanup()
	protected := f.realm.Protect(f.handler)

	apitest.Handler(protected).Get("/").Expect(t).
		Status(http.StatusSeeOther).
		Header("Location", DefaultLoginPath).
		End()

	s := f.mint(t, f.alice)
	apitest.Handler(protected).Get("/").Cookie(DefaultCookieName, s.Token).Expect(t).
		Status(http.StatusOK).
		CookiePresent(DefaultCookieName).
		End()

	tampered := tamper(s.Token)
	res := apitest.Handler(protected).Get("/").Cookie(DefaultCookieName, tampered).Expect(t).
		Status(http.StatusSeeOther).
		Header("Location", DefaultLoginPath).
		End()
	cookies := res.Response.Cookies()
	require.Len(t, cookies, 1)
	require.Equal(t, -1, cookies[0].MaxAge, "invalid sessions must be cleared")

	if atomic.LoadUint32(f.count) != 1 {
		t.Fatal("Protected endpoint should have been called only once")
	}
}

func TestSessionCookieAttributes(t *testing.T) {
	f, cleanup := newFixture(t)
	defer cleanup()
	secure := NewRealm(f.codec, f.st, false)

	res := apitest.Handler(secure.Protect(f.handler)).Get("/").Cookie(DefaultCookieName, f.mint(t, f.alice).Token).Expect(t).
		Status(http.StatusOK).
		End()
	cookies := res.Response.Cookies()
	require.Len(t, cookies, 1)
	require.True(t, cookies[0].HttpOnly)
	require.True(t, cookies[0].Secure)
	require.Equal(t, http.SameSiteLaxMode, cookies[0].SameSite)
	require.Equal(t, "/", cookies[0].Path)

	resolved, _, err := f.codec.Resolve(cookies[0].Value)
	require.NoError(t, err)
	require.Equal(t, f.alice, resolved.Identity)
}

func TestProtectAdmin(t *testing.T) {
	f, cleanup := newFixture(t)
	defer cleanup()
	admin := f.withAudit(f.realm.ProtectAdmin(f.handler))

	apitest.Handler(admin).Get("/admin").Expect(t).
		Status(http.StatusSeeOther).
		Header("Location", DefaultLoginPath).
		End()

	apitest.Handler(admin).Get("/admin").Cookie(DefaultCookieName, f.mint(t, f.alice).Token).Expect(t).
		Status(http.StatusForbidden).
		End()
	require.Contains(t, f.audit.String(), auth.EventAccessDenied)

	apitest.Handler(admin).Get("/admin").Cookie(DefaultCookieName, f.mint(t, f.root).Token).Expect(t).
		Status(http.StatusOK).
		End()

	// the session still says admin but the store does not
	stale := f.mint(t, f.root)
	require.NoError(t, f.st.SetAdmin(context.Background(), "root", false))
	apitest.Handler(admin).Get("/admin").Cookie(DefaultCookieName, stale.Token).Expect(t).
		Status(http.StatusForbidden).
		End()

	// a forged admin snapshot for an ordinary user is not enough either
	forged := f.mint(t, auth.Identity{ID: f.alice.ID, Username: "alice", Role: auth.RoleAdmin})
	apitest.Handler(admin).Get("/admin").Cookie(DefaultCookieName, forged.Token).Expect(t).
		Status(http.StatusForbidden).
		End()

	if atomic.LoadUint32(f.count) != 1 {
		t.Fatalf("Admin endpoint should have been called only once, got %v", *f.count)
	}
}

func TestCSRF(t *testing.T) {
	f, cleanup := newFixture(t)
	defer cleanup()
	protected := f.withAudit(f.realm.Protect(f.handler))
	s := f.mint(t, f.alice)

	apitest.Handler(protected).Post("/create_post").Cookie(DefaultCookieName, s.Token).
		FormData("title", "hello").
		Expect(t).
		Status(http.StatusBadRequest).
		End()
	apitest.Handler(protected).Post("/create_post").Cookie(DefaultCookieName, s.Token).
		FormData("title", "hello").
		FormData(CSRFField, "not-the-token").
		Expect(t).
		Status(http.StatusBadRequest).
		End()
	other := f.mint(t, f.alice)
	apitest.Handler(protected).Post("/create_post").Cookie(DefaultCookieName, s.Token).
		Header(CSRFHeader, other.CSRF).
		Expect(t).
		Status(http.StatusBadRequest).
		End()
	if atomic.LoadUint32(f.count) != 0 {
		t.Fatal("Forged requests must not reach the handler")
	}
	require.Contains(t, f.audit.String(), auth.EventCSRFRejected)

	apitest.Handler(protected).Post("/create_post").Cookie(DefaultCookieName, s.Token).
		FormData("title", "hello").
		FormData(CSRFField, s.CSRF).
		Expect(t).
		Status(http.StatusOK).
		End()
	apitest.Handler(protected).Post("/create_post").Cookie(DefaultCookieName, s.Token).
		Header(CSRFHeader, s.CSRF).
		Expect(t).
		Status(http.StatusOK).
		End()
	// safe methods are never checked
	apitest.Handler(protected).Get("/create_post").Cookie(DefaultCookieName, s.Token).
		Expect(t).
		Status(http.StatusOK).
		End()
	if atomic.LoadUint32(f.count) != 3 {
		t.Fatalf("Handler should have been called 3 times, got %v", *f.count)
	}
}

func TestPublic(t *testing.T) {
	f, cleanup := newFixture(t)
	defer cleanup()
	public := f.realm.Public(f.handler)

	apitest.Handler(public).Post("/public").FormData("username", "eve").Expect(t).
		Status(http.StatusOK).
		End()

	s := f.mint(t, f.root)
	apitest.Handler(public).Post("/public").Cookie(DefaultCookieName, s.Token).
		FormData("admin", "on").
		Expect(t).
		Status(http.StatusBadRequest).
		End()
	apitest.Handler(public).Post("/public").Cookie(DefaultCookieName, s.Token).
		FormData("admin", "on").
		FormData(CSRFField, s.CSRF).
		Expect(t).
		Status(http.StatusOK).
		End()
}

func TestChainFailsClosed(t *testing.T) {
	var called bool
	h := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}), func(r *http.Request) (*http.Request, Decision) {
		return r, Decision{Verdict: Verdict(42)}
	})
	apitest.Handler(h).Get("/").Expect(t).Status(http.StatusForbidden).End()
	require.False(t, called)
}

func TestEndSession(t *testing.T) {
	f, cleanup := newFixture(t)
	defer cleanup()
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.realm.EndSession(w)
		w.WriteHeader(http.StatusNoContent)
	})
	res := apitest.Handler(h).Post("/logout").Expect(t).Status(http.StatusNoContent).End()
	cookies := res.Response.Cookies()
	require.Len(t, cookies, 1)
	require.Equal(t, DefaultCookieName, cookies[0].Name)
	require.Empty(t, cookies[0].Value)
	require.Equal(t, -1, cookies[0].MaxAge)
}
