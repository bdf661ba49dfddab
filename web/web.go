package web

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"io"
	"net/http"

	"github.com/andrebq/quill/auth"
	authapi "github.com/andrebq/quill/auth/api"
	"github.com/andrebq/quill/internal/logutil"
	"github.com/andrebq/quill/store"
	"github.com/cespare/xxhash/v2"
	"github.com/julienschmidt/httprouter"
)

type (
	Options struct {
		Store *store.Store
		Realm *authapi.Realm
		// Rand feeds the credential salts
		Rand io.Reader
		// AuditLog is the file shown on /admin/logs, empty disables the page
		// content.
		AuditLog string
	}

	server struct {
		store    *store.Store
		realm    *authapi.Realm
		rnd      io.Reader
		auditLog string
		pages    *template.Template
	}

	page struct {
		Session  *auth.Session
		CSRF     string
		Error    string
		Username string
		Query    string
		Posts    []store.Post
		Post     store.Post
		Logs     []string
	}
)

//go:embed templates/*.html
var templates embed.FS

func AsHandler(ctx context.Context, opts Options) (http.Handler, error) {
	pages, err := template.ParseFS(templates, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("unable to parse page templates, cause %w", err)
	}
	s := &server{
		store:    opts.Store,
		realm:    opts.Realm,
		rnd:      opts.Rand,
		auditLog: opts.AuditLog,
		pages:    pages,
	}
	realm := opts.Realm

	router := httprouter.New()
	router.Handler("GET", "/register", realm.Public(http.HandlerFunc(s.registerForm)))
	router.Handler("POST", "/register", realm.Public(http.HandlerFunc(s.register)))
	router.Handler("GET", "/login", realm.Public(http.HandlerFunc(s.loginForm)))
	router.Handler("POST", "/login", realm.Public(http.HandlerFunc(s.login)))
	router.Handler("GET", "/search", realm.Public(http.HandlerFunc(s.search)))

	router.Handler("POST", "/logout", realm.Protect(http.HandlerFunc(s.logout)))
	router.Handler("GET", "/", realm.Protect(http.HandlerFunc(s.home)))
	router.Handler("GET", "/api/me", realm.Protect(http.HandlerFunc(s.me)))
	router.Handler("GET", "/create_post", realm.Protect(http.HandlerFunc(s.createPostForm)))
	router.Handler("POST", "/create_post", realm.Protect(http.HandlerFunc(s.createPost)))
	router.Handler("GET", "/edit_post/:id", realm.Protect(http.HandlerFunc(s.editPostForm)))
	router.Handler("POST", "/edit_post/:id", realm.Protect(http.HandlerFunc(s.editPost)))
	router.Handler("POST", "/delete_post/:id", realm.Protect(http.HandlerFunc(s.deletePost)))

	router.Handler("GET", "/admin", realm.ProtectAdmin(http.HandlerFunc(s.admin)))
	router.Handler("GET", "/admin/logs", realm.ProtectAdmin(http.HandlerFunc(s.adminLogs)))
	return router, nil
}

func newPage(r *http.Request) page {
	var p page
	if session, ok := auth.SessionFrom(r.Context()); ok {
		p.Session = &session
		p.CSRF = session.CSRF
	}
	return p
}

// render executes the named template into memory, so a template error
// never leaves a half written page, and tags the result with an ETag.
func (s *server) render(w http.ResponseWriter, r *http.Request, status int, name string, p page) {
	var buf bytes.Buffer
	err := s.pages.ExecuteTemplate(&buf, name, p)
	if err != nil {
		logger := logutil.GetOrDefault(r.Context())
		logger.Error().Err(err).Str("template", name).Msg("Unable to render page")
		http.Error(w, "unable to render page", http.StatusInternalServerError)
		return
	}
	etag := fmt.Sprintf(`"%016x"`, xxhash.Sum64(buf.Bytes()))
	w.Header().Set("Cache-Control", "private, no-cache")
	w.Header().Set("ETag", etag)
	if status == http.StatusOK && r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}

func (s *server) internalError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	logger := logutil.GetOrDefault(r.Context())
	logger.Error().Err(err).Str("path", r.URL.Path).Msg(msg)
	http.Error(w, "internal server error", http.StatusInternalServerError)
}
