package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/andrebq/quill/auth"
	authapi "github.com/andrebq/quill/auth/api"
	"github.com/andrebq/quill/internal/logutil"
)

func (s *server) registerForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "register", newPage(r))
}

func (s *server) register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	username := r.PostFormValue("username")
	passwd := auth.PlainText(r.PostFormValue("password"))
	defer passwd.Zero()

	role := auth.RoleOrdinary
	if r.PostFormValue("admin") == "on" {
		// only a current administrator may create another one
		if session, ok := auth.SessionFrom(ctx); ok && auth.CurrentRole(ctx, s.store, session.ID) == auth.RoleAdmin {
			role = auth.RoleAdmin
		}
	}

	_, err := auth.Register(ctx, s.store, s.rnd, username, passwd, role)
	if err != nil {
		p := newPage(r)
		p.Username = username
		p.Error = err.Error()
		var invalid auth.ValidationError
		var dup auth.DuplicateIdentity
		switch {
		case errors.As(err, &invalid):
			s.render(w, r, http.StatusBadRequest, "register", p)
		case errors.As(err, &dup):
			s.render(w, r, http.StatusConflict, "register", p)
		default:
			s.internalError(w, r, err, "Unable to register user")
		}
		return
	}
	http.Redirect(w, r, authapi.DefaultLoginPath, http.StatusSeeOther)
}

func (s *server) loginForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "login", newPage(r))
}

func (s *server) login(w http.ResponseWriter, r *http.Request) {
	username := r.PostFormValue("username")
	passwd := auth.PlainText(r.PostFormValue("password"))
	defer passwd.Zero()

	id, err := auth.Login(r.Context(), s.store, username, passwd)
	if err != nil {
		p := newPage(r)
		p.Username = username
		p.Error = auth.CredentialMismatch{}.Error()
		s.render(w, r, http.StatusUnauthorized, "login", p)
		return
	}
	_, err = s.realm.StartSession(w, id)
	if err != nil {
		s.internalError(w, r, err, "Unable to start session")
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *server) logout(w http.ResponseWriter, r *http.Request) {
	session, _ := auth.SessionFrom(r.Context())
	s.realm.EndSession(w)
	logger := logutil.Audit(r.Context())
	logger.Info().
		Str("event", auth.EventLogout).
		Str("user_id", session.ID).
		Str("username", session.Username).
		Msg("User logged out")
	http.Redirect(w, r, authapi.DefaultLoginPath, http.StatusSeeOther)
}

func (s *server) search(w http.ResponseWriter, r *http.Request) {
	p := newPage(r)
	p.Query = r.URL.Query().Get("q")
	s.render(w, r, http.StatusOK, "search", p)
}

func (s *server) me(w http.ResponseWriter, r *http.Request) {
	session, _ := auth.SessionFrom(r.Context())
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	json.NewEncoder(w).Encode(struct {
		ID        string `json:"id"`
		Username  string `json:"username"`
		Admin     bool   `json:"admin"`
		ExpiresAt string `json:"expires_at"`
	}{
		ID:        session.ID,
		Username:  session.Username,
		Admin:     session.IsAdmin(),
		ExpiresAt: session.ExpiresAt.UTC().Format("2006-01-02T15:04:05Z"),
	})
}
