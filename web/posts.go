package web

import (
	"bufio"
	"errors"
	"net/http"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/andrebq/quill/auth"
	"github.com/andrebq/quill/internal/logutil"
	"github.com/andrebq/quill/store"
	"github.com/julienschmidt/httprouter"
)

const (
	maxTitleLength   = 200
	maxContentLength = 10000
	maxLogLines      = 500
)

func (s *server) home(w http.ResponseWriter, r *http.Request) {
	posts, err := s.store.ListPosts(r.Context())
	if err != nil {
		s.internalError(w, r, err, "Unable to list posts")
		return
	}
	p := newPage(r)
	p.Posts = posts
	s.render(w, r, http.StatusOK, "home", p)
}

func (s *server) createPostForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "post_form", newPage(r))
}

func (s *server) createPost(w http.ResponseWriter, r *http.Request) {
	session, _ := auth.SessionFrom(r.Context())
	title, content, msg := postForm(r)
	if msg != "" {
		p := newPage(r)
		p.Error = msg
		p.Post = store.Post{Title: title, Content: content}
		s.render(w, r, http.StatusBadRequest, "post_form", p)
		return
	}
	post, err := s.store.CreatePost(r.Context(), session.ID, title, content)
	if err != nil {
		s.internalError(w, r, err, "Unable to create post")
		return
	}
	logger := logutil.GetOrDefault(r.Context())
	logger.Info().Int64("post_id", post.ID).Str("username", session.Username).Msg("Post created")
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *server) editPostForm(w http.ResponseWriter, r *http.Request) {
	post, ok := s.ownedPost(w, r, "you can't edit this post")
	if !ok {
		return
	}
	p := newPage(r)
	p.Post = post
	s.render(w, r, http.StatusOK, "post_form", p)
}

func (s *server) editPost(w http.ResponseWriter, r *http.Request) {
	post, ok := s.ownedPost(w, r, "you can't edit this post")
	if !ok {
		return
	}
	title, content, msg := postForm(r)
	if msg != "" {
		p := newPage(r)
		p.Error = msg
		p.Post = store.Post{ID: post.ID, Title: title, Content: content}
		s.render(w, r, http.StatusBadRequest, "post_form", p)
		return
	}
	err := s.store.UpdatePost(r.Context(), post.ID, title, content)
	if err != nil {
		s.internalError(w, r, err, "Unable to update post")
		return
	}
	session, _ := auth.SessionFrom(r.Context())
	logger := logutil.GetOrDefault(r.Context())
	logger.Info().Int64("post_id", post.ID).Str("username", session.Username).Msg("Post edited")
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *server) deletePost(w http.ResponseWriter, r *http.Request) {
	post, ok := s.ownedPost(w, r, "you can't delete this post")
	if !ok {
		return
	}
	err := s.store.DeletePost(r.Context(), post.ID)
	if err != nil && !errors.As(err, new(store.PostNotFound)) {
		s.internalError(w, r, err, "Unable to delete post")
		return
	}
	session, _ := auth.SessionFrom(r.Context())
	logger := logutil.GetOrDefault(r.Context())
	logger.Info().Int64("post_id", post.ID).Str("username", session.Username).Msg("Post deleted")
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *server) admin(w http.ResponseWriter, r *http.Request) {
	posts, err := s.store.ListPosts(r.Context())
	if err != nil {
		s.internalError(w, r, err, "Unable to list posts")
		return
	}
	p := newPage(r)
	p.Posts = posts
	s.render(w, r, http.StatusOK, "admin", p)
}

func (s *server) adminLogs(w http.ResponseWriter, r *http.Request) {
	p := newPage(r)
	if s.auditLog != "" {
		lines, err := tail(s.auditLog, maxLogLines)
		if err != nil {
			logger := logutil.GetOrDefault(r.Context())
			logger.Error().Err(err).Msg("Unable to read audit log")
			p.Error = "audit log is not available"
		}
		// newest first
		for i := len(lines) - 1; i >= 0; i-- {
			p.Logs = append(p.Logs, lines[i])
		}
	}
	s.render(w, r, http.StatusOK, "admin_logs", p)
}

// ownedPost loads the post named in the url and checks the current session
// may change it: owners and administrators (by session snapshot) only.
// Missing posts get the same answer as forbidden ones.
func (s *server) ownedPost(w http.ResponseWriter, r *http.Request, denied string) (store.Post, bool) {
	session, _ := auth.SessionFrom(r.Context())
	id, err := strconv.ParseInt(httprouter.ParamsFromContext(r.Context()).ByName("id"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return store.Post{}, false
	}
	post, err := s.store.GetPost(r.Context(), id)
	var notFound store.PostNotFound
	if errors.As(err, &notFound) {
		http.Error(w, denied, http.StatusForbidden)
		return store.Post{}, false
	} else if err != nil {
		s.internalError(w, r, err, "Unable to load post")
		return store.Post{}, false
	}
	if post.UserID != session.ID && !session.IsAdmin() {
		http.Error(w, denied, http.StatusForbidden)
		return store.Post{}, false
	}
	return post, true
}

func postForm(r *http.Request) (title, content, msg string) {
	title = strings.TrimSpace(r.PostFormValue("title"))
	content = strings.TrimSpace(r.PostFormValue("content"))
	switch {
	case title == "" || utf8.RuneCountInString(title) > maxTitleLength:
		msg = "title must have between 1 and 200 characters"
	case content == "" || utf8.RuneCountInString(content) > maxContentLength:
		msg = "content must have between 1 and 10000 characters"
	}
	return
}

func tail(file string, n int) ([]string, error) {
	fd, err := os.Open(file)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	defer fd.Close()
	var lines []string
	sc := bufio.NewScanner(fd)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		lines = append(lines, sc.Text())
		if len(lines) > n {
			lines = lines[1:]
		}
	}
	return lines, sc.Err()
}
