package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/allegro/bigcache/v3"
)

type (
	Post struct {
		ID        int64     `json:"id"`
		UserID    string    `json:"user_id"`
		Author    string    `json:"author"`
		Title     string    `json:"title"`
		Content   string    `json:"content"`
		CreatedAt time.Time `json:"created_at"`
	}
)

const selectPosts = `select p.post_id, p.user_id, coalesce(u.username, ''), p.title, p.content, p.created_at
	from posts p left join users u on u.user_id = p.user_id`

func (s *Store) CreatePost(ctx context.Context, userID, title, content string) (Post, error) {
	p := Post{
		UserID:    userID,
		Title:     title,
		Content:   content,
		CreatedAt: s.now().UTC().Truncate(time.Second),
	}
	err := s.db.QueryRowContext(ctx, `insert into posts(user_id, title, content, created_at) values (?, ?, ?, ?) returning post_id`,
		userID, title, content, p.CreatedAt.Unix()).Scan(&p.ID)
	if err != nil {
		return Post{}, fmt.Errorf("unable to store post, cause %w", err)
	}
	return p, nil
}

// GetPost reads through the post cache, entries are dropped on every
// update or delete so a cached post is never older than the database.
func (s *Store) GetPost(ctx context.Context, id int64) (Post, error) {
	if buf, err := s.posts.Get(postKey(id)); err == nil {
		var p Post
		if json.Unmarshal(buf, &p) == nil {
			return p, nil
		}
	} else if !errors.Is(err, bigcache.ErrEntryNotFound) {
		return Post{}, fmt.Errorf("unable to read post %v from cache, cause %w", id, err)
	}
	var p Post
	var created int64
	err := s.db.QueryRowContext(ctx, selectPosts+` where p.post_id = ?`, id).
		Scan(&p.ID, &p.UserID, &p.Author, &p.Title, &p.Content, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return Post{}, PostNotFound{ID: id}
	} else if err != nil {
		return Post{}, fmt.Errorf("unable to load post %v, cause %w", id, err)
	}
	p.CreatedAt = time.Unix(created, 0).UTC()
	if buf, err := json.Marshal(p); err == nil {
		s.posts.Set(postKey(id), buf)
	}
	return p, nil
}

func (s *Store) UpdatePost(ctx context.Context, id int64, title, content string) error {
	res, err := s.db.ExecContext(ctx, `update posts set title = ?, content = ? where post_id = ?`, title, content, id)
	s.posts.Delete(postKey(id))
	return checkAffected(res, err, id)
}

func (s *Store) DeletePost(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `delete from posts where post_id = ?`, id)
	s.posts.Delete(postKey(id))
	return checkAffected(res, err, id)
}

// ListPosts returns every post, newest first.
func (s *Store) ListPosts(ctx context.Context) ([]Post, error) {
	rows, err := s.db.QueryContext(ctx, selectPosts+` order by p.post_id desc`)
	if err != nil {
		return nil, fmt.Errorf("unable to list posts, cause %w", err)
	}
	defer rows.Close()
	var out []Post
	for rows.Next() {
		var p Post
		var created int64
		err = rows.Scan(&p.ID, &p.UserID, &p.Author, &p.Title, &p.Content, &created)
		if err != nil {
			return nil, fmt.Errorf("unable to scan post, cause %w", err)
		}
		p.CreatedAt = time.Unix(created, 0).UTC()
		out = append(out, p)
	}
	return out, rows.Err()
}

func checkAffected(res sql.Result, err error, id int64) error {
	if err != nil {
		return fmt.Errorf("unable to change post %v, cause %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("unable to change post %v, cause %w", id, err)
	} else if n == 0 {
		return PostNotFound{ID: id}
	}
	return nil
}

func postKey(id int64) string {
	return "post/" + strconv.FormatInt(id, 10)
}
