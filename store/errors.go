package store

import "fmt"

type (
	DuplicateUsername struct {
		Username string
	}

	UserNotFound struct {
		Key string
	}

	PostNotFound struct {
		ID int64
	}
)

func (d DuplicateUsername) Error() string {
	return fmt.Sprintf("username %v already exists", d.Username)
}

func (u UserNotFound) Error() string {
	return fmt.Sprintf("user %v not found", u.Key)
}

func (p PostNotFound) Error() string {
	return fmt.Sprintf("post %v not found", p.ID)
}
