package auth

import (
	"fmt"
	"io"
)

type (
	// Key is the process secret used to sign sessions. It is created once
	// when the process starts and must never be persisted or logged.
	Key [32]byte
)

// NewProcessKey reads a fresh key from rnd (usually crypto/rand.Reader).
func NewProcessKey(rnd io.Reader) (*Key, error) {
	var k Key
	_, err := io.ReadFull(rnd, k[:])
	if err != nil {
		return nil, fmt.Errorf("auth: unable to generate process key, cause %w", err)
	}
	return &k, nil
}

func (k *Key) Zero() {
	for i := range k {
		k[i] = 0
	}
}

func (k *Key) String() string {
	return "[redacted]"
}

func (k *Key) GoString() string {
	return "auth.Key{[redacted]}"
}
