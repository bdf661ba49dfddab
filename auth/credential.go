package auth

import (
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"io"

	"golang.org/x/crypto/argon2"
)

type (
	PlainText []byte

	// CredentialRecord is the opaque salt||key encoding that is safe to
	// persist.
	CredentialRecord string
)

const (
	saltSize = 16
	keySize  = 32

	// 7 passes over 10 MB should be a good replacement
	// for 1 pass over 64 MB of ram.
	argonTime    = 7
	argonMemory  = 10 * 1024
	argonThreads = 2
)

func (p PlainText) Zero() {
	for i := range p {
		p[i] = 0
	}
}

func (p PlainText) String() string {
	return "[redacted]"
}

// HashCredential derives a credential record from secret using a fresh
// salt read from rnd.
func HashCredential(rnd io.Reader, secret PlainText) (CredentialRecord, error) {
	var buf [saltSize + keySize]byte
	_, err := io.ReadFull(rnd, buf[:saltSize])
	if err != nil {
		return "", fmt.Errorf("auth: unable to generate salt, cause %w", err)
	}
	copy(buf[saltSize:], deriveKey(secret, buf[:saltSize]))
	return CredentialRecord(base64.StdEncoding.EncodeToString(buf[:])), nil
}

// VerifyCredential returns true if candidate derives the same key stored in
// record. Malformed records never verify.
func VerifyCredential(record CredentialRecord, candidate PlainText) bool {
	raw, err := base64.StdEncoding.DecodeString(string(record))
	if err != nil || len(raw) != saltSize+keySize {
		return false
	}
	derived := deriveKey(candidate, raw[:saltSize])
	return subtle.ConstantTimeCompare(derived, raw[saltSize:]) == 1
}

func deriveKey(secret PlainText, salt []byte) []byte {
	return argon2.IDKey(secret, salt, argonTime, argonMemory, argonThreads, keySize)
}
