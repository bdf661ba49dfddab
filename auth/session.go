package auth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type (
	Role byte

	Identity struct {
		ID       string
		Username string
		Role     Role
	}

	// Session is what a valid token resolves to. Role is the snapshot taken
	// at login and may be stale.
	Session struct {
		Identity
		TokenID   string
		CSRF      string
		IssuedAt  time.Time
		ExpiresAt time.Time
	}

	// Settings is created once at process start and shared read-only by
	// every request.
	Settings struct {
		Key *Key
		// TTL is the inactivity window, every successful resolve pushes the
		// expiry TTL into the future.
		TTL  time.Duration
		Now  func() time.Time
		Rand io.Reader
	}

	Codec struct {
		key    *Key
		ttl    time.Duration
		now    func() time.Time
		rnd    io.Reader
		parser *jwt.Parser
	}

	sessionClaims struct {
		jwt.RegisteredClaims
		Username string `json:"usr"`
		Admin    bool   `json:"adm,omitempty"`
		CSRF     string `json:"csrf"`
	}
)

const (
	RoleOrdinary Role = iota
	RoleAdmin
)

const (
	DefaultSessionTTL = 30 * time.Minute

	tokenIssuer = "quill"
	csrfSize    = 32
)

var (
	errMissingKey = errors.New("auth: settings without a process key")
)

func (r Role) String() string {
	if r == RoleAdmin {
		return "admin"
	}
	return "ordinary"
}

func RoleOf(admin bool) Role {
	if admin {
		return RoleAdmin
	}
	return RoleOrdinary
}

func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

func NewCodec(s Settings) (*Codec, error) {
	if s.Key == nil {
		return nil, errMissingKey
	}
	c := &Codec{
		key: s.Key,
		ttl: s.TTL,
		now: s.Now,
		rnd: s.Rand,
	}
	if c.ttl <= 0 {
		c.ttl = DefaultSessionTTL
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.rnd == nil {
		c.rnd = rand.Reader
	}
	c.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithStrictDecoding(),
		jwt.WithTimeFunc(func() time.Time { return c.now() }),
	)
	return c, nil
}

func (c *Codec) TTL() time.Duration {
	return c.ttl
}

// Mint starts a new session for id, with a new token id and a new
// anti-forgery token.
func (c *Codec) Mint(id Identity) (string, Session, error) {
	if id.ID == "" {
		return "", Session{}, errors.New("auth: cannot mint a session without a subject")
	}
	var buf [csrfSize]byte
	_, err := io.ReadFull(c.rnd, buf[:])
	if err != nil {
		return "", Session{}, fmt.Errorf("auth: unable to generate anti-forgery token, cause %w", err)
	}
	now := c.now()
	s := Session{
		Identity: id,
		TokenID:  uuid.NewString(),
		CSRF:     base64.RawURLEncoding.EncodeToString(buf[:]),
		IssuedAt: now,
	}
	token, s, err := c.sign(s, now)
	if err != nil {
		return "", Session{}, err
	}
	return token, s, nil
}

// Resolve validates token and returns the session it carries together with
// a re-signed token whose expiry was pushed forward. Any failure is
// reported as SessionInvalid.
func (c *Codec) Resolve(token string) (Session, string, error) {
	if token == "" {
		return Session{}, "", SessionInvalid{}
	}
	var claims sessionClaims
	_, err := c.parser.ParseWithClaims(token, &claims, func(*jwt.Token) (interface{}, error) {
		return c.key[:], nil
	})
	if err != nil {
		return Session{}, "", SessionInvalid{cause: err}
	}
	if claims.Subject == "" || claims.CSRF == "" || claims.IssuedAt == nil {
		return Session{}, "", SessionInvalid{cause: errors.New("incomplete claims")}
	}
	s := Session{
		Identity: Identity{
			ID:       claims.Subject,
			Username: claims.Username,
			Role:     RoleOf(claims.Admin),
		},
		TokenID:  claims.ID,
		CSRF:     claims.CSRF,
		IssuedAt: claims.IssuedAt.Time,
	}
	refreshed, s, err := c.sign(s, c.now())
	if err != nil {
		return Session{}, "", SessionInvalid{cause: err}
	}
	return s, refreshed, nil
}

func (c *Codec) sign(s Session, now time.Time) (string, Session, error) {
	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   s.ID,
			ID:        s.TokenID,
			IssuedAt:  jwt.NewNumericDate(s.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
		Username: s.Username,
		Admin:    s.IsAdmin(),
		CSRF:     s.CSRF,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.key[:])
	if err != nil {
		return "", Session{}, fmt.Errorf("auth: unable to sign session, cause %w", err)
	}
	s.IssuedAt = claims.IssuedAt.Time
	s.ExpiresAt = claims.ExpiresAt.Time
	return token, s, nil
}
