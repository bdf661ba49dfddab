package auth

import (
	"crypto/rand"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.now = f.now.Add(d)
}

func testCodec(t *testing.T, clock *fakeClock) *Codec {
	key, err := NewProcessKey(rand.Reader)
	require.NoError(t, err)
	codec, err := NewCodec(Settings{Key: key, TTL: DefaultSessionTTL, Now: clock.Now})
	require.NoError(t, err)
	return codec
}

func requireInvalid(t *testing.T, err error) {
	t.Helper()
	var invalid SessionInvalid
	if !errors.As(err, &invalid) {
		t.Fatalf("Expecting SessionInvalid got %v", err)
	}
}

func TestMintResolve(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)}
	codec := testCodec(t, clock)
	id := Identity{ID: "9d1c5bd4", Username: "alice", Role: RoleAdmin}

	token, minted, err := codec.Mint(id)
	require.NoError(t, err)
	require.NotContains(t, token, minted.CSRF, "anti-forgery token travels inside the signed payload only")
	require.Equal(t, clock.now.Add(30*time.Minute), minted.ExpiresAt)

	resolved, refreshed, err := codec.Resolve(token)
	require.NoError(t, err)
	require.NotEmpty(t, refreshed)
	require.Equal(t, id, resolved.Identity)
	require.Equal(t, minted.CSRF, resolved.CSRF)
	require.Equal(t, minted.TokenID, resolved.TokenID)
}

func TestMintUsesFreshAntiForgeryTokens(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	codec := testCodec(t, clock)
	_, first, err := codec.Mint(Identity{ID: "a", Username: "alice"})
	require.NoError(t, err)
	_, second, err := codec.Mint(Identity{ID: "a", Username: "alice"})
	require.NoError(t, err)
	require.NotEqual(t, first.CSRF, second.CSRF)
	require.NotEqual(t, first.TokenID, second.TokenID)

	_, _, err = codec.Mint(Identity{})
	require.Error(t, err)
}

func TestSessionExpiresAfterInactivity(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)}
	codec := testCodec(t, clock)
	token, _, err := codec.Mint(Identity{ID: "a", Username: "alice"})
	require.NoError(t, err)

	clock.Advance(31 * time.Minute)
	_, _, err = codec.Resolve(token)
	requireInvalid(t, err)
}

func TestSessionSlidingExpiry(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)}
	codec := testCodec(t, clock)
	token, _, err := codec.Mint(Identity{ID: "a", Username: "alice"})
	require.NoError(t, err)

	// every access inside the window moves the deadline forward
	for i := 0; i < 4; i++ {
		clock.Advance(20 * time.Minute)
		var s Session
		s, token, err = codec.Resolve(token)
		require.NoError(t, err)
		require.Equal(t, clock.now.Add(30*time.Minute), s.ExpiresAt)
	}

	clock.Advance(30 * time.Minute)
	_, _, err = codec.Resolve(token)
	requireInvalid(t, err)
}

func TestTamperedTokenIsInvalid(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	codec := testCodec(t, clock)
	token, _, err := codec.Mint(Identity{ID: "a", Username: "alice"})
	require.NoError(t, err)

	for i := range token {
		if token[i] == '.' {
			continue
		}
		replacement := byte('A')
		if token[i] == 'A' {
			replacement = 'B'
		}
		tampered := token[:i] + string(replacement) + token[i+1:]
		_, _, err := codec.Resolve(tampered)
		if err == nil {
			t.Fatalf("Token altered at position %v should not resolve", i)
		}
		requireInvalid(t, err)
	}

	for _, broken := range []string{"", "abc", strings.Repeat(".", 2), token + ".extra", token[:len(token)-1]} {
		_, _, err := codec.Resolve(broken)
		requireInvalid(t, err)
	}
}

func TestRestartInvalidatesSessions(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	before := testCodec(t, clock)
	token, _, err := before.Mint(Identity{ID: "a", Username: "alice"})
	require.NoError(t, err)

	after := testCodec(t, clock)
	_, _, err = after.Resolve(token)
	requireInvalid(t, err)
}

func TestKeyIsNeverPrinted(t *testing.T) {
	key, err := NewProcessKey(rand.Reader)
	require.NoError(t, err)
	require.Equal(t, "[redacted]", key.String())
	key.Zero()
	require.Equal(t, Key{}, *key)

	_, err = NewCodec(Settings{})
	require.Error(t, err)
}
