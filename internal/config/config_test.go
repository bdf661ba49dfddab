package config

import (
	"bytes"
	"crypto/rand"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/andrebq/quill/auth"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	c := Default()
	require.NoError(t, c.Validate())
	require.Equal(t, 30*time.Minute, c.SessionTTL)
	require.Equal(t, auth.AdminPasswordEnvVar, c.AdminPasswordEnvVar)

	p := c.HeaderPolicy()
	require.Equal(t, "SAMEORIGIN", p.FrameOptions)
	require.Equal(t, "nosniff", p.ContentTypeOptions)

	c.FrameOptions = "DENY"
	require.Equal(t, "DENY", c.HeaderPolicy().FrameOptions)
}

func TestValidate(t *testing.T) {
	c := Default()
	c.SessionTTL = 0
	require.ErrorIs(t, c.Validate(), errInvalidTTL)

	c = Default()
	c.Bind = ""
	require.ErrorIs(t, c.Validate(), errMissingBind)

	c = Default()
	c.Database = ""
	require.ErrorIs(t, c.Validate(), errMissingStore)
}

func TestSessionSettings(t *testing.T) {
	c := Default()
	first, err := c.SessionSettings(rand.Reader)
	require.NoError(t, err)
	second, err := c.SessionSettings(rand.Reader)
	require.NoError(t, err)
	require.NotEqual(t, *first.Key, *second.Key, "every process start must use a new key")
	require.Equal(t, c.SessionTTL, first.TTL)

	_, err = c.SessionSettings(bytes.NewReader(nil))
	require.Error(t, err)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(file, []byte("QUILL_TEST_DOTENV=from-file\n"), 0600))
	t.Setenv("QUILL_TEST_DOTENV", "")
	os.Unsetenv("QUILL_TEST_DOTENV")

	require.NoError(t, LoadDotEnv(filepath.Join(dir, "missing.env"), file))
	require.Equal(t, "from-file", os.Getenv("QUILL_TEST_DOTENV"))

	// existing variables win
	t.Setenv("QUILL_TEST_DOTENV", "from-env")
	require.NoError(t, LoadDotEnv(file))
	require.Equal(t, "from-env", os.Getenv("QUILL_TEST_DOTENV"))
}
