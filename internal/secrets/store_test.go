package secrets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStoreFetchDelete(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	require.NoError(t, Store(AAClientSecret, "s3cret"))
	got, err := Fetch(AAClientSecret)
	require.NoError(t, err)
	require.Equal(t, "s3cret", got)

	// overwrite replaces the value
	require.NoError(t, Store(AAClientSecret, "rotated"))
	got, err = Fetch(AAClientSecret)
	require.NoError(t, err)
	require.Equal(t, "rotated", got)

	// the other credential is untouched by the delete
	require.NoError(t, Store(SigningKey, "hs256-key"))
	require.NoError(t, Delete(AAClientSecret))
	_, err = Fetch(AAClientSecret)
	require.Error(t, err)
	got, err = Fetch(SigningKey)
	require.NoError(t, err)
	require.Equal(t, "hs256-key", got)
}

func TestRejectsUnknownKey(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	require.Error(t, Store("", "value"))
	require.Error(t, Store("api_key", "value"))
	_, err := Fetch("never_stored")
	require.Error(t, err)
	require.Error(t, Delete("whatever"))
}

func TestFetchBeforeStore(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	_, err := Fetch(SigningKey)
	require.Error(t, err)
}

func TestCiphertextIsNotPlaintext(t *testing.T) {
	confDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", confDir)

	require.NoError(t, Store(SigningKey, "super-secret-value"))
	data, err := os.ReadFile(filepath.Join(confDir, "finlink", "credentials.json"))
	require.NoError(t, err)
	require.NotContains(t, string(data), "super-secret-value")
	require.Contains(t, string(data), string(SigningKey))
}
