package credentials

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	authPath := writeFile(t, dir, "AuthTokens.ini", "AuthToken=Bearer eyJhbGciOi.payload.sig==\nfeedToken=feed123\n")
	envPath := writeFile(t, dir, "Credentials.env", "clientcode=C12345\nAPI_KEY=apikey987\n")

	creds, err := Load(authPath, envPath)
	require.NoError(t, err)

	// The first '=' is the delimiter, so base64 padding survives.
	assert.Equal(t, "Bearer eyJhbGciOi.payload.sig==", creds.BearerToken)
	assert.Equal(t, "feed123", creds.FeedToken)
	assert.Equal(t, "C12345", creds.ClientID)
	assert.Equal(t, "apikey987", creds.APIKey)
}

func TestLoad_ValuesAreLiteral(t *testing.T) {
	t.Setenv("DEF", "expanded")

	dir := t.TempDir()
	authPath := writeFile(t, dir, "AuthTokens.ini",
		"[session]\nAuthToken=Bearer abc$DEF #x\r\nfeedToken=\"q1\"\n\n")
	envPath := writeFile(t, dir, "Credentials.env", "# identity\nclientcode='C1'\nAPI_KEY=k=v\n")

	creds, err := Load(authPath, envPath)
	require.NoError(t, err)

	assert.Equal(t, "Bearer abc$DEF #x", creds.BearerToken)
	assert.Equal(t, `"q1"`, creds.FeedToken)
	assert.Equal(t, "'C1'", creds.ClientID)
	assert.Equal(t, "k=v", creds.APIKey)
}

func TestLoad_MissingFile(t *testing.T) {
	dir := t.TempDir()
	envPath := writeFile(t, dir, "Credentials.env", "clientcode=C1\nAPI_KEY=k\n")

	_, err := Load(filepath.Join(dir, "nope.ini"), envPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read auth file")
}

func TestLoad_MissingKey(t *testing.T) {
	dir := t.TempDir()
	authPath := writeFile(t, dir, "AuthTokens.ini", "AuthToken=abc\n")
	envPath := writeFile(t, dir, "Credentials.env", "clientcode=C1\nAPI_KEY=k\n")

	_, err := Load(authPath, envPath)
	require.ErrorIs(t, err, ErrMissingKey)
	assert.Contains(t, err.Error(), KeyFeedToken)
}

func TestCredentials_Header(t *testing.T) {
	creds := Credentials{BearerToken: "tok", APIKey: "key", ClientID: "cid", FeedToken: "feed"}

	h := creds.Header()
	assert.Equal(t, "tok", h.Get("Authorization"))
	assert.Equal(t, "key", h.Get("X-Api-Key"))
	assert.Equal(t, "cid", h.Get("X-Client-Code"))
	assert.Equal(t, "feed", h.Get("X-Feed-Token"))
}

func TestCredentials_StringRedacts(t *testing.T) {
	creds := Credentials{BearerToken: "supersecret", APIKey: "abcdefgh", ClientID: "C1", FeedToken: "feedsecret"}

	s := creds.String()
	assert.False(t, strings.Contains(s, "supersecret"))
	assert.False(t, strings.Contains(s, "abcdefgh"))
	assert.Contains(t, s, "C1")
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}
