// Package credentials loads the session credentials produced by the login job.
package credentials

import (
	"bufio"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
)

// Keys read from the credential files.
const (
	KeyAuthToken  = "AuthToken"
	KeyFeedToken  = "feedToken"
	KeyClientCode = "clientcode"
	KeyAPIKey     = "API_KEY"
)

// Handshake header names.
const (
	HeaderAuthorization = "Authorization"
	HeaderAPIKey        = "x-api-key"
	HeaderClientCode    = "x-client-code"
	HeaderFeedToken     = "x-feed-token"
)

// ErrMissingKey is returned when a required key is absent or empty.
var ErrMissingKey = errors.New("missing credential key")

// Credentials holds the session and identity values sent at handshake time.
// It is loaded once and never mutated.
type Credentials struct {
	BearerToken string // AuthToken from the auth file
	APIKey      string // API_KEY from the env file
	ClientID    string // clientcode from the env file
	FeedToken   string // feedToken from the auth file
}

// Load reads the session tokens from authPath and the static identity from envPath.
func Load(authPath, envPath string) (Credentials, error) {
	auth, err := readKeyValues(authPath)
	if err != nil {
		return Credentials{}, fmt.Errorf("read auth file: %w", err)
	}

	env, err := readKeyValues(envPath)
	if err != nil {
		return Credentials{}, fmt.Errorf("read env file: %w", err)
	}

	creds := Credentials{
		BearerToken: auth[KeyAuthToken],
		FeedToken:   auth[KeyFeedToken],
		ClientID:    env[KeyClientCode],
		APIKey:      env[KeyAPIKey],
	}
	if err := creds.Validate(); err != nil {
		return Credentials{}, err
	}

	return creds, nil
}

// readKeyValues splits each line at the first '=' and keeps the value
// literally. Lines without '=' are skipped.
func readKeyValues(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	values := make(map[string]string)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSuffix(scanner.Text(), "\r")
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		values[key] = value
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return values, nil
}

// Validate checks that every field is set. Running with partial credentials
// only produces handshake rejections, so it is refused up front.
func (c Credentials) Validate() error {
	switch {
	case c.BearerToken == "":
		return fmt.Errorf("%w: %s", ErrMissingKey, KeyAuthToken)
	case c.FeedToken == "":
		return fmt.Errorf("%w: %s", ErrMissingKey, KeyFeedToken)
	case c.ClientID == "":
		return fmt.Errorf("%w: %s", ErrMissingKey, KeyClientCode)
	case c.APIKey == "":
		return fmt.Errorf("%w: %s", ErrMissingKey, KeyAPIKey)
	}
	return nil
}

// Header returns the handshake headers.
func (c Credentials) Header() http.Header {
	header := http.Header{}
	header.Set(HeaderAuthorization, c.BearerToken)
	header.Set(HeaderAPIKey, c.APIKey)
	header.Set(HeaderClientCode, c.ClientID)
	header.Set(HeaderFeedToken, c.FeedToken)
	return header
}

// String redacts the secrets so credentials can be logged safely.
func (c Credentials) String() string {
	return fmt.Sprintf("client=%s api_key=%s", c.ClientID, redact(c.APIKey))
}

func redact(s string) string {
	if len(s) <= 4 {
		return "****"
	}
	return s[:4] + "****"
}
