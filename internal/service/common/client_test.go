//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestClient_callContext checks timeout vs cancel-only behavior of callContext.
func TestClient_callContext(t *testing.T) {
	t.Parallel()

	c := NewClient()

	ctx, cancel := c.callContext(context.Background())
	cancel()

	require.NotNil(t, ctx)

	_, ok := ctx.Deadline()
	require.False(t, ok)

	c = NewClient(WithCallTimeout(10 * time.Millisecond))

	ctx, cancel = c.callContext(context.Background())
	defer cancel()

	deadline, ok := ctx.Deadline()
	require.True(t, ok)
	require.WithinDuration(t, time.Now().Add(10*time.Millisecond), deadline, 30*time.Millisecond)
}

// TestClient_GetJSON decodes a payload and sends the configured headers.
func TestClient_GetJSON(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != "ollama-updater/test" {
			w.WriteHeader(http.StatusForbidden)
			return
		}

		if r.Header.Get("Accept") != "application/vnd.github+json" {
			w.WriteHeader(http.StatusNotAcceptable)
			return
		}

		_, _ = w.Write([]byte(`{"name":"ollama"}`))
	}))
	defer server.Close()

	var payload struct {
		Name string `json:"name"`
	}

	c := NewClient(WithUserAgent("ollama-updater/test"), WithCallTimeout(time.Second))
	require.NoError(t, c.GetJSON(context.Background(), server.URL, &payload))
	require.Equal(t, "ollama", payload.Name)
}

// TestClient_BadStatus maps non-200 responses to ErrBadHTTPStatus.
func TestClient_BadStatus(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	c := NewClient()

	_, err := c.Open(context.Background(), server.URL)
	require.ErrorIs(t, err, ErrBadHTTPStatus)
	require.Contains(t, err.Error(), "404")

	var out []any
	require.ErrorIs(t, c.GetJSON(context.Background(), server.URL, &out), ErrBadHTTPStatus)
}

// TestClient_BadJSON reports decode failures.
func TestClient_BadJSON(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{not json`))
	}))
	defer server.Close()

	var out map[string]any
	require.Error(t, NewClient().GetJSON(context.Background(), server.URL, &out))
}

// TestClient_Open streams the body without a deadline.
func TestClient_Open(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("archive-bytes"))
	}))
	defer server.Close()

	body, err := NewClient(WithHTTPClient(server.Client())).Open(context.Background(), server.URL)
	require.NoError(t, err)

	defer func() {
		_ = body.Close()
	}()

	data, err := io.ReadAll(body)
	require.NoError(t, err)
	require.Equal(t, "archive-bytes", string(data))
}

// TestClient_NetworkError surfaces transport errors verbatim.
func TestClient_NetworkError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	_, err := NewClient().Open(context.Background(), url)
	require.Error(t, err)
}
