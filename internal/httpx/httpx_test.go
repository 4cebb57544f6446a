package httpx_test

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"quotewatch/internal/httpx"
)

func newClient(t *testing.T) *httpx.Client {
	t.Helper()
	c, err := httpx.New(httpx.Options{Timeout: 2 * time.Second})
	require.NoError(t, err)
	return c
}

func TestGet_SendsHeadersAndUserAgent(t *testing.T) {
	t.Parallel()

	// Arrange: a server echoing what it saw
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "https://finance.sina.com.cn", r.Header.Get("Referer"))
		require.Equal(t, "quotewatch/1.0", r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	// Act
	body, err := newClient(t).Get(t.Context(), srv.URL, map[string]string{"Referer": "https://finance.sina.com.cn"})

	// Assert
	require.NoError(t, err)
	require.Equal(t, "ok", string(body))
}

func TestPost_SendsBody(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		b, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		_, _ = w.Write(append([]byte("got:"), b...))
	}))
	defer srv.Close()

	body, err := newClient(t).Post(t.Context(), srv.URL, []byte(`{"a":1}`), map[string]string{"Content-Type": "application/json"})
	require.NoError(t, err)
	require.Equal(t, `got:{"a":1}`, string(body))
}

func TestGet_Non2xxReturnsHTTPError(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("x", 800)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(long))
	}))
	defer srv.Close()

	_, err := newClient(t).Get(t.Context(), srv.URL+"/q=sh600519", nil)

	var he *httpx.HTTPError
	require.True(t, errors.As(err, &he), "want HTTPError, got %v", err)
	require.Equal(t, http.StatusBadGateway, he.Status)
	require.Contains(t, he.Message, "/q=sh600519")
	require.True(t, strings.HasSuffix(he.Message, "..."))
	require.Less(t, len(he.Message), 600)
}

func TestGet_TransportError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := newClient(t).Get(t.Context(), url, nil)
	require.Error(t, err)

	var he *httpx.HTTPError
	require.False(t, errors.As(err, &he))
}

func TestNew_Proxy(t *testing.T) {
	t.Parallel()

	_, err := httpx.New(httpx.Options{Proxy: "127.0.0.1:8888"})
	require.NoError(t, err)

	_, err = httpx.New(httpx.Options{Proxy: "http://proxy.local:3128"})
	require.NoError(t, err)

	_, err = httpx.New(httpx.Options{Proxy: "not-a-proxy"})
	require.Error(t, err)
}
