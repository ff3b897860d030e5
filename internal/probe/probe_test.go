package probe

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/aegis/internal/apperr"
)

func TestCheckOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	got, err := New(srv.URL, time.Second, nil).Check(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ConnectionOK, got)
}

func TestCheckNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	got, err := New(srv.URL, time.Second, nil).Check(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "STATUS_503", got)
}

func TestCheckRedirectFollowed(t *testing.T) {
	final := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))
	defer final.Close()
	srv := httptest.NewServer(http.RedirectHandler(final.URL, http.StatusFound))
	defer srv.Close()

	got, err := New(srv.URL, time.Second, nil).Check(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ConnectionOK, got)
}

func TestCheckTransportError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	_, err = New("http://"+addr, time.Second, nil).Check(context.Background())
	require.ErrorIs(t, err, apperr.ErrTransport)
	assert.NotEmpty(t, err.Error())
}

func TestCheckReturnsWithinTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	start := time.Now()
	_, err := New(srv.URL, 100*time.Millisecond, nil).Check(context.Background())
	require.ErrorIs(t, err, apperr.ErrTransport)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestDefaults(t *testing.T) {
	p := New("", 0, nil)
	assert.Equal(t, DefaultURL, p.URL())
	assert.Equal(t, DefaultTimeout, p.client.Timeout)
	assert.Equal(t, "SYSTEM_READY", SystemStatus())
}
