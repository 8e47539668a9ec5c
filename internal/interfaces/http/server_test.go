package http

import (
	"context"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/fishlwr/internal/config"
	"github.com/turtacn/fishlwr/internal/interfaces/http/handlers"
)

func TestServer_ServeAndStop(t *testing.T) {
	t.Parallel()

	r := NewRouter(RouterConfig{HealthHandler: handlers.NewHealthHandler("v1")})
	s := NewServer(config.ServerConfig{ShutdownTimeout: time.Second}, r, nil)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- s.Serve(ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"version":"v1"`)

	require.NoError(t, s.Stop(context.Background()))
	assert.NoError(t, <-done)
}

//Personal.AI order the ending
