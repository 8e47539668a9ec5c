package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/fishlwr/internal/extraction/dom"
	"github.com/turtacn/fishlwr/internal/infrastructure/database/redis"
	"github.com/turtacn/fishlwr/pkg/errors"
)

const page = `<html><body><table><tr><td>Length</td><td>Weight</td></tr></table></body></html>`

func newServer(t *testing.T, h http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv
}

func TestFetch_OK(t *testing.T) {
	t.Parallel()

	var ua string
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		ua = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte(page))
	})

	f := NewHTTPFetcher(WithUserAgent("fishlwr-test"))
	node, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "fishlwr-test", ua)
	assert.Len(t, dom.FromNode(node).Tables(), 1)
}

func TestFetch_StatusKinds(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status int
		code   errors.ErrorCode
	}{
		{"not found", http.StatusNotFound, errors.ErrCodeFetchHTTPStatus},
		{"server error", http.StatusInternalServerError, errors.ErrCodeFetchHTTPStatus},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			srv := newServer(t, func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(tt.status) })

			_, err := NewHTTPFetcher().FetchRaw(context.Background(), srv.URL)
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, tt.code))
			fe, ok := AsFetchError(err)
			require.True(t, ok)
			assert.Equal(t, KindHTTPStatus, fe.Kind)
			assert.Equal(t, tt.status, fe.StatusCode)
		})
	}
}

func TestFetch_Timeout(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	srv := newServer(t, func(w http.ResponseWriter, _ *http.Request) { <-release })
	defer close(release)

	_, err := NewHTTPFetcher(WithTimeout(50*time.Millisecond)).FetchRaw(context.Background(), srv.URL)
	fe, ok := AsFetchError(err)
	require.True(t, ok)
	assert.Equal(t, KindTimeout, fe.Kind)
	assert.True(t, errors.IsCode(err, errors.ErrCodeFetchTimeout))
}

func TestFetch_ConnectionRefused(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewHTTPFetcher().FetchRaw(context.Background(), url)
	assert.True(t, errors.IsCode(err, errors.ErrCodeFetchConnection))
}

func TestFetch_BodyCapped(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		size    int
		wantErr bool
	}{
		{"under the cap", 99, false},
		{"exactly the cap", 100, false},
		{"over the cap", 101, true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			srv := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(strings.Repeat("x", tt.size)))
			})
			body, err := NewHTTPFetcher(WithMaxBodyBytes(100)).FetchRaw(context.Background(), srv.URL)
			if !tt.wantErr {
				require.NoError(t, err)
				assert.Len(t, body, tt.size)
				return
			}
			require.Error(t, err)
			assert.Nil(t, body)
			assert.True(t, errors.IsCode(err, errors.ErrCodeFetchTooLarge), "got %v", err)
			fe, ok := AsFetchError(err)
			require.True(t, ok)
			assert.Equal(t, KindTooLarge, fe.Kind)
		})
	}
}

func TestFetch_BreakerIgnoresClientErrors(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	})

	f := NewHTTPFetcher(WithBreaker(2, time.Minute))
	for i := 0; i < 5; i++ {
		_, _ = f.FetchRaw(context.Background(), srv.URL)
	}
	assert.EqualValues(t, 5, calls.Load())
	assert.Equal(t, gobreaker.StateClosed, f.State())
}

func TestFetch_BreakerOpens(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	})

	f := NewHTTPFetcher(WithBreaker(2, time.Minute))
	for i := 0; i < 2; i++ {
		_, _ = f.FetchRaw(context.Background(), srv.URL)
	}
	_, err := f.FetchRaw(context.Background(), srv.URL)
	assert.EqualValues(t, 2, calls.Load())
	assert.Equal(t, gobreaker.StateOpen, f.State())
	assert.True(t, errors.IsCode(err, errors.ErrCodeFetchCircuit))
}

func TestFetch_RequestDelay(t *testing.T) {
	t.Parallel()

	srv := newServer(t, func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte("ok")) })
	f := NewHTTPFetcher(WithRequestDelay(60 * time.Millisecond))

	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := f.FetchRaw(context.Background(), srv.URL)
		require.NoError(t, err)
	}
	assert.GreaterOrEqual(t, time.Since(start), 110*time.Millisecond)
}

func TestFetch_CancelledWhileWaiting(t *testing.T) {
	t.Parallel()

	f := NewHTTPFetcher(WithRequestDelay(time.Hour))
	srv := newServer(t, func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte("ok")) })
	_, err := f.FetchRaw(context.Background(), srv.URL)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = f.FetchRaw(ctx, srv.URL)
	require.Error(t, err)
}

func TestCachedFetcher(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.URL.Path == "/bad" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(page))
	})

	mr := miniredis.RunT(t)
	client := redis.NewClientFromUniversal(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}), "test", nil)
	cf := NewCachedFetcher(NewHTTPFetcher(), redis.NewCache(client, "fetch", nil), time.Hour, nil, nil)

	for i := 0; i < 3; i++ {
		node, err := cf.Fetch(context.Background(), srv.URL)
		require.NoError(t, err)
		assert.Len(t, dom.FromNode(node).Tables(), 1)
	}
	assert.EqualValues(t, 1, calls.Load())

	// Failures are not cached.
	for i := 0; i < 2; i++ {
		_, err := cf.FetchRaw(context.Background(), srv.URL+"/bad")
		assert.True(t, errors.IsCode(err, errors.ErrCodeFetchHTTPStatus))
	}
	assert.EqualValues(t, 3, calls.Load())
}

//Personal.AI order the ending
