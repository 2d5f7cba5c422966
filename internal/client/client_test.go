package client_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"cdo-tour-client/internal/client"
	"cdo-tour-client/internal/models"
	"cdo-tour-client/internal/store"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

// bearer extracts the token from an Authorization header, or ""
func bearer(r *http.Request) string {
	const prefix = "Bearer "
	h := r.Header.Get("Authorization")
	if len(h) > len(prefix) && h[:len(prefix)] == prefix {
		return h[len(prefix):]
	}
	return ""
}

// TestDo_noAccessToken verifies the fast-fail path: without a stored access
// token no HTTP call is made at all.
func TestDo_noAccessToken(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	c := client.New(srv.URL, nil, store.NewMemStore())
	_, err := c.Do(context.Background(), client.Request{Method: http.MethodGet, Path: "/bookings/"})

	require.ErrorIs(t, err, client.ErrUnauthenticated)
	require.Zero(t, hits.Load())
}

// TestDo_passThrough verifies that non-401 statuses are returned unchanged
// and never trigger a refresh.
func TestDo_passThrough(t *testing.T) {
	var refreshCalls atomic.Int64
	r := chi.NewRouter()
	r.Post("/token/refresh/", func(w http.ResponseWriter, _ *http.Request) {
		refreshCalls.Add(1)
	})
	r.Get("/bookings/", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	srv := httptest.NewServer(r)
	defer srv.Close()

	st := store.NewMemStore()
	require.NoError(t, st.Set(store.KeyAccess, "A1"))
	require.NoError(t, st.Set(store.KeyRefresh, "R1"))

	c := client.New(srv.URL, nil, st)
	resp, err := c.Do(context.Background(), client.Request{Method: http.MethodGet, Path: "/bookings/"})

	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.Zero(t, refreshCalls.Load())
}

// TestDo_refreshAndRetry runs the end-to-end scenario: expired access token,
// one refresh with the stored refresh token, one retry that succeeds.
func TestDo_refreshAndRetry(t *testing.T) {
	r := chi.NewRouter()
	r.Post("/token/refresh/", func(w http.ResponseWriter, req *http.Request) {
		var body models.RefreshRequest
		require.NoError(t, json.NewDecoder(req.Body).Decode(&body))
		require.Equal(t, "R1", body.Refresh)
		require.Empty(t, req.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(models.RefreshResponse{Access: "A2"})
	})
	r.Get("/bookings/", func(w http.ResponseWriter, req *http.Request) {
		if bearer(req) != "A2" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode([]models.Booking{{ID: 7, Destination: "White Water Rafting", Date: "2026-10-01", Guests: 2}})
	})
	srv := httptest.NewServer(r)
	defer srv.Close()

	st := store.NewMemStore()
	require.NoError(t, st.Set(store.KeyAccess, "A1"))
	require.NoError(t, st.Set(store.KeyRefresh, "R1"))

	c := client.New(srv.URL, nil, st)
	resp, err := c.Do(context.Background(), client.Request{Method: http.MethodGet, Path: "/bookings/"})
	require.NoError(t, err)

	var bookings []models.Booking
	require.NoError(t, client.DecodeJSON(resp, &bookings))
	require.Len(t, bookings, 1)
	require.Equal(t, int64(7), bookings[0].ID)

	access, ok := st.Get(store.KeyAccess)
	require.True(t, ok)
	require.Equal(t, "A2", access)
	refresh, ok := st.Get(store.KeyRefresh)
	require.True(t, ok)
	require.Equal(t, "R1", refresh, "refresh token is not rotated")
}

// TestDo_refreshFailureClearsTokens verifies that a rejected refresh purges
// both credentials together and surfaces ErrSessionExpired.
func TestDo_refreshFailureClearsTokens(t *testing.T) {
	r := chi.NewRouter()
	r.Post("/token/refresh/", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	r.Get("/bookings/", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	srv := httptest.NewServer(r)
	defer srv.Close()

	st := store.NewMemStore()
	require.NoError(t, st.Set(store.KeyAccess, "A1"))
	require.NoError(t, st.Set(store.KeyRefresh, "R1"))

	c := client.New(srv.URL, nil, st)
	_, err := c.Do(context.Background(), client.Request{Method: http.MethodGet, Path: "/bookings/"})

	require.ErrorIs(t, err, client.ErrSessionExpired)
	_, ok := st.Get(store.KeyAccess)
	require.False(t, ok)
	_, ok = st.Get(store.KeyRefresh)
	require.False(t, ok)
}

// TestDo_retryBound verifies that a 401 on the retried request does not
// trigger a second refresh; the 401 goes back to the caller.
func TestDo_retryBound(t *testing.T) {
	var refreshCalls atomic.Int64
	r := chi.NewRouter()
	r.Post("/token/refresh/", func(w http.ResponseWriter, _ *http.Request) {
		refreshCalls.Add(1)
		json.NewEncoder(w).Encode(models.RefreshResponse{Access: "A2"})
	})
	r.Get("/bookings/", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	srv := httptest.NewServer(r)
	defer srv.Close()

	st := store.NewMemStore()
	require.NoError(t, st.Set(store.KeyAccess, "A1"))
	require.NoError(t, st.Set(store.KeyRefresh, "R1"))

	c := client.New(srv.URL, nil, st)
	resp, err := c.Do(context.Background(), client.Request{Method: http.MethodGet, Path: "/bookings/"})

	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, int64(1), refreshCalls.Load())
}

// TestDo_singleRefreshForConcurrent401s issues two protected calls that both
// hit 401: exactly one refresh happens, one call resolves via retry and the
// other gets its own 401 back. A later cycle proves the in-flight slot was
// released.
func TestDo_singleRefreshForConcurrent401s(t *testing.T) {
	var (
		mu           sync.Mutex
		validToken   = "A2"
		refreshCalls atomic.Int64
		arrived      = make(chan struct{}, 2)
		proceed      = make(chan struct{})
	)
	r := chi.NewRouter()
	r.Post("/token/refresh/", func(w http.ResponseWriter, _ *http.Request) {
		refreshCalls.Add(1)
		// Hold the refresh long enough for the other 401 handler to observe
		// the in-flight slot.
		time.Sleep(100 * time.Millisecond)
		mu.Lock()
		token := validToken
		mu.Unlock()
		json.NewEncoder(w).Encode(models.RefreshResponse{Access: token})
	})
	r.Get("/bookings/", func(w http.ResponseWriter, req *http.Request) {
		mu.Lock()
		token := validToken
		mu.Unlock()
		if bearer(req) == token {
			w.Write([]byte("[]"))
			return
		}
		select {
		case arrived <- struct{}{}:
			// Both initial calls must receive their 401 together.
			<-proceed
		default:
		}
		w.WriteHeader(http.StatusUnauthorized)
	})
	srv := httptest.NewServer(r)
	defer srv.Close()

	st := store.NewMemStore()
	require.NoError(t, st.Set(store.KeyAccess, "A1"))
	require.NoError(t, st.Set(store.KeyRefresh, "R1"))
	c := client.New(srv.URL, nil, st)

	statuses := make(chan int, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := c.Do(context.Background(), client.Request{Method: http.MethodGet, Path: "/bookings/"})
			require.NoError(t, err)
			defer resp.Body.Close()
			statuses <- resp.StatusCode
		}()
	}

	// Release the barrier once both calls are waiting on their 401
	<-arrived
	<-arrived
	close(proceed)
	wg.Wait()
	close(statuses)

	require.Equal(t, int64(1), refreshCalls.Load())
	var got []int
	for s := range statuses {
		got = append(got, s)
	}
	require.ElementsMatch(t, []int{http.StatusOK, http.StatusUnauthorized}, got)

	// Expire A2 as well; the next call must be able to refresh again
	mu.Lock()
	validToken = "A3"
	mu.Unlock()
	resp, err := c.Do(context.Background(), client.Request{Method: http.MethodGet, Path: "/bookings/"})
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, int64(2), refreshCalls.Load())
}

// TestDoPublic_stripsAuthorization verifies that unprotected calls omit the
// bearer header even when stale credentials exist in storage and the caller
// set one explicitly.
func TestDoPublic_stripsAuthorization(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Empty(t, r.Header.Get("Authorization"))
		require.Equal(t, "1", r.Header.Get("X-Custom"))
	}))
	defer srv.Close()

	st := store.NewMemStore()
	require.NoError(t, st.Set(store.KeyAccess, "stale"))
	require.NoError(t, st.Set(store.KeyRefresh, "stale"))

	hdr := http.Header{}
	hdr.Set("Authorization", "Bearer caller-supplied")
	hdr.Set("X-Custom", "1")

	c := client.New(srv.URL, nil, st)
	resp, err := c.DoPublic(context.Background(), client.Request{Method: http.MethodPost, Path: "/register/", Header: hdr})
	require.NoError(t, err)
	resp.Body.Close()
}

// TestDo_headerOwnership verifies that caller headers are preserved but the
// Authorization header is always the client's.
func TestDo_headerOwnership(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer A1", r.Header.Get("Authorization"))
		require.Equal(t, "yes", r.Header.Get("X-Caller"))
		require.NotEmpty(t, r.Header.Get("X-Request-ID"))
	}))
	defer srv.Close()

	st := store.NewMemStore()
	require.NoError(t, st.Set(store.KeyAccess, "A1"))
	require.NoError(t, st.Set(store.KeyRefresh, "R1"))

	hdr := http.Header{}
	hdr.Set("Authorization", "Bearer wrong")
	hdr.Set("X-Caller", "yes")

	c := client.New(srv.URL, nil, st)
	resp, err := c.Do(context.Background(), client.Request{Method: http.MethodGet, Path: "/bookings/", Header: hdr})
	require.NoError(t, err)
	resp.Body.Close()
}

// TestDo_networkError verifies that transport failures surface as ErrNetwork
// and leave credentials untouched.
func TestDo_networkError(t *testing.T) {
	st := store.NewMemStore()
	require.NoError(t, st.Set(store.KeyAccess, "A1"))
	require.NoError(t, st.Set(store.KeyRefresh, "R1"))

	c := client.New("http://127.0.0.1:1", nil, st)
	_, err := c.Do(context.Background(), client.Request{Method: http.MethodGet, Path: "/bookings/"})

	require.ErrorIs(t, err, client.ErrNetwork)
	access, ok := st.Get(store.KeyAccess)
	require.True(t, ok)
	require.Equal(t, "A1", access)
}
