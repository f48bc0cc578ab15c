package politeness

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, raw string) *url.URL {
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

func TestCache_FetchesAndCachesRules(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/robots.txt", r.URL.Path)
		hits.Add(1)
		w.Write([]byte("User-agent: *\nDisallow: /private"))
	}))
	defer srv.Close()

	cache := NewCache(srv.Client(), "RegScoutBot/1.0", time.Hour)
	u := mustParse(t, srv.URL+"/private/doc")

	rules, err := cache.Rules(context.Background(), u)
	require.NoError(t, err)
	assert.False(t, rules.IsAllowed("/private/doc", "bot").Allowed)

	_, err = cache.Rules(context.Background(), u)
	require.NoError(t, err)
	assert.Equal(t, int32(1), hits.Load())
}

func TestCache_RefetchesAfterTTL(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte("User-agent: *\nDisallow: /x"))
	}))
	defer srv.Close()

	cache := NewCache(srv.Client(), "RegScoutBot/1.0", time.Minute)
	current := time.Now()
	cache.now = func() time.Time { return current }

	u := mustParse(t, srv.URL+"/x")
	_, err := cache.Rules(context.Background(), u)
	require.NoError(t, err)

	current = current.Add(2 * time.Minute)
	_, err = cache.Rules(context.Background(), u)
	require.NoError(t, err)
	assert.Equal(t, int32(2), hits.Load())
}

func TestCache_UnreachableIsUnrestricted(t *testing.T) {
	cache := NewCache(&http.Client{Timeout: 200 * time.Millisecond}, "RegScoutBot/1.0", time.Hour)
	u := mustParse(t, "http://127.0.0.1:1/anything")

	rules, err := cache.Rules(context.Background(), u)
	require.NoError(t, err)
	assert.True(t, rules.IsAllowed("/anything", "bot").Allowed)
}

func TestCache_NotFoundIsUnrestricted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	cache := NewCache(srv.Client(), "RegScoutBot/1.0", time.Hour)
	rules, err := cache.Rules(context.Background(), mustParse(t, srv.URL+"/doc"))
	require.NoError(t, err)
	assert.True(t, rules.IsAllowed("/doc", "bot").Allowed)
}
