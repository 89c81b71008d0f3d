package resolver

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchCaches(t *testing.T) {
	Flush()
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Write([]byte("payload"))
	}))
	defer server.Close()

	data, err := Fetch(server.URL + "/a.png")
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), data)

	data, err = Fetch(server.URL + "/a.png")
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), data)
	assert.EqualValues(t, 1, atomic.LoadInt32(&hits))

	// A different URI misses the cache.
	_, err = Fetch(server.URL + "/b.png")
	require.NoError(t, err)
	assert.EqualValues(t, 2, atomic.LoadInt32(&hits))

	Flush()
	_, err = Fetch(server.URL + "/a.png")
	require.NoError(t, err)
	assert.EqualValues(t, 3, atomic.LoadInt32(&hits))
}

func TestFetchBadStatus(t *testing.T) {
	Flush()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	_, err := Fetch(server.URL + "/missing.png")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status")
}

func TestFetchConnectionError(t *testing.T) {
	Flush()
	_, err := Fetch("http://127.0.0.1:1/nothing")
	assert.Error(t, err)
}
