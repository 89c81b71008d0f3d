// Package resolver fetches remote asset payloads referenced by URI and
// keeps them in a process-wide cache, so documents that share textures
// do not download them twice.
package resolver

import (
	"io"
	"io/ioutil"
	"net/http"
	"sync"
	"time"

	"github.com/pkg/errors"
)

const (
	cacheTTL = 5 * time.Minute

	// maxPayloadSize bounds a single fetched asset (64 MiB).
	maxPayloadSize = 64 << 20
)

type cacheEntry struct {
	data    []byte
	fetched time.Time
}

var (
	mu    sync.Mutex
	cache = make(map[string]cacheEntry)

	client = &http.Client{Timeout: 30 * time.Second}
)

// Fetch downloads the payload behind uri, or returns the cached copy
// when it is still fresh.
func Fetch(uri string) ([]byte, error) {
	mu.Lock()
	if entry, ok := cache[uri]; ok && time.Since(entry.fetched) < cacheTTL {
		mu.Unlock()
		return entry.data, nil
	}
	mu.Unlock()

	resp, err := client.Get(uri)
	if err != nil {
		return nil, errors.Wrapf(err, "fetch %q", uri)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("fetch %q: unexpected status %q", uri, resp.Status)
	}

	data, err := ioutil.ReadAll(io.LimitReader(resp.Body, maxPayloadSize+1))
	if err != nil {
		return nil, errors.Wrapf(err, "fetch %q", uri)
	}
	if len(data) > maxPayloadSize {
		return nil, errors.Errorf("fetch %q: payload exceeds %d bytes", uri, maxPayloadSize)
	}

	mu.Lock()
	cache[uri] = cacheEntry{data: data, fetched: time.Now()}
	mu.Unlock()
	return data, nil
}

// Flush drops every cached payload.
func Flush() {
	mu.Lock()
	cache = make(map[string]cacheEntry)
	mu.Unlock()
}
