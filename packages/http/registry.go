package http

import (
	"sync"
	"sync/atomic"
)

// The process default client. It is built on first use unless InitClient
// ran before; set records that either happened, so an explicit
// InitClient(nil) is not undone by a later lazy build.
var (
	defaultMu     sync.Mutex
	defaultSet    atomic.Bool
	defaultClient atomic.Pointer[Client]
)

// DefaultClient returns the process default client, creating it with
// NewClient on first use. It returns nil only after InitClient(nil).
//
// InitClient racing with the first DefaultClient call from another
// goroutine may leave that goroutine with the lazily built client instead
// of the override. Both are valid clients; callers that need the override
// everywhere must call InitClient before any request is built.
func DefaultClient() *Client {
	if defaultSet.Load() {
		return defaultClient.Load()
	}

	defaultMu.Lock()
	defer defaultMu.Unlock()
	if !defaultSet.Load() {
		defaultClient.Store(NewClient())
		defaultSet.Store(true)
	}
	return defaultClient.Load()
}

// InitClient replaces the default client for requests built afterwards.
// Requests already built keep the client they captured.
func InitClient(c *Client) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultClient.Store(c)
	defaultSet.Store(true)
}
