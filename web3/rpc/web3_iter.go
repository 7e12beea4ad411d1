package rpc

import (
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/ethclient"
)

// Web3Endpoint is a web3 provider of a chain.
// Head is the latest block it reported when it was added.
type Web3Endpoint struct {
	ChainID uint64 `json:"chainId"`
	URI     string `json:"uri"`
	Head    uint64 `json:"head"`
	client  *ethclient.Client
}

// Web3Iterator round-robins the available endpoints of a chain.
type Web3Iterator struct {
	mu        sync.Mutex
	available []*Web3Endpoint
	disabled  []*Web3Endpoint
	next      int
}

// NewWeb3Iterator returns an iterator over the given endpoints.
func NewWeb3Iterator(endpoints ...*Web3Endpoint) *Web3Iterator {
	return &Web3Iterator{available: append([]*Web3Endpoint{}, endpoints...)}
}

// Add appends endpoints to the available list, skipping known URIs.
func (w *Web3Iterator) Add(endpoints ...*Web3Endpoint) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, e := range endpoints {
		if w.known(e.URI) {
			continue
		}
		w.available = append(w.available, e)
	}
}

func (w *Web3Iterator) known(uri string) bool {
	for _, e := range w.available {
		if e.URI == uri {
			return true
		}
	}
	for _, e := range w.disabled {
		if e.URI == uri {
			return true
		}
	}
	return false
}

// Next returns the next available endpoint. When every endpoint is
// disabled, all of them are made available again.
func (w *Web3Iterator) Next() (*Web3Endpoint, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.available) == 0 {
		if len(w.disabled) == 0 {
			return nil, fmt.Errorf("no endpoints available")
		}
		w.available, w.disabled = w.disabled, nil
		w.next = 0
	}
	if w.next >= len(w.available) {
		w.next = 0
	}
	e := w.available[w.next]
	w.next++
	return e, nil
}

// Disable moves the endpoint with the given URI to the disabled list.
func (w *Web3Iterator) Disable(uri string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for i, e := range w.available {
		if e.URI == uri {
			w.available = append(w.available[:i], w.available[i+1:]...)
			w.disabled = append(w.disabled, e)
			return
		}
	}
}

// Available returns the number of available endpoints.
func (w *Web3Iterator) Available() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.available)
}

// Disabled returns the number of disabled endpoints.
func (w *Web3Iterator) Disabled() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.disabled)
}
