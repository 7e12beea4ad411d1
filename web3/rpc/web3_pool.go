// Package rpc balances the chain calls between several web3 endpoints. A
// Web3Pool groups the endpoints by chain id and Client implements
// bind.ContractBackend on top of it, moving to the next endpoint when one
// fails.
package rpc

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/encryptederc/eerc-client/log"
)

const (
	// DefaultMaxWeb3ClientRetries bounds the dial attempts per endpoint and
	// the endpoints tried per call.
	DefaultMaxWeb3ClientRetries = 5

	dialTimeout    = 10 * time.Second
	dialRetryDelay = 200 * time.Millisecond
)

// Web3Pool keeps a Web3Iterator per chain id.
type Web3Pool struct {
	mu        sync.RWMutex
	endpoints map[uint64]*Web3Iterator
}

// NewWeb3Pool returns an empty pool.
func NewWeb3Pool() *Web3Pool {
	return &Web3Pool{endpoints: make(map[uint64]*Web3Iterator)}
}

// AddEndpoint dials uri, asks for its chain id and latest block and adds it
// to the pool. It returns the chain id.
func (nm *Web3Pool) AddEndpoint(uri string) (uint64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	defer cancel()
	client, err := dial(ctx, uri)
	if err != nil {
		return 0, err
	}
	chainID, err := client.ChainID(ctx)
	if err != nil {
		client.Close()
		return 0, fmt.Errorf("cannot get the chain id of %s: %w", uri, err)
	}
	// the monitor scans logs up to the head, an endpoint without one is useless
	head, err := client.BlockNumber(ctx)
	if err != nil {
		client.Close()
		return 0, fmt.Errorf("cannot get the latest block of %s: %w", uri, err)
	}
	log.Infow("web3 endpoint added", "uri", uri, "chainID", chainID.Uint64(), "head", head)
	nm.addEndpoint(&Web3Endpoint{
		ChainID: chainID.Uint64(),
		URI:     uri,
		Head:    head,
		client:  client,
	})
	return chainID.Uint64(), nil
}

func (nm *Web3Pool) addEndpoint(endpoint *Web3Endpoint) {
	nm.mu.Lock()
	defer nm.mu.Unlock()
	if it, ok := nm.endpoints[endpoint.ChainID]; ok {
		it.Add(endpoint)
		return
	}
	nm.endpoints[endpoint.ChainID] = NewWeb3Iterator(endpoint)
}

func (nm *Web3Pool) iterator(chainID uint64) (*Web3Iterator, bool) {
	nm.mu.RLock()
	defer nm.mu.RUnlock()
	it, ok := nm.endpoints[chainID]
	return it, ok
}

// Endpoint returns the next available endpoint of chainID.
func (nm *Web3Pool) Endpoint(chainID uint64) (*Web3Endpoint, error) {
	it, ok := nm.iterator(chainID)
	if !ok {
		return nil, fmt.Errorf("no endpoint for chain %d", chainID)
	}
	return it.Next()
}

// DisableEndpoint flags uri as failing. It is used again once every
// endpoint of the chain has failed.
func (nm *Web3Pool) DisableEndpoint(chainID uint64, uri string) {
	if it, ok := nm.iterator(chainID); ok {
		it.Disable(uri)
	}
}

// NumberOfEndpoints counts the endpoints of chainID, only the available ones
// if onlyAvailable is set.
func (nm *Web3Pool) NumberOfEndpoints(chainID uint64, onlyAvailable bool) int {
	it, ok := nm.iterator(chainID)
	if !ok {
		return 0
	}
	if onlyAvailable {
		return it.Available()
	}
	return it.Available() + it.Disabled()
}

// Client returns a contract backend for chainID.
func (nm *Web3Pool) Client(chainID uint64) (*Client, error) {
	if _, ok := nm.iterator(chainID); !ok {
		return nil, fmt.Errorf("no endpoint for chain %d", chainID)
	}
	return &Client{w3p: nm, chainID: chainID}, nil
}

// dial connects to uri, retrying with a growing delay until ctx expires or
// DefaultMaxWeb3ClientRetries attempts fail.
func dial(ctx context.Context, uri string) (*ethclient.Client, error) {
	delay := dialRetryDelay
	var lastErr error
	for range DefaultMaxWeb3ClientRetries {
		client, err := ethclient.DialContext(ctx, uri)
		if err == nil {
			return client, nil
		}
		lastErr = err
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("cannot dial %s: %w", uri, ctx.Err())
		case <-time.After(delay):
		}
		delay *= 2
	}
	return nil, fmt.Errorf("cannot dial %s: %w", uri, lastErr)
}
