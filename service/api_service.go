package service

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/encryptederc/eerc-client/api"
	"github.com/encryptederc/eerc-client/config"
	"github.com/encryptederc/eerc-client/log"
	"github.com/encryptederc/eerc-client/storage"
)

// APIService represents a service that manages the HTTP API server.
type APIService struct {
	params  *config.Params
	storage *storage.Storage
	wallets []*Wallet
	api     *api.API
	mu      sync.Mutex
	host    string
	port    int
}

// NewAPI creates a new APIService instance serving the given wallets.
func NewAPI(params *config.Params, stg *storage.Storage, host string, port int, wallets ...*Wallet) *APIService {
	return &APIService{
		params:  params,
		storage: stg,
		wallets: wallets,
		host:    host,
		port:    port,
	}
}

// Start begins the API server. It returns an error if the service
// is already running or if it fails to start.
func (as *APIService) Start(_ context.Context) error {
	as.mu.Lock()
	defer as.mu.Unlock()

	if as.api != nil {
		return fmt.Errorf("service already running")
	}
	accounts := make([]api.AccountService, len(as.wallets))
	for i, w := range as.wallets {
		accounts[i] = w
	}
	a, err := api.New(&api.APIConfig{
		Host:     as.host,
		Port:     as.port,
		Params:   as.params,
		Storage:  as.storage,
		Accounts: accounts,
	})
	if err != nil {
		return fmt.Errorf("failed to start API server: %w", err)
	}
	as.api = a
	return nil
}

// Stop halts the API server. The storage is owned by the caller and stays
// open.
func (as *APIService) Stop() {
	as.mu.Lock()
	defer as.mu.Unlock()

	if as.api == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := as.api.Close(ctx); err != nil {
		log.Warnw("API server did not stop cleanly", "error", err.Error())
	}
	as.api = nil
}

// Addr returns the address the server listens on, nil if stopped.
func (as *APIService) Addr() net.Addr {
	as.mu.Lock()
	defer as.mu.Unlock()
	if as.api == nil {
		return nil
	}
	return as.api.Addr()
}

// HostPort returns the configured host and port of the API server.
func (as *APIService) HostPort() (string, int) {
	return as.host, as.port
}
