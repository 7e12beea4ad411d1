package api

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/encryptederc/eerc-client/account"
	"github.com/encryptederc/eerc-client/config"
	"github.com/encryptederc/eerc-client/log"
	"github.com/encryptederc/eerc-client/proof"
	stg "github.com/encryptederc/eerc-client/storage"
)

// AccountService is a local account served by the API.
type AccountService interface {
	Account() *account.Account
	Balance() (*big.Int, error)
	Build(ctx context.Context, typ proof.Type, op proof.Operation) (*proof.Request, error)
	Submit(ctx context.Context, req *proof.Request) (*stg.Submission, error)
}

// APIConfig type represents the configuration for the API HTTP server.
type APIConfig struct {
	Host     string
	Port     int
	Params   *config.Params
	Storage  *stg.Storage
	Accounts []AccountService
}

// API type represents the local HTTP API of the client.
type API struct {
	router   *chi.Mux
	params   *config.Params
	storage  *stg.Storage
	server   *http.Server
	listener net.Listener

	mu       sync.RWMutex
	accounts map[common.Address]AccountService
}

// New creates a new API instance with the given configuration and starts
// serving it in background.
func New(conf *APIConfig) (*API, error) {
	a, err := newAPI(conf)
	if err != nil {
		return nil, err
	}
	ln, err := net.Listen("tcp", fmt.Sprintf("%s:%d", conf.Host, conf.Port))
	if err != nil {
		return nil, fmt.Errorf("cannot listen on %s:%d: %w", conf.Host, conf.Port, err)
	}
	a.listener = ln
	a.server = &http.Server{Handler: a.router, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		log.Infow("starting API server", "address", ln.Addr().String())
		if err := a.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorw(err, "API server stopped")
		}
	}()
	return a, nil
}

func newAPI(conf *APIConfig) (*API, error) {
	if conf == nil {
		return nil, fmt.Errorf("missing API configuration")
	}
	if conf.Storage == nil {
		return nil, fmt.Errorf("missing storage instance")
	}
	if conf.Params == nil {
		return nil, fmt.Errorf("missing protocol parameters")
	}
	a := &API{
		params:   conf.Params,
		storage:  conf.Storage,
		accounts: make(map[common.Address]AccountService),
	}
	for _, acc := range conf.Accounts {
		a.AddAccount(acc)
	}
	a.initRouter()
	return a, nil
}

// AddAccount serves a new local account.
func (a *API) AddAccount(acc AccountService) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.accounts[acc.Account().Address] = acc
}

func (a *API) account(addr common.Address) (AccountService, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	acc, ok := a.accounts[addr]
	return acc, ok
}

// Addr returns the address the server listens on, nil if not serving.
func (a *API) Addr() net.Addr {
	if a.listener == nil {
		return nil
	}
	return a.listener.Addr()
}

// Close shuts the HTTP server down.
func (a *API) Close(ctx context.Context) error {
	if a.server == nil {
		return nil
	}
	return a.server.Shutdown(ctx)
}

// Router returns the chi router for testing purposes
func (a *API) Router() *chi.Mux {
	return a.router
}

// registerHandlers registers all the API handlers.
func (a *API) registerHandlers() {
	log.Infow("register handler", "endpoint", PingEndpoint, "method", "GET")
	a.router.Get(PingEndpoint, func(w http.ResponseWriter, r *http.Request) {
		httpWriteOK(w)
	})
	log.Infow("register handler", "endpoint", ParamsEndpoint, "method", "GET")
	a.router.Get(ParamsEndpoint, a.protocolParams)
	log.Infow("register handler", "endpoint", AccountsEndpoint, "method", "GET")
	a.router.Get(AccountsEndpoint, a.listAccounts)
	log.Infow("register handler", "endpoint", AccountEndpoint, "method", "GET")
	a.router.Get(AccountEndpoint, a.accountInfo)
	log.Infow("register handler", "endpoint", BalanceEndpoint, "method", "GET")
	a.router.Get(BalanceEndpoint, a.balance)
	log.Infow("register handler", "endpoint", RequestsEndpoint, "method", "POST")
	a.router.Post(RequestsEndpoint, a.newRequest)
	log.Infow("register handler", "endpoint", SubmissionsEndpoint, "method", "GET")
	a.router.Get(SubmissionsEndpoint, a.submissions)
	log.Infow("register handler", "endpoint", AuditEndpoint, "method", "GET")
	a.router.Get(AuditEndpoint, a.auditRecords)
}

// initRouter creates the router with all the routes and middleware.
func (a *API) initRouter() {
	a.router = chi.NewRouter()
	a.router.Use(cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	}).Handler)
	a.router.Use(middleware.Logger)
	a.router.Use(middleware.Recoverer)
	a.router.Use(middleware.Throttle(100))
	// proving may take a while
	a.router.Use(middleware.Timeout(5 * time.Minute))

	a.registerHandlers()
}
