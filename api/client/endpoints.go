package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/encryptederc/eerc-client/api"
)

// call performs the request and decodes a 200 response into a new T.
func call[T any](ctx context.Context, c *HTTPclient, method string, body any, urlPath string) (*T, error) {
	data, status, err := c.Request(ctx, method, body, urlPath)
	if err != nil {
		return nil, err
	}
	if err := responseError(status, data); err != nil {
		return nil, err
	}
	out := new(T)
	if err := json.Unmarshal(data, out); err != nil {
		return nil, fmt.Errorf("cannot decode %s response: %w", urlPath, err)
	}
	return out, nil
}

func accountPath(addr common.Address, suffix string) string {
	return strings.Replace(api.AccountEndpoint, "{"+api.AddressURLParam+"}", addr.Hex(), 1) + suffix
}

// Params returns the protocol constants of the server.
func (c *HTTPclient) Params(ctx context.Context) (*api.Params, error) {
	return call[api.Params](ctx, c, http.MethodGet, nil, api.ParamsEndpoint)
}

// Accounts lists the accounts served.
func (c *HTTPclient) Accounts(ctx context.Context) ([]common.Address, error) {
	resp, err := call[api.Accounts](ctx, c, http.MethodGet, nil, api.AccountsEndpoint)
	if err != nil {
		return nil, err
	}
	return resp.Addresses, nil
}

// Account returns the public state of addr.
func (c *HTTPclient) Account(ctx context.Context, addr common.Address) (*api.Account, error) {
	return call[api.Account](ctx, c, http.MethodGet, nil, accountPath(addr, ""))
}

// Balance returns the decrypted balance of addr.
func (c *HTTPclient) Balance(ctx context.Context, addr common.Address) (*api.Balance, error) {
	return call[api.Balance](ctx, c, http.MethodGet, nil, accountPath(addr, "/balance"))
}

// BuildRequest asks the server to build a proof request for addr.
func (c *HTTPclient) BuildRequest(ctx context.Context, addr common.Address, req *api.NewRequest) (*api.Request, error) {
	body := *req
	body.Submit = false
	return call[api.Request](ctx, c, http.MethodPost, &body, accountPath(addr, "/requests"))
}

// SubmitRequest asks the server to build, prove and submit a request for
// addr.
func (c *HTTPclient) SubmitRequest(ctx context.Context, addr common.Address, req *api.NewRequest) (*api.Submission, error) {
	body := *req
	body.Submit = true
	return call[api.Submission](ctx, c, http.MethodPost, &body, accountPath(addr, "/requests"))
}

// Submissions lists the pending submissions of addr.
func (c *HTTPclient) Submissions(ctx context.Context, addr common.Address) ([]*api.Submission, error) {
	resp, err := call[api.Submissions](ctx, c, http.MethodGet, nil, accountPath(addr, "/submissions"))
	if err != nil {
		return nil, err
	}
	return resp.Submissions, nil
}

// AuditRecords lists the amounts decrypted by the server in auditor mode.
func (c *HTTPclient) AuditRecords(ctx context.Context) ([]*api.AuditRecord, error) {
	resp, err := call[api.AuditRecords](ctx, c, http.MethodGet, nil, api.AuditEndpoint)
	if err != nil {
		return nil, err
	}
	return resp.Records, nil
}
