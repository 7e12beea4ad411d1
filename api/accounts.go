package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"slices"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"

	"github.com/encryptederc/eerc-client/crypto/field"
	"github.com/encryptederc/eerc-client/log"
	"github.com/encryptederc/eerc-client/proof"
	"github.com/encryptederc/eerc-client/types"
	"github.com/encryptederc/eerc-client/web3"
)

// protocolParams returns the protocol constants
// GET /params
func (a *API) protocolParams(w http.ResponseWriter, r *http.Request) {
	httpWriteJSON(w, &Params{
		ChainID:          types.NewInt(a.params.ChainID),
		CurveType:        a.params.CurveType,
		MaxAmount:        a.params.MaxAmount,
		BurnSentinel:     a.params.BurnSentinel,
		AuditorPublicKey: pointEC(a.params.AuditorPublicKey),
	})
}

// listAccounts returns the addresses of the local accounts
// GET /accounts
func (a *API) listAccounts(w http.ResponseWriter, r *http.Request) {
	a.mu.RLock()
	addrs := make([]common.Address, 0, len(a.accounts))
	for addr := range a.accounts {
		addrs = append(addrs, addr)
	}
	a.mu.RUnlock()
	slices.SortFunc(addrs, func(x, y common.Address) int { return x.Cmp(y) })
	httpWriteJSON(w, &Accounts{Addresses: addrs})
}

// accountFromURL resolves the account of the address URL parameter. It
// writes the error response and returns false if there is none.
func (a *API) accountFromURL(w http.ResponseWriter, r *http.Request) (AccountService, bool) {
	param := chi.URLParam(r, AddressURLParam)
	if !common.IsHexAddress(param) {
		ErrMalformedAddress.Withf("%q", param).Write(w)
		return nil, false
	}
	acc, ok := a.account(common.HexToAddress(param))
	if !ok {
		ErrAccountNotFound.With(param).Write(w)
		return nil, false
	}
	return acc, true
}

// accountInfo returns the public key, encrypted balance and counter
// GET /accounts/{address}
func (a *API) accountInfo(w http.ResponseWriter, r *http.Request) {
	svc, ok := a.accountFromURL(w, r)
	if !ok {
		return
	}
	acc := svc.Account()
	balance := acc.Balance()
	httpWriteJSON(w, &Account{
		Address:        acc.Address,
		PublicKey:      pointEC(acc.Keypair.PublicKey),
		Balance:        balance,
		EncodedBalance: balance.Serialize(),
		Counter:        acc.Counter(),
	})
}

// balance returns the decrypted balance
// GET /accounts/{address}/balance
func (a *API) balance(w http.ResponseWriter, r *http.Request) {
	svc, ok := a.accountFromURL(w, r)
	if !ok {
		return
	}
	b, err := svc.Balance()
	if err != nil {
		ErrGenericInternalServerError.Withf("cannot decrypt balance: %v", err).Write(w)
		return
	}
	httpWriteJSON(w, &Balance{Address: svc.Account().Address, Balance: types.NewInt(b)})
}

// newRequest builds a proof request for the account, and proves and submits
// it when asked to.
// POST /accounts/{address}/requests
func (a *API) newRequest(w http.ResponseWriter, r *http.Request) {
	svc, ok := a.accountFromURL(w, r)
	if !ok {
		return
	}
	body := &NewRequest{}
	if err := json.NewDecoder(r.Body).Decode(body); err != nil {
		if errors.Is(err, proof.ErrUnsupportedType) {
			ErrInvalidRequestType.WithErr(err).Write(w)
			return
		}
		ErrMalformedBody.Withf("could not decode request body: %v", err).Write(w)
		return
	}
	op := proof.Operation{Amount: amountOrZero(body.Amount), Recipient: body.Recipient}
	if body.Type == proof.TypeTransfer && body.Recipient == (common.Address{}) {
		ErrMalformedBody.With("transfer needs a recipient").Write(w)
		return
	}

	req, err := svc.Build(r.Context(), body.Type, op)
	if err != nil {
		requestError(err).Write(w)
		return
	}
	if !body.Submit {
		log.Infow("proof request built", "id", req.ID.String(), "type", req.Type.String(), "counter", req.Counter)
		httpWriteJSON(w, requestResponse(req))
		return
	}
	sub, err := svc.Submit(r.Context(), req)
	if err != nil {
		requestError(err).Write(w)
		return
	}
	httpWriteJSON(w, submissionResponse(sub))
}

// requestError maps the errors of building and submitting requests to API
// errors.
func requestError(err error) Error {
	switch {
	case errors.Is(err, proof.ErrUnsupportedType):
		return ErrInvalidRequestType.WithErr(err)
	case errors.Is(err, field.ErrOutOfRange):
		return ErrAmountOutOfRange.WithErr(err)
	case errors.Is(err, proof.ErrInsufficientBalance):
		return ErrInsufficientBalance.WithErr(err)
	case errors.Is(err, proof.ErrMissingAuditor):
		return ErrMissingAuditor.WithErr(err)
	case errors.Is(err, web3.ErrNotRegistered):
		return ErrRecipientNotRegistered.WithErr(err)
	case errors.Is(err, proof.ErrProver):
		return ErrProverFailed.WithErr(err)
	case errors.Is(err, web3.ErrChain):
		return ErrChainFailed.WithErr(err)
	}
	return ErrGenericInternalServerError.WithErr(err)
}

// submissions lists the transactions of the account not yet reconciled
// GET /accounts/{address}/submissions
func (a *API) submissions(w http.ResponseWriter, r *http.Request) {
	svc, ok := a.accountFromURL(w, r)
	if !ok {
		return
	}
	subs, err := a.storage.PendingSubmissions(svc.Account().Address)
	if err != nil {
		ErrGenericInternalServerError.WithErr(err).Write(w)
		return
	}
	resp := &Submissions{Submissions: []*Submission{}}
	for _, s := range subs {
		resp.Submissions = append(resp.Submissions, submissionResponse(s))
	}
	httpWriteJSON(w, resp)
}

// auditRecords lists the amounts decrypted in auditor mode
// GET /audit
func (a *API) auditRecords(w http.ResponseWriter, r *http.Request) {
	records, err := a.storage.AuditRecords()
	if err != nil {
		ErrGenericInternalServerError.WithErr(err).Write(w)
		return
	}
	resp := &AuditRecords{Records: []*AuditRecord{}}
	for _, rec := range records {
		resp.Records = append(resp.Records, &AuditRecord{
			Kind:     rec.Kind,
			From:     rec.From,
			To:       rec.To,
			Amount:   rec.Amount,
			Block:    rec.Block,
			LogIndex: rec.LogIndex,
			TxHash:   rec.TxHash,
		})
	}
	httpWriteJSON(w, resp)
}
