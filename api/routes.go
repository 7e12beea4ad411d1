package api

const (
	// PingEndpoint is the endpoint for checking the API status
	PingEndpoint = "/ping"
	// ParamsEndpoint returns the protocol constants
	ParamsEndpoint = "/params"
	// AccountsEndpoint lists the local accounts
	AccountsEndpoint = "/accounts"
	AddressURLParam  = "address"
	// AccountEndpoint returns the public key, encrypted balance and counter
	// of a local account
	AccountEndpoint = "/accounts/{" + AddressURLParam + "}"
	// BalanceEndpoint returns the decrypted balance
	BalanceEndpoint = AccountEndpoint + "/balance"
	// RequestsEndpoint builds a proof request and, if asked, proves and
	// submits it
	RequestsEndpoint = AccountEndpoint + "/requests"
	// SubmissionsEndpoint lists the transactions waiting for their event
	SubmissionsEndpoint = AccountEndpoint + "/submissions"
	// AuditEndpoint lists the amounts decrypted in auditor mode
	AuditEndpoint = "/audit"
)
