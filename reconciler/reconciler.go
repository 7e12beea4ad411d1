// Package reconciler applies the deltas emitted by the eERC contracts to the
// local encrypted balance of an account, in chain order and exactly once.
package reconciler

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"slices"
	"sync"

	"github.com/vocdoni/arbo/memdb"

	"github.com/encryptederc/eerc-client/account"
	"github.com/encryptederc/eerc-client/config"
	"github.com/encryptederc/eerc-client/crypto/elgamal"
	"github.com/encryptederc/eerc-client/crypto/pct"
	"github.com/encryptederc/eerc-client/log"
	"github.com/encryptederc/eerc-client/storage"
	"github.com/encryptederc/eerc-client/types"
	"github.com/encryptederc/eerc-client/web3"
)

var (
	// ErrMalformedEvent is reported for events whose ciphertexts are not
	// valid field elements or curve points.
	ErrMalformedEvent = errors.New("malformed event")
	// ErrAlreadyApplied is reported for events at or before the last
	// applied position of the account.
	ErrAlreadyApplied = errors.New("event already applied")
)

// Report summarizes an Apply call. Skipped counts the events ignored, either
// because they do not concern the account or because they failed; the
// failures are listed in Errors.
type Report struct {
	Applied int
	Skipped int
	Audited int
	Errors  []error
}

func (r *Report) fail(err error) {
	r.Skipped++
	r.Errors = append(r.Errors, err)
}

// Reconciler applies chain events to one local account. With an auditor key
// it also decrypts the auditor ciphertext of every event it sees.
type Reconciler struct {
	params  *config.Params
	account *account.Account
	storage *storage.Storage
	auditor *account.Keypair

	mu sync.Mutex
}

// New returns a reconciler for acc. acc may be nil for an auditor-only
// reconciler. If stg is nil, an in-memory storage is used.
func New(params *config.Params, acc *account.Account, stg *storage.Storage) *Reconciler {
	if stg == nil {
		stg = storage.New(memdb.New())
	}
	return &Reconciler{params: params, account: acc, storage: stg}
}

// WithAuditor enables auditor mode.
func (r *Reconciler) WithAuditor(kp *account.Keypair) *Reconciler {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.auditor = kp
	return r
}

// Account returns the reconciled account, nil in auditor-only mode.
func (r *Reconciler) Account() *account.Account {
	return r.account
}

type action struct {
	dir   account.Direction
	delta []*big.Int
}

// actions returns the balance updates ev implies for the local account.
func (r *Reconciler) actions(ev *web3.Event) []action {
	addr := r.account.Address
	var acts []action
	switch ev.Kind {
	case web3.EventMint:
		if ev.User == addr {
			acts = append(acts, action{account.Credit, ev.RecipientDelta})
		}
	case web3.EventTransfer:
		if ev.From == addr {
			acts = append(acts, action{account.Debit, ev.SenderDelta})
		}
		if ev.To == addr {
			acts = append(acts, action{account.Credit, ev.RecipientDelta})
		}
	case web3.EventBurn:
		if ev.User == addr {
			acts = append(acts, action{account.Debit, ev.SenderDelta})
		}
		if r.params.IsBurnSentinel(addr) {
			acts = append(acts, action{account.Credit, ev.RecipientDelta})
		}
	}
	return acts
}

// Apply processes events sorted by (block, log index). Events for other
// accounts are skipped silently; malformed or already applied ones are
// skipped and reported. It only returns an error when ctx ends or the
// storage fails, together with the report of what was done so far.
func (r *Reconciler) Apply(ctx context.Context, events []*web3.Event) (*Report, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sorted := slices.Clone(events)
	sorted = slices.DeleteFunc(sorted, func(ev *web3.Event) bool { return ev == nil })
	slices.SortStableFunc(sorted, func(a, b *web3.Event) int {
		if a.BlockNumber != b.BlockNumber {
			if a.BlockNumber < b.BlockNumber {
				return -1
			}
			return 1
		}
		return int(a.LogIndex) - int(b.LogIndex)
	})

	report := &Report{}
	for _, ev := range sorted {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if r.auditor != nil {
			r.audit(ev, report)
		}
		if r.account == nil {
			continue
		}
		acts := r.actions(ev)
		if len(acts) == 0 {
			report.Skipped++
			continue
		}
		deltas, err := r.validate(ev, acts)
		if err != nil {
			log.Warnw("skipping malformed event", "event", ev.String(), "error", err.Error())
			report.fail(err)
			continue
		}
		if err := r.apply(ev, acts, deltas); err != nil {
			if errors.Is(err, ErrAlreadyApplied) {
				log.Debugw("skipping applied event", "event", ev.String())
				report.fail(err)
				continue
			}
			return report, err
		}
		report.Applied++
	}
	return report, nil
}

// validate checks the shape of the auditor ciphertext and of every delta
// that will be applied.
func (r *Reconciler) validate(ev *web3.Event, acts []action) ([]*elgamal.Ciphertext, error) {
	if _, err := pct.FromElements(ev.AuditorPCT); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrMalformedEvent, ev, err)
	}
	deltas := make([]*elgamal.Ciphertext, len(acts))
	for i, act := range acts {
		ct, err := elgamal.CiphertextFromFieldElements(r.params.NewPoint(), act.delta)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %s delta: %w", ErrMalformedEvent, ev, act.dir, err)
		}
		deltas[i] = ct
	}
	return deltas, nil
}

// apply records the event and updates the balance. The record goes first:
// once validated, ApplyDelta cannot fail.
func (r *Reconciler) apply(ev *web3.Event, acts []action, deltas []*elgamal.Ciphertext) error {
	addr := r.account.Address
	pos := storage.Marker{Block: ev.BlockNumber, LogIndex: ev.LogIndex}
	last, err := r.storage.LastApplied(addr)
	switch {
	case errors.Is(err, storage.ErrNotFound):
	case err != nil:
		return fmt.Errorf("cannot read last applied event: %w", err)
	case !last.Before(pos):
		return fmt.Errorf("%w: %s, last applied %s", ErrAlreadyApplied, ev, last)
	}

	record := &storage.AppliedEvent{
		Kind:     ev.Kind.String(),
		Block:    ev.BlockNumber,
		LogIndex: ev.LogIndex,
		TxHash:   ev.TxHash,
	}
	for i, act := range acts {
		record.Directions = append(record.Directions, act.dir.String())
		record.Delta = append(record.Delta, types.BigIntSlice(deltas[i].FieldElements())...)
	}
	if err := r.storage.RecordApplied(addr, record); err != nil {
		return fmt.Errorf("cannot record applied event: %w", err)
	}
	for i, act := range acts {
		if err := r.account.ApplyDelta(deltas[i], act.dir); err != nil {
			return err
		}
	}
	log.Debugw("event applied", "account", addr.Hex(), "event", ev.String(), "directions", record.Directions)
	return nil
}

// audit decrypts the auditor ciphertext of ev and stores the amount.
func (r *Reconciler) audit(ev *web3.Event, report *Report) {
	if ev.Kind == web3.EventRegister {
		return
	}
	p, err := pct.FromElements(ev.AuditorPCT)
	if err != nil {
		report.Errors = append(report.Errors, fmt.Errorf("%w: audit %s: %w", ErrMalformedEvent, ev, err))
		return
	}
	amount, err := pct.Decrypt(p, r.auditor.PrivateKey, r.params.NewPoint())
	if err != nil {
		report.Errors = append(report.Errors, fmt.Errorf("audit %s: %w", ev, err))
		return
	}
	rec := &storage.AuditRecord{
		Kind:     ev.Kind.String(),
		Amount:   types.NewInt(amount),
		Block:    ev.BlockNumber,
		LogIndex: ev.LogIndex,
		TxHash:   ev.TxHash,
	}
	switch ev.Kind {
	case web3.EventMint:
		rec.To = ev.User
	case web3.EventTransfer:
		rec.From, rec.To = ev.From, ev.To
	case web3.EventBurn:
		rec.From, rec.To = ev.User, r.params.BurnSentinel
	}
	if err := r.storage.SetAuditRecord(rec); err != nil {
		report.Errors = append(report.Errors, fmt.Errorf("audit %s: %w", ev, err))
		return
	}
	report.Audited++
}

// Restore rebuilds the account balance from the events recorded in the
// storage, for instance after a restart with a persistent database. The
// balance must be the initial one.
func (r *Reconciler) Restore() (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.account == nil {
		return 0, nil
	}
	records, err := r.storage.AppliedEvents(r.account.Address)
	if err != nil {
		return 0, err
	}
	for _, rec := range records {
		if len(rec.Delta) != len(rec.Directions)*elgamal.NumFieldElements {
			return 0, fmt.Errorf("corrupted applied event %s", rec.Marker())
		}
		for i, dir := range rec.Directions {
			elems := make([]*big.Int, elgamal.NumFieldElements)
			for j := range elems {
				elems[j] = rec.Delta[i*elgamal.NumFieldElements+j].MathBigInt()
			}
			ct, err := elgamal.CiphertextFromFieldElements(r.params.NewPoint(), elems)
			if err != nil {
				return 0, fmt.Errorf("corrupted applied event %s: %w", rec.Marker(), err)
			}
			d := account.Credit
			if dir == account.Debit.String() {
				d = account.Debit
			}
			if err := r.account.ApplyDelta(ct, d); err != nil {
				return 0, err
			}
		}
	}
	return len(records), nil
}
