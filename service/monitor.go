package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/vocdoni/arbo/memdb"
	"golang.org/x/sync/errgroup"

	"github.com/encryptederc/eerc-client/log"
	"github.com/encryptederc/eerc-client/reconciler"
	"github.com/encryptederc/eerc-client/storage"
	"github.com/encryptederc/eerc-client/web3"
)

// DefaultBlockRange is the maximum number of blocks requested in a single
// FilterEvents call.
const DefaultBlockRange = 2000

// EventMonitor polls the chain for eERC events and feeds them to the
// reconcilers of the local accounts. The last scanned block is kept in the
// storage so a restart resumes where it stopped.
type EventMonitor struct {
	chain      web3.ChainClient
	storage    *storage.Storage
	interval   time.Duration
	startBlock uint64
	blockRange uint64

	mu          sync.Mutex
	cancel      context.CancelFunc
	done        chan struct{}
	reconcilers []*reconciler.Reconciler
}

// NewEventMonitor creates a new EventMonitor. If stg is nil, it uses a memory
// storage.
func NewEventMonitor(chain web3.ChainClient, stg *storage.Storage, interval time.Duration) *EventMonitor {
	if stg == nil {
		stg = storage.New(memdb.New())
	}
	return &EventMonitor{
		chain:      chain,
		storage:    stg,
		interval:   interval,
		blockRange: DefaultBlockRange,
	}
}

// SetStartBlock sets the first block scanned when the storage has no cursor,
// usually the deployment block of the contracts.
func (em *EventMonitor) SetStartBlock(block uint64) {
	em.mu.Lock()
	defer em.mu.Unlock()
	em.startBlock = block
}

// AddReconciler registers a reconciler to receive the events.
func (em *EventMonitor) AddReconciler(r *reconciler.Reconciler) {
	em.mu.Lock()
	defer em.mu.Unlock()
	em.reconcilers = append(em.reconcilers, r)
}

// Start begins polling. It returns an error if the service is already
// running.
func (em *EventMonitor) Start(ctx context.Context) error {
	em.mu.Lock()
	defer em.mu.Unlock()

	if em.cancel != nil {
		return fmt.Errorf("service already running")
	}
	if em.interval <= 0 {
		return fmt.Errorf("invalid poll interval %s", em.interval)
	}

	ctx, cancel := context.WithCancel(ctx)
	em.cancel = cancel
	em.done = make(chan struct{})
	go em.monitorEvents(ctx, em.done)
	return nil
}

// Stop halts the monitor and waits for the running poll to end.
func (em *EventMonitor) Stop() {
	em.mu.Lock()
	cancel, done := em.cancel, em.done
	em.cancel, em.done = nil, nil
	em.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

func (em *EventMonitor) monitorEvents(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(em.interval)
	defer ticker.Stop()
	for {
		if _, err := em.Sync(ctx); err != nil && ctx.Err() == nil {
			log.Warnw("event sync failed", "error", err.Error())
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Sync scans the blocks between the cursor and the chain head, in ranges of
// at most blockRange blocks, and applies the events found. The cursor only
// moves forward once every reconciler processed the range.
func (em *EventMonitor) Sync(ctx context.Context) (*reconciler.Report, error) {
	em.mu.Lock()
	reconcilers := append([]*reconciler.Reconciler{}, em.reconcilers...)
	from := em.startBlock
	em.mu.Unlock()

	cursor, err := em.storage.Cursor()
	switch {
	case err == nil:
		from = cursor + 1
	case !errors.Is(err, storage.ErrNotFound):
		return nil, fmt.Errorf("cannot read cursor: %w", err)
	}
	latest, err := em.chain.LatestBlock(ctx)
	if err != nil {
		return nil, err
	}

	total := &reconciler.Report{}
	for from <= latest {
		to := min(from+em.blockRange-1, latest)
		events, err := em.chain.FilterEvents(ctx, from, to)
		if err != nil {
			return total, err
		}
		if len(events) > 0 {
			log.Debugw("events found", "from", from, "to", to, "count", len(events))
		}
		reports, err := em.dispatch(ctx, reconcilers, events)
		for _, r := range reports {
			mergeReport(total, r)
		}
		if err != nil {
			return total, err
		}
		em.confirmSubmissions(events)
		if err := em.storage.SetCursor(to); err != nil {
			return total, fmt.Errorf("cannot store cursor: %w", err)
		}
		from = to + 1
	}
	return total, nil
}

// dispatch runs every reconciler over events concurrently.
func (em *EventMonitor) dispatch(ctx context.Context, reconcilers []*reconciler.Reconciler, events []*web3.Event) ([]*reconciler.Report, error) {
	reports := make([]*reconciler.Report, len(reconcilers))
	if len(events) == 0 {
		return nil, nil
	}
	g, ctx := errgroup.WithContext(ctx)
	for i, r := range reconcilers {
		g.Go(func() error {
			report, err := r.Apply(ctx, events)
			reports[i] = report
			for _, e := range report.Errors {
				log.Warnw("event not applied", "error", e.Error())
			}
			return err
		})
	}
	err := g.Wait()
	return reports, err
}

func (em *EventMonitor) confirmSubmissions(events []*web3.Event) {
	for _, ev := range events {
		err := em.storage.ConfirmSubmission(ev.TxHash)
		switch {
		case err == nil:
			log.Infow("submission confirmed", "txHash", ev.TxHash.Hex(), "event", ev.String())
		case !errors.Is(err, storage.ErrNotFound):
			log.Warnw("cannot confirm submission", "txHash", ev.TxHash.Hex(), "error", err.Error())
		}
	}
}

func mergeReport(dst, src *reconciler.Report) {
	if src == nil {
		return
	}
	dst.Applied += src.Applied
	dst.Skipped += src.Skipped
	dst.Audited += src.Audited
	dst.Errors = append(dst.Errors, src.Errors...)
}
