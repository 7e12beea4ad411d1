package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/encryptederc/eerc-client/proof"
	"github.com/encryptederc/eerc-client/prover/rapidsnark"
)

// LoadArtifacts reads the circuit artifacts of every proof type from dir
// concurrently and returns the prover using them.
func LoadArtifacts(ctx context.Context, dir string, timeout time.Duration) (*rapidsnark.Prover, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	var mu sync.Mutex
	artifacts := make(map[proof.Type]*rapidsnark.Artifacts, len(rapidsnark.Types))
	for _, typ := range rapidsnark.Types {
		g.Go(func() error {
			a, err := rapidsnark.ReadArtifacts(dir, typ)
			if err != nil {
				return fmt.Errorf("%s: %w", typ, err)
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			mu.Lock()
			artifacts[typ] = a
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return rapidsnark.New(artifacts), nil
}
