package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/encryptederc/eerc-client/account"
	"github.com/encryptederc/eerc-client/config"
	"github.com/encryptederc/eerc-client/crypto/ethereum"
	"github.com/encryptederc/eerc-client/log"
	"github.com/encryptederc/eerc-client/proof"
	"github.com/encryptederc/eerc-client/reconciler"
	"github.com/encryptederc/eerc-client/service"
	"github.com/encryptederc/eerc-client/storage"
	storagedb "github.com/encryptederc/eerc-client/storage/db"
	"github.com/encryptederc/eerc-client/web3"
)

const artifactsTimeout = 2 * time.Minute

func main() {
	cfg, err := config.Load(os.Args[1:], ".env")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if err := log.Init(cfg.LogLevel, cfg.LogOutput, nil); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	if err := run(ctx, cfg); err != nil {
		log.Fatalf("eerc-client: %v", err)
	}
}

type backend struct {
	params   *config.Params
	chain    web3.ChainClient
	prover   proof.Prover
	verifier proof.Verifier
}

func run(ctx context.Context, cfg *config.Config) error {
	params, err := cfg.Params()
	if err != nil {
		return err
	}
	var auditor *account.Keypair
	if cfg.AuditorPrivateKey != "" {
		sk, err := params.Scalar.FromString(cfg.AuditorPrivateKey)
		if err != nil {
			return fmt.Errorf("invalid auditor key: %w", err)
		}
		if auditor, err = account.NewKeypair(params, sk); err != nil {
			return fmt.Errorf("invalid auditor key: %w", err)
		}
	}

	signer := ethereum.NewSignKeys()
	if cfg.PrivateKey != "" {
		if err := signer.AddHexKey(cfg.PrivateKey); err != nil {
			return fmt.Errorf("invalid private key: %w", err)
		}
	} else if err := signer.Generate(); err != nil {
		return err
	}

	var b *backend
	if cfg.Mock {
		b, err = mockBackend(params, auditor)
	} else {
		b, err = chainBackend(ctx, cfg, params)
	}
	if err != nil {
		return err
	}

	acc, err := account.Register(ctx, b.params, signer, signer.Address())
	if err != nil {
		return err
	}
	log.Infow("local account ready", "address", acc.Address.Hex(), "publicKey", acc.Keypair.PublicKey.String())
	if _, err := b.chain.PublicKey(ctx, acc.Address); errors.Is(err, web3.ErrNotRegistered) {
		log.Infow("account not registered yet, submit a register request through the API")
	}

	database, err := storagedb.New(cfg.DBType, cfg.DataDir)
	if err != nil {
		return err
	}
	stg := storage.New(database)
	defer stg.Close()

	rec := reconciler.New(b.params, acc, stg)
	restored, err := rec.Restore()
	if err != nil {
		return fmt.Errorf("cannot restore account state: %w", err)
	}
	log.Infow("account state restored", "events", restored)

	monitor := service.NewEventMonitor(b.chain, stg, cfg.MonitorInterval)
	monitor.SetStartBlock(cfg.StartBlock)
	monitor.AddReconciler(rec)
	if auditor != nil {
		log.Infow("auditor mode enabled", "publicKey", auditor.PublicKey.String())
		monitor.AddReconciler(reconciler.New(b.params, nil, stg).WithAuditor(auditor))
	}
	if err := monitor.Start(ctx); err != nil {
		return err
	}
	defer monitor.Stop()

	wallet := service.NewWallet(b.params, acc, b.chain, b.prover, stg)
	if b.verifier != nil {
		wallet.WithVerifier(b.verifier)
	}
	apiService := service.NewAPI(b.params, stg, cfg.APIHost, cfg.APIPort, wallet)
	if err := apiService.Start(ctx); err != nil {
		return err
	}
	defer apiService.Stop()

	<-ctx.Done()
	log.Infow("shutting down")
	return nil
}

// mockBackend runs everything in memory. Without an auditor key a random
// one is used.
func mockBackend(params *config.Params, auditor *account.Keypair) (*backend, error) {
	if auditor == nil {
		sk, err := params.Engine.RandomScalar()
		if err != nil {
			return nil, err
		}
		if auditor, err = account.NewKeypair(params, sk); err != nil {
			return nil, err
		}
	}
	params = params.WithAuditor(auditor.PublicKey)
	log.Warnw("running with an in-memory chain and a mock prover")
	return &backend{
		params:   params,
		chain:    service.NewMockChain(params).WithVerifier(proof.MockVerifier{}),
		prover:   &proof.MockProver{},
		verifier: proof.MockVerifier{},
	}, nil
}

func chainBackend(ctx context.Context, cfg *config.Config, params *config.Params) (*backend, error) {
	contracts, err := web3.NewContracts(&web3.Addresses{
		Token:     common.HexToAddress(cfg.ContractAddress),
		Registrar: common.HexToAddress(cfg.RegistrarAddress),
	}, cfg.Web3RPCs[0], params.NewPoint())
	if err != nil {
		return nil, err
	}
	if contracts.ChainID() != cfg.ChainID {
		return nil, fmt.Errorf("web3 endpoint is on chain %d, expected %d", contracts.ChainID(), cfg.ChainID)
	}
	for _, uri := range cfg.Web3RPCs[1:] {
		if err := contracts.AddWeb3Endpoint(uri); err != nil {
			log.Warnw("failed to add web3 endpoint", "rpc", uri, "error", err.Error())
		}
	}
	if err := contracts.SetAccountPrivateKey(cfg.PrivateKey); err != nil {
		return nil, err
	}
	if key, err := contracts.AuditorPublicKey(ctx); err != nil {
		log.Warnw("auditor key not available, mint, transfer and burn are disabled", "error", err.Error())
	} else {
		params = params.WithAuditor(key)
	}

	prover, err := service.LoadArtifacts(ctx, cfg.CircuitsDir, artifactsTimeout)
	if err != nil {
		return nil, err
	}
	log.Infow("contracts initialized", "chainId", contracts.ChainID(), "account", contracts.AccountAddress().Hex())
	return &backend{params: params, chain: contracts, prover: prover, verifier: prover}, nil
}
