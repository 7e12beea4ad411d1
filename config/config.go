package config

import (
	"errors"
	"fmt"
	"io/fs"
	"math/big"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	flag "github.com/spf13/pflag"

	"github.com/encryptederc/eerc-client/crypto/ecc/curves"
	"github.com/encryptederc/eerc-client/log"
)

// EnvPrefix is the prefix of the environment variables read as fallback for
// the command line flags: --web3-rpc is read from EERC_WEB3_RPC.
const EnvPrefix = "EERC_"

// Config is the runtime configuration of the client.
type Config struct {
	LogLevel  string
	LogOutput string

	ChainID          uint64
	CurveType        string
	MaxAmount        uint64
	Web3RPCs         []string
	ContractAddress  string
	RegistrarAddress string
	StartBlock       uint64
	MonitorInterval  time.Duration

	// PrivateKey is the hex Ethereum key of the account.
	PrivateKey string
	// AuditorPrivateKey enables auditor mode when set (decimal or 0x hex).
	AuditorPrivateKey string

	CircuitsDir string
	Mock        bool

	// DBType is memory or pebble. DataDir is required for pebble.
	DBType  string
	DataDir string

	APIHost string
	APIPort int
}

// Load parses args into a Config. Flags not given on the command line are
// taken from the environment (EERC_ prefixed, dashes as underscores), after
// loading envFile if it exists.
func Load(args []string, envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("cannot load env file %s: %w", envFile, err)
		}
	}

	cfg := &Config{}
	fset := flag.NewFlagSet("eerc-client", flag.ContinueOnError)
	fset.StringVar(&cfg.LogLevel, "log-level", log.LogLevelInfo, "log level (debug, info, warn, error)")
	fset.StringVar(&cfg.LogOutput, "log-output", "stdout", "log output (stdout, stderr or a file path)")
	fset.Uint64Var(&cfg.ChainID, "chain-id", TestnetChainID, "chain id of the deployment")
	fset.StringVar(&cfg.CurveType, "curve", curves.CurveTypeBabyJubJub, "curve backend (bjj_iden3 or bjj_gnark)")
	fset.Uint64Var(&cfg.MaxAmount, "max-amount", DefaultMaxAmount, "largest recoverable balance")
	fset.StringSliceVar(&cfg.Web3RPCs, "web3-rpc", nil, "web3 rpc endpoints, comma separated")
	fset.StringVar(&cfg.ContractAddress, "contract", "", "EncryptedERC contract address")
	fset.StringVar(&cfg.RegistrarAddress, "registrar", "", "Registrar contract address")
	fset.Uint64Var(&cfg.StartBlock, "start-block", 0, "first block to reconcile events from")
	fset.DurationVar(&cfg.MonitorInterval, "monitor-interval", 5*time.Second, "event polling interval")
	fset.StringVar(&cfg.PrivateKey, "privkey", "", "Ethereum private key of the account (hex)")
	fset.StringVar(&cfg.AuditorPrivateKey, "auditor-privkey", "", "auditor BabyJubJub private key, enables auditor mode")
	fset.StringVar(&cfg.CircuitsDir, "circuits-dir", "circuits", "directory with the <type>.wasm, <type>.zkey and <type>_vkey.json artifacts")
	fset.BoolVar(&cfg.Mock, "mock", false, "use an in-memory chain and prover")
	fset.StringVar(&cfg.DBType, "db-type", "memory", "database type (memory or pebble)")
	fset.StringVar(&cfg.DataDir, "data-dir", "", "database directory, required for pebble")
	fset.StringVar(&cfg.APIHost, "api-host", "127.0.0.1", "local API listen host")
	fset.IntVar(&cfg.APIPort, "api-port", 8080, "local API listen port")

	if err := fset.Parse(args); err != nil {
		return nil, err
	}
	var envErr error
	fset.VisitAll(func(f *flag.Flag) {
		if f.Changed || envErr != nil {
			return
		}
		name := EnvPrefix + strings.ToUpper(strings.ReplaceAll(f.Name, "-", "_"))
		if v, ok := os.LookupEnv(name); ok {
			if err := fset.Set(f.Name, v); err != nil {
				envErr = fmt.Errorf("invalid value for %s: %w", name, err)
			}
		}
	})
	if envErr != nil {
		return nil, envErr
	}
	return cfg, cfg.Validate()
}

// Validate checks the configuration is usable.
func (c *Config) Validate() error {
	if !curves.IsSupported(c.CurveType) {
		return fmt.Errorf("unsupported curve type %q", c.CurveType)
	}
	if c.ChainID == 0 {
		return fmt.Errorf("chain id is required")
	}
	if c.MaxAmount == 0 {
		return fmt.Errorf("max amount must be positive")
	}
	if c.APIPort < 0 || c.APIPort > 65535 {
		return fmt.Errorf("invalid api port %d", c.APIPort)
	}
	if c.MonitorInterval <= 0 {
		return fmt.Errorf("monitor interval must be positive")
	}
	if c.DBType != "memory" && c.DataDir == "" {
		return fmt.Errorf("a data directory is required for %s databases", c.DBType)
	}
	if c.Mock {
		return nil
	}
	if len(c.Web3RPCs) == 0 {
		return fmt.Errorf("at least one web3 rpc endpoint is required")
	}
	for name, addr := range map[string]string{"contract": c.ContractAddress, "registrar": c.RegistrarAddress} {
		if !common.IsHexAddress(addr) {
			return fmt.Errorf("invalid %s address %q", name, addr)
		}
	}
	if c.PrivateKey == "" {
		return fmt.Errorf("private key is required")
	}
	return nil
}

// Params returns the protocol parameters described by the configuration.
func (c *Config) Params() (*Params, error) {
	return NewParams(new(big.Int).SetUint64(c.ChainID), c.CurveType, c.MaxAmount)
}
