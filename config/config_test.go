package config

import (
	"errors"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"

	"github.com/encryptederc/eerc-client/crypto/ecc/curves"
	"github.com/encryptederc/eerc-client/crypto/field"
)

func TestParams(t *testing.T) {
	c := qt.New(t)
	p := TestnetParams()
	c.Assert(p.Validate(), qt.IsNil)
	c.Assert(p.ChainID.Int64(), qt.Equals, int64(TestnetChainID))
	c.Assert(p.Scalar.Modulus().Cmp(field.SubGroupOrder()), qt.Equals, 0)
	c.Assert(p.Field.Modulus().Cmp(field.SNARKFieldSize()), qt.Equals, 0)
	c.Assert(p.IsBurnSentinel(BurnSentinelAddress), qt.IsTrue)
	c.Assert(p.BurnSentinelPublicKey().String(), qt.Equals, "0,1")

	c.Assert(p.CheckAmount(big.NewInt(0)), qt.IsNil)
	c.Assert(p.CheckAmount(p.MaxAmountBig()), qt.IsNil)
	c.Assert(errors.Is(p.CheckAmount(big.NewInt(-1)), field.ErrOutOfRange), qt.IsTrue)
	c.Assert(errors.Is(p.CheckAmount(new(big.Int).Add(p.MaxAmountBig(), big.NewInt(1))), field.ErrOutOfRange), qt.IsTrue)

	auditor := p.NewPoint()
	auditor.ScalarBaseMult(big.NewInt(99))
	withAuditor := p.WithAuditor(auditor)
	c.Assert(withAuditor.Validate(), qt.IsNil)
	c.Assert(p.AuditorPublicKey, qt.IsNil)
	c.Assert(withAuditor.Engine, qt.Equals, p.Engine)

	gnarkAuditor := curves.New(curves.CurveTypeBabyJubJubGnark)
	gnarkAuditor.SetGenerator()
	c.Assert(p.WithAuditor(gnarkAuditor).Validate(), qt.Not(qt.IsNil))

	_, err := NewParams(big.NewInt(1), "secp256k1", 10)
	c.Assert(err, qt.Not(qt.IsNil))
	_, err = NewParams(big.NewInt(0), curves.CurveTypeBabyJubJub, 10)
	c.Assert(err, qt.Not(qt.IsNil))
}

func TestLoadFlags(t *testing.T) {
	c := qt.New(t)
	cfg, err := Load([]string{"--mock", "--chain-id", "1337", "--monitor-interval", "1s"}, "")
	c.Assert(err, qt.IsNil)
	c.Assert(cfg.Mock, qt.IsTrue)
	c.Assert(cfg.ChainID, qt.Equals, uint64(1337))
	c.Assert(cfg.MonitorInterval, qt.Equals, time.Second)

	p, err := cfg.Params()
	c.Assert(err, qt.IsNil)
	c.Assert(p.ChainID.Int64(), qt.Equals, int64(1337))
	c.Assert(cfg.DBType, qt.Equals, "memory")

	_, err = Load([]string{"--mock", "--db-type", "pebble"}, "")
	c.Assert(err, qt.ErrorMatches, "a data directory is required.*")

	_, err = Load([]string{"--web3-rpc", "http://localhost:8545"}, "")
	c.Assert(err, qt.ErrorMatches, "invalid contract address.*|invalid registrar address.*")
}

func TestLoadEnv(t *testing.T) {
	c := qt.New(t)
	envFile := filepath.Join(t.TempDir(), ".env")
	c.Assert(os.WriteFile(envFile, []byte("EERC_API_PORT=9999\n"), 0o600), qt.IsNil)
	t.Cleanup(func() { os.Unsetenv("EERC_API_PORT") })
	t.Setenv("EERC_MOCK", "true")
	t.Setenv("EERC_CHAIN_ID", "7")

	cfg, err := Load([]string{"--chain-id", "8"}, envFile)
	c.Assert(err, qt.IsNil)
	c.Assert(cfg.Mock, qt.IsTrue)
	c.Assert(cfg.APIPort, qt.Equals, 9999)
	// flags take precedence over the environment
	c.Assert(cfg.ChainID, qt.Equals, uint64(8))

	t.Setenv("EERC_API_PORT", "not-a-number")
	_, err = Load(nil, "")
	c.Assert(err, qt.Not(qt.IsNil))
}
