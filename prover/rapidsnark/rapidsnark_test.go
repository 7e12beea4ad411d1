package rapidsnark

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/encryptederc/eerc-client/proof"
)

func TestLoadDirMissingArtifacts(t *testing.T) {
	c := qt.New(t)
	dir := t.TempDir()
	c.Assert(os.WriteFile(filepath.Join(dir, "register.wasm"), []byte{0}, 0o600), qt.IsNil)

	_, err := LoadDir(dir)
	c.Assert(err, qt.ErrorMatches, "cannot load circuit artifact: .*")
}

func TestLoadDir(t *testing.T) {
	c := qt.New(t)
	dir := t.TempDir()
	for _, typ := range []string{"register", "mint", "transfer", "burn"} {
		for _, suffix := range []string{".wasm", ".zkey", "_vkey.json"} {
			c.Assert(os.WriteFile(filepath.Join(dir, typ+suffix), []byte(typ+suffix), 0o600), qt.IsNil)
		}
	}
	p, err := LoadDir(dir)
	c.Assert(err, qt.IsNil)
	c.Assert(p.artifacts, qt.HasLen, 4)
	c.Assert(string(p.artifacts[proof.TypeMint].ProvingKey), qt.Equals, "mint.zkey")
	c.Assert(p.artifacts[proof.TypeMint].Hash(), qt.HasLen, 64)
}

func TestProveUnknownType(t *testing.T) {
	c := qt.New(t)
	p := New(nil)
	_, err := p.Prove(context.Background(), &proof.Request{Type: proof.TypeTransfer})
	c.Assert(errors.Is(err, proof.ErrProver), qt.IsTrue)

	err = p.Verify(context.Background(), proof.TypeTransfer, &proof.Artifact{})
	c.Assert(err, qt.ErrorMatches, "no verification key for transfer")
}
