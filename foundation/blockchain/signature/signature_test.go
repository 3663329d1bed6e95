package signature_test

import (
	"strings"
	"testing"

	"github.com/checoin/checoin/foundation/blockchain/signature"
	"github.com/ethereum/go-ethereum/crypto"
)

const (
	pkHexKey = "fae85851bdf5c9f49923722ce38f3c1defcfd3619ef5453230a58ad805499959"
	address  = "04412ffaffb78f2931e193f1add952fcb84ceaa55c8491b3a71f25f89fbb482aaf9b74f0fc0d3b6a71da07425d3ef94ac0a1b1d7972f10c2c38bd77257b346fbf8"
	otherKey = "8dc79feefd3b86e2f9991def0e5ccd9a5128e104682407b308594bc1032ac7f0"
)

// =============================================================================

func Test_Signing(t *testing.T) {
	pk, err := crypto.HexToECDSA(pkHexKey)
	if err != nil {
		t.Fatalf("Should be able to generate a private key: %s", err)
	}

	addr := signature.PublicKeyToAddress(pk.PublicKey)
	if addr != address {
		t.Logf("got: %s", addr)
		t.Logf("exp: %s", address)
		t.Fatalf("Should get back the right address.")
	}

	hash := signature.Hash("Bill")

	sig, err := signature.Sign(hash, pk)
	if err != nil {
		t.Fatalf("Should be able to sign data: %s", err)
	}

	if err := signature.Verify(hash, sig, addr); err != nil {
		t.Fatalf("Should be able to verify the signature: %s", err)
	}

	if err := signature.Verify(signature.Hash("Jill"), sig, addr); err == nil {
		t.Fatalf("Should not verify the signature against different data.")
	}

	other, err := crypto.HexToECDSA(otherKey)
	if err != nil {
		t.Fatalf("Should be able to generate a private key: %s", err)
	}

	if err := signature.Verify(hash, sig, signature.PublicKeyToAddress(other.PublicKey)); err == nil {
		t.Fatalf("Should not verify the signature against a different address.")
	}
}

func Test_Hash(t *testing.T) {
	const hash = "2d711642b726b04401627ca9fbac32f5c8530fb1903cc4db02258717921a4881"

	h := signature.Hash("x")
	if h != hash {
		t.Logf("got: %s", h)
		t.Logf("exp: %s", hash)
		t.Fatalf("Should get back the right hash: %s", h[:6])
	}

	h = signature.Hash("x")
	if h != hash {
		t.Logf("got: %s", h)
		t.Logf("exp: %s", hash)
		t.Fatalf("Should get back the same hash twice.")
	}
}

func Test_IsAddress(t *testing.T) {
	type table struct {
		name    string
		address string
		valid   bool
	}

	tt := []table{
		{name: "valid", address: address, valid: true},
		{name: "short", address: address[:128], valid: false},
		{name: "prefix", address: "05" + address[2:], valid: false},
		{name: "nothex", address: address[:129] + "z", valid: false},
		{name: "uppercase", address: strings.ToUpper(address), valid: false},
		{name: "empty", address: "", valid: false},
	}

	for _, tst := range tt {
		f := func(t *testing.T) {
			if got := signature.IsAddress(tst.address); got != tst.valid {
				t.Logf("Test %s:\tgot: %v", tst.name, got)
				t.Logf("Test %s:\texp: %v", tst.name, tst.valid)
				t.Fatalf("Test %s:\tShould get back the right validation.", tst.name)
			}
		}

		t.Run(tst.name, f)
	}
}
