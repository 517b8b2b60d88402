package statetrie

import (
	"bytes"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

// TestEmptyAccountHash pins the RLP+Keccak hash of a brand-new
// account's encoding against a known-good vector.
func TestEmptyAccountHash(t *testing.T) {
	blob, err := EncodeAccount(NewEmptyAccount())
	if err != nil {
		t.Fatal(err)
	}
	got := crypto.Keccak256Hash(blob)
	want := common.HexToHash("0943e8ddb43403e237cc56ac8ec3e256006e0f75d8e79ca1457b123e5d51a45c")
	if got != want {
		t.Fatalf("empty account hash = %x, want %x", got, want)
	}
}

// TestAccountEncodeDecodeRoundTrip pins a populated account's RLP hash
// against a known-good vector and checks it decodes back unchanged.
func TestAccountEncodeDecodeRoundTrip(t *testing.T) {
	acc := &Account{
		Nonce:    99,
		Balance:  uint256.NewInt(100),
		Root:     crypto.Keccak256Hash([]byte("test_account_storage_root_1")),
		CodeHash: crypto.Keccak256Hash([]byte("test_account_code_hash_1")).Bytes(),
	}
	blob, err := EncodeAccount(acc)
	if err != nil {
		t.Fatal(err)
	}
	got := crypto.Keccak256Hash(blob)
	want := common.HexToHash("50ff7a13cd631ecb8098f811526d74d03c319f90ef01012930c6de21534cf4f6")
	if got != want {
		t.Fatalf("account hash = %x, want %x", got, want)
	}

	decoded, err := DecodeAccount(blob)
	if err != nil {
		t.Fatal(err)
	}
	if decoded.Nonce != acc.Nonce {
		t.Fatalf("decoded nonce = %d, want %d", decoded.Nonce, acc.Nonce)
	}
	if decoded.Balance.Cmp(acc.Balance) != 0 {
		t.Fatalf("decoded balance = %v, want %v", decoded.Balance, acc.Balance)
	}
	if decoded.Root != acc.Root {
		t.Fatalf("decoded root = %x, want %x", decoded.Root, acc.Root)
	}
	if !bytes.Equal(decoded.CodeHash, acc.CodeHash) {
		t.Fatalf("decoded code hash = %x, want %x", decoded.CodeHash, acc.CodeHash)
	}
}
