package auth

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Well-known hardhat account #0; only used as a fixed test vector.
const testKeyHex = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
const testAddress = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"

func TestAuthMessage(t *testing.T) {
	if got := AuthMessage(1700000000); got != "Authenticate to EchoLink AI: 1700000000" {
		t.Errorf("AuthMessage: got %q", got)
	}
}

// ── Key ───────────────────────────────────────────────────────────────────────

func TestNewKey_Address(t *testing.T) {
	k, err := NewKey(testKeyHex)
	if err != nil {
		t.Fatalf("NewKey: %v", err)
	}
	if k.Address().Hex() != testAddress {
		t.Errorf("address: got %s want %s", k.Address().Hex(), testAddress)
	}

	// same key without the prefix
	k2, err := NewKey(strings.TrimPrefix(testKeyHex, "0x"))
	if err != nil {
		t.Fatalf("NewKey without prefix: %v", err)
	}
	if k2.Address() != k.Address() {
		t.Error("prefix changed the derived address")
	}
}

func TestNewKey_Invalid(t *testing.T) {
	for _, in := range []string{"", "0x", "0x1234", strings.Repeat("zz", 32)} {
		if _, err := NewKey(in); err == nil {
			t.Errorf("NewKey(%q): expected error", in)
		}
	}
}

// ── SignedHeaders ─────────────────────────────────────────────────────────────

// TestNewSignedHeaders_FixedTimestamp: for a fixed identity and timestamp the
// signature verifies against the identity's address.
func TestNewSignedHeaders_FixedTimestamp(t *testing.T) {
	k, _ := NewKey(testKeyHex)
	now := time.Unix(1_700_000_000, 0)

	sh, err := NewSignedHeaders(k, now)
	if err != nil {
		t.Fatalf("NewSignedHeaders: %v", err)
	}
	if sh.Timestamp != 1_700_000_000 {
		t.Errorf("Timestamp: got %d", sh.Timestamp)
	}
	if sh.Address != testAddress {
		t.Errorf("Address: got %s", sh.Address)
	}

	sig, err := hexutil.Decode(sh.Signature)
	if err != nil {
		t.Fatalf("signature not hex: %v", err)
	}
	got, err := Recover([]byte("Authenticate to EchoLink AI: 1700000000"), sig)
	if err != nil {
		t.Fatalf("Recover: %v", err)
	}
	if got.Hex() != testAddress {
		t.Errorf("recovered %s, want %s", got.Hex(), testAddress)
	}

	// secp256k1 signing in go-ethereum is deterministic (RFC 6979)
	again, _ := NewSignedHeaders(k, now)
	if again.Signature != sh.Signature {
		t.Error("signature for the same key and timestamp changed")
	}
}

func TestNewSignedHeaders_NoIdentity(t *testing.T) {
	if _, err := NewSignedHeaders(nil, time.Now()); err == nil {
		t.Fatal("expected error without identity")
	}
}

func TestApply_SetsFourHeaders(t *testing.T) {
	k, _ := NewKey(testKeyHex)
	sh, _ := NewSignedHeaders(k, time.Unix(1234, 0))

	h := http.Header{}
	sh.Apply(h)

	if h.Get("X-Wallet-Address") != testAddress {
		t.Errorf("X-Wallet-Address: %q", h.Get("X-Wallet-Address"))
	}
	if h.Get("X-Auth-Timestamp") != "1234" {
		t.Errorf("X-Auth-Timestamp: %q", h.Get("X-Auth-Timestamp"))
	}
	if !strings.HasPrefix(h.Get("X-Wallet-Signature"), "0x") {
		t.Errorf("X-Wallet-Signature: %q", h.Get("X-Wallet-Signature"))
	}
	if h.Get("Content-Type") != "application/json" {
		t.Errorf("Content-Type: %q", h.Get("Content-Type"))
	}
}

// ── Verify ────────────────────────────────────────────────────────────────────

func TestVerify(t *testing.T) {
	k, _ := NewKey(testKeyHex)
	now := time.Unix(1_700_000_000, 0)
	sh, _ := NewSignedHeaders(k, now)

	if _, err := Verify(sh, now.Add(time.Minute), DefaultWindow); err != nil {
		t.Fatalf("fresh headers rejected: %v", err)
	}
	if _, err := Verify(sh, now.Add(10*time.Minute), DefaultWindow); err == nil {
		t.Error("stale headers accepted")
	}
	if _, err := Verify(sh, now.Add(-10*time.Minute), DefaultWindow); err == nil {
		t.Error("future-dated headers accepted")
	}

	noPrefix := sh
	noPrefix.Signature = strings.TrimPrefix(sh.Signature, "0x")
	if _, err := Verify(noPrefix, now, DefaultWindow); err != nil {
		t.Errorf("signature without 0x rejected: %v", err)
	}

	lower := sh
	lower.Address = strings.ToLower(sh.Address)
	if _, err := Verify(lower, now, DefaultWindow); err != nil {
		t.Errorf("lowercase address rejected: %v", err)
	}

	other := sh
	other.Address = "0x000000000000000000000000000000000000dEaD"
	if _, err := Verify(other, now, DefaultWindow); err == nil {
		t.Error("mismatched address accepted")
	}
}

func TestParseHeaders_Missing(t *testing.T) {
	h := http.Header{}
	h.Set(HeaderAddress, testAddress)
	if _, err := ParseHeaders(h); err == nil {
		t.Fatal("expected error for missing signature and timestamp")
	}
	h.Set(HeaderSignature, "0x00")
	h.Set(HeaderTimestamp, "not-a-number")
	if _, err := ParseHeaders(h); err == nil {
		t.Fatal("expected error for bad timestamp")
	}
}
