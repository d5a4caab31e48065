package activity

import (
	"errors"
	"testing"
	"time"

	"claimgate/crypto"
)

func newSigner(t *testing.T) (*crypto.PrivateKey, [20]byte) {
	t.Helper()
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return key, key.PubKey().Address().Bytes()
}

func TestProofVerify(t *testing.T) {
	key, signer := newSigner(t)
	claimant := [20]byte{0x01, 0x02, 0x03}
	now := time.Unix(1_700_000_000, 0).UTC()

	proof, err := SignProof(key, claimant, TagHoldNFTs, now)
	if err != nil {
		t.Fatalf("sign proof: %v", err)
	}
	if err := proof.Verify(claimant, signer, TagHoldNFTs, now.Add(time.Minute), time.Hour); err != nil {
		t.Fatalf("verify: %v", err)
	}
}

func TestProofVerifyWrongSigner(t *testing.T) {
	key, _ := newSigner(t)
	_, other := newSigner(t)
	claimant := [20]byte{0x04}
	now := time.Unix(1_700_000_000, 0).UTC()

	proof, err := SignProof(key, claimant, TagHoldTokens, now)
	if err != nil {
		t.Fatalf("sign proof: %v", err)
	}
	if err := proof.Verify(claimant, other, TagHoldTokens, now, time.Hour); !errors.Is(err, ErrProofSignature) {
		t.Fatalf("expected signature error, got %v", err)
	}
}

func TestProofVerifyTamperedSignature(t *testing.T) {
	key, signer := newSigner(t)
	claimant := [20]byte{0x05}
	now := time.Unix(1_700_000_000, 0).UTC()

	proof, err := SignProof(key, claimant, TagBuyNFTs, now)
	if err != nil {
		t.Fatalf("sign proof: %v", err)
	}
	proof.Signature = proof.Signature[:64]
	if err := proof.Verify(claimant, signer, TagBuyNFTs, now, time.Hour); !errors.Is(err, ErrProofSignature) {
		t.Fatalf("expected signature error for truncated signature, got %v", err)
	}
}

func TestProofVerifyStale(t *testing.T) {
	key, signer := newSigner(t)
	claimant := [20]byte{0x06}
	issued := time.Unix(1_700_000_000, 0).UTC()

	proof, err := SignProof(key, claimant, TagTokenSpend, issued)
	if err != nil {
		t.Fatalf("sign proof: %v", err)
	}
	now := issued.Add(2 * time.Hour)
	if err := proof.Verify(claimant, signer, TagTokenSpend, now, time.Hour); !errors.Is(err, ErrProofExpired) {
		t.Fatalf("expected expired error, got %v", err)
	}
	// ttl of zero disables the staleness check entirely.
	if err := proof.Verify(claimant, signer, TagTokenSpend, now, 0); err != nil {
		t.Fatalf("verify with unlimited ttl: %v", err)
	}
}

func TestProofVerifyFuture(t *testing.T) {
	key, signer := newSigner(t)
	claimant := [20]byte{0x07}
	now := time.Unix(1_700_000_000, 0).UTC()

	proof, err := SignProof(key, claimant, TagHoldNFTs, now.Add(2*time.Minute))
	if err != nil {
		t.Fatalf("sign proof: %v", err)
	}
	if err := proof.Verify(claimant, signer, TagHoldNFTs, now, time.Hour); !errors.Is(err, ErrProofFuture) {
		t.Fatalf("expected future error, got %v", err)
	}
	// Within the skew tolerance the proof is accepted.
	near, err := SignProof(key, claimant, TagHoldNFTs, now.Add(10*time.Second))
	if err != nil {
		t.Fatalf("sign proof: %v", err)
	}
	if err := near.Verify(claimant, signer, TagHoldNFTs, now, time.Hour); err != nil {
		t.Fatalf("verify within tolerance: %v", err)
	}
}

func TestProofVerifyMismatchedIdentity(t *testing.T) {
	key, signer := newSigner(t)
	claimant := [20]byte{0x08}
	now := time.Unix(1_700_000_000, 0).UTC()

	proof, err := SignProof(key, claimant, TagHoldNFTs, now)
	if err != nil {
		t.Fatalf("sign proof: %v", err)
	}
	other := [20]byte{0x09}
	if err := proof.Verify(other, signer, TagHoldNFTs, now, time.Hour); !errors.Is(err, ErrProofMalformed) {
		t.Fatalf("expected malformed error for claimant mismatch, got %v", err)
	}
	if err := proof.Verify(claimant, signer, TagHoldTokens, now, time.Hour); !errors.Is(err, ErrProofMalformed) {
		t.Fatalf("expected malformed error for kind mismatch, got %v", err)
	}
}

func TestProofVerifyNil(t *testing.T) {
	var proof *Proof
	if err := proof.Verify([20]byte{}, [20]byte{}, TagHoldNFTs, time.Now(), time.Hour); !errors.Is(err, ErrProofNil) {
		t.Fatalf("expected nil-proof error, got %v", err)
	}
}

func TestProofCanonicalMessage(t *testing.T) {
	claimant := [20]byte{0xaa, 0xbb}
	proof, err := NewProof(claimant, TagHoldNFTs, 1_700_000_000, []byte{0x01})
	if err != nil {
		t.Fatalf("new proof: %v", err)
	}
	msg, err := proof.CanonicalMessage()
	if err != nil {
		t.Fatalf("canonical message: %v", err)
	}
	want := ProofDomainV1 + "|claimant=" + crypto.NewAddress(claimant).String() + "|kind=hold_nfts|ts=1700000000"
	if msg != want {
		t.Fatalf("unexpected canonical message: %s", msg)
	}
}

func TestNewProofValidation(t *testing.T) {
	claimant := [20]byte{0x01}
	if _, err := NewProof(claimant, " ", 1, []byte{0x01}); !errors.Is(err, ErrProofMalformed) {
		t.Fatalf("expected malformed error for blank tag, got %v", err)
	}
	if _, err := NewProof(claimant, TagHoldNFTs, 0, []byte{0x01}); !errors.Is(err, ErrProofMalformed) {
		t.Fatalf("expected malformed error for zero timestamp, got %v", err)
	}
	if _, err := NewProof(claimant, TagHoldNFTs, 1, nil); !errors.Is(err, ErrProofMalformed) {
		t.Fatalf("expected malformed error for empty signature, got %v", err)
	}
}
