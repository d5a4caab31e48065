package reward

import (
	"errors"
	"math/big"
	"testing"
	"time"

	"claimgate/core/state"
	"claimgate/ledger"
	"claimgate/storage"
)

func newMint(t *testing.T, mem *ledger.Memory, cfg NFTMintConfig) *NFTMint {
	t.Helper()
	raw, err := cfg.Encode()
	if err != nil {
		t.Fatalf("encode config: %v", err)
	}
	st := state.NewManager(storage.NewMemDB())
	mod, err := New(TemplateNFTMint, [32]byte{0x02}, raw, st, Ledgers{Tokens: mem, NFTs: mem}, testParams())
	if err != nil {
		t.Fatalf("new mint: %v", err)
	}
	if err := mod.Initialize(); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	return mod.(*NFTMint)
}

func TestMintSequentialAssignment(t *testing.T) {
	mem := ledger.NewMemory()
	mem.RegisterCollection("punks", 0x01)
	mint := newMint(t, mem, NFTMintConfig{
		Collection: "punks",
		MaxSupply:  3,
		BaseID:     100,
		ClaimStart: 1_000,
	})
	now := time.Unix(2_000, 0)

	for i, claimant := range [][20]byte{{0xb1}, {0xb2}, {0xb3}} {
		dist, err := mint.Claim(claimant, nil, now)
		if err != nil {
			t.Fatalf("claim %d: %v", i, err)
		}
		if !dist.HasTokenID || dist.TokenID != uint64(100+i) {
			t.Fatalf("claim %d assigned token %d, want %d", i, dist.TokenID, 100+i)
		}
		holder, ok := mem.OwnerOf("punks", dist.TokenID)
		if !ok || holder != claimant {
			t.Fatalf("token %d not minted to claimant", dist.TokenID)
		}
	}
	// The supply is exhausted for a fourth, distinct claimant.
	if _, err := mint.Claim([20]byte{0xb4}, nil, now); !errors.Is(err, ErrSupplyExhausted) {
		t.Fatalf("expected supply exhausted, got %v", err)
	}
}

func TestMintRandomizedPickAndRemove(t *testing.T) {
	mem := ledger.NewMemory()
	mem.RegisterCollection("punks", 0x01)
	mint := newMint(t, mem, NFTMintConfig{
		Collection: "punks",
		MaxSupply:  3,
		Randomized: true,
		Pool:       []uint64{7, 11, 13},
		ClaimStart: 1_000,
	})
	// Always pick the middle of the remaining pool.
	mint.SetRandFunc(func(n uint64) uint64 { return n / 2 })
	now := time.Unix(2_000, 0)

	assigned := make(map[uint64]bool)
	for _, claimant := range [][20]byte{{0xc1}, {0xc2}, {0xc3}} {
		dist, err := mint.Claim(claimant, nil, now)
		if err != nil {
			t.Fatalf("claim: %v", err)
		}
		if assigned[dist.TokenID] {
			t.Fatalf("token %d assigned twice", dist.TokenID)
		}
		assigned[dist.TokenID] = true
	}
	for _, id := range []uint64{7, 11, 13} {
		if !assigned[id] {
			t.Fatalf("token %d never assigned", id)
		}
	}
	remaining, err := mint.remaining()
	if err != nil {
		t.Fatalf("remaining: %v", err)
	}
	if len(remaining) != 0 {
		t.Fatalf("pool not drained: %v", remaining)
	}
	if _, err := mint.Claim([20]byte{0xc4}, nil, now); !errors.Is(err, ErrSupplyExhausted) {
		t.Fatalf("expected supply exhausted, got %v", err)
	}
}

func TestMintFlatFeeChargedToClaimant(t *testing.T) {
	mem := ledger.NewMemory()
	mem.RegisterCollection("punks", 0x01)
	claimant := [20]byte{0xc5}
	if err := mem.SetBalance(claimant, "CGT", big.NewInt(50), 1); err != nil {
		t.Fatalf("seed balance: %v", err)
	}
	mint := newMint(t, mem, NFTMintConfig{
		Collection: "punks",
		MaxSupply:  10,
		BaseID:     1,
		FeeToken:   "CGT",
		FeeBase:    big.NewInt(40),
		ClaimStart: 1_000,
	})
	now := time.Unix(2_000, 0)

	plan, err := mint.ProcessFee(claimant, bpsDenominator) // full fee base
	if err != nil {
		t.Fatalf("process fee: %v", err)
	}
	if plan.Fee.Cmp(big.NewInt(40)) != 0 {
		t.Fatalf("unexpected fee %s", plan.Fee)
	}
	if _, err := mint.Claim(claimant, plan, now); err != nil {
		t.Fatalf("claim: %v", err)
	}
	got, err := mem.BalanceAt(treasury, "CGT", 0)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if got.Cmp(big.NewInt(40)) != 0 {
		t.Fatalf("fee recipient got %s, want 40", got)
	}

	// A claimant who cannot cover the fee is rejected before any state moves.
	poor := [20]byte{0xc6}
	if _, err := mint.ProcessFee(poor, bpsDenominator); !errors.Is(err, ErrFeeUnpayable) {
		t.Fatalf("expected fee unpayable, got %v", err)
	}
}

func TestMintFailureUnwindsInventory(t *testing.T) {
	mem := ledger.NewMemory()
	mem.RegisterCollection("punks", 0x01)
	mint := newMint(t, mem, NFTMintConfig{
		Collection: "punks",
		MaxSupply:  5,
		BaseID:     1,
		ClaimStart: 1_000,
	})
	now := time.Unix(2_000, 0)
	claimant := [20]byte{0xc7}

	// Occupy the first sequential ID out of band so the mint leg fails.
	if err := mem.Mint("punks", [20]byte{0x99}, 1); err != nil {
		t.Fatalf("pre-mint: %v", err)
	}
	if _, err := mint.Claim(claimant, nil, now); !errors.Is(err, ledger.ErrTokenMinted) {
		t.Fatalf("expected mint collision, got %v", err)
	}
	claimed, err := mint.Claimed(claimant)
	if err != nil {
		t.Fatalf("claimed: %v", err)
	}
	if claimed {
		t.Fatalf("failed mint must unwind the claim mark")
	}
	total, err := mint.Distributed()
	if err != nil {
		t.Fatalf("distributed: %v", err)
	}
	if total.Sign() != 0 {
		t.Fatalf("failed mint must unwind the counter, got %s", total)
	}
}
