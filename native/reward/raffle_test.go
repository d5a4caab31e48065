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

func newRaffle(t *testing.T, mem *ledger.Memory, cfg TokenRaffleConfig) *TokenRaffle {
	t.Helper()
	raw, err := cfg.Encode()
	if err != nil {
		t.Fatalf("encode config: %v", err)
	}
	st := state.NewManager(storage.NewMemDB())
	mod, err := New(TemplateTokenRaffle, [32]byte{0x03}, raw, st, Ledgers{Tokens: mem}, testParams())
	if err != nil {
		t.Fatalf("new raffle: %v", err)
	}
	if err := mod.Initialize(); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	return mod.(*TokenRaffle)
}

func TestRaffleClaimRecordsEntry(t *testing.T) {
	mem := ledger.NewMemory()
	raffle := newRaffle(t, mem, TokenRaffleConfig{
		Token:       "CGT",
		PrizePool:   big.NewInt(900),
		WinnerCount: 1,
		Funder:      funder,
		ClaimStart:  1_000,
	})
	now := time.Unix(2_000, 0)
	entrants := [][20]byte{{0xd1}, {0xd2}, {0xd3}}

	for _, entrant := range entrants {
		dist, err := raffle.Claim(entrant, nil, now)
		if err != nil {
			t.Fatalf("claim: %v", err)
		}
		if dist.Amount != nil {
			t.Fatalf("raffle entry must not pay out, got %s", dist.Amount)
		}
	}
	got, err := raffle.Entries()
	if err != nil {
		t.Fatalf("entries: %v", err)
	}
	if len(got) != len(entrants) {
		t.Fatalf("expected %d entrants, got %d", len(entrants), len(got))
	}
	for i := range entrants {
		if got[i] != entrants[i] {
			t.Fatalf("entrant %d out of order", i)
		}
	}
	if _, err := raffle.Claim(entrants[0], nil, now); !errors.Is(err, ErrAlreadyClaimed) {
		t.Fatalf("expected already claimed, got %v", err)
	}
}

func TestRaffleDrawPaysWinnersOnce(t *testing.T) {
	mem := ledger.NewMemory()
	if err := mem.SetBalance(funder, "CGT", big.NewInt(1_000), 1); err != nil {
		t.Fatalf("seed escrow: %v", err)
	}
	if err := mem.Approve(funder, ctrl, "CGT", big.NewInt(1_000)); err != nil {
		t.Fatalf("approve escrow: %v", err)
	}
	raffle := newRaffle(t, mem, TokenRaffleConfig{
		Token:       "CGT",
		PrizePool:   big.NewInt(900),
		WinnerCount: 2,
		Funder:      funder,
		ClaimStart:  1_000,
	})
	raffle.SetRandFunc(func(uint64) uint64 { return 0 })
	now := time.Unix(2_000, 0)
	entrants := [][20]byte{{0xd4}, {0xd5}, {0xd6}}
	for _, entrant := range entrants {
		if _, err := raffle.Claim(entrant, nil, now); err != nil {
			t.Fatalf("claim: %v", err)
		}
	}

	result, err := raffle.Draw(time.Unix(3_000, 0))
	if err != nil {
		t.Fatalf("draw: %v", err)
	}
	if len(result.Winners) != 2 {
		t.Fatalf("expected 2 winners, got %d", len(result.Winners))
	}
	if result.PrizePerWinner.Cmp(big.NewInt(450)) != 0 {
		t.Fatalf("unexpected prize %s", result.PrizePerWinner)
	}
	seen := make(map[[20]byte]bool)
	for _, winner := range result.Winners {
		if seen[winner] {
			t.Fatalf("winner selected twice")
		}
		seen[winner] = true
		balance, err := mem.BalanceAt(winner, "CGT", 0)
		if err != nil {
			t.Fatalf("balance: %v", err)
		}
		if balance.Cmp(big.NewInt(450)) != 0 {
			t.Fatalf("winner balance %s, want 450", balance)
		}
	}
	recorded, err := raffle.Winners()
	if err != nil {
		t.Fatalf("winners: %v", err)
	}
	if len(recorded) != 2 {
		t.Fatalf("winners not persisted")
	}

	if _, err := raffle.Draw(time.Unix(4_000, 0)); !errors.Is(err, ErrRaffleDrawn) {
		t.Fatalf("expected raffle drawn, got %v", err)
	}
	// Entries after the draw can never win, so the inventory is exhausted.
	if _, err := raffle.Claim([20]byte{0xd7}, nil, now); !errors.Is(err, ErrSupplyExhausted) {
		t.Fatalf("expected supply exhausted after draw, got %v", err)
	}
}

func TestRaffleDrawFewerEntrantsThanWinners(t *testing.T) {
	mem := ledger.NewMemory()
	if err := mem.SetBalance(funder, "CGT", big.NewInt(1_000), 1); err != nil {
		t.Fatalf("seed escrow: %v", err)
	}
	if err := mem.Approve(funder, ctrl, "CGT", big.NewInt(1_000)); err != nil {
		t.Fatalf("approve escrow: %v", err)
	}
	raffle := newRaffle(t, mem, TokenRaffleConfig{
		Token:       "CGT",
		PrizePool:   big.NewInt(900),
		WinnerCount: 5,
		Funder:      funder,
		ClaimStart:  1_000,
	})
	now := time.Unix(2_000, 0)
	if _, err := raffle.Claim([20]byte{0xd8}, nil, now); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if _, err := raffle.Claim([20]byte{0xd9}, nil, now); err != nil {
		t.Fatalf("claim: %v", err)
	}

	result, err := raffle.Draw(time.Unix(3_000, 0))
	if err != nil {
		t.Fatalf("draw: %v", err)
	}
	if len(result.Winners) != 2 {
		t.Fatalf("expected every entrant to win, got %d", len(result.Winners))
	}
	if result.PrizePerWinner.Cmp(big.NewInt(450)) != 0 {
		t.Fatalf("unexpected prize %s", result.PrizePerWinner)
	}
}

func TestRaffleDrawGuards(t *testing.T) {
	mem := ledger.NewMemory()
	raffle := newRaffle(t, mem, TokenRaffleConfig{
		Token:       "CGT",
		PrizePool:   big.NewInt(900),
		WinnerCount: 1,
		Funder:      funder,
		ClaimStart:  1_000,
	})
	if _, err := raffle.Draw(time.Unix(3_000, 0)); !errors.Is(err, ErrNoEntrants) {
		t.Fatalf("expected no entrants, got %v", err)
	}

	now := time.Unix(2_000, 0)
	if _, err := raffle.Claim([20]byte{0xda}, nil, now); err != nil {
		t.Fatalf("claim: %v", err)
	}
	// No escrow funding: the draw aborts before writing the drawn flag.
	if _, err := raffle.Draw(time.Unix(3_000, 0)); !errors.Is(err, ErrEscrowUnderfunded) {
		t.Fatalf("expected escrow underfunded, got %v", err)
	}
	drawn, err := raffle.isDrawn()
	if err != nil {
		t.Fatalf("is drawn: %v", err)
	}
	if drawn {
		t.Fatalf("failed draw must not latch the drawn flag")
	}
}
