package reward

import (
	"math/big"
	"time"

	"claimgate/ledger"
)

// TokenRaffle records entrants at claim time and defers payout to an
// owner-triggered draw that splits the prize pool evenly across the winners.
type TokenRaffle struct {
	base
	cfg    TokenRaffleConfig
	tokens ledger.TokenLedger
	randFn func(uint64) uint64
}

func newTokenRaffle(id [32]byte, cfg TokenRaffleConfig, st State, tokens ledger.TokenLedger, params InitParams) *TokenRaffle {
	return &TokenRaffle{
		base: base{
			id:     id,
			tag:    TagTokenRaffle,
			st:     st,
			start:  cfg.ClaimStart,
			finish: cfg.ClaimFinish,
			params: params,
		},
		cfg:    cfg,
		tokens: tokens,
		randFn: defaultRand,
	}
}

// SetRandFunc overrides the index source for winner selection. Passing nil
// restores the system entropy pool.
func (r *TokenRaffle) SetRandFunc(fn func(uint64) uint64) {
	if fn == nil {
		r.randFn = defaultRand
		return
	}
	r.randFn = fn
}

func (r *TokenRaffle) Initialize() error { return r.initShared() }

func (r *TokenRaffle) isDrawn() (bool, error) {
	var drawn bool
	found, err := r.st.KVGet(r.key("drawn"), &drawn)
	if err != nil {
		return false, err
	}
	return found && drawn, nil
}

// CanClaim treats a drawn raffle as exhausted inventory: entries after the
// draw can never win.
func (r *TokenRaffle) CanClaim(user [20]byte, now time.Time) error {
	if err := r.checkShared(user, now); err != nil {
		return err
	}
	drawn, err := r.isDrawn()
	if err != nil {
		return err
	}
	if drawn {
		return ErrSupplyExhausted
	}
	return nil
}

func (r *TokenRaffle) ProcessFee(user [20]byte, effBps uint32) (*FeePlan, error) {
	return flatFeePlan(r.tokens, user, effBps, r.cfg.FeeToken, r.cfg.FeeBase)
}

// Claim records an entry; no prize moves until the draw.
func (r *TokenRaffle) Claim(user [20]byte, plan *FeePlan, now time.Time) (*Distribution, error) {
	if err := r.CanClaim(user, now); err != nil {
		return nil, err
	}
	if plan == nil {
		var err error
		plan, err = r.ProcessFee(user, 0)
		if err != nil {
			return nil, err
		}
	}
	steps, err := r.claimSteps(user, big.NewInt(1))
	if err != nil {
		return nil, err
	}
	steps = append(steps, flatFeeStep(r.tokens, user, r.params.FeeRecipient, plan)...)
	steps = append(steps, txnStep{
		apply: func() error { return r.st.KVAppend(r.key("entrants"), user[:]) },
	})
	if err := runSteps(steps); err != nil {
		return nil, err
	}
	return &Distribution{Kind: TagTokenRaffle, Token: r.cfg.Token, Fee: plan.Fee}, nil
}

// Entries lists the recorded entrants in claim order.
func (r *TokenRaffle) Entries() ([][20]byte, error) {
	var raw [][]byte
	if err := r.st.KVGetList(r.key("entrants"), &raw); err != nil {
		return nil, err
	}
	entrants := make([][20]byte, 0, len(raw))
	for _, b := range raw {
		if len(b) != 20 {
			continue
		}
		var addr [20]byte
		copy(addr[:], b)
		entrants = append(entrants, addr)
	}
	return entrants, nil
}

// Winners lists the drawn winners, empty before the draw.
func (r *TokenRaffle) Winners() ([][20]byte, error) {
	var raw [][]byte
	if _, err := r.st.KVGet(r.key("winners"), &raw); err != nil {
		return nil, err
	}
	winners := make([][20]byte, 0, len(raw))
	for _, b := range raw {
		if len(b) != 20 {
			continue
		}
		var addr [20]byte
		copy(addr[:], b)
		winners = append(winners, addr)
	}
	return winners, nil
}

// Draw selects up to WinnerCount distinct entrants uniformly without
// replacement and pays each an even share of the prize pool from the funder.
// One-shot: a second draw fails.
func (r *TokenRaffle) Draw(now time.Time) (*DrawResult, error) {
	drawn, err := r.isDrawn()
	if err != nil {
		return nil, err
	}
	if drawn {
		return nil, ErrRaffleDrawn
	}
	entrants, err := r.Entries()
	if err != nil {
		return nil, err
	}
	if len(entrants) == 0 {
		return nil, ErrNoEntrants
	}
	count := r.cfg.WinnerCount
	if uint64(len(entrants)) < count {
		count = uint64(len(entrants))
	}
	pool := append([][20]byte(nil), entrants...)
	for i := uint64(0); i < count; i++ {
		span := uint64(len(pool)) - i
		j := i + r.randFn(span)%span
		pool[i], pool[j] = pool[j], pool[i]
	}
	winners := pool[:count]
	prize := new(big.Int).Div(r.cfg.PrizePool, new(big.Int).SetUint64(count))
	total := new(big.Int).Mul(prize, new(big.Int).SetUint64(count))

	balance, err := r.tokens.BalanceAt(r.cfg.Funder, r.cfg.Token, 0)
	if err != nil {
		return nil, err
	}
	allowance, err := r.tokens.Allowance(r.cfg.Funder, r.params.Controller, r.cfg.Token)
	if err != nil {
		return nil, err
	}
	if balance == nil || balance.Cmp(total) < 0 || allowance == nil || allowance.Cmp(total) < 0 {
		return nil, ErrEscrowUnderfunded
	}

	record := make([][]byte, 0, len(winners))
	for _, w := range winners {
		record = append(record, append([]byte(nil), w[:]...))
	}
	steps := []txnStep{
		{
			apply:  func() error { return r.st.KVPut(r.key("drawn"), true) },
			revert: func() error { return r.st.KVPut(r.key("drawn"), false) },
		},
		{
			apply:  func() error { return r.st.KVPut(r.key("winners"), record) },
			revert: func() error { return r.st.KVPut(r.key("winners"), [][]byte{}) },
		},
	}
	for _, w := range winners {
		winner := w
		steps = append(steps, txnStep{
			apply: func() error {
				return r.tokens.TransferFrom(r.cfg.Funder, r.params.Controller, winner, r.cfg.Token, prize)
			},
			revert: func() error {
				return r.tokens.Transfer(winner, r.cfg.Funder, r.cfg.Token, prize)
			},
		})
	}
	if err := runSteps(steps); err != nil {
		return nil, err
	}
	return &DrawResult{Winners: winners, PrizePerWinner: prize}, nil
}
