package reward

import (
	"fmt"
	"math/big"
	"time"

	"claimgate/ledger"
)

// TokenAirdrop pays a fixed amount per claim out of a pre-approved funding
// wallet. The fee is withheld from the payout; claimant receives the net.
type TokenAirdrop struct {
	base
	cfg    TokenAirdropConfig
	tokens ledger.TokenLedger
}

func newTokenAirdrop(id [32]byte, cfg TokenAirdropConfig, st State, tokens ledger.TokenLedger, params InitParams) *TokenAirdrop {
	return &TokenAirdrop{
		base: base{
			id:     id,
			tag:    TagTokenAirdrop,
			st:     st,
			start:  cfg.ClaimStart,
			finish: cfg.ClaimFinish,
			params: params,
		},
		cfg:    cfg,
		tokens: tokens,
	}
}

func (r *TokenAirdrop) Initialize() error { return r.initShared() }

// CanClaim layers budget exhaustion on the shared guard. The counter tracks
// aggregate gross payout, so the budget bounds fee and net together.
func (r *TokenAirdrop) CanClaim(user [20]byte, now time.Time) error {
	if err := r.checkShared(user, now); err != nil {
		return err
	}
	distributed, err := r.Distributed()
	if err != nil {
		return err
	}
	next := new(big.Int).Add(distributed, r.cfg.AmountPerClaim)
	if next.Cmp(r.cfg.TotalBudget) > 0 {
		return ErrSupplyExhausted
	}
	return nil
}

// ProcessFee stages the escrow legs: the fee share routed to the recipient
// and the net payout to the claimant, both drawn from the funder under the
// controller's allowance.
func (r *TokenAirdrop) ProcessFee(user [20]byte, effBps uint32) (*FeePlan, error) {
	if effBps > bpsDenominator {
		return nil, ErrFeeInvalid
	}
	if r.tokens == nil {
		return nil, fmt.Errorf("reward: token ledger not configured")
	}
	fee := feeFor(r.cfg.AmountPerClaim, effBps)
	payout := new(big.Int).Sub(r.cfg.AmountPerClaim, fee)
	balance, err := r.tokens.BalanceAt(r.cfg.Funder, r.cfg.Token, 0)
	if err != nil {
		return nil, err
	}
	allowance, err := r.tokens.Allowance(r.cfg.Funder, r.params.Controller, r.cfg.Token)
	if err != nil {
		return nil, err
	}
	if balance == nil || balance.Cmp(r.cfg.AmountPerClaim) < 0 {
		return nil, ErrEscrowUnderfunded
	}
	if allowance == nil || allowance.Cmp(r.cfg.AmountPerClaim) < 0 {
		return nil, ErrEscrowUnderfunded
	}
	return &FeePlan{Token: r.cfg.Token, Fee: fee, Payout: payout, Bps: effBps}, nil
}

func (r *TokenAirdrop) Claim(user [20]byte, plan *FeePlan, now time.Time) (*Distribution, error) {
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
	fee := plan.Fee
	if fee == nil {
		fee = big.NewInt(0)
	}
	payout := plan.Payout
	if payout == nil {
		payout = new(big.Int).Sub(r.cfg.AmountPerClaim, fee)
	}
	steps, err := r.claimSteps(user, r.cfg.AmountPerClaim)
	if err != nil {
		return nil, err
	}
	if fee.Sign() > 0 {
		feeAmount := fee
		steps = append(steps, txnStep{
			apply: func() error {
				return r.tokens.TransferFrom(r.cfg.Funder, r.params.Controller, r.params.FeeRecipient, r.cfg.Token, feeAmount)
			},
			revert: func() error {
				return r.tokens.Transfer(r.params.FeeRecipient, r.cfg.Funder, r.cfg.Token, feeAmount)
			},
		})
	}
	net := payout
	steps = append(steps, txnStep{
		apply: func() error {
			return r.tokens.TransferFrom(r.cfg.Funder, r.params.Controller, user, r.cfg.Token, net)
		},
		revert: func() error {
			return r.tokens.Transfer(user, r.cfg.Funder, r.cfg.Token, net)
		},
	})
	if err := runSteps(steps); err != nil {
		return nil, err
	}
	return &Distribution{Kind: TagTokenAirdrop, Token: r.cfg.Token, Amount: payout, Fee: fee}, nil
}
