package reward

import (
	"math/big"
	"time"

	"claimgate/ledger"
)

// Whitelist allocates one slot per claim under a named list, capped at a
// fixed number of entries.
type Whitelist struct {
	base
	cfg    WhitelistConfig
	tokens ledger.TokenLedger
}

func newWhitelist(id [32]byte, cfg WhitelistConfig, st State, tokens ledger.TokenLedger, params InitParams) *Whitelist {
	return &Whitelist{
		base: base{
			id:     id,
			tag:    TagWhitelist,
			st:     st,
			start:  cfg.ClaimStart,
			finish: cfg.ClaimFinish,
			params: params,
		},
		cfg:    cfg,
		tokens: tokens,
	}
}

func (r *Whitelist) Initialize() error { return r.initShared() }

// ListID names the list slots are allocated under.
func (r *Whitelist) ListID() string { return r.cfg.ListID }

func (r *Whitelist) CanClaim(user [20]byte, now time.Time) error {
	if err := r.checkShared(user, now); err != nil {
		return err
	}
	allocated, err := r.Distributed()
	if err != nil {
		return err
	}
	if allocated.Cmp(new(big.Int).SetUint64(r.cfg.MaxEntries)) >= 0 {
		return ErrSupplyExhausted
	}
	return nil
}

func (r *Whitelist) ProcessFee(user [20]byte, effBps uint32) (*FeePlan, error) {
	return flatFeePlan(r.tokens, user, effBps, r.cfg.FeeToken, r.cfg.FeeBase)
}

func (r *Whitelist) Claim(user [20]byte, plan *FeePlan, now time.Time) (*Distribution, error) {
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
		apply: func() error { return r.st.KVAppend(r.key("entries"), user[:]) },
	})
	if err := runSteps(steps); err != nil {
		return nil, err
	}
	return &Distribution{Kind: TagWhitelist, Fee: plan.Fee}, nil
}

// Entries lists the allocated slots in claim order.
func (r *Whitelist) Entries() ([][20]byte, error) {
	var raw [][]byte
	if err := r.st.KVGetList(r.key("entries"), &raw); err != nil {
		return nil, err
	}
	entries := make([][20]byte, 0, len(raw))
	for _, b := range raw {
		if len(b) != 20 {
			continue
		}
		var addr [20]byte
		copy(addr[:], b)
		entries = append(entries, addr)
	}
	return entries, nil
}
