package reward

import (
	crand "crypto/rand"
	"fmt"
	"math/big"
	"time"

	"claimgate/ledger"
)

// base carries the claim bookkeeping every variant shares: the active flag,
// the claim window, the claimedBy set and the distributed counter, all
// persisted through the narrow state surface.
type base struct {
	id     [32]byte
	tag    string
	st     State
	start  uint64
	finish uint64
	params InitParams
}

func (b *base) InstanceID() [32]byte { return b.id }

func (b *base) KindTag() string { return b.tag }

func (b *base) Window() (uint64, uint64) { return b.start, b.finish }

func (b *base) key(suffix string) []byte {
	return []byte(fmt.Sprintf("reward/%x/%s", b.id, suffix))
}

func (b *base) claimedKey(user [20]byte) []byte {
	return []byte(fmt.Sprintf("reward/%x/claimed/%x", b.id, user))
}

// initShared activates a fresh instance. Variants layer their inventory
// bootstrap on top.
func (b *base) initShared() error {
	return b.st.KVPut(b.key("active"), true)
}

// Active reports whether the owner kill switch currently permits claims.
func (b *base) Active() (bool, error) {
	var active bool
	found, err := b.st.KVGet(b.key("active"), &active)
	if err != nil {
		return false, err
	}
	return found && active, nil
}

// SetActive toggles the owner kill switch.
func (b *base) SetActive(active bool) error {
	return b.st.KVPut(b.key("active"), active)
}

// Claimed reports whether user already claimed from this instance.
func (b *base) Claimed(user [20]byte) (bool, error) {
	var claimed bool
	found, err := b.st.KVGet(b.claimedKey(user), &claimed)
	if err != nil {
		return false, err
	}
	return found && claimed, nil
}

// Distributed reports the cumulative distribution counter.
func (b *base) Distributed() (*big.Int, error) {
	var total big.Int
	found, err := b.st.KVGet(b.key("distributed"), &total)
	if err != nil {
		return nil, err
	}
	if !found {
		return big.NewInt(0), nil
	}
	return &total, nil
}

// checkShared is the guard conjunction common to every variant: active,
// inside the claim window, and not yet claimed.
func (b *base) checkShared(user [20]byte, now time.Time) error {
	active, err := b.Active()
	if err != nil {
		return err
	}
	if !active {
		return ErrInactive
	}
	ts := now.Unix()
	if ts < 0 || uint64(ts) < b.start || (b.finish != 0 && uint64(ts) > b.finish) {
		return ErrOutsideClaimWindow
	}
	claimed, err := b.Claimed(user)
	if err != nil {
		return err
	}
	if claimed {
		return ErrAlreadyClaimed
	}
	return nil
}

// claimSteps stages the bookkeeping legs of a commit: mark claimed, then
// advance the counter. Both revert cleanly if a later leg fails.
func (b *base) claimSteps(user [20]byte, delta *big.Int) ([]txnStep, error) {
	before, err := b.Distributed()
	if err != nil {
		return nil, err
	}
	after := new(big.Int).Add(before, delta)
	return []txnStep{
		{
			apply:  func() error { return b.st.KVPut(b.claimedKey(user), true) },
			revert: func() error { return b.st.KVPut(b.claimedKey(user), false) },
		},
		{
			apply:  func() error { return b.st.KVPut(b.key("distributed"), after) },
			revert: func() error { return b.st.KVPut(b.key("distributed"), before) },
		},
	}, nil
}

// txnStep is one leg of a claim commit. Legs run in order; when one fails,
// the completed legs revert in reverse so the call leaves no net effect.
type txnStep struct {
	apply  func() error
	revert func() error
}

func runSteps(steps []txnStep) error {
	done := make([]txnStep, 0, len(steps))
	for _, step := range steps {
		if err := step.apply(); err != nil {
			for i := len(done) - 1; i >= 0; i-- {
				if done[i].revert != nil {
					// Best effort: reverts undo writes and transfers that
					// just succeeded.
					_ = done[i].revert()
				}
			}
			return err
		}
		done = append(done, step)
	}
	return nil
}

// feeFor computes basis*bps on the basis-point scale, rounding down.
func feeFor(basis *big.Int, bps uint32) *big.Int {
	if basis == nil || basis.Sign() <= 0 || bps == 0 {
		return big.NewInt(0)
	}
	fee := new(big.Int).Mul(basis, new(big.Int).SetUint64(uint64(bps)))
	return fee.Div(fee, big.NewInt(bpsDenominator))
}

// flatFeePlan stages a claimant-paid flat fee in feeToken. A nil or zero
// base, or a zero rate, yields a free plan.
func flatFeePlan(tokens ledger.TokenLedger, user [20]byte, effBps uint32, feeToken string, feeBase *big.Int) (*FeePlan, error) {
	if effBps > bpsDenominator {
		return nil, ErrFeeInvalid
	}
	fee := feeFor(feeBase, effBps)
	if fee.Sign() > 0 {
		if tokens == nil {
			return nil, fmt.Errorf("reward: token ledger not configured")
		}
		balance, err := tokens.BalanceAt(user, feeToken, 0)
		if err != nil {
			return nil, err
		}
		if balance == nil || balance.Cmp(fee) < 0 {
			return nil, ErrFeeUnpayable
		}
	}
	return &FeePlan{Token: feeToken, Fee: fee, Bps: effBps}, nil
}

// flatFeeStep stages the transfer leg of a claimant-paid fee.
func flatFeeStep(tokens ledger.TokenLedger, user [20]byte, recipient [20]byte, plan *FeePlan) []txnStep {
	if plan == nil || plan.Fee == nil || plan.Fee.Sign() == 0 {
		return nil
	}
	return []txnStep{{
		apply:  func() error { return tokens.Transfer(user, recipient, plan.Token, plan.Fee) },
		revert: func() error { return tokens.Transfer(recipient, user, plan.Token, plan.Fee) },
	}}
}

// defaultRand draws a uniform index in [0, n) from the system entropy pool.
func defaultRand(n uint64) uint64 {
	if n == 0 {
		return 0
	}
	v, err := crand.Int(crand.Reader, new(big.Int).SetUint64(n))
	if err != nil {
		return 0
	}
	return v.Uint64()
}
