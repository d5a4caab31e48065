package reward

import (
	"fmt"
	"math/big"
	"time"

	"claimgate/ledger"
)

// NFTMint mints one unit per claim, assigning token IDs either sequentially
// from a base or uniformly from a shrinking pool of remaining IDs.
type NFTMint struct {
	base
	cfg    NFTMintConfig
	nfts   ledger.NFTLedger
	tokens ledger.TokenLedger
	randFn func(uint64) uint64
}

func newNFTMint(id [32]byte, cfg NFTMintConfig, st State, ledgers Ledgers, params InitParams) *NFTMint {
	return &NFTMint{
		base: base{
			id:     id,
			tag:    TagNFTMint,
			st:     st,
			start:  cfg.ClaimStart,
			finish: cfg.ClaimFinish,
			params: params,
		},
		cfg:    cfg,
		nfts:   ledgers.NFTs,
		tokens: ledgers.Tokens,
		randFn: defaultRand,
	}
}

// SetRandFunc overrides the index source for randomized assignment. Passing
// nil restores the system entropy pool.
func (r *NFTMint) SetRandFunc(fn func(uint64) uint64) {
	if fn == nil {
		r.randFn = defaultRand
		return
	}
	r.randFn = fn
}

// Initialize persists the remaining-ID pool for randomized assignment.
func (r *NFTMint) Initialize() error {
	if err := r.initShared(); err != nil {
		return err
	}
	if r.cfg.Randomized {
		return r.st.KVPut(r.key("pool"), r.cfg.Pool)
	}
	return nil
}

func (r *NFTMint) remaining() ([]uint64, error) {
	var pool []uint64
	if _, err := r.st.KVGet(r.key("pool"), &pool); err != nil {
		return nil, err
	}
	return pool, nil
}

func (r *NFTMint) CanClaim(user [20]byte, now time.Time) error {
	if err := r.checkShared(user, now); err != nil {
		return err
	}
	minted, err := r.Distributed()
	if err != nil {
		return err
	}
	if minted.Cmp(new(big.Int).SetUint64(r.cfg.MaxSupply)) >= 0 {
		return ErrSupplyExhausted
	}
	return nil
}

func (r *NFTMint) ProcessFee(user [20]byte, effBps uint32) (*FeePlan, error) {
	return flatFeePlan(r.tokens, user, effBps, r.cfg.FeeToken, r.cfg.FeeBase)
}

func (r *NFTMint) Claim(user [20]byte, plan *FeePlan, now time.Time) (*Distribution, error) {
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
	if r.nfts == nil {
		return nil, fmt.Errorf("reward: nft ledger not configured")
	}
	minted, err := r.Distributed()
	if err != nil {
		return nil, err
	}
	steps, err := r.claimSteps(user, big.NewInt(1))
	if err != nil {
		return nil, err
	}
	var tokenID uint64
	if r.cfg.Randomized {
		pool, err := r.remaining()
		if err != nil {
			return nil, err
		}
		if len(pool) == 0 {
			return nil, ErrSupplyExhausted
		}
		idx := r.randFn(uint64(len(pool))) % uint64(len(pool))
		tokenID = pool[idx]
		next := make([]uint64, 0, len(pool)-1)
		next = append(next, pool[:idx]...)
		next = append(next, pool[idx+1:]...)
		prev := pool
		steps = append(steps, txnStep{
			apply:  func() error { return r.st.KVPut(r.key("pool"), next) },
			revert: func() error { return r.st.KVPut(r.key("pool"), prev) },
		})
	} else {
		tokenID = r.cfg.BaseID + minted.Uint64()
	}
	steps = append(steps, flatFeeStep(r.tokens, user, r.params.FeeRecipient, plan)...)
	id := tokenID
	steps = append(steps, txnStep{
		apply: func() error { return r.nfts.Mint(r.cfg.Collection, user, id) },
	})
	if err := runSteps(steps); err != nil {
		return nil, err
	}
	return &Distribution{Kind: TagNFTMint, Token: r.cfg.Collection, Fee: plan.Fee, TokenID: tokenID, HasTokenID: true}, nil
}
