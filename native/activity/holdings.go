package activity

import (
	"fmt"
	"time"

	"claimgate/ledger"
)

type holdNFTs struct {
	base
	cfg  HoldNFTsConfig
	nfts ledger.NFTLedger
}

func newHoldNFTs(id [32]byte, cfg HoldNFTsConfig, nfts ledger.NFTLedger) *holdNFTs {
	return &holdNFTs{base: base{id: id, tag: TagHoldNFTs}, cfg: cfg, nfts: nfts}
}

// CheckEligibility passes when the user holds the required count from every
// referenced collection. Counts are read at the snapshot date when one is
// configured, so later transfers cannot change the outcome.
func (a *holdNFTs) CheckEligibility(user [20]byte, now time.Time) (bool, error) {
	if a.nfts == nil {
		return false, fmt.Errorf("activity: nft ledger not configured")
	}
	if !windowContains(a.cfg.Start, a.cfg.End, now.Unix()) {
		return false, nil
	}
	at := int64(a.cfg.Snapshot)
	for i, collection := range a.cfg.Collections {
		if a.cfg.HasFilter {
			tag, err := a.nfts.CollectionTag(collection)
			if err != nil {
				return false, err
			}
			if tag != a.cfg.Filter {
				return false, nil
			}
		}
		count, err := a.nfts.HoldingsAt(user, collection, at)
		if err != nil {
			return false, err
		}
		if count < a.cfg.Required[i] {
			return false, nil
		}
	}
	return true, nil
}

type holdTokens struct {
	base
	cfg    HoldTokensConfig
	tokens ledger.TokenLedger
}

func newHoldTokens(id [32]byte, cfg HoldTokensConfig, tokens ledger.TokenLedger) *holdTokens {
	return &holdTokens{base: base{id: id, tag: TagHoldTokens}, cfg: cfg, tokens: tokens}
}

// CheckEligibility passes when every configured token balance meets its
// threshold inside the activity window.
func (a *holdTokens) CheckEligibility(user [20]byte, now time.Time) (bool, error) {
	if a.tokens == nil {
		return false, fmt.Errorf("activity: token ledger not configured")
	}
	if !windowContains(a.cfg.Start, a.cfg.End, now.Unix()) {
		return false, nil
	}
	at := int64(a.cfg.Snapshot)
	for i, token := range a.cfg.Tokens {
		balance, err := a.tokens.BalanceAt(user, token, at)
		if err != nil {
			return false, err
		}
		if balance == nil || balance.Cmp(a.cfg.Required[i]) < 0 {
			return false, nil
		}
	}
	return true, nil
}
