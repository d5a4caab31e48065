package activity

import (
	"fmt"
	"time"

	"claimgate/ledger"
)

type buyNFTs struct {
	base
	cfg   BuyNFTsConfig
	spend ledger.SpendLedger
}

func newBuyNFTs(id [32]byte, cfg BuyNFTsConfig, spend ledger.SpendLedger) *buyNFTs {
	return &buyNFTs{base: base{id: id, tag: TagBuyNFTs}, cfg: cfg, spend: spend}
}

// CheckEligibility passes once the user's purchase count on the market,
// accrued over the activity window, reaches the threshold. The window scopes
// which purchases count rather than when the check may run.
func (a *buyNFTs) CheckEligibility(user [20]byte, now time.Time) (bool, error) {
	if a.spend == nil {
		return false, fmt.Errorf("activity: spend ledger not configured")
	}
	count, err := a.spend.PurchasesIn(user, a.cfg.Market, int64(a.cfg.Start), int64(a.cfg.End))
	if err != nil {
		return false, err
	}
	return count >= a.cfg.RequiredCount, nil
}

type tokenSpend struct {
	base
	cfg   TokenSpendConfig
	spend ledger.SpendLedger
}

func newTokenSpend(id [32]byte, cfg TokenSpendConfig, spend ledger.SpendLedger) *tokenSpend {
	return &tokenSpend{base: base{id: id, tag: TagTokenSpend}, cfg: cfg, spend: spend}
}

// CheckEligibility passes once the user's cumulative spend through the market
// over the activity window reaches the threshold.
func (a *tokenSpend) CheckEligibility(user [20]byte, now time.Time) (bool, error) {
	if a.spend == nil {
		return false, fmt.Errorf("activity: spend ledger not configured")
	}
	total, err := a.spend.SpendIn(user, a.cfg.Market, int64(a.cfg.Start), int64(a.cfg.End))
	if err != nil {
		return false, err
	}
	if total == nil {
		return false, nil
	}
	return total.Cmp(a.cfg.RequiredSpend) >= 0, nil
}
