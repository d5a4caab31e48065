// Package exports serialises committed claims for downstream settlement and
// reporting. Every export format is returned alongside a SHA-256 checksum of
// the payload so consumers can detect truncated transfers.
package exports

import (
	"fmt"
	"math/big"
	"time"

	"claimgate/core/events"
	"claimgate/integrations/audit"
)

// ClaimRow is one exported claim.
type ClaimRow struct {
	CampaignID string
	Claimant   string
	RewardKind string
	Amount     *big.Int
	Fee        *big.Int
	TokenID    string
	ClaimedAt  time.Time
}

func (r *ClaimRow) amountString() string {
	if r.Amount == nil {
		return "0"
	}
	return r.Amount.String()
}

func (r *ClaimRow) feeString() string {
	if r.Fee == nil {
		return "0"
	}
	return r.Fee.String()
}

// RowsFromAudit extracts successful claims from the audit log in chain order.
func RowsFromAudit(entries []audit.Entry) ([]*ClaimRow, error) {
	rows := make([]*ClaimRow, 0, len(entries))
	for _, entry := range entries {
		if entry.EventType != events.TypeClaimSucceeded {
			continue
		}
		attrs, err := entry.Attributes()
		if err != nil {
			return nil, fmt.Errorf("exports: decode audit payload at sequence %d: %w", entry.Sequence, err)
		}
		row := &ClaimRow{
			CampaignID: attrs["campaign_id"],
			Claimant:   attrs["claimant"],
			RewardKind: attrs["reward_kind"],
			TokenID:    attrs["token_id"],
			ClaimedAt:  entry.CreatedAt,
		}
		if raw := attrs["amount"]; raw != "" {
			amount, ok := new(big.Int).SetString(raw, 10)
			if !ok {
				return nil, fmt.Errorf("exports: bad amount %q at sequence %d", raw, entry.Sequence)
			}
			row.Amount = amount
		}
		if raw := attrs["fee"]; raw != "" {
			fee, ok := new(big.Int).SetString(raw, 10)
			if !ok {
				return nil, fmt.Errorf("exports: bad fee %q at sequence %d", raw, entry.Sequence)
			}
			row.Fee = fee
		}
		rows = append(rows, row)
	}
	return rows, nil
}
