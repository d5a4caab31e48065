package exports

import (
	"bytes"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"time"
)

// ClaimsCSV builds a CSV export for the supplied claims and returns the
// serialised data alongside a SHA-256 checksum of the payload.
func ClaimsCSV(rows []*ClaimRow) ([]byte, string, error) {
	buffer := &bytes.Buffer{}
	writer := csv.NewWriter(buffer)
	header := []string{"campaign_id", "claimant", "reward_kind", "amount", "fee", "token_id", "claimed_at"}
	if err := writer.Write(header); err != nil {
		return nil, "", err
	}
	for _, row := range rows {
		if row == nil {
			continue
		}
		record := []string{
			row.CampaignID,
			row.Claimant,
			row.RewardKind,
			row.amountString(),
			row.feeString(),
			row.TokenID,
			row.ClaimedAt.UTC().Format(time.RFC3339Nano),
		}
		if err := writer.Write(record); err != nil {
			return nil, "", err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, "", err
	}
	data := buffer.Bytes()
	checksum := sha256.Sum256(data)
	return data, hex.EncodeToString(checksum[:]), nil
}
