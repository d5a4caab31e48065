package exports

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"
)

// ClaimsJSONL builds a JSON Lines export for the supplied claims and returns
// the serialised payload alongside a checksum.
func ClaimsJSONL(rows []*ClaimRow) ([]byte, string, error) {
	buffer := &bytes.Buffer{}
	encoder := json.NewEncoder(buffer)
	encoder.SetEscapeHTML(false)
	for _, row := range rows {
		if row == nil {
			continue
		}
		payload := map[string]interface{}{
			"campaign_id": row.CampaignID,
			"claimant":    row.Claimant,
			"reward_kind": row.RewardKind,
			"amount":      row.amountString(),
			"fee":         row.feeString(),
			"claimed_at":  row.ClaimedAt.UTC().Format(time.RFC3339Nano),
		}
		if row.TokenID != "" {
			payload["token_id"] = row.TokenID
		}
		if err := encoder.Encode(payload); err != nil {
			return nil, "", err
		}
	}
	data := buffer.Bytes()
	checksum := sha256.Sum256(data)
	return data, hex.EncodeToString(checksum[:]), nil
}
