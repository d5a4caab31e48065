package events

import (
	"math/big"
	"strconv"
	"strings"
)

const (
	// TypeCampaignCreated is emitted when the factory instantiates a new
	// campaign with its activity and reward instances.
	TypeCampaignCreated = "campaign.created"
	// TypeClaimSucceeded is emitted after a claim's commit step completes.
	TypeClaimSucceeded = "campaign.claim_succeeded"
	// TypeClaimFailed is emitted when a claim aborts; the reason attribute
	// carries the specific failure kind.
	TypeClaimFailed = "campaign.claim_failed"
	// TypeCampaignEligibilityUpdated is emitted when the owner replaces the
	// eligibility configuration.
	TypeCampaignEligibilityUpdated = "campaign.eligibility_updated"
	// TypeCampaignFeeUpdated is emitted when the owner changes the fee bps.
	TypeCampaignFeeUpdated = "campaign.fee_updated"
	// TypeCampaignActiveUpdated is emitted when the owner toggles the reward's
	// active flag.
	TypeCampaignActiveUpdated = "campaign.active_updated"
	// TypeCampaignDiscountRootUpdated is emitted when the owner replaces the
	// fee-discount allow-list commitment.
	TypeCampaignDiscountRootUpdated = "campaign.discount_root_updated"
	// TypeRaffleDrawn is emitted when a raffle reward's draw selects winners.
	TypeRaffleDrawn = "campaign.raffle_drawn"
)

// CampaignCreated captures the identities minted by one factory call.
type CampaignCreated struct {
	ID                 [32]byte
	ActivityInstanceID [32]byte
	RewardInstanceID   [32]byte
	Owner              [20]byte
	Origin             [20]byte
	Affiliate          *[20]byte
	ActivityKind       string
	RewardKind         string
	FeeBps             uint32
}

// EventType implements the Event interface.
func (CampaignCreated) EventType() string { return TypeCampaignCreated }

// Attributes implements the Event interface.
func (e CampaignCreated) Attributes() map[string]string {
	attrs := map[string]string{
		"id":            formatID(e.ID),
		"activity_id":   formatID(e.ActivityInstanceID),
		"reward_id":     formatID(e.RewardInstanceID),
		"owner":         formatAddr(e.Owner),
		"origin":        formatAddr(e.Origin),
		"activity_kind": e.ActivityKind,
		"reward_kind":   e.RewardKind,
		"fee_bps":       strconv.FormatUint(uint64(e.FeeBps), 10),
	}
	if e.Affiliate != nil {
		attrs["affiliate"] = formatAddr(*e.Affiliate)
	}
	return attrs
}

// ClaimSucceeded captures the distribution facts of a committed claim.
type ClaimSucceeded struct {
	CampaignID  [32]byte
	Claimant    [20]byte
	RewardKind  string
	Amount      *big.Int
	TokenID     uint64
	HasTokenID  bool
	Fee         *big.Int
	DiscountBps uint32
}

// EventType implements the Event interface.
func (ClaimSucceeded) EventType() string { return TypeClaimSucceeded }

// Attributes implements the Event interface.
func (e ClaimSucceeded) Attributes() map[string]string {
	attrs := map[string]string{
		"campaign_id":  formatID(e.CampaignID),
		"claimant":     formatAddr(e.Claimant),
		"reward_kind":  e.RewardKind,
		"amount":       formatAmount(e.Amount),
		"fee":          formatAmount(e.Fee),
		"discount_bps": strconv.FormatUint(uint64(e.DiscountBps), 10),
	}
	if e.HasTokenID {
		attrs["token_id"] = strconv.FormatUint(e.TokenID, 10)
	}
	return attrs
}

// ClaimFailed captures a rejected claim and the reason tag external tooling
// keys retry decisions on.
type ClaimFailed struct {
	CampaignID [32]byte
	Claimant   [20]byte
	Reason     string
}

// EventType implements the Event interface.
func (ClaimFailed) EventType() string { return TypeClaimFailed }

// Attributes implements the Event interface.
func (e ClaimFailed) Attributes() map[string]string {
	return map[string]string{
		"campaign_id": formatID(e.CampaignID),
		"claimant":    formatAddr(e.Claimant),
		"reason":      e.Reason,
	}
}

// CampaignEligibilityUpdated captures a wholesale eligibility replacement.
type CampaignEligibilityUpdated struct {
	CampaignID   [32]byte
	Caller       [20]byte
	Enabled      bool
	SigningKey   [20]byte
	ProofTTL     uint64
	RequireProof bool
}

// EventType implements the Event interface.
func (CampaignEligibilityUpdated) EventType() string { return TypeCampaignEligibilityUpdated }

// Attributes implements the Event interface.
func (e CampaignEligibilityUpdated) Attributes() map[string]string {
	return map[string]string{
		"campaign_id":   formatID(e.CampaignID),
		"caller":        formatAddr(e.Caller),
		"enabled":       strconv.FormatBool(e.Enabled),
		"signing_key":   formatAddr(e.SigningKey),
		"proof_ttl":     strconv.FormatUint(e.ProofTTL, 10),
		"require_proof": strconv.FormatBool(e.RequireProof),
	}
}

// CampaignFeeUpdated captures a fee change.
type CampaignFeeUpdated struct {
	CampaignID [32]byte
	Caller     [20]byte
	FeeBps     uint32
}

// EventType implements the Event interface.
func (CampaignFeeUpdated) EventType() string { return TypeCampaignFeeUpdated }

// Attributes implements the Event interface.
func (e CampaignFeeUpdated) Attributes() map[string]string {
	return map[string]string{
		"campaign_id": formatID(e.CampaignID),
		"caller":      formatAddr(e.Caller),
		"fee_bps":     strconv.FormatUint(uint64(e.FeeBps), 10),
	}
}

// CampaignActiveUpdated captures an active-flag toggle.
type CampaignActiveUpdated struct {
	CampaignID [32]byte
	Caller     [20]byte
	Active     bool
}

// EventType implements the Event interface.
func (CampaignActiveUpdated) EventType() string { return TypeCampaignActiveUpdated }

// Attributes implements the Event interface.
func (e CampaignActiveUpdated) Attributes() map[string]string {
	return map[string]string{
		"campaign_id": formatID(e.CampaignID),
		"caller":      formatAddr(e.Caller),
		"active":      strconv.FormatBool(e.Active),
	}
}

// CampaignDiscountRootUpdated captures a discount allow-list commitment change.
type CampaignDiscountRootUpdated struct {
	CampaignID [32]byte
	Caller     [20]byte
	Root       [32]byte
}

// EventType implements the Event interface.
func (CampaignDiscountRootUpdated) EventType() string { return TypeCampaignDiscountRootUpdated }

// Attributes implements the Event interface.
func (e CampaignDiscountRootUpdated) Attributes() map[string]string {
	return map[string]string{
		"campaign_id": formatID(e.CampaignID),
		"caller":      formatAddr(e.Caller),
		"root":        formatID(e.Root),
	}
}

// RaffleDrawn captures the winners selected by an owner-triggered draw.
type RaffleDrawn struct {
	CampaignID     [32]byte
	Caller         [20]byte
	Winners        [][20]byte
	PrizePerWinner *big.Int
}

// EventType implements the Event interface.
func (RaffleDrawn) EventType() string { return TypeRaffleDrawn }

// Attributes implements the Event interface.
func (e RaffleDrawn) Attributes() map[string]string {
	winners := make([]string, 0, len(e.Winners))
	for _, winner := range e.Winners {
		winners = append(winners, formatAddr(winner))
	}
	return map[string]string{
		"campaign_id": formatID(e.CampaignID),
		"caller":      formatAddr(e.Caller),
		"winners":     strings.Join(winners, ","),
		"prize":       formatAmount(e.PrizePerWinner),
	}
}
