package campaign

import (
	"fmt"

	"claimgate/ledger"
)

// Roles gating factory administration and campaign creation.
const (
	// RoleFactoryAdmin may maintain the origin allow-list.
	RoleFactoryAdmin = "ROLE_FACTORY_ADMIN"
	// RoleOrigin marks an address as an authorized campaign creator.
	RoleOrigin = "ROLE_CAMPAIGN_ORIGIN"
)

// feeBpsMax is the basis-point scale fees and discounts are quoted in.
const feeBpsMax = 10_000

var (
	zeroAddr [20]byte
	zeroHash [32]byte
)

// campaignState is the persistence surface the factory and engine share.
// *state.Manager satisfies it.
type campaignState interface {
	HasRole(role string, addr []byte) bool
	GrantRole(role string, addr [20]byte) error
	RevokeRole(role string, addr [20]byte) error
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
	KVAppend(key []byte, value []byte) error
	KVGetList(key []byte, out interface{}) error
}

// Ledgers groups the asset surfaces campaigns read and distribute through.
type Ledgers struct {
	Tokens ledger.TokenLedger
	NFTs   ledger.NFTLedger
	Spend  ledger.SpendLedger
}

// EligibilityConfig governs the signed-proof scheme. With Enabled false no
// proofs are accepted and the activity's on-chain check alone gates claims.
// An enabled scheme always names its signer and bounds proof staleness.
type EligibilityConfig struct {
	Enabled      bool
	SigningKey   [20]byte
	ProofTTL     uint64
	RequireProof bool
}

func (c EligibilityConfig) validate() error {
	if !c.Enabled {
		return nil
	}
	if c.SigningKey == zeroAddr {
		return fmt.Errorf("%w: enabled eligibility needs a signing key", ErrInvalidConfig)
	}
	if c.ProofTTL == 0 {
		return fmt.Errorf("%w: enabled eligibility needs a positive proof ttl", ErrInvalidConfig)
	}
	return nil
}

// Campaign is the persisted instance record binding one activity and one
// reward instance under a single owner. Raw config blobs are retained so the
// live module instances can be rebuilt at boot.
type Campaign struct {
	ID                 [32]byte
	ActivityInstanceID [32]byte
	RewardInstanceID   [32]byte
	Owner              [20]byte
	Controller         [20]byte
	Origin             [20]byte
	Affiliate          [20]byte
	HasAffiliate       bool
	FeeBps             uint32
	DiscountRoot       [32]byte
	ActivityKind       string
	ActivityTemplate   string
	ActivityConfig     []byte
	RewardKind         string
	RewardTemplate     string
	RewardConfig       []byte
	Eligibility        EligibilityConfig
	CreatedAt          uint64
}

// FeeRecipient resolves where this campaign's fees route: the affiliate when
// one was bound at creation, otherwise the platform treasury.
func (c *Campaign) FeeRecipient(treasury [20]byte) [20]byte {
	if c.HasAffiliate {
		return c.Affiliate
	}
	return treasury
}

func recordKey(id [32]byte) []byte {
	return []byte(fmt.Sprintf("campaign/record/%x", id))
}

func ownerIndexKey(owner [20]byte) []byte {
	return []byte(fmt.Sprintf("campaign/owner/%x", owner))
}

var (
	campaignIndexKey = []byte("campaign/index")
	nonceKey         = []byte("campaign/nonce")
)
