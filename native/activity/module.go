package activity

import (
	"fmt"
	"time"

	"claimgate/ledger"
)

// Built-in activity template identifiers. Registry kinds bind to these IDs
// and the factory resolves them back to constructors here.
const (
	TemplateHoldNFTs   = "activity/hold-nfts/v1"
	TemplateHoldTokens = "activity/hold-tokens/v1"
	TemplateBuyNFTs    = "activity/buy-nfts/v1"
	TemplateTokenSpend = "activity/token-spend/v1"
)

// Kind tags carried by eligibility proofs and surfaced in events.
const (
	TagHoldNFTs   = "hold_nfts"
	TagHoldTokens = "hold_tokens"
	TagBuyNFTs    = "buy_nfts"
	TagTokenSpend = "token_spend"
)

// Ledgers groups the asset views an activity instance reads. Variants only
// touch the ledgers their criteria need.
type Ledgers struct {
	Tokens ledger.TokenLedger
	NFTs   ledger.NFTLedger
	Spend  ledger.SpendLedger
}

// Module is the capability set every activity variant exposes to the claim
// engine. Implementations are read-only over ledger state.
type Module interface {
	// InstanceID identifies this instance within its campaign.
	InstanceID() [32]byte
	// KindTag names the variant for proofs and events.
	KindTag() string
	// CheckEligibility reports whether user satisfies the criteria at now.
	// A false result with a nil error is a plain "not eligible".
	CheckEligibility(user [20]byte, now time.Time) (bool, error)
	// VerifyProof authenticates an off-chain attestation for user against
	// the configured signing key.
	VerifyProof(user [20]byte, proof *Proof, signer [20]byte, ttl time.Duration, now time.Time) error
}

// base carries the identity shared by every variant.
type base struct {
	id  [32]byte
	tag string
}

func (b *base) InstanceID() [32]byte { return b.id }

func (b *base) KindTag() string { return b.tag }

func (b *base) VerifyProof(user [20]byte, proof *Proof, signer [20]byte, ttl time.Duration, now time.Time) error {
	return proof.Verify(user, signer, b.tag, now, ttl)
}

// KnownTemplate reports whether templateID names a built-in template.
func KnownTemplate(templateID string) bool {
	switch templateID {
	case TemplateHoldNFTs, TemplateHoldTokens, TemplateBuyNFTs, TemplateTokenSpend:
		return true
	default:
		return false
	}
}

// TagFor resolves the kind tag a template's instances report.
func TagFor(templateID string) (string, error) {
	switch templateID {
	case TemplateHoldNFTs:
		return TagHoldNFTs, nil
	case TemplateHoldTokens:
		return TagHoldTokens, nil
	case TemplateBuyNFTs:
		return TagBuyNFTs, nil
	case TemplateTokenSpend:
		return TagTokenSpend, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownTemplate, templateID)
	}
}

// ValidateConfig decodes and structurally validates a config blob without
// instantiating the template.
func ValidateConfig(templateID string, rawConfig []byte) error {
	switch templateID {
	case TemplateHoldNFTs:
		_, err := DecodeHoldNFTsConfig(rawConfig)
		return err
	case TemplateHoldTokens:
		_, err := DecodeHoldTokensConfig(rawConfig)
		return err
	case TemplateBuyNFTs:
		_, err := DecodeBuyNFTsConfig(rawConfig)
		return err
	case TemplateTokenSpend:
		_, err := DecodeTokenSpendConfig(rawConfig)
		return err
	default:
		return fmt.Errorf("%w: %s", ErrUnknownTemplate, templateID)
	}
}

// New instantiates templateID with instanceID against the decoded config.
// The blob must already be valid; New revalidates and fails identically so a
// half-checked blob can never produce a live instance.
func New(templateID string, instanceID [32]byte, rawConfig []byte, ledgers Ledgers) (Module, error) {
	switch templateID {
	case TemplateHoldNFTs:
		cfg, err := DecodeHoldNFTsConfig(rawConfig)
		if err != nil {
			return nil, err
		}
		return newHoldNFTs(instanceID, cfg, ledgers.NFTs), nil
	case TemplateHoldTokens:
		cfg, err := DecodeHoldTokensConfig(rawConfig)
		if err != nil {
			return nil, err
		}
		return newHoldTokens(instanceID, cfg, ledgers.Tokens), nil
	case TemplateBuyNFTs:
		cfg, err := DecodeBuyNFTsConfig(rawConfig)
		if err != nil {
			return nil, err
		}
		return newBuyNFTs(instanceID, cfg, ledgers.Spend), nil
	case TemplateTokenSpend:
		cfg, err := DecodeTokenSpendConfig(rawConfig)
		if err != nil {
			return nil, err
		}
		return newTokenSpend(instanceID, cfg, ledgers.Spend), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownTemplate, templateID)
	}
}
