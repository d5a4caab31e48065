package reward

import (
	"fmt"
	"math/big"
	"time"

	"claimgate/ledger"
)

// Built-in reward template identifiers.
const (
	TemplateTokenAirdrop = "reward/token-airdrop/v1"
	TemplateNFTMint      = "reward/nft-mint/v1"
	TemplateTokenRaffle  = "reward/token-raffle/v1"
	TemplateWhitelist    = "reward/whitelist/v1"
)

// Kind tags surfaced in events and claim results.
const (
	TagTokenAirdrop = "token_airdrop"
	TagNFTMint      = "nft_mint"
	TagTokenRaffle  = "token_raffle"
	TagWhitelist    = "whitelist"
)

// bpsDenominator is the basis-point scale fee rates are quoted in.
const bpsDenominator = 10_000

// State is the narrow persistence surface a reward instance writes its claim
// bookkeeping through. *state.Manager satisfies it.
type State interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
	KVAppend(key []byte, value []byte) error
	KVGetList(key []byte, out interface{}) error
}

// Ledgers groups the asset surfaces reward instances distribute through.
type Ledgers struct {
	Tokens ledger.TokenLedger
	NFTs   ledger.NFTLedger
}

// InitParams carries the identities the factory binds a fresh instance to.
// Controller is the allowance spender escrow-backed variants transfer
// through; FeeRecipient receives every fee the instance collects.
type InitParams struct {
	Owner        [20]byte
	Controller   [20]byte
	FeeRecipient [20]byte
}

// FeePlan is the staged, validated fee leg of a claim. ProcessFee builds it
// without side effects; Claim executes it inside the commit.
type FeePlan struct {
	// Token denominates the fee.
	Token string
	// Fee is the amount routed to the fee recipient. Never nil.
	Fee *big.Int
	// Payout is the net amount the claimant receives for escrow-backed
	// variants that withhold the fee from the distribution. Nil for unit
	// rewards, whose fee is charged to the claimant instead.
	Payout *big.Int
	// Bps records the effective rate the plan was computed at.
	Bps uint32
}

// Distribution describes what a committed claim delivered.
type Distribution struct {
	Kind       string
	Token      string
	Amount     *big.Int
	Fee        *big.Int
	TokenID    uint64
	HasTokenID bool
}

// DrawResult reports a completed raffle draw.
type DrawResult struct {
	Winners        [][20]byte
	PrizePerWinner *big.Int
}

// Module is the capability set every reward variant exposes to the claim
// engine. Claim and Draw mutate persistent inventory and must be serialized
// per instance; the campaign engine's lock provides that.
type Module interface {
	// InstanceID identifies this instance within its campaign.
	InstanceID() [32]byte
	// KindTag names the variant for events and claim results.
	KindTag() string
	// Initialize persists the instance's starting state. The factory calls
	// it exactly once; rehydration skips it.
	Initialize() error
	// CanClaim reports nil when user may claim at now, or the specific
	// refusal reason.
	CanClaim(user [20]byte, now time.Time) error
	// ProcessFee validates and stages the fee leg at the effective rate.
	// It performs no transfers and writes no state.
	ProcessFee(user [20]byte, effBps uint32) (*FeePlan, error)
	// Claim commits the distribution: the claimant is marked claimed and
	// the distributed counter advanced before any external transfer, and a
	// transfer failure unwinds both.
	Claim(user [20]byte, plan *FeePlan, now time.Time) (*Distribution, error)
	// SetActive toggles the owner kill switch.
	SetActive(active bool) error
	// Active reports whether the kill switch currently permits claims.
	Active() (bool, error)
	// Claimed reports whether user already claimed from this instance.
	Claimed(user [20]byte) (bool, error)
	// Distributed reports the cumulative distribution counter.
	Distributed() (*big.Int, error)
	// Window reports the claim window bounds (finish zero = unbounded).
	Window() (start, finish uint64)
}

// Drawer is the deferred-payout capability the raffle variant adds on top of
// Module. The engine discovers it by assertion.
type Drawer interface {
	Draw(now time.Time) (*DrawResult, error)
}

// Lister exposes the accumulated membership of entrant/slot variants.
type Lister interface {
	Entries() ([][20]byte, error)
}

// KnownTemplate reports whether templateID names a built-in template.
func KnownTemplate(templateID string) bool {
	switch templateID {
	case TemplateTokenAirdrop, TemplateNFTMint, TemplateTokenRaffle, TemplateWhitelist:
		return true
	default:
		return false
	}
}

// TagFor resolves the kind tag a template's instances report.
func TagFor(templateID string) (string, error) {
	switch templateID {
	case TemplateTokenAirdrop:
		return TagTokenAirdrop, nil
	case TemplateNFTMint:
		return TagNFTMint, nil
	case TemplateTokenRaffle:
		return TagTokenRaffle, nil
	case TemplateWhitelist:
		return TagWhitelist, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownTemplate, templateID)
	}
}

// ValidateConfig decodes and structurally validates a config blob without
// instantiating the template.
func ValidateConfig(templateID string, rawConfig []byte) error {
	switch templateID {
	case TemplateTokenAirdrop:
		_, err := DecodeTokenAirdropConfig(rawConfig)
		return err
	case TemplateNFTMint:
		_, err := DecodeNFTMintConfig(rawConfig)
		return err
	case TemplateTokenRaffle:
		_, err := DecodeTokenRaffleConfig(rawConfig)
		return err
	case TemplateWhitelist:
		_, err := DecodeWhitelistConfig(rawConfig)
		return err
	default:
		return fmt.Errorf("%w: %s", ErrUnknownTemplate, templateID)
	}
}

// New instantiates templateID with instanceID against the decoded config.
// Initialize must follow for fresh instances; rehydrated ones resume from
// persisted state.
func New(templateID string, instanceID [32]byte, rawConfig []byte, st State, ledgers Ledgers, params InitParams) (Module, error) {
	if st == nil {
		return nil, fmt.Errorf("reward: state required")
	}
	switch templateID {
	case TemplateTokenAirdrop:
		cfg, err := DecodeTokenAirdropConfig(rawConfig)
		if err != nil {
			return nil, err
		}
		return newTokenAirdrop(instanceID, cfg, st, ledgers.Tokens, params), nil
	case TemplateNFTMint:
		cfg, err := DecodeNFTMintConfig(rawConfig)
		if err != nil {
			return nil, err
		}
		return newNFTMint(instanceID, cfg, st, ledgers, params), nil
	case TemplateTokenRaffle:
		cfg, err := DecodeTokenRaffleConfig(rawConfig)
		if err != nil {
			return nil, err
		}
		return newTokenRaffle(instanceID, cfg, st, ledgers.Tokens, params), nil
	case TemplateWhitelist:
		cfg, err := DecodeWhitelistConfig(rawConfig)
		if err != nil {
			return nil, err
		}
		return newWhitelist(instanceID, cfg, st, ledgers.Tokens, params), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownTemplate, templateID)
	}
}
