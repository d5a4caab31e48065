package reward

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/rlp"
)

var zeroAddr [20]byte

// TokenAirdropConfig parameterises the escrow-backed airdrop. The funder
// wallet pre-approves the instance controller for at least TotalBudget; the
// claim fee is withheld from each payout rather than charged separately.
type TokenAirdropConfig struct {
	Token          string
	AmountPerClaim *big.Int
	TotalBudget    *big.Int
	Funder         [20]byte
	ClaimStart     uint64
	ClaimFinish    uint64
}

// NFTMintConfig parameterises minting. Sequential assignment counts up from
// BaseID; randomized assignment draws uniformly from Pool, which must then
// enumerate exactly MaxSupply distinct IDs. FeeBase, when positive, is the
// flat fee charged to the claimant in FeeToken.
type NFTMintConfig struct {
	Collection  string
	MaxSupply   uint64
	Randomized  bool
	BaseID      uint64
	Pool        []uint64
	FeeToken    string
	FeeBase     *big.Int
	ClaimStart  uint64
	ClaimFinish uint64
}

// TokenRaffleConfig parameterises the deferred-payout raffle. Claims record
// entries; an owner-triggered draw pays PrizePool split evenly across up to
// WinnerCount winners from the funder wallet.
type TokenRaffleConfig struct {
	Token       string
	PrizePool   *big.Int
	WinnerCount uint64
	Funder      [20]byte
	FeeToken    string
	FeeBase     *big.Int
	ClaimStart  uint64
	ClaimFinish uint64
}

// WhitelistConfig parameterises capped slot allocation under a named list.
type WhitelistConfig struct {
	ListID      string
	MaxEntries  uint64
	FeeToken    string
	FeeBase     *big.Int
	ClaimStart  uint64
	ClaimFinish uint64
}

func (c TokenAirdropConfig) Encode() ([]byte, error) { return rlp.EncodeToBytes(c) }

func (c NFTMintConfig) Encode() ([]byte, error) { return rlp.EncodeToBytes(c) }

func (c TokenRaffleConfig) Encode() ([]byte, error) { return rlp.EncodeToBytes(c) }

func (c WhitelistConfig) Encode() ([]byte, error) { return rlp.EncodeToBytes(c) }

// DecodeTokenAirdropConfig decodes and validates an airdrop config blob.
func DecodeTokenAirdropConfig(raw []byte) (TokenAirdropConfig, error) {
	var cfg TokenAirdropConfig
	if err := rlp.DecodeBytes(raw, &cfg); err != nil {
		return TokenAirdropConfig{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := cfg.validate(); err != nil {
		return TokenAirdropConfig{}, err
	}
	return cfg, nil
}

func (c TokenAirdropConfig) validate() error {
	if strings.TrimSpace(c.Token) == "" {
		return fmt.Errorf("%w: token required", ErrInvalidConfig)
	}
	if c.AmountPerClaim == nil || c.AmountPerClaim.Sign() <= 0 {
		return fmt.Errorf("%w: amount per claim must be positive", ErrInvalidConfig)
	}
	if c.TotalBudget == nil || c.TotalBudget.Cmp(c.AmountPerClaim) < 0 {
		return fmt.Errorf("%w: total budget must cover at least one claim", ErrInvalidConfig)
	}
	if c.Funder == zeroAddr {
		return fmt.Errorf("%w: funder required", ErrInvalidConfig)
	}
	return validateClaimWindow(c.ClaimStart, c.ClaimFinish)
}

// DecodeNFTMintConfig decodes and validates a mint config blob.
func DecodeNFTMintConfig(raw []byte) (NFTMintConfig, error) {
	var cfg NFTMintConfig
	if err := rlp.DecodeBytes(raw, &cfg); err != nil {
		return NFTMintConfig{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := cfg.validate(); err != nil {
		return NFTMintConfig{}, err
	}
	return cfg, nil
}

func (c NFTMintConfig) validate() error {
	if strings.TrimSpace(c.Collection) == "" {
		return fmt.Errorf("%w: collection required", ErrInvalidConfig)
	}
	if c.MaxSupply == 0 {
		return fmt.Errorf("%w: max supply must be positive", ErrInvalidConfig)
	}
	if c.Randomized {
		if uint64(len(c.Pool)) != c.MaxSupply {
			return fmt.Errorf("%w: randomized pool must enumerate max supply", ErrInvalidConfig)
		}
		seen := make(map[uint64]struct{}, len(c.Pool))
		for _, id := range c.Pool {
			if _, dup := seen[id]; dup {
				return fmt.Errorf("%w: duplicate token id %d in pool", ErrInvalidConfig, id)
			}
			seen[id] = struct{}{}
		}
	} else if len(c.Pool) != 0 {
		return fmt.Errorf("%w: sequential assignment takes no pool", ErrInvalidConfig)
	}
	if err := validateFee(c.FeeToken, c.FeeBase); err != nil {
		return err
	}
	return validateClaimWindow(c.ClaimStart, c.ClaimFinish)
}

// DecodeTokenRaffleConfig decodes and validates a raffle config blob.
func DecodeTokenRaffleConfig(raw []byte) (TokenRaffleConfig, error) {
	var cfg TokenRaffleConfig
	if err := rlp.DecodeBytes(raw, &cfg); err != nil {
		return TokenRaffleConfig{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := cfg.validate(); err != nil {
		return TokenRaffleConfig{}, err
	}
	return cfg, nil
}

func (c TokenRaffleConfig) validate() error {
	if strings.TrimSpace(c.Token) == "" {
		return fmt.Errorf("%w: token required", ErrInvalidConfig)
	}
	if c.PrizePool == nil || c.PrizePool.Sign() <= 0 {
		return fmt.Errorf("%w: prize pool must be positive", ErrInvalidConfig)
	}
	if c.WinnerCount == 0 {
		return fmt.Errorf("%w: winner count must be positive", ErrInvalidConfig)
	}
	if c.Funder == zeroAddr {
		return fmt.Errorf("%w: funder required", ErrInvalidConfig)
	}
	if err := validateFee(c.FeeToken, c.FeeBase); err != nil {
		return err
	}
	return validateClaimWindow(c.ClaimStart, c.ClaimFinish)
}

// DecodeWhitelistConfig decodes and validates a whitelist config blob.
func DecodeWhitelistConfig(raw []byte) (WhitelistConfig, error) {
	var cfg WhitelistConfig
	if err := rlp.DecodeBytes(raw, &cfg); err != nil {
		return WhitelistConfig{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := cfg.validate(); err != nil {
		return WhitelistConfig{}, err
	}
	return cfg, nil
}

func (c WhitelistConfig) validate() error {
	if strings.TrimSpace(c.ListID) == "" {
		return fmt.Errorf("%w: list id required", ErrInvalidConfig)
	}
	if c.MaxEntries == 0 {
		return fmt.Errorf("%w: max entries must be positive", ErrInvalidConfig)
	}
	if err := validateFee(c.FeeToken, c.FeeBase); err != nil {
		return err
	}
	return validateClaimWindow(c.ClaimStart, c.ClaimFinish)
}

func validateFee(token string, base *big.Int) error {
	if base == nil || base.Sign() == 0 {
		return nil
	}
	if base.Sign() < 0 {
		return fmt.Errorf("%w: fee base must not be negative", ErrInvalidConfig)
	}
	if strings.TrimSpace(token) == "" {
		return fmt.Errorf("%w: fee token required when fee base is set", ErrInvalidConfig)
	}
	return nil
}

func validateClaimWindow(start, finish uint64) error {
	if start == 0 {
		return fmt.Errorf("%w: claim start required", ErrInvalidConfig)
	}
	if finish != 0 && finish < start {
		return fmt.Errorf("%w: claim finish precedes start", ErrInvalidConfig)
	}
	return nil
}
