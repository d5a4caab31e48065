package activity

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/rlp"
)

// HoldNFTsConfig parameterises the hold-NFTs criteria. Dates are unix
// seconds; End of zero leaves the window open-ended and Snapshot of zero
// checks live holdings. Filter, when set, restricts every referenced
// collection to a matching listing tag.
type HoldNFTsConfig struct {
	Collections []string
	Required    []uint64
	Start       uint64
	End         uint64
	Snapshot    uint64
	HasFilter   bool
	Filter      uint8
}

// HoldTokensConfig parameterises the hold-tokens criteria, one required
// balance per token symbol.
type HoldTokensConfig struct {
	Tokens   []string
	Required []*big.Int
	Start    uint64
	End      uint64
	Snapshot uint64
}

// BuyNFTsConfig parameterises the buy-NFTs criteria: RequiredCount purchases
// on Market accrued over the window.
type BuyNFTsConfig struct {
	Market        string
	RequiredCount uint64
	Start         uint64
	End           uint64
}

// TokenSpendConfig parameterises the token-spend criteria: RequiredSpend
// moved through Market over the window.
type TokenSpendConfig struct {
	Market        string
	RequiredSpend *big.Int
	Start         uint64
	End           uint64
}

func (c HoldNFTsConfig) Encode() ([]byte, error) { return rlp.EncodeToBytes(c) }

func (c HoldTokensConfig) Encode() ([]byte, error) { return rlp.EncodeToBytes(c) }

func (c BuyNFTsConfig) Encode() ([]byte, error) { return rlp.EncodeToBytes(c) }

func (c TokenSpendConfig) Encode() ([]byte, error) { return rlp.EncodeToBytes(c) }

// DecodeHoldNFTsConfig decodes and validates a hold-NFTs config blob.
func DecodeHoldNFTsConfig(raw []byte) (HoldNFTsConfig, error) {
	var cfg HoldNFTsConfig
	if err := rlp.DecodeBytes(raw, &cfg); err != nil {
		return HoldNFTsConfig{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := cfg.validate(); err != nil {
		return HoldNFTsConfig{}, err
	}
	return cfg, nil
}

func (c HoldNFTsConfig) validate() error {
	if len(c.Collections) == 0 {
		return fmt.Errorf("%w: at least one collection required", ErrInvalidConfig)
	}
	if len(c.Collections) != len(c.Required) {
		return fmt.Errorf("%w: collections and required amounts must align", ErrInvalidConfig)
	}
	seen := make(map[string]struct{}, len(c.Collections))
	for i, collection := range c.Collections {
		trimmed := strings.TrimSpace(collection)
		if trimmed == "" {
			return fmt.Errorf("%w: collection name required", ErrInvalidConfig)
		}
		if _, ok := seen[trimmed]; ok {
			return fmt.Errorf("%w: duplicate collection %s", ErrInvalidConfig, trimmed)
		}
		seen[trimmed] = struct{}{}
		if c.Required[i] == 0 {
			return fmt.Errorf("%w: required amount for %s must be positive", ErrInvalidConfig, trimmed)
		}
	}
	return validateWindow(c.Start, c.End)
}

// DecodeHoldTokensConfig decodes and validates a hold-tokens config blob.
func DecodeHoldTokensConfig(raw []byte) (HoldTokensConfig, error) {
	var cfg HoldTokensConfig
	if err := rlp.DecodeBytes(raw, &cfg); err != nil {
		return HoldTokensConfig{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := cfg.validate(); err != nil {
		return HoldTokensConfig{}, err
	}
	return cfg, nil
}

func (c HoldTokensConfig) validate() error {
	if len(c.Tokens) == 0 {
		return fmt.Errorf("%w: at least one token required", ErrInvalidConfig)
	}
	if len(c.Tokens) != len(c.Required) {
		return fmt.Errorf("%w: tokens and required amounts must align", ErrInvalidConfig)
	}
	seen := make(map[string]struct{}, len(c.Tokens))
	for i, token := range c.Tokens {
		trimmed := strings.TrimSpace(token)
		if trimmed == "" {
			return fmt.Errorf("%w: token symbol required", ErrInvalidConfig)
		}
		if _, ok := seen[trimmed]; ok {
			return fmt.Errorf("%w: duplicate token %s", ErrInvalidConfig, trimmed)
		}
		seen[trimmed] = struct{}{}
		if c.Required[i] == nil || c.Required[i].Sign() <= 0 {
			return fmt.Errorf("%w: required balance for %s must be positive", ErrInvalidConfig, trimmed)
		}
	}
	return validateWindow(c.Start, c.End)
}

// DecodeBuyNFTsConfig decodes and validates a buy-NFTs config blob.
func DecodeBuyNFTsConfig(raw []byte) (BuyNFTsConfig, error) {
	var cfg BuyNFTsConfig
	if err := rlp.DecodeBytes(raw, &cfg); err != nil {
		return BuyNFTsConfig{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := cfg.validate(); err != nil {
		return BuyNFTsConfig{}, err
	}
	return cfg, nil
}

func (c BuyNFTsConfig) validate() error {
	if strings.TrimSpace(c.Market) == "" {
		return fmt.Errorf("%w: market required", ErrInvalidConfig)
	}
	if c.RequiredCount == 0 {
		return fmt.Errorf("%w: required count must be positive", ErrInvalidConfig)
	}
	return validateWindow(c.Start, c.End)
}

// DecodeTokenSpendConfig decodes and validates a token-spend config blob.
func DecodeTokenSpendConfig(raw []byte) (TokenSpendConfig, error) {
	var cfg TokenSpendConfig
	if err := rlp.DecodeBytes(raw, &cfg); err != nil {
		return TokenSpendConfig{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := cfg.validate(); err != nil {
		return TokenSpendConfig{}, err
	}
	return cfg, nil
}

func (c TokenSpendConfig) validate() error {
	if strings.TrimSpace(c.Market) == "" {
		return fmt.Errorf("%w: market required", ErrInvalidConfig)
	}
	if c.RequiredSpend == nil || c.RequiredSpend.Sign() <= 0 {
		return fmt.Errorf("%w: required spend must be positive", ErrInvalidConfig)
	}
	return validateWindow(c.Start, c.End)
}

func validateWindow(start, end uint64) error {
	if start == 0 {
		return fmt.Errorf("%w: start date required", ErrInvalidConfig)
	}
	if end != 0 && end < start {
		return fmt.Errorf("%w: end date precedes start date", ErrInvalidConfig)
	}
	return nil
}

// windowContains reports whether now falls inside [start, end], treating an
// end of zero as open-ended.
func windowContains(start, end uint64, now int64) bool {
	if now < 0 {
		return false
	}
	ts := uint64(now)
	if ts < start {
		return false
	}
	if end != 0 && ts > end {
		return false
	}
	return true
}
