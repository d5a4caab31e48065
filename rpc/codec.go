package rpc

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"claimgate/crypto"
	"claimgate/native/activity"
	"claimgate/native/reward"
)

func parseBech32Address(value string) ([20]byte, error) {
	addr, err := crypto.DecodeAddress(strings.TrimSpace(value))
	if err != nil {
		return [20]byte{}, err
	}
	return addr.Bytes(), nil
}

func formatAddress(addr [20]byte) string {
	return crypto.NewAddress(addr).String()
}

func parseID(value string) ([32]byte, error) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(value), "0x")
	raw, err := hex.DecodeString(trimmed)
	if err != nil {
		return [32]byte{}, fmt.Errorf("invalid id: %w", err)
	}
	if len(raw) != 32 {
		return [32]byte{}, fmt.Errorf("id must be 32 bytes, got %d", len(raw))
	}
	var id [32]byte
	copy(id[:], raw)
	return id, nil
}

func formatIDHex(id [32]byte) string {
	return "0x" + hex.EncodeToString(id[:])
}

func parseAmount(value string) (*big.Int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, fmt.Errorf("amount required")
	}
	amount, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, fmt.Errorf("invalid decimal amount %q", value)
	}
	if amount.Sign() < 0 {
		return nil, fmt.Errorf("amount must not be negative")
	}
	return amount, nil
}

func formatAmount(amount *big.Int) string {
	if amount == nil {
		return "0"
	}
	return amount.String()
}

// Wire shapes for the per-kind config objects. Amounts travel as decimal
// strings; addresses bech32; dates unix seconds with zero meaning unbounded.

type holdNFTsConfigJSON struct {
	Collections []string `json:"collections"`
	Required    []uint64 `json:"required"`
	Start       uint64   `json:"start"`
	End         uint64   `json:"end"`
	Snapshot    uint64   `json:"snapshot"`
	Filter      *uint8   `json:"filter"`
}

type holdTokensConfigJSON struct {
	Tokens   []string `json:"tokens"`
	Required []string `json:"required"`
	Start    uint64   `json:"start"`
	End      uint64   `json:"end"`
	Snapshot uint64   `json:"snapshot"`
}

type buyNFTsConfigJSON struct {
	Market        string `json:"market"`
	RequiredCount uint64 `json:"requiredCount"`
	Start         uint64 `json:"start"`
	End           uint64 `json:"end"`
}

type tokenSpendConfigJSON struct {
	Market        string `json:"market"`
	RequiredSpend string `json:"requiredSpend"`
	Start         uint64 `json:"start"`
	End           uint64 `json:"end"`
}

// encodeActivityConfig translates the JSON config object for template into
// the RLP blob the factory consumes.
func encodeActivityConfig(template string, raw json.RawMessage) ([]byte, error) {
	switch template {
	case activity.TemplateHoldNFTs:
		var cfg holdNFTsConfigJSON
		if err := json.Unmarshal(raw, &cfg); err != nil {
			return nil, err
		}
		typed := activity.HoldNFTsConfig{
			Collections: cfg.Collections,
			Required:    cfg.Required,
			Start:       cfg.Start,
			End:         cfg.End,
			Snapshot:    cfg.Snapshot,
		}
		if cfg.Filter != nil {
			typed.HasFilter = true
			typed.Filter = *cfg.Filter
		}
		return typed.Encode()
	case activity.TemplateHoldTokens:
		var cfg holdTokensConfigJSON
		if err := json.Unmarshal(raw, &cfg); err != nil {
			return nil, err
		}
		required := make([]*big.Int, 0, len(cfg.Required))
		for _, value := range cfg.Required {
			amount, err := parseAmount(value)
			if err != nil {
				return nil, err
			}
			required = append(required, amount)
		}
		return activity.HoldTokensConfig{
			Tokens:   cfg.Tokens,
			Required: required,
			Start:    cfg.Start,
			End:      cfg.End,
			Snapshot: cfg.Snapshot,
		}.Encode()
	case activity.TemplateBuyNFTs:
		var cfg buyNFTsConfigJSON
		if err := json.Unmarshal(raw, &cfg); err != nil {
			return nil, err
		}
		return activity.BuyNFTsConfig{
			Market:        cfg.Market,
			RequiredCount: cfg.RequiredCount,
			Start:         cfg.Start,
			End:           cfg.End,
		}.Encode()
	case activity.TemplateTokenSpend:
		var cfg tokenSpendConfigJSON
		if err := json.Unmarshal(raw, &cfg); err != nil {
			return nil, err
		}
		spend, err := parseAmount(cfg.RequiredSpend)
		if err != nil {
			return nil, err
		}
		return activity.TokenSpendConfig{
			Market:        cfg.Market,
			RequiredSpend: spend,
			Start:         cfg.Start,
			End:           cfg.End,
		}.Encode()
	default:
		return nil, fmt.Errorf("%w: %s", activity.ErrUnknownTemplate, template)
	}
}

type tokenAirdropConfigJSON struct {
	Token          string `json:"token"`
	AmountPerClaim string `json:"amountPerClaim"`
	TotalBudget    string `json:"totalBudget"`
	Funder         string `json:"funder"`
	ClaimStart     uint64 `json:"claimStart"`
	ClaimFinish    uint64 `json:"claimFinish"`
}

type nftMintConfigJSON struct {
	Collection  string   `json:"collection"`
	MaxSupply   uint64   `json:"maxSupply"`
	Randomized  bool     `json:"randomized"`
	BaseID      uint64   `json:"baseId"`
	Pool        []uint64 `json:"pool"`
	FeeToken    string   `json:"feeToken"`
	FeeBase     string   `json:"feeBase"`
	ClaimStart  uint64   `json:"claimStart"`
	ClaimFinish uint64   `json:"claimFinish"`
}

type tokenRaffleConfigJSON struct {
	Token       string `json:"token"`
	PrizePool   string `json:"prizePool"`
	WinnerCount uint64 `json:"winnerCount"`
	Funder      string `json:"funder"`
	FeeToken    string `json:"feeToken"`
	FeeBase     string `json:"feeBase"`
	ClaimStart  uint64 `json:"claimStart"`
	ClaimFinish uint64 `json:"claimFinish"`
}

type whitelistConfigJSON struct {
	ListID      string `json:"listId"`
	MaxEntries  uint64 `json:"maxEntries"`
	FeeToken    string `json:"feeToken"`
	FeeBase     string `json:"feeBase"`
	ClaimStart  uint64 `json:"claimStart"`
	ClaimFinish uint64 `json:"claimFinish"`
}

func parseOptionalFee(value string) (*big.Int, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}
	return parseAmount(value)
}

// encodeRewardConfig translates the JSON config object for template into the
// RLP blob the factory consumes.
func encodeRewardConfig(template string, raw json.RawMessage) ([]byte, error) {
	switch template {
	case reward.TemplateTokenAirdrop:
		var cfg tokenAirdropConfigJSON
		if err := json.Unmarshal(raw, &cfg); err != nil {
			return nil, err
		}
		amount, err := parseAmount(cfg.AmountPerClaim)
		if err != nil {
			return nil, err
		}
		budget, err := parseAmount(cfg.TotalBudget)
		if err != nil {
			return nil, err
		}
		funder, err := parseBech32Address(cfg.Funder)
		if err != nil {
			return nil, err
		}
		return reward.TokenAirdropConfig{
			Token:          cfg.Token,
			AmountPerClaim: amount,
			TotalBudget:    budget,
			Funder:         funder,
			ClaimStart:     cfg.ClaimStart,
			ClaimFinish:    cfg.ClaimFinish,
		}.Encode()
	case reward.TemplateNFTMint:
		var cfg nftMintConfigJSON
		if err := json.Unmarshal(raw, &cfg); err != nil {
			return nil, err
		}
		feeBase, err := parseOptionalFee(cfg.FeeBase)
		if err != nil {
			return nil, err
		}
		return reward.NFTMintConfig{
			Collection:  cfg.Collection,
			MaxSupply:   cfg.MaxSupply,
			Randomized:  cfg.Randomized,
			BaseID:      cfg.BaseID,
			Pool:        cfg.Pool,
			FeeToken:    cfg.FeeToken,
			FeeBase:     feeBase,
			ClaimStart:  cfg.ClaimStart,
			ClaimFinish: cfg.ClaimFinish,
		}.Encode()
	case reward.TemplateTokenRaffle:
		var cfg tokenRaffleConfigJSON
		if err := json.Unmarshal(raw, &cfg); err != nil {
			return nil, err
		}
		prize, err := parseAmount(cfg.PrizePool)
		if err != nil {
			return nil, err
		}
		funder, err := parseBech32Address(cfg.Funder)
		if err != nil {
			return nil, err
		}
		feeBase, err := parseOptionalFee(cfg.FeeBase)
		if err != nil {
			return nil, err
		}
		return reward.TokenRaffleConfig{
			Token:       cfg.Token,
			PrizePool:   prize,
			WinnerCount: cfg.WinnerCount,
			Funder:      funder,
			FeeToken:    cfg.FeeToken,
			FeeBase:     feeBase,
			ClaimStart:  cfg.ClaimStart,
			ClaimFinish: cfg.ClaimFinish,
		}.Encode()
	case reward.TemplateWhitelist:
		var cfg whitelistConfigJSON
		if err := json.Unmarshal(raw, &cfg); err != nil {
			return nil, err
		}
		feeBase, err := parseOptionalFee(cfg.FeeBase)
		if err != nil {
			return nil, err
		}
		return reward.WhitelistConfig{
			ListID:      cfg.ListID,
			MaxEntries:  cfg.MaxEntries,
			FeeToken:    cfg.FeeToken,
			FeeBase:     feeBase,
			ClaimStart:  cfg.ClaimStart,
			ClaimFinish: cfg.ClaimFinish,
		}.Encode()
	default:
		return nil, fmt.Errorf("%w: %s", reward.ErrUnknownTemplate, template)
	}
}
