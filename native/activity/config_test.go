package activity

import (
	"errors"
	"math/big"
	"testing"
)

func TestDecodeHoldNFTsConfigValidation(t *testing.T) {
	valid := HoldNFTsConfig{
		Collections: []string{"punks", "apes"},
		Required:    []uint64{1, 2},
		Start:       1_000,
		End:         2_000,
	}
	cases := []struct {
		name   string
		mutate func(*HoldNFTsConfig)
	}{
		{"no collections", func(c *HoldNFTsConfig) { c.Collections = nil; c.Required = nil }},
		{"length mismatch", func(c *HoldNFTsConfig) { c.Required = []uint64{1} }},
		{"blank collection", func(c *HoldNFTsConfig) { c.Collections = []string{"punks", "  "} }},
		{"duplicate collection", func(c *HoldNFTsConfig) { c.Collections = []string{"punks", "punks"} }},
		{"zero requirement", func(c *HoldNFTsConfig) { c.Required = []uint64{1, 0} }},
		{"missing start", func(c *HoldNFTsConfig) { c.Start = 0 }},
		{"end before start", func(c *HoldNFTsConfig) { c.End = 500 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid
			cfg.Collections = append([]string(nil), valid.Collections...)
			cfg.Required = append([]uint64(nil), valid.Required...)
			tc.mutate(&cfg)
			raw, err := cfg.Encode()
			if err != nil {
				t.Fatalf("encode: %v", err)
			}
			if _, err := DecodeHoldNFTsConfig(raw); !errors.Is(err, ErrInvalidConfig) {
				t.Fatalf("expected invalid config, got %v", err)
			}
		})
	}

	raw, err := valid.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := DecodeHoldNFTsConfig(raw)
	if err != nil {
		t.Fatalf("decode valid config: %v", err)
	}
	if decoded.Collections[1] != "apes" || decoded.Required[1] != 2 {
		t.Fatalf("unexpected decoded config: %+v", decoded)
	}
}

func TestDecodeHoldTokensConfigValidation(t *testing.T) {
	valid := HoldTokensConfig{
		Tokens:   []string{"CGT"},
		Required: []*big.Int{big.NewInt(100)},
		Start:    1_000,
	}
	raw, err := valid.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := DecodeHoldTokensConfig(raw); err != nil {
		t.Fatalf("decode valid config: %v", err)
	}

	zero := valid
	zero.Required = []*big.Int{big.NewInt(0)}
	raw, err = zero.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := DecodeHoldTokensConfig(raw); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected invalid config for zero requirement, got %v", err)
	}
}

func TestDecodeSpendConfigs(t *testing.T) {
	buy := BuyNFTsConfig{Market: "bazaar", RequiredCount: 3, Start: 1_000}
	raw, err := buy.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := DecodeBuyNFTsConfig(raw); err != nil {
		t.Fatalf("decode valid buy config: %v", err)
	}
	buy.Market = ""
	raw, err = buy.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := DecodeBuyNFTsConfig(raw); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected invalid config for blank market, got %v", err)
	}

	spend := TokenSpendConfig{Market: "bazaar", RequiredSpend: big.NewInt(500), Start: 1_000}
	raw, err = spend.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := DecodeTokenSpendConfig(raw); err != nil {
		t.Fatalf("decode valid spend config: %v", err)
	}
	spend.RequiredSpend = big.NewInt(0)
	raw, err = spend.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := DecodeTokenSpendConfig(raw); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected invalid config for zero spend, got %v", err)
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	if _, err := DecodeHoldNFTsConfig([]byte{0xff, 0x00, 0x01}); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected invalid config for garbage bytes, got %v", err)
	}
}

func TestValidateConfigDispatch(t *testing.T) {
	cfg := BuyNFTsConfig{Market: "bazaar", RequiredCount: 1, Start: 1}
	raw, err := cfg.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := ValidateConfig(TemplateBuyNFTs, raw); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if err := ValidateConfig("activity/unknown/v1", raw); !errors.Is(err, ErrUnknownTemplate) {
		t.Fatalf("expected unknown template, got %v", err)
	}
	// A blob valid for one template is rejected by another.
	if err := ValidateConfig(TemplateHoldNFTs, raw); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected invalid config for cross-template blob, got %v", err)
	}
}
