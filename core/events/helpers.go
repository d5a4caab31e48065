package events

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"claimgate/crypto"
)

func formatID(id [32]byte) string {
	return "0x" + common.Bytes2Hex(id[:])
}

func formatAddr(addr [20]byte) string {
	return crypto.NewAddress(addr).String()
}

func formatAmount(amount *big.Int) string {
	if amount == nil {
		return "0"
	}
	return amount.String()
}

func normalizeAsset(asset string) string {
	trimmed := strings.TrimSpace(asset)
	if trimmed == "" {
		return ""
	}
	return strings.ToUpper(trimmed)
}
