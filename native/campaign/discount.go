package campaign

import (
	"bytes"
	"encoding/binary"
	"fmt"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// DiscountEntry is one row of a fee-discount allow-list: the claimant and
// the basis points shaved off the campaign fee.
type DiscountEntry struct {
	Claimant [20]byte
	RateBps  uint32
}

// DiscountLeaf commits a single (claimant, rate) row.
func DiscountLeaf(claimant [20]byte, rateBps uint32) [32]byte {
	buf := make([]byte, 24)
	copy(buf, claimant[:])
	binary.BigEndian.PutUint32(buf[20:], rateBps)
	var leaf [32]byte
	copy(leaf[:], ethcrypto.Keccak256(buf))
	return leaf
}

// hashPair folds two nodes order-independently so verifiers need no
// left/right flags in the proof.
func hashPair(a, b [32]byte) [32]byte {
	if bytes.Compare(a[:], b[:]) > 0 {
		a, b = b, a
	}
	var out [32]byte
	copy(out[:], ethcrypto.Keccak256(a[:], b[:]))
	return out
}

// VerifyDiscount folds the sibling path over the leaf and compares against
// the committed root.
func VerifyDiscount(root [32]byte, claimant [20]byte, rateBps uint32, proof [][32]byte) bool {
	if root == zeroHash {
		return false
	}
	node := DiscountLeaf(claimant, rateBps)
	for _, sibling := range proof {
		node = hashPair(node, sibling)
	}
	return node == root
}

// BuildDiscountTree commits a rate table and returns the root plus one
// sibling path per claimant. Operator tooling publishes the root on the
// campaign and hands each claimant their path.
func BuildDiscountTree(entries []DiscountEntry) ([32]byte, map[[20]byte][][32]byte, error) {
	if len(entries) == 0 {
		return [32]byte{}, nil, fmt.Errorf("%w: discount table empty", ErrInvalidConfig)
	}
	seen := make(map[[20]byte]struct{}, len(entries))
	level := make([][32]byte, len(entries))
	positions := make([]int, len(entries))
	proofs := make(map[[20]byte][][32]byte, len(entries))
	for i, entry := range entries {
		if _, dup := seen[entry.Claimant]; dup {
			return [32]byte{}, nil, fmt.Errorf("%w: duplicate discount claimant", ErrInvalidConfig)
		}
		seen[entry.Claimant] = struct{}{}
		if entry.RateBps > feeBpsMax {
			return [32]byte{}, nil, fmt.Errorf("%w: discount rate beyond scale", ErrInvalidConfig)
		}
		level[i] = DiscountLeaf(entry.Claimant, entry.RateBps)
		positions[i] = i
		proofs[entry.Claimant] = nil
	}
	for len(level) > 1 {
		next := make([][32]byte, 0, (len(level)+1)/2)
		for j := 0; j < len(level); j += 2 {
			if j+1 == len(level) {
				// Odd node promotes unchanged.
				next = append(next, level[j])
				continue
			}
			next = append(next, hashPair(level[j], level[j+1]))
		}
		for i, entry := range entries {
			pos := positions[i]
			sibling := pos ^ 1
			if sibling < len(level) {
				proofs[entry.Claimant] = append(proofs[entry.Claimant], level[sibling])
			}
			positions[i] = pos / 2
		}
		level = next
	}
	return level[0], proofs, nil
}
