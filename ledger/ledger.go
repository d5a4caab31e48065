// Package ledger defines the asset interfaces the claim engines read and
// transfer through. The fungible/non-fungible implementations themselves are
// external collaborators with standard transfer/ownership semantics; Memory
// provides the in-process reference used by the dev daemon and tests.
package ledger

import (
	"errors"
	"math/big"
)

var (
	// ErrInsufficientBalance is returned when a transfer exceeds the sender's
	// balance.
	ErrInsufficientBalance = errors.New("ledger: insufficient balance")
	// ErrInsufficientAllowance is returned when a delegated transfer exceeds
	// the spender's remaining allowance.
	ErrInsufficientAllowance = errors.New("ledger: insufficient allowance")
	// ErrUnknownCollection is returned for operations against an unregistered
	// NFT collection.
	ErrUnknownCollection = errors.New("ledger: unknown collection")
	// ErrTokenMinted is returned when a token ID has already been minted.
	ErrTokenMinted = errors.New("ledger: token already minted")
	// ErrAmountInvalid is returned for nil or negative amounts.
	ErrAmountInvalid = errors.New("ledger: invalid amount")
)

// TokenLedger exposes fungible balances, allowances and transfers. A zero
// `at` timestamp means "current"; any other value answers as of that instant.
type TokenLedger interface {
	BalanceAt(addr [20]byte, symbol string, at int64) (*big.Int, error)
	Allowance(owner, spender [20]byte, symbol string) (*big.Int, error)
	Transfer(from, to [20]byte, symbol string, amount *big.Int) error
	TransferFrom(owner, spender, to [20]byte, symbol string, amount *big.Int) error
}

// NFTLedger exposes per-collection holdings, the collection's listing tag
// byte, and minting.
type NFTLedger interface {
	HoldingsAt(addr [20]byte, collection string, at int64) (uint64, error)
	CollectionTag(collection string) (byte, error)
	Mint(collection string, to [20]byte, tokenID uint64) error
}

// SpendLedger exposes the externally-accrued purchase history the "buy"
// activities read. The claim engines never write to it.
type SpendLedger interface {
	PurchasesIn(addr [20]byte, market string, from, to int64) (uint64, error)
	SpendIn(addr [20]byte, market string, from, to int64) (*big.Int, error)
}
