package campaign

import "errors"

var (
	// ErrNotAuthorizedOrigin is returned when the creating origin is not on
	// the factory allow-list.
	ErrNotAuthorizedOrigin = errors.New("campaign: origin not authorized")
	// ErrInvalidCombination is returned when the activity/reward pairing is
	// not permitted by the registry.
	ErrInvalidCombination = errors.New("campaign: pairing not permitted")
	// ErrInvalidConfig is returned for malformed campaign-level parameters.
	// Module config blobs fail with their own package's config error.
	ErrInvalidConfig = errors.New("campaign: invalid config")
	// ErrNotFound is returned when no campaign exists under the given ID.
	ErrNotFound = errors.New("campaign: not found")
	// ErrNotOwner is returned when a mutator is invoked by anyone but the
	// campaign owner.
	ErrNotOwner = errors.New("campaign: caller is not the owner")
	// ErrNotEligible is returned when no authentication path admits the
	// claimant.
	ErrNotEligible = errors.New("campaign: claimant not eligible")
	// ErrDiscountProof is returned when a requested fee discount cannot be
	// proven against the configured allow-list commitment.
	ErrDiscountProof = errors.New("campaign: invalid discount proof")
	// ErrNotRaffle is returned when a draw is requested on a reward kind
	// without one.
	ErrNotRaffle = errors.New("campaign: reward has no draw")
	// ErrNotRestored is returned when a persisted campaign has no live
	// module instances in this process.
	ErrNotRestored = errors.New("campaign: instances not restored")
)
