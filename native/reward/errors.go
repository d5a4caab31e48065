package reward

import "errors"

var (
	// ErrInvalidConfig is returned when a config blob fails decoding or
	// structural validation.
	ErrInvalidConfig = errors.New("reward: invalid config")
	// ErrUnknownTemplate is returned when a template ID names no built-in
	// reward template.
	ErrUnknownTemplate = errors.New("reward: unknown template")
	// ErrInactive is returned when the owner has toggled the instance off.
	ErrInactive = errors.New("reward: instance inactive")
	// ErrOutsideClaimWindow is returned outside [claimStart, claimFinish].
	ErrOutsideClaimWindow = errors.New("reward: outside claim window")
	// ErrAlreadyClaimed is returned when the claimant has already claimed
	// from this instance.
	ErrAlreadyClaimed = errors.New("reward: already claimed")
	// ErrSupplyExhausted is returned when the instance's inventory cannot
	// cover another claim.
	ErrSupplyExhausted = errors.New("reward: supply exhausted")
	// ErrEscrowUnderfunded is returned when the funding wallet's balance or
	// allowance cannot cover the staged distribution.
	ErrEscrowUnderfunded = errors.New("reward: escrow underfunded")
	// ErrFeeUnpayable is returned when the claimant cannot cover a flat
	// claim fee.
	ErrFeeUnpayable = errors.New("reward: claimant cannot cover fee")
	// ErrFeeInvalid is returned for fee rates beyond the basis-point scale.
	ErrFeeInvalid = errors.New("reward: invalid fee rate")
	// ErrRaffleDrawn is returned when a raffle draw is attempted twice.
	ErrRaffleDrawn = errors.New("reward: raffle already drawn")
	// ErrNoEntrants is returned when a raffle draw finds an empty entrant
	// list.
	ErrNoEntrants = errors.New("reward: no raffle entrants")
)
