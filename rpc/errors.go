package rpc

import (
	"errors"
	"net/http"

	"claimgate/native/activity"
	"claimgate/native/campaign"
	"claimgate/native/registry"
	"claimgate/native/reward"
)

// Standard JSON-RPC codes plus the transport-level block.
const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeServerError    = -32000
	codeUnauthorized   = -32001
	codeRateLimited    = -32020
)

// Dedicated codes for the module error taxonomy, one per sentinel, so
// off-chain tooling can decide between retrying (refresh a proof) and giving
// up (already claimed).
const (
	codeInvalidConfig      = -32061
	codeUnknownKind        = -32062
	codeInvalidCombination = -32063
	codeNotAuthorized      = -32064
	codeNotEligible        = -32065
	codeProofExpired       = -32066
	codeProofFuture        = -32067
	codeProofInvalid       = -32068
	codeDiscountProof      = -32069
	codeAlreadyClaimed     = -32070
	codeInactive           = -32071
	codeOutsideWindow      = -32072
	codeSupplyExhausted    = -32073
	codeNotFound           = -32074
)

type codedError struct {
	match   error
	code    int
	status  int
	message string
}

// taxonomy maps sentinel errors to wire codes. Order matters: more specific
// sentinels precede the families that wrap them.
var taxonomy = []codedError{
	{campaign.ErrNotFound, codeNotFound, http.StatusNotFound, "campaign_not_found"},
	{campaign.ErrNotRestored, codeServerError, http.StatusServiceUnavailable, "campaign_not_restored"},
	{campaign.ErrNotOwner, codeNotAuthorized, http.StatusForbidden, "not_owner"},
	{campaign.ErrNotAuthorizedOrigin, codeNotAuthorized, http.StatusForbidden, "origin_not_authorized"},
	{campaign.ErrInvalidCombination, codeInvalidCombination, http.StatusBadRequest, "pairing_not_permitted"},
	{campaign.ErrDiscountProof, codeDiscountProof, http.StatusBadRequest, "discount_proof_invalid"},
	{campaign.ErrNotRaffle, codeInvalidParams, http.StatusBadRequest, "reward_has_no_draw"},
	{campaign.ErrNotEligible, codeNotEligible, http.StatusForbidden, "not_eligible"},
	{campaign.ErrInvalidConfig, codeInvalidConfig, http.StatusBadRequest, "invalid_config"},
	{registry.ErrUnknownKind, codeUnknownKind, http.StatusNotFound, "unknown_kind"},
	{registry.ErrUnauthorized, codeNotAuthorized, http.StatusForbidden, "not_registry_admin"},
	{registry.ErrInvalidKind, codeInvalidConfig, http.StatusBadRequest, "invalid_kind_name"},
	{registry.ErrInvalidTemplate, codeInvalidConfig, http.StatusBadRequest, "invalid_template"},
	{activity.ErrProofExpired, codeProofExpired, http.StatusForbidden, "proof_expired"},
	{activity.ErrProofFuture, codeProofFuture, http.StatusForbidden, "proof_future"},
	{activity.ErrProofSignature, codeProofInvalid, http.StatusForbidden, "proof_signature_invalid"},
	{activity.ErrProofMalformed, codeProofInvalid, http.StatusBadRequest, "proof_malformed"},
	{activity.ErrProofNil, codeProofInvalid, http.StatusBadRequest, "proof_required"},
	{activity.ErrInvalidConfig, codeInvalidConfig, http.StatusBadRequest, "invalid_config"},
	{activity.ErrUnknownTemplate, codeInvalidConfig, http.StatusBadRequest, "unknown_template"},
	{reward.ErrAlreadyClaimed, codeAlreadyClaimed, http.StatusConflict, "already_claimed"},
	{reward.ErrSupplyExhausted, codeSupplyExhausted, http.StatusConflict, "supply_exhausted"},
	{reward.ErrOutsideClaimWindow, codeOutsideWindow, http.StatusConflict, "outside_claim_window"},
	{reward.ErrInactive, codeInactive, http.StatusConflict, "campaign_inactive"},
	{reward.ErrRaffleDrawn, codeSupplyExhausted, http.StatusConflict, "raffle_drawn"},
	{reward.ErrNoEntrants, codeInvalidParams, http.StatusConflict, "no_entrants"},
	{reward.ErrEscrowUnderfunded, codeServerError, http.StatusConflict, "escrow_underfunded"},
	{reward.ErrFeeUnpayable, codeServerError, http.StatusConflict, "fee_unpayable"},
	{reward.ErrFeeInvalid, codeInvalidParams, http.StatusBadRequest, "fee_invalid"},
	{reward.ErrInvalidConfig, codeInvalidConfig, http.StatusBadRequest, "invalid_config"},
	{reward.ErrUnknownTemplate, codeInvalidConfig, http.StatusBadRequest, "unknown_template"},
}

// writeModuleError renders err through the taxonomy; unmatched errors fall
// back to a generic server error without leaking internals beyond the
// message chain.
func writeModuleError(w http.ResponseWriter, id interface{}, err error) {
	for _, entry := range taxonomy {
		if errors.Is(err, entry.match) {
			writeError(w, entry.status, id, entry.code, entry.message, err.Error())
			return
		}
	}
	writeError(w, http.StatusInternalServerError, id, codeServerError, "internal_error", err.Error())
}
