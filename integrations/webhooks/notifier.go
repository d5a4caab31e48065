package webhooks

import (
	"strings"

	"claimgate/core/events"
)

// Notifier adapts the event stream into webhook deliveries. It implements
// events.Emitter so it can be wired into the node alongside metrics and audit.
type Notifier struct {
	dispatcher *Dispatcher
}

// NewNotifier constructs a notifier backed by the given dispatcher.
func NewNotifier(dispatcher *Dispatcher) *Notifier {
	return &Notifier{dispatcher: dispatcher}
}

// Emit implements the events.Emitter interface. Enqueue failures are dropped
// rather than propagated so a saturated webhook queue never stalls a claim.
func (n *Notifier) Emit(evt events.Event) {
	if n == nil || n.dispatcher == nil || evt == nil {
		return
	}
	attrs := evt.Attributes()
	switch evt.EventType() {
	case events.TypeClaimSucceeded:
		_ = n.dispatcher.EnqueueClaim(ClaimCommittedPayload{
			CampaignID: attrs["campaign_id"],
			Claimant:   attrs["claimant"],
			RewardKind: attrs["reward_kind"],
			Amount:     attrs["amount"],
			Fee:        attrs["fee"],
			TokenID:    attrs["token_id"],
		})
	case events.TypeRaffleDrawn:
		payload := RaffleDrawnPayload{
			CampaignID:     attrs["campaign_id"],
			PrizePerWinner: attrs["prize"],
		}
		if winners := attrs["winners"]; winners != "" {
			payload.Winners = strings.Split(winners, ",")
		}
		_ = n.dispatcher.EnqueueRaffle(payload)
	}
}
