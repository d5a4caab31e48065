package events

import "strconv"

const (
	// TypeRegistryKindRegistered is emitted when an activity or reward kind is
	// registered (or re-registered with a new template).
	TypeRegistryKindRegistered = "registry.kind_registered"
	// TypeRegistryPairingUpdated is emitted when a pairing's permitted flag
	// changes.
	TypeRegistryPairingUpdated = "registry.pairing_updated"
)

// RegistryKindRegistered captures a kind registration. Module is either
// "activity" or "reward".
type RegistryKindRegistered struct {
	Module     string
	Name       string
	TemplateID string
	Caller     [20]byte
}

// EventType implements the Event interface.
func (RegistryKindRegistered) EventType() string { return TypeRegistryKindRegistered }

// Attributes implements the Event interface.
func (e RegistryKindRegistered) Attributes() map[string]string {
	return map[string]string{
		"module":   e.Module,
		"name":     e.Name,
		"template": e.TemplateID,
		"caller":   formatAddr(e.Caller),
	}
}

// RegistryPairingUpdated captures a permitted-pairing mutation.
type RegistryPairingUpdated struct {
	ActivityKind string
	RewardKind   string
	Permitted    bool
	Caller       [20]byte
}

// EventType implements the Event interface.
func (RegistryPairingUpdated) EventType() string { return TypeRegistryPairingUpdated }

// Attributes implements the Event interface.
func (e RegistryPairingUpdated) Attributes() map[string]string {
	return map[string]string{
		"activity_kind": e.ActivityKind,
		"reward_kind":   e.RewardKind,
		"permitted":     strconv.FormatBool(e.Permitted),
		"caller":        formatAddr(e.Caller),
	}
}
