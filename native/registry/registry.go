// Package registry records which activity and reward module kinds exist and
// which (activity, reward) pairings the factory may instantiate. Registering
// a kind never implicitly permits any pairing.
package registry

import (
	"fmt"
	"sort"
	"strings"

	"claimgate/core/events"
)

// RoleAdmin guards every registry mutation.
const RoleAdmin = "ROLE_REGISTRY_ADMIN"

const maxKindNameLen = 64

type registryState interface {
	HasRole(role string, addr []byte) bool
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
	KVAppend(key []byte, value []byte) error
	KVGetList(key []byte, out interface{}) error
}

// KindEntry is one kind-name → template mapping.
type KindEntry struct {
	Name       string
	TemplateID string
}

// Pairing is a permitted-set entry.
type Pairing struct {
	ActivityKind string
	RewardKind   string
	Permitted    bool
}

// Registry manages persistence and retrieval of module kinds and pairings.
type Registry struct {
	st      registryState
	emitter events.Emitter
}

// NewRegistry creates a registry backed by the provided state manager.
func NewRegistry(st registryState) *Registry {
	return &Registry{st: st, emitter: events.NoopEmitter{}}
}

// SetEmitter configures the event emitter used to broadcast registry updates.
// Passing nil resets the emitter to a no-op implementation.
func (r *Registry) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		r.emitter = events.NoopEmitter{}
		return
	}
	r.emitter = emitter
}

func activityKindKey(name string) []byte {
	return []byte("registry/activity/" + name)
}

func rewardKindKey(name string) []byte {
	return []byte("registry/reward/" + name)
}

func pairingKey(activityKind, rewardKind string) []byte {
	return []byte("registry/pairing/" + activityKind + "|" + rewardKind)
}

var (
	activityIndexKey = []byte("registry/activity-index")
	rewardIndexKey   = []byte("registry/reward-index")
	pairingIndexKey  = []byte("registry/pairing-index")
)

func sanitizeKindName(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" || len(trimmed) > maxKindNameLen {
		return "", fmt.Errorf("%w: %q", ErrInvalidKind, name)
	}
	for _, r := range trimmed {
		switch {
		case r >= 'A' && r <= 'Z':
		case r >= 'a' && r <= 'z':
		case r >= '0' && r <= '9':
		case r == '_' || r == '-':
		default:
			return "", fmt.Errorf("%w: %q", ErrInvalidKind, name)
		}
	}
	return trimmed, nil
}

func sanitizeTemplateID(id string) (string, error) {
	trimmed := strings.TrimSpace(id)
	if trimmed == "" || len(trimmed) > 128 {
		return "", fmt.Errorf("%w: %q", ErrInvalidTemplate, id)
	}
	return trimmed, nil
}

// RegisterActivityKind maps an activity kind name to a template. Re-registering
// overwrites the mapping without retroactive effect on existing campaigns.
func (r *Registry) RegisterActivityKind(caller [20]byte, name, templateID string) error {
	return r.registerKind(caller, "activity", activityKindKey, activityIndexKey, name, templateID)
}

// RegisterRewardKind maps a reward kind name to a template.
func (r *Registry) RegisterRewardKind(caller [20]byte, name, templateID string) error {
	return r.registerKind(caller, "reward", rewardKindKey, rewardIndexKey, name, templateID)
}

func (r *Registry) registerKind(caller [20]byte, module string, keyFn func(string) []byte, indexKey []byte, name, templateID string) error {
	if !r.st.HasRole(RoleAdmin, caller[:]) {
		return ErrUnauthorized
	}
	sanitizedName, err := sanitizeKindName(name)
	if err != nil {
		return err
	}
	sanitizedTemplate, err := sanitizeTemplateID(templateID)
	if err != nil {
		return err
	}
	existing := new(KindEntry)
	found, err := r.st.KVGet(keyFn(sanitizedName), existing)
	if err != nil {
		return err
	}
	entry := &KindEntry{Name: sanitizedName, TemplateID: sanitizedTemplate}
	if err := r.st.KVPut(keyFn(sanitizedName), entry); err != nil {
		return err
	}
	if !found {
		if err := r.st.KVAppend(indexKey, []byte(sanitizedName)); err != nil {
			return err
		}
	}
	r.emitter.Emit(events.RegistryKindRegistered{
		Module:     module,
		Name:       sanitizedName,
		TemplateID: sanitizedTemplate,
		Caller:     caller,
	})
	return nil
}

// SetPairingPermitted flips the permitted flag for a pairing. Both kinds must
// already be registered.
func (r *Registry) SetPairingPermitted(caller [20]byte, activityKind, rewardKind string, permitted bool) error {
	if !r.st.HasRole(RoleAdmin, caller[:]) {
		return ErrUnauthorized
	}
	sanitizedActivity, err := sanitizeKindName(activityKind)
	if err != nil {
		return err
	}
	sanitizedReward, err := sanitizeKindName(rewardKind)
	if err != nil {
		return err
	}
	if _, err := r.ActivityTemplate(sanitizedActivity); err != nil {
		return err
	}
	if _, err := r.RewardTemplate(sanitizedReward); err != nil {
		return err
	}
	existing := new(Pairing)
	found, err := r.st.KVGet(pairingKey(sanitizedActivity, sanitizedReward), existing)
	if err != nil {
		return err
	}
	entry := &Pairing{ActivityKind: sanitizedActivity, RewardKind: sanitizedReward, Permitted: permitted}
	if err := r.st.KVPut(pairingKey(sanitizedActivity, sanitizedReward), entry); err != nil {
		return err
	}
	if !found {
		if err := r.st.KVAppend(pairingIndexKey, []byte(sanitizedActivity+"|"+sanitizedReward)); err != nil {
			return err
		}
	}
	r.emitter.Emit(events.RegistryPairingUpdated{
		ActivityKind: sanitizedActivity,
		RewardKind:   sanitizedReward,
		Permitted:    permitted,
		Caller:       caller,
	})
	return nil
}

// ActivityTemplate resolves an activity kind to its template ID.
func (r *Registry) ActivityTemplate(name string) (string, error) {
	return r.lookupTemplate(activityKindKey, name)
}

// RewardTemplate resolves a reward kind to its template ID.
func (r *Registry) RewardTemplate(name string) (string, error) {
	return r.lookupTemplate(rewardKindKey, name)
}

func (r *Registry) lookupTemplate(keyFn func(string) []byte, name string) (string, error) {
	sanitized, err := sanitizeKindName(name)
	if err != nil {
		return "", err
	}
	entry := new(KindEntry)
	found, err := r.st.KVGet(keyFn(sanitized), entry)
	if err != nil {
		return "", err
	}
	if !found {
		return "", fmt.Errorf("%w: %s", ErrUnknownKind, sanitized)
	}
	return entry.TemplateID, nil
}

// PairingPermitted reports whether the factory may combine the two kinds.
// Unknown pairings are simply not permitted.
func (r *Registry) PairingPermitted(activityKind, rewardKind string) (bool, error) {
	sanitizedActivity, err := sanitizeKindName(activityKind)
	if err != nil {
		return false, err
	}
	sanitizedReward, err := sanitizeKindName(rewardKind)
	if err != nil {
		return false, err
	}
	entry := new(Pairing)
	found, err := r.st.KVGet(pairingKey(sanitizedActivity, sanitizedReward), entry)
	if err != nil {
		return false, err
	}
	if !found {
		return false, nil
	}
	return entry.Permitted, nil
}

// ActivityKinds returns every registered activity kind, sorted by name.
func (r *Registry) ActivityKinds() ([]KindEntry, error) {
	return r.listKinds(activityKindKey, activityIndexKey)
}

// RewardKinds returns every registered reward kind, sorted by name.
func (r *Registry) RewardKinds() ([]KindEntry, error) {
	return r.listKinds(rewardKindKey, rewardIndexKey)
}

func (r *Registry) listKinds(keyFn func(string) []byte, indexKey []byte) ([]KindEntry, error) {
	var raw [][]byte
	if err := r.st.KVGetList(indexKey, &raw); err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(raw))
	entries := make([]KindEntry, 0, len(raw))
	for _, item := range raw {
		name := string(item)
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		entry := new(KindEntry)
		found, err := r.st.KVGet(keyFn(name), entry)
		if err != nil {
			return nil, err
		}
		if !found {
			continue
		}
		entries = append(entries, *entry)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

// Pairings returns every pairing ever set, sorted, including ones later
// revoked (Permitted false).
func (r *Registry) Pairings() ([]Pairing, error) {
	var raw [][]byte
	if err := r.st.KVGetList(pairingIndexKey, &raw); err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(raw))
	pairings := make([]Pairing, 0, len(raw))
	for _, item := range raw {
		key := string(item)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		parts := strings.SplitN(key, "|", 2)
		if len(parts) != 2 {
			continue
		}
		entry := new(Pairing)
		found, err := r.st.KVGet(pairingKey(parts[0], parts[1]), entry)
		if err != nil {
			return nil, err
		}
		if !found {
			continue
		}
		pairings = append(pairings, *entry)
	}
	sort.Slice(pairings, func(i, j int) bool {
		if pairings[i].ActivityKind != pairings[j].ActivityKind {
			return pairings[i].ActivityKind < pairings[j].ActivityKind
		}
		return pairings[i].RewardKind < pairings[j].RewardKind
	})
	return pairings, nil
}
