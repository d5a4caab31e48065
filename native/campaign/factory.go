package campaign

import (
	"encoding/binary"
	"fmt"
	"time"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"claimgate/core/events"
	"claimgate/native/activity"
	"claimgate/native/registry"
	"claimgate/native/reward"
)

// CreateParams carries one factory call. Template overrides, when set, take
// precedence over the registry's kind binding but must still name a built-in
// template.
type CreateParams struct {
	ActivityKind             string
	ActivityTemplateOverride string
	ActivityConfig           []byte
	RewardKind               string
	RewardTemplateOverride   string
	RewardConfig             []byte
	Eligibility              EligibilityConfig
	Origin                   [20]byte
	Owner                    [20]byte
	Affiliate                *[20]byte
	FeeBps                   uint32
}

// Factory instantiates campaigns: it validates every precondition, derives
// the instance identities, persists the record and hands the live module
// instances to the engine. Nothing is observable until the record write
// commits.
type Factory struct {
	st       campaignState
	registry *registry.Registry
	engine   *Engine
	ledgers  Ledgers
	treasury [20]byte
	emitter  events.Emitter
	nowFn    func() time.Time
}

// NewFactory wires a factory over shared state, the kind registry and the
// claim engine that will own the created instances.
func NewFactory(st campaignState, reg *registry.Registry, engine *Engine, ledgers Ledgers, treasury [20]byte) *Factory {
	return &Factory{
		st:       st,
		registry: reg,
		engine:   engine,
		ledgers:  ledgers,
		treasury: treasury,
		emitter:  events.NoopEmitter{},
		nowFn:    time.Now,
	}
}

// SetEmitter configures the event sink. Passing nil resets to a no-op.
func (f *Factory) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		f.emitter = events.NoopEmitter{}
		return
	}
	f.emitter = emitter
}

// SetNowFunc overrides the clock used for record timestamps. Passing nil
// restores the wall clock.
func (f *Factory) SetNowFunc(now func() time.Time) {
	if now == nil {
		f.nowFn = time.Now
		return
	}
	f.nowFn = now
}

// SetOriginAuthorized adds or removes an origin from the creation
// allow-list. Restricted to factory admins.
func (f *Factory) SetOriginAuthorized(caller, origin [20]byte, authorized bool) error {
	if !f.st.HasRole(RoleFactoryAdmin, caller[:]) {
		return ErrNotAuthorizedOrigin
	}
	if origin == zeroAddr {
		return fmt.Errorf("%w: origin required", ErrInvalidConfig)
	}
	if authorized {
		return f.st.GrantRole(RoleOrigin, origin)
	}
	return f.st.RevokeRole(RoleOrigin, origin)
}

// OriginAuthorized reports whether origin may create campaigns.
func (f *Factory) OriginAuthorized(origin [20]byte) bool {
	return f.st.HasRole(RoleOrigin, origin[:])
}

func deriveCampaignID(origin [20]byte, nonce uint64) [32]byte {
	buf := make([]byte, 28)
	copy(buf, origin[:])
	binary.BigEndian.PutUint64(buf[20:], nonce)
	var id [32]byte
	copy(id[:], ethcrypto.Keccak256(buf))
	return id
}

func deriveChildID(id [32]byte, leaf string) [32]byte {
	var child [32]byte
	copy(child[:], ethcrypto.Keccak256(id[:], []byte(leaf)))
	return child
}

// Create validates the full precondition chain, then persists and activates
// the campaign. The record put is the commit point: readers resolve through
// the record and skip index entries without one, so a failure mid-write
// leaves nothing observable.
func (f *Factory) Create(params CreateParams) (*Campaign, error) {
	if !f.st.HasRole(RoleOrigin, params.Origin[:]) {
		return nil, ErrNotAuthorizedOrigin
	}
	if params.Owner == zeroAddr {
		return nil, fmt.Errorf("%w: owner required", ErrInvalidConfig)
	}
	if params.FeeBps > feeBpsMax {
		return nil, fmt.Errorf("%w: fee beyond basis-point scale", ErrInvalidConfig)
	}
	if params.Affiliate != nil && *params.Affiliate == zeroAddr {
		return nil, fmt.Errorf("%w: affiliate must not be the zero address", ErrInvalidConfig)
	}
	if err := params.Eligibility.validate(); err != nil {
		return nil, err
	}

	activityTemplate, err := f.registry.ActivityTemplate(params.ActivityKind)
	if err != nil {
		return nil, err
	}
	if params.ActivityTemplateOverride != "" {
		activityTemplate = params.ActivityTemplateOverride
	}
	if !activity.KnownTemplate(activityTemplate) {
		return nil, fmt.Errorf("%w: activity template %q not built in", ErrInvalidConfig, activityTemplate)
	}
	rewardTemplate, err := f.registry.RewardTemplate(params.RewardKind)
	if err != nil {
		return nil, err
	}
	if params.RewardTemplateOverride != "" {
		rewardTemplate = params.RewardTemplateOverride
	}
	if !reward.KnownTemplate(rewardTemplate) {
		return nil, fmt.Errorf("%w: reward template %q not built in", ErrInvalidConfig, rewardTemplate)
	}

	permitted, err := f.registry.PairingPermitted(params.ActivityKind, params.RewardKind)
	if err != nil {
		return nil, err
	}
	if !permitted {
		return nil, fmt.Errorf("%w: %s with %s", ErrInvalidCombination, params.ActivityKind, params.RewardKind)
	}

	if err := activity.ValidateConfig(activityTemplate, params.ActivityConfig); err != nil {
		return nil, err
	}
	if err := reward.ValidateConfig(rewardTemplate, params.RewardConfig); err != nil {
		return nil, err
	}

	var nonce uint64
	if _, err := f.st.KVGet(nonceKey, &nonce); err != nil {
		return nil, err
	}
	id := deriveCampaignID(params.Origin, nonce)
	record := &Campaign{
		ID:                 id,
		ActivityInstanceID: deriveChildID(id, "activity"),
		RewardInstanceID:   deriveChildID(id, "reward"),
		Owner:              params.Owner,
		Origin:             params.Origin,
		FeeBps:             params.FeeBps,
		ActivityKind:       params.ActivityKind,
		ActivityTemplate:   activityTemplate,
		ActivityConfig:     params.ActivityConfig,
		RewardKind:         params.RewardKind,
		RewardTemplate:     rewardTemplate,
		RewardConfig:       params.RewardConfig,
		Eligibility:        params.Eligibility,
		CreatedAt:          uint64(f.nowFn().Unix()),
	}
	copy(record.Controller[:], id[:20])
	if params.Affiliate != nil {
		record.Affiliate = *params.Affiliate
		record.HasAffiliate = true
	}

	activityMod, rewardMod, err := f.buildInstances(record)
	if err != nil {
		return nil, err
	}

	// Writes begin here; the record put is the commit point readers key on.
	if err := f.st.KVPut(nonceKey, nonce+1); err != nil {
		return nil, err
	}
	if err := rewardMod.Initialize(); err != nil {
		return nil, err
	}
	if err := f.st.KVAppend(ownerIndexKey(record.Owner), id[:]); err != nil {
		return nil, err
	}
	if err := f.st.KVAppend(campaignIndexKey, id[:]); err != nil {
		return nil, err
	}
	if err := f.st.KVPut(recordKey(id), record); err != nil {
		return nil, err
	}
	f.engine.admit(record, activityMod, rewardMod)

	var affiliate *[20]byte
	if record.HasAffiliate {
		a := record.Affiliate
		affiliate = &a
	}
	f.emitter.Emit(events.CampaignCreated{
		ID:                 record.ID,
		ActivityInstanceID: record.ActivityInstanceID,
		RewardInstanceID:   record.RewardInstanceID,
		Owner:              record.Owner,
		Origin:             record.Origin,
		Affiliate:          affiliate,
		ActivityKind:       record.ActivityKind,
		RewardKind:         record.RewardKind,
		FeeBps:             record.FeeBps,
	})
	return record, nil
}

// buildInstances constructs the live module pair for a record without
// touching persistent state.
func (f *Factory) buildInstances(record *Campaign) (activity.Module, reward.Module, error) {
	activityMod, err := activity.New(record.ActivityTemplate, record.ActivityInstanceID, record.ActivityConfig, activity.Ledgers{
		Tokens: f.ledgers.Tokens,
		NFTs:   f.ledgers.NFTs,
		Spend:  f.ledgers.Spend,
	})
	if err != nil {
		return nil, nil, err
	}
	rewardMod, err := reward.New(record.RewardTemplate, record.RewardInstanceID, record.RewardConfig, f.st, reward.Ledgers{
		Tokens: f.ledgers.Tokens,
		NFTs:   f.ledgers.NFTs,
	}, reward.InitParams{
		Owner:        record.Owner,
		Controller:   record.Controller,
		FeeRecipient: record.FeeRecipient(f.treasury),
	})
	if err != nil {
		return nil, nil, err
	}
	return activityMod, rewardMod, nil
}

// Restore rebuilds live module instances for every persisted campaign and
// reports how many were admitted. Records whose index entries dangle are
// skipped.
func (f *Factory) Restore() (int, error) {
	ids, err := f.indexIDs(campaignIndexKey)
	if err != nil {
		return 0, err
	}
	restored := 0
	for _, id := range ids {
		if f.engine.has(id) {
			continue
		}
		record, found, err := getRecord(f.st, id)
		if err != nil {
			return restored, err
		}
		if !found {
			continue
		}
		activityMod, rewardMod, err := f.buildInstances(record)
		if err != nil {
			return restored, fmt.Errorf("campaign: restore %x: %w", id, err)
		}
		f.engine.admit(record, activityMod, rewardMod)
		restored++
	}
	return restored, nil
}

// Get loads a campaign record.
func (f *Factory) Get(id [32]byte) (*Campaign, error) {
	record, found, err := getRecord(f.st, id)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrNotFound
	}
	return record, nil
}

// List returns every persisted campaign.
func (f *Factory) List() ([]*Campaign, error) {
	return f.collect(campaignIndexKey)
}

// ListByOwner returns the campaigns created for owner.
func (f *Factory) ListByOwner(owner [20]byte) ([]*Campaign, error) {
	return f.collect(ownerIndexKey(owner))
}

func (f *Factory) collect(indexKey []byte) ([]*Campaign, error) {
	ids, err := f.indexIDs(indexKey)
	if err != nil {
		return nil, err
	}
	out := make([]*Campaign, 0, len(ids))
	for _, id := range ids {
		record, found, err := getRecord(f.st, id)
		if err != nil {
			return nil, err
		}
		if !found {
			continue
		}
		out = append(out, record)
	}
	return out, nil
}

func (f *Factory) indexIDs(indexKey []byte) ([][32]byte, error) {
	var raw [][]byte
	if err := f.st.KVGetList(indexKey, &raw); err != nil {
		return nil, err
	}
	seen := make(map[[32]byte]struct{}, len(raw))
	ids := make([][32]byte, 0, len(raw))
	for _, b := range raw {
		if len(b) != 32 {
			continue
		}
		var id [32]byte
		copy(id[:], b)
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids, nil
}

func getRecord(st campaignState, id [32]byte) (*Campaign, bool, error) {
	var record Campaign
	found, err := st.KVGet(recordKey(id), &record)
	if err != nil {
		return nil, false, err
	}
	if !found {
		return nil, false, nil
	}
	return &record, true, nil
}
