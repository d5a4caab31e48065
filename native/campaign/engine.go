package campaign

import (
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"claimgate/core/events"
	"claimgate/native/activity"
	"claimgate/native/activity/prooflog"
	"claimgate/native/reward"
)

// Authentication paths a claim can take.
const (
	AuthModeProof   = "proof"
	AuthModeOnchain = "onchain"
)

type instanceSet struct {
	activity activity.Module
	reward   reward.Module
}

// Engine runs the claim protocol over the live campaign instances. Every
// state-mutating call on one campaign runs under that campaign's lock, which
// reconstructs the serialized execution the protocol assumes.
type Engine struct {
	st      campaignState
	emitter events.Emitter
	nowFn   func() time.Time
	plog    *prooflog.Log

	mu        sync.Mutex
	instances map[[32]byte]*instanceSet
	locks     map[[32]byte]*sync.Mutex
}

// NewEngine creates an engine over shared state. The factory admits
// instances as it creates or restores them.
func NewEngine(st campaignState) *Engine {
	return &Engine{
		st:        st,
		emitter:   events.NoopEmitter{},
		nowFn:     time.Now,
		instances: make(map[[32]byte]*instanceSet),
		locks:     make(map[[32]byte]*sync.Mutex),
	}
}

// SetEmitter configures the event sink. Passing nil resets to a no-op.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc overrides the engine clock. Passing nil restores the wall
// clock.
func (e *Engine) SetNowFunc(now func() time.Time) {
	if now == nil {
		e.nowFn = time.Now
		return
	}
	e.nowFn = now
}

// SetProofLog attaches the optional proof journal. Journal writes are
// advisory bookkeeping; claims never fail on them.
func (e *Engine) SetProofLog(log *prooflog.Log) {
	e.plog = log
}

func (e *Engine) admit(record *Campaign, activityMod activity.Module, rewardMod reward.Module) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.instances[record.ID] = &instanceSet{activity: activityMod, reward: rewardMod}
	if _, ok := e.locks[record.ID]; !ok {
		e.locks[record.ID] = &sync.Mutex{}
	}
}

func (e *Engine) has(id [32]byte) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.instances[id]
	return ok
}

func (e *Engine) lockFor(id [32]byte) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	lock, ok := e.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		e.locks[id] = lock
	}
	return lock
}

func (e *Engine) instancesFor(id [32]byte) (*instanceSet, error) {
	e.mu.Lock()
	set, ok := e.instances[id]
	e.mu.Unlock()
	if ok {
		return set, nil
	}
	_, found, err := getRecord(e.st, id)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrNotFound
	}
	return nil, ErrNotRestored
}

// Modules exposes the live instance pair, for read-only capability probes.
func (e *Engine) Modules(id [32]byte) (activity.Module, reward.Module, error) {
	set, err := e.instancesFor(id)
	if err != nil {
		return nil, nil, err
	}
	return set.activity, set.reward, nil
}

// Get loads a campaign record.
func (e *Engine) Get(id [32]byte) (*Campaign, error) {
	record, found, err := getRecord(e.st, id)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrNotFound
	}
	return record, nil
}

// ClaimParams carries one claim attempt.
type ClaimParams struct {
	CampaignID    [32]byte
	Claimant      [20]byte
	Proof         *activity.Proof
	DiscountBps   uint32
	DiscountProof [][32]byte
}

// ClaimResult reports a committed claim.
type ClaimResult struct {
	CampaignID   [32]byte
	Claimant     [20]byte
	RewardKind   string
	AuthMode     string
	Amount       *big.Int
	Fee          *big.Int
	TokenID      uint64
	HasTokenID   bool
	EffectiveBps uint32
	DiscountBps  uint32
}

// Claim drives the four-step protocol: authenticate, guard, fee, commit.
// The campaign lock spans all four steps, so two racing attempts by the
// same claimant resolve to exactly one success, and capped inventory is
// never oversubscribed.
func (e *Engine) Claim(params ClaimParams) (*ClaimResult, error) {
	set, err := e.instancesFor(params.CampaignID)
	if err != nil {
		return nil, err
	}
	lock := e.lockFor(params.CampaignID)
	lock.Lock()
	defer lock.Unlock()

	record, found, err := getRecord(e.st, params.CampaignID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrNotFound
	}
	now := e.nowFn()

	fail := func(cause error) (*ClaimResult, error) {
		e.emitter.Emit(events.ClaimFailed{
			CampaignID: record.ID,
			Claimant:   params.Claimant,
			Reason:     failureReason(cause),
		})
		return nil, cause
	}

	authMode, err := e.authenticate(record, set, params, now)
	if err != nil {
		return fail(err)
	}
	if err := set.reward.CanClaim(params.Claimant, now); err != nil {
		return fail(err)
	}
	effBps, discountBps, err := e.effectiveFee(record, params)
	if err != nil {
		return fail(err)
	}
	plan, err := set.reward.ProcessFee(params.Claimant, effBps)
	if err != nil {
		return fail(err)
	}
	dist, err := set.reward.Claim(params.Claimant, plan, now)
	if err != nil {
		return fail(err)
	}

	if e.plog != nil && authMode == AuthModeProof && params.Proof != nil {
		// Advisory bookkeeping; a journal failure never unwinds the claim.
		_, _ = e.plog.Record(record.ID, params.Proof, now)
	}

	e.emitter.Emit(events.ClaimSucceeded{
		CampaignID:  record.ID,
		Claimant:    params.Claimant,
		RewardKind:  dist.Kind,
		Amount:      dist.Amount,
		TokenID:     dist.TokenID,
		HasTokenID:  dist.HasTokenID,
		Fee:         dist.Fee,
		DiscountBps: discountBps,
	})
	return &ClaimResult{
		CampaignID:   record.ID,
		Claimant:     params.Claimant,
		RewardKind:   dist.Kind,
		AuthMode:     authMode,
		Amount:       dist.Amount,
		Fee:          dist.Fee,
		TokenID:      dist.TokenID,
		HasTokenID:   dist.HasTokenID,
		EffectiveBps: effBps,
		DiscountBps:  discountBps,
	}, nil
}

// authenticate resolves the claim's authentication path. With the proof
// scheme disabled only the on-chain check gates; otherwise a valid proof
// wins, and the on-chain check is the fallback unless proofs are mandatory.
func (e *Engine) authenticate(record *Campaign, set *instanceSet, params ClaimParams, now time.Time) (string, error) {
	cfg := record.Eligibility
	if !cfg.Enabled {
		ok, err := set.activity.CheckEligibility(params.Claimant, now)
		if err != nil {
			return "", err
		}
		if !ok {
			return "", ErrNotEligible
		}
		return AuthModeOnchain, nil
	}
	var proofErr error
	if params.Proof != nil {
		if cfg.SigningKey == zeroAddr {
			proofErr = fmt.Errorf("%w: no signing key configured", ErrNotEligible)
		} else {
			ttl := time.Duration(cfg.ProofTTL) * time.Second
			proofErr = set.activity.VerifyProof(params.Claimant, params.Proof, cfg.SigningKey, ttl, now)
			if proofErr == nil {
				return AuthModeProof, nil
			}
		}
	} else if cfg.RequireProof {
		return "", fmt.Errorf("%w: eligibility proof required", ErrNotEligible)
	}
	if cfg.RequireProof {
		return "", proofErr
	}
	ok, err := set.activity.CheckEligibility(params.Claimant, now)
	if err != nil {
		return "", err
	}
	if ok {
		return AuthModeOnchain, nil
	}
	if proofErr != nil {
		return "", proofErr
	}
	return "", ErrNotEligible
}

// effectiveFee applies a proven discount to the campaign fee. A requested
// discount that cannot be proven aborts the claim rather than silently
// charging the full rate.
func (e *Engine) effectiveFee(record *Campaign, params ClaimParams) (uint32, uint32, error) {
	eff := record.FeeBps
	if params.DiscountBps == 0 {
		return eff, 0, nil
	}
	if params.DiscountBps > feeBpsMax {
		return 0, 0, fmt.Errorf("%w: rate beyond basis-point scale", ErrDiscountProof)
	}
	if record.DiscountRoot == zeroHash {
		return 0, 0, fmt.Errorf("%w: no allow-list configured", ErrDiscountProof)
	}
	if !VerifyDiscount(record.DiscountRoot, params.Claimant, params.DiscountBps, params.DiscountProof) {
		return 0, 0, ErrDiscountProof
	}
	if params.DiscountBps >= eff {
		return 0, params.DiscountBps, nil
	}
	return eff - params.DiscountBps, params.DiscountBps, nil
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, reward.ErrAlreadyClaimed):
		return "already_claimed"
	case errors.Is(err, reward.ErrSupplyExhausted):
		return "supply_exhausted"
	case errors.Is(err, reward.ErrInactive):
		return "inactive"
	case errors.Is(err, reward.ErrOutsideClaimWindow):
		return "outside_claim_window"
	case errors.Is(err, reward.ErrEscrowUnderfunded):
		return "escrow_underfunded"
	case errors.Is(err, reward.ErrFeeUnpayable):
		return "fee_unpayable"
	case errors.Is(err, activity.ErrProofExpired):
		return "proof_expired"
	case errors.Is(err, activity.ErrProofFuture):
		return "proof_future"
	case errors.Is(err, activity.ErrProofSignature), errors.Is(err, activity.ErrProofMalformed), errors.Is(err, activity.ErrProofNil):
		return "proof_invalid"
	case errors.Is(err, ErrDiscountProof):
		return "discount_proof_invalid"
	case errors.Is(err, ErrNotEligible):
		return "not_eligible"
	default:
		return "internal"
	}
}

// CanClaim is the advisory preview of the reward guard for status queries.
func (e *Engine) CanClaim(id [32]byte, user [20]byte) error {
	set, err := e.instancesFor(id)
	if err != nil {
		return err
	}
	return set.reward.CanClaim(user, e.nowFn())
}

// CheckEligibility previews the activity predicate for status queries.
func (e *Engine) CheckEligibility(id [32]byte, user [20]byte) (bool, error) {
	set, err := e.instancesFor(id)
	if err != nil {
		return false, err
	}
	return set.activity.CheckEligibility(user, e.nowFn())
}

// Claimed reports whether user already claimed from the campaign.
func (e *Engine) Claimed(id [32]byte, user [20]byte) (bool, error) {
	set, err := e.instancesFor(id)
	if err != nil {
		return false, err
	}
	return set.reward.Claimed(user)
}

// Status summarises a campaign's record and live reward counters.
type Status struct {
	Campaign    *Campaign
	Active      bool
	Distributed *big.Int
	ClaimStart  uint64
	ClaimFinish uint64
}

// Status loads the record alongside the reward's live counters.
func (e *Engine) Status(id [32]byte) (*Status, error) {
	record, err := e.Get(id)
	if err != nil {
		return nil, err
	}
	set, err := e.instancesFor(id)
	if err != nil {
		return nil, err
	}
	active, err := set.reward.Active()
	if err != nil {
		return nil, err
	}
	distributed, err := set.reward.Distributed()
	if err != nil {
		return nil, err
	}
	start, finish := set.reward.Window()
	return &Status{
		Campaign:    record,
		Active:      active,
		Distributed: distributed,
		ClaimStart:  start,
		ClaimFinish: finish,
	}, nil
}

func (e *Engine) ownedRecord(caller [20]byte, id [32]byte) (*Campaign, error) {
	record, found, err := getRecord(e.st, id)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrNotFound
	}
	if record.Owner != caller {
		return nil, ErrNotOwner
	}
	return record, nil
}

// SetEligibility replaces the eligibility configuration wholesale.
func (e *Engine) SetEligibility(caller [20]byte, id [32]byte, cfg EligibilityConfig) error {
	if err := cfg.validate(); err != nil {
		return err
	}
	lock := e.lockFor(id)
	lock.Lock()
	defer lock.Unlock()
	record, err := e.ownedRecord(caller, id)
	if err != nil {
		return err
	}
	record.Eligibility = cfg
	if err := e.st.KVPut(recordKey(id), record); err != nil {
		return err
	}
	e.emitter.Emit(events.CampaignEligibilityUpdated{
		CampaignID:   id,
		Caller:       caller,
		Enabled:      cfg.Enabled,
		SigningKey:   cfg.SigningKey,
		ProofTTL:     cfg.ProofTTL,
		RequireProof: cfg.RequireProof,
	})
	return nil
}

// SetFeeBps updates the campaign fee rate.
func (e *Engine) SetFeeBps(caller [20]byte, id [32]byte, bps uint32) error {
	if bps > feeBpsMax {
		return fmt.Errorf("%w: fee beyond basis-point scale", ErrInvalidConfig)
	}
	lock := e.lockFor(id)
	lock.Lock()
	defer lock.Unlock()
	record, err := e.ownedRecord(caller, id)
	if err != nil {
		return err
	}
	record.FeeBps = bps
	if err := e.st.KVPut(recordKey(id), record); err != nil {
		return err
	}
	e.emitter.Emit(events.CampaignFeeUpdated{CampaignID: id, Caller: caller, FeeBps: bps})
	return nil
}

// SetDiscountRoot replaces the discount allow-list commitment. The zero
// root clears it.
func (e *Engine) SetDiscountRoot(caller [20]byte, id [32]byte, root [32]byte) error {
	lock := e.lockFor(id)
	lock.Lock()
	defer lock.Unlock()
	record, err := e.ownedRecord(caller, id)
	if err != nil {
		return err
	}
	record.DiscountRoot = root
	if err := e.st.KVPut(recordKey(id), record); err != nil {
		return err
	}
	e.emitter.Emit(events.CampaignDiscountRootUpdated{CampaignID: id, Caller: caller, Root: root})
	return nil
}

// SetActive toggles the reward's owner kill switch.
func (e *Engine) SetActive(caller [20]byte, id [32]byte, active bool) error {
	set, err := e.instancesFor(id)
	if err != nil {
		return err
	}
	lock := e.lockFor(id)
	lock.Lock()
	defer lock.Unlock()
	if _, err := e.ownedRecord(caller, id); err != nil {
		return err
	}
	if err := set.reward.SetActive(active); err != nil {
		return err
	}
	e.emitter.Emit(events.CampaignActiveUpdated{CampaignID: id, Caller: caller, Active: active})
	return nil
}

// DrawRaffle triggers the raffle reward's deferred payout.
func (e *Engine) DrawRaffle(caller [20]byte, id [32]byte) (*reward.DrawResult, error) {
	set, err := e.instancesFor(id)
	if err != nil {
		return nil, err
	}
	drawer, ok := set.reward.(reward.Drawer)
	if !ok {
		return nil, ErrNotRaffle
	}
	lock := e.lockFor(id)
	lock.Lock()
	defer lock.Unlock()
	if _, err := e.ownedRecord(caller, id); err != nil {
		return nil, err
	}
	result, err := drawer.Draw(e.nowFn())
	if err != nil {
		return nil, err
	}
	e.emitter.Emit(events.RaffleDrawn{
		CampaignID:     id,
		Caller:         caller,
		Winners:        result.Winners,
		PrizePerWinner: result.PrizePerWinner,
	})
	return result, nil
}
