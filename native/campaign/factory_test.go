package campaign_test

import (
	"errors"
	"math/big"
	"testing"
	"time"

	"claimgate/core/events"
	"claimgate/native/activity"
	"claimgate/native/campaign"
	"claimgate/native/registry"
	"claimgate/native/reward"
)

func holdNFTsBlob(t *testing.T, start, end uint64) []byte {
	t.Helper()
	return encodeActivity(t, activity.HoldNFTsConfig{
		Collections: []string{"X"},
		Required:    []uint64{1},
		Start:       start,
		End:         end,
	})
}

func airdropBlob(t *testing.T, start uint64) []byte {
	t.Helper()
	return encodeReward(t, reward.TokenAirdropConfig{
		Token:          "CGT",
		AmountPerClaim: big.NewInt(20),
		TotalBudget:    big.NewInt(2_000),
		Funder:         funder,
		ClaimStart:     start,
	})
}

func TestUnpermittedPairingCreatesNothing(t *testing.T) {
	h := newHarness(t)
	start := uint64(h.now.Add(-time.Hour).Unix())

	_, err := h.factory.Create(campaign.CreateParams{
		ActivityKind:   "HOLD_X_NFTS",
		ActivityConfig: holdNFTsBlob(t, start, 0),
		RewardKind:     "TOKEN_AIRDROP",
		RewardConfig:   airdropBlob(t, start),
		Origin:         origin,
		Owner:          owner,
	})
	if !errors.Is(err, campaign.ErrInvalidCombination) {
		t.Fatalf("create: %v, want ErrInvalidCombination", err)
	}
	records, err := h.factory.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("expected no campaigns, got %d", len(records))
	}
	if created := h.emitter.ofType(events.TypeCampaignCreated); len(created) != 0 {
		t.Fatalf("expected no creation events, got %d", len(created))
	}
}

func TestUnknownKindRejected(t *testing.T) {
	h := newHarness(t)
	start := uint64(h.now.Add(-time.Hour).Unix())
	_, err := h.factory.Create(campaign.CreateParams{
		ActivityKind:   "NO_SUCH_KIND",
		ActivityConfig: holdNFTsBlob(t, start, 0),
		RewardKind:     "TOKEN_AIRDROP",
		RewardConfig:   airdropBlob(t, start),
		Origin:         origin,
		Owner:          owner,
	})
	if !errors.Is(err, registry.ErrUnknownKind) {
		t.Fatalf("create: %v, want ErrUnknownKind", err)
	}
}

func TestUnauthorizedOriginRejected(t *testing.T) {
	h := newHarness(t)
	h.permit(t, "HOLD_X_NFTS", "TOKEN_AIRDROP")
	start := uint64(h.now.Add(-time.Hour).Unix())
	stranger := [20]byte{0xee}
	_, err := h.factory.Create(campaign.CreateParams{
		ActivityKind:   "HOLD_X_NFTS",
		ActivityConfig: holdNFTsBlob(t, start, 0),
		RewardKind:     "TOKEN_AIRDROP",
		RewardConfig:   airdropBlob(t, start),
		Origin:         stranger,
		Owner:          owner,
	})
	if !errors.Is(err, campaign.ErrNotAuthorizedOrigin) {
		t.Fatalf("create: %v, want ErrNotAuthorizedOrigin", err)
	}

	// Revocation closes the door again.
	if err := h.factory.SetOriginAuthorized(admin, origin, false); err != nil {
		t.Fatalf("revoke origin: %v", err)
	}
	if h.factory.OriginAuthorized(origin) {
		t.Fatal("origin still authorized after revocation")
	}
}

func TestMalformedConfigRejectedBeforeAnyWrite(t *testing.T) {
	h := newHarness(t)
	h.permit(t, "HOLD_X_NFTS", "TOKEN_AIRDROP")
	start := uint64(h.now.Add(-time.Hour).Unix())

	_, err := h.factory.Create(campaign.CreateParams{
		ActivityKind:   "HOLD_X_NFTS",
		ActivityConfig: []byte{0xff, 0x01},
		RewardKind:     "TOKEN_AIRDROP",
		RewardConfig:   airdropBlob(t, start),
		Origin:         origin,
		Owner:          owner,
	})
	if !errors.Is(err, activity.ErrInvalidConfig) {
		t.Fatalf("garbage activity blob: %v, want activity.ErrInvalidConfig", err)
	}

	// Structurally invalid reward config: budget below one claim.
	badReward := encodeReward(t, reward.TokenAirdropConfig{
		Token:          "CGT",
		AmountPerClaim: big.NewInt(100),
		TotalBudget:    big.NewInt(10),
		Funder:         funder,
		ClaimStart:     start,
	})
	_, err = h.factory.Create(campaign.CreateParams{
		ActivityKind:   "HOLD_X_NFTS",
		ActivityConfig: holdNFTsBlob(t, start, 0),
		RewardKind:     "TOKEN_AIRDROP",
		RewardConfig:   badReward,
		Origin:         origin,
		Owner:          owner,
	})
	if !errors.Is(err, reward.ErrInvalidConfig) {
		t.Fatalf("invalid reward config: %v, want reward.ErrInvalidConfig", err)
	}

	records, err := h.factory.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("expected no campaigns, got %d", len(records))
	}
}

func TestTemplateOverrideMustBeBuiltIn(t *testing.T) {
	h := newHarness(t)
	h.permit(t, "HOLD_X_NFTS", "TOKEN_AIRDROP")
	start := uint64(h.now.Add(-time.Hour).Unix())
	_, err := h.factory.Create(campaign.CreateParams{
		ActivityKind:             "HOLD_X_NFTS",
		ActivityTemplateOverride: "activity/hold-nfts/v9",
		ActivityConfig:           holdNFTsBlob(t, start, 0),
		RewardKind:               "TOKEN_AIRDROP",
		RewardConfig:             airdropBlob(t, start),
		Origin:                   origin,
		Owner:                    owner,
	})
	if !errors.Is(err, campaign.ErrInvalidConfig) {
		t.Fatalf("create: %v, want ErrInvalidConfig", err)
	}
}

func TestCreateRecordsDistinctDerivedIdentities(t *testing.T) {
	h := newHarness(t)
	h.permit(t, "HOLD_X_NFTS", "TOKEN_AIRDROP")
	start := uint64(h.now.Add(-time.Hour).Unix())
	affiliate := [20]byte{0xaf}

	first, err := h.factory.Create(campaign.CreateParams{
		ActivityKind:   "HOLD_X_NFTS",
		ActivityConfig: holdNFTsBlob(t, start, 0),
		RewardKind:     "TOKEN_AIRDROP",
		RewardConfig:   airdropBlob(t, start),
		Origin:         origin,
		Owner:          owner,
		Affiliate:      &affiliate,
		FeeBps:         500,
	})
	if err != nil {
		t.Fatalf("create first: %v", err)
	}
	second, err := h.factory.Create(campaign.CreateParams{
		ActivityKind:   "HOLD_X_NFTS",
		ActivityConfig: holdNFTsBlob(t, start, 0),
		RewardKind:     "TOKEN_AIRDROP",
		RewardConfig:   airdropBlob(t, start),
		Origin:         origin,
		Owner:          owner,
	})
	if err != nil {
		t.Fatalf("create second: %v", err)
	}

	if first.ID == second.ID {
		t.Fatal("successive creations must derive distinct campaign IDs")
	}
	if first.ActivityInstanceID == first.RewardInstanceID {
		t.Fatal("activity and reward instance IDs must differ")
	}
	if !first.HasAffiliate || first.Affiliate != affiliate {
		t.Fatalf("affiliate not recorded: %+v", first)
	}
	if got := first.FeeRecipient(treasury); got != affiliate {
		t.Fatalf("fee recipient %x, want affiliate", got)
	}
	if got := second.FeeRecipient(treasury); got != treasury {
		t.Fatalf("fee recipient %x, want treasury", got)
	}

	mine, err := h.factory.ListByOwner(owner)
	if err != nil {
		t.Fatalf("list by owner: %v", err)
	}
	if len(mine) != 2 {
		t.Fatalf("owner list %d, want 2", len(mine))
	}
	created := h.emitter.ofType(events.TypeCampaignCreated)
	if len(created) != 2 {
		t.Fatalf("creation events %d, want 2", len(created))
	}
	attrs := created[0].Attributes()
	if attrs["activity_kind"] != "HOLD_X_NFTS" || attrs["reward_kind"] != "TOKEN_AIRDROP" {
		t.Fatalf("unexpected creation attributes %v", attrs)
	}
}

func TestRestoreRehydratesClaimState(t *testing.T) {
	h := newHarness(t)
	record := h.createAirdrop(t, campaign.EligibilityConfig{}, 0)
	if err := h.mem.SetHoldings(claimantA, "X", 1, 1); err != nil {
		t.Fatalf("seed holdings: %v", err)
	}
	if _, err := h.engine.Claim(campaign.ClaimParams{CampaignID: record.ID, Claimant: claimantA}); err != nil {
		t.Fatalf("claim: %v", err)
	}

	// A fresh engine over the same state starts with no live instances.
	restoredEngine := campaign.NewEngine(h.st)
	restoredEngine.SetNowFunc(func() time.Time { return h.now })
	if _, err := restoredEngine.Claim(campaign.ClaimParams{CampaignID: record.ID, Claimant: claimantB}); !errors.Is(err, campaign.ErrNotRestored) {
		t.Fatalf("pre-restore claim: %v, want ErrNotRestored", err)
	}

	restoredFactory := campaign.NewFactory(h.st, h.reg, restoredEngine, campaign.Ledgers{Tokens: h.mem, NFTs: h.mem, Spend: h.mem}, treasury)
	n, err := restoredFactory.Restore()
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if n != 1 {
		t.Fatalf("restored %d campaigns, want 1", n)
	}

	if _, err := restoredEngine.Claim(campaign.ClaimParams{CampaignID: record.ID, Claimant: claimantA}); !errors.Is(err, reward.ErrAlreadyClaimed) {
		t.Fatalf("replayed claim after restore: %v, want ErrAlreadyClaimed", err)
	}
	if err := h.mem.SetHoldings(claimantB, "X", 1, 1); err != nil {
		t.Fatalf("seed holdings: %v", err)
	}
	if _, err := restoredEngine.Claim(campaign.ClaimParams{CampaignID: record.ID, Claimant: claimantB}); err != nil {
		t.Fatalf("fresh claim after restore: %v", err)
	}
	status, err := restoredEngine.Status(record.ID)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.Distributed.Cmp(big.NewInt(40)) != 0 {
		t.Fatalf("distributed %s, want 40", status.Distributed)
	}
}

func TestEnabledEligibilityNeedsSignerAndTTL(t *testing.T) {
	h := newHarness(t)
	h.permit(t, "HOLD_X_NFTS", "TOKEN_AIRDROP")
	start := uint64(h.now.Add(-time.Hour).Unix())
	_, signer := newSigner(t)

	params := campaign.CreateParams{
		ActivityKind:   "HOLD_X_NFTS",
		ActivityConfig: holdNFTsBlob(t, start, 0),
		RewardKind:     "TOKEN_AIRDROP",
		RewardConfig:   airdropBlob(t, start),
		Origin:         origin,
		Owner:          owner,
	}

	params.Eligibility = campaign.EligibilityConfig{Enabled: true, ProofTTL: 3_600}
	if _, err := h.factory.Create(params); !errors.Is(err, campaign.ErrInvalidConfig) {
		t.Fatalf("zero signing key: %v, want ErrInvalidConfig", err)
	}

	params.Eligibility = campaign.EligibilityConfig{Enabled: true, SigningKey: signer, RequireProof: true}
	if _, err := h.factory.Create(params); !errors.Is(err, campaign.ErrInvalidConfig) {
		t.Fatalf("zero proof ttl: %v, want ErrInvalidConfig", err)
	}

	records, err := h.factory.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("expected no campaigns, got %d", len(records))
	}

	params.Eligibility = campaign.EligibilityConfig{Enabled: true, SigningKey: signer, ProofTTL: 3_600}
	record, err := h.factory.Create(params)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	err = h.engine.SetEligibility(owner, record.ID, campaign.EligibilityConfig{
		Enabled:    true,
		SigningKey: signer,
	})
	if !errors.Is(err, campaign.ErrInvalidConfig) {
		t.Fatalf("set eligibility with zero ttl: %v, want ErrInvalidConfig", err)
	}
	kept, err := h.engine.Get(record.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if kept.Eligibility.ProofTTL != 3_600 {
		t.Fatalf("rejected update must not persist, got ttl %d", kept.Eligibility.ProofTTL)
	}
}
