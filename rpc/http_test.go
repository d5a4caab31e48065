package rpc

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"claimgate/core"
	"claimgate/crypto"
	"claimgate/ledger"
	"claimgate/native/activity"
	"claimgate/native/campaign"
	"claimgate/native/registry"
	"claimgate/native/reward"
	"claimgate/storage"
)

const testToken = "test-rpc-token"

type testEnv struct {
	node   *core.Node
	server *httptest.Server
	mem    *ledger.Memory
	now    time.Time
}

var (
	testAdmin    = [20]byte{0x0a}
	testOrigin   = [20]byte{0x0b}
	testOwner    = [20]byte{0x0c}
	testFunder   = [20]byte{0x0f}
	testClaimant = [20]byte{0xa1}
)

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := storage.NewMemDB()
	t.Cleanup(db.Close)
	mem := ledger.NewMemory()
	ledgers := campaign.Ledgers{Tokens: mem, NFTs: mem, Spend: mem}
	node, err := core.NewNode(db, core.Options{
		Treasury: [20]byte{0x0d},
		Ledgers:  &ledgers,
	})
	if err != nil {
		t.Fatalf("new node: %v", err)
	}
	for _, role := range []string{registry.RoleAdmin, campaign.RoleFactoryAdmin} {
		if err := node.State().GrantRole(role, testAdmin); err != nil {
			t.Fatalf("grant %s: %v", role, err)
		}
	}
	now := time.Unix(1_700_000_000, 0).UTC()
	node.Engine().SetNowFunc(func() time.Time { return now })
	node.Factory().SetNowFunc(func() time.Time { return now })
	if err := node.Factory().SetOriginAuthorized(testAdmin, testOrigin, true); err != nil {
		t.Fatalf("authorize origin: %v", err)
	}

	rpcServer := NewServer(node)
	rpcServer.SetAuthToken(testToken)
	server := httptest.NewServer(rpcServer)
	t.Cleanup(server.Close)
	return &testEnv{node: node, server: server, mem: mem, now: now}
}

type callResponse struct {
	status int
	result json.RawMessage
	rpcErr *RPCError
}

func (env *testEnv) call(t *testing.T, token, method string, params interface{}) callResponse {
	t.Helper()
	payload := map[string]interface{}{
		"jsonrpc": jsonRPCVersion,
		"id":      1,
		"method":  method,
	}
	if params != nil {
		payload["params"] = []interface{}{params}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req, err := http.NewRequest(http.MethodPost, env.server.URL, bytes.NewReader(body))
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := env.server.Client().Do(req)
	if err != nil {
		t.Fatalf("%s: %v", method, err)
	}
	defer resp.Body.Close()
	var decoded struct {
		Result json.RawMessage `json:"result"`
		Error  *RPCError       `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("decode %s response: %v", method, err)
	}
	return callResponse{status: resp.StatusCode, result: decoded.Result, rpcErr: decoded.Error}
}

func (env *testEnv) mustCall(t *testing.T, token, method string, params, out interface{}) {
	t.Helper()
	resp := env.call(t, token, method, params)
	if resp.rpcErr != nil {
		t.Fatalf("%s: code %d message %q data %v", method, resp.rpcErr.Code, resp.rpcErr.Message, resp.rpcErr.Data)
	}
	if out != nil {
		if err := json.Unmarshal(resp.result, out); err != nil {
			t.Fatalf("decode %s result: %v", method, err)
		}
	}
}

func (env *testEnv) registerKinds(t *testing.T) {
	t.Helper()
	adminAddr := formatAddress(testAdmin)
	env.mustCall(t, testToken, "registry_registerActivityKind",
		registryKindParams{Caller: adminAddr, Name: "HOLD_X_NFTS", TemplateID: activity.TemplateHoldNFTs}, nil)
	env.mustCall(t, testToken, "registry_registerRewardKind",
		registryKindParams{Caller: adminAddr, Name: "TOKEN_AIRDROP", TemplateID: reward.TemplateTokenAirdrop}, nil)
	env.mustCall(t, testToken, "registry_setPairing",
		registryPairingParams{Caller: adminAddr, ActivityKind: "HOLD_X_NFTS", RewardKind: "TOKEN_AIRDROP", Permitted: true}, nil)
}

// createAirdrop drives campaign_create with the hold-NFTs plus airdrop shape
// and funds the escrow the created controller draws from.
func (env *testEnv) createAirdrop(t *testing.T, eligibility eligibilityJSON) campaignJSON {
	t.Helper()
	env.registerKinds(t)
	env.mem.RegisterCollection("X", 0)
	windowStart := uint64(env.now.Add(-time.Hour).Unix())
	windowEnd := uint64(env.now.Add(30 * 24 * time.Hour).Unix())
	activityCfg, err := json.Marshal(holdNFTsConfigJSON{
		Collections: []string{"X"},
		Required:    []uint64{1},
		Start:       windowStart,
		End:         windowEnd,
	})
	if err != nil {
		t.Fatalf("marshal activity config: %v", err)
	}
	rewardCfg, err := json.Marshal(tokenAirdropConfigJSON{
		Token:          "CGT",
		AmountPerClaim: "20",
		TotalBudget:    "2000",
		Funder:         formatAddress(testFunder),
		ClaimStart:     windowStart,
		ClaimFinish:    windowEnd,
	})
	if err != nil {
		t.Fatalf("marshal reward config: %v", err)
	}
	var record campaignJSON
	env.mustCall(t, testToken, "campaign_create", campaignCreateParams{
		ActivityKind:   "HOLD_X_NFTS",
		ActivityConfig: activityCfg,
		RewardKind:     "TOKEN_AIRDROP",
		RewardConfig:   rewardCfg,
		Eligibility:    eligibility,
		Origin:         formatAddress(testOrigin),
		Owner:          formatAddress(testOwner),
	}, &record)

	id, err := parseID(record.ID)
	if err != nil {
		t.Fatalf("parse campaign id: %v", err)
	}
	stored, err := env.node.Engine().Get(id)
	if err != nil {
		t.Fatalf("load created campaign: %v", err)
	}
	if err := env.mem.SetBalance(testFunder, "CGT", big.NewInt(2_000), 1); err != nil {
		t.Fatalf("seed escrow: %v", err)
	}
	if err := env.mem.Approve(testFunder, stored.Controller, "CGT", big.NewInt(2_000)); err != nil {
		t.Fatalf("approve escrow: %v", err)
	}
	return record
}

func TestMutatorsRequireBearerToken(t *testing.T) {
	env := newTestEnv(t)
	resp := env.call(t, "", "registry_registerActivityKind",
		registryKindParams{Caller: formatAddress(testAdmin), Name: "HOLD_X_NFTS", TemplateID: activity.TemplateHoldNFTs})
	if resp.status != http.StatusUnauthorized {
		t.Fatalf("status %d, want 401", resp.status)
	}
	if resp.rpcErr == nil || resp.rpcErr.Code != codeUnauthorized {
		t.Fatalf("error %+v, want code %d", resp.rpcErr, codeUnauthorized)
	}

	resp = env.call(t, "wrong-token", "registry_registerActivityKind",
		registryKindParams{Caller: formatAddress(testAdmin), Name: "HOLD_X_NFTS", TemplateID: activity.TemplateHoldNFTs})
	if resp.rpcErr == nil || resp.rpcErr.Code != codeUnauthorized {
		t.Fatalf("error %+v, want code %d", resp.rpcErr, codeUnauthorized)
	}
}

func TestRegistryRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	env.registerKinds(t)

	var listed registryListResult
	env.mustCall(t, "", "registry_list", nil, &listed)
	if len(listed.ActivityKinds) != 1 || listed.ActivityKinds[0].Name != "HOLD_X_NFTS" {
		t.Fatalf("activity kinds %+v", listed.ActivityKinds)
	}
	if len(listed.RewardKinds) != 1 || listed.RewardKinds[0].TemplateID != reward.TemplateTokenAirdrop {
		t.Fatalf("reward kinds %+v", listed.RewardKinds)
	}
	if len(listed.Pairings) != 1 || !listed.Pairings[0].Permitted {
		t.Fatalf("pairings %+v", listed.Pairings)
	}
}

func TestCampaignLifecycleOverRPC(t *testing.T) {
	env := newTestEnv(t)
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	signer := key.PubKey().Address().Bytes()
	record := env.createAirdrop(t, eligibilityJSON{
		Enabled:    true,
		SigningKey: formatAddress(signer),
		ProofTTL:   86_400,
	})
	if record.ActivityKind != "HOLD_X_NFTS" || record.RewardKind != "TOKEN_AIRDROP" {
		t.Fatalf("record kinds %q/%q", record.ActivityKind, record.RewardKind)
	}
	if err := env.mem.SetHoldings(testClaimant, "X", 1, 1); err != nil {
		t.Fatalf("seed holdings: %v", err)
	}
	proof, err := activity.SignProof(key, testClaimant, activity.TagHoldNFTs, env.now.Add(-time.Hour))
	if err != nil {
		t.Fatalf("sign proof: %v", err)
	}

	var claimed claimResultJSON
	env.mustCall(t, "", "campaign_claim", campaignClaimParams{
		ID:       record.ID,
		Claimant: formatAddress(testClaimant),
		Proof: &proofJSON{
			KindTag:   proof.KindTag,
			Timestamp: proof.Timestamp.Unix(),
			Signature: "0x" + hex.EncodeToString(proof.Signature),
		},
	}, &claimed)
	if claimed.AuthMode != campaign.AuthModeProof {
		t.Fatalf("auth mode %q, want proof", claimed.AuthMode)
	}
	if claimed.Amount != "20" || claimed.Fee != "0" {
		t.Fatalf("amount %q fee %q", claimed.Amount, claimed.Fee)
	}

	resp := env.call(t, "", "campaign_claim", campaignClaimParams{
		ID:       record.ID,
		Claimant: formatAddress(testClaimant),
		Proof: &proofJSON{
			KindTag:   proof.KindTag,
			Timestamp: proof.Timestamp.Unix(),
			Signature: "0x" + hex.EncodeToString(proof.Signature),
		},
	})
	if resp.status != http.StatusConflict {
		t.Fatalf("replay status %d, want 409", resp.status)
	}
	if resp.rpcErr == nil || resp.rpcErr.Code != codeAlreadyClaimed {
		t.Fatalf("replay error %+v, want code %d", resp.rpcErr, codeAlreadyClaimed)
	}

	var status campaignStatusResult
	env.mustCall(t, "", "campaign_status", campaignStatusParams{
		ID:       record.ID,
		Claimant: formatAddress(testClaimant),
	}, &status)
	if status.Distributed != "20" {
		t.Fatalf("distributed %q, want 20", status.Distributed)
	}
	if status.Claimed == nil || !*status.Claimed {
		t.Fatalf("claimed flag %+v, want true", status.Claimed)
	}

	var byOwner []campaignJSON
	env.mustCall(t, "", "campaign_listByOwner", campaignOwnerParams{Owner: formatAddress(testOwner)}, &byOwner)
	if len(byOwner) != 1 || byOwner[0].ID != record.ID {
		t.Fatalf("listByOwner %+v", byOwner)
	}
}

func TestOwnerMutatorsOverRPC(t *testing.T) {
	env := newTestEnv(t)
	record := env.createAirdrop(t, eligibilityJSON{Enabled: false})

	env.mustCall(t, testToken, "campaign_setFee", campaignSetFeeParams{
		ID:     record.ID,
		Caller: formatAddress(testOwner),
		FeeBps: 250,
	}, nil)
	env.mustCall(t, testToken, "campaign_setActive", campaignSetActiveParams{
		ID:     record.ID,
		Caller: formatAddress(testOwner),
		Active: false,
	}, nil)

	var fetched campaignJSON
	env.mustCall(t, "", "campaign_get", campaignIDParams{ID: record.ID}, &fetched)
	if fetched.FeeBps != 250 {
		t.Fatalf("fee bps %d, want 250", fetched.FeeBps)
	}
	var status campaignStatusResult
	env.mustCall(t, "", "campaign_status", campaignStatusParams{ID: record.ID}, &status)
	if status.Active {
		t.Fatal("campaign still active after setActive(false)")
	}

	resp := env.call(t, testToken, "campaign_setFee", campaignSetFeeParams{
		ID:     record.ID,
		Caller: formatAddress(testClaimant),
		FeeBps: 100,
	})
	if resp.rpcErr == nil || resp.rpcErr.Code != codeNotAuthorized {
		t.Fatalf("non-owner setFee error %+v, want code %d", resp.rpcErr, codeNotAuthorized)
	}
}

func TestErrorTaxonomy(t *testing.T) {
	env := newTestEnv(t)

	resp := env.call(t, "", "campaign_get", campaignIDParams{ID: fmt.Sprintf("0x%064x", 42)})
	if resp.status != http.StatusNotFound {
		t.Fatalf("status %d, want 404", resp.status)
	}
	if resp.rpcErr == nil || resp.rpcErr.Code != codeNotFound {
		t.Fatalf("error %+v, want code %d", resp.rpcErr, codeNotFound)
	}

	resp = env.call(t, "", "campaign_get", campaignIDParams{ID: "not-hex"})
	if resp.rpcErr == nil || resp.rpcErr.Code != codeInvalidParams {
		t.Fatalf("error %+v, want code %d", resp.rpcErr, codeInvalidParams)
	}

	resp = env.call(t, "", "no_such_method", nil)
	if resp.rpcErr == nil || resp.rpcErr.Code != codeMethodNotFound {
		t.Fatalf("error %+v, want code %d", resp.rpcErr, codeMethodNotFound)
	}
}

func TestClaimRateLimit(t *testing.T) {
	env := newTestEnv(t)
	record := env.createAirdrop(t, eligibilityJSON{Enabled: false})

	limited := false
	for i := 0; i < claimBurst+5; i++ {
		resp := env.call(t, "", "campaign_claim", campaignClaimParams{
			ID:       record.ID,
			Claimant: formatAddress(testClaimant),
		})
		if resp.rpcErr != nil && resp.rpcErr.Code == codeRateLimited {
			limited = true
			break
		}
	}
	if !limited {
		t.Fatal("claim flood never rate limited")
	}
}
