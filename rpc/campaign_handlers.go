package rpc

import (
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"

	"claimgate/native/activity"
	"claimgate/native/campaign"
	"claimgate/native/reward"
)

type eligibilityJSON struct {
	Enabled      bool   `json:"enabled"`
	SigningKey   string `json:"signingKey,omitempty"`
	ProofTTL     uint64 `json:"proofTtlSeconds"`
	RequireProof bool   `json:"requireProof"`
}

func (e eligibilityJSON) decode() (campaign.EligibilityConfig, error) {
	cfg := campaign.EligibilityConfig{
		Enabled:      e.Enabled,
		ProofTTL:     e.ProofTTL,
		RequireProof: e.RequireProof,
	}
	if strings.TrimSpace(e.SigningKey) != "" {
		signer, err := parseBech32Address(e.SigningKey)
		if err != nil {
			return campaign.EligibilityConfig{}, err
		}
		cfg.SigningKey = signer
	}
	return cfg, nil
}

func eligibilityToJSON(cfg campaign.EligibilityConfig) eligibilityJSON {
	out := eligibilityJSON{
		Enabled:      cfg.Enabled,
		ProofTTL:     cfg.ProofTTL,
		RequireProof: cfg.RequireProof,
	}
	if cfg.SigningKey != ([20]byte{}) {
		out.SigningKey = formatAddress(cfg.SigningKey)
	}
	return out
}

type campaignJSON struct {
	ID                 string          `json:"id"`
	ActivityInstanceID string          `json:"activityInstanceId"`
	RewardInstanceID   string          `json:"rewardInstanceId"`
	Owner              string          `json:"owner"`
	Origin             string          `json:"origin"`
	Affiliate          string          `json:"affiliate,omitempty"`
	FeeBps             uint32          `json:"feeBps"`
	ActivityKind       string          `json:"activityKind"`
	ActivityTemplate   string          `json:"activityTemplate"`
	RewardKind         string          `json:"rewardKind"`
	RewardTemplate     string          `json:"rewardTemplate"`
	Eligibility        eligibilityJSON `json:"eligibility"`
	DiscountRoot       string          `json:"discountRoot,omitempty"`
	CreatedAt          uint64          `json:"createdAt"`
}

func campaignToJSON(record *campaign.Campaign) campaignJSON {
	out := campaignJSON{
		ID:                 formatIDHex(record.ID),
		ActivityInstanceID: formatIDHex(record.ActivityInstanceID),
		RewardInstanceID:   formatIDHex(record.RewardInstanceID),
		Owner:              formatAddress(record.Owner),
		Origin:             formatAddress(record.Origin),
		FeeBps:             record.FeeBps,
		ActivityKind:       record.ActivityKind,
		ActivityTemplate:   record.ActivityTemplate,
		RewardKind:         record.RewardKind,
		RewardTemplate:     record.RewardTemplate,
		Eligibility:        eligibilityToJSON(record.Eligibility),
		CreatedAt:          record.CreatedAt,
	}
	if record.HasAffiliate {
		out.Affiliate = formatAddress(record.Affiliate)
	}
	if record.DiscountRoot != ([32]byte{}) {
		out.DiscountRoot = formatIDHex(record.DiscountRoot)
	}
	return out
}

type campaignCreateParams struct {
	ActivityKind             string          `json:"activityKind"`
	ActivityTemplateOverride string          `json:"activityTemplateOverride,omitempty"`
	ActivityConfig           json.RawMessage `json:"activityConfig"`
	RewardKind               string          `json:"rewardKind"`
	RewardTemplateOverride   string          `json:"rewardTemplateOverride,omitempty"`
	RewardConfig             json.RawMessage `json:"rewardConfig"`
	Eligibility              eligibilityJSON `json:"eligibility"`
	Origin                   string          `json:"origin"`
	Owner                    string          `json:"owner"`
	Affiliate                string          `json:"affiliate,omitempty"`
	FeeBps                   uint32          `json:"feeBps"`
}

func (s *Server) handleCampaignCreate(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params campaignCreateParams
	if err := singleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	origin, err := parseBech32Address(params.Origin)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	owner, err := parseBech32Address(params.Owner)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	var affiliate *[20]byte
	if strings.TrimSpace(params.Affiliate) != "" {
		addr, err := parseBech32Address(params.Affiliate)
		if err != nil {
			writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
			return
		}
		affiliate = &addr
	}
	eligibility, err := params.Eligibility.decode()
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}

	// Resolve templates so the JSON config objects can be translated to the
	// typed per-kind blobs before the factory sees them.
	activityTemplate := params.ActivityTemplateOverride
	if activityTemplate == "" {
		activityTemplate, err = s.node.Registry().ActivityTemplate(params.ActivityKind)
		if err != nil {
			writeModuleError(w, req.ID, err)
			return
		}
	}
	rewardTemplate := params.RewardTemplateOverride
	if rewardTemplate == "" {
		rewardTemplate, err = s.node.Registry().RewardTemplate(params.RewardKind)
		if err != nil {
			writeModuleError(w, req.ID, err)
			return
		}
	}
	activityBlob, err := encodeActivityConfig(activityTemplate, params.ActivityConfig)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidConfig, "invalid_config", err.Error())
		return
	}
	rewardBlob, err := encodeRewardConfig(rewardTemplate, params.RewardConfig)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidConfig, "invalid_config", err.Error())
		return
	}

	record, err := s.node.Factory().Create(campaign.CreateParams{
		ActivityKind:             params.ActivityKind,
		ActivityTemplateOverride: params.ActivityTemplateOverride,
		ActivityConfig:           activityBlob,
		RewardKind:               params.RewardKind,
		RewardTemplateOverride:   params.RewardTemplateOverride,
		RewardConfig:             rewardBlob,
		Eligibility:              eligibility,
		Origin:                   origin,
		Owner:                    owner,
		Affiliate:                affiliate,
		FeeBps:                   params.FeeBps,
	})
	if err != nil {
		writeModuleError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, campaignToJSON(record))
}

type campaignIDParams struct {
	ID string `json:"id"`
}

func (s *Server) handleCampaignGet(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params campaignIDParams
	if err := singleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	id, err := parseID(params.ID)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	record, err := s.node.Engine().Get(id)
	if err != nil {
		writeModuleError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, campaignToJSON(record))
}

type campaignOwnerParams struct {
	Owner string `json:"owner"`
}

func (s *Server) handleCampaignListByOwner(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params campaignOwnerParams
	if err := singleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	owner, err := parseBech32Address(params.Owner)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	records, err := s.node.Factory().ListByOwner(owner)
	if err != nil {
		writeModuleError(w, req.ID, err)
		return
	}
	out := make([]campaignJSON, 0, len(records))
	for _, record := range records {
		out = append(out, campaignToJSON(record))
	}
	writeResult(w, req.ID, out)
}

type proofJSON struct {
	KindTag   string `json:"kindTag"`
	Timestamp int64  `json:"timestamp"`
	Signature string `json:"signature"`
}

type campaignClaimParams struct {
	ID            string     `json:"id"`
	Claimant      string     `json:"claimant"`
	Proof         *proofJSON `json:"proof,omitempty"`
	DiscountBps   uint32     `json:"discountBps,omitempty"`
	DiscountProof []string   `json:"discountProof,omitempty"`
}

type claimResultJSON struct {
	CampaignID   string `json:"campaignId"`
	Claimant     string `json:"claimant"`
	RewardKind   string `json:"rewardKind"`
	AuthMode     string `json:"authMode"`
	Amount       string `json:"amount,omitempty"`
	Fee          string `json:"fee"`
	TokenID      uint64 `json:"tokenId,omitempty"`
	HasTokenID   bool   `json:"hasTokenId"`
	EffectiveBps uint32 `json:"effectiveBps"`
	DiscountBps  uint32 `json:"discountBps"`
}

func (s *Server) handleCampaignClaim(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params campaignClaimParams
	if err := singleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	id, err := parseID(params.ID)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	claimant, err := parseBech32Address(params.Claimant)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	var proof *activity.Proof
	if params.Proof != nil {
		signature, err := hex.DecodeString(strings.TrimPrefix(params.Proof.Signature, "0x"))
		if err != nil {
			writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", "proof signature must be hex")
			return
		}
		proof, err = activity.NewProof(claimant, params.Proof.KindTag, params.Proof.Timestamp, signature)
		if err != nil {
			writeModuleError(w, req.ID, err)
			return
		}
	}
	discountProof := make([][32]byte, 0, len(params.DiscountProof))
	for _, node := range params.DiscountProof {
		decoded, err := parseID(node)
		if err != nil {
			writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
			return
		}
		discountProof = append(discountProof, decoded)
	}

	result, err := s.node.Engine().Claim(campaign.ClaimParams{
		CampaignID:    id,
		Claimant:      claimant,
		Proof:         proof,
		DiscountBps:   params.DiscountBps,
		DiscountProof: discountProof,
	})
	if err != nil {
		writeModuleError(w, req.ID, err)
		return
	}
	out := claimResultJSON{
		CampaignID:   formatIDHex(result.CampaignID),
		Claimant:     formatAddress(result.Claimant),
		RewardKind:   result.RewardKind,
		AuthMode:     result.AuthMode,
		Fee:          formatAmount(result.Fee),
		HasTokenID:   result.HasTokenID,
		EffectiveBps: result.EffectiveBps,
		DiscountBps:  result.DiscountBps,
	}
	if result.Amount != nil {
		out.Amount = formatAmount(result.Amount)
	}
	if result.HasTokenID {
		out.TokenID = result.TokenID
	}
	writeResult(w, req.ID, out)
}

type campaignStatusParams struct {
	ID       string `json:"id"`
	Claimant string `json:"claimant,omitempty"`
}

type campaignStatusResult struct {
	Campaign    campaignJSON `json:"campaign"`
	Active      bool         `json:"active"`
	Distributed string       `json:"distributed"`
	ClaimStart  uint64       `json:"claimStart"`
	ClaimFinish uint64       `json:"claimFinish"`
	Claimed     *bool        `json:"claimed,omitempty"`
	Eligible    *bool        `json:"eligible,omitempty"`
}

func (s *Server) handleCampaignStatus(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params campaignStatusParams
	if err := singleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	id, err := parseID(params.ID)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	status, err := s.node.Engine().Status(id)
	if err != nil {
		writeModuleError(w, req.ID, err)
		return
	}
	result := campaignStatusResult{
		Campaign:    campaignToJSON(status.Campaign),
		Active:      status.Active,
		Distributed: formatAmount(status.Distributed),
		ClaimStart:  status.ClaimStart,
		ClaimFinish: status.ClaimFinish,
	}
	if strings.TrimSpace(params.Claimant) != "" {
		claimant, err := parseBech32Address(params.Claimant)
		if err != nil {
			writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
			return
		}
		claimed, err := s.node.Engine().Claimed(id, claimant)
		if err != nil {
			writeModuleError(w, req.ID, err)
			return
		}
		eligible, err := s.node.Engine().CheckEligibility(id, claimant)
		if err != nil {
			writeModuleError(w, req.ID, err)
			return
		}
		result.Claimed = &claimed
		result.Eligible = &eligible
	}
	writeResult(w, req.ID, result)
}

type campaignSetEligibilityParams struct {
	ID          string          `json:"id"`
	Caller      string          `json:"caller"`
	Eligibility eligibilityJSON `json:"eligibility"`
}

func (s *Server) handleCampaignSetEligibility(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params campaignSetEligibilityParams
	if err := singleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	id, caller, ok := s.parseIDAndCaller(w, req, params.ID, params.Caller)
	if !ok {
		return
	}
	cfg, err := params.Eligibility.decode()
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	if err := s.node.Engine().SetEligibility(caller, id, cfg); err != nil {
		writeModuleError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, registryOKResult{OK: true})
}

type campaignSetFeeParams struct {
	ID     string `json:"id"`
	Caller string `json:"caller"`
	FeeBps uint32 `json:"feeBps"`
}

func (s *Server) handleCampaignSetFee(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params campaignSetFeeParams
	if err := singleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	id, caller, ok := s.parseIDAndCaller(w, req, params.ID, params.Caller)
	if !ok {
		return
	}
	if err := s.node.Engine().SetFeeBps(caller, id, params.FeeBps); err != nil {
		writeModuleError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, registryOKResult{OK: true})
}

type campaignSetActiveParams struct {
	ID     string `json:"id"`
	Caller string `json:"caller"`
	Active bool   `json:"active"`
}

func (s *Server) handleCampaignSetActive(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params campaignSetActiveParams
	if err := singleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	id, caller, ok := s.parseIDAndCaller(w, req, params.ID, params.Caller)
	if !ok {
		return
	}
	if err := s.node.Engine().SetActive(caller, id, params.Active); err != nil {
		writeModuleError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, registryOKResult{OK: true})
}

type campaignSetDiscountRootParams struct {
	ID     string `json:"id"`
	Caller string `json:"caller"`
	Root   string `json:"root"`
}

func (s *Server) handleCampaignSetDiscountRoot(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params campaignSetDiscountRootParams
	if err := singleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	id, caller, ok := s.parseIDAndCaller(w, req, params.ID, params.Caller)
	if !ok {
		return
	}
	var root [32]byte
	if strings.TrimSpace(params.Root) != "" {
		decoded, err := parseID(params.Root)
		if err != nil {
			writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
			return
		}
		root = decoded
	}
	if err := s.node.Engine().SetDiscountRoot(caller, id, root); err != nil {
		writeModuleError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, registryOKResult{OK: true})
}

type campaignSetOriginParams struct {
	Caller     string `json:"caller"`
	Origin     string `json:"origin"`
	Authorized bool   `json:"authorized"`
}

func (s *Server) handleCampaignSetOrigin(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params campaignSetOriginParams
	if err := singleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	caller, err := parseBech32Address(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	origin, err := parseBech32Address(params.Origin)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	if err := s.node.Factory().SetOriginAuthorized(caller, origin, params.Authorized); err != nil {
		writeModuleError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, registryOKResult{OK: true})
}

type raffleDrawParams struct {
	ID     string `json:"id"`
	Caller string `json:"caller"`
}

type raffleDrawResult struct {
	Winners        []string `json:"winners"`
	PrizePerWinner string   `json:"prizePerWinner"`
}

func (s *Server) handleCampaignRaffleDraw(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params raffleDrawParams
	if err := singleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	id, caller, ok := s.parseIDAndCaller(w, req, params.ID, params.Caller)
	if !ok {
		return
	}
	result, err := s.node.Engine().DrawRaffle(caller, id)
	if err != nil {
		writeModuleError(w, req.ID, err)
		return
	}
	out := raffleDrawResult{
		Winners:        make([]string, 0, len(result.Winners)),
		PrizePerWinner: formatAmount(result.PrizePerWinner),
	}
	for _, winner := range result.Winners {
		out.Winners = append(out.Winners, formatAddress(winner))
	}
	writeResult(w, req.ID, out)
}

type whitelistStatusResult struct {
	ListID    string   `json:"listId,omitempty"`
	Allocated uint64   `json:"allocated"`
	Entries   []string `json:"entries"`
}

func (s *Server) handleCampaignWhitelistStatus(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params campaignIDParams
	if err := singleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	id, err := parseID(params.ID)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	_, rewardMod, err := s.node.Engine().Modules(id)
	if err != nil {
		writeModuleError(w, req.ID, err)
		return
	}
	lister, ok := rewardMod.(reward.Lister)
	if !ok {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", "reward kind has no entry list")
		return
	}
	entries, err := lister.Entries()
	if err != nil {
		writeModuleError(w, req.ID, err)
		return
	}
	result := whitelistStatusResult{
		Allocated: uint64(len(entries)),
		Entries:   make([]string, 0, len(entries)),
	}
	if wl, ok := rewardMod.(*reward.Whitelist); ok {
		result.ListID = wl.ListID()
	}
	for _, entry := range entries {
		result.Entries = append(result.Entries, formatAddress(entry))
	}
	writeResult(w, req.ID, result)
}

func (s *Server) parseIDAndCaller(w http.ResponseWriter, req *RPCRequest, rawID, rawCaller string) ([32]byte, [20]byte, bool) {
	id, err := parseID(rawID)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return [32]byte{}, [20]byte{}, false
	}
	caller, err := parseBech32Address(rawCaller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return [32]byte{}, [20]byte{}, false
	}
	return id, caller, true
}
