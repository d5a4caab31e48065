package rpc

import (
	"net/http"
)

type registryKindParams struct {
	Caller     string `json:"caller"`
	Name       string `json:"name"`
	TemplateID string `json:"templateId"`
}

type registryPairingParams struct {
	Caller       string `json:"caller"`
	ActivityKind string `json:"activityKind"`
	RewardKind   string `json:"rewardKind"`
	Permitted    bool   `json:"permitted"`
}

type registryOKResult struct {
	OK bool `json:"ok"`
}

type registryKindJSON struct {
	Name       string `json:"name"`
	TemplateID string `json:"templateId"`
}

type registryPairingJSON struct {
	ActivityKind string `json:"activityKind"`
	RewardKind   string `json:"rewardKind"`
	Permitted    bool   `json:"permitted"`
}

type registryListResult struct {
	ActivityKinds []registryKindJSON    `json:"activityKinds"`
	RewardKinds   []registryKindJSON    `json:"rewardKinds"`
	Pairings      []registryPairingJSON `json:"pairings"`
}

func (s *Server) handleRegistryRegisterActivityKind(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	s.registerKind(w, req, true)
}

func (s *Server) handleRegistryRegisterRewardKind(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	s.registerKind(w, req, false)
}

func (s *Server) registerKind(w http.ResponseWriter, req *RPCRequest, isActivity bool) {
	var params registryKindParams
	if err := singleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	caller, err := parseBech32Address(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	register := s.node.Registry().RegisterRewardKind
	if isActivity {
		register = s.node.Registry().RegisterActivityKind
	}
	if err := register(caller, params.Name, params.TemplateID); err != nil {
		writeModuleError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, registryOKResult{OK: true})
}

func (s *Server) handleRegistrySetPairing(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params registryPairingParams
	if err := singleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	caller, err := parseBech32Address(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	if err := s.node.Registry().SetPairingPermitted(caller, params.ActivityKind, params.RewardKind, params.Permitted); err != nil {
		writeModuleError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, registryOKResult{OK: true})
}

func (s *Server) handleRegistryList(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	reg := s.node.Registry()
	activityKinds, err := reg.ActivityKinds()
	if err != nil {
		writeModuleError(w, req.ID, err)
		return
	}
	rewardKinds, err := reg.RewardKinds()
	if err != nil {
		writeModuleError(w, req.ID, err)
		return
	}
	pairings, err := reg.Pairings()
	if err != nil {
		writeModuleError(w, req.ID, err)
		return
	}
	result := registryListResult{
		ActivityKinds: make([]registryKindJSON, 0, len(activityKinds)),
		RewardKinds:   make([]registryKindJSON, 0, len(rewardKinds)),
		Pairings:      make([]registryPairingJSON, 0, len(pairings)),
	}
	for _, entry := range activityKinds {
		result.ActivityKinds = append(result.ActivityKinds, registryKindJSON{Name: entry.Name, TemplateID: entry.TemplateID})
	}
	for _, entry := range rewardKinds {
		result.RewardKinds = append(result.RewardKinds, registryKindJSON{Name: entry.Name, TemplateID: entry.TemplateID})
	}
	for _, pairing := range pairings {
		result.Pairings = append(result.Pairings, registryPairingJSON{
			ActivityKind: pairing.ActivityKind,
			RewardKind:   pairing.RewardKind,
			Permitted:    pairing.Permitted,
		})
	}
	writeResult(w, req.ID, result)
}
