package main

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"claimgate/cmd/internal/passphrase"
	"claimgate/crypto"
	"claimgate/integrations/audit"
	"claimgate/integrations/exports"
	"claimgate/native/activity"
)

var rpcEndpoint = defaultRPCEndpoint()
var rpcAuthToken = os.Getenv("CLAIMGATE_RPC_TOKEN")

const keystorePassEnv = "CLAIMGATE_KEYSTORE_PASS"

func main() {
	args := os.Args[1:]
	var err error
	args, err = applyGlobalFlags(args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if len(args) < 1 {
		printUsage()
		return
	}

	switch args[0] {
	case "keygen":
		file := "claim.keystore"
		if len(args) > 1 {
			file = args[1]
		}
		keygen(file)
	case "sign-proof":
		if len(args) < 4 {
			fmt.Println("Usage: sign-proof <keystore> <claimant> <kind-tag>")
			return
		}
		signProof(args[1], args[2], args[3])
	case "claim":
		if len(args) < 3 {
			fmt.Println("Usage: claim <campaign-id> <claimant> [proof-file] [discount-bps]")
			return
		}
		proofFile := ""
		discountBps := uint64(0)
		if len(args) > 3 {
			proofFile = args[3]
		}
		if len(args) > 4 {
			discountBps, err = strconv.ParseUint(args[4], 10, 32)
			if err != nil {
				fmt.Println("Error: invalid discount bps.")
				return
			}
		}
		claim(args[1], args[2], proofFile, uint32(discountBps))
	case "campaign":
		if len(args) < 2 {
			printUsage()
			return
		}
		runCampaignCommand(args[1:])
	case "registry":
		if len(args) < 2 || args[1] != "list" {
			fmt.Println("Usage: registry list")
			return
		}
		result, err := callRPC("registry_list", nil, false)
		if err != nil {
			fmt.Printf("Error listing registry: %v\n", err)
			return
		}
		printJSONResult(result)
	case "raffle":
		if len(args) < 4 || args[1] != "draw" {
			fmt.Println("Usage: raffle draw <campaign-id> <caller>")
			return
		}
		raffleDraw(args[2], args[3])
	case "export":
		if len(args) < 4 {
			fmt.Println("Usage: export <csv|jsonl|parquet> <audit-dsn> <out-file>")
			return
		}
		exportClaims(args[1], args[2], args[3])
	default:
		fmt.Printf("Unknown command: %s\n", args[0])
		printUsage()
	}
}

func runCampaignCommand(args []string) {
	switch args[0] {
	case "create":
		if len(args) < 2 {
			fmt.Println("Usage: campaign create <params-file.json>")
			return
		}
		campaignCreate(args[1])
	case "get":
		if len(args) < 2 {
			fmt.Println("Usage: campaign get <campaign-id>")
			return
		}
		result, err := callRPC("campaign_get", map[string]string{"id": args[1]}, false)
		if err != nil {
			fmt.Printf("Error fetching campaign: %v\n", err)
			return
		}
		printJSONResult(result)
	case "status":
		if len(args) < 2 {
			fmt.Println("Usage: campaign status <campaign-id> [claimant]")
			return
		}
		param := map[string]string{"id": args[1]}
		if len(args) > 2 {
			param["claimant"] = args[2]
		}
		result, err := callRPC("campaign_status", param, false)
		if err != nil {
			fmt.Printf("Error fetching status: %v\n", err)
			return
		}
		printJSONResult(result)
	case "list":
		if len(args) < 2 {
			fmt.Println("Usage: campaign list <owner>")
			return
		}
		result, err := callRPC("campaign_listByOwner", map[string]string{"owner": args[1]}, false)
		if err != nil {
			fmt.Printf("Error listing campaigns: %v\n", err)
			return
		}
		printJSONResult(result)
	case "set-active":
		if len(args) < 4 {
			fmt.Println("Usage: campaign set-active <campaign-id> <caller> <true|false>")
			return
		}
		active, err := strconv.ParseBool(args[3])
		if err != nil {
			fmt.Println("Error: active must be true or false.")
			return
		}
		param := map[string]interface{}{"id": args[1], "caller": args[2], "active": active}
		if _, err := callRPC("campaign_setActive", param, true); err != nil {
			fmt.Printf("Error toggling campaign: %v\n", err)
			return
		}
		fmt.Println("Campaign updated.")
	case "set-fee":
		if len(args) < 4 {
			fmt.Println("Usage: campaign set-fee <campaign-id> <caller> <fee-bps>")
			return
		}
		feeBps, err := strconv.ParseUint(args[3], 10, 32)
		if err != nil {
			fmt.Println("Error: invalid fee bps.")
			return
		}
		param := map[string]interface{}{"id": args[1], "caller": args[2], "feeBps": feeBps}
		if _, err := callRPC("campaign_setFee", param, true); err != nil {
			fmt.Printf("Error setting fee: %v\n", err)
			return
		}
		fmt.Println("Fee updated.")
	default:
		fmt.Printf("Unknown campaign command: %s\n", args[0])
		printUsage()
	}
}

func keygen(file string) {
	source := passphrase.NewSource(keystorePassEnv)
	pass, err := source.Get()
	if err != nil {
		fmt.Printf("Error resolving passphrase: %v\n", err)
		return
	}
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		fmt.Printf("Error generating key: %v\n", err)
		return
	}
	if err := crypto.SaveToKeystore(file, key, pass); err != nil {
		fmt.Printf("Error saving keystore: %v\n", err)
		return
	}
	fmt.Printf("Generated new key and saved encrypted keystore to %s\n", file)
	fmt.Printf("Address: %s\n", key.PubKey().Address().String())
}

func signProof(keystoreFile, claimantAddr, kindTag string) {
	source := passphrase.NewSource(keystorePassEnv)
	pass, err := source.Get()
	if err != nil {
		fmt.Printf("Error resolving passphrase: %v\n", err)
		return
	}
	key, err := crypto.LoadFromKeystore(keystoreFile, pass)
	if err != nil {
		fmt.Printf("Error loading keystore: %v\n", err)
		return
	}
	claimant, err := crypto.DecodeAddress(claimantAddr)
	if err != nil {
		fmt.Printf("Error decoding claimant: %v\n", err)
		return
	}
	proof, err := activity.SignProof(key, claimant.Bytes(), kindTag, time.Now().UTC())
	if err != nil {
		fmt.Printf("Error signing proof: %v\n", err)
		return
	}
	out := map[string]interface{}{
		"claimant":  claimantAddr,
		"kindTag":   proof.KindTag,
		"timestamp": proof.Timestamp.Unix(),
		"signature": hex.EncodeToString(proof.Signature),
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		fmt.Printf("Error encoding proof: %v\n", err)
		return
	}
	fmt.Println(string(data))
}

func claim(campaignID, claimant, proofFile string, discountBps uint32) {
	param := map[string]interface{}{
		"id":       campaignID,
		"claimant": claimant,
	}
	if discountBps > 0 {
		param["discountBps"] = discountBps
	}
	if proofFile != "" {
		data, err := os.ReadFile(proofFile)
		if err != nil {
			fmt.Printf("Error reading proof file: %v\n", err)
			return
		}
		var proof struct {
			KindTag   string `json:"kindTag"`
			Timestamp int64  `json:"timestamp"`
			Signature string `json:"signature"`
		}
		if err := json.Unmarshal(data, &proof); err != nil {
			fmt.Printf("Error parsing proof file: %v\n", err)
			return
		}
		param["proof"] = proof
	}
	result, err := callRPC("campaign_claim", param, false)
	if err != nil {
		fmt.Printf("Error submitting claim: %v\n", err)
		return
	}
	printJSONResult(result)
}

func campaignCreate(paramsFile string) {
	data, err := os.ReadFile(paramsFile)
	if err != nil {
		fmt.Printf("Error reading params file: %v\n", err)
		return
	}
	var param json.RawMessage
	if err := json.Unmarshal(data, &param); err != nil {
		fmt.Printf("Error parsing params file: %v\n", err)
		return
	}
	result, err := callRPC("campaign_create", param, true)
	if err != nil {
		fmt.Printf("Error creating campaign: %v\n", err)
		return
	}
	printJSONResult(result)
}

func raffleDraw(campaignID, caller string) {
	param := map[string]string{"id": campaignID, "caller": caller}
	result, err := callRPC("campaign_raffleDraw", param, true)
	if err != nil {
		fmt.Printf("Error drawing raffle: %v\n", err)
		return
	}
	printJSONResult(result)
}

func exportClaims(format, dsn, outFile string) {
	db, err := audit.Open(dsn)
	if err != nil {
		fmt.Printf("Error opening audit store: %v\n", err)
		return
	}
	entries, err := audit.Entries(db)
	if err != nil {
		fmt.Printf("Error reading audit entries: %v\n", err)
		return
	}
	rows, err := exports.RowsFromAudit(entries)
	if err != nil {
		fmt.Printf("Error extracting claims: %v\n", err)
		return
	}
	switch strings.ToLower(format) {
	case "csv":
		data, checksum, err := exports.ClaimsCSV(rows)
		if err != nil {
			fmt.Printf("Error rendering CSV: %v\n", err)
			return
		}
		if err := os.WriteFile(outFile, data, 0o644); err != nil {
			fmt.Printf("Error writing export: %v\n", err)
			return
		}
		fmt.Printf("Exported %d claims to %s (sha256 %s)\n", len(rows), outFile, checksum)
	case "jsonl":
		data, checksum, err := exports.ClaimsJSONL(rows)
		if err != nil {
			fmt.Printf("Error rendering JSONL: %v\n", err)
			return
		}
		if err := os.WriteFile(outFile, data, 0o644); err != nil {
			fmt.Printf("Error writing export: %v\n", err)
			return
		}
		fmt.Printf("Exported %d claims to %s (sha256 %s)\n", len(rows), outFile, checksum)
	case "parquet":
		if err := exports.ClaimsParquet(outFile, rows); err != nil {
			fmt.Printf("Error writing parquet export: %v\n", err)
			return
		}
		fmt.Printf("Exported %d claims to %s\n", len(rows), outFile)
	default:
		fmt.Println("Format must be csv, jsonl or parquet.")
	}
}

func defaultRPCEndpoint() string {
	if v := strings.TrimSpace(os.Getenv("RPC_URL")); v != "" {
		return v
	}
	return "http://localhost:8545"
}

func applyGlobalFlags(args []string) ([]string, error) {
	out := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--rpc" {
			if i+1 >= len(args) {
				return nil, fmt.Errorf("missing value for --rpc")
			}
			rpcEndpoint = args[i+1]
			i++
			continue
		}
		if value, ok := strings.CutPrefix(arg, "--rpc="); ok {
			rpcEndpoint = value
			continue
		}
		out = append(out, arg)
	}
	return out, nil
}

func callRPC(method string, param interface{}, requireAuth bool) (json.RawMessage, error) {
	payload := map[string]interface{}{"jsonrpc": "2.0", "id": 1, "method": method}
	if param != nil {
		payload["params"] = []interface{}{param}
	} else {
		payload["params"] = []interface{}{}
	}
	body, _ := json.Marshal(payload)

	req, err := http.NewRequest(http.MethodPost, rpcEndpoint, bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if requireAuth {
		if rpcAuthToken == "" {
			return nil, fmt.Errorf("privileged RPC call requires CLAIMGATE_RPC_TOKEN to be set")
		}
		req.Header.Set("Authorization", "Bearer "+strings.TrimSpace(rpcAuthToken))
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("POST %s: %w", rpcEndpoint, err)
	}
	defer resp.Body.Close()

	var rpcResp struct {
		Result json.RawMessage `json:"result"`
		Error  *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return nil, fmt.Errorf("failed to decode response from node")
	}
	if rpcResp.Error != nil {
		return nil, fmt.Errorf("error from node: %s", rpcResp.Error.Message)
	}
	return rpcResp.Result, nil
}

func printJSONResult(result json.RawMessage) {
	if len(result) == 0 {
		fmt.Println("No result.")
		return
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, result, "", "  "); err != nil {
		fmt.Println(string(result))
		return
	}
	fmt.Println(buf.String())
}

func printUsage() {
	fmt.Println("Usage: claimgate-cli [--rpc <url>] <command> [arguments]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  keygen [file]                                    Generate an encrypted keystore")
	fmt.Println("  sign-proof <keystore> <claimant> <kind-tag>      Sign an eligibility proof")
	fmt.Println("  claim <id> <claimant> [proof-file] [bps]         Submit a claim")
	fmt.Println("  campaign create <params-file.json>               Create a campaign")
	fmt.Println("  campaign get <id>                                Fetch a campaign record")
	fmt.Println("  campaign status <id> [claimant]                  Fetch campaign status")
	fmt.Println("  campaign list <owner>                            List campaigns by owner")
	fmt.Println("  campaign set-active <id> <caller> <bool>         Toggle the reward")
	fmt.Println("  campaign set-fee <id> <caller> <bps>             Update the fee")
	fmt.Println("  registry list                                    List registered kinds and pairings")
	fmt.Println("  raffle draw <id> <caller>                        Draw raffle winners")
	fmt.Println("  export <csv|jsonl|parquet> <dsn> <out>           Export committed claims")
	fmt.Println()
	fmt.Println("Environment: RPC_URL, CLAIMGATE_RPC_TOKEN, CLAIMGATE_KEYSTORE_PASS")
}
