package prooflog

import (
	"path/filepath"
	"testing"
	"time"

	"claimgate/crypto"
	"claimgate/native/activity"
)

func openTestLog(t *testing.T) *Log {
	t.Helper()
	log, err := Open(filepath.Join(t.TempDir(), "proofs.db"))
	if err != nil {
		t.Fatalf("open log: %v", err)
	}
	t.Cleanup(func() { log.Close() })
	return log
}

func signedProof(t *testing.T, claimant [20]byte, ts time.Time) *activity.Proof {
	t.Helper()
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	proof, err := activity.SignProof(key, claimant, activity.TagHoldNFTs, ts)
	if err != nil {
		t.Fatalf("sign proof: %v", err)
	}
	return proof
}

func TestRecordAndSeen(t *testing.T) {
	log := openTestLog(t)
	campaign := [32]byte{0x01}
	proof := signedProof(t, [20]byte{0x0a}, time.Unix(1_700_000_000, 0))

	seen, err := log.Seen(campaign, proof)
	if err != nil {
		t.Fatalf("seen: %v", err)
	}
	if seen {
		t.Fatalf("fresh proof reported as seen")
	}

	recorded, err := log.Record(campaign, proof, time.Unix(1_700_000_100, 0))
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if !recorded {
		t.Fatalf("first record reported duplicate")
	}

	recorded, err = log.Record(campaign, proof, time.Unix(1_700_000_200, 0))
	if err != nil {
		t.Fatalf("record duplicate: %v", err)
	}
	if recorded {
		t.Fatalf("duplicate record reported fresh")
	}

	seen, err = log.Seen(campaign, proof)
	if err != nil {
		t.Fatalf("seen: %v", err)
	}
	if !seen {
		t.Fatalf("recorded proof not reported as seen")
	}
}

func TestReplayScopeIsPerCampaign(t *testing.T) {
	log := openTestLog(t)
	proof := signedProof(t, [20]byte{0x0b}, time.Unix(1_700_000_000, 0))

	if _, err := log.Record([32]byte{0x01}, proof, time.Unix(1_700_000_100, 0)); err != nil {
		t.Fatalf("record: %v", err)
	}
	seen, err := log.Seen([32]byte{0x02}, proof)
	if err != nil {
		t.Fatalf("seen: %v", err)
	}
	if seen {
		t.Fatalf("proof leaked across campaign scopes")
	}
}

func TestSweep(t *testing.T) {
	log := openTestLog(t)
	campaign := [32]byte{0x03}
	old := signedProof(t, [20]byte{0x0c}, time.Unix(1_700_000_000, 0))
	fresh := signedProof(t, [20]byte{0x0d}, time.Unix(1_700_010_000, 0))

	if _, err := log.Record(campaign, old, time.Unix(1_700_000_000, 0)); err != nil {
		t.Fatalf("record: %v", err)
	}
	if _, err := log.Record(campaign, fresh, time.Unix(1_700_010_000, 0)); err != nil {
		t.Fatalf("record: %v", err)
	}

	removed, err := log.Sweep(time.Unix(1_700_005_000, 0))
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected one swept entry, got %d", removed)
	}

	seen, err := log.Seen(campaign, old)
	if err != nil {
		t.Fatalf("seen: %v", err)
	}
	if seen {
		t.Fatalf("swept proof still reported as seen")
	}
	seen, err = log.Seen(campaign, fresh)
	if err != nil {
		t.Fatalf("seen: %v", err)
	}
	if !seen {
		t.Fatalf("fresh proof swept unexpectedly")
	}
}
