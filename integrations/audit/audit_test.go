package audit

import (
	"math/big"
	"path/filepath"
	"testing"

	"claimgate/core/events"
)

func openTestDB(t *testing.T) *Recorder {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "audit.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	recorder, err := NewRecorder(db, nil)
	if err != nil {
		t.Fatalf("new recorder: %v", err)
	}
	t.Cleanup(func() {
		sqlDB, err := db.DB()
		if err == nil {
			_ = sqlDB.Close()
		}
	})
	return recorder
}

func sampleClaim(n byte) events.ClaimSucceeded {
	return events.ClaimSucceeded{
		CampaignID: [32]byte{n},
		Claimant:   [20]byte{n},
		RewardKind: "TOKEN_AIRDROP",
		Amount:     big.NewInt(int64(n) * 10),
		Fee:        big.NewInt(0),
	}
}

func TestRecorderChainsEntries(t *testing.T) {
	recorder := openTestDB(t)
	recorder.Emit(sampleClaim(1))
	recorder.Emit(sampleClaim(2))
	recorder.Emit(events.ClaimFailed{CampaignID: [32]byte{3}, Claimant: [20]byte{3}, Reason: "not_eligible"})

	entries, err := Entries(recorder.db)
	if err != nil {
		t.Fatalf("entries: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("entries %d, want 3", len(entries))
	}
	if entries[0].PrevHash != "" {
		t.Fatalf("genesis prev hash %q, want empty", entries[0].PrevHash)
	}
	if entries[1].PrevHash != entries[0].Hash || entries[2].PrevHash != entries[1].Hash {
		t.Fatal("entries not chained")
	}
	if err := VerifyChain(recorder.db); err != nil {
		t.Fatalf("verify: %v", err)
	}
}

func TestVerifyChainDetectsTampering(t *testing.T) {
	recorder := openTestDB(t)
	recorder.Emit(sampleClaim(1))
	recorder.Emit(sampleClaim(2))

	if err := recorder.db.Model(&Entry{}).Where("sequence = ?", 1).
		Update("payload", `{"forged":"yes"}`).Error; err != nil {
		t.Fatalf("tamper: %v", err)
	}
	if err := VerifyChain(recorder.db); err == nil {
		t.Fatal("expected verification failure after tampering")
	}
}

func TestRecorderResumesChain(t *testing.T) {
	recorder := openTestDB(t)
	recorder.Emit(sampleClaim(1))

	resumed, err := NewRecorder(recorder.db, nil)
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	resumed.Emit(sampleClaim(2))

	if err := VerifyChain(recorder.db); err != nil {
		t.Fatalf("verify after resume: %v", err)
	}
}
