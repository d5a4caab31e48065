// Package audit persists every emitted event into a tamper-evident log: each
// row carries a blake3 hash chained over the previous row, so truncation or
// edits are detectable by replaying the chain.
package audit

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"lukechampine.com/blake3"

	"claimgate/core/events"
)

// Entry is one persisted audit record.
type Entry struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	Sequence  uint64 `gorm:"uniqueIndex"`
	EventType string `gorm:"size:64;index"`
	Payload   string
	PrevHash  string `gorm:"size:64"`
	Hash      string `gorm:"size:64;index"`
	CreatedAt time.Time
}

// Attributes decodes the persisted event payload.
func (e *Entry) Attributes() (map[string]string, error) {
	attrs := make(map[string]string)
	if err := json.Unmarshal([]byte(e.Payload), &attrs); err != nil {
		return nil, err
	}
	return attrs, nil
}

// Open connects to the audit database. DSNs beginning with "postgres://" or
// "postgresql://" use the Postgres driver; everything else is treated as a
// SQLite path or URI.
func Open(dsn string) (*gorm.DB, error) {
	trimmed := strings.TrimSpace(dsn)
	if trimmed == "" {
		return nil, fmt.Errorf("audit: dsn required")
	}
	var dialector gorm.Dialector
	if strings.HasPrefix(trimmed, "postgres://") || strings.HasPrefix(trimmed, "postgresql://") {
		dialector = postgres.Open(trimmed)
	} else {
		dialector = sqlite.Open(trimmed)
	}
	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("audit: open database: %w", err)
	}
	if err := db.AutoMigrate(&Entry{}); err != nil {
		return nil, fmt.Errorf("audit: migrate: %w", err)
	}
	return db, nil
}

// Recorder appends emitted events to the audit chain. It satisfies the
// events.Emitter interface so it can be fanned out alongside the node's
// buffer; persistence failures are logged rather than propagated because
// emitters cannot report errors.
type Recorder struct {
	db     *gorm.DB
	logger *slog.Logger

	mu       sync.Mutex
	sequence uint64
	lastHash string
}

// NewRecorder resumes the chain from the last persisted entry.
func NewRecorder(db *gorm.DB, logger *slog.Logger) (*Recorder, error) {
	if db == nil {
		return nil, fmt.Errorf("audit: database required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	var last Entry
	err := db.Order("sequence DESC").First(&last).Error
	switch {
	case err == nil:
		return &Recorder{db: db, logger: logger, sequence: last.Sequence, lastHash: last.Hash}, nil
	case err == gorm.ErrRecordNotFound:
		return &Recorder{db: db, logger: logger}, nil
	default:
		return nil, fmt.Errorf("audit: load chain head: %w", err)
	}
}

// Emit implements the events.Emitter interface.
func (r *Recorder) Emit(evt events.Event) {
	if r == nil || evt == nil {
		return
	}
	payload, err := json.Marshal(evt.Attributes())
	if err != nil {
		r.logger.Error("audit: encode event payload", "error", err, "type", evt.EventType())
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	entry := Entry{
		Sequence:  r.sequence + 1,
		EventType: evt.EventType(),
		Payload:   string(payload),
		PrevHash:  r.lastHash,
		CreatedAt: time.Now().UTC(),
	}
	entry.Hash = chainHash(entry)
	if err := r.db.Create(&entry).Error; err != nil {
		r.logger.Error("audit: persist entry", "error", err, "type", entry.EventType)
		return
	}
	r.sequence = entry.Sequence
	r.lastHash = entry.Hash
}

// chainHash binds the record to its predecessor. JSON marshalling of the
// attribute map sorts keys, so the payload string is canonical.
func chainHash(entry Entry) string {
	sum := blake3.Sum256([]byte(fmt.Sprintf("%s|%d|%s|%s", entry.PrevHash, entry.Sequence, entry.EventType, entry.Payload)))
	return hex.EncodeToString(sum[:])
}

// VerifyChain replays the full log and reports the first break in sequence
// numbering or hash linkage.
func VerifyChain(db *gorm.DB) error {
	var entries []Entry
	if err := db.Order("sequence ASC").Find(&entries).Error; err != nil {
		return fmt.Errorf("audit: load entries: %w", err)
	}
	prevHash := ""
	for i, entry := range entries {
		if entry.Sequence != uint64(i+1) {
			return fmt.Errorf("audit: sequence gap at %d (found %d)", i+1, entry.Sequence)
		}
		if entry.PrevHash != prevHash {
			return fmt.Errorf("audit: broken link at sequence %d", entry.Sequence)
		}
		if chainHash(entry) != entry.Hash {
			return fmt.Errorf("audit: hash mismatch at sequence %d", entry.Sequence)
		}
		prevHash = entry.Hash
	}
	return nil
}

// Entries returns the persisted log in chain order, newest last.
func Entries(db *gorm.DB) ([]Entry, error) {
	var entries []Entry
	if err := db.Order("sequence ASC").Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("audit: load entries: %w", err)
	}
	return entries, nil
}
