// Package prooflog persists eligibility proof digests per campaign so
// duplicate submissions are observable across restarts. Replay scope is the
// campaign: the same proof presented to two different campaigns records two
// independent entries.
package prooflog

import (
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"claimgate/crypto"
	"claimgate/native/activity"
)

var bucketProofs = []byte("proofs")

// Log is a bbolt-backed journal of proofs the claim engine has accepted.
type Log struct {
	db *bolt.DB
}

type entry struct {
	Claimant  string `json:"claimant"`
	Kind      string `json:"kind"`
	Timestamp int64  `json:"timestamp"`
	SeenAt    int64  `json:"seenAt"`
}

// Open opens or creates the journal at path.
func Open(path string) (*Log, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("prooflog: open %s: %w", path, err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketProofs)
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("prooflog: init bucket: %w", err)
	}
	return &Log{db: db}, nil
}

// Close releases the underlying database.
func (l *Log) Close() error {
	if l == nil || l.db == nil {
		return nil
	}
	return l.db.Close()
}

func proofKey(campaignID [32]byte, proof *activity.Proof) ([]byte, error) {
	hash, err := proof.Hash()
	if err != nil {
		return nil, err
	}
	key := make([]byte, 0, len(campaignID)+len(hash))
	key = append(key, campaignID[:]...)
	key = append(key, hash...)
	return key, nil
}

// Record journals the proof under campaignID. It returns false when the
// digest was already present, leaving the first-seen entry untouched.
func (l *Log) Record(campaignID [32]byte, proof *activity.Proof, seenAt time.Time) (bool, error) {
	key, err := proofKey(campaignID, proof)
	if err != nil {
		return false, err
	}
	payload, err := json.Marshal(entry{
		Claimant:  crypto.NewAddress(proof.Claimant).String(),
		Kind:      proof.KindTag,
		Timestamp: proof.Timestamp.Unix(),
		SeenAt:    seenAt.Unix(),
	})
	if err != nil {
		return false, fmt.Errorf("prooflog: marshal entry: %w", err)
	}
	recorded := false
	err = l.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketProofs)
		if bucket == nil {
			return fmt.Errorf("prooflog: bucket missing")
		}
		if bucket.Get(key) != nil {
			return nil
		}
		if err := bucket.Put(key, payload); err != nil {
			return err
		}
		recorded = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("prooflog: record: %w", err)
	}
	return recorded, nil
}

// Seen reports whether the proof digest is already journaled for campaignID.
func (l *Log) Seen(campaignID [32]byte, proof *activity.Proof) (bool, error) {
	key, err := proofKey(campaignID, proof)
	if err != nil {
		return false, err
	}
	seen := false
	err = l.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketProofs)
		if bucket == nil {
			return nil
		}
		seen = bucket.Get(key) != nil
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("prooflog: seen: %w", err)
	}
	return seen, nil
}

// Sweep deletes entries journaled before cutoff and returns how many were
// removed. Retention is an operator concern; the engine never re-admits a
// swept proof because staleness rejects it long before retention expires.
func (l *Log) Sweep(cutoff time.Time) (int, error) {
	removed := 0
	err := l.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketProofs)
		if bucket == nil {
			return nil
		}
		cursor := bucket.Cursor()
		var stale [][]byte
		for k, v := cursor.First(); k != nil; k, v = cursor.Next() {
			var rec entry
			if err := json.Unmarshal(v, &rec); err != nil {
				continue
			}
			if rec.SeenAt < cutoff.Unix() {
				keyCopy := make([]byte, len(k))
				copy(keyCopy, k)
				stale = append(stale, keyCopy)
			}
		}
		for _, k := range stale {
			if err := bucket.Delete(k); err != nil {
				return err
			}
			removed++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("prooflog: sweep: %w", err)
	}
	return removed, nil
}
