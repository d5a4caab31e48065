package state_test

import (
	"testing"

	"claimgate/core/state"
	"claimgate/storage"
)

type record struct {
	Name  string
	Count uint64
}

func newManager(t *testing.T) *state.Manager {
	t.Helper()
	return state.NewManager(storage.NewMemDB())
}

func TestKVRoundTrip(t *testing.T) {
	m := newManager(t)
	key := []byte("campaign/test")

	var out record
	found, err := m.KVGet(key, &out)
	if err != nil {
		t.Fatalf("get empty: %v", err)
	}
	if found {
		t.Fatal("expected no record before put")
	}

	if err := m.KVPut(key, &record{Name: "airdrop", Count: 7}); err != nil {
		t.Fatalf("put: %v", err)
	}
	found, err = m.KVGet(key, &out)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !found || out.Name != "airdrop" || out.Count != 7 {
		t.Fatalf("unexpected record %+v found=%v", out, found)
	}

	if err := m.KVDelete(key); err != nil {
		t.Fatalf("delete: %v", err)
	}
	found, err = m.KVGet(key, &out)
	if err != nil || found {
		t.Fatalf("expected record gone, found=%v err=%v", found, err)
	}
}

func TestKVAppendAndList(t *testing.T) {
	m := newManager(t)
	key := []byte("campaign/owner-index")
	for _, id := range []string{"aa", "bb", "aa"} {
		if err := m.KVAppend(key, []byte(id)); err != nil {
			t.Fatalf("append %q: %v", id, err)
		}
	}
	var list [][]byte
	if err := m.KVGetList(key, &list); err != nil {
		t.Fatalf("get list: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(list))
	}
	if string(list[0]) != "aa" || string(list[1]) != "bb" || string(list[2]) != "aa" {
		t.Fatalf("unexpected list %q", list)
	}
}

func TestRoles(t *testing.T) {
	m := newManager(t)
	var admin [20]byte
	admin[0] = 0xAA

	if m.HasRole("ROLE_REGISTRY_ADMIN", admin[:]) {
		t.Fatal("role should not exist before grant")
	}
	if err := m.GrantRole("role_registry_admin", admin); err != nil {
		t.Fatalf("grant: %v", err)
	}
	if !m.HasRole("ROLE_REGISTRY_ADMIN", admin[:]) {
		t.Fatal("expected role after grant (case-insensitive)")
	}
	if err := m.RevokeRole("ROLE_REGISTRY_ADMIN", admin); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if m.HasRole("ROLE_REGISTRY_ADMIN", admin[:]) {
		t.Fatal("role should be gone after revoke")
	}
}
