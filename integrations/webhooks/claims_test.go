package webhooks

import (
	"encoding/json"
	"io"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"claimgate/core/events"
)

func TestDispatcherSignsPayload(t *testing.T) {
	var receivedSignature string
	var receivedEvent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = r.Body.Close()
		if string(body) == "" {
			t.Fatalf("expected body")
		}
		receivedSignature = r.Header.Get("X-Claimgate-Signature")
		receivedEvent = r.Header.Get("X-Claimgate-Event")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()
	dispatcher, err := NewDispatcher(server.URL, []byte("secret"))
	if err != nil {
		t.Fatalf("dispatcher: %v", err)
	}
	defer dispatcher.Close()
	payload := ClaimCommittedPayload{
		CampaignID: "0xabc",
		Claimant:   "cg1claimant",
		RewardKind: "TOKEN_AIRDROP",
		Amount:     "20",
	}
	if err := dispatcher.EnqueueClaim(payload); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	waitFor(func() bool { return receivedSignature != "" }, time.Second)
	if receivedSignature == "" {
		t.Fatalf("expected signature header")
	}
	if receivedSignature[:7] != "sha256=" {
		t.Fatalf("unexpected signature prefix %s", receivedSignature)
	}
	if receivedEvent != string(EventClaimCommitted) {
		t.Fatalf("unexpected event header %s", receivedEvent)
	}
}

func TestDispatcherRetries(t *testing.T) {
	attempts := int32(0)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()
	dispatcher, err := NewDispatcher(server.URL, []byte("secret"), WithRetryPolicy(5, time.Millisecond*10, time.Millisecond*20))
	if err != nil {
		t.Fatalf("dispatcher: %v", err)
	}
	defer dispatcher.Close()
	if err := dispatcher.EnqueueRaffle(RaffleDrawnPayload{CampaignID: "0xabc", Winners: []string{"cg1w"}, PrizePerWinner: "5"}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	waitFor(func() bool { return atomic.LoadInt32(&attempts) >= 3 }, time.Second)
	if atomic.LoadInt32(&attempts) < 3 {
		t.Fatalf("expected retries, got %d", attempts)
	}
}

func TestNotifierForwardsClaimEvents(t *testing.T) {
	received := make(chan ClaimCommittedPayload, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload ClaimCommittedPayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode: %v", err)
		}
		received <- payload
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()
	dispatcher, err := NewDispatcher(server.URL, []byte("secret"))
	if err != nil {
		t.Fatalf("dispatcher: %v", err)
	}
	defer dispatcher.Close()
	notifier := NewNotifier(dispatcher)
	notifier.Emit(events.ClaimSucceeded{
		CampaignID: [32]byte{0xaa},
		Claimant:   [20]byte{0xbb},
		RewardKind: "TOKEN_AIRDROP",
		Amount:     big.NewInt(20),
		Fee:        big.NewInt(2),
	})
	select {
	case payload := <-received:
		if payload.Type != EventClaimCommitted {
			t.Fatalf("unexpected type %s", payload.Type)
		}
		if payload.RewardKind != "TOKEN_AIRDROP" || payload.Amount != "20" || payload.Fee != "2" {
			t.Fatalf("unexpected payload %+v", payload)
		}
	case <-time.After(time.Second):
		t.Fatal("no delivery received")
	}
}

func waitFor(cond func() bool, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond * 10)
	}
}
