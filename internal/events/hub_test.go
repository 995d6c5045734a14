package events

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestPublishReachesRegisteredConnection(t *testing.T) {
	h := NewHub(nil)
	go h.Run()
	defer h.Close()

	userID := uuid.New()
	conn := &Connection{UserID: userID, Send: make(chan []byte, 8)}
	h.Register(conn)

	deadline := time.After(2 * time.Second)
	for {
		h.Publish(context.Background(), Event{
			Type:   EventTransferCompleted,
			UserID: userID,
			Data:   map[string]interface{}{"reference": "REF0000000000001"},
		})
		select {
		case data := <-conn.Send:
			var ev Event
			if err := json.Unmarshal(data, &ev); err != nil {
				t.Fatalf("decoding event failed: %v", err)
			}
			if ev.Type != EventTransferCompleted {
				t.Fatalf("expected %s, got %s", EventTransferCompleted, ev.Type)
			}
			if ev.At.IsZero() {
				t.Fatal("expected a publish timestamp")
			}
			return
		case <-deadline:
			t.Fatal("event never delivered")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestPublishIgnoresUsersWithoutConnections(t *testing.T) {
	h := NewHub(nil)
	go h.Run()
	defer h.Close()

	// must not block or panic with nobody listening
	h.Publish(context.Background(), Event{Type: EventDepositCompleted, UserID: uuid.New()})
}

// Publishing races against register/unregister churn on the same user. The
// hub loop closes Send channels under the write lock, so sends must never
// interleave with that.
func TestPublishDuringConnectionChurn(t *testing.T) {
	h := NewHub(nil)
	go h.Run()
	defer h.Close()

	userID := uuid.New()
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			conn := &Connection{UserID: userID, Send: make(chan []byte, 1)}
			h.Register(conn)
			h.Unregister(conn)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			h.Publish(context.Background(), Event{Type: EventTransferCompleted, UserID: userID})
		}
	}()

	wg.Wait()
}
