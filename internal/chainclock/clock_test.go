package chainclock

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/injective-mining/gminer/internal/chainapi"
)

func TestClock_EmitsObservationOnSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.Contains(r.URL.Path, "blocks/latest"):
			w.Write([]byte(`{"block":{"header":{"height":"500"}}}`))
		default:
			w.Write([]byte(`{"epoch_id":1,"phase":"commit","start_height":1,"end_height":2,"difficulty":10,"challenge":"AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA="}`))
		}
	}))
	defer srv.Close()

	client := chainapi.New(srv.URL, "inj1contract", 5*time.Second)
	c := New(client, zap.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	go c.Run(ctx)

	select {
	case obs := <-c.Observations():
		if obs.Height != 500 {
			t.Fatalf("height = %d, want 500", obs.Height)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for observation")
	}
}

func TestClock_SurvivesSustainedFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := chainapi.New(srv.URL, "inj1contract", 200*time.Millisecond)
	c := New(client, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	// This test only exercises that Run doesn't panic or deadlock under
	// sustained failure; the 60s stall threshold is too long to assert
	// on directly in a unit test.
	time.Sleep(50 * time.Millisecond)
	cancel()
}

// A lower height than previously observed must never be surfaced to
// Observations — it indicates a transient re-read, not a chain rewind.
func TestClock_DiscardsHeightLowerThanLastObserved(t *testing.T) {
	var calls int32
	heights := []uint64{500, 300, 700}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "blocks/latest") {
			w.Write([]byte(`{"epoch_id":1,"phase":"commit","start_height":1,"end_height":2,"difficulty":10,"challenge":"AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA="}`))
			return
		}
		n := atomic.AddInt32(&calls, 1) - 1
		h := heights[len(heights)-1]
		if int(n) < len(heights) {
			h = heights[n]
		}
		fmt.Fprintf(w, `{"block":{"header":{"height":"%d"}}}`, h)
	}))
	defer srv.Close()

	client := chainapi.New(srv.URL, "inj1contract", 5*time.Second)
	c := New(client, zap.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 4*time.Second)
	defer cancel()
	go c.Run(ctx)

	seen := map[uint64]bool{}
	deadline := time.After(3500 * time.Millisecond)
loop:
	for {
		select {
		case obs := <-c.Observations():
			seen[obs.Height] = true
		case <-deadline:
			break loop
		}
	}

	if seen[300] {
		t.Fatal("observed a height lower than a previously observed height")
	}
	if !seen[500] && !seen[700] {
		t.Fatal("expected at least one valid observation")
	}
}

