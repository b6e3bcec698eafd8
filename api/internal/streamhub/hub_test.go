package streamhub_test

import (
	"testing"
	"time"

	"github.com/lxp-platform/fabric/api/internal/domain"
	"github.com/lxp-platform/fabric/api/internal/streamhub"
)

func TestSubscribePublishDelivery(t *testing.T) {
	hub := streamhub.New()
	sub, cancel := hub.Subscribe("job-1")
	defer cancel()

	hub.Publish("job-1", domain.Result{JobID: "job-1", Event: domain.EventMessage, Chunk: "hi"})

	select {
	case got := <-sub.Ch:
		if got.Chunk != "hi" {
			t.Errorf("expected chunk 'hi', got %q", got.Chunk)
		}
		if got.Seq != 1 {
			t.Errorf("expected seq 1, got %d", got.Seq)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for chunk")
	}
}

func TestPublishIgnoresUnrelatedFilter(t *testing.T) {
	hub := streamhub.New()
	sub, cancel := hub.Subscribe("job-1")
	defer cancel()

	hub.Publish("job-2", domain.Result{JobID: "job-2", Event: domain.EventMessage, Chunk: "hi"})

	select {
	case got := <-sub.Ch:
		t.Fatalf("unexpected delivery: %+v", got)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestCancelIsIdempotentAndStopsDelivery(t *testing.T) {
	hub := streamhub.New()
	sub, cancel := hub.Subscribe("job-1")
	cancel()
	cancel() // must not panic

	hub.Publish("job-1", domain.Result{JobID: "job-1", Event: domain.EventMessage, Chunk: "hi"})

	select {
	case got, ok := <-sub.Ch:
		if ok {
			t.Fatalf("expected no delivery after cancel, got %+v", got)
		}
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSlowConsumerDropsOldestAndFlagsLag(t *testing.T) {
	hub := streamhub.New()
	sub, cancel := hub.Subscribe("job-1")
	defer cancel()

	// Fill the subscriber's channel well past capacity.
	for i := 0; i < 100; i++ {
		hub.Publish("job-1", domain.Result{JobID: "job-1", Event: domain.EventMessage, Chunk: "x"})
	}

	if !sub.Lag() {
		t.Error("expected subscription to be flagged as lagging")
	}

	// Draining should not block forever and the channel should still be
	// delivering, most-recent-biased, chunks.
	drained := 0
	for {
		select {
		case <-sub.Ch:
			drained++
		default:
			goto done
		}
	}
done:
	if drained == 0 {
		t.Fatal("expected at least some chunks to survive drop-oldest")
	}
}

func TestFinalChunkAfterLagCarriesLagNotice(t *testing.T) {
	hub := streamhub.New()
	sub, cancel := hub.Subscribe("job-1")
	defer cancel()

	for i := 0; i < 100; i++ {
		hub.Publish("job-1", domain.Result{JobID: "job-1", Event: domain.EventMessage, Chunk: "x"})
	}
	hub.Publish("job-1", domain.Result{JobID: "job-1", Event: domain.EventSucceeded, Final: true})

	sawLagNotice := false
	for {
		select {
		case got, ok := <-sub.Ch:
			if !ok {
				goto done
			}
			if got.Event == domain.EventLag {
				sawLagNotice = true
			}
		default:
			goto done
		}
	}
done:
	if !sawLagNotice {
		t.Error("expected a synthesized lag notice after the final chunk")
	}
}
