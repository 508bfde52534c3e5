package metrics_test

import (
	"strings"
	"testing"
	"time"

	"github.com/hilthontt/forum/internal/infrastructure/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCounters(t *testing.T) {
	m := metrics.New()

	m.PublishHook("rooms")
	m.PublishHook("rooms")
	m.VoteOperation("up", "applied")
	m.RemoteRequest("GET", "/rooms", 200, 10*time.Millisecond)
	m.RemoteRequest("GET", "/rooms", 0, time.Millisecond)

	expected := `
# HELP forum_channel_publishes_total Snapshots published per broadcast channel.
# TYPE forum_channel_publishes_total counter
forum_channel_publishes_total{channel="rooms"} 2
`
	if err := testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "forum_channel_publishes_total"); err != nil {
		t.Fatalf("publishes: %v", err)
	}

	got, err := testutil.GatherAndCount(m.Registry(), "forum_remote_requests_total")
	if err != nil {
		t.Fatalf("GatherAndCount: %v", err)
	}
	if got != 2 {
		t.Fatalf("remote request series: got %d, want 2", got)
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *metrics.Metrics
	m.PublishHook("rooms")
	m.VoteOperation("down", "rejected")
	m.StaleDiscard("detail")
	m.RemoteRequest("GET", "/rooms", 500, time.Second)
	if m.Registry() != nil {
		t.Fatalf("nil metrics should have no registry")
	}
}
