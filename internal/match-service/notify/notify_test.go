package notify

import (
	"strings"
	"testing"
	"time"
)

// TestTextFormat tests the wire text of both notification kinds.
func TestTextFormat(t *testing.T) {
	msg, err := MatchEvent("m1", map[string]any{"id": "e1", "minute": 15})
	if err != nil {
		t.Fatalf("MatchEvent returned error: %v", err)
	}
	if got := msg.Text(); got != `match_event:m1:{"id":"e1","minute":15}` {
		t.Errorf("Text() = %s", got)
	}
	if got := MatchUpdated("m1").Text(); got != "match_updated:m1" {
		t.Errorf("Text() = %s", got)
	}
}

// TestParse tests that Parse inverts Text and rejects garbage.
func TestParse(t *testing.T) {
	msg, _ := MatchEvent("m1", map[string]string{"note": "a:b"})
	back, err := Parse(msg.Text())
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if back.Kind != KindMatchEvent || back.MatchID != "m1" || !strings.Contains(string(back.Payload), "a:b") {
		t.Errorf("Parse = %+v", back)
	}

	up, err := Parse("match_updated:m2")
	if err != nil || up.Kind != KindMatchUpdated || up.MatchID != "m2" {
		t.Errorf("Parse(match_updated) = %+v, %v", up, err)
	}

	for _, bad := range []string{"", "hello", "match_event:m1", "match_event:m1:{", "score:m1"} {
		if _, err := Parse(bad); err == nil {
			t.Errorf("Parse(%q) should fail", bad)
		}
	}
}

// TestContractRoundTrip tests the conversion used by the Kafka feed.
func TestContractRoundTrip(t *testing.T) {
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	n := MatchUpdated("m9").ToContract(ts)
	if n.Kind != KindMatchUpdated || n.MatchID != "m9" || !n.Ts.Equal(ts) {
		t.Errorf("ToContract = %+v", n)
	}
	back, err := FromContract(n)
	if err != nil || back.MatchID != "m9" {
		t.Errorf("FromContract = %+v, %v", back, err)
	}

	n.Kind = "odds"
	if _, err := FromContract(n); err == nil {
		t.Error("FromContract accepted an unknown kind")
	}
}
