package domain

import (
	"encoding/json"
	"testing"
	"time"
)

func TestEventDecodeStringifiedFields(t *testing.T) {
	// Volume as a quoted string, outcome prices as JSON-inside-a-string:
	// both forms appear in real Gamma responses.
	raw := `{
		"id": "90210",
		"slug": "will-it-happen",
		"title": "Will it happen?",
		"volume": "12345.67",
		"createdAt": "2026-08-20T14:30:00Z",
		"markets": [
			{
				"question": "Will it happen?",
				"outcomes": "[\"Yes\", \"No\"]",
				"outcomePrices": "[\"0.65\", \"0.35\"]",
				"volume": 999
			}
		]
	}`

	var e Event
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if float64(e.Volume) != 12345.67 {
		t.Errorf("Volume = %v, want 12345.67", float64(e.Volume))
	}
	if len(e.Markets) != 1 {
		t.Fatalf("got %d markets, want 1", len(e.Markets))
	}
	m := e.Markets[0]
	if len(m.Outcomes) != 2 || m.Outcomes[0] != "Yes" || m.Outcomes[1] != "No" {
		t.Errorf("Outcomes = %v, want [Yes No]", m.Outcomes)
	}
	prices := m.OutcomePrices.Floats()
	if len(prices) != 2 || prices[0] != 0.65 || prices[1] != 0.35 {
		t.Errorf("OutcomePrices.Floats() = %v, want [0.65 0.35]", prices)
	}
	if float64(m.Volume) != 999 {
		t.Errorf("market Volume = %v, want 999", float64(m.Volume))
	}
}

func TestEventDecodeMissingVolume(t *testing.T) {
	var e Event
	if err := json.Unmarshal([]byte(`{"id":"1","slug":"s","title":"t"}`), &e); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if float64(e.Volume) != 0 {
		t.Errorf("missing volume should decode to 0, got %v", float64(e.Volume))
	}

	// Garbage volume coerces to 0 rather than failing the decode.
	if err := json.Unmarshal([]byte(`{"id":"2","volume":"n/a"}`), &e); err != nil {
		t.Fatalf("unmarshal with bad volume: %v", err)
	}
	if float64(e.Volume) != 0 {
		t.Errorf("bad volume should coerce to 0, got %v", float64(e.Volume))
	}
}

func TestCreatedTime(t *testing.T) {
	e := Event{CreatedAt: "2026-08-20T14:30:00Z"}
	got, ok := e.CreatedTime()
	if !ok {
		t.Fatal("CreatedTime returned not-ok for valid createdAt")
	}
	want := time.Date(2026, 8, 20, 14, 30, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("CreatedTime = %v, want %v", got, want)
	}

	// Falls back to startDate.
	e = Event{StartDate: "2026-08-19T00:00:00Z"}
	if _, ok := e.CreatedTime(); !ok {
		t.Error("CreatedTime should fall back to startDate")
	}

	// Neither field present.
	e = Event{}
	if _, ok := e.CreatedTime(); ok {
		t.Error("CreatedTime should return not-ok with no timestamps")
	}
}

func TestEventURL(t *testing.T) {
	e := Event{Slug: "fed-rate-cut-september"}
	want := "https://polymarket.com/event/fed-rate-cut-september"
	if got := e.URL(); got != want {
		t.Errorf("URL = %q, want %q", got, want)
	}
}
