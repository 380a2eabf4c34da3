// Package domain defines the core types shared across the polywatch
// pipeline: market events and their sub-markets as returned by the
// Gamma API, with tolerant JSON decoding for the API's loose typing.
package domain

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// FloatString decodes a numeric field that the Gamma API returns
// inconsistently: sometimes a JSON number, sometimes a quoted string,
// sometimes null or absent. Unparseable or missing values decode to 0.
type FloatString float64

// UnmarshalJSON implements json.Unmarshaler.
func (f *FloatString) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" || s == `""` || s == "" {
		*f = 0
		return nil
	}
	s = strings.Trim(s, `"`)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		*f = 0
		return nil
	}
	*f = FloatString(v)
	return nil
}

// MarshalJSON implements json.Marshaler, always emitting a number.
func (f FloatString) MarshalJSON() ([]byte, error) {
	return json.Marshal(float64(f))
}

// StringList decodes a field that may arrive either as a real JSON array
// of strings or as a string containing JSON, e.g. `"[\"Yes\", \"No\"]"`.
// The Gamma API uses the stringified form for market outcomes and prices.
type StringList []string

// UnmarshalJSON implements json.Unmarshaler.
func (l *StringList) UnmarshalJSON(data []byte) error {
	var direct []string
	if err := json.Unmarshal(data, &direct); err == nil {
		*l = direct
		return nil
	}
	var nested string
	if err := json.Unmarshal(data, &nested); err != nil {
		*l = nil
		return nil
	}
	var inner []string
	if err := json.Unmarshal([]byte(nested), &inner); err != nil {
		*l = nil
		return nil
	}
	*l = inner
	return nil
}

// Floats converts the list to float64 values. Unparseable entries become 0.
func (l StringList) Floats() []float64 {
	if len(l) == 0 {
		return nil
	}
	out := make([]float64, len(l))
	for i, s := range l {
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err == nil {
			out[i] = v
		}
	}
	return out
}

// Market is a single sub-market of an event, carrying its question and the
// outcome-price vector.
type Market struct {
	ID            string      `json:"id,omitempty"`
	Question      string      `json:"question"`
	Slug          string      `json:"slug,omitempty"`
	Outcomes      StringList  `json:"outcomes,omitempty"`
	OutcomePrices StringList  `json:"outcomePrices,omitempty"`
	Volume        FloatString `json:"volume,omitempty"`
}

// Event is one trackable market event from the feed, uniquely identified
// within the feed by ID. Events are immutable snapshots; a fresh fetch
// fully replaces any cached copy.
type Event struct {
	ID        string      `json:"id"`
	Slug      string      `json:"slug"`
	Title     string      `json:"title"`
	Volume    FloatString `json:"volume,omitempty"`
	Liquidity FloatString `json:"liquidity,omitempty"`
	CreatedAt string      `json:"createdAt,omitempty"`
	StartDate string      `json:"startDate,omitempty"`
	EndDate   string      `json:"endDate,omitempty"`
	Image     string      `json:"image,omitempty"`
	Markets   []Market    `json:"markets,omitempty"`
}

// CreatedTime parses the event's creation timestamp, falling back to the
// start date when createdAt is absent. The second return value is false
// when neither field parses.
func (e *Event) CreatedTime() (time.Time, bool) {
	for _, s := range []string{e.CreatedAt, e.StartDate} {
		if s == "" {
			continue
		}
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			return t, true
		}
		// Some endpoints omit the timezone suffix.
		if t, err := time.Parse("2006-01-02T15:04:05", s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// URL returns the public market page for the event.
func (e *Event) URL() string {
	return "https://polymarket.com/event/" + e.Slug
}
