package httpapi

import "polywatch/internal/domain"

// EventJSON is the API representation of an event, flattened for UI
// consumption and annotated with its category.
type EventJSON struct {
	ID        string       `json:"id"`
	Slug      string       `json:"slug"`
	Title     string       `json:"title"`
	URL       string       `json:"url"`
	Category  string       `json:"category,omitempty"`
	Volume    float64      `json:"volume"`
	Liquidity float64      `json:"liquidity"`
	CreatedAt string       `json:"createdAt,omitempty"`
	EndDate   string       `json:"endDate,omitempty"`
	Image     string       `json:"image,omitempty"`
	Markets   []MarketJSON `json:"markets,omitempty"`
}

// MarketJSON is the API representation of a sub-market.
type MarketJSON struct {
	Question string    `json:"question"`
	Outcomes []string  `json:"outcomes,omitempty"`
	Prices   []float64 `json:"prices,omitempty"`
	Volume   float64   `json:"volume"`
}

// WatchlistEntryJSON pairs a watched slug with its last-known snapshot.
// Event is null for unresolved entries.
type WatchlistEntryJSON struct {
	Slug  string     `json:"slug"`
	Event *EventJSON `json:"event"`
}

func eventJSON(e *domain.Event, categorize func(*domain.Event) string) EventJSON {
	out := EventJSON{
		ID:        e.ID,
		Slug:      e.Slug,
		Title:     e.Title,
		URL:       e.URL(),
		Volume:    float64(e.Volume),
		Liquidity: float64(e.Liquidity),
		CreatedAt: e.CreatedAt,
		EndDate:   e.EndDate,
		Image:     e.Image,
	}
	if categorize != nil {
		out.Category = categorize(e)
	}
	for i := range e.Markets {
		m := &e.Markets[i]
		out.Markets = append(out.Markets, MarketJSON{
			Question: m.Question,
			Outcomes: m.Outcomes,
			Prices:   m.OutcomePrices.Floats(),
			Volume:   float64(m.Volume),
		})
	}
	return out
}

func toEventJSON(events []domain.Event, categorize func(*domain.Event) string) []EventJSON {
	out := make([]EventJSON, len(events))
	for i := range events {
		out[i] = eventJSON(&events[i], categorize)
	}
	return out
}
