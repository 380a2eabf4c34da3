package category

import (
	"testing"

	"polywatch/internal/domain"
)

func TestCategorizeDefaultRules(t *testing.T) {
	c := NewClassifier(nil)

	cases := []struct {
		title string
		want  string
	}{
		{"Will Bitcoin hit $200k by December?", "crypto"},
		{"Who wins the presidential election?", "politics"},
		{"Super Bowl champion 2027", "sports"},
		{"Fed rate cut in September?", "finance"},
		{"Will OpenAI release GPT-6 this year?", "tech"},
		{"Best Picture Oscar winner", "entertainment"},
		{"Will it rain in Paris tomorrow?", "other"},
	}
	for _, tc := range cases {
		e := domain.Event{Title: tc.title}
		if got := c.Categorize(&e); got != tc.want {
			t.Errorf("Categorize(%q) = %q, want %q", tc.title, got, tc.want)
		}
	}
}

func TestCategorizeFirstMatchWins(t *testing.T) {
	// "Bitcoin election" matches both crypto and politics; crypto is
	// listed first in the default table, so it wins.
	c := NewClassifier(nil)
	e := domain.Event{Title: "Bitcoin price after the election"}
	if got := c.Categorize(&e); got != "crypto" {
		t.Errorf("Categorize = %q, want crypto (first rule in order)", got)
	}

	// Reversed rule order flips the result: the table is prioritized.
	c = NewClassifier([]Rule{
		{Name: "politics", Keywords: []string{"election"}},
		{Name: "crypto", Keywords: []string{"bitcoin"}},
	})
	if got := c.Categorize(&e); got != "politics" {
		t.Errorf("Categorize with reversed rules = %q, want politics", got)
	}
}

func TestCategorizeSearchesMarketQuestions(t *testing.T) {
	c := NewClassifier(nil)
	e := domain.Event{
		Title: "Season outcome",
		Markets: []domain.Market{
			{Question: "Will the NBA finals go to game 7?"},
		},
	}
	if got := c.Categorize(&e); got != "sports" {
		t.Errorf("Categorize = %q, want sports (matched in market question)", got)
	}
}

func TestCategorizeCaseInsensitive(t *testing.T) {
	c := NewClassifier([]Rule{{Name: "crypto", Keywords: []string{"BiTcOiN"}}})
	e := domain.Event{Title: "BITCOIN above 100k"}
	if got := c.Categorize(&e); got != "crypto" {
		t.Errorf("Categorize = %q, want crypto", got)
	}
}

func TestCategories(t *testing.T) {
	c := NewClassifier([]Rule{
		{Name: "a", Keywords: []string{"x"}},
		{Name: "b", Keywords: []string{"y"}},
	})
	got := c.Categories()
	if len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != CatchAll {
		t.Errorf("Categories = %v, want [a b other]", got)
	}
}
