// Package category classifies market events into display categories
// using an ordered keyword table. Rules are evaluated in order and the
// first match wins, so more specific categories should be listed first;
// anything unmatched falls into the catch-all category.
package category

import (
	"strings"

	"polywatch/internal/domain"
)

// CatchAll is the category assigned when no rule matches.
const CatchAll = "other"

// Rule maps a category name to the keywords that select it.
type Rule struct {
	Name     string
	Keywords []string
}

// Classifier evaluates an ordered rule list against event text.
type Classifier struct {
	rules []Rule
}

// NewClassifier creates a Classifier from the given ordered rules. Nil or
// empty rules fall back to DefaultRules. Matching is case-insensitive:
// single-word keywords match whole words only (so "ai" does not match
// "rain"), multi-word keywords match as substrings.
func NewClassifier(rules []Rule) *Classifier {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	// Lowercase keywords once up front.
	lowered := make([]Rule, len(rules))
	for i, r := range rules {
		kws := make([]string, len(r.Keywords))
		for j, kw := range r.Keywords {
			kws[j] = strings.ToLower(kw)
		}
		lowered[i] = Rule{Name: r.Name, Keywords: kws}
	}
	return &Classifier{rules: lowered}
}

// Categorize returns the category of an event, matching its title and
// market questions against the rule list in order.
func (c *Classifier) Categorize(e *domain.Event) string {
	var b strings.Builder
	b.WriteString(e.Title)
	for i := range e.Markets {
		b.WriteByte(' ')
		b.WriteString(e.Markets[i].Question)
	}
	searchable := strings.ToLower(b.String())
	words := tokenize(searchable)

	for _, r := range c.rules {
		for _, kw := range r.Keywords {
			if strings.ContainsAny(kw, " .&") {
				if strings.Contains(searchable, kw) {
					return r.Name
				}
			} else if words[kw] {
				return r.Name
			}
		}
	}
	return CatchAll
}

// tokenize splits lowercased text into a word set, stripping surrounding
// punctuation so "bitcoin," matches the keyword "bitcoin".
func tokenize(s string) map[string]bool {
	words := make(map[string]bool)
	for _, f := range strings.Fields(s) {
		f = strings.Trim(f, ".,!?:;()[]\"'$%")
		if f != "" {
			words[f] = true
		}
	}
	return words
}

// Categories returns the rule names in evaluation order, with the
// catch-all appended.
func (c *Classifier) Categories() []string {
	names := make([]string, 0, len(c.rules)+1)
	for _, r := range c.rules {
		names = append(names, r.Name)
	}
	return append(names, CatchAll)
}

// DefaultRules returns the built-in category table. The config file can
// replace it wholesale.
func DefaultRules() []Rule {
	return []Rule{
		{Name: "crypto", Keywords: []string{
			"btc", "bitcoin", "eth", "ethereum", "crypto", "solana", "xrp",
			"blockchain", "defi", "nft", "token", "coin", "doge", "bnb",
		}},
		{Name: "politics", Keywords: []string{
			"election", "president", "senate", "congress", "vote", "trump",
			"political", "government", "democrat", "republican", "governor",
		}},
		{Name: "sports", Keywords: []string{
			"nfl", "nba", "mlb", "nhl", "football", "basketball", "baseball",
			"hockey", "soccer", "vs", "championship", "super bowl",
			"ufc", "boxing",
		}},
		{Name: "finance", Keywords: []string{
			"stock", "fed", "rate", "inflation", "gdp", "economy", "treasury",
			"recession", "s&p", "nasdaq", "dow",
		}},
		{Name: "tech", Keywords: []string{
			"ai", "apple", "google", "meta", "tesla", "microsoft", "amazon",
			"software", "nvidia", "openai",
		}},
		{Name: "entertainment", Keywords: []string{
			"movie", "oscar", "grammy", "emmy", "celebrity", "actor", "music",
			"album", "box office",
		}},
	}
}
