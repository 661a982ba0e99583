// Package pricing converts token counts into dollar cost using a
// per-model rate table loaded from TOML.
package pricing

import "github.com/mcpwatch/mcpwatch/pkg/event"

// Rate holds the per-million-token rates for one model. All values are
// USD per 1,000,000 tokens.
type Rate struct {
	Input       float64 `toml:"input"`
	Output      float64 `toml:"output"`
	CacheCreate float64 `toml:"cache_create"`
	CacheRead   float64 `toml:"cache_read"`

	// Reasoning is optional. When zero, reasoning tokens bill at the
	// output rate.
	Reasoning float64 `toml:"reasoning"`
}

// Metadata describes the rate table itself.
type Metadata struct {
	Version  string `toml:"version"`
	Updated  string `toml:"updated"`
	Currency string `toml:"currency"`
}

// Table is a loaded rate table, keyed vendor then model identifier.
type Table struct {
	Metadata Metadata                   `toml:"metadata"`
	Models   map[string]map[string]Rate `toml:"models"`
}

// Estimate is the cost of a token delta under a table.
type Estimate struct {
	// USD is the computed cost. Zero when PricingMissing is set.
	USD float64

	// PricingMissing reports that the model had no table entry. The
	// caller must surface this rather than silently billing zero.
	PricingMissing bool

	// Model is the model identifier the estimate was computed for.
	Model string

	// MatchedID is the table entry that matched, which may be a
	// prefix of Model when identifiers carry release-date suffixes.
	MatchedID string
}

// Calculator resolves token deltas to dollar cost.
type Calculator interface {
	// Cost prices a token delta for a model. A model absent from the
	// table yields a zero-cost estimate with PricingMissing set,
	// never an error.
	Cost(model string, usage event.TokenDelta) Estimate

	// Lookup returns the rate for a model and whether it was found.
	Lookup(model string) (Rate, bool)
}
