package pricing

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/mcpwatch/mcpwatch/pkg/event"
)

const perMillion = 1_000_000

// Load reads and validates a rate table from a TOML file.
func Load(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrTableNotFound, path)
		}
		return nil, fmt.Errorf("reading pricing table: %w", err)
	}

	var t Table
	if err := toml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTable, err)
	}

	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

// LoadOrDefault loads the table at path, falling back to the built-in
// table when path is empty or the file does not exist.
func LoadOrDefault(path string) (*Table, error) {
	if path == "" {
		return DefaultTable(), nil
	}
	t, err := Load(path)
	if err != nil {
		if errors.Is(err, ErrTableNotFound) {
			return DefaultTable(), nil
		}
		return nil, err
	}
	return t, nil
}

// Validate checks that every rate in the table is non-negative.
func (t *Table) Validate() error {
	for vendor, models := range t.Models {
		for id, r := range models {
			for _, rate := range []float64{r.Input, r.Output, r.CacheCreate, r.CacheRead, r.Reasoning} {
				if rate < 0 {
					return fmt.Errorf("%w: %s/%s", ErrNegativeRate, vendor, id)
				}
			}
		}
	}
	return nil
}

// Lookup finds the rate for a model identifier. Matching is exact
// first, then by table id prefix so dated releases like
// claude-sonnet-4-20250514 resolve to their base entry.
func (t *Table) Lookup(model string) (Rate, bool) {
	r, _, ok := t.lookup(model)
	return r, ok
}

func (t *Table) lookup(model string) (Rate, string, bool) {
	if model == "" {
		return Rate{}, "", false
	}

	// A vendor/id qualified identifier bypasses the search.
	if vendor, id, found := strings.Cut(model, "/"); found {
		if r, ok := t.Models[vendor][id]; ok {
			return r, id, true
		}
	}

	for _, models := range t.Models {
		if r, ok := models[model]; ok {
			return r, model, true
		}
	}

	// Longest prefix match across all vendors.
	var (
		best    Rate
		bestID  string
		matched bool
	)
	for _, models := range t.Models {
		for id, r := range models {
			if strings.HasPrefix(model, id) && len(id) > len(bestID) {
				best, bestID, matched = r, id, true
			}
		}
	}
	return best, bestID, matched
}

// Cost prices a token delta. Missing models return a zero-cost
// estimate flagged PricingMissing.
func (t *Table) Cost(model string, usage event.TokenDelta) Estimate {
	r, id, ok := t.lookup(model)
	if !ok {
		return Estimate{Model: model, PricingMissing: true}
	}

	reasoningRate := r.Reasoning
	if reasoningRate == 0 {
		reasoningRate = r.Output
	}

	usd := float64(usage.Input)*r.Input/perMillion +
		float64(usage.Output)*r.Output/perMillion +
		float64(usage.CacheCreated)*r.CacheCreate/perMillion +
		float64(usage.CacheRead)*r.CacheRead/perMillion +
		float64(usage.Reasoning)*reasoningRate/perMillion

	return Estimate{USD: usd, Model: model, MatchedID: id}
}
