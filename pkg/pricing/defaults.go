package pricing

// DefaultTable returns the built-in rate table, used when no external
// TOML table is configured. Rates are USD per million tokens.
func DefaultTable() *Table {
	return &Table{
		Metadata: Metadata{
			Version:  "1.0.0",
			Updated:  "2026-08-01",
			Currency: "USD",
		},
		Models: map[string]map[string]Rate{
			"anthropic": {
				"claude-opus-4": {
					Input:       15.0,
					Output:      75.0,
					CacheCreate: 18.75,
					CacheRead:   1.50,
				},
				"claude-sonnet-4": {
					Input:       3.0,
					Output:      15.0,
					CacheCreate: 3.75,
					CacheRead:   0.30,
				},
				"claude-haiku-3-5": {
					Input:       0.80,
					Output:      4.0,
					CacheCreate: 1.0,
					CacheRead:   0.08,
				},
			},
			"openai": {
				"gpt-5": {
					Input:     1.25,
					Output:    10.0,
					CacheRead: 0.125,
				},
				"gpt-4.1": {
					Input:     2.0,
					Output:    8.0,
					CacheRead: 0.50,
				},
				"o4-mini": {
					Input:     1.10,
					Output:    4.40,
					CacheRead: 0.275,
				},
			},
			"google": {
				"gemini-2.5-pro": {
					Input:     1.25,
					Output:    10.0,
					CacheRead: 0.31,
				},
				"gemini-2.5-flash": {
					Input:     0.30,
					Output:    2.50,
					CacheRead: 0.075,
				},
			},
		},
	}
}
