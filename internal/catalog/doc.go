// Package catalog resolves descriptive tags for acquired media by querying
// a music catalog search API.
//
// Lookups authenticate via client credentials, are rate limited, and walk
// a market fallback chain (preferred, none, then a fixed list) until a
// market yields candidates. Candidates are scored against the normalized
// artist/title/duration of the source item; anything below the confidence
// threshold falls back to heuristically-split tags. Lookup failures are
// swallowed, never propagated.
package catalog
