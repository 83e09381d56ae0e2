// Package item defines announcements and the set operations used to
// detect new ones between runs.
package item

// Item is a single announcement. URL is the identity key: two items with
// the same URL are the same announcement even if the title changed.
type Item struct {
	Title  string `json:"title"`
	URL    string `json:"url"`
	Source string `json:"source"`
}

const (
	// DefaultMaxItems is the length above which Retain trims a set.
	DefaultMaxItems = 20
	// DefaultKeepItems is how many items Retain keeps once trimming.
	DefaultKeepItems = 10
)

// URLs returns the set of URLs present in items.
func URLs(items []Item) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, it := range items {
		set[it.URL] = struct{}{}
	}
	return set
}

// Diff returns the items of current whose URL does not appear in stored,
// in current's order.
func Diff(current, stored []Item) []Item {
	known := URLs(stored)

	var fresh []Item
	for _, it := range current {
		if _, ok := known[it.URL]; !ok {
			fresh = append(fresh, it)
		}
	}
	return fresh
}

// Merge builds the set to persist after a run: all of current first, then
// the stored items whose URL was not re-seen in current.
func Merge(current, stored []Item) []Item {
	seen := URLs(current)

	out := make([]Item, 0, len(current)+len(stored))
	out = append(out, current...)
	for _, it := range stored {
		if _, ok := seen[it.URL]; !ok {
			out = append(out, it)
		}
	}
	return out
}

// Retain applies the retention cap: when items holds more than maxItems
// entries only the first keep are returned. Items past keep are dropped
// even if they have not been seen again yet.
func Retain(items []Item, maxItems, keep int) []Item {
	if maxItems <= 0 || keep <= 0 || len(items) <= maxItems {
		return items
	}
	if keep > len(items) {
		keep = len(items)
	}
	return items[:keep]
}

// TruncateRunes cuts s to at most n runes.
func TruncateRunes(s string, n int) string {
	if n <= 0 || s == "" {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
