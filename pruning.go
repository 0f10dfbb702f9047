package memory

import (
	"sort"
	"time"
)

// effectiveTTLSeconds resolves an item's TTL: its own override if set,
// else the configured per-kind default, else no expiry (0, false).
func effectiveTTLSeconds(item MemoryItem, retention RetentionConfig) (int64, bool) {
	if item.Metadata.TTLSeconds != nil {
		return *item.Metadata.TTLSeconds, true
	}
	if ttl, ok := retention.TTLSecondsByKind[item.Kind]; ok {
		return ttl, true
	}
	return 0, false
}

// ApplyTTL partitions items into those still live and those expired as of
// now, per their effective TTL, measured from created_at.
// Items with no effective TTL never expire.
func ApplyTTL(items []MemoryItem, retention RetentionConfig, now time.Time) (live, expired []MemoryItem) {
	for _, item := range items {
		ttl, ok := effectiveTTLSeconds(item, retention)
		if !ok {
			live = append(live, item)
			continue
		}
		age := now.Sub(item.Metadata.CreatedAt).Seconds()
		if age >= float64(ttl) {
			expired = append(expired, item)
		} else {
			live = append(live, item)
		}
	}
	return live, expired
}

// PruneByCount keeps the maxCount most recently updated items, discarding
// the rest. Ties broken by UpdatedAt descending, stable for
// equal timestamps so pruning is deterministic given a stable input order.
func PruneByCount(items []MemoryItem, maxCount int) (kept, dropped []MemoryItem) {
	if maxCount <= 0 || len(items) <= maxCount {
		return items, nil
	}

	ordered := make([]MemoryItem, len(items))
	copy(ordered, items)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Metadata.UpdatedAt.After(ordered[j].Metadata.UpdatedAt)
	})

	return ordered[:maxCount], ordered[maxCount:]
}

// MergeDuplicates groups items by content_hash and keeps, within each group,
// the item with the highest salience, ties broken by the most recent
// UpdatedAt. This is exact-duplicate collapse, distinct from the
// similarity-based semantic merge in semanticdedup.go.
func MergeDuplicates(items []MemoryItem) []MemoryItem {
	byHash := make(map[string][]MemoryItem)
	var order []string
	for _, item := range items {
		if _, seen := byHash[item.ContentHash]; !seen {
			order = append(order, item.ContentHash)
		}
		byHash[item.ContentHash] = append(byHash[item.ContentHash], item)
	}

	merged := make([]MemoryItem, 0, len(order))
	for _, hash := range order {
		group := byHash[hash]
		best := group[0]
		for _, candidate := range group[1:] {
			if candidate.Metadata.Salience > best.Metadata.Salience {
				best = candidate
				continue
			}
			if candidate.Metadata.Salience == best.Metadata.Salience &&
				candidate.Metadata.UpdatedAt.After(best.Metadata.UpdatedAt) {
				best = candidate
			}
		}
		merged = append(merged, best)
	}

	return merged
}
