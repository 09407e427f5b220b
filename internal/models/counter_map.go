package models

// CounterMap is a category-label → count document, persisted as a JSON column.
type CounterMap map[string]int64

// Merge adds every count in other into m: matching keys are summed, new keys
// are taken as-is. Merging never replaces existing buckets.
func (m CounterMap) Merge(other CounterMap) CounterMap {
	if m == nil {
		m = CounterMap{}
	}
	for k, v := range other {
		m[k] += v
	}
	return m
}

// Increment bumps a single bucket, treating the empty label as "unknown".
func (m CounterMap) Increment(label string) {
	if label == "" {
		label = "unknown"
	}
	m[label]++
}

// Total returns the sum of all buckets.
func (m CounterMap) Total() int64 {
	var n int64
	for _, v := range m {
		n += v
	}
	return n
}

// Clone returns an independent copy of the map.
func (m CounterMap) Clone() CounterMap {
	out := make(CounterMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
