package internal

import "sort"

// Tally counts occurrences per key.
type Tally map[string]int

// Total returns the sum of all counts.
func (t Tally) Total() int {
	sum := 0
	for _, v := range t {
		sum += v
	}
	return sum
}

// Sorted returns the keys by descending count, ties by name.
func (t Tally) Sorted() []string {
	keys := make([]string, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if t[keys[i]] != t[keys[j]] {
			return t[keys[i]] > t[keys[j]]
		}
		return keys[i] < keys[j]
	})
	return keys
}
