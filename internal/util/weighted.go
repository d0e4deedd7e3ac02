// Package util provides shared helper utilities.
//
//revive:disable:var-naming // Package name follows project convention.
package util

import "math/rand"

// PickWeighted selects an index based on integer weights.
func PickWeighted(r *rand.Rand, weights []int) int {
	total := 0
	for _, w := range weights {
		if w > 0 {
			total += w
		}
	}
	if total == 0 {
		return r.Intn(len(weights))
	}
	roll := r.Intn(total)
	sum := 0
	for i, w := range weights {
		if w <= 0 {
			continue
		}
		sum += w
		if roll < sum {
			return i
		}
	}
	return len(weights) - 1
}

// Chance returns true with a given percent chance.
func Chance(r *rand.Rand, percent int) bool {
	if percent <= 0 {
		return false
	}
	if percent >= 100 {
		return true
	}
	return r.Intn(100) < percent
}

// Pick returns a uniformly chosen element of items.
func Pick[T any](r *rand.Rand, items []T) T {
	return items[r.Intn(len(items))]
}

// Sample returns k distinct elements of items in random order.
// k is clamped to [0, len(items)].
func Sample[T any](r *rand.Rand, items []T, k int) []T {
	if k > len(items) {
		k = len(items)
	}
	if k < 0 {
		k = 0
	}
	out := make([]T, 0, k)
	for _, idx := range r.Perm(len(items))[:k] {
		out = append(out, items[idx])
	}
	return out
}

// RandIntRange returns a random int in [min, max]. It returns min when the
// range is empty.
func RandIntRange(r *rand.Rand, min int, max int) int {
	if max <= min {
		return min
	}
	return min + r.Intn(max-min+1)
}
