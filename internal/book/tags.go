package book

import (
	"slices"
	"strings"
)

// AddTag appends the trimmed candidate to current unless it is empty or
// already present. Matching is exact and case-sensitive. current is never
// modified.
func AddTag(current []string, candidate string) []string {
	tag := strings.TrimSpace(candidate)
	if tag == "" || slices.Contains(current, tag) {
		return current
	}
	out := make([]string, 0, len(current)+1)
	out = append(out, current...)
	return append(out, tag)
}

// RemoveTag drops the first exact match of tag from current.
func RemoveTag(current []string, tag string) []string {
	i := slices.Index(current, tag)
	if i < 0 {
		return current
	}
	out := make([]string, 0, len(current)-1)
	out = append(out, current[:i]...)
	return append(out, current[i+1:]...)
}

// NormalizeTags folds AddTag over raw, producing a trimmed, duplicate-free
// list in first-seen order.
func NormalizeTags(raw []string) []string {
	tags := []string{}
	for _, t := range raw {
		tags = AddTag(tags, t)
	}
	return tags
}
