package store

import "sort"

// Diff returns required minus installed, ascending lexicographic. Install
// order therefore never depends on remote directory enumeration order.
func Diff(required []string, installed []string) []string {
	have := make(map[string]struct{}, len(installed))
	for _, rel := range installed {
		have[rel] = struct{}{}
	}
	missing := make([]string, 0, len(required))
	for _, rel := range required {
		if _, ok := have[rel]; ok {
			continue
		}
		missing = append(missing, rel)
	}
	sort.Strings(missing)
	return missing
}
