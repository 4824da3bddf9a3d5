package core

import (
	"sort"
	"strings"
)

// ApplyFilter returns the records matching every non-empty criterion, in
// input order. District and school match exactly; the search query matches
// a case-insensitive substring of the name or the phone number.
//
// The result is never nil, so "nothing matched" is an empty slice.
func ApplyFilter(records []StudentRecord, criteria FilterCriteria) []StudentRecord {
	query := strings.ToLower(criteria.SearchQuery)

	matched := make([]StudentRecord, 0, len(records))
	for _, rec := range records {
		if criteria.District != "" && rec.District != criteria.District {
			continue
		}
		if criteria.School != "" && rec.SchoolName != criteria.School {
			continue
		}
		if query != "" &&
			!strings.Contains(strings.ToLower(rec.Name), query) &&
			!strings.Contains(strings.ToLower(rec.PhoneNumber), query) {
			continue
		}
		matched = append(matched, rec)
	}
	return matched
}

// DistinctDistricts returns the set of districts present in records.
func DistinctDistricts(records []StudentRecord) []string {
	return distinct(records, func(s StudentRecord) string { return s.District })
}

// DistinctSchools returns the set of school names present in records.
func DistinctSchools(records []StudentRecord) []string {
	return distinct(records, func(s StudentRecord) string { return s.SchoolName })
}

// DistinctStates returns the set of states present in records.
func DistinctStates(records []StudentRecord) []string {
	return distinct(records, func(s StudentRecord) string { return s.State })
}

// BuildFilterOptions collects every filter vocabulary at once.
func BuildFilterOptions(records []StudentRecord) FilterOptions {
	return FilterOptions{
		Districts: DistinctDistricts(records),
		Schools:   DistinctSchools(records),
		States:    DistinctStates(records),
	}
}

// distinct is a set; callers must not rely on order. It is sorted so that
// responses are stable. Empty values are not filter options.
func distinct(records []StudentRecord, key func(StudentRecord) string) []string {
	seen := make(map[string]struct{})
	for _, rec := range records {
		if v := key(rec); v != "" {
			seen[v] = struct{}{}
		}
	}

	values := make([]string, 0, len(seen))
	for v := range seen {
		values = append(values, v)
	}
	sort.Strings(values)
	return values
}
