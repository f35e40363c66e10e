// Package filter narrows and orders alert records for display.
package filter

import (
	"sort"
	"strings"

	"github.com/blumetech/alertablu-dash/internal/models"
)

// Criteria is the multi-field predicate applied to the raw record list.
// Every empty set means "no restriction" for that field; active clauses are
// ANDed together.
type Criteria struct {
	AlertTypes      []string
	Regions         []string
	Neighborhoods   []string
	ConditionLevels []int
	SearchText      string
}

// IsZero reports whether no clause is active.
func (c Criteria) IsZero() bool {
	return len(c.AlertTypes) == 0 &&
		len(c.Regions) == 0 &&
		len(c.Neighborhoods) == 0 &&
		len(c.ConditionLevels) == 0 &&
		c.SearchText == ""
}

// Apply returns the records matching the criteria, preserving input order.
// With zero criteria the input is returned unchanged.
func Apply(records []models.AlertRecord, criteria Criteria) []models.AlertRecord {
	if criteria.IsZero() {
		return records
	}

	search := Normalize(criteria.SearchText)
	regions := normalizeSet(criteria.Regions)
	neighborhoods := normalizeSet(criteria.Neighborhoods)
	types := make(map[string]bool, len(criteria.AlertTypes))
	for _, t := range criteria.AlertTypes {
		types[t] = true
	}
	levels := make(map[int]bool, len(criteria.ConditionLevels))
	for _, l := range criteria.ConditionLevels {
		levels[l] = true
	}

	matched := make([]models.AlertRecord, 0, len(records))
	for _, record := range records {
		if search != "" && !matchesSearch(record, search) {
			continue
		}
		if len(types) > 0 && !types[record.Type] {
			continue
		}
		if !matchesRegionStatus(record, regions, neighborhoods, levels) {
			continue
		}
		matched = append(matched, record)
	}
	return matched
}

// matchesRegionStatus implements the combined existential check: one region
// status must simultaneously satisfy every active sub-filter. A record with
// Region A at level 1 and Region B at level 4 does not match a filter for
// (Region A, level 4).
func matchesRegionStatus(record models.AlertRecord, regions, neighborhoods map[string]bool, levels map[int]bool) bool {
	if len(regions) == 0 && len(neighborhoods) == 0 && len(levels) == 0 {
		return true
	}

	for _, rs := range record.RegionStatuses {
		if len(regions) > 0 && !regions[Normalize(rs.Region.Name)] {
			continue
		}
		if len(levels) > 0 && !levels[rs.Condition.Level] {
			continue
		}
		if len(neighborhoods) > 0 && !containsAny(rs.Region.Neighborhoods, neighborhoods) {
			continue
		}
		return true
	}
	return false
}

func matchesSearch(record models.AlertRecord, search string) bool {
	if strings.Contains(Normalize(record.Description), search) {
		return true
	}
	for _, rs := range record.RegionStatuses {
		if strings.Contains(Normalize(rs.Region.Name), search) {
			return true
		}
		for _, b := range rs.Region.Neighborhoods {
			if strings.Contains(Normalize(b), search) {
				return true
			}
		}
	}
	return false
}

func containsAny(names []string, wanted map[string]bool) bool {
	for _, n := range names {
		if wanted[Normalize(n)] {
			return true
		}
	}
	return false
}

func normalizeSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[Normalize(v)] = true
	}
	return set
}

// Sort orders records for display: records touching the home neighborhood
// first (when one is set), then by maximum condition level descending, then
// by creation time newest first. The sort is stable; records without region
// statuses rank as level 0.
func Sort(records []models.AlertRecord, homeNeighborhood string) []models.AlertRecord {
	sorted := make([]models.AlertRecord, len(records))
	copy(sorted, records)

	home := Normalize(homeNeighborhood)
	touchesHome := func(r models.AlertRecord) bool {
		if home == "" {
			return false
		}
		for _, rs := range r.RegionStatuses {
			for _, b := range rs.Region.Neighborhoods {
				if Normalize(b) == home {
					return true
				}
			}
		}
		return false
	}

	sort.SliceStable(sorted, func(i, j int) bool {
		hi, hj := touchesHome(sorted[i]), touchesHome(sorted[j])
		if hi != hj {
			return hi
		}
		li, lj := sorted[i].MaxLevel(), sorted[j].MaxLevel()
		if li != lj {
			return li > lj
		}
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})
	return sorted
}
