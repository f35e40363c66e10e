// Package aggregate turns a flat feed snapshot into the per-neighborhood
// situation view shown on the dashboard.
package aggregate

import (
	"sort"

	"github.com/blumetech/alertablu-dash/internal/models"
)

// Aggregate maps each neighborhood mentioned anywhere in the snapshot to its
// most severe condition and every alert touching it.
//
// Records are walked in snapshot order. A neighborhood's condition is set on
// first sight and replaced only by a strictly higher level afterwards, so
// ties keep the first-assigned condition and output is deterministic for a
// given input ordering. Alert infos are appended unconditionally, in
// encounter order. Neighborhoods absent from every record get no entry.
func Aggregate(snapshot *models.FeedSnapshot) map[string]models.NeighborhoodStatus {
	statuses := make(map[string]models.NeighborhoodStatus)
	if snapshot == nil {
		return statuses
	}

	for _, record := range snapshot.Records {
		info := models.AlertInfo{
			Type:        record.Type,
			TypeLabel:   record.TypeLabel,
			Description: record.Description,
			CreatedAt:   record.CreatedAt,
		}

		for _, rs := range record.RegionStatuses {
			for _, name := range rs.Region.Neighborhoods {
				current, seen := statuses[name]
				if !seen {
					statuses[name] = models.NeighborhoodStatus{
						Name:      name,
						Condition: rs.Condition,
						Alerts:    []models.AlertInfo{info},
					}
					continue
				}

				if rs.Condition.Level > current.Condition.Level {
					current.Condition = rs.Condition
				}
				current.Alerts = append(current.Alerts, info)
				statuses[name] = current
			}
		}
	}

	return statuses
}

// SortedList flattens an aggregation into a list ordered by condition level
// descending, then by neighborhood name, matching the dashboard's default
// ordering.
func SortedList(statuses map[string]models.NeighborhoodStatus) []models.NeighborhoodStatus {
	list := make([]models.NeighborhoodStatus, 0, len(statuses))
	for _, s := range statuses {
		list = append(list, s)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].Condition.Level != list[j].Condition.Level {
			return list[i].Condition.Level > list[j].Condition.Level
		}
		return list[i].Name < list[j].Name
	})
	return list
}
