package models

import "time"

// AlertInfo is the slice of an AlertRecord that matters to a single
// neighborhood once the record has been attributed to it.
type AlertInfo struct {
	Type        string    `json:"tipo"`
	TypeLabel   string    `json:"tipoNome"`
	Description string    `json:"descricao"`
	CreatedAt   time.Time `json:"create_data"`
}

// NeighborhoodStatus is the derived, most-severe view of one neighborhood
// across every record in a snapshot. It is computed on demand and never
// persisted.
type NeighborhoodStatus struct {
	Name      string      `json:"nome"`
	Condition Condition   `json:"condicao"`
	Alerts    []AlertInfo `json:"alertas"`
}
