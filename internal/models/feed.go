package models

import "time"

// FeedSnapshot is one complete download of the AlertaBlu situation feed.
// Snapshots replace each other wholesale; there is no incremental merge.
type FeedSnapshot struct {
	Records   []AlertRecord `json:"dados"`
	UpdatedAt time.Time     `json:"datahoraAtualizacao"`

	// Raw is the exact body received from upstream, kept so the proxy can
	// pass fields through that the model does not declare.
	Raw []byte `json:"-"`
}

// AlertRecord is one advisory issued by the civil defense, covering one or
// more regions with a condition each. Field names follow the upstream JSON.
type AlertRecord struct {
	ID             int            `json:"id"`
	Type           string         `json:"tipo"`
	TypeLabel      string         `json:"tipoNome"`
	Description    string         `json:"descricao"`
	CreatedAt      time.Time      `json:"create_data"`
	RegionStatuses []RegionStatus `json:"sitregioes"`
}

type RegionStatus struct {
	Region    Region    `json:"regiao"`
	Condition Condition `json:"condicao"`
}

type Region struct {
	ID            int      `json:"id"`
	Name          string   `json:"nome"`
	Neighborhoods []string `json:"bairros"`
}

// Condition is a severity rating. Level runs 1 (normal) to 4 (alert);
// higher is more severe. The color fields are display hints passed through
// unchanged.
type Condition struct {
	ID              int    `json:"id"`
	Level           int    `json:"nivel"`
	Label           string `json:"condicao"`
	BackgroundColor string `json:"cor_fundo"`
	TextColor       string `json:"cor_fonte"`
}

// MaxLevel returns the highest condition level across the record's region
// statuses, or 0 when the record carries none.
func (r AlertRecord) MaxLevel() int {
	max := 0
	for _, rs := range r.RegionStatuses {
		if rs.Condition.Level > max {
			max = rs.Condition.Level
		}
	}
	return max
}
