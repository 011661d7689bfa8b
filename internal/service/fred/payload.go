package fred

import "EquityLens/internal/domain/models"

// Observations is the series observations response. FRED reports values as
// strings and uses "." for missing observations.
type Observations struct {
	SeriesID     string `json:"-"`
	Observations []struct {
		Date  string `json:"date"`
		Value string `json:"value"`
	} `json:"observations"`
}

func (*Observations) Source() string            { return "fred" }
func (*Observations) Category() models.Category { return models.CategoryEconomic }
