package edgar

import "EquityLens/internal/domain/models"

// Raw payload variants as EDGAR returns them.

// FactUnit is one reported XBRL data point.
type FactUnit struct {
	End   string  `json:"end"`
	Val   float64 `json:"val"`
	FY    int     `json:"fy"`
	FP    string  `json:"fp"`
	Form  string  `json:"form"`
	Filed string  `json:"filed"`
}

// Fact groups data points by reporting unit (USD, shares, pure).
type Fact struct {
	Label string                `json:"label"`
	Units map[string][]FactUnit `json:"units"`
}

// CompanyFacts is the XBRL company facts response. The same payload serves
// the profile and financials categories; Kind records which fetch produced it.
type CompanyFacts struct {
	Symbol string          `json:"-"`
	Kind   models.Category `json:"-"`

	CIK            int64                      `json:"cik"`
	EntityName     string                     `json:"entityName"`
	SIC            string                     `json:"sic"`
	SICDescription string                     `json:"sicDescription"`
	Facts          map[string]map[string]Fact `json:"facts"` // taxonomy -> tag
}

func (*CompanyFacts) Source() string              { return "edgar" }
func (p *CompanyFacts) Category() models.Category { return p.Kind }

// Submissions is the company submissions index; the normalizer extracts
// Form 4 rows from the column-oriented recent block.
type Submissions struct {
	Symbol string `json:"-"`

	Name           string `json:"name"`
	SIC            string `json:"sic"`
	SICDescription string `json:"sicDescription"`
	Filings        struct {
		Recent struct {
			AccessionNumber []string `json:"accessionNumber"`
			Form            []string `json:"form"`
			FilingDate      []string `json:"filingDate"`
			ReportDate      []string `json:"reportDate"`
		} `json:"recent"`
	} `json:"filings"`
}

func (*Submissions) Source() string            { return "edgar" }
func (*Submissions) Category() models.Category { return models.CategoryInsiders }
