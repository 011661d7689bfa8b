package models

// Requests for the query API. Defined in domain for consistency and reuse.

type DashboardRequest struct {
	Symbol string `param:"symbol" json:"symbol" validate:"required,min=1,max=10,alphanum"`
}

type SearchRequest struct {
	Query string `query:"q" json:"q" validate:"required,min=1,max=64"`
	Limit int    `query:"limit" json:"limit" default:"10" validate:"gte=1,lte=50"`
}

type EconomicSnapshotRequest struct {
	Series []string `query:"series" json:"series" validate:"omitempty,dive,min=1,max=32"`
}

type RefreshRequest struct {
	Symbol string `param:"symbol" json:"symbol" validate:"required,min=1,max=10,alphanum"`
}
