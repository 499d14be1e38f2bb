package models

// Requests for dashboard HTTP endpoints. Defined in domain for consistency and reuse.

type PredictionsRequest struct {
	Symbol     string `query:"symbol" json:"symbol"`
	TargetDate string `query:"target_date" json:"target_date"`
	Limit      int    `query:"limit" json:"limit" default:"50" validate:"gte=1,lte=500"`
}

type ResultsRequest struct {
	Symbol   string `query:"symbol" json:"symbol"`
	Strategy string `query:"strategy" json:"strategy" validate:"omitempty,oneof=momentum contrarian correlation news_impact"`
	Limit    int    `query:"limit" json:"limit" default:"50" validate:"gte=1,lte=500"`
}

type PerformanceRequest struct {
	Strategy string `query:"strategy" json:"strategy" validate:"omitempty,oneof=momentum contrarian correlation news_impact"`
	Scope    string `query:"scope" json:"scope"`
}

type CorrelationsRequest struct {
	Symbol          string `query:"symbol" json:"symbol"`
	SignificantOnly bool   `query:"significant" json:"significant"`
	Limit           int    `query:"limit" json:"limit" default:"100" validate:"gte=1,lte=1000"`
}

type AddInstrumentRequest struct {
	Symbol string `json:"symbol" validate:"required,min=1,max=16"`
	Name   string `json:"name" validate:"required,min=1,max=128"`
	Sector string `json:"sector" validate:"max=64"`
}

// PredictionEvent is the wire payload published to Kafka and the live feed
// when the selector publishes a prediction.
type PredictionEvent struct {
	Prediction Prediction `json:"prediction"`
	Cycle      string     `json:"cycle"`
}

// AccuracySummary is the overall rollup served to the dashboard.
type AccuracySummary struct {
	Evaluated int     `json:"evaluated"`
	Correct   int     `json:"correct"`
	HitRate   float64 `json:"hit_rate"`
	Pending   int     `json:"pending"`
}
