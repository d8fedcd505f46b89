package models

// Requests for the stocks HTTP endpoints.

type StockCodeRequest struct {
	Code string `param:"code" json:"code" validate:"required,max=16"`
}

type StockProbabilityRequest struct {
	Code       string `param:"code" json:"code" validate:"required,max=16"`
	TimePeriod string `query:"time_period" json:"time_period" validate:"omitempty,oneof=m1 m3 m6 y1 y2 y3 y4 y5"`
}

type AllProbabilityRequest struct {
	TimePeriod string `query:"time_period" json:"time_period" validate:"omitempty,oneof=m1 m3 m6 y1 y2 y3 y4 y5"`
}

type PctProbabilityRequest struct {
	Code   string `param:"code" json:"code" validate:"required,max=16"`
	PctChg string `query:"pct_chg" json:"pct_chg" validate:"required,numeric"`
}
