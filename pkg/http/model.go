package http

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// APIResponse is the envelope of every API reply.
type APIResponse struct {
	Status  string      `json:"status" example:"success"`
	Message string      `json:"message" example:"获取股票列表成功"`
	Data    interface{} `json:"data"`
	Total   *int        `json:"total,omitempty"`
}

// ValidationError represents validation error detail.
type ValidationError struct {
	Code    string                 `json:"code,omitempty" example:"ERR_REQUIRED"`
	Field   string                 `json:"field,omitempty" example:"pct_chg"`
	Message string                 `json:"message,omitempty" example:"pct_chg is required"`
	Params  map[string]interface{} `json:"params,omitempty"`
}
