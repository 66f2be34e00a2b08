package dto

// ErrorResponse cuerpo de error HTTP.
// Retryable solo se informa en fallas transitorias del servicio fiscal.
type ErrorResponse struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable,omitempty"`
}
