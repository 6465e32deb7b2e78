package dto

// MessageResponse is a body carrying a single human-readable message.
type MessageResponse struct {
	Message string `json:"message"`
}

// HealthResponse is the body of the health endpoints.
type HealthResponse struct {
	Status     string                 `json:"status"`
	Components map[string]interface{} `json:"components,omitempty"`
}
