package httpapi

// PubSubMessage is the inner message of a push-subscription envelope.
// Data is the base64-encoded notification payload.
type PubSubMessage struct {
	Data       string            `json:"data"`
	MessageID  string            `json:"message_id,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// PubSubEnvelope is the body a push subscription delivers.
type PubSubEnvelope struct {
	Message      PubSubMessage `json:"message"`
	Subscription string        `json:"subscription,omitempty"`
}

// objectNotification is the decoded payload inside PubSubMessage.Data.
type objectNotification struct {
	Bucket    string `json:"bucket"`
	Name      string `json:"name"`
	SessionID string `json:"session_id,omitempty"`
	Language  string `json:"language,omitempty"`
}

// HealthResponse is the body of GET /api/v1/health.
type HealthResponse struct {
	Status      string `json:"status"`
	Version     string `json:"version"`
	Environment string `json:"environment"`
}

// ErrorResponse is the standard error body.
type ErrorResponse struct {
	Error string `json:"error"`
}
