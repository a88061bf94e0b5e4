package controlling_poolspa

// ErrorResponse is the body of every non-2xx API reply.
type ErrorResponse struct {
	Error string `json:"error" example:"invalid or expired token"`
}

// StatusResponse acknowledges a control request. State carries the snapshot
// current at reply time; the request itself is applied on a later control tick.
type StatusResponse struct {
	Status string `json:"status" example:"queued"`
	State  any    `json:"state,omitempty"`
}

// TokenResponse is returned by sign-in.
type TokenResponse struct {
	Token string `json:"token"`
}

// IDResponse is returned by sign-up.
type IDResponse struct {
	ID int `json:"id"`
}
