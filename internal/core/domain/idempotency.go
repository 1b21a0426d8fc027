package domain

import "strings"

// StoredResponse is a replayable HTTP response kept for an Idempotency-Key.
type StoredResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

// BuildIdempotencyKey scopes a client key to the route it was sent to.
func BuildIdempotencyKey(method, path, clientKey string) string {
	return strings.ToUpper(method) + ":" + path + ":" + clientKey
}
