package realtime

import "github.com/google/uuid"

type SSEEvent string

const (
	SSEEventConnected        SSEEvent = "connected"
	SSEEventRecordSaved      SSEEvent = "record.saved"
	SSEEventRecordSaveFailed SSEEvent = "record.save_failed"
	SSEEventProfileUpdated   SSEEvent = "user.profile_updated"
)

type SSEMessage struct {
	Channel string   `json:"channel"`
	Event   SSEEvent `json:"event"`
	Data    any      `json:"data,omitempty"`
}

// UserChannel is the channel every client of a user subscribes to.
func UserChannel(userID uuid.UUID) string { return "user:" + userID.String() }
