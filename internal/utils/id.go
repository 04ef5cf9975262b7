package utils

import (
	"fmt"

	"github.com/google/uuid"
)

func NewID(prefix string) string {
	return prefix + "-" + uuid.NewString()
}

// NewMessageID returns ids shaped like "user-4-<uuid>".
func NewMessageID(role string, agentID int) string {
	return NewID(fmt.Sprintf("%s-%d", role, agentID))
}
