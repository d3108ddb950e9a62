package common

import (
	"github.com/google/uuid"
)

// NewRunID generates an identifier for one pipeline invocation
// Format: run_<uuid>
func NewRunID() string {
	return "run_" + uuid.New().String()
}
