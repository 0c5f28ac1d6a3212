package util

import (
	"crypto/rand"
	"encoding/hex"
)

// NewTraceID returns a short (16 hex char) random id for correlating one
// task's log lines across workers.
func NewTraceID() string {
	var b [8]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}
