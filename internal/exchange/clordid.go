package exchange

import (
	"strings"

	"github.com/google/uuid"
)

// NewClientOrderID generates a client order id satisfying the
// exchange's constraints: alphanumeric, at most 32 characters. The hex
// form of a v4 UUID is exactly 32 characters.
func NewClientOrderID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
