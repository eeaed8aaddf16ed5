package security

import (
	"strings"

	"github.com/google/uuid"
)

// NewOpaqueToken returns a random single-use token for email verification
// and password reset links
func NewOpaqueToken() string {
	return strings.ReplaceAll(uuid.NewString()+uuid.NewString(), "-", "")
}
