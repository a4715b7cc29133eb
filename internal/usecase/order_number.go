package usecase

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewOrderNumber returns ORD-YYYYMMDD-XXXXXXXX with eight random hex digits.
func NewOrderNumber(now time.Time) string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "ORD-" + now.UTC().Format("20060102") + "-" + strings.ToUpper(id[:8])
}
