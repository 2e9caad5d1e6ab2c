package career

import (
	"fmt"
	"strings"

	"github.com/yungbote/careerprep-backend/internal/flow/schema"
)

// norm folds s for duplicate detection.
func norm(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

func violation(path, format string, args ...any) schema.Violation {
	return schema.Violation{Path: path, Reason: fmt.Sprintf(format, args...)}
}

func countViolation(path string, want, got int) schema.Violation {
	return violation(path, "expected %d items, got %d", want, got)
}

// intOr dereferences p, or returns def when the field was not sent.
func intOr(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}

func wordCount(s string) int { return len(strings.Fields(s)) }
