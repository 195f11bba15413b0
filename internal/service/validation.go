package service

import (
	"regexp"
	"strings"

	apperrors "github.com/spec-kit/issue-tracker/pkg/util/errorutil"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

const minPasswordLength = 8

func validEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// violations collects validation messages and reports them as one error.
type violations []string

func (v *violations) add(msg string) {
	*v = append(*v, msg)
}

func (v violations) err() error {
	if len(v) == 0 {
		return nil
	}
	return apperrors.NewValidationError(strings.Join(v, "; "), map[string]any{"violations": []string(v)})
}

// normalizeTags trims, drops empties and de-duplicates while keeping first-seen order.
func normalizeTags(tags []string) []string {
	if tags == nil {
		return nil
	}
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}

func optionalString(val *string) *string {
	if val == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*val)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
