package hierarchy

import (
	"strings"
	"unicode"

	"github.com/google/uuid"
)

// Entity id prefixes keep ids self-describing in logs and event payloads.
const (
	workstreamIDPrefix = "ws-"
	planIDPrefix       = "pl-"
	taskIDPrefix       = "tk-"
)

// WorkstreamIDFromName derives the stable workstream id from its human
// name. Creating a workstream whose name slugs to an existing id fails,
// which is what makes lookup-by-id meaningful across sessions.
func WorkstreamIDFromName(name string) string {
	return workstreamIDPrefix + slugify(name)
}

// NewPlanID returns a fresh plan id.
func NewPlanID() string {
	return planIDPrefix + uuid.NewString()
}

// NewTaskID returns a fresh task id.
func NewTaskID() string {
	return taskIDPrefix + uuid.NewString()
}

// slugify lowercases, keeps letters and digits, and collapses everything
// else into single hyphens.
func slugify(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(unicode.ToLower(r))
		case r == ' ' || r == '_' || r == '-' || r == '.':
			b.WriteRune('-')
		}
	}
	out := b.String()
	for strings.Contains(out, "--") {
		out = strings.ReplaceAll(out, "--", "-")
	}
	return strings.Trim(out, "-")
}
