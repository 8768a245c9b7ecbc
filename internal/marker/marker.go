// Package marker encodes the tag that ties a template-less feedback task
// back to the template it was generated from.
//
// The tag has the form [auto-after-training:<template-id>] and may appear
// anywhere inside a task description.
package marker

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
)

const (
	prefix = "[auto-after-training:"
	suffix = "]"
)

var (
	wellFormed = regexp.MustCompile(`\[auto-after-training:([0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12})\]`)
	anyTag     = regexp.MustCompile(`\[auto-after-training:[^\]]*\]`)
	blanks     = regexp.MustCompile(`[ \t]{2,}`)
	blankLines = regexp.MustCompile(`\n{3,}`)
)

// Encode returns the tag for templateID.
func Encode(templateID uuid.UUID) string {
	return prefix + templateID.String() + suffix
}

// Decode returns the template id of the first well-formed tag in
// description. Tags whose id is not UUID-shaped are ignored.
func Decode(description string) (uuid.UUID, bool) {
	for _, m := range wellFormed.FindAllStringSubmatch(description, -1) {
		id, err := uuid.Parse(m[1])
		if err == nil {
			return id, true
		}
	}
	return uuid.Nil, false
}

// Has reports whether description carries any tag, well-formed or not.
func Has(description string) bool {
	return anyTag.MatchString(description)
}

// Contains reports whether description carries the tag for templateID.
func Contains(description string, templateID uuid.UUID) bool {
	return strings.Contains(description, Encode(templateID))
}

// Strip removes every tag and tidies the whitespace left behind.
func Strip(description string) string {
	out := anyTag.ReplaceAllString(description, "")
	lines := strings.Split(out, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(blanks.ReplaceAllString(line, " "))
	}
	out = strings.Join(lines, "\n")
	out = blankLines.ReplaceAllString(out, "\n\n")
	return strings.TrimSpace(out)
}

// LikePattern matches descriptions carrying the tag for templateID in a SQL
// LIKE clause.
func LikePattern(templateID uuid.UUID) string {
	return "%" + Encode(templateID) + "%"
}

// AnyLikePattern matches descriptions carrying any tag in a SQL LIKE clause.
func AnyLikePattern() string {
	return "%" + prefix + "%"
}
