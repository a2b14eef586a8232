// Package parse extracts scans from raw device lines.
//
// A line is free-form text. The first maximal run of decimal digits is the
// entity id; a line without digits carries no scan and is discarded by the
// caller. Direction keywords are matched case-insensitively as substrings.
package parse

import (
	"strings"

	"github.com/okian/aforo/internal/domain/model"
)

// Keyword classes recognized in device lines. Readers in the field emit
// Spanish labels; English aliases are accepted for newer firmware.
var (
	entryKeywords = []string{"entrada", "ingreso", "entry"}
	exitKeywords  = []string{"salida", "egreso", "exit"}
)

// Scan parses one decoded line. ok is false when the line has no entity id,
// which is not an error: such lines are simply ignored upstream.
func Scan(line string) (model.Scan, bool) {
	s := strings.TrimSpace(line)
	if s == "" {
		return model.Scan{}, false
	}

	id := firstDigitRun(s)
	if id == "" {
		return model.Scan{}, false
	}

	lower := strings.ToLower(s)
	entry := containsAny(lower, entryKeywords)
	exit := containsAny(lower, exitKeywords)

	hint := model.HintNone
	switch {
	case entry && exit:
		// Ambiguous label; fall back to implicit resolution.
	case entry:
		hint = model.HintEntry
	case exit:
		hint = model.HintExit
	}

	return model.Scan{EntityID: id, Hint: hint}, true
}

// firstDigitRun returns the first maximal run of ASCII decimal digits in s.
func firstDigitRun(s string) string {
	start := -1
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			return s[start:i]
		}
	}
	if start >= 0 {
		return s[start:]
	}
	return ""
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
