package agent

import (
	"fmt"
	"strings"
)

// stripFences убирает markdown-ограждения ``` и метку языка json.
func stripFences(s string) string {
	s = strings.TrimSpace(strings.ReplaceAll(s, "```", ""))
	if rest, ok := strings.CutPrefix(s, "json"); ok {
		s = strings.TrimSpace(rest)
	}
	return s
}

// extractJSON вырезает фрагмент между первым opening и последним closing.
func extractJSON(s string, opening, closing byte) (string, error) {
	start := strings.IndexByte(s, opening)
	end := strings.LastIndexByte(s, closing)
	if start == -1 || end == -1 || end <= start {
		return "", fmt.Errorf("%w: no json %c...%c found", ErrMalformedResponse, opening, closing)
	}
	return s[start : end+1], nil
}
