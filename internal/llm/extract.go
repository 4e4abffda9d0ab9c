package llm

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/MereWhiplash/aria/internal/types"
)

var errNoJSON = errors.New("no JSON object or array found")

// ExtractJSON decodes the first JSON object or array in raw into v. Markdown
// code fences and surrounding prose are ignored. Failures are returned as
// *types.ParseError carrying the raw response.
func ExtractJSON(raw string, v any) error {
	body := stripFences(raw)

	start := strings.IndexAny(body, "{[")
	if start < 0 {
		return &types.ParseError{Raw: raw, Err: errNoJSON}
	}

	closer := "}"
	if body[start] == '[' {
		closer = "]"
	}
	end := strings.LastIndex(body, closer)
	if end < start {
		return &types.ParseError{Raw: raw, Err: errNoJSON}
	}

	if err := json.Unmarshal([]byte(body[start:end+1]), v); err != nil {
		return &types.ParseError{Raw: raw, Err: err}
	}
	return nil
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}

	// Drop the opening fence line, language tag included.
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(s, "```")
	}
	if i := strings.LastIndex(s, "```"); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}
