package helpers

import (
	"errors"
	"strings"
)

// StripFence returns the body of s when the whole value is wrapped in a
// ``` or ~~~ code fence, dropping the info string. Otherwise s is returned
// trimmed and unchanged.
func StripFence(s string) string {
	s = strings.TrimSpace(strings.TrimPrefix(s, "\uFEFF"))
	for _, fence := range []string{"```", "~~~"} {
		if !strings.HasPrefix(s, fence) {
			continue
		}
		_, body, ok := strings.Cut(s[len(fence):], "\n")
		if !ok {
			return s
		}
		if end := strings.LastIndex(body, fence); end >= 0 {
			body = body[:end]
		}
		return strings.TrimSpace(body)
	}
	return s
}

// ExtractJSON returns the first balanced JSON object or array in s. Model
// output often wraps JSON in fences or prose; brackets inside strings are
// ignored while scanning.
func ExtractJSON(s string) (string, error) {
	s = StripFence(s)
	for i := 0; i < len(s); i++ {
		if s[i] != '{' && s[i] != '[' {
			continue
		}
		if end, ok := balancedEnd(s, i); ok {
			return s[i : end+1], nil
		}
	}
	return "", errors.New("no JSON object or array found")
}

func balancedEnd(s string, start int) (int, bool) {
	var (
		stack    []byte
		inString bool
		escaped  bool
	)
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			stack = append(stack, '}')
		case '[':
			stack = append(stack, ']')
		case '}', ']':
			if len(stack) == 0 || stack[len(stack)-1] != c {
				return 0, false
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				return i, true
			}
		}
	}
	return 0, false
}
