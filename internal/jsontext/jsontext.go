// Package jsontext locates JSON values embedded in free-form model replies.
package jsontext

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	objectPattern = regexp.MustCompile(`(?s)\{.*\}`)
	leadingNumber = regexp.MustCompile(`^[-+]?\d+(\.\d+)?`)
)

// ExtractObject finds the first JSON object embedded in free text. The
// widest brace-delimited span is tried first, then each balanced object in
// order of appearance.
func ExtractObject(text string) (map[string]any, bool) {
	if span := objectPattern.FindString(text); span != "" {
		var obj map[string]any
		if err := json.Unmarshal([]byte(span), &obj); err == nil {
			return obj, true
		}
	}
	for i := strings.IndexByte(text, '{'); i >= 0; {
		if end := balancedEnd(text[i:]); end > 0 {
			var obj map[string]any
			if err := json.Unmarshal([]byte(text[i:i+end]), &obj); err == nil {
				return obj, true
			}
		}
		next := strings.IndexByte(text[i+1:], '{')
		if next < 0 {
			break
		}
		i += next + 1
	}
	return nil, false
}

// balancedEnd returns the length of the brace-balanced prefix of s, which
// must start with '{', or 0 when the braces never balance. Braces inside
// JSON strings are ignored.
func balancedEnd(s string) int {
	depth := 0
	inString, escaped := false, false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			escaped = false
		case inString && c == '\\':
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return i + 1
			}
		}
	}
	return 0
}

// Number coerces a decoded JSON value to a finite float. Strings are accepted
// when they start with a number ("8", "8/10", " 7.5 ").
func Number(v any) (float64, bool) {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case json.Number:
		n, err := t.Float64()
		if err != nil {
			return 0, false
		}
		f = n
	case string:
		m := leadingNumber.FindString(strings.TrimSpace(t))
		if m == "" {
			return 0, false
		}
		n, err := strconv.ParseFloat(m, 64)
		if err != nil {
			return 0, false
		}
		f = n
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
