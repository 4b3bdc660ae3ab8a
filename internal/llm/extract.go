package llm

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
)

// ParseStatus classifies the outcome of decoding a structured response.
type ParseStatus int

const (
	// ParseOK means an array was found and decoded.
	ParseOK ParseStatus = iota
	// ParseEmpty means no bracketed array was found in the response.
	ParseEmpty
	// ParseFailed means an array span was found but did not decode.
	ParseFailed
)

func (s ParseStatus) String() string {
	switch s {
	case ParseOK:
		return "ok"
	case ParseEmpty:
		return "empty"
	case ParseFailed:
		return "failed"
	}
	return fmt.Sprintf("ParseStatus(%d)", int(s))
}

const fence = "```"

// StripFences removes a leading ```json or ``` opener and a trailing ``` closer.
func StripFences(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, fence+"json") {
		text = text[len(fence+"json"):]
	} else if strings.HasPrefix(text, fence) {
		text = text[len(fence):]
	}
	text = strings.TrimSuffix(text, fence)
	return strings.TrimSpace(text)
}

// FindArray returns the JSON array span starting at the first '['. The end is the
// bracket that balances it, skipping brackets inside string literals. When the
// brackets never balance, the span runs to the last ']' in the text.
func FindArray(text string) (string, bool) {
	start := strings.IndexByte(text, '[')
	if start < 0 {
		return "", false
	}
	return arrayAt(text, start)
}

func arrayAt(text string, start int) (string, bool) {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
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
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}

	end := strings.LastIndexByte(text, ']')
	if end <= start {
		return "", false
	}
	return text[start : end+1], true
}

// DecodeList tolerantly parses a model response into a list of T.
// Top-level spans are tried in order, so bracketed prose before the payload
// is skipped. An empty array only wins when nothing later decodes to a non-empty
// one. A response with no array yields ParseEmpty and a nil error; when no span
// decodes the result is ParseFailed with the first decode error.
func DecodeList[T any](raw string) ([]T, ParseStatus, error) {
	text := StripFences(raw)

	var (
		found    []T
		decoded  bool
		firstErr error
		failed   string
	)
	for start := strings.IndexByte(text, '['); start >= 0; {
		span, ok := arrayAt(text, start)
		if !ok {
			break
		}
		var items []T
		if err := json.Unmarshal([]byte(span), &items); err != nil {
			if firstErr == nil {
				firstErr, failed = err, span
			}
		} else if len(items) > 0 {
			return items, ParseOK, nil
		} else if !decoded {
			found, decoded = items, true
		}

		// Nested arrays of a span that failed are fragments, not candidates.
		end := start + len(span)
		next := strings.IndexByte(text[end:], '[')
		if next < 0 {
			break
		}
		start = end + next
	}

	switch {
	case decoded:
		return found, ParseOK, nil
	case firstErr != nil:
		slog.Warn("could not decode JSON array in response", "error", firstErr, "span", preview(failed, 200))
		return nil, ParseFailed, fmt.Errorf("decode JSON array: %w", firstErr)
	}
	slog.Warn("could not find JSON array in response", "response", preview(text, 200))
	return nil, ParseEmpty, nil
}

func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
