package service

import (
	"errors"
	"strings"
)

// MaxReplyRunes is the hard cap on posted reply length.
const MaxReplyRunes = 270

// ErrEmptyReply indicates the draft had no usable text after the guard pass.
var ErrEmptyReply = errors.New("empty reply after sanitizing")

// SanitizeReply runs the deterministic guard pass over an LLM-drafted reply:
// hashtags and links are stripped, whitespace collapsed, surrounding quotes
// removed, and the result hard-capped at MaxReplyRunes.
func SanitizeReply(draft string) (string, error) {
	fields := strings.Fields(draft)
	kept := make([]string, 0, len(fields))
	for _, f := range fields {
		if strings.HasPrefix(f, "#") {
			continue
		}
		lower := strings.ToLower(f)
		if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") || strings.HasPrefix(lower, "www.") {
			continue
		}
		kept = append(kept, f)
	}

	text := strings.Join(kept, " ")
	text = strings.Trim(text, `"'`)
	text = strings.TrimSpace(text)

	if runes := []rune(text); len(runes) > MaxReplyRunes {
		text = strings.TrimSpace(string(runes[:MaxReplyRunes]))
	}

	if text == "" {
		return "", ErrEmptyReply
	}
	return text, nil
}
