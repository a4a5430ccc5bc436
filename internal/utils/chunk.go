// Package utils provides small, generic helper functions used across
// different layers of the application. These utilities are independent
// of domain or business logic.
package utils

import (
	"strings"
	"unicode/utf8"
)

// ChunkText splits text into pieces no longer than maxLen bytes, preferring
// to break at the last newline before the limit so report sections stay
// intact. Chunks are trimmed of surrounding whitespace; empty input yields
// no chunks.
//
// maxLen values <= 0 fall back to 4096, the message-size ceiling of the
// consuming transport.
func ChunkText(text string, maxLen int) []string {
	if maxLen <= 0 {
		maxLen = 4096
	}
	var chunks []string
	text = strings.TrimSpace(text)
	for text != "" {
		if len(text) <= maxLen {
			chunks = append(chunks, text)
			break
		}
		split := strings.LastIndex(text[:maxLen], "\n")
		if split <= 0 {
			// Hard split: back off to a rune boundary so a multibyte
			// character is never cut in half.
			split = maxLen
			for split > 0 && !utf8.RuneStart(text[split]) {
				split--
			}
			if split == 0 {
				split = maxLen
			}
		}
		chunks = append(chunks, strings.TrimSpace(text[:split]))
		text = strings.TrimSpace(text[split:])
	}
	return chunks
}
