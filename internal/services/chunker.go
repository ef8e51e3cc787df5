package services

import (
	"strings"
	"unicode/utf8"
)

// TextChunker splits long reference documents into overlapping pieces small
// enough to embed.
type TextChunker interface {
	ChunkText(text string, maxChunkSize int, overlap int) []string
}

type textChunker struct{}

func NewTextChunker() TextChunker {
	return &textChunker{}
}

// ChunkText packs paragraphs (or sentences of oversized paragraphs) into
// chunks of at most maxChunkSize runes. A chunk starts with the last overlap
// runes of its predecessor when they fit.
func (tc *textChunker) ChunkText(text string, maxChunkSize int, overlap int) []string {
	if maxChunkSize <= 0 {
		maxChunkSize = 1000
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= maxChunkSize {
		overlap = maxChunkSize / 4
	}

	var units []string
	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		if utf8.RuneCountInString(para) <= maxChunkSize {
			units = append(units, para)
			continue
		}
		units = append(units, splitIntoSentences(para)...)
	}

	var chunks []string
	var current strings.Builder
	for _, unit := range units {
		sep := "\n\n"
		if utf8.RuneCountInString(unit) > maxChunkSize {
			unit = truncateRunes(unit, maxChunkSize)
		}

		if current.Len() > 0 && utf8.RuneCountInString(current.String())+len(sep)+utf8.RuneCountInString(unit) > maxChunkSize {
			prev := current.String()
			chunks = append(chunks, prev)
			current.Reset()
			tail := lastRunes(prev, overlap)
			if tail != "" && utf8.RuneCountInString(tail)+len(sep)+utf8.RuneCountInString(unit) <= maxChunkSize {
				current.WriteString(tail)
			}
		}

		if current.Len() > 0 {
			current.WriteString(sep)
		}
		current.WriteString(unit)
	}
	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}

	return chunks
}

func splitIntoSentences(text string) []string {
	var sentences []string
	start := 0
	for i, r := range text {
		if r == '.' || r == '!' || r == '?' {
			if s := strings.TrimSpace(text[start : i+1]); s != "" {
				sentences = append(sentences, s)
			}
			start = i + 1
		}
	}
	if s := strings.TrimSpace(text[start:]); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

func lastRunes(text string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[len(runes)-n:])
}
