// Package chunk splits document text into bounded, ordered chunks by greedy
// paragraph packing with a sentence-level fallback for oversized paragraphs.
//
// Lengths are counted in runes. Chunks are trimmed and never empty. A chunk can
// exceed the bound only when a single sentence is longer than the bound.
package chunk

import (
	"strings"
	"unicode/utf8"
)

// Split cuts text into chunks of at most maxSize characters.
//
// Text that already fits is returned as a single untrimmed chunk. Otherwise
// paragraphs ("\n\n") are packed greedily; a paragraph that cannot fit on its
// own is packed sentence by sentence (". ") and its tail carries over as the
// start of the next chunk.
func Split(text string, maxSize int) []string {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	if runeLen(text) <= maxSize {
		return []string{text}
	}

	var chunks []string
	flush := func(s string) {
		if s != "" {
			chunks = append(chunks, strings.TrimSpace(s))
		}
	}

	current := ""
	for _, paragraph := range strings.Split(text, ParagraphSeparator) {
		if runeLen(current)+runeLen(paragraph)+2 <= maxSize {
			current = join(current, paragraph, ParagraphSeparator)
			continue
		}

		flush(current)
		if runeLen(paragraph) <= maxSize {
			current = paragraph
			continue
		}

		pending := ""
		for _, sentence := range strings.Split(paragraph, SentenceSeparator) {
			if runeLen(pending)+runeLen(sentence)+2 <= maxSize {
				pending = join(pending, sentence, SentenceSeparator)
				continue
			}
			flush(pending)
			pending = sentence
		}
		current = pending
	}
	flush(current)

	out := chunks[:0]
	for _, c := range chunks {
		if strings.TrimSpace(c) != "" {
			out = append(out, c)
		}
	}
	return out
}

// Document splits text and annotates each chunk with its position.
// Whitespace-only text yields no chunks.
func Document(sourceID, text string, maxSize int) []Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	parts := Split(text, maxSize)
	chunks := make([]Chunk, len(parts))
	for i, p := range parts {
		chunks[i] = Chunk{
			Text:        p,
			SourceID:    sourceID,
			Index:       i,
			TotalChunks: len(parts),
		}
	}
	return chunks
}

func join(buf, part, sep string) string {
	if buf == "" {
		return part
	}
	return buf + sep + part
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
