package ingest

import "strings"

// DefaultChunkSize is the maximum characters per policy chunk.
const DefaultChunkSize = 1200

// chunkParagraphs splits document text into retrievable units on blank
// lines, packing consecutive paragraphs into one chunk up to maxChars.
// A single paragraph longer than maxChars becomes its own oversized
// chunk rather than being cut mid-sentence.
func chunkParagraphs(text string, maxChars int) []string {
	if maxChars <= 0 {
		maxChars = DefaultChunkSize
	}

	var chunks []string
	var current strings.Builder

	flush := func() {
		if current.Len() > 0 {
			chunks = append(chunks, current.String())
			current.Reset()
		}
	}

	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		if current.Len() > 0 && current.Len()+len(para)+2 > maxChars {
			flush()
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(para)
	}
	flush()

	return chunks
}
