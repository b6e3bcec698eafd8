package retrieval

const (
	// ChunkSize and ChunkOverlap mirror the original RAG pipeline's
	// chunk_text defaults.
	ChunkSize    = 600
	ChunkOverlap = 120
)

// ChunkText splits text into overlapping windows of ChunkSize runes with
// ChunkOverlap runes of overlap between consecutive chunks.
func ChunkText(text string) []string {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}
	if len(runes) <= ChunkSize {
		return []string{text}
	}

	var chunks []string
	step := ChunkSize - ChunkOverlap
	for start := 0; start < len(runes); start += step {
		end := start + ChunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return chunks
}
