package retrieval

// ChunkSize and ChunkOverlap match the dispatcher's copy and the
// original's chunk_text defaults.
const (
	ChunkSize    = 600
	ChunkOverlap = 120
)

// ChunkText splits text into overlapping fixed-size windows, ported from
// original_source/api/app/rag_utils.py's chunk_text.
func ChunkText(text string) []string {
	runes := []rune(text)
	n := len(runes)
	if n == 0 {
		return nil
	}

	var chunks []string
	i := 0
	for i < n {
		j := i + ChunkSize
		if j > n {
			j = n
		}
		chunks = append(chunks, string(runes[i:j]))
		if j == n {
			break
		}
		i = j - ChunkOverlap
		if i < 0 {
			i = 0
		}
	}
	return chunks
}
