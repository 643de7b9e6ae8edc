package index

// smallThreshold is the input-size cutoff below which the whole input is
// processed as a single chunk, bypassing the configured chunk size (spec
// §4.8 "Chunking" step 1).
const smallThreshold = 500

const (
	minChunkSize = 100
	maxChunkSize = 3000
)

// resolveChunkSize clamps the configured chunk size into [100, 3000], then
// further clamps it by a memory cap expressed as a budget of mel-spectrogram
// floats per chunk, and finally bypasses both clamps when the whole input is
// smaller than smallThreshold (spec §4.8 step 1).
//
// The interaction the spec's Open Question #1 flags — smallThreshold can
// produce a chunk bigger than the memory cap allows — is resolved here by
// giving smallThreshold priority: a small input always runs as one chunk,
// even if that chunk nominally exceeds memoryCapBytes. The memory cap exists
// to bound a long run's peak memory, not to protect a handful of files.
func resolveChunkSize(n, configured, memoryCapBytes, melFloatsPerItem int) int {
	if n < smallThreshold {
		return n
	}

	size := configured
	if size < minChunkSize {
		size = minChunkSize
	}
	if size > maxChunkSize {
		size = maxChunkSize
	}

	if memoryCapBytes > 0 && melFloatsPerItem > 0 {
		budget := memoryCapBytes / (melFloatsPerItem * 4) // float32 = 4 bytes
		if budget > 0 && budget < size {
			size = budget
		}
	}

	if size <= 0 {
		size = 1
	}
	return size
}

// partition splits paths into chunks of at most chunkSize entries,
// preserving order.
func partition(paths []string, chunkSize int) [][]string {
	if chunkSize <= 0 {
		chunkSize = len(paths)
	}
	if chunkSize <= 0 {
		return nil
	}

	var chunks [][]string
	for start := 0; start < len(paths); start += chunkSize {
		end := start + chunkSize
		if end > len(paths) {
			end = len(paths)
		}
		chunks = append(chunks, paths[start:end])
	}
	return chunks
}
