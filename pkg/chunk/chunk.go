package chunk

// MaxChunkSize is the largest chunk payload a QR code takes reliably
// at low error correction, after base64 expansion.
const MaxChunkSize = 2048

func IsValidChunkSize(chunkSize int) bool {
	if chunkSize <= 0 || chunkSize > MaxChunkSize {
		return false
	}
	return true
}

// Total returns the part count for a file of the given size.
func Total(size int64, chunkSize int) int {
	if size == 0 {
		return 0
	}
	return int((size + int64(chunkSize) - 1) / int64(chunkSize))
}

type Chunk struct {
	Part   int
	Offset int64
	Size   int
}

// Split numbers the byte ranges of a file of the given size, 1-based,
// contiguous and non-overlapping. A non-nil subset restricts the result
// to those part numbers without changing how offsets are computed.
func Split(size int64, chunkSize int, subset []int) []Chunk {
	total := Total(size, chunkSize)
	chunks := make([]Chunk, 0, total)

	if subset == nil {
		for part := 1; part <= total; part++ {
			chunks = append(chunks, at(part, total, size, chunkSize))
		}
		return chunks
	}

	for _, part := range subset {
		if part < 1 || part > total {
			continue
		}
		chunks = append(chunks, at(part, total, size, chunkSize))
	}
	return chunks
}

func at(part, total int, size int64, chunkSize int) Chunk {
	offset := int64(part-1) * int64(chunkSize)
	length := chunkSize
	if part == total {
		length = int(size - offset)
	}
	return Chunk{
		Part:   part,
		Offset: offset,
		Size:   length,
	}
}
