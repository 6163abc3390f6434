package chunk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTotal(t *testing.T) {
	assert.Equal(t, 0, Total(0, 2048))
	assert.Equal(t, 1, Total(1, 2048))
	assert.Equal(t, 1, Total(2048, 2048))
	assert.Equal(t, 2, Total(2049, 2048))
	assert.Equal(t, 3, Total(5000, 2048))
	assert.Equal(t, 5000, Total(5000, 1))
}

func TestIsValidChunkSize(t *testing.T) {
	assert.False(t, IsValidChunkSize(0))
	assert.False(t, IsValidChunkSize(-1))
	assert.False(t, IsValidChunkSize(MaxChunkSize+1))
	assert.True(t, IsValidChunkSize(1))
	assert.True(t, IsValidChunkSize(MaxChunkSize))
}

func TestSplitCoversFile(t *testing.T) {
	sizes := []int64{0, 1, 100, 2047, 2048, 2049, 5000, 10240}
	for _, size := range sizes {
		chunks := Split(size, 2048, nil)
		require.Len(t, chunks, Total(size, 2048), "size %d", size)

		var next int64
		for i, c := range chunks {
			assert.Equal(t, i+1, c.Part)
			assert.Equal(t, next, c.Offset, "size %d part %d", size, c.Part)
			assert.Greater(t, c.Size, 0)
			next += int64(c.Size)
		}
		assert.Equal(t, size, next, "chunks must cover size %d exactly", size)
	}
}

func TestSplitSizes(t *testing.T) {
	chunks := Split(5000, 2048, nil)
	require.Len(t, chunks, 3)
	assert.Equal(t, 2048, chunks[0].Size)
	assert.Equal(t, 2048, chunks[1].Size)
	assert.Equal(t, 904, chunks[2].Size)
	assert.Equal(t, int64(4096), chunks[2].Offset)
}

func TestSplitSubset(t *testing.T) {
	chunks := Split(5000, 2048, []int{2})
	require.Len(t, chunks, 1)
	assert.Equal(t, 2, chunks[0].Part)
	assert.Equal(t, int64(2048), chunks[0].Offset)
	assert.Equal(t, 2048, chunks[0].Size)

	// offsets must come from the full file, not the subset
	chunks = Split(5000, 2048, []int{3})
	require.Len(t, chunks, 1)
	assert.Equal(t, int64(4096), chunks[0].Offset)
	assert.Equal(t, 904, chunks[0].Size)
}

func TestSplitSubsetOutOfRange(t *testing.T) {
	chunks := Split(5000, 2048, []int{0, 2, 4})
	require.Len(t, chunks, 1)
	assert.Equal(t, 2, chunks[0].Part)
}
