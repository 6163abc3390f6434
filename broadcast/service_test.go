package broadcast

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/qrflow/qrflow/pkg/manifest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSrcFile(t *testing.T, n int) string {
	t.Helper()
	data := make([]byte, n)
	for i := range data {
		data[i] = byte(i%250) + 1
	}
	path := filepath.Join(t.TempDir(), "blob.bin")
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

func TestRunWritesSeries(t *testing.T) {
	outDir := t.TempDir()
	svc, err := NewService(Options{
		SrcFile:   writeSrcFile(t, 500),
		OutDir:    outDir,
		ChunkSize: 200,
		Rate:      1000,
		QRSize:    400,
	})
	require.NoError(t, err)
	require.NoError(t, svc.Run())

	for _, name := range []string{
		"blob.bin_part_001_of_003.png",
		"blob.bin_part_002_of_003.png",
		"blob.bin_part_003_of_003.png",
	} {
		_, err := os.Stat(filepath.Join(outDir, name))
		assert.NoError(t, err, name)
	}
}

func TestRunRemediationSubset(t *testing.T) {
	srcFile := writeSrcFile(t, 500)
	manifestFile := filepath.Join(t.TempDir(), "blob.bin.manifest.json")
	require.NoError(t, manifest.New("blob.bin", 3, []int{2}).Save(manifestFile))

	outDir := t.TempDir()
	svc, err := NewService(Options{
		SrcFile:      srcFile,
		OutDir:       outDir,
		ChunkSize:    200,
		Rate:         1000,
		QRSize:       400,
		ManifestFile: manifestFile,
	})
	require.NoError(t, err)
	require.NoError(t, svc.Run())

	entries, err := os.ReadDir(outDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "blob.bin_part_002_of_003.png", entries[0].Name())
}

func TestRunRejectsForeignManifest(t *testing.T) {
	srcFile := writeSrcFile(t, 500)
	manifestFile := filepath.Join(t.TempDir(), "other.manifest.json")
	require.NoError(t, manifest.New("other.bin", 3, []int{2}).Save(manifestFile))

	svc, err := NewService(Options{
		SrcFile:      srcFile,
		ChunkSize:    200,
		Rate:         1000,
		ManifestFile: manifestFile,
	})
	require.NoError(t, err)

	err = svc.Run()
	require.Error(t, err, "must abort before producing any frame")
	assert.Contains(t, err.Error(), "other.bin")
}

func TestRunRejectsTotalMismatch(t *testing.T) {
	srcFile := writeSrcFile(t, 500)
	manifestFile := filepath.Join(t.TempDir(), "blob.bin.manifest.json")
	require.NoError(t, manifest.New("blob.bin", 9, []int{2}).Save(manifestFile))

	svc, err := NewService(Options{
		SrcFile:      srcFile,
		ChunkSize:    200,
		Rate:         1000,
		ManifestFile: manifestFile,
	})
	require.NoError(t, err)
	assert.Error(t, svc.Run())
}

func TestOptionsCheck(t *testing.T) {
	op := &Options{}
	assert.Error(t, op.Check(), "src_file is required")

	op = &Options{SrcFile: "blob.bin"}
	require.NoError(t, op.Check())
	assert.Equal(t, "qr_series_output", op.OutDir)
	assert.Equal(t, 2048, op.ChunkSize)
	assert.Equal(t, float64(1), op.Rate)

	op = &Options{SrcFile: "blob.bin", ChunkSize: 100000}
	assert.Error(t, op.Check())
}
