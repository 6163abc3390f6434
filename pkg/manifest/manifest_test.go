package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "backup.zip.manifest.json")

	m := New("backup.zip", 13, []int{2, 5, 13})
	require.NoError(t, m.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, m, loaded)
}

func TestSaveWireFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.json")
	require.NoError(t, New("a.bin", 3, []int{2}).Save(path))

	buf, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(buf), `"filename"`)
	assert.Contains(t, string(buf), `"total_parts"`)
	assert.Contains(t, string(buf), `"missing"`)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		m    *Manifest
		ok   bool
	}{
		{"valid", New("a", 5, []int{1, 3, 5}), true},
		{"no filename", New("", 5, []int{1}), false},
		{"bad total", New("a", 0, []int{1}), false},
		{"empty missing", New("a", 5, nil), false},
		{"part below range", New("a", 5, []int{0, 1}), false},
		{"part above range", New("a", 5, []int{1, 6}), false},
		{"not increasing", New("a", 5, []int{3, 2}), false},
		{"duplicate", New("a", 5, []int{2, 2}), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.m.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"filename":"a","total_parts":3,"missing":[9]}`), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}
