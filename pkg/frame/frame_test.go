package frame

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	payloads := [][]byte{
		[]byte("hello world"),
		{},
		{0, 0, 0, 0},
		{0xff, 0x00, 0x7f, 0x80, 0x0a},
	}

	for _, data := range payloads {
		buf, err := Encode(3, 7, "backup.zip", data)
		require.NoError(t, err)

		f, err := Decode(buf)
		require.NoError(t, err)
		assert.Equal(t, 3, f.Part)
		assert.Equal(t, 7, f.Total)
		assert.Equal(t, "backup.zip", f.Filename)
		assert.Equal(t, data, f.Data)
	}
}

func TestEncodeWireShape(t *testing.T) {
	buf, err := Encode(1, 2, "a.bin", []byte{1, 2, 3})
	require.NoError(t, err)

	var fields map[string]interface{}
	require.NoError(t, json.Unmarshal(buf, &fields))
	assert.Len(t, fields, 4)
	assert.Contains(t, fields, "p")
	assert.Contains(t, fields, "t")
	assert.Contains(t, fields, "f")
	assert.Contains(t, fields, "d")
	assert.Equal(t, "AQID", fields["d"])
}

func TestEncodePartOutOfRange(t *testing.T) {
	_, err := Encode(0, 3, "a", nil)
	assert.ErrorIs(t, err, ErrInvalidFields)

	_, err = Encode(4, 3, "a", nil)
	assert.ErrorIs(t, err, ErrInvalidFields)
}

func TestDecodeMalformed(t *testing.T) {
	payloads := []string{
		"",
		"hello",
		"https://example.com/",
		"WIFI:S:net;T:WPA;P:pw;;",
		`[1,2,3]`,
		`{"ssid":"net","password":"pw"}`,
	}
	for _, payload := range payloads {
		_, err := Decode([]byte(payload))
		assert.ErrorIs(t, err, ErrMalformed, "payload %q", payload)
	}
}

func TestDecodeInvalidFields(t *testing.T) {
	payloads := []string{
		`{"p":1,"t":2,"f":"a"}`, // ours, but a field short
		`{"p":"one","t":3,"f":"a","d":""}`,
		`{"p":0,"t":3,"f":"a","d":""}`,
		`{"p":4,"t":3,"f":"a","d":""}`,
		`{"p":1,"t":0,"f":"a","d":""}`,
		`{"p":1,"t":3,"f":"","d":""}`,
		`{"p":1,"t":3,"f":"a","d":"%%%"}`,
	}
	for _, payload := range payloads {
		_, err := Decode([]byte(payload))
		assert.ErrorIs(t, err, ErrInvalidFields, "payload %q", payload)
	}
}

func TestDecodeNeverPanics(t *testing.T) {
	garbage := [][]byte{
		nil,
		{0xde, 0xad, 0xbe, 0xef},
		[]byte(`{"p":`),
		[]byte(`null`),
	}
	for _, payload := range garbage {
		assert.NotPanics(t, func() {
			Decode(payload)
		})
	}
}
