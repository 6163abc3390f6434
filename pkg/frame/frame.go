package frame

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
)

/*
	One frame per displayed code:

	{ "p": <part>, "t": <total>, "f": <filename>, "d": <base64 bytes> }
*/

var (
	// ErrMalformed means the payload is not one of our frames at all.
	// The visual channel is shared with unrelated codes, so this is
	// expected and callers should ignore it.
	ErrMalformed = errors.New("not a transfer frame")

	// ErrInvalidFields means the payload carries the frame schema but
	// its fields are missing, mistyped or out of range.
	ErrInvalidFields = errors.New("invalid frame fields")
)

type Frame struct {
	Part     int    `json:"p"`
	Total    int    `json:"t"`
	Filename string `json:"f"`
	Data     []byte `json:"-"`
}

type wireFrame struct {
	Part     int    `json:"p"`
	Total    int    `json:"t"`
	Filename string `json:"f"`
	Data     string `json:"d"`
}

// Encode serializes one part into its wire form.
func Encode(part int, total int, filename string, data []byte) ([]byte, error) {
	if part < 1 || part > total {
		return nil, fmt.Errorf("%w: part %d out of range [1, %d]", ErrInvalidFields, part, total)
	}
	return json.Marshal(&wireFrame{
		Part:     part,
		Total:    total,
		Filename: filename,
		Data:     base64.StdEncoding.EncodeToString(data),
	})
}

// Decode parses a scanned payload. It never panics on arbitrary input:
// anything that does not carry all four frame keys is ErrMalformed,
// a recognizable frame with bad field values is ErrInvalidFields.
func Decode(payload []byte) (*Frame, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(payload, &fields); err != nil {
		return nil, ErrMalformed
	}

	// a JSON object carrying none of our keys is some other code
	// sharing the channel; one carrying some but not all is ours and
	// broken
	present := 0
	for _, key := range []string{"p", "t", "f", "d"} {
		if _, ok := fields[key]; ok {
			present++
		}
	}
	if present == 0 {
		return nil, ErrMalformed
	}
	if present < 4 {
		return nil, fmt.Errorf("%w: missing required fields", ErrInvalidFields)
	}

	var wf wireFrame
	if err := json.Unmarshal(payload, &wf); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFields, err)
	}
	if wf.Total < 1 {
		return nil, fmt.Errorf("%w: total %d", ErrInvalidFields, wf.Total)
	}
	if wf.Part < 1 || wf.Part > wf.Total {
		return nil, fmt.Errorf("%w: part %d out of range [1, %d]", ErrInvalidFields, wf.Part, wf.Total)
	}
	if wf.Filename == "" {
		return nil, fmt.Errorf("%w: empty filename", ErrInvalidFields)
	}

	data, err := base64.StdEncoding.DecodeString(wf.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: bad data encoding: %v", ErrInvalidFields, err)
	}

	return &Frame{
		Part:     wf.Part,
		Total:    wf.Total,
		Filename: wf.Filename,
		Data:     data,
	}, nil
}
