package codec

import "io"

// Renderer turns a serialized frame into one displayable artifact.
type Renderer interface {
	Render(payload []byte) ([]byte, error)
}

// Decoder is one capture attempt against an image. It returns the
// embedded payload, or nil when no recognizable code is present —
// an empty capture is not an error on a visual channel.
type Decoder interface {
	Decode(r io.Reader) ([]byte, error)
}
