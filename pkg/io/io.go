package io

import (
	"io"
)

// CallbackWriter reports every written byte count, used to drive
// progress bars while reassembling output files.
type CallbackWriter struct {
	w        io.Writer
	callback func(n int)
}

func NewCallbackWriter(w io.Writer, callback func(n int)) *CallbackWriter {
	return &CallbackWriter{
		w:        w,
		callback: callback,
	}
}

func (cw *CallbackWriter) Write(p []byte) (n int, err error) {
	n, err = cw.w.Write(p)
	cw.callback(n)
	return
}

// CallbackReaderAt is the read-side counterpart over random access
// sources, reporting each chunk read out of the file being sent.
type CallbackReaderAt struct {
	r        io.ReaderAt
	callback func(n int)
}

func NewCallbackReaderAt(r io.ReaderAt, callback func(n int)) *CallbackReaderAt {
	return &CallbackReaderAt{
		r:        r,
		callback: callback,
	}
}

func (cr *CallbackReaderAt) ReadAt(p []byte, off int64) (n int, err error) {
	n, err = cr.r.ReadAt(p, off)
	cr.callback(n)
	return
}
