package sender

import (
	"fmt"
	"io"
	"sync"

	"github.com/qrflow/qrflow/pkg/chunk"
	"github.com/qrflow/qrflow/pkg/codec"
	"github.com/qrflow/qrflow/pkg/frame"
	"github.com/qrflow/qrflow/pkg/log"

	"github.com/fatedier/golib/control/shutdown"
)

// Unit is one produced-but-unconsumed presentation unit. The hand-off
// channel holds at most one, so production never races more than one
// code ahead of whatever is displaying it.
type Unit struct {
	Part  int
	Total int

	// serialized frame and its rendered image
	Payload []byte
	Image   []byte
}

type Session struct {
	filename string
	total    int
	chunks   []chunk.Chunk

	src      io.ReaderAt
	renderer codec.Renderer

	unitCh       chan *Unit
	stopCh       chan struct{}
	sendShutdown *shutdown.Shutdown
	logger       *log.PrefixLogger

	err error
	mu  sync.Mutex
}

// NewSession prepares frame production for one file. A non-nil subset
// restricts production to those parts, in the subset's own order;
// total is always computed from the full file size.
func NewSession(src io.ReaderAt, size int64, filename string, chunkSize int, subset []int, renderer codec.Renderer) (*Session, error) {
	if !chunk.IsValidChunkSize(chunkSize) {
		return nil, fmt.Errorf("invalid chunk size %d", chunkSize)
	}
	if filename == "" {
		return nil, fmt.Errorf("filename is required")
	}

	logger := log.NewPrefixLogger("send")
	logger.AddLogPrefix(filename)

	return &Session{
		filename:     filename,
		total:        chunk.Total(size, chunkSize),
		chunks:       chunk.Split(size, chunkSize, subset),
		src:          src,
		renderer:     renderer,
		unitCh:       make(chan *Unit, 1),
		stopCh:       make(chan struct{}),
		sendShutdown: shutdown.New(),
		logger:       logger,
	}, nil
}

func (s *Session) Total() int {
	return s.total
}

// Count is how many parts this session will produce (total, or the
// subset length on a remediation run).
func (s *Session) Count() int {
	return len(s.chunks)
}

// Start launches frame production. Publishing blocks once one unit is
// pending, and the unit channel is closed after the last part so the
// consumer can tell "done" from "temporarily empty".
func (s *Session) Start() {
	go s.produce()
}

// Next blocks for the next unit; ok is false once production ended.
func (s *Session) Next() (*Unit, bool) {
	unit, ok := <-s.unitCh
	return unit, ok
}

// Stop aborts production early. Safe to call once.
func (s *Session) Stop() {
	close(s.stopCh)
	s.sendShutdown.WaitDone()
}

// Err reports why production ended early, nil after a clean run.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Session) setErr(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

func (s *Session) produce() {
	// the close is the end marker, delivered on every exit path so
	// the consumer never hangs
	defer s.sendShutdown.Done()
	defer close(s.unitCh)

	for _, c := range s.chunks {
		buf := make([]byte, c.Size)
		if _, err := s.src.ReadAt(buf, c.Offset); err != nil {
			s.logger.Error("read part %d error: %v", c.Part, err)
			s.setErr(fmt.Errorf("source unreadable at part %d: %v", c.Part, err))
			return
		}

		payload, err := frame.Encode(c.Part, s.total, s.filename, buf)
		if err != nil {
			s.logger.Error("encode part %d error: %v", c.Part, err)
			s.setErr(err)
			return
		}

		img, err := s.renderer.Render(payload)
		if err != nil {
			s.logger.Error("render part %d error: %v", c.Part, err)
			s.setErr(err)
			return
		}

		unit := &Unit{
			Part:    c.Part,
			Total:   s.total,
			Payload: payload,
			Image:   img,
		}
		select {
		case s.unitCh <- unit:
			s.logger.Debug("published part %d/%d (%d bytes)", c.Part, s.total, c.Size)
		case <-s.stopCh:
			return
		}
	}
}
