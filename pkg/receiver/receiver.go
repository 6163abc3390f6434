package receiver

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/qrflow/qrflow/pkg/assemble"
	"github.com/qrflow/qrflow/pkg/chunk"
	"github.com/qrflow/qrflow/pkg/frame"
	"github.com/qrflow/qrflow/pkg/log"
	"github.com/qrflow/qrflow/pkg/manifest"
)

type State uint8

const (
	// StateIdle: no valid frame seen yet.
	StateIdle State = iota
	// StateCollecting: transfer identity known, parts accumulating.
	StateCollecting
	// StateComplete: every part held, terminal.
	StateComplete
	// StateStalled: gave up with gaps, draft and manifest persisted, terminal.
	StateStalled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCollecting:
		return "collecting"
	case StateComplete:
		return "complete"
	case StateStalled:
		return "stalled"
	}
	return "unknown"
}

// DefaultStallTimeout is how long the session waits for a new part
// before giving up on the current attempt.
const DefaultStallTimeout = 60 * time.Second

// TimeProvider abstracts the stall clock for deterministic tests.
type TimeProvider interface {
	Now() time.Time
	Since(t time.Time) time.Duration
}

type systemTime struct{}

func (systemTime) Now() time.Time                  { return time.Now() }
func (systemTime) Since(t time.Time) time.Duration { return time.Since(t) }

type Session struct {
	chunkSize    int
	stallTimeout time.Duration
	outDir       string
	clock        TimeProvider
	logger       *log.PrefixLogger

	state    State
	filename string
	total    int
	parts    map[int][]byte
	resumed  int

	lastNew    time.Time
	lastIgnore string

	// called with (part, held, total) for every newly stored part
	progressCallback func(part, held, total int)

	mu sync.Mutex
}

// NewSession creates a receiver for one transfer attempt. outDir is
// where output, draft and manifest files live; a draft left there by a
// previous attempt at the same filename is picked up automatically.
func NewSession(chunkSize int, stallTimeout time.Duration, outDir string) (*Session, error) {
	if !chunk.IsValidChunkSize(chunkSize) {
		return nil, fmt.Errorf("invalid chunk size %d", chunkSize)
	}
	if stallTimeout <= 0 {
		stallTimeout = DefaultStallTimeout
	}

	return &Session{
		chunkSize:    chunkSize,
		stallTimeout: stallTimeout,
		outDir:       outDir,
		clock:        systemTime{},
		logger:       log.NewPrefixLogger("recv"),
		state:        StateIdle,
		parts:        make(map[int][]byte),
	}, nil
}

// SetTimeProvider swaps the stall clock, for tests.
func (s *Session) SetTimeProvider(tp TimeProvider) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clock = tp
	if !s.lastNew.IsZero() {
		s.lastNew = tp.Now()
	}
}

func (s *Session) OnProgress(callback func(part, held, total int)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.progressCallback = callback
}

// Feed hands one scanned payload to the session and reports whether it
// stored a new part. It never fails on arbitrary input: unrelated
// codes, broken frames, duplicates and frames for a different transfer
// are all absorbed here with at most a deduplicated diagnostic.
func (s *Session) Feed(payload []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateComplete || s.state == StateStalled {
		return false
	}

	f, err := frame.Decode(payload)
	if err != nil {
		if errors.Is(err, frame.ErrMalformed) {
			s.ignore("unrelated code on the channel, ignoring")
		} else {
			s.ignore(fmt.Sprintf("broken frame, ignoring: %v", err))
		}
		return false
	}

	if s.state == StateIdle {
		s.adopt(f)
	} else if f.Filename != s.filename || f.Total != s.total {
		s.ignore(fmt.Sprintf("frame for different transfer [%s] total %d, ignoring", f.Filename, f.Total))
		return false
	}

	if _, ok := s.parts[f.Part]; ok {
		s.logger.Trace("duplicate part %d", f.Part)
		return false
	}

	s.parts[f.Part] = f.Data
	s.lastNew = s.clock.Now()
	s.lastIgnore = ""
	s.logger.Info("captured part %d/%d [%d of %d]", f.Part, s.total, len(s.parts), s.total)

	if s.progressCallback != nil {
		s.progressCallback(f.Part, len(s.parts), s.total)
	}

	if len(s.parts) == s.total {
		s.state = StateComplete
		s.logger.Info("all %d parts captured", s.total)
	}
	return true
}

// adopt locks the transfer identity from the first valid frame and
// pre-populates state from a leftover draft, so a remediation run does
// not have to re-capture parts it already holds.
func (s *Session) adopt(f *frame.Frame) {
	s.filename = f.Filename
	s.total = f.Total
	s.state = StateCollecting
	s.logger.AddLogPrefix(s.filename)
	s.logger.Info("new transfer: %d parts expected", s.total)

	s.tryResume()
}

func (s *Session) tryResume() {
	buf, err := os.ReadFile(s.DraftPath())
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("read draft error: %v", err)
		}
		return
	}
	if int64(len(buf)) > int64(s.total)*int64(s.chunkSize) {
		s.logger.Warn("draft does not fit this transfer, ignoring it")
		return
	}

	held := assemble.FromDraft(buf, s.chunkSize)
	for part, data := range held {
		if part >= 1 && part <= s.total {
			s.parts[part] = data
		}
	}
	s.resumed = len(s.parts)
	if s.resumed > 0 {
		s.logger.Info("resumed %d parts from draft", s.resumed)
	}
}

// CheckStall fires the stall transition when no new part arrived
// within the timeout. It returns true exactly once, on the transition.
// A session that never captured anything is exempt: the timeout
// governs "stuck partway", not "never started".
func (s *Session) CheckStall() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateCollecting {
		return false
	}
	if len(s.parts) == 0 || s.lastNew.IsZero() {
		return false
	}
	if s.clock.Since(s.lastNew) <= s.stallTimeout {
		return false
	}

	s.stall(fmt.Sprintf("no new part within %v", s.stallTimeout))
	return true
}

// Cancel is the operator's interrupt. It runs the same draft and
// manifest persistence as a timeout. Returns false when there was
// nothing to persist.
func (s *Session) Cancel() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateCollecting {
		return false
	}
	s.stall("cancelled by operator")
	return true
}

func (s *Session) stall(reason string) {
	gaps := assemble.Gaps(s.parts, s.total)
	if len(gaps) == 0 {
		// complete via another path, nothing to remediate
		s.logger.Warn("%s, but no parts are missing", reason)
		s.state = StateComplete
		return
	}

	s.state = StateStalled
	s.logger.Warn("%s: holding %d/%d parts", reason, len(s.parts), s.total)
	s.persist(gaps)
}

// persist writes the draft and the remediation manifest. Failures are
// reported along with the gap list so the operator can retry by hand.
func (s *Session) persist(gaps []int) {
	draft := assemble.Draft(s.parts, s.total, s.chunkSize)
	if err := os.WriteFile(s.DraftPath(), draft, 0644); err != nil {
		s.logger.Error("write draft error: %v; missing parts: %v", err, gaps)
	} else {
		s.logger.Info("draft saved to %s (%d bytes)", s.DraftPath(), len(draft))
	}

	m := manifest.New(s.filename, s.total, gaps)
	if err := m.Save(s.ManifestPath()); err != nil {
		s.logger.Error("write manifest error: %v; missing parts: %v", err, gaps)
	} else {
		s.logger.Info("manifest saved to %s, missing parts: %v", s.ManifestPath(), gaps)
	}
}

// ignore reports an ignored payload once, until something new is
// stored or a different condition shows up. The channel is shared with
// unrelated codes, so this is normal operation, not a fault.
func (s *Session) ignore(message string) {
	if message == s.lastIgnore {
		return
	}
	s.lastIgnore = message
	s.logger.Debug("%s", message)
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Filename() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filename
}

func (s *Session) Total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total
}

func (s *Session) Held() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.parts)
}

// Resumed is how many parts came out of a leftover draft.
func (s *Session) Resumed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resumed
}

func (s *Session) Gaps() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return assemble.Gaps(s.parts, s.total)
}

// Bytes reassembles the completed transfer.
func (s *Session) Bytes() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return assemble.Assemble(s.parts, s.total)
}

func (s *Session) DraftPath() string {
	return filepath.Join(s.outDir, s.filename+".draft")
}

func (s *Session) ManifestPath() string {
	return filepath.Join(s.outDir, s.filename+".manifest.json")
}

// DiscardArtifacts removes a leftover draft and manifest after a
// successful reassembly.
func (s *Session) DiscardArtifacts() {
	for _, path := range []string{s.DraftPath(), s.ManifestPath()} {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("remove %s error: %v", path, err)
		}
	}
}
