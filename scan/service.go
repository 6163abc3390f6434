package scan

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/qrflow/qrflow/pkg/chunk"
	"github.com/qrflow/qrflow/pkg/codec"
	fio "github.com/qrflow/qrflow/pkg/io"
	"github.com/qrflow/qrflow/pkg/log"
	"github.com/qrflow/qrflow/pkg/receiver"

	"github.com/cheggaaa/pb"
	"github.com/fatedier/golib/control/shutdown"
	"github.com/fsnotify/fsnotify"
)

type Options struct {
	WatchDir     string
	OutDir       string
	ChunkSize    int
	StallTimeout time.Duration

	LogFile    string
	LogLevel   string
	LogMaxDays int64
}

func (op *Options) Check() error {
	if op.WatchDir == "" {
		return fmt.Errorf("watch_dir is required")
	}
	if op.OutDir == "" {
		op.OutDir = "."
	}
	if op.ChunkSize == 0 {
		op.ChunkSize = 2048
	}
	if !chunk.IsValidChunkSize(op.ChunkSize) {
		return fmt.Errorf("chunk_size must be in [1, %d]", chunk.MaxChunkSize)
	}
	if op.StallTimeout <= 0 {
		op.StallTimeout = receiver.DefaultStallTimeout
	}
	if op.LogFile == "" {
		op.LogFile = "console"
	}
	if op.LogMaxDays <= 0 {
		op.LogMaxDays = 3
	}
	return nil
}

type Service struct {
	options Options
	session *receiver.Session
	decoder codec.Decoder
	watcher *fsnotify.Watcher

	bar  *pb.ProgressBar
	seen map[string]struct{}

	closeCh       chan struct{}
	doneCh        chan struct{}
	doneOnce      sync.Once
	watchShutdown *shutdown.Shutdown
	stallShutdown *shutdown.Shutdown
}

func NewService(options Options) (*Service, error) {
	if err := options.Check(); err != nil {
		return nil, err
	}
	log.InitLog(options.LogFile, options.LogLevel, options.LogMaxDays)

	if err := os.MkdirAll(options.OutDir, 0755); err != nil {
		return nil, err
	}

	session, err := receiver.NewSession(options.ChunkSize, options.StallTimeout, options.OutDir)
	if err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err = watcher.Add(options.WatchDir); err != nil {
		watcher.Close()
		return nil, err
	}

	svc := &Service{
		options:       options,
		session:       session,
		decoder:       codec.NewQRDecoder(),
		watcher:       watcher,
		seen:          make(map[string]struct{}),
		closeCh:       make(chan struct{}),
		doneCh:        make(chan struct{}),
		watchShutdown: shutdown.New(),
		stallShutdown: shutdown.New(),
	}
	session.OnProgress(svc.onProgress)
	return svc, nil
}

// Run scans captures already sitting in the watch directory, then
// tails it for new ones until the transfer completes, stalls out, or
// the operator interrupts. An interrupt persists the same draft and
// manifest a timeout would.
func (svc *Service) Run() error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	log.Info("scanning %s, waiting for the first part", svc.options.WatchDir)
	svc.processBacklog()

	if svc.session.State() == receiver.StateComplete {
		svc.watcher.Close()
	} else {
		go svc.watchLoop()
		go svc.stallLoop()

		select {
		case <-svc.doneCh:
		case <-sigCh:
			log.Info("interrupted")
			svc.session.Cancel()
		}
		svc.close()
	}

	if svc.bar != nil {
		svc.bar.Finish()
	}

	switch svc.session.State() {
	case receiver.StateComplete:
		return svc.writeOutput()
	case receiver.StateStalled:
		log.Warn("transfer incomplete, missing parts: %v", svc.session.Gaps())
		return nil
	default:
		log.Info("nothing captured")
		return nil
	}
}

func (svc *Service) close() {
	close(svc.closeCh)
	svc.watcher.Close()
	svc.watchShutdown.WaitDone()
	svc.stallShutdown.WaitDone()
}

func (svc *Service) done() {
	svc.doneOnce.Do(func() {
		close(svc.doneCh)
	})
}

// processBacklog feeds captures that arrived before we started, in
// name order so a generated series is replayed part by part.
func (svc *Service) processBacklog() {
	entries, err := os.ReadDir(svc.options.WatchDir)
	if err != nil {
		log.Warn("read %s error: %v", svc.options.WatchDir, err)
		return
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		svc.processFile(filepath.Join(svc.options.WatchDir, name))
		if svc.session.State() == receiver.StateComplete {
			return
		}
	}
}

func isCaptureImage(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png", ".jpg", ".jpeg":
		return true
	}
	return false
}

func (svc *Service) processFile(path string) {
	if !isCaptureImage(path) {
		return
	}
	if _, ok := svc.seen[path]; ok {
		return
	}

	f, err := os.Open(path)
	if err != nil {
		log.Debug("open capture %s error: %v", path, err)
		return
	}
	defer f.Close()

	payload, err := svc.decoder.Decode(f)
	if err != nil {
		// likely a capture still being written, a later event retries
		log.Debug("decode capture %s error: %v", path, err)
		return
	}
	svc.seen[path] = struct{}{}

	if payload == nil {
		log.Trace("no code in %s", path)
		return
	}
	svc.session.Feed(payload)
}

func (svc *Service) watchLoop() {
	defer svc.watchShutdown.Done()

	for {
		select {
		case ev, ok := <-svc.watcher.Events:
			if !ok {
				return
			}
			if ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write) {
				svc.processFile(ev.Name)
				if state := svc.session.State(); state == receiver.StateComplete {
					svc.done()
				}
			}
		case err, ok := <-svc.watcher.Errors:
			if !ok {
				return
			}
			log.Warn("watch error: %v", err)
		case <-svc.closeCh:
			return
		}
	}
}

func (svc *Service) stallLoop() {
	defer svc.stallShutdown.Done()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if svc.session.CheckStall() {
				svc.done()
				return
			}
			if svc.session.State() != receiver.StateIdle && svc.session.State() != receiver.StateCollecting {
				svc.done()
				return
			}
		case <-svc.closeCh:
			return
		}
	}
}

func (svc *Service) onProgress(part, held, total int) {
	if svc.bar == nil {
		svc.bar = pb.New(total)
		svc.bar.Start()
	}
	svc.bar.Set(held)
}

func (svc *Service) writeOutput() error {
	data, err := svc.session.Bytes()
	if err != nil {
		return err
	}

	path := filepath.Join(svc.options.OutDir, "RESTORED_"+svc.session.Filename())
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	bar := pb.New(len(data))
	bar.SetUnits(pb.U_BYTES)
	bar.Start()

	w := fio.NewCallbackWriter(f, func(n int) {
		bar.Add(n)
	})
	if _, err = io.Copy(w, bytes.NewReader(data)); err != nil {
		return err
	}
	bar.Finish()

	svc.session.DiscardArtifacts()
	log.Info("file reassembled as %s (%s)", path, pb.Format(int64(len(data))).String())
	return nil
}
