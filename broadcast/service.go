package broadcast

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/qrflow/qrflow/pkg/chunk"
	"github.com/qrflow/qrflow/pkg/codec"
	fio "github.com/qrflow/qrflow/pkg/io"
	"github.com/qrflow/qrflow/pkg/log"
	"github.com/qrflow/qrflow/pkg/manifest"
	"github.com/qrflow/qrflow/pkg/sender"

	"github.com/cheggaaa/pb"
	"golang.org/x/time/rate"
)

type Options struct {
	SrcFile      string
	OutDir       string
	ChunkSize    int
	Rate         float64
	QRSize       int
	ManifestFile string

	LogFile    string
	LogLevel   string
	LogMaxDays int64
}

func (op *Options) Check() error {
	if op.SrcFile == "" {
		return fmt.Errorf("src_file is required")
	}
	if op.OutDir == "" {
		op.OutDir = "qr_series_output"
	}
	if op.ChunkSize == 0 {
		op.ChunkSize = 2048
	}
	if !chunk.IsValidChunkSize(op.ChunkSize) {
		return fmt.Errorf("chunk_size must be in [1, %d]", chunk.MaxChunkSize)
	}
	if op.Rate <= 0 {
		op.Rate = 1
	}
	if op.QRSize <= 0 {
		op.QRSize = 1000
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
}

func NewService(options Options) (*Service, error) {
	if err := options.Check(); err != nil {
		return nil, err
	}
	log.InitLog(options.LogFile, options.LogLevel, options.LogMaxDays)

	return &Service{
		options: options,
	}, nil
}

// Run renders the whole series, one code image per part, paced at the
// configured rate. With a manifest only the missing parts are produced.
func (svc *Service) Run() error {
	f, err := os.Open(svc.options.SrcFile)
	if err != nil {
		return err
	}
	defer f.Close()

	finfo, err := f.Stat()
	if err != nil {
		return err
	}
	if finfo.IsDir() {
		return fmt.Errorf("src file can't be a directory")
	}
	name := finfo.Name()
	size := finfo.Size()

	var subset []int
	if svc.options.ManifestFile != "" {
		m, err := manifest.Load(svc.options.ManifestFile)
		if err != nil {
			return err
		}
		// abort before producing a single frame on the wrong file
		if m.Filename != name {
			return fmt.Errorf("manifest is for [%s], not [%s]", m.Filename, name)
		}
		if total := chunk.Total(size, svc.options.ChunkSize); total != m.TotalParts {
			return fmt.Errorf("manifest expects %d parts but [%s] splits into %d, chunk size mismatch?",
				m.TotalParts, name, total)
		}
		subset = m.Missing
		log.Info("remediation run for [%s]: %d missing parts", name, len(subset))
	}

	if err = os.MkdirAll(svc.options.OutDir, 0755); err != nil {
		return err
	}

	var readBytes int
	src := fio.NewCallbackReaderAt(f, func(n int) {
		readBytes += n
	})

	s, err := sender.NewSession(src, size, name, svc.options.ChunkSize,
		subset, codec.NewQRRenderer(svc.options.QRSize))
	if err != nil {
		return err
	}

	fmt.Printf("Source file: %s Size: %s Parts: %d\n", name, pb.Format(size).String(), s.Total())

	bar := pb.New(s.Count())
	bar.Start()

	limiter := rate.NewLimiter(rate.Limit(svc.options.Rate), 1)
	s.Start()

	count := 0
	for {
		unit, ok := s.Next()
		if !ok {
			break
		}
		if err := limiter.Wait(context.Background()); err != nil {
			s.Stop()
			return err
		}

		imgName := fmt.Sprintf("%s_part_%03d_of_%03d.png", name, unit.Part, unit.Total)
		if err := os.WriteFile(filepath.Join(svc.options.OutDir, imgName), unit.Image, 0644); err != nil {
			s.Stop()
			return err
		}
		log.Debug("wrote %s", imgName)
		bar.Increment()
		count++
	}
	bar.Finish()

	if err := s.Err(); err != nil {
		return err
	}
	log.Info("%d codes (%s of payload) written to %s", count, pb.Format(int64(readBytes)).String(), svc.options.OutDir)
	return nil
}
