// Package app runs timestamp extraction and stream listing over a batch of
// files for the command line tools.
package app

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/Eyevinn/video-timestamps/provider"
	"github.com/schollz/progressbar/v3"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Record is the outcome for one file. Exactly one of Report and Error is set.
type Record struct {
	File    string           `json:"file" yaml:"file"`
	Stream  int              `json:"stream" yaml:"stream"`
	Backend string           `json:"backend" yaml:"backend"`
	Report  *provider.Report `json:"report,omitempty" yaml:"report,omitempty"`
	Error   string           `json:"error,omitempty" yaml:"error,omitempty"`
}

// StreamsRecord lists the stream kinds of one file.
type StreamsRecord struct {
	File    string   `json:"file" yaml:"file"`
	Backend string   `json:"backend" yaml:"backend"`
	Streams []string `json:"streams,omitempty" yaml:"streams,omitempty"`
	Error   string   `json:"error,omitempty" yaml:"error,omitempty"`
}

type Options struct {
	Backend string // auto or a backend name
	Workers int
	Timeout time.Duration // per file, 0 disables
	// Progress receives a progress bar when not nil.
	Progress io.Writer
}

// Runner processes files concurrently. Backends are created once per name
// and shared by the workers.
type Runner struct {
	opts    Options
	factory BackendFactory
	log     *logrus.Logger

	mu       sync.Mutex
	backends map[string]backendResult
}

type backendResult struct {
	backend provider.Backend
	err     error
}

func NewRunner(opts Options, factory BackendFactory, log *logrus.Logger) *Runner {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Runner{opts: opts, factory: factory, log: log, backends: map[string]backendResult{}}
}

func (r *Runner) backend(name string) (provider.Backend, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	res, ok := r.backends[name]
	if !ok {
		res.backend, res.err = r.factory(name)
		r.backends[name] = res
	}
	return res.backend, res.err
}

func (r *Runner) newBar(n int, description string) *progressbar.ProgressBar {
	if r.opts.Progress == nil {
		return progressbar.DefaultSilent(int64(n), description)
	}
	return progressbar.NewOptions(n,
		progressbar.OptionSetWriter(r.opts.Progress),
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
}

// forEach runs fn for every file with at most Workers in flight.
func (r *Runner) forEach(files []string, description string, fn func(i int, file string)) {
	bar := r.newBar(len(files), description)
	defer bar.Finish()

	var g errgroup.Group
	g.SetLimit(r.opts.Workers)
	for i, file := range files {
		i, file := i, file
		g.Go(func() error {
			fn(i, file)
			_ = bar.Add(1)
			return nil
		})
	}
	_ = g.Wait()
}

// Timestamps extracts the timestamps of stream streamIndex from every file.
// Records come back in the order of files. Failures are reported per record.
// Cancelling ctx ends the pending files with the context error.
func (r *Runner) Timestamps(ctx context.Context, files []string, streamIndex int) []Record {
	records := make([]Record, len(files))
	r.forEach(files, "indexing", func(i int, file string) {
		name := BackendFor(r.opts.Backend, file)
		rec := Record{File: file, Stream: streamIndex, Backend: name}
		defer func() { records[i] = rec }()

		b, err := r.backend(name)
		if err != nil {
			rec.Error = err.Error()
			return
		}
		log := r.log.WithFields(logrus.Fields{"file": file, "backend": name})
		p := provider.NewAdapter(b, log)

		fctx := ctx
		if r.opts.Timeout > 0 {
			var cancel context.CancelFunc
			fctx, cancel = context.WithTimeout(ctx, r.opts.Timeout)
			defer cancel()
		}
		start := time.Now()
		rep, err := provider.Run(fctx, p, file, streamIndex)
		if err != nil {
			log.WithError(err).Debug("extraction failed")
			rec.Error = err.Error()
			return
		}
		log.WithFields(logrus.Fields{
			"frames":  len(rep.Timestamps),
			"fps":     rep.FrameRate.Float64(),
			"elapsed": time.Since(start),
		}).Debug("extracted timestamps")
		rec.Report = &rep
	})
	return records
}

// ListStreams returns the stream kinds of every file.
func (r *Runner) ListStreams(files []string) []StreamsRecord {
	records := make([]StreamsRecord, len(files))
	r.forEach(files, "probing", func(i int, file string) {
		name := BackendFor(r.opts.Backend, file)
		rec := StreamsRecord{File: file, Backend: name}
		defer func() { records[i] = rec }()

		b, err := r.backend(name)
		if err != nil {
			rec.Error = err.Error()
			return
		}
		kinds, err := provider.ListStreams(b, file)
		if err != nil {
			rec.Error = err.Error()
			return
		}
		rec.Streams = make([]string, len(kinds))
		for j, k := range kinds {
			rec.Streams[j] = k.String()
		}
	})
	return records
}

// Failed counts the records with an error.
func Failed(records []Record) int {
	n := 0
	for _, rec := range records {
		if rec.Error != "" {
			n++
		}
	}
	return n
}
