// Package ffprobe reads frame timestamps by running the ffprobe binary and
// parsing its JSON output. It accepts any container ffprobe can demux.
package ffprobe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/Eyevinn/video-timestamps/provider"
	"github.com/sirupsen/logrus"
)

// Runner runs an external command and returns what it wrote to stdout and
// stderr.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

// Backend implements provider.Backend on top of ffprobe.
type Backend struct {
	binary  string
	runner  Runner
	timeout time.Duration
	log     *logrus.Entry
}

type Option func(*Backend)

// WithPath sets a custom ffprobe binary. It must be an existing file.
func WithPath(path string) Option {
	return func(b *Backend) { b.binary = path }
}

// WithRunner replaces the command runner.
func WithRunner(r Runner) Option {
	return func(b *Backend) { b.runner = r }
}

// WithTimeout bounds every ffprobe invocation. Zero means no limit.
func WithTimeout(d time.Duration) Option {
	return func(b *Backend) { b.timeout = d }
}

// New resolves the ffprobe binary, either the custom path or ffprobe from
// PATH, and returns a backend using it.
func New(log *logrus.Entry, opts ...Option) (*Backend, error) {
	if log == nil {
		log = logrus.WithField("component", "ffprobe")
	}
	b := &Backend{runner: execRunner{}, log: log}
	for _, o := range opts {
		o(b)
	}
	if b.binary != "" {
		fi, err := os.Stat(b.binary)
		if err != nil {
			return nil, fmt.Errorf("custom ffprobe path %w", err)
		}
		if fi.IsDir() {
			return nil, fmt.Errorf("custom ffprobe path %s is a directory", b.binary)
		}
		return b, nil
	}
	path, err := exec.LookPath("ffprobe")
	if err != nil {
		return nil, fmt.Errorf("ffprobe is not available in PATH %w", err)
	}
	b.binary = path
	return b, nil
}

// NewProvider returns a provider.Adapter backed by an ffprobe Backend.
func NewProvider(log *logrus.Entry, opts ...Option) (*provider.Adapter, error) {
	b, err := New(log, opts...)
	if err != nil {
		return nil, err
	}
	return provider.NewAdapter(b, b.log), nil
}

// Binary returns the resolved ffprobe path.
func (b *Backend) Binary() string {
	return b.binary
}

func (b *Backend) run(args ...string) ([]byte, error) {
	ctx := context.Background()
	if b.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}
	b.log.WithField("args", args).Debug("running ffprobe")
	stdout, stderr, err := b.runner.Run(ctx, b.binary, args...)
	if err != nil {
		return nil, fmt.Errorf("ffprobe reported an error %q %w", strings.TrimSpace(string(stderr)), err)
	}
	return stdout, nil
}

type streamEntry struct {
	Index        int    `json:"index"`
	CodecType    string `json:"codec_type"`
	TimeBase     string `json:"time_base"`
	AvgFrameRate string `json:"avg_frame_rate"`
}

type packetEntry struct {
	PTS *int64 `json:"pts"`
	DTS *int64 `json:"dts"`
}

type probeOutput struct {
	Streams []streamEntry `json:"streams"`
	Packets []packetEntry `json:"packets"`
}

type container struct {
	b     *Backend
	path  string
	kinds []provider.StreamKind
}

// Open lists the streams of the file with their codec types.
func (b *Backend) Open(path string) (provider.Container, error) {
	out, err := b.run("-v", "error", "-hide_banner",
		"-show_entries", "stream=index,codec_type", "-of", "json", path)
	if err != nil {
		return nil, err
	}
	var po probeOutput
	if err := json.Unmarshal(out, &po); err != nil {
		return nil, fmt.Errorf("parsing ffprobe streams %w", err)
	}
	kinds := make([]provider.StreamKind, len(po.Streams))
	for i, s := range po.Streams {
		kinds[i] = provider.StreamKindFromString(s.CodecType)
	}
	return &container{b: b, path: path, kinds: kinds}, nil
}

func (c *container) NumStreams() int {
	return len(c.kinds)
}

func (c *container) StreamKind(index int) provider.StreamKind {
	return c.kinds[index]
}

// OpenVideoTrack reads the packet timestamps of one stream. A packet without
// pts falls back to its dts, and to NoPTS when it has neither.
func (c *container) OpenVideoTrack(index int) (provider.VideoTrack, error) {
	out, err := c.b.run("-v", "error", "-hide_banner",
		"-select_streams", strconv.Itoa(index),
		"-show_entries", "packet=pts,dts:stream=codec_type,time_base,avg_frame_rate",
		"-of", "json", c.path)
	if err != nil {
		return nil, err
	}
	var po probeOutput
	if err := json.Unmarshal(out, &po); err != nil {
		return nil, fmt.Errorf("parsing ffprobe packets %w", err)
	}
	if len(po.Streams) == 0 {
		return nil, fmt.Errorf("ffprobe returned no stream for index %d", index)
	}

	t := &track{pts: make([]int64, 0, len(po.Packets))}
	for _, p := range po.Packets {
		switch {
		case p.PTS != nil:
			t.pts = append(t.pts, *p.PTS)
		case p.DTS != nil:
			t.pts = append(t.pts, *p.DTS)
		default:
			t.pts = append(t.pts, provider.NoPTS)
		}
	}
	t.timeBase, t.frameRate = po.Streams[0].TimeBase, po.Streams[0].AvgFrameRate
	return t, nil
}

func (c *container) Close() error {
	return nil
}

type track struct {
	pts       []int64
	timeBase  string
	frameRate string
}

func (t *track) NumFrames() int {
	return len(t.pts)
}

func (t *track) FramePTS(n int) (int64, error) {
	if n < 0 || n >= len(t.pts) {
		return 0, fmt.Errorf("packet %d out of range [0,%d)", n, len(t.pts))
	}
	return t.pts[n], nil
}

func (t *track) Properties() (provider.TrackProperties, error) {
	tb, err := provider.ParseRational(t.timeBase)
	if err != nil {
		return provider.TrackProperties{}, fmt.Errorf("time_base %w", err)
	}
	fr, err := provider.ParseRational(t.frameRate)
	if err != nil {
		return provider.TrackProperties{}, fmt.Errorf("avg_frame_rate %w", err)
	}
	return provider.TrackProperties{TimeBase: tb, FrameRate: fr}, nil
}

func (t *track) Close() error {
	return nil
}
