package app

import (
	"bytes"
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Eyevinn/video-timestamps/internal/config"
	"github.com/Eyevinn/video-timestamps/provider"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	kinds []provider.StreamKind
	pts   []int64
	delay time.Duration
	opens atomic.Int32
}

func (b *fakeBackend) Open(path string) (provider.Container, error) {
	b.opens.Add(1)
	if path == "broken.ts" {
		return nil, errors.New("no sync byte")
	}
	return &fakeContainer{b: b}, nil
}

type fakeContainer struct{ b *fakeBackend }

func (c *fakeContainer) NumStreams() int { return len(c.b.kinds) }
func (c *fakeContainer) StreamKind(i int) provider.StreamKind { return c.b.kinds[i] }
func (c *fakeContainer) Close() error { return nil }
func (c *fakeContainer) OpenVideoTrack(int) (provider.VideoTrack, error) {
	time.Sleep(c.b.delay)
	return &fakeTrack{pts: c.b.pts}, nil
}

type fakeTrack struct{ pts []int64 }

func (t *fakeTrack) NumFrames() int { return len(t.pts) }
func (t *fakeTrack) FramePTS(n int) (int64, error) { return t.pts[n], nil }
func (t *fakeTrack) Close() error { return nil }
func (t *fakeTrack) Properties() (provider.TrackProperties, error) {
	return provider.TrackProperties{TimeBase: provider.TimeBase90kHz, FrameRate: provider.NewRational(25, 1)}, nil
}

func TestBackendFor(t *testing.T) {
	cases := []struct {
		configured string
		path       string
		want       string
	}{
		{"auto", "movie.MP4", BackendMP4},
		{"auto", "seg_001.m4s", BackendMP4},
		{"auto", "clip.mov", BackendMP4},
		{"", "stream.ts", BackendMPEGTS},
		{"auto", "bluray.m2ts", BackendMPEGTS},
		{"auto", "movie.mkv", BackendFFprobe},
		{"auto", "noext", BackendFFprobe},
		{"ffprobe", "stream.ts", BackendFFprobe},
		{"mpegts", "weird.bin", BackendMPEGTS},
	}
	for _, c := range cases {
		t.Run(c.path, func(t *testing.T) {
			assert.Equal(t, c.want, BackendFor(c.configured, c.path))
		})
	}
}

func TestBackendFactory(t *testing.T) {
	cfg := &config.Config{FFprobePath: "/nonexistent/ffprobe"}
	f := NewBackendFactory(cfg, nil)

	b, err := f(BackendMP4)
	require.NoError(t, err)
	require.NotNil(t, b)
	b, err = f(BackendMPEGTS)
	require.NoError(t, err)
	require.NotNil(t, b)

	_, err = f(BackendFFprobe)
	require.Error(t, err)
	_, err = f("vlc")
	require.Error(t, err)
}

func TestTimestamps(t *testing.T) {
	fb := &fakeBackend{
		kinds: []provider.StreamKind{provider.StreamKindVideo, provider.StreamKindAudio},
		pts:   []int64{7200, provider.NoPTS, 0, 3600},
	}
	created := map[string]int{}
	factory := func(name string) (provider.Backend, error) {
		created[name]++
		if name == BackendFFprobe {
			return nil, errors.New("ffprobe is not available in PATH")
		}
		return fb, nil
	}
	progress := &bytes.Buffer{}
	r := NewRunner(Options{Backend: BackendAuto, Workers: 3, Progress: progress}, factory, nil)

	files := []string{"a.ts", "b.ts", "broken.ts", "c.mkv", "d.mp4"}
	records := r.Timestamps(context.Background(), files, 0)
	require.Len(t, records, len(files))

	for i, rec := range records {
		assert.Equal(t, files[i], rec.File)
	}
	require.NotNil(t, records[0].Report)
	assert.Equal(t, []int64{0, 3600, 7200}, records[0].Report.Timestamps)
	assert.Equal(t, provider.NewRational(25, 1), records[0].Report.FrameRate)
	assert.Equal(t, BackendMPEGTS, records[0].Backend)

	assert.Contains(t, records[2].Error, "no sync byte")
	assert.Nil(t, records[2].Report)
	assert.Contains(t, records[3].Error, "ffprobe is not available")
	assert.Equal(t, BackendMP4, records[4].Backend)
	assert.Equal(t, 2, Failed(records))

	// one backend per name however many files use it
	assert.Equal(t, map[string]int{BackendMPEGTS: 1, BackendFFprobe: 1, BackendMP4: 1}, created)
	assert.Equal(t, int32(4), fb.opens.Load())
}

func TestTimestampsErrorsPerRecord(t *testing.T) {
	fb := &fakeBackend{kinds: []provider.StreamKind{provider.StreamKindVideo, provider.StreamKindAudio}}
	r := NewRunner(Options{Backend: BackendMPEGTS, Workers: 2}, func(string) (provider.Backend, error) { return fb, nil }, nil)

	records := r.Timestamps(context.Background(), []string{"a.ts"}, 1)
	assert.Contains(t, records[0].Error, `it is an "audio" stream`)

	records = r.Timestamps(context.Background(), []string{"a.ts"}, 5)
	assert.Contains(t, records[0].Error, "index 5 is not in the file a.ts")
}

func TestTimestampsTimeout(t *testing.T) {
	fb := &fakeBackend{kinds: []provider.StreamKind{provider.StreamKindVideo}, pts: []int64{0}, delay: 200 * time.Millisecond}
	r := NewRunner(Options{Backend: BackendMPEGTS, Workers: 1, Timeout: 10 * time.Millisecond},
		func(string) (provider.Backend, error) { return fb, nil }, nil)

	records := r.Timestamps(context.Background(), []string{"slow.ts"}, 0)
	assert.Equal(t, context.DeadlineExceeded.Error(), records[0].Error)
}

func TestListStreams(t *testing.T) {
	fb := &fakeBackend{kinds: []provider.StreamKind{provider.StreamKindVideo, provider.StreamKindAudio, provider.StreamKindData}}
	r := NewRunner(Options{Backend: BackendAuto, Workers: 4}, func(string) (provider.Backend, error) { return fb, nil }, nil)

	records := r.ListStreams([]string{"a.ts", "broken.ts"})
	assert.Equal(t, []string{"video", "audio", "data"}, records[0].Streams)
	assert.Empty(t, records[0].Error)
	assert.Contains(t, records[1].Error, "no sync byte")
}
