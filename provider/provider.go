// Package provider defines the frame timestamp provider contract and the
// adapter that implements it on top of a decoding backend.
//
// A Provider returns, for one video stream of a media file, the sorted
// presentation timestamps of its frames together with the stream's time base
// and frame rate. Concrete backends live in the backend/ packages and only
// implement the small Backend interface; the Adapter does the validation,
// sentinel filtering and sorting for all of them.
package provider

import (
	"context"
	"math"
)

// NoPTS is the reserved "no timestamp" value. Backends return it for frames
// without a presentation timestamp and such frames never reach a Report.
const NoPTS int64 = math.MinInt64

// Report is the result of one extraction.
type Report struct {
	// Timestamps are the frame PTS values in ascending order, in units of TimeBase.
	Timestamps []int64  `json:"timestamps" yaml:"timestamps"`
	TimeBase   Rational `json:"timeBase" yaml:"timeBase"`
	// FrameRate is the nominal rate. It is advisory for variable frame rate content.
	FrameRate Rational `json:"frameRate" yaml:"frameRate"`
}

// Provider produces a frame timestamp report for a stream of a media file.
type Provider interface {
	Timestamps(path string, streamIndex int) (Report, error)
}

// Backend opens media containers. Implementations decide how (and whether)
// the path is validated.
type Backend interface {
	Open(path string) (Container, error)
}

// Container is an opened media container.
type Container interface {
	NumStreams() int
	StreamKind(index int) StreamKind
	// OpenVideoTrack indexes every frame of the stream. It may scan the whole file.
	OpenVideoTrack(index int) (VideoTrack, error)
	Close() error
}

// VideoTrack is a frame-indexed video stream.
type VideoTrack interface {
	NumFrames() int
	// FramePTS returns the PTS of frame n in enumeration order, or NoPTS.
	FramePTS(n int) (int64, error)
	Properties() (TrackProperties, error)
	Close() error
}

// TrackProperties is the timing metadata of an indexed track.
type TrackProperties struct {
	TimeBase  Rational
	FrameRate Rational
}

type result struct {
	report Report
	err    error
}

// Run calls p.Timestamps on a separate goroutine and gives up when ctx is
// done. The abandoned call still runs to completion in the background.
func Run(ctx context.Context, p Provider, path string, streamIndex int) (Report, error) {
	ch := make(chan result, 1)
	go func() {
		r, err := p.Timestamps(path, streamIndex)
		ch <- result{report: r, err: err}
	}()
	select {
	case <-ctx.Done():
		return Report{}, ctx.Err()
	case res := <-ch:
		return res.report, res.err
	}
}
