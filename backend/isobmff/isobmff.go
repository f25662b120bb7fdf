// Package isobmff reads frame timestamps from ISO base media files (MP4, MOV,
// CMAF) using mp4ff. Both progressive and fragmented files are supported.
package isobmff

import (
	"fmt"
	"os"

	"github.com/Eyevinn/mp4ff/mp4"
	"github.com/Eyevinn/video-timestamps/provider"
	"github.com/sirupsen/logrus"
)

// Backend implements provider.Backend for ISO BMFF files.
type Backend struct {
	log *logrus.Entry
}

// New returns an ISO BMFF backend. A nil log uses the standard logger.
func New(log *logrus.Entry) *Backend {
	if log == nil {
		log = logrus.WithField("component", "isobmff")
	}
	return &Backend{log: log}
}

// NewProvider returns a provider.Adapter backed by an ISO BMFF Backend.
func NewProvider(log *logrus.Entry) *provider.Adapter {
	b := New(log)
	return provider.NewAdapter(b, b.log)
}

type container struct {
	path  string
	fh    *os.File
	file  *mp4.File
	moov  *mp4.MoovBox
	traks []*mp4.TrakBox
	log   *logrus.Entry
}

// Open decodes the box structure of the file. The streams are the traks of
// the moov box, which for fragmented files is the one in the init segment.
func (b *Backend) Open(path string) (provider.Container, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	f, err := mp4.DecodeFile(fh)
	if err != nil {
		fh.Close()
		return nil, fmt.Errorf("decoding mp4 %w", err)
	}
	moov := f.Moov
	if f.IsFragmented() && f.Init != nil {
		moov = f.Init.Moov
	}
	if moov == nil {
		fh.Close()
		return nil, fmt.Errorf("no moov box")
	}
	b.log.WithFields(logrus.Fields{
		"path":       path,
		"streams":    len(moov.Traks),
		"fragmented": f.IsFragmented(),
	}).Debug("opened mp4")
	return &container{path: path, fh: fh, file: f, moov: moov, traks: moov.Traks, log: b.log}, nil
}

func (c *container) NumStreams() int {
	return len(c.traks)
}

func (c *container) StreamKind(index int) provider.StreamKind {
	trak := c.traks[index]
	if trak.Mdia == nil || trak.Mdia.Hdlr == nil {
		return provider.StreamKindUnknown
	}
	return kindOf(trak.Mdia.Hdlr.HandlerType)
}

func kindOf(handlerType string) provider.StreamKind {
	switch handlerType {
	case "vide":
		return provider.StreamKindVideo
	case "soun":
		return provider.StreamKindAudio
	case "subt", "sbtl", "text", "clcp":
		return provider.StreamKindSubtitle
	case "meta", "hint", "tmcd":
		return provider.StreamKindData
	default:
		return provider.StreamKindUnknown
	}
}

func (c *container) OpenVideoTrack(index int) (provider.VideoTrack, error) {
	trak := c.traks[index]
	if trak.Mdia == nil || trak.Mdia.Mdhd == nil {
		return nil, fmt.Errorf("trak %d has no mdhd", index)
	}
	var (
		t   *track
		err error
	)
	// mp4ff flags a file as fragmented when the first trak has an empty stts,
	// so a progressive file starting with an empty trak needs the stbl walk.
	if c.file.IsFragmented() && (len(c.file.Segments) > 0 || !hasSamples(trak)) {
		t, err = c.indexFragmented(trak)
	} else {
		t, err = indexProgressive(trak)
	}
	if err != nil {
		return nil, err
	}
	c.log.WithFields(logrus.Fields{"trackID": trak.Tkhd.TrackID, "frames": len(t.pts)}).Debug("indexed track")
	return t, nil
}

func hasSamples(trak *mp4.TrakBox) bool {
	minf := trak.Mdia.Minf
	return minf != nil && minf.Stbl != nil && minf.Stbl.Stsz != nil && minf.Stbl.Stsz.SampleNumber > 0
}

func (c *container) Close() error {
	return c.fh.Close()
}
