// Package mpegts reads frame timestamps from MPEG-2 transport streams.
//
// The program tables are read with gots and the PES pass is done with
// go-astits. Every PES packet on the selected PID counts as one frame.
package mpegts

import (
	"bufio"
	"fmt"
	"os"

	"github.com/Comcast/gots/v2/packet"
	"github.com/Comcast/gots/v2/psi"
	"github.com/Eyevinn/video-timestamps/provider"
	"github.com/sirupsen/logrus"
)

const (
	streamTypePrivateData = 0x06
	streamTypeMetadata    = 0x15
)

// Backend implements provider.Backend for transport streams.
type Backend struct {
	log *logrus.Entry
}

// New returns a transport stream backend. A nil log uses the standard logger.
func New(log *logrus.Entry) *Backend {
	if log == nil {
		log = logrus.WithField("component", "mpegts")
	}
	return &Backend{log: log}
}

// NewProvider returns a provider.Adapter backed by a transport stream Backend.
func NewProvider(log *logrus.Entry) *provider.Adapter {
	b := New(log)
	return provider.NewAdapter(b, b.log)
}

type elementaryStream struct {
	pid        int
	streamType uint8
	kind       provider.StreamKind
}

type container struct {
	path    string
	fh      *os.File
	streams []elementaryStream
	log     *logrus.Entry
}

// Open reads the PAT and the PMT of the first program. The streams of that
// program, in PMT order, are the container's streams.
func (b *Backend) Open(path string) (provider.Container, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	streams, err := readStreams(fh)
	if err != nil {
		fh.Close()
		return nil, err
	}
	b.log.WithFields(logrus.Fields{"path": path, "streams": len(streams)}).Debug("opened transport stream")
	return &container{path: path, fh: fh, streams: streams, log: b.log}, nil
}

func readStreams(fh *os.File) ([]elementaryStream, error) {
	reader := bufio.NewReader(fh)
	_, err := packet.Sync(reader)
	if err != nil {
		return nil, fmt.Errorf("syncing with reader %w", err)
	}
	pat, err := psi.ReadPAT(reader)
	if err != nil {
		return nil, fmt.Errorf("reading PAT %w", err)
	}

	pmtPID, progNr := -1, -1
	for nr, pid := range pat.ProgramMap() {
		if progNr < 0 || int(nr) < progNr {
			progNr, pmtPID = int(nr), int(pid)
		}
	}
	if pmtPID < 0 {
		return nil, fmt.Errorf("no program in PAT")
	}

	pmt, err := psi.ReadPMT(reader, pmtPID)
	if err != nil {
		return nil, fmt.Errorf("reading PMT %w", err)
	}

	var streams []elementaryStream
	for _, es := range pmt.ElementaryStreams() {
		streams = append(streams, elementaryStream{
			pid:        es.ElementaryPid(),
			streamType: es.StreamType(),
			kind:       kindOf(es),
		})
	}
	return streams, nil
}

func kindOf(es psi.PmtElementaryStream) provider.StreamKind {
	switch {
	case es.IsVideoContent():
		return provider.StreamKindVideo
	case es.IsAudioContent():
		return provider.StreamKindAudio
	}
	switch es.StreamType() {
	case psi.PmtStreamTypeScte35, streamTypePrivateData, streamTypeMetadata:
		return provider.StreamKindData
	}
	return provider.StreamKindUnknown
}

func (c *container) NumStreams() int {
	return len(c.streams)
}

func (c *container) StreamKind(index int) provider.StreamKind {
	return c.streams[index].kind
}

func (c *container) OpenVideoTrack(index int) (provider.VideoTrack, error) {
	t, err := indexTrack(c.fh, c.streams[index], c.log)
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (c *container) Close() error {
	return c.fh.Close()
}
