package mpegts

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/Eyevinn/video-timestamps/common"
	"github.com/Eyevinn/video-timestamps/provider"
	"github.com/asticode/go-astits"
	"github.com/sirupsen/logrus"
	slices "golang.org/x/exp/slices"
)

type track struct {
	pts       []int64
	frameRate provider.Rational
}

// indexTrack runs one demux pass over the whole file and collects the PTS of
// every PES packet on the stream's PID.
func indexTrack(fh *os.File, es elementaryStream, log *logrus.Entry) (*track, error) {
	if _, err := fh.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("rewinding %w", err)
	}
	rd := bufio.NewReaderSize(fh, 1000*common.PacketSize)
	dmx := astits.NewDemuxer(context.Background(), rd)

	t := &track{}
	sps := newSPSParser(es.streamType)
	var prev int64
	havePrev := false
	for {
		d, err := dmx.NextData()
		if err != nil {
			if errors.Is(err, astits.ErrNoMorePackets) {
				break
			}
			return nil, fmt.Errorf("reading next data %w", err)
		}
		if d.PES == nil || int(d.PID) != es.pid {
			continue
		}

		if sps != nil && !sps.done() {
			if err := sps.parse(d.PES.Data); err != nil {
				log.WithError(err).WithField("pid", es.pid).Debug("ignoring SPS")
			}
		}

		hdr := d.PES.Header
		if hdr == nil || hdr.OptionalHeader == nil || hdr.OptionalHeader.PTS == nil {
			t.pts = append(t.pts, provider.NoPTS)
			continue
		}
		p := hdr.OptionalHeader.PTS.Base
		if havePrev {
			p = common.UnwrapPTS(prev, p)
		}
		prev, havePrev = p, true
		t.pts = append(t.pts, p)
	}

	if sps != nil && sps.haveRate {
		t.frameRate = sps.frameRate
	} else {
		valid := make([]int64, 0, len(t.pts))
		for _, p := range t.pts {
			if p != provider.NoPTS {
				valid = append(valid, p)
			}
		}
		slices.Sort(valid)
		num, den := common.EstimateFrameRate(valid, common.TimeScale)
		t.frameRate = provider.NewRational(num, den)
	}
	return t, nil
}

func (t *track) NumFrames() int {
	return len(t.pts)
}

func (t *track) FramePTS(n int) (int64, error) {
	if n < 0 || n >= len(t.pts) {
		return 0, fmt.Errorf("frame %d out of range [0,%d)", n, len(t.pts))
	}
	return t.pts[n], nil
}

func (t *track) Properties() (provider.TrackProperties, error) {
	return provider.TrackProperties{
		TimeBase:  provider.TimeBase90kHz,
		FrameRate: t.frameRate,
	}, nil
}

func (t *track) Close() error {
	return nil
}
