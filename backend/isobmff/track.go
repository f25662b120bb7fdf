package isobmff

import (
	"fmt"

	"github.com/Eyevinn/mp4ff/mp4"
	"github.com/Eyevinn/video-timestamps/common"
	"github.com/Eyevinn/video-timestamps/provider"
)

type track struct {
	pts       []int64
	timescale uint32
	// sum of sample durations in timescale units
	duration uint64
}

func indexProgressive(trak *mp4.TrakBox) (*track, error) {
	if trak.Mdia.Minf == nil || trak.Mdia.Minf.Stbl == nil {
		return nil, fmt.Errorf("trak %d has no stbl", trak.Tkhd.TrackID)
	}
	stbl := trak.Mdia.Minf.Stbl
	if stbl.Stsz == nil || stbl.Stts == nil {
		return nil, fmt.Errorf("trak %d has no stsz or stts", trak.Tkhd.TrackID)
	}

	n := stbl.Stsz.SampleNumber
	t := &track{timescale: trak.Mdia.Mdhd.Timescale}
	pts, dur, err := decodeTimes(stbl.Stts, n)
	if err != nil {
		return nil, fmt.Errorf("trak %d %w", trak.Tkhd.TrackID, err)
	}
	if stbl.Ctts != nil {
		if err := addCompositionOffsets(pts, stbl.Ctts); err != nil {
			return nil, fmt.Errorf("trak %d %w", trak.Tkhd.TrackID, err)
		}
	}
	t.pts = pts
	t.duration = dur
	return t, nil
}

// decodeTimes expands the stts run lengths into the decode times of the first
// n samples. It fails if the table describes fewer than n samples.
func decodeTimes(stts *mp4.SttsBox, n uint32) ([]int64, uint64, error) {
	if len(stts.SampleCount) != len(stts.SampleTimeDelta) {
		return nil, 0, fmt.Errorf("stts has %d counts but %d deltas", len(stts.SampleCount), len(stts.SampleTimeDelta))
	}
	pts := make([]int64, 0, n)
	var decodeTime, dur uint64
	for i, count := range stts.SampleCount {
		delta := uint64(stts.SampleTimeDelta[i])
		for j := uint32(0); j < count && uint32(len(pts)) < n; j++ {
			pts = append(pts, int64(decodeTime))
			decodeTime += delta
			dur += delta
		}
		if uint32(len(pts)) == n {
			break
		}
	}
	if uint32(len(pts)) < n {
		return nil, 0, fmt.Errorf("stts covers %d of %d samples", len(pts), n)
	}
	return pts, dur, nil
}

// addCompositionOffsets adds the ctts offsets to the decode times in pts.
// Entry i applies to the samples EndSampleNr[i] to EndSampleNr[i+1]-1 counted
// from zero.
func addCompositionOffsets(pts []int64, ctts *mp4.CttsBox) error {
	if len(ctts.EndSampleNr) != len(ctts.SampleOffset)+1 {
		return fmt.Errorf("ctts has %d end samples for %d offsets", len(ctts.EndSampleNr), len(ctts.SampleOffset))
	}
	n := uint32(len(pts))
	if last := ctts.EndSampleNr[len(ctts.EndSampleNr)-1]; last < n {
		return fmt.Errorf("ctts covers %d of %d samples", last, n)
	}
	for i, off := range ctts.SampleOffset {
		end := min(ctts.EndSampleNr[i+1], n)
		for idx := ctts.EndSampleNr[i]; idx < end; idx++ {
			pts[idx] += int64(off)
		}
	}
	return nil
}

// indexFragmented collects the samples of the track from every fragment of
// every segment, in file order.
func (c *container) indexFragmented(trak *mp4.TrakBox) (*track, error) {
	trackID := trak.Tkhd.TrackID
	var trex *mp4.TrexBox
	if c.moov.Mvex != nil {
		for _, tx := range c.moov.Mvex.Trexs {
			if tx.TrackID == trackID {
				trex = tx
				break
			}
		}
	}

	t := &track{timescale: trak.Mdia.Mdhd.Timescale}
	for _, seg := range c.file.Segments {
		for _, frag := range seg.Fragments {
			if frag.Moof == nil || !hasTraf(frag.Moof, trackID) {
				continue
			}
			if len(frag.Moof.Trafs) > 1 {
				return nil, fmt.Errorf("fragment %d has %d trafs, only single-track fragments are supported",
					frag.Moof.Mfhd.SequenceNumber, len(frag.Moof.Trafs))
			}
			samples, err := frag.GetFullSamples(trex)
			if err != nil {
				return nil, fmt.Errorf("getting samples of fragment %d %w", frag.Moof.Mfhd.SequenceNumber, err)
			}
			for _, s := range samples {
				t.pts = append(t.pts, int64(s.DecodeTime)+int64(s.CompositionTimeOffset))
				t.duration += uint64(s.Dur)
			}
		}
	}
	return t, nil
}

func hasTraf(moof *mp4.MoofBox, trackID uint32) bool {
	for _, traf := range moof.Trafs {
		if traf.Tfhd != nil && traf.Tfhd.TrackID == trackID {
			return true
		}
	}
	return false
}

func (t *track) NumFrames() int {
	return len(t.pts)
}

func (t *track) FramePTS(n int) (int64, error) {
	if n < 0 || n >= len(t.pts) {
		return 0, fmt.Errorf("sample %d out of range [0,%d)", n, len(t.pts))
	}
	return t.pts[n], nil
}

// Properties reports 1/timescale as time base and the average frame rate
// frames*timescale/duration, reduced. An empty track has frame rate 0/1.
func (t *track) Properties() (provider.TrackProperties, error) {
	if t.timescale == 0 {
		return provider.TrackProperties{}, fmt.Errorf("mdhd timescale is 0")
	}
	frameRate := provider.NewRational(0, 1)
	if t.duration > 0 && len(t.pts) > 0 {
		num, den := common.ReduceFraction(int64(len(t.pts))*int64(t.timescale), int64(t.duration))
		frameRate = provider.NewRational(num, den)
	}
	return provider.TrackProperties{
		TimeBase:  provider.NewRational(1, int64(t.timescale)),
		FrameRate: frameRate,
	}, nil
}

func (t *track) Close() error {
	return nil
}
