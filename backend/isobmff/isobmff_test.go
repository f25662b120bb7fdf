package isobmff

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Eyevinn/mp4ff/mp4"
	"github.com/Eyevinn/video-timestamps/provider"
	"github.com/stretchr/testify/require"
)

const (
	videoTimescale = 12800
	frameDur       = 512
	audioTimescale = 48000
)

func addSamples(t *testing.T, frag *mp4.Fragment, decodeTimes []uint64, dur uint32) {
	t.Helper()
	for i, dt := range decodeTimes {
		flags := mp4.NonSyncSampleFlags
		if i == 0 {
			flags = mp4.SyncSampleFlags
		}
		data := []byte{0, 0, 0, 2, 9, 0xf0}
		frag.AddFullSample(mp4.FullSample{
			Sample:     mp4.Sample{Flags: flags, Size: uint32(len(data)), Dur: dur},
			DecodeTime: dt,
			Data:       data,
		})
	}
}

// writeFragmented writes a CMAF-like file with a video track (index 0) in two
// fragments and an audio track (index 1) in one fragment between them.
func writeFragmented(t *testing.T, videoFrames int) string {
	t.Helper()
	init := mp4.CreateEmptyInit()
	init.AddEmptyTrack(videoTimescale, "video", "und")
	init.AddEmptyTrack(audioTimescale, "audio", "und")

	var first, second []uint64
	for i := 0; i < videoFrames; i++ {
		dt := uint64(i * frameDur)
		if i < videoFrames/2 {
			first = append(first, dt)
		} else {
			second = append(second, dt)
		}
	}

	v1, err := mp4.CreateFragment(1, 1)
	require.NoError(t, err)
	addSamples(t, v1, first, frameDur)
	a1, err := mp4.CreateFragment(2, 2)
	require.NoError(t, err)
	addSamples(t, a1, []uint64{0, 1024, 2048}, 1024)
	v2, err := mp4.CreateFragment(3, 1)
	require.NoError(t, err)
	addSamples(t, v2, second, frameDur)

	path := filepath.Join(t.TempDir(), "test.mp4")
	fh, err := os.Create(path)
	require.NoError(t, err)
	defer fh.Close()
	ftyp := mp4.NewFtyp("iso6", 0, []string{"iso6", "cmfc", "dash"})
	require.NoError(t, ftyp.Encode(fh))
	require.NoError(t, init.Moov.Encode(fh))
	for _, f := range []*mp4.Fragment{v1, a1, v2} {
		require.NoError(t, f.Encode(fh))
	}
	return path
}

func TestFragmentedTimestamps(t *testing.T) {
	path := writeFragmented(t, 10)
	rep, err := NewProvider(nil).Timestamps(path, 0)
	require.NoError(t, err)

	want := make([]int64, 10)
	for i := range want {
		want[i] = int64(i * frameDur)
	}
	require.Equal(t, want, rep.Timestamps)
	require.Equal(t, provider.Rational{Num: 1, Den: videoTimescale}, rep.TimeBase)
	require.Equal(t, provider.Rational{Num: 25, Den: 1}, rep.FrameRate)
}

type progressiveTrack struct {
	mediaType  string
	timescale  uint32
	sampleNr   uint32
	sttsCounts []uint32
	sttsDeltas []uint32
	ctts       *mp4.CttsBox
}

// writeProgressive writes a non-fragmented file with sample tables only, no
// mvex and no media data.
func writeProgressive(t *testing.T, tracks ...progressiveTrack) string {
	t.Helper()
	init := mp4.CreateEmptyInit()
	for i, pt := range tracks {
		init.AddEmptyTrack(pt.timescale, pt.mediaType, "und")
		stbl := init.Moov.Traks[i].Mdia.Minf.Stbl
		stbl.Stts.SampleCount = pt.sttsCounts
		stbl.Stts.SampleTimeDelta = pt.sttsDeltas
		stbl.Stsz.SampleNumber = pt.sampleNr
		if pt.sampleNr > 0 {
			stbl.Stsz.SampleUniformSize = 6
		}
		if pt.ctts != nil {
			stbl.AddChild(pt.ctts)
		}
	}
	children := init.Moov.Children[:0]
	for _, c := range init.Moov.Children {
		if c.Type() != "mvex" {
			children = append(children, c)
		}
	}
	init.Moov.Children = children
	init.Moov.Mvex = nil

	path := filepath.Join(t.TempDir(), "progressive.mp4")
	fh, err := os.Create(path)
	require.NoError(t, err)
	defer fh.Close()
	ftyp := mp4.NewFtyp("isom", 0x200, []string{"isom", "iso2", "avc1", "mp41"})
	require.NoError(t, ftyp.Encode(fh))
	require.NoError(t, init.Moov.Encode(fh))
	return path
}

func TestProgressiveTimestamps(t *testing.T) {
	// I P B B P in decode order, the B frames shown before the first P
	path := writeProgressive(t, progressiveTrack{
		mediaType:  "video",
		timescale:  videoTimescale,
		sampleNr:   5,
		sttsCounts: []uint32{5},
		sttsDeltas: []uint32{frameDur},
		ctts: &mp4.CttsBox{
			EndSampleNr:  []uint32{0, 1, 2, 4, 5},
			SampleOffset: []int32{frameDur, 3 * frameDur, 0, frameDur},
		},
	})
	rep, err := NewProvider(nil).Timestamps(path, 0)
	require.NoError(t, err)
	require.Equal(t, []int64{512, 1024, 1536, 2048, 2560}, rep.Timestamps)
	require.Equal(t, provider.Rational{Num: 1, Den: videoTimescale}, rep.TimeBase)
	require.Equal(t, provider.Rational{Num: 25, Den: 1}, rep.FrameRate)
}

func TestProgressiveEmptyFirstTrak(t *testing.T) {
	path := writeProgressive(t,
		progressiveTrack{mediaType: "audio", timescale: audioTimescale},
		progressiveTrack{
			mediaType:  "video",
			timescale:  videoTimescale,
			sampleNr:   4,
			sttsCounts: []uint32{4},
			sttsDeltas: []uint32{frameDur},
		})
	rep, err := NewProvider(nil).Timestamps(path, 1)
	require.NoError(t, err)
	require.Equal(t, []int64{0, 512, 1024, 1536}, rep.Timestamps)
	require.Equal(t, provider.Rational{Num: 25, Den: 1}, rep.FrameRate)
}

func TestProgressiveCorruptTables(t *testing.T) {
	cases := []struct {
		name  string
		track progressiveTrack
	}{
		{
			name: "stts short",
			track: progressiveTrack{
				sampleNr:   4,
				sttsCounts: []uint32{2},
				sttsDeltas: []uint32{frameDur},
			},
		},
		{
			name: "ctts short",
			track: progressiveTrack{
				sampleNr:   6,
				sttsCounts: []uint32{6},
				sttsDeltas: []uint32{frameDur},
				ctts: &mp4.CttsBox{
					EndSampleNr:  []uint32{0, 4},
					SampleOffset: []int32{frameDur},
				},
			},
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			c.track.mediaType = "video"
			c.track.timescale = videoTimescale
			path := writeProgressive(t, c.track)
			_, err := NewProvider(nil).Timestamps(path, 0)
			require.ErrorIs(t, err, provider.ErrBackend)
		})
	}
}

func TestDecodeTimes(t *testing.T) {
	stts := &mp4.SttsBox{SampleCount: []uint32{2, 3}, SampleTimeDelta: []uint32{1001, 2002}}
	pts, dur, err := decodeTimes(stts, 4)
	require.NoError(t, err)
	require.Equal(t, []int64{0, 1001, 2002, 4004}, pts)
	require.Equal(t, uint64(6006), dur)

	_, _, err = decodeTimes(stts, 6)
	require.EqualError(t, err, "stts covers 5 of 6 samples")

	_, _, err = decodeTimes(&mp4.SttsBox{SampleCount: []uint32{1}}, 1)
	require.Error(t, err)
}

func TestStreamValidation(t *testing.T) {
	p := NewProvider(nil)
	path := writeFragmented(t, 4)

	_, err := p.Timestamps(path, 1)
	var ke *provider.StreamKindError
	require.ErrorAs(t, err, &ke)
	require.Equal(t, "audio", ke.Label())
	require.ErrorIs(t, err, provider.ErrWrongStreamKind)

	_, err = p.Timestamps(path, 2)
	require.ErrorIs(t, err, provider.ErrInvalidIndex)
	_, err = p.Timestamps(path, -1)
	require.ErrorIs(t, err, provider.ErrInvalidIndex)
}

func TestListStreams(t *testing.T) {
	path := writeFragmented(t, 2)
	kinds, err := provider.ListStreams(New(nil), path)
	require.NoError(t, err)
	require.Equal(t, []provider.StreamKind{provider.StreamKindVideo, provider.StreamKindAudio}, kinds)
}

func TestOpenFailures(t *testing.T) {
	p := NewProvider(nil)
	dir := t.TempDir()

	_, err := p.Timestamps(filepath.Join(dir, "missing.mp4"), 0)
	require.ErrorIs(t, err, provider.ErrBackend)

	empty := filepath.Join(dir, "empty.mp4")
	require.NoError(t, os.WriteFile(empty, nil, 0644))
	_, err = p.Timestamps(empty, 0)
	require.ErrorIs(t, err, provider.ErrBackend)
}

func TestKindOf(t *testing.T) {
	cases := map[string]provider.StreamKind{
		"vide": provider.StreamKindVideo,
		"soun": provider.StreamKindAudio,
		"subt": provider.StreamKindSubtitle,
		"text": provider.StreamKindSubtitle,
		"meta": provider.StreamKindData,
		"tmcd": provider.StreamKindData,
		"xxxx": provider.StreamKindUnknown,
	}
	for hdlr, want := range cases {
		require.Equal(t, want, kindOf(hdlr), hdlr)
	}
}

func TestTrackProperties(t *testing.T) {
	tr := &track{pts: []int64{0, 1001, 2002}, timescale: 30000, duration: 3003}
	props, err := tr.Properties()
	require.NoError(t, err)
	require.Equal(t, provider.Rational{Num: 1, Den: 30000}, props.TimeBase)
	require.Equal(t, provider.Rational{Num: 30000, Den: 1001}, props.FrameRate)

	empty := &track{timescale: 1000}
	props, err = empty.Properties()
	require.NoError(t, err)
	require.Equal(t, provider.Rational{Num: 0, Den: 1}, props.FrameRate)

	_, err = (&track{}).Properties()
	require.Error(t, err)

	_, err = tr.FramePTS(3)
	require.Error(t, err)
}
