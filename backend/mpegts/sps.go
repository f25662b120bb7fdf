package mpegts

import (
	"fmt"

	"github.com/Comcast/gots/v2/psi"
	"github.com/Eyevinn/mp4ff/avc"
	"github.com/Eyevinn/mp4ff/hevc"
	"github.com/Eyevinn/video-timestamps/common"
	"github.com/Eyevinn/video-timestamps/provider"
)

// spsParser looks for the first sequence parameter set of an AVC or HEVC
// stream and takes the nominal frame rate from its VUI timing info.
type spsParser struct {
	hevc      bool
	seen      bool
	haveRate  bool
	frameRate provider.Rational
}

// newSPSParser returns nil for stream types without a supported SPS.
func newSPSParser(streamType uint8) *spsParser {
	switch streamType {
	case psi.PmtStreamTypeMpeg4VideoH264:
		return &spsParser{}
	case psi.PmtStreamTypeMpeg4VideoH265:
		return &spsParser{hevc: true}
	}
	return nil
}

func (s *spsParser) done() bool {
	return s.seen
}

func (s *spsParser) parse(data []byte) error {
	for _, nalu := range avc.ExtractNalusFromByteStream(data) {
		if len(nalu) == 0 {
			continue
		}
		if s.hevc {
			if hevc.GetNaluType(nalu[0]) != hevc.NALU_SPS {
				continue
			}
			return s.setHEVC(nalu)
		}
		if avc.GetNaluType(nalu[0]) != avc.NALU_SPS {
			continue
		}
		return s.setAVC(nalu)
	}
	return nil
}

func (s *spsParser) setAVC(nalu []byte) error {
	sps, err := avc.ParseSPSNALUnit(nalu, true)
	if err != nil {
		return fmt.Errorf("parsing AVC SPS %w", err)
	}
	s.seen = true
	vui := sps.VUI
	if vui == nil || !vui.TimingInfoPresentFlag || vui.NumUnitsInTick == 0 {
		return nil
	}
	// one tick is a field, two make a frame
	num, den := common.ReduceFraction(int64(vui.TimeScale), 2*int64(vui.NumUnitsInTick))
	s.frameRate = provider.NewRational(num, den)
	s.haveRate = true
	return nil
}

// setHEVC only validates the SPS. HEVC frame rates are estimated from the PTS.
func (s *spsParser) setHEVC(nalu []byte) error {
	sps, err := hevc.ParseSPSNALUnit(nalu)
	if err != nil {
		return fmt.Errorf("parsing HEVC SPS %w", err)
	}
	s.seen = true
	if w, h := sps.ImageSize(); w == 0 || h == 0 {
		return fmt.Errorf("HEVC SPS with empty picture size")
	}
	return nil
}
