package common

import (
	"math/big"
)

const (
	PacketSize = 188
	PtsWrap    = 1 << 33
	TimeScale  = 90000
)

func SignedPTSDiff(p2, p1 int64) int64 {
	return (p2-p1+3*PtsWrap/2)%PtsWrap - PtsWrap/2
}

// UnwrapPTS extends a 33-bit PTS to a monotonic 64-bit value given the
// previous unwrapped value. Steps are taken modulo the wrap, so a jump of
// more than half the wrap period is seen as going backwards.
func UnwrapPTS(prevUnwrapped, cur int64) int64 {
	return prevUnwrapped + SignedPTSDiff(cur, prevUnwrapped%PtsWrap)
}

// EstimateFrameRate derives frames per second from sorted timestamps as
// (n-1) * timescale / (last - first), reduced. It returns 0/1 when there are
// fewer than two timestamps or they span no time.
func EstimateFrameRate(sorted []int64, timescale int64) (num, den int64) {
	if len(sorted) < 2 {
		return 0, 1
	}
	span := sorted[len(sorted)-1] - sorted[0]
	if span <= 0 {
		return 0, 1
	}
	r := new(big.Rat).SetFrac(big.NewInt(int64(len(sorted)-1)*timescale), big.NewInt(span))
	return r.Num().Int64(), r.Denom().Int64()
}

// ReduceFraction returns num/den in lowest terms with a positive denominator.
// A zero denominator is returned unchanged.
func ReduceFraction(num, den int64) (int64, int64) {
	if den == 0 {
		return num, den
	}
	r := big.NewRat(num, den)
	return r.Num().Int64(), r.Denom().Int64()
}
