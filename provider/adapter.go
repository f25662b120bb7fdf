package provider

import (
	"github.com/sirupsen/logrus"
	slices "golang.org/x/exp/slices"
)

// Adapter implements Provider on top of a Backend. It holds no per-call
// state, so one Adapter may serve calls from several goroutines as long as
// the backend allows it.
type Adapter struct {
	backend Backend
	log     *logrus.Entry
}

// NewAdapter returns an Adapter for backend. A nil log uses the standard logger.
func NewAdapter(backend Backend, log *logrus.Entry) *Adapter {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Adapter{backend: backend, log: log}
}

// Timestamps implements Provider.
func (a *Adapter) Timestamps(path string, streamIndex int) (rep Report, err error) {
	c, err := a.backend.Open(path)
	if err != nil {
		return Report{}, backendError("opening", path, err)
	}
	defer func() {
		if cerr := c.Close(); cerr != nil && err == nil {
			rep, err = Report{}, backendError("closing", path, cerr)
		}
	}()

	if streamIndex < 0 || streamIndex >= c.NumStreams() {
		return Report{}, &IndexError{Index: streamIndex, Path: path}
	}
	if kind := c.StreamKind(streamIndex); kind != StreamKindVideo {
		return Report{}, &StreamKindError{Index: streamIndex, Kind: kind}
	}

	t, err := c.OpenVideoTrack(streamIndex)
	if err != nil {
		return Report{}, backendError("indexing video track of", path, err)
	}
	defer t.Close()

	nrFrames := t.NumFrames()
	pts := make([]int64, 0, nrFrames)
	for n := 0; n < nrFrames; n++ {
		p, err := t.FramePTS(n)
		if err != nil {
			return Report{}, backendError("reading frame info of", path, err)
		}
		if p == NoPTS {
			continue
		}
		pts = append(pts, p)
	}
	slices.Sort(pts)

	props, err := t.Properties()
	if err != nil {
		return Report{}, backendError("reading video properties of", path, err)
	}

	if dropped := nrFrames - len(pts); dropped > 0 {
		a.log.WithFields(logrus.Fields{
			"path":    path,
			"stream":  streamIndex,
			"dropped": dropped,
		}).Debug("frames without PTS skipped")
	}

	return Report{
		Timestamps: pts,
		TimeBase:   props.TimeBase,
		FrameRate:  props.FrameRate,
	}, nil
}

// ListStreams opens path and returns the kind of each stream.
func ListStreams(b Backend, path string) ([]StreamKind, error) {
	c, err := b.Open(path)
	if err != nil {
		return nil, backendError("opening", path, err)
	}
	defer c.Close()

	kinds := make([]StreamKind, c.NumStreams())
	for i := range kinds {
		kinds[i] = c.StreamKind(i)
	}
	return kinds, nil
}
