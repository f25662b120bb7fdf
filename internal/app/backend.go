package app

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/Eyevinn/video-timestamps/backend/ffprobe"
	"github.com/Eyevinn/video-timestamps/backend/isobmff"
	"github.com/Eyevinn/video-timestamps/backend/mpegts"
	"github.com/Eyevinn/video-timestamps/internal/config"
	"github.com/Eyevinn/video-timestamps/internal/logger"
	"github.com/Eyevinn/video-timestamps/provider"
	"github.com/sirupsen/logrus"
	slices "golang.org/x/exp/slices"
)

const (
	BackendAuto    = "auto"
	BackendMP4     = "mp4"
	BackendMPEGTS  = "mpegts"
	BackendFFprobe = "ffprobe"
)

var (
	mp4Extensions    = []string{".mp4", ".m4v", ".mov", ".m4s", ".cmfv", ".3gp"}
	mpegtsExtensions = []string{".ts", ".m2ts", ".mts", ".tsv"}
)

// BackendFor returns the backend name to use for path. Anything but auto is
// returned as is. Unknown extensions go to ffprobe.
func BackendFor(configured, path string) string {
	if configured != "" && configured != BackendAuto {
		return configured
	}
	ext := strings.ToLower(filepath.Ext(path))
	switch {
	case slices.Contains(mp4Extensions, ext):
		return BackendMP4
	case slices.Contains(mpegtsExtensions, ext):
		return BackendMPEGTS
	default:
		return BackendFFprobe
	}
}

// BackendFactory creates the backend with the given name.
type BackendFactory func(name string) (provider.Backend, error)

// NewBackendFactory returns a factory building the backends from cfg and
// logging through log.
func NewBackendFactory(cfg *config.Config, log *logrus.Logger) BackendFactory {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return func(name string) (provider.Backend, error) {
		switch name {
		case BackendMP4:
			return isobmff.New(logger.WithComponent(log, "isobmff")), nil
		case BackendMPEGTS:
			return mpegts.New(logger.WithComponent(log, "mpegts")), nil
		case BackendFFprobe:
			return ffprobe.New(logger.WithComponent(log, "ffprobe"),
				ffprobe.WithPath(cfg.FFprobePath), ffprobe.WithTimeout(cfg.Timeout))
		}
		return nil, fmt.Errorf("unknown backend %q", name)
	}
}
