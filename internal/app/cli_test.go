package app

import (
	"testing"

	"github.com/Eyevinn/video-timestamps/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestOutputIndent(t *testing.T) {
	on, off := true, false
	cases := []struct {
		name     string
		indent   *bool
		terminal bool
		want     bool
	}{
		{"unset on terminal", nil, true, true},
		{"unset on pipe", nil, false, false},
		{"false on terminal", &off, true, false},
		{"true on pipe", &on, false, true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := outputIndent(config.OutputConfig{Format: "json", Indent: c.indent}, c.terminal)
			assert.Equal(t, c.want, got)
		})
	}
}
