package internal

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Printer writes one JSON line or one YAML document per Print call. The first
// error is kept and all later prints are skipped.
type Printer struct {
	W        io.Writer
	Format   string
	Indent   bool
	AccError error
}

func (p *Printer) Print(data any, show bool) {
	if !show {
		return
	}
	if p.AccError != nil {
		return
	}
	var out []byte
	var err error
	switch p.Format {
	case FormatYAML:
		out, err = yaml.Marshal(data)
		if err == nil {
			_, p.AccError = fmt.Fprintf(p.W, "---\n%s", out)
		}
	default:
		if p.Indent {
			out, err = json.MarshalIndent(data, "", "  ")
		} else {
			out, err = json.Marshal(data)
		}
		if err == nil {
			_, p.AccError = fmt.Fprintln(p.W, string(out))
		}
	}
	if err != nil {
		p.AccError = err
	}
}

func (p *Printer) Error() error {
	return p.AccError
}
