package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// encoder writes one record per tweet.
type encoder interface {
	Encode(v any) error
	Close() error
}

type jsonLines struct{ enc *json.Encoder }

func (j jsonLines) Encode(v any) error { return j.enc.Encode(v) }
func (j jsonLines) Close() error       { return nil }

// newEncoder returns a JSON-lines or multi-document YAML encoder.
func newEncoder(w io.Writer, format string) (encoder, error) {
	switch format {
	case "", "json":
		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(false)
		return jsonLines{enc: enc}, nil
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		return enc, nil
	}
	return nil, fmt.Errorf("unknown output format %q", format)
}
