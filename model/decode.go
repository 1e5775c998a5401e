// SPDX-License-Identifier: MIT

package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Format names a serialization of Model.
type Format string

// Supported formats.
const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// FormatFromPath infers the format from a file extension; unknown
// extensions default to JSON.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	case ".toml":
		return FormatTOML
	default:
		return FormatJSON
	}
}

// Decode reads one Model in format from r, rejecting unknown fields, and
// validates it.
func Decode(r io.Reader, format Format) (*Model, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("model: read: %w", err)
	}
	m := &Model{}
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		err = dec.Decode(m)
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		err = dec.Decode(m)
		if errors.Is(err, io.EOF) {
			err = errors.New("empty document")
		}
	case FormatTOML:
		var md toml.MetaData
		md, err = toml.Decode(string(data), m)
		if err == nil {
			if undecoded := md.Undecoded(); len(undecoded) > 0 {
				err = fmt.Errorf("unknown keys %v", undecoded)
			}
		}
	default:
		return nil, fmt.Errorf("model: unsupported format %q: %w", format, ErrInvalidModel)
	}
	if err != nil {
		return nil, fmt.Errorf("model: decode %s: %v: %w", format, err, ErrInvalidModel)
	}
	if err = m.Validate(); err != nil {
		return nil, err
	}

	return m, nil
}

// Load opens path and decodes it in the format implied by its extension.
func Load(path string) (*Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("model: %w", err)
	}
	defer f.Close()

	return Decode(f, FormatFromPath(path))
}
