package am

import (
	"encoding/json"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/teranos/framemark/errors"
)

// Output formats accepted by Render.
const (
	FormatTOML = "toml"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Render serializes the effective config in the given format.
func Render(c *Config, format string) ([]byte, error) {
	switch format {
	case "", FormatTOML:
		return toml.Marshal(c)
	case FormatJSON:
		return json.MarshalIndent(c, "", "  ")
	case FormatYAML:
		return yaml.Marshal(c)
	default:
		return nil, errors.Newf("unknown format %q (want toml, json or yaml)", format)
	}
}
