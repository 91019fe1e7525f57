package cmd

import (
	"bytes"
	"io"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/inference-sim/cloudlet-sim/sim"
)

// loadConfig reads a YAML testbed description on top of DefaultConfig, so a
// file only needs the keys it changes. Unknown keys are rejected.
func loadConfig(path string) (sim.Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return sim.Config{}, errors.Wrapf(err, "reading config %s", path)
	}
	return parseConfig(data, cfg)
}

// parseConfig decodes data over base with strict field checking. An empty
// document leaves base unchanged.
func parseConfig(data []byte, base sim.Config) (sim.Config, error) {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&base); err != nil && err != io.EOF {
		return sim.Config{}, errors.Wrap(err, "parsing config YAML")
	}
	return base, nil
}

// marshalConfig renders cfg as YAML for the config command.
func marshalConfig(cfg sim.Config) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return nil, errors.Wrap(err, "encoding config YAML")
	}
	if err := enc.Close(); err != nil {
		return nil, errors.Wrap(err, "encoding config YAML")
	}
	return buf.Bytes(), nil
}
