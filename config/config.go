// Package config loads the settings of the h2fs command: built-in defaults,
// then an optional YAML or JSONC file, then H2FS_* environment variables.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jnwhiteh/h2fs/common"
	"github.com/kelseyhightower/envconfig"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

const envPrefix = "H2FS"

type Config struct {
	Device    string `yaml:"device" json:"device" envconfig:"DEVICE"`
	BlockSize int    `yaml:"block_size" json:"block_size" envconfig:"BLOCK_SIZE"`
	Debug     bool   `yaml:"debug" json:"debug" envconfig:"DEBUG"`
}

func Default() Config {
	return Config{
		Device:    common.DEFAULT_DEVICE,
		BlockSize: common.DEFAULT_BLKSIZE,
	}
}

// Load builds a Config from the defaults, the file at path (skipped when
// path is empty) and the environment, in that order of precedence.
func Load(path string) (Config, error) {
	c := Default()
	if path != "" {
		if err := readFile(path, &c); err != nil {
			return Config{}, err
		}
	}
	if err := envconfig.Process(envPrefix, &c); err != nil {
		return Config{}, fmt.Errorf("failed to read environment: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func readFile(path string, c *Config) error {
	bs, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file %s: %w", path, err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(bs, c); err != nil {
			return fmt.Errorf("error reading %s: failed to parse yaml: %w", path, err)
		}
	case ".json", ".jsonc":
		bs = jsonc.ToJSONInPlace(bs)
		if err := json.Unmarshal(bs, c); err != nil {
			return fmt.Errorf("error reading %s: failed to parse json: %w", path, err)
		}
	default:
		return fmt.Errorf("error reading %s: unknown config format %q", path, ext)
	}
	return nil
}

func (c Config) Validate() error {
	if c.Device == "" {
		return fmt.Errorf("%w: no device configured", common.ErrInvalid)
	}
	if !common.ValidBlockSize(c.BlockSize) {
		return fmt.Errorf("%w: block size %d", common.ErrBlockSize, c.BlockSize)
	}
	return nil
}
