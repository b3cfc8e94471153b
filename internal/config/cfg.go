package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	yaml "gopkg.in/yaml.v3"

	"github.com/rupor-github/gencfg"

	"github.com/metcalfc/folio/internal/display"
)

// AppName names the program in logs and default file locations.
const AppName = "folio"

//go:embed config.yaml.tmpl
var ConfigTmpl []byte

type (
	ReaderConfig struct {
		Columns   int           `yaml:"columns" validate:"min=1,max=2"`
		Autosave  time.Duration `yaml:"autosave" validate:"gte=0"`
		Threshold float64       `yaml:"finished_threshold" validate:"gt=0,lte=1"`
		CacheTTL  time.Duration `yaml:"cache_ttl" validate:"gte=0"`
		// TocHeading is the heading of the generated table of contents.
		TocHeading string `yaml:"toc_heading"`
	}

	StorageConfig struct {
		Driver string `yaml:"driver" validate:"oneof=json sqlite postgres"`
		DSN    string `yaml:"dsn" validate:"required_if=Driver postgres"`
		User   string `yaml:"user" validate:"required"`
	}

	Config struct {
		Version int              `yaml:"version" validate:"eq=1"`
		Reader  ReaderConfig     `yaml:"reader"`
		Display display.Settings `yaml:"display"`
		Storage StorageConfig    `yaml:"storage"`
		Logging LoggingConfig    `yaml:"logging"`
	}
)

func unmarshalConfig(data []byte, cfg *Config, process bool) (*Config, error) {
	// We want to use only fields we defined so we cannot use yaml.Unmarshal
	// directly here
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration data: %w", err)
	}
	if process {
		if err := gencfg.Sanitize(cfg); err != nil {
			return nil, err
		}
		if err := gencfg.Validate(cfg); err != nil {
			return nil, err
		}
		if err := cfg.Display.Validate(); err != nil {
			return nil, fmt.Errorf("display: %w", err)
		}
	}
	return cfg, nil
}

// LoadConfiguration reads the configuration from the file at the given path,
// superimposes its values on top of the embedded defaults and performs
// validation. An empty path means defaults only.
func LoadConfiguration(path string, options ...func(*gencfg.ProcessingOptions)) (*Config, error) {
	haveFile := len(path) > 0

	data, err := gencfg.Process(ConfigTmpl, options...)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	cfg, err := unmarshalConfig(data, &Config{}, !haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	if !haveFile {
		return cfg, nil
	}

	// overwrite cfg values with values from the file
	data, err = os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err = unmarshalConfig(data, cfg, haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration file: %w", err)
	}
	return cfg, nil
}

// DefaultPath returns XDG_CONFIG_HOME/folio/config.yaml.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, AppName, "config.yaml")
}

// Prepare generates configuration file from template and returns it as a byte
// slice.
func Prepare() ([]byte, error) {
	return gencfg.Process(ConfigTmpl)
}

func Dump(cfg *Config) ([]byte, error) {
	data, err := yaml.Marshal(*cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config to yaml: %v", err)
	}
	return data, nil
}
