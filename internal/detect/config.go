package detect

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Detector types understood by the chain configuration
const (
	TypePigo    = "pigo"
	TypeSidecar = "sidecar"
	TypeHTTP    = "http"
)

// ChainConfig is the detector chain file. Order is priority order.
//
//	detectors:
//	  - name: ssd
//	    type: sidecar
//	    command: ["python3", "tools/ssd_detector.py"]
//	  - name: pigo
//	    type: pigo
//	    cascade: models/facefinder
//	    min_quality: 5
type ChainConfig struct {
	Detectors []DetectorConfig `yaml:"detectors"`
}

// DetectorConfig describes one link of the chain
type DetectorConfig struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`

	// pigo
	Cascade    string  `yaml:"cascade"`
	MinSize    int     `yaml:"min_size"`
	MaxSize    int     `yaml:"max_size"`
	MinQuality float32 `yaml:"min_quality"`

	// sidecar
	Command []string `yaml:"command"`
	Dir     string   `yaml:"dir"`
	Env     []string `yaml:"env"`

	// http
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

// Defaults supplies values for chains built from a plain list of names
type Defaults struct {
	PigoCascade    string
	SidecarCommand string
	URL            string
	Timeout        time.Duration
}

// ParseChainConfig parses YAML content into a ChainConfig
func ParseChainConfig(data []byte) (*ChainConfig, error) {
	var config ChainConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse detector chain: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// LoadChainConfig reads a detector chain file
func LoadChainConfig(path string) (*ChainConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseChainConfig(data)
}

// ChainConfigFromNames builds a chain from a comma separated list such as
// "sidecar,pigo". Each entry is both the name and the type of the detector.
func ChainConfigFromNames(list string, defaults Defaults) (*ChainConfig, error) {
	config := &ChainConfig{}
	for _, name := range strings.Split(list, ",") {
		name = strings.TrimSpace(strings.ToLower(name))
		if name == "" {
			continue
		}
		dc := DetectorConfig{Name: name, Type: name}
		switch name {
		case TypePigo:
			dc.Cascade = defaults.PigoCascade
		case TypeSidecar:
			dc.Command = strings.Fields(defaults.SidecarCommand)
		case TypeHTTP:
			dc.URL = defaults.URL
			dc.Timeout = defaults.Timeout
		}
		config.Detectors = append(config.Detectors, dc)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks names and required fields. It does not load anything.
func (c *ChainConfig) Validate() error {
	seen := make(map[string]bool, len(c.Detectors))
	for i, d := range c.Detectors {
		if d.Name == "" {
			return fmt.Errorf("detector %d: name is required", i)
		}
		if seen[d.Name] {
			return fmt.Errorf("detector %s: duplicate name", d.Name)
		}
		seen[d.Name] = true

		switch d.Type {
		case TypePigo:
		case TypeSidecar:
			if len(d.Command) == 0 {
				return fmt.Errorf("detector %s: command is required", d.Name)
			}
		case TypeHTTP:
			if d.URL == "" {
				return fmt.Errorf("detector %s: url is required", d.Name)
			}
		default:
			return fmt.Errorf("detector %s: %w %q", d.Name, ErrUnknownDetector, d.Type)
		}
	}
	return nil
}

// Build returns the chain as lazily loaded detectors, in priority order.
// Nothing is loaded until the first detection.
func (c *ChainConfig) Build() ([]Detector, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	detectors := make([]Detector, 0, len(c.Detectors))
	for _, d := range c.Detectors {
		load, err := d.loader()
		if err != nil {
			return nil, err
		}
		detectors = append(detectors, NewLazy(d.Name, load))
	}
	return detectors, nil
}

// CheckFiles reports pigo cascades that cannot be read. The chain still
// builds; those detectors fail their loads until the file appears.
func (c *ChainConfig) CheckFiles() error {
	var errs []error
	for _, d := range c.Detectors {
		if d.Type != TypePigo {
			continue
		}
		path := d.Cascade
		if path == "" {
			path = DefaultPigoConfig().CascadePath
		}
		info, err := os.Stat(path)
		if err != nil {
			errs = append(errs, fmt.Errorf("detector %s: cascade: %w", d.Name, err))
			continue
		}
		if !info.Mode().IsRegular() {
			errs = append(errs, fmt.Errorf("detector %s: cascade %s is not a regular file", d.Name, path))
		}
	}
	return errors.Join(errs...)
}

// Names returns the configured detector names in priority order
func (c *ChainConfig) Names() []string {
	names := make([]string, 0, len(c.Detectors))
	for _, d := range c.Detectors {
		names = append(names, d.Name)
	}
	return names
}

func (d DetectorConfig) loader() (LoadFunc, error) {
	switch d.Type {
	case TypePigo:
		pc := DefaultPigoConfig()
		if d.Cascade != "" {
			pc.CascadePath = d.Cascade
		}
		if d.MinSize > 0 {
			pc.MinSize = d.MinSize
		}
		if d.MaxSize > 0 {
			pc.MaxSize = d.MaxSize
		}
		if d.MinQuality > 0 {
			pc.MinQuality = d.MinQuality
		}
		return func() (Detector, error) {
			return NewPigoDetector(d.Name, pc)
		}, nil

	case TypeSidecar:
		sc := SidecarConfig{Command: d.Command, Dir: d.Dir, Env: d.Env}
		return func() (Detector, error) {
			return StartSidecar(d.Name, sc)
		}, nil

	case TypeHTTP:
		hc := HTTPConfig{URL: d.URL, Timeout: d.Timeout}
		return func() (Detector, error) {
			return NewHTTPDetector(d.Name, hc)
		}, nil
	}
	return nil, fmt.Errorf("%w %q", ErrUnknownDetector, d.Type)
}
