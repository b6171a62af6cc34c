// Package config - Application settings persisted as YAML.
package config

import (
	"bytes"
	"os"
	"slices"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/nvr-ai/annotator/detect"
	"github.com/nvr-ai/annotator/formats"
	"github.com/nvr-ai/annotator/formats/format"
	"github.com/nvr-ai/annotator/history"
)

// DefaultPath is the settings file used when none is given.
const DefaultPath = "config.yaml"

const (
	// MinHistoryEntries is the smallest accepted undo depth.
	MinHistoryEntries = 10
	// MaxHistoryEntries is the largest accepted undo depth.
	MaxHistoryEntries = 1000
	// MaxRecentPaths is the largest accepted recent path list length.
	MaxRecentPaths = 20
	// DefaultRecentPaths is the default recent path list length.
	DefaultRecentPaths = 10
)

// AppConfig holds the user settings.
type AppConfig struct {
	// DefaultDirectory is opened on start when set.
	DefaultDirectory string `yaml:"defaultDirectory"`
	// YOLOModelPath points at the detection model weights.
	YOLOModelPath string `yaml:"yoloModelPath"`
	// Autosave writes the current image after every change.
	Autosave bool `yaml:"autosave"`
	// DefaultAnnotationFormat is used for directories with no detectable format.
	DefaultAnnotationFormat format.Name `yaml:"defaultAnnotationFormat"`
	// AutoDetectFormat enables format detection when opening a directory.
	AutoDetectFormat bool `yaml:"autoDetectFormat"`
	// MaxHistoryEntries is the undo depth.
	MaxHistoryEntries int `yaml:"maxHistoryEntries"`
	// MaxRecentPaths bounds RecentPaths. 0 disables the list.
	MaxRecentPaths int `yaml:"maxRecentPaths"`
	// RecentPaths holds recently opened directories, most recent first.
	RecentPaths []string `yaml:"recentPaths"`
	// Detector holds the detection post-processing thresholds.
	Detector detect.Config `yaml:",inline"`
}

// DefaultConfig returns the settings used when no file exists.
//
// Returns:
//   - AppConfig: The default settings.
//
// @example
// cfg := DefaultConfig()
// cfg.Autosave = true
func DefaultConfig() AppConfig {
	return AppConfig{
		DefaultAnnotationFormat: formats.Default,
		AutoDetectFormat:        true,
		MaxHistoryEntries:       history.DefaultMaxHistory,
		MaxRecentPaths:          DefaultRecentPaths,
		RecentPaths:             []string{},
		Detector:                detect.DefaultConfig(),
	}
}

// Validate clamps out-of-range values and replaces an unknown default format.
func (c *AppConfig) Validate() {
	c.MaxHistoryEntries = min(max(c.MaxHistoryEntries, MinHistoryEntries), MaxHistoryEntries)
	c.MaxRecentPaths = min(max(c.MaxRecentPaths, 0), MaxRecentPaths)
	if len(c.RecentPaths) > c.MaxRecentPaths {
		c.RecentPaths = c.RecentPaths[:c.MaxRecentPaths]
	}
	if !formats.Valid(c.DefaultAnnotationFormat) {
		c.DefaultAnnotationFormat = formats.Default
	}

	def := detect.DefaultConfig()
	if c.Detector.ConfidenceThreshold <= 0 || c.Detector.ConfidenceThreshold > 1 {
		c.Detector.ConfidenceThreshold = def.ConfidenceThreshold
	}
	if c.Detector.NMSThreshold <= 0 || c.Detector.NMSThreshold > 1 {
		c.Detector.NMSThreshold = def.NMSThreshold
	}
}

// AddRecentPath moves path to the front of the recent list, dropping
// duplicates and trimming the list to MaxRecentPaths.
func (c *AppConfig) AddRecentPath(path string) {
	if c.MaxRecentPaths <= 0 || path == "" {
		return
	}
	paths := make([]string, 0, len(c.RecentPaths)+1)
	paths = append(paths, path)
	for _, p := range c.RecentPaths {
		if p != path {
			paths = append(paths, p)
		}
	}
	if len(paths) > c.MaxRecentPaths {
		paths = paths[:c.MaxRecentPaths]
	}
	c.RecentPaths = paths
}

// RemoveRecentPath drops path from the recent list.
func (c *AppConfig) RemoveRecentPath(path string) {
	c.RecentPaths = slices.DeleteFunc(c.RecentPaths, func(p string) bool { return p == path })
}

// Load reads settings from path.
//
// A missing file yields the defaults and no error. A malformed file yields the
// defaults and the parse error. Keys absent from the file keep their default
// value. The result is validated.
//
// Arguments:
//   - path: The YAML settings file.
//
// Returns:
//   - AppConfig: The settings.
//   - error: The read or parse failure, if any.
func Load(path string) (AppConfig, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, errors.Wrapf(err, "read config %s", path)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return DefaultConfig(), errors.Wrapf(err, "parse config %s", path)
	}
	if cfg.RecentPaths == nil {
		cfg.RecentPaths = []string{}
	}
	cfg.Validate()
	return cfg, nil
}

// Save writes the settings to path.
func (c *AppConfig) Save(path string) error {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return errors.Wrap(err, "encode config")
	}
	if err := enc.Close(); err != nil {
		return errors.Wrap(err, "encode config")
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return errors.Wrapf(err, "write config %s", path)
	}
	return nil
}
