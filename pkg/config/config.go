// Package config resolves server settings from, in increasing priority
// order, hard defaults, a YAML config file, and CLI flags.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so it can be written as "4s" in YAML
// instead of a raw nanosecond integer.
type Duration time.Duration

// UnmarshalYAML accepts either a duration string ("4s", "500ms") or a
// bare integer number of seconds.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	// Numbers are tried first: yaml.v3 also decodes a numeric scalar into a
	// string, which time.ParseDuration would then reject for lacking a unit.
	var secs float64
	if err := value.Decode(&secs); err == nil {
		*d = Duration(secs * float64(time.Second))
		return nil
	}
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("config: duration must be a string or number: %w", err)
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("config: invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Translation holds the adaptive translation buffer and provider
// tunables, mirroring the YAML file's top-level translation: key.
type Translation struct {
	TargetLanguage    string   `yaml:"target_language"`
	Model             string   `yaml:"model"`
	Provider          string   `yaml:"provider"`
	Interval          Duration `yaml:"interval"`
	MaxBufferTime     Duration `yaml:"max_buffer_time"`
	MinTextLength     int      `yaml:"min_text_length"`
	InactivityTimeout Duration `yaml:"inactivity_timeout"`
	SystemPrompt      string   `yaml:"system_prompt"`
}

// fileShape is the on-disk YAML shape; only the translation: key is
// recognized, everything else is ignored.
type fileShape struct {
	Translation Translation `yaml:"translation"`
}

// Defaults returns the hard-coded fallback values, the lowest rung in
// the precedence chain.
func Defaults() Translation {
	return Translation{
		TargetLanguage:    "en",
		Provider:          "gemini",
		Interval:          Duration(4 * time.Second),
		MaxBufferTime:     Duration(5 * time.Second),
		MinTextLength:     20,
		InactivityTimeout: Duration(2 * time.Second),
	}
}

// LoadFile reads a YAML config file and overlays its non-zero fields on
// top of base. A missing file is non-fatal: base is returned unchanged.
func LoadFile(path string, base Translation) (Translation, error) {
	if path == "" {
		return base, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return base, nil
		}
		return base, err
	}

	var parsed fileShape
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return base, err
	}

	merged := base
	overlay(&merged, parsed.Translation)
	return merged, nil
}

// overlay copies every non-zero field of patch onto dst.
func overlay(dst *Translation, patch Translation) {
	if patch.TargetLanguage != "" {
		dst.TargetLanguage = patch.TargetLanguage
	}
	if patch.Model != "" {
		dst.Model = patch.Model
	}
	if patch.Provider != "" {
		dst.Provider = patch.Provider
	}
	if patch.Interval != 0 {
		dst.Interval = patch.Interval
	}
	if patch.MaxBufferTime != 0 {
		dst.MaxBufferTime = patch.MaxBufferTime
	}
	if patch.MinTextLength != 0 {
		dst.MinTextLength = patch.MinTextLength
	}
	if patch.InactivityTimeout != 0 {
		dst.InactivityTimeout = patch.InactivityTimeout
	}
	if patch.SystemPrompt != "" {
		dst.SystemPrompt = patch.SystemPrompt
	}
}
