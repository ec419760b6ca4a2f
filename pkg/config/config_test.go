package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	d := Defaults()
	if d.TargetLanguage != "en" || d.Provider != "gemini" || d.MinTextLength != 20 {
		t.Fatalf("unexpected defaults: %+v", d)
	}
}

func TestLoadFileMissingIsNonFatal(t *testing.T) {
	base := Defaults()
	got, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"), base)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != base {
		t.Fatalf("expected base returned unchanged, got %+v", got)
	}
}

func TestLoadFileOverlaysNonZeroFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
translation:
  target_language: fr
  interval: 7s
  min_text_length: 30
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	got, err := LoadFile(path, Defaults())
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if got.TargetLanguage != "fr" {
		t.Fatalf("expected target_language overridden, got %q", got.TargetLanguage)
	}
	if time.Duration(got.Interval) != 7*time.Second {
		t.Fatalf("expected interval 7s, got %v", time.Duration(got.Interval))
	}
	if got.MinTextLength != 30 {
		t.Fatalf("expected min_text_length 30, got %d", got.MinTextLength)
	}
	// Untouched fields retain their defaults.
	if got.Provider != "gemini" {
		t.Fatalf("expected provider unchanged, got %q", got.Provider)
	}
}

func TestApplyCLIOverridesOnlySetFields(t *testing.T) {
	base := Defaults()
	lang := "de"
	got := ApplyCLI(base, CLIOverrides{TargetLanguage: &lang})
	if got.TargetLanguage != "de" {
		t.Fatalf("expected target_language de, got %q", got.TargetLanguage)
	}
	if got.Provider != base.Provider {
		t.Fatalf("expected provider unchanged, got %q", got.Provider)
	}
}

func TestPrecedenceOrderDefaultsFileCLI(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("translation:\n  target_language: fr\n  provider: openai\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	merged, err := LoadFile(path, Defaults())
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}

	cliLang := "ja"
	final := ApplyCLI(merged, CLIOverrides{TargetLanguage: &cliLang})

	if final.TargetLanguage != "ja" {
		t.Fatalf("expected CLI to win over file, got %q", final.TargetLanguage)
	}
	if final.Provider != "openai" {
		t.Fatalf("expected file value to win over default, got %q", final.Provider)
	}
}
