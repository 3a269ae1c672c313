package config

import (
	"bytes"
	"flag"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
	if cfg.Width != 1920 || cfg.Height != 1080 || cfg.Samples != 4 || cfg.RunDuration != time.Minute {
		t.Errorf("unexpected defaults %+v", cfg)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"eight samples", func(c *Config) { c.Samples = 8 }, true},
		{"sixty-four samples", func(c *Config) { c.Samples = 64 }, true},
		{"single sample", func(c *Config) { c.Samples = 1 }, false},
		{"three samples", func(c *Config) { c.Samples = 3 }, false},
		{"too many samples", func(c *Config) { c.Samples = 128 }, false},
		{"zero width", func(c *Config) { c.Width = 0 }, false},
		{"negative run", func(c *Config) { c.RunDuration = -time.Second }, false},
		{"unbounded run", func(c *Config) { c.RunDuration = 0 }, true},
		{"multi copy without rounds", func(c *Config) { c.MultiCopy, c.MultiCopyRounds = true, 0 }, false},
		{"missing model", func(c *Config) { c.ModelPath = "" }, false},
		{"missing shader", func(c *Config) { c.FragmentShaderPath = "" }, false},
		{"no material", func(c *Config) { c.MaterialPath = "" }, true},
		{"bad level", func(c *Config) { c.LogLevel = "loud" }, false},
		{"bad format", func(c *Config) { c.LogFormat = "xml" }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			if err := cfg.Validate(); (err == nil) != tt.ok {
				t.Errorf("Validate() = %v, want ok = %v", err, tt.ok)
			}
		})
	}
}

func TestRegisterFlags(t *testing.T) {
	cfg := Default()
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	cfg.RegisterFlags(fs)

	err := fs.Parse([]string{"-width", "800", "-height", "600", "-samples", "8", "-run-for", "5s", "-multi-copy", "-validation", "-log-format", "json"})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Width != 800 || cfg.Height != 600 || cfg.Samples != 8 || cfg.RunDuration != 5*time.Second {
		t.Errorf("parsed %+v", cfg)
	}
	if !cfg.MultiCopy || !cfg.Validation || cfg.LogFormat != "json" {
		t.Errorf("boolean flags not applied: %+v", cfg)
	}
	if cfg.Title != Default().Title {
		t.Errorf("untouched title changed to %q", cfg.Title)
	}
}

func TestLogger(t *testing.T) {
	cfg := Default()
	cfg.LogLevel = "warn"
	cfg.LogFormat = "json"

	var buf bytes.Buffer
	logger, err := cfg.Logger(&buf)
	if err != nil {
		t.Fatal(err)
	}
	logger.Info("hidden")
	logger.Warn("shown", slog.Int("frames", 3))

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("info record passed a warn level logger")
	}
	if !strings.Contains(out, `"msg":"shown"`) || !strings.Contains(out, `"frames":3`) {
		t.Errorf("unexpected output %q", out)
	}
}
