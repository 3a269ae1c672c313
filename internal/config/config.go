// Package config holds the command-line tunables of the demo.
package config

import (
	"flag"
	"io"
	"log/slog"
	"math/bits"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
)

// Config is every tunable with its default from Default.
type Config struct {
	Title  string
	Width  int
	Height int

	Samples    int
	Validation bool

	// RunDuration closes the window after it elapses. Zero runs until closed.
	RunDuration time.Duration

	MultiCopy       bool
	MultiCopyRounds int

	ModelPath          string
	MaterialPath       string
	TexturePath        string
	VertexShaderPath   string
	FragmentShaderPath string

	LogLevel  string
	LogFormat string
}

func Default() Config {
	return Config{
		Title:  "Vulkan Comparison",
		Width:  1920,
		Height: 1080,

		Samples:    4,
		Validation: false,

		RunDuration: 60 * time.Second,

		MultiCopy:       false,
		MultiCopyRounds: 100,

		ModelPath:          "assets/models/chalet.obj",
		MaterialPath:       "assets/models/chalet.mtl",
		TexturePath:        "assets/textures/chalet.jpg",
		VertexShaderPath:   "assets/shaders/vert.spv",
		FragmentShaderPath: "assets/shaders/frag.spv",

		LogLevel:  "info",
		LogFormat: "text",
	}
}

// RegisterFlags binds every field to a flag on fs, using the current values
// as defaults.
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.Title, "title", c.Title, "window title")
	fs.IntVar(&c.Width, "width", c.Width, "initial window width in pixels")
	fs.IntVar(&c.Height, "height", c.Height, "initial window height in pixels")
	fs.IntVar(&c.Samples, "samples", c.Samples, "multisample count, a power of two from 2 to 64")
	fs.BoolVar(&c.Validation, "validation", c.Validation, "enable the Khronos validation layer")
	fs.DurationVar(&c.RunDuration, "run-for", c.RunDuration, "close the window after this long, 0 to run until closed")
	fs.BoolVar(&c.MultiCopy, "multi-copy", c.MultiCopy, "time repeated vertex and index uploads at startup")
	fs.IntVar(&c.MultiCopyRounds, "multi-copy-rounds", c.MultiCopyRounds, "number of multi-copy rounds")
	fs.StringVar(&c.ModelPath, "model", c.ModelPath, "OBJ model")
	fs.StringVar(&c.MaterialPath, "material", c.MaterialPath, "MTL material library for the model, empty for none")
	fs.StringVar(&c.TexturePath, "texture", c.TexturePath, "texture image (PNG, JPEG or BMP)")
	fs.StringVar(&c.VertexShaderPath, "vertex-shader", c.VertexShaderPath, "vertex stage SPIR-V")
	fs.StringVar(&c.FragmentShaderPath, "fragment-shader", c.FragmentShaderPath, "fragment stage SPIR-V")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "debug, info, warn or error")
	fs.StringVar(&c.LogFormat, "log-format", c.LogFormat, "text or json")
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case c.Width <= 0 || c.Height <= 0:
		return errors.Newf("window size %dx%d must be positive", c.Width, c.Height)
	case c.Samples < 2 || c.Samples > 64 || bits.OnesCount(uint(c.Samples)) != 1:
		return errors.Newf("sample count %d must be a power of two between 2 and 64", c.Samples)
	case c.RunDuration < 0:
		return errors.Newf("run duration %s must not be negative", c.RunDuration)
	case c.MultiCopy && c.MultiCopyRounds <= 0:
		return errors.Newf("multi-copy rounds %d must be positive", c.MultiCopyRounds)
	case c.ModelPath == "" || c.TexturePath == "":
		return errors.New("model and texture paths are required")
	case c.VertexShaderPath == "" || c.FragmentShaderPath == "":
		return errors.New("shader paths are required")
	}

	if _, err := c.Level(); err != nil {
		return err
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return errors.Newf("log format %q must be text or json", c.LogFormat)
	}
	return nil
}

// Level parses LogLevel.
func (c *Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(c.LogLevel))); err != nil {
		return 0, errors.Wrapf(err, "log level %q", c.LogLevel)
	}
	return level, nil
}

// Logger builds the structured logger writing to w.
func (c *Config) Logger(w io.Writer) (*slog.Logger, error) {
	level, err := c.Level()
	if err != nil {
		return nil, err
	}

	opts := &slog.HandlerOptions{Level: level}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}
