// Command vulkan-comparison renders a textured model with multisampling and
// reports frame rate statistics until the window closes or the run budget
// elapses.
package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/loov/hrtime"
	"github.com/vkngwrapper/core/core1_0"

	"github.com/vkngwrapper/vulkan-comparison/internal/config"
	"github.com/vkngwrapper/vulkan-comparison/internal/gpu/vulkan"
	"github.com/vkngwrapper/vulkan-comparison/internal/mesh"
	"github.com/vkngwrapper/vulkan-comparison/internal/render"
	"github.com/vkngwrapper/vulkan-comparison/internal/shader"
	"github.com/vkngwrapper/vulkan-comparison/internal/stats"
	"github.com/vkngwrapper/vulkan-comparison/internal/texture"
	"github.com/vkngwrapper/vulkan-comparison/internal/window"
)

func init() {
	// SDL and the Vulkan surface must stay on the main thread.
	runtime.LockOSThread()
}

func main() {
	cfg := config.Default()
	cfg.RegisterFlags(flag.CommandLine)
	flag.Parse()

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(2)
	}

	logger, err := cfg.Logger(os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%+v\n", err)
		os.Exit(2)
	}

	if err := run(cfg, logger); err != nil {
		logger.Error("run failed", "fatal", errors.Is(err, render.ErrFatal))
		fmt.Fprintf(os.Stderr, "%+v\n", err)
		os.Exit(1)
	}
}

func loadOptions(cfg config.Config, logger *slog.Logger) (render.Options, error) {
	fsys := os.DirFS(".")
	opts := render.Options{
		Samples: core1_0.SampleCountFlags(cfg.Samples),
		Logger:  logger,
	}

	objFile, err := os.Open(cfg.ModelPath)
	if err != nil {
		return opts, errors.Wrap(err, "open model")
	}
	defer objFile.Close()

	var mtlReader io.Reader = strings.NewReader("")
	if cfg.MaterialPath != "" {
		mtlFile, err := os.Open(cfg.MaterialPath)
		if err != nil {
			return opts, errors.Wrap(err, "open material library")
		}
		defer mtlFile.Close()
		mtlReader = mtlFile
	}

	opts.Mesh, err = mesh.LoadOBJ(objFile, mtlReader)
	if err != nil {
		return opts, errors.Wrapf(err, "load model %s", cfg.ModelPath)
	}
	logger.Info("model loaded", "vertices", len(opts.Mesh.Vertices), "indices", len(opts.Mesh.Indices))

	textureFile, err := os.Open(cfg.TexturePath)
	if err != nil {
		return opts, errors.Wrap(err, "open texture")
	}
	defer textureFile.Close()

	opts.Texture, err = texture.Decode(textureFile)
	if err != nil {
		return opts, errors.Wrapf(err, "load texture %s", cfg.TexturePath)
	}

	shaders, err := shader.LoadPair(fsys, cfg.VertexShaderPath, cfg.FragmentShaderPath)
	if err != nil {
		return opts, err
	}
	opts.VertexShader = shaders.Vertex
	opts.FragmentShader = shaders.Fragment

	if cfg.MultiCopy {
		opts.MultiCopyRounds = cfg.MultiCopyRounds
	}
	return opts, nil
}

func run(cfg config.Config, logger *slog.Logger) error {
	opts, err := loadOptions(cfg, logger)
	if err != nil {
		return err
	}

	win, err := window.Open(cfg.Title, cfg.Width, cfg.Height)
	if err != nil {
		return err
	}
	defer win.Destroy()

	instance, err := vulkan.Open(win.SDL(), vulkan.Options{
		ApplicationName: cfg.Title,
		Validation:      cfg.Validation,
		Logger:          logger,
	})
	if err != nil {
		return errors.Mark(err, render.ErrFatal)
	}

	ctx, err := render.NewContext(instance, logger)
	if err != nil {
		instance.Destroy()
		return err
	}
	defer ctx.Destroy()

	renderer, err := render.New(ctx, win, opts)
	if err != nil {
		return err
	}
	defer renderer.Destroy()

	mainLoop(cfg, logger, win, renderer)
	return nil
}

func mainLoop(cfg config.Config, logger *slog.Logger, win *window.Window, renderer *render.Renderer) {
	start := hrtime.Now()
	fps := stats.NewFPSCounter(start)

	for !win.ShouldClose() {
		if win.Poll() {
			renderer.Invalidate()
		}
		if cfg.RunDuration > 0 && hrtime.Since(start) >= cfg.RunDuration {
			win.RequestClose()
			break
		}
		if win.Minimized() {
			// Nothing to present into; avoid spinning the CPU.
			time.Sleep(10 * time.Millisecond)
			continue
		}

		if err := renderer.DrawFrame(); err != nil {
			logger.Error("draw frame", "error", err)
			continue
		}
		if err := renderer.UpdateUniform(); err != nil {
			logger.Error("update uniform", "error", err)
		}

		if sample, ok := fps.Frame(hrtime.Now()); ok {
			win.SetTitle(stats.Title(cfg.Title, sample))
		}
	}

	averages := fps.Averages()
	timing := renderer.Timing()
	logger.Info("run finished",
		"elapsed", hrtime.Since(start),
		"avg_fps", averages.FPS,
		"avg_ms_per_frame", averages.MillisPerFrame,
		"frames", timing.Count,
		"avg_draw", timing.Average(),
		"recreations", renderer.Recreations(),
	)
	if cfg.MultiCopy {
		logger.Info("multi copy", "rounds", cfg.MultiCopyRounds, "elapsed", renderer.MultiCopyDuration())
	}
}
