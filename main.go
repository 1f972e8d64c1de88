package main

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/df07/go-render-sampling/pkg/core"
	"github.com/df07/go-render-sampling/pkg/display"
	"github.com/df07/go-render-sampling/pkg/geometry"
	"github.com/df07/go-render-sampling/pkg/loaders"
	"github.com/df07/go-render-sampling/pkg/renderer"
	"github.com/df07/go-render-sampling/pkg/sampler"
	"github.com/df07/go-render-sampling/pkg/sampling"
	"github.com/df07/go-render-sampling/pkg/scene"
)

var cli struct {
	Config  string `help:"YAML config file overriding the defaults." type:"existingfile" optional:""`
	Sampler string `help:"Sampler variant." default:"zerotwo" enum:"random,stratified,zerotwo,maxmin,sobol,halton"`
	Samples int    `help:"Samples per pixel." default:"16"`
	Width   int    `help:"Image width." default:"800"`
	Height  int    `help:"Image height." default:"450"`
	Depth   int    `help:"Maximum bounce depth." default:"4"`
	Workers int    `help:"Render workers; 0 uses all CPUs." default:"0"`
	Passes  int    `help:"Progressive refinement passes." default:"1"`
	Seed    uint64 `help:"Render seed." default:"1"`

	Aperture  float64 `help:"Lens diameter for depth of field; 0 is a pinhole." default:"0"`
	FocusDist float64 `help:"Focus distance; 0 focuses at the look-at point." default:"0"`
	Mesh      string  `help:"Optional PLY mesh to add to the scene." type:"existingfile" optional:""`
	Env       string  `help:"Optional environment map image (PNG or JPEG)." type:"existingfile" optional:""`
	Output    string  `help:"Output directory." default:"output"`
	Serve     string  `help:"Serve progressive tiles on this address (e.g. :8080)." optional:""`
	Verbose   bool    `help:"Enable debug logging."`
}

// fileConfig mirrors the CLI render settings for YAML configuration.
type fileConfig struct {
	Sampler   string  `yaml:"sampler"`
	Samples   int     `yaml:"samples"`
	Width     int     `yaml:"width"`
	Height    int     `yaml:"height"`
	Depth     int     `yaml:"depth"`
	Workers   int     `yaml:"workers"`
	Passes    int     `yaml:"passes"`
	Seed      uint64  `yaml:"seed"`
	Aperture  float64 `yaml:"aperture"`
	FocusDist float64 `yaml:"focusDist"`
	Mesh      string  `yaml:"mesh"`
	Env       string  `yaml:"env"`
	Output    string  `yaml:"output"`
}

func main() {
	kctx := kong.Parse(&cli,
		kong.Name("render"),
		kong.Description("Monte Carlo renderer built on low-discrepancy samplers."))
	if cli.Verbose {
		log.SetLevel(log.DebugLevel)
	}
	kctx.FatalIfErrorf(run())
}

func run() error {
	if cli.Config != "" {
		if err := applyConfigFile(cli.Config); err != nil {
			return err
		}
	}

	sc := scene.BuildDefault()
	defer sc.Clear()
	if cli.Mesh != "" {
		mesh, err := loaders.LoadMesh(cli.Mesh, sc.Caches, geometry.Surface{
			Albedo: core.NewVec3(0.7, 0.7, 0.65),
		})
		if err != nil {
			return fmt.Errorf("loading mesh: %w", err)
		}
		sc.Add(mesh)
		log.Info("mesh loaded", "file", cli.Mesh, "triangles", mesh.TriangleCount())
	}
	if cli.Env != "" {
		f, err := os.Open(cli.Env)
		if err != nil {
			return fmt.Errorf("opening environment map: %w", err)
		}
		env, err := sampling.NewEnvironmentMap(f)
		f.Close()
		if err != nil {
			return err
		}
		sc.Env = env
		log.Info("environment map loaded", "file", cli.Env)
	}

	smp, err := buildSampler()
	if err != nil {
		return err
	}

	cam := renderer.NewCamera(renderer.CameraConfig{
		LookFrom:  core.NewVec3(0, 2, 4),
		LookAt:    core.NewVec3(0, 1, -4),
		Up:        core.NewVec3(0, 1, 0),
		VFov:      50,
		Width:     cli.Width,
		Height:    cli.Height,
		Aperture:  cli.Aperture,
		FocusDist: cli.FocusDist,
	})
	r := renderer.NewRenderer(sc, cam, smp, renderer.Config{
		Width:    cli.Width,
		Height:   cli.Height,
		MaxDepth: cli.Depth,
		Workers:  cli.Workers,
		Passes:   cli.Passes,
		Seed:     cli.Seed,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if cli.Serve == "" {
		img, err := r.Render(ctx)
		if err != nil {
			return err
		}
		return writeImage(img)
	}

	// With a display server, stream tiles while rendering and keep
	// serving the finished image until interrupted.
	srv := display.NewServer()
	r.OnTile(srv.PublishTile)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.ListenAndServe(gctx, cli.Serve) })
	g.Go(func() error {
		img, err := r.Render(gctx)
		if err != nil {
			return err
		}
		srv.PublishComplete(img)
		return writeImage(img)
	})
	if err := g.Wait(); err != nil && err != context.Canceled {
		return err
	}
	return nil
}

func buildSampler() (sampler.Sampler, error) {
	const dims = 4
	switch cli.Sampler {
	case "random":
		return sampler.NewRandomSampler(cli.Samples, dims), nil
	case "stratified":
		n := gridSide(cli.Samples)
		return sampler.NewStratifiedSampler(n, n, true, dims), nil
	case "zerotwo":
		return sampler.NewZeroTwoSequenceSampler(cli.Samples, dims), nil
	case "maxmin":
		return sampler.NewMaxMinDistSampler(cli.Samples, dims), nil
	case "sobol":
		return sampler.NewSobolSampler(cli.Samples, dims), nil
	case "halton":
		return sampler.NewHaltonSampler(cli.Samples, dims), nil
	default:
		return nil, fmt.Errorf("unknown sampler %q", cli.Sampler)
	}
}

// gridSide finds the largest square grid not exceeding the requested
// sample count, for the stratified sampler's x/y subdivision.
func gridSide(samples int) int {
	n := 1
	for (n+1)*(n+1) <= samples {
		n++
	}
	return n
}

func applyConfigFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config: %w", err)
	}
	var cfg fileConfig
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return fmt.Errorf("parsing config %s: %w", path, err)
	}
	if cfg.Sampler != "" {
		cli.Sampler = cfg.Sampler
	}
	if cfg.Samples > 0 {
		cli.Samples = cfg.Samples
	}
	if cfg.Width > 0 {
		cli.Width = cfg.Width
	}
	if cfg.Height > 0 {
		cli.Height = cfg.Height
	}
	if cfg.Depth > 0 {
		cli.Depth = cfg.Depth
	}
	if cfg.Workers > 0 {
		cli.Workers = cfg.Workers
	}
	if cfg.Passes > 0 {
		cli.Passes = cfg.Passes
	}
	if cfg.Aperture > 0 {
		cli.Aperture = cfg.Aperture
	}
	if cfg.FocusDist > 0 {
		cli.FocusDist = cfg.FocusDist
	}
	if cfg.Seed != 0 {
		cli.Seed = cfg.Seed
	}
	if cfg.Mesh != "" {
		cli.Mesh = cfg.Mesh
	}
	if cfg.Env != "" {
		cli.Env = cfg.Env
	}
	if cfg.Output != "" {
		cli.Output = cfg.Output
	}
	return nil
}

func writeImage(img *image.RGBA) error {
	if err := os.MkdirAll(cli.Output, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	name := fmt.Sprintf("render_%s_%s.png", cli.Sampler, time.Now().Format("20060102_150405"))
	path := filepath.Join(cli.Output, name)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("encoding PNG: %w", err)
	}
	log.Info("image written", "path", path)
	return nil
}
