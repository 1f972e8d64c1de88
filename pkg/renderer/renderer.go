// Package renderer drives Monte Carlo rendering: it partitions the image
// into tiles, renders them on parallel workers that each own a cloned
// sampler, and assembles the result into an image. The per-pixel sample
// budget can be split across progressive passes; every pass refines the
// whole image, and the accumulated result after the final pass is
// identical to a single-pass render. Given the same scene, sampler
// configuration, and seed, two runs produce identical images regardless
// of how the tiles are scheduled.
package renderer

import (
	"context"
	"image"
	"image/color"
	"math"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"golang.org/x/sync/errgroup"

	"github.com/df07/go-render-sampling/pkg/core"
	"github.com/df07/go-render-sampling/pkg/geometry"
	"github.com/df07/go-render-sampling/pkg/sampler"
	"github.com/df07/go-render-sampling/pkg/sampling"
	"github.com/df07/go-render-sampling/pkg/scene"
)

const tileSize = 32

// lightSamples is the per-hit shadow ray count at the primary bounce,
// drawn from the sampler's 2D array dimension.
const lightSamples = 4

// Config controls a render run
type Config struct {
	Width    int
	Height   int
	MaxDepth int
	Workers  int // 0 means NumCPU
	Passes   int // progressive passes over the sample budget; 0 means 1
	Seed     uint64
}

// TileUpdate reports one finished tile, for progress display
type TileUpdate struct {
	Bounds  image.Rectangle
	Samples int // accumulated samples per pixel so far
	Pass    int
	Passes  int
}

// Renderer renders a scene with a prototype sampler that is cloned per
// tile worker.
type Renderer struct {
	scene  *scene.Scene
	camera *Camera
	proto  sampler.Sampler
	config Config

	clock  quartz.Clock
	onTile func(*image.RGBA, TileUpdate)
}

// NewRenderer creates a renderer. The sampler is used as a prototype:
// every tile renders with its own clone.
func NewRenderer(sc *scene.Scene, cam *Camera, proto sampler.Sampler, config Config) *Renderer {
	if config.Workers <= 0 {
		config.Workers = runtime.NumCPU()
	}
	if config.Passes <= 0 {
		config.Passes = 1
	}
	if spp := proto.SamplesPerPixel(); config.Passes > spp {
		log.Warn("more passes than samples per pixel, clamping",
			"requested", config.Passes, "using", spp)
		config.Passes = spp
	}
	proto.Request2DArray(proto.RoundCount(lightSamples))
	return &Renderer{
		scene:  sc,
		camera: cam,
		proto:  proto,
		config: config,
		clock:  quartz.NewReal(),
	}
}

// WithClock substitutes the progress clock, for tests.
func (r *Renderer) WithClock(c quartz.Clock) *Renderer {
	r.clock = c
	return r
}

// OnTile registers a callback invoked from worker goroutines as tiles
// finish. The image passed is the shared render target; the callback must
// be safe for concurrent use and only read the finished tile's bounds.
func (r *Renderer) OnTile(fn func(*image.RGBA, TileUpdate)) {
	r.onTile = fn
}

// Render renders the full image, refining it one pass at a time. It
// returns early with the context's error if the context is canceled
// mid-render.
func (r *Renderer) Render(ctx context.Context) (*image.RGBA, error) {
	img := image.NewRGBA(image.Rect(0, 0, r.config.Width, r.config.Height))
	accum := make([]core.Vec3, r.config.Width*r.config.Height)
	tiles := r.tiles()
	spp := r.proto.SamplesPerPixel()
	passes := r.config.Passes

	log.Info("render start",
		"size", image.Pt(r.config.Width, r.config.Height),
		"spp", spp, "tiles", len(tiles), "passes", passes,
		"workers", r.config.Workers)
	start := r.clock.Now()

	done := make(chan struct{})
	var finished int64
	go r.reportProgress(ctx, done, &finished, len(tiles)*passes)

	rendered := 0
	for pass := 1; pass <= passes; pass++ {
		// Even split of the budget; the final pass absorbs the remainder.
		target := spp * pass / passes
		if err := r.renderPass(ctx, tiles, accum, img, rendered, target, pass, &finished); err != nil {
			close(done)
			return nil, err
		}
		rendered = target
		log.Info("pass done", "pass", pass, "passes", passes, "spp", rendered)
	}
	close(done)
	log.Info("render done", "elapsed", r.clock.Since(start))
	return img, nil
}

// renderPass renders every tile's samples in [from, to), adding them to
// the accumulation buffer and refreshing the displayed image.
func (r *Renderer) renderPass(ctx context.Context, tiles []image.Rectangle,
	accum []core.Vec3, img *image.RGBA, from, to, pass int, finished *int64) error {

	tasks := make(chan image.Rectangle)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(tasks)
		for _, tile := range tiles {
			select {
			case tasks <- tile:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})
	for w := 0; w < r.config.Workers; w++ {
		g.Go(func() error {
			// Each tile gets a fresh clone, so output does not depend on
			// which worker renders it or which pass it is in.
			for tile := range tasks {
				if err := ctx.Err(); err != nil {
					return err
				}
				smp := r.proto.Clone(r.config.Seed)
				r.renderTile(tile, smp, accum, img, from, to)
				atomic.AddInt64(finished, 1)
				if r.onTile != nil {
					r.onTile(img, TileUpdate{
						Bounds:  tile,
						Samples: to,
						Pass:    pass,
						Passes:  r.config.Passes,
					})
				}
			}
			return nil
		})
	}
	return g.Wait()
}

// tiles partitions the image into tile bounds in scanline order
func (r *Renderer) tiles() []image.Rectangle {
	var tiles []image.Rectangle
	for y := 0; y < r.config.Height; y += tileSize {
		for x := 0; x < r.config.Width; x += tileSize {
			tiles = append(tiles, image.Rect(x, y,
				min(x+tileSize, r.config.Width),
				min(y+tileSize, r.config.Height)))
		}
	}
	return tiles
}

func (r *Renderer) renderTile(bounds image.Rectangle, smp sampler.Sampler,
	accum []core.Vec3, img *image.RGBA, from, to int) {

	nLight := smp.RoundCount(lightSamples)
	for j := bounds.Min.Y; j < bounds.Max.Y; j++ {
		for i := bounds.Min.X; i < bounds.Max.X; i++ {
			sum := accum[j*r.config.Width+i]
			for s := from; s < to; s++ {
				smp.StartSequence(sampler.Pixel{X: i, Y: j}, s)
				ray := r.camera.GetRay(i, j, smp.Get2D(), smp.Get2D())
				sum = sum.Add(r.li(ray, smp, nLight, 0, 0))
			}
			accum[j*r.config.Width+i] = sum
			writePixel(img, i, j, sum.Multiply(1/float64(to)))
		}
	}
}

// li estimates the radiance arriving along ray. The primary hit combines
// emission, next-event light sampling, and one cosine-sampled indirect
// bounce per depth level. envPdf is the cosine density of the bounce that
// produced this ray when the previous vertex also sampled the environment
// map; the two strategies are combined with the power heuristic.
func (r *Renderer) li(ray core.Ray, smp sampler.Sampler, nLight, depth int, envPdf float64) core.Vec3 {
	if depth >= r.config.MaxDepth {
		return core.Vec3{}
	}
	hit, ok := r.scene.Hit(ray, 1e-3, math.Inf(1))
	if !ok {
		if r.scene.Env != nil {
			dir := ray.Direction.Normalize()
			radiance := r.scene.Env.Radiance(dir)
			if envPdf > 0 {
				radiance = radiance.Multiply(powerHeuristic(envPdf, r.scene.Env.PDF(dir)))
			}
			return radiance
		}
		return r.scene.Background
	}

	radiance := hit.Surface.Emission

	// Shadow rays toward power-sampled lights. Only the primary hit uses
	// the sampler's array dimension; deeper bounces rely on the indirect
	// term alone.
	if depth == 0 {
		if lightDirs := smp.Get2DArray(nLight); lightDirs != nil {
			var direct core.Vec3
			for _, u := range lightDirs {
				direct = direct.Add(r.sampleDirect(hit, smp.Get1D(), u))
			}
			radiance = radiance.Add(direct.Multiply(1 / float64(len(lightDirs))))
		}
		if r.scene.Env != nil {
			radiance = radiance.Add(r.sampleEnvDirect(hit, smp.Get2D()))
		}
	}

	// Indirect bounce
	dir := sampling.SampleCosineHemisphere(hit.Normal, smp.Get2D())
	bounce := core.NewRay(hit.Point, dir)
	bouncePdf := 0.0
	if depth == 0 && r.scene.Env != nil {
		bouncePdf = dir.Dot(hit.Normal) / math.Pi
	}
	indirect := r.li(bounce, smp, nLight, depth+1, bouncePdf)
	radiance = radiance.Add(hit.Surface.Albedo.MultiplyVec(indirect))

	return radiance
}

// sampleDirect traces one shadow ray toward a sampled light
func (r *Renderer) sampleDirect(hit *geometry.HitRecord, uLight float64, u core.Vec2) core.Vec3 {
	light, lightPdf, _ := r.scene.SampleLight(uLight)
	if light == nil {
		return core.Vec3{}
	}

	toCenter := light.Center.Subtract(hit.Point)
	dist2 := toCenter.LengthSquared()

	var dir core.Vec3
	var pdf float64
	if dist2 <= light.Radius*light.Radius {
		// Inside the light every direction reaches it.
		dir = sampling.SampleOnUnitSphere(u)
		pdf = sampling.SampleUniformSpherePDF()
	} else {
		// Sample a direction in the cone subtended by the light
		sinThetaMax2 := light.Radius * light.Radius / dist2
		cosThetaMax := math.Sqrt(math.Max(0, 1-sinThetaMax2))
		dir = sampling.SampleCone(toCenter.Normalize(), cosThetaMax, u)
		pdf = 1 / (2 * math.Pi * (1 - cosThetaMax))
	}

	cosSurface := dir.Dot(hit.Normal)
	if cosSurface <= 0 {
		return core.Vec3{}
	}

	shadow := core.NewRay(hit.Point, dir)
	occluder, occluded := r.scene.Hit(shadow, 1e-3, math.Inf(1))
	if !occluded || occluder.Surface.Emission.Luminance() == 0 {
		return core.Vec3{}
	}

	brdf := hit.Surface.Albedo.Multiply(1 / math.Pi)
	return brdf.MultiplyVec(occluder.Surface.Emission).
		Multiply(cosSurface / (pdf * lightPdf))
}

// sampleEnvDirect traces one shadow ray toward a direction importance
// sampled from the environment map. The contribution is weighted against
// the indirect bounce's cosine density so environment radiance reachable
// by both strategies is not counted twice.
func (r *Renderer) sampleEnvDirect(hit *geometry.HitRecord, u core.Vec2) core.Vec3 {
	dir, pdf := r.scene.Env.SampleDirection(u)
	if pdf == 0 {
		return core.Vec3{}
	}
	cosSurface := dir.Dot(hit.Normal)
	if cosSurface <= 0 {
		return core.Vec3{}
	}
	shadow := core.NewRay(hit.Point, dir)
	if _, occluded := r.scene.Hit(shadow, 1e-3, math.Inf(1)); occluded {
		return core.Vec3{}
	}
	weight := powerHeuristic(pdf, cosSurface/math.Pi)
	brdf := hit.Surface.Albedo.Multiply(1 / math.Pi)
	return brdf.MultiplyVec(r.scene.Env.Radiance(dir)).
		Multiply(weight * cosSurface / pdf)
}

// powerHeuristic balances two sampling strategies with exponent 2.
func powerHeuristic(f, g float64) float64 {
	return f * f / (f*f + g*g)
}

func (r *Renderer) reportProgress(ctx context.Context, done <-chan struct{}, finished *int64, total int) {
	ticker := r.clock.NewTicker(2 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			log.Info("render progress", "tiles", atomic.LoadInt64(finished), "total", total)
		}
	}
}

func writePixel(img *image.RGBA, x, y int, c core.Vec3) {
	c = c.GammaCorrect(2.2).Clamp(0, 1)
	img.SetRGBA(x, y, color.RGBA{
		R: uint8(c.X*255 + 0.5),
		G: uint8(c.Y*255 + 0.5),
		B: uint8(c.Z*255 + 0.5),
		A: 255,
	})
}
