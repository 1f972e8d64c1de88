package sampling

import (
	"fmt"
	"image"
	_ "image/jpeg" // register decoders for environment maps
	_ "image/png"
	"io"
	"math"

	"golang.org/x/image/draw"

	"github.com/df07/go-render-sampling/pkg/core"
)

// EnvironmentMap importance samples directions toward bright regions of a
// lat-long environment image. The sampling distribution is built over
// pixel luminance, weighted by sin(theta) to account for the stretching
// of the equirectangular mapping near the poles.
type EnvironmentMap struct {
	dist   *Distribution2D
	texels []core.Vec3
	width  int
	height int
}

// maxDistributionSize caps the resolution of the sampling distribution.
// Full-resolution HDR maps make the distribution needlessly large; the
// image is downsampled before the luminance table is built.
const maxDistributionSize = 512

// NewEnvironmentMap decodes an image and builds its sampling distribution.
func NewEnvironmentMap(r io.Reader) (*EnvironmentMap, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decoding environment map: %w", err)
	}
	return NewEnvironmentMapFromImage(img), nil
}

// NewEnvironmentMapFromImage builds the sampling distribution for an
// already decoded image.
func NewEnvironmentMapFromImage(img image.Image) *EnvironmentMap {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w > maxDistributionSize || h > maxDistributionSize {
		scale := float64(maxDistributionSize) / float64(max(w, h))
		w = max(1, int(float64(w)*scale))
		h = max(1, int(float64(h)*scale))
		scaled := image.NewRGBA(image.Rect(0, 0, w, h))
		draw.CatmullRom.Scale(scaled, scaled.Bounds(), img, bounds, draw.Src, nil)
		img = scaled
		bounds = scaled.Bounds()
	}

	lum := make([]float64, w*h)
	texels := make([]core.Vec3, w*h)
	for y := 0; y < h; y++ {
		sinTheta := math.Sin(math.Pi * (float64(y) + 0.5) / float64(h))
		for x := 0; x < w; x++ {
			r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			c := core.NewVec3(float64(r)/65535, float64(g)/65535, float64(b)/65535)
			texels[y*w+x] = c
			lum[y*w+x] = c.Luminance() * sinTheta
		}
	}

	return &EnvironmentMap{
		dist:   NewDistribution2D(lum, w, h),
		texels: texels,
		width:  w,
		height: h,
	}
}

// Radiance returns the environment color seen along dir.
func (e *EnvironmentMap) Radiance(dir core.Vec3) core.Vec3 {
	theta := math.Acos(clampFloat(dir.Z, -1, 1))
	phi := math.Atan2(dir.Y, dir.X)
	if phi < 0 {
		phi += 2 * math.Pi
	}
	x := clampInt(int(phi/(2*math.Pi)*float64(e.width)), 0, e.width-1)
	y := clampInt(int(theta/math.Pi*float64(e.height)), 0, e.height-1)
	return e.texels[y*e.width+x]
}

// SampleDirection maps a uniform sample to a world-space direction with
// density proportional to the image's luminance, returning the direction
// and its solid-angle PDF. A zero PDF means the sample landed in a region
// the distribution cannot represent (a pole, or an all-black image).
func (e *EnvironmentMap) SampleDirection(sample core.Vec2) (core.Vec3, float64) {
	uv, mapPDF := e.dist.SampleContinuous(sample)
	if mapPDF == 0 {
		return core.Vec3{}, 0
	}

	theta := uv.Y * math.Pi
	phi := uv.X * 2 * math.Pi
	sinTheta := math.Sin(theta)
	if sinTheta == 0 {
		return core.Vec3{}, 0
	}

	dir := core.NewVec3(
		sinTheta*math.Cos(phi),
		sinTheta*math.Sin(phi),
		math.Cos(theta),
	)
	// Convert the [0,1]^2 density to a solid-angle density.
	pdf := mapPDF / (2 * math.Pi * math.Pi * sinTheta)
	return dir, pdf
}

// PDF returns the solid-angle density of SampleDirection for dir.
func (e *EnvironmentMap) PDF(dir core.Vec3) float64 {
	theta := math.Acos(clampFloat(dir.Z, -1, 1))
	phi := math.Atan2(dir.Y, dir.X)
	if phi < 0 {
		phi += 2 * math.Pi
	}
	sinTheta := math.Sin(theta)
	if sinTheta == 0 {
		return 0
	}
	uv := core.NewVec2(phi/(2*math.Pi), theta/math.Pi)
	return e.dist.PDF(uv) / (2 * math.Pi * math.Pi * sinTheta)
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
