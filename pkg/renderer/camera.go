package renderer

import (
	"math"

	"github.com/df07/go-render-sampling/pkg/core"
	"github.com/df07/go-render-sampling/pkg/sampling"
)

// Camera generates primary rays for image pixels
type Camera struct {
	origin          core.Vec3
	lowerLeftCorner core.Vec3
	horizontal      core.Vec3
	vertical        core.Vec3
	u, v            core.Vec3
	lensRadius      float64
	width, height   int
}

// CameraConfig positions and sizes the camera
type CameraConfig struct {
	LookFrom core.Vec3
	LookAt   core.Vec3
	Up       core.Vec3
	VFov     float64 // vertical field of view in degrees
	Width    int
	Height   int

	// Aperture is the lens diameter; zero gives a pinhole camera.
	Aperture float64
	// FocusDist is the distance to the plane in perfect focus; zero
	// focuses at the LookAt point.
	FocusDist float64
}

// NewCamera creates a camera from its configuration
func NewCamera(cfg CameraConfig) *Camera {
	aspectRatio := float64(cfg.Width) / float64(cfg.Height)
	theta := cfg.VFov * math.Pi / 180
	viewportHeight := 2.0 * math.Tan(theta/2)
	viewportWidth := aspectRatio * viewportHeight

	focusDist := cfg.FocusDist
	if focusDist == 0 {
		focusDist = cfg.LookFrom.Subtract(cfg.LookAt).Length()
	}

	w := cfg.LookFrom.Subtract(cfg.LookAt).Normalize()
	u := cfg.Up.Cross(w).Normalize()
	v := w.Cross(u)

	origin := cfg.LookFrom
	horizontal := u.Multiply(viewportWidth * focusDist)
	vertical := v.Multiply(viewportHeight * focusDist)
	lowerLeftCorner := origin.
		Subtract(horizontal.Multiply(0.5)).
		Subtract(vertical.Multiply(0.5)).
		Subtract(w.Multiply(focusDist))

	return &Camera{
		origin:          origin,
		horizontal:      horizontal,
		vertical:        vertical,
		lowerLeftCorner: lowerLeftCorner,
		u:               u,
		v:               v,
		lensRadius:      cfg.Aperture / 2,
		width:           cfg.Width,
		height:          cfg.Height,
	}
}

// GetRay generates a ray through pixel (i, j), jittered by a unit sample.
// The lens sample picks the ray's origin on the aperture disk; a pinhole
// camera ignores it.
func (c *Camera) GetRay(i, j int, sample, lens core.Vec2) core.Ray {
	s := (float64(i) + sample.X) / float64(c.width)
	t := 1 - (float64(j)+sample.Y)/float64(c.height)

	origin := c.origin
	if c.lensRadius > 0 {
		p := sampling.SamplePointInUnitDisk(lens)
		origin = origin.
			Add(c.u.Multiply(p.X * c.lensRadius)).
			Add(c.v.Multiply(p.Y * c.lensRadius))
	}

	direction := c.lowerLeftCorner.
		Add(c.horizontal.Multiply(s)).
		Add(c.vertical.Multiply(t)).
		Subtract(origin)

	return core.NewRay(origin, direction)
}
