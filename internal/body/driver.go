package body

import (
	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"

	"github.com/Faultbox/physics-samples/pkg/math"
)

// PathDriver moves back and forth between two offsets forever.
type PathDriver struct {
	from, to math.Vec3
	seq      *gween.Sequence
}

// NewPathDriver returns a driver that travels from one offset to the other
// in duration seconds and back, easing with fn. A nil fn is linear.
func NewPathDriver(from, to math.Vec3, duration float32, fn ease.TweenFunc) *PathDriver {
	if fn == nil {
		fn = ease.Linear
	}
	seq := gween.NewSequence(
		gween.New(0, 1, duration, fn),
		gween.New(1, 0, duration, fn),
	)
	seq.SetLoop(-1)
	return &PathDriver{from: from, to: to, seq: seq}
}

// Advance steps the path by dt and returns the current offset.
func (d *PathDriver) Advance(dt float64) math.Vec3 {
	t, _, _ := d.seq.Update(float32(dt))
	return d.from.Add(d.to.Sub(d.from).Scale(t))
}
