// Package cooking turns shape requests into collision geometry: analytic
// primitives, and welded triangle meshes optionally backed by a sparse
// signed distance field.
package cooking

import (
	"errors"
	"fmt"
	gomath "math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/Faultbox/physics-samples/pkg/math"
)

var (
	// ErrInvalidDimensions is returned for non-positive or non-finite extents.
	ErrInvalidDimensions = errors.New("invalid dimensions")

	// ErrCookingFailed is returned when a mesh cannot be cooked.
	ErrCookingFailed = errors.New("cooking failed")

	// ErrInvalidParams is returned for out-of-range cooking parameters.
	// It also matches ErrCookingFailed.
	ErrInvalidParams = fmt.Errorf("%w: invalid parameters", ErrCookingFailed)
)

// Kind identifies a collision shape type.
type Kind int

const (
	KindBox Kind = iota
	KindCapsule
	KindTriangleMesh
)

func (k Kind) String() string {
	switch k {
	case KindBox:
		return "box"
	case KindCapsule:
		return "capsule"
	case KindTriangleMesh:
		return "triangle-mesh"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Shape is a cooked collision shape in its local frame.
type Shape interface {
	Kind() Kind
	// Bounds returns the local axis-aligned bounds.
	Bounds() (lo, hi mgl64.Vec3)
}

// Primitive is an analytic box or capsule.
// For a box, HalfExtents are the half sizes along each axis.
// For a capsule the axis is Y: X is the radius and Y the half height of
// the cylindrical section. Z is validated but unused.
type Primitive struct {
	PrimitiveKind Kind
	HalfExtents   math.Vec3
}

// CookPrimitive validates dimensions and returns the primitive shape.
func CookPrimitive(kind Kind, dims math.Vec3) (*Primitive, error) {
	if kind != KindBox && kind != KindCapsule {
		return nil, fmt.Errorf("%w: %s is not a primitive", ErrInvalidDimensions, kind)
	}
	if !dims.Finite() || !dims.Positive() {
		return nil, fmt.Errorf("%w: %s extents %v", ErrInvalidDimensions, kind, dims)
	}
	return &Primitive{PrimitiveKind: kind, HalfExtents: dims}, nil
}

// Kind implements Shape.
func (p *Primitive) Kind() Kind { return p.PrimitiveKind }

// Bounds implements Shape.
func (p *Primitive) Bounds() (lo, hi mgl64.Vec3) {
	h := p.HalfExtents
	if p.PrimitiveKind == KindCapsule {
		r := float64(h.X)
		hi = mgl64.Vec3{r, float64(h.Y) + r, r}
	} else {
		hi = mgl64.Vec3{float64(h.X), float64(h.Y), float64(h.Z)}
	}
	return hi.Mul(-1), hi
}

// Radius returns the capsule radius.
func (p *Primitive) Radius() float64 { return float64(p.HalfExtents.X) }

// HalfHeight returns the capsule cylinder half height.
func (p *Primitive) HalfHeight() float64 { return float64(p.HalfExtents.Y) }

// Volume returns the enclosed volume.
func (p *Primitive) Volume() float64 {
	h := p.HalfExtents
	if p.PrimitiveKind == KindCapsule {
		r, hh := float64(h.X), float64(h.Y)
		return gomath.Pi*r*r*2*hh + 4.0/3.0*gomath.Pi*r*r*r
	}
	return 8 * float64(h.X) * float64(h.Y) * float64(h.Z)
}

// Params controls concave mesh cooking.
type Params struct {
	// WeldTolerance merges vertices closer than this distance. Zero merges
	// exact duplicates only.
	WeldTolerance float64

	// SDF, when set, builds a sparse signed distance field for the mesh.
	SDF *SDFParams
}

// MaxSubgridSize bounds SDFParams.SubgridSize.
const MaxSubgridSize = 64

// SDFParams controls signed distance field resolution.
type SDFParams struct {
	Spacing     float64 // sample spacing in world units, > 0
	SubgridSize int     // cells per sparse block edge, 1..MaxSubgridSize
	BitsPerCell int     // 8 or 16
}

// DefaultParams returns weld-only cooking parameters.
func DefaultParams() Params {
	return Params{WeldTolerance: 0.001}
}

// DefaultSDFParams returns a medium resolution field.
func DefaultSDFParams() SDFParams {
	return SDFParams{Spacing: 0.1, SubgridSize: 6, BitsPerCell: 16}
}

// Validate checks parameter ranges.
func (p Params) Validate() error {
	if gomath.IsNaN(p.WeldTolerance) || p.WeldTolerance < 0 {
		return fmt.Errorf("%w: weld tolerance %v", ErrInvalidParams, p.WeldTolerance)
	}
	if p.SDF == nil {
		return nil
	}
	if gomath.IsNaN(p.SDF.Spacing) || gomath.IsInf(p.SDF.Spacing, 0) || p.SDF.Spacing <= 0 {
		return fmt.Errorf("%w: sdf spacing %v", ErrInvalidParams, p.SDF.Spacing)
	}
	if p.SDF.SubgridSize < 1 || p.SDF.SubgridSize > MaxSubgridSize {
		return fmt.Errorf("%w: sdf subgrid size %d", ErrInvalidParams, p.SDF.SubgridSize)
	}
	if p.SDF.BitsPerCell != 8 && p.SDF.BitsPerCell != 16 {
		return fmt.Errorf("%w: sdf bits per cell %d", ErrInvalidParams, p.SDF.BitsPerCell)
	}
	return nil
}
