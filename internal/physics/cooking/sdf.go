package cooking

import (
	"encoding/binary"
	"fmt"
	gomath "math"
	"runtime"

	"github.com/go-gl/mathgl/mgl64"
	"golang.org/x/sync/errgroup"
)

// maxSDFSamples bounds the memory a single field may take.
const maxSDFSamples = 1 << 24

// SDF is a sparse signed distance field. A coarse grid stores the distance
// at every block corner; blocks that the surface can pass through also
// store a quantized subgrid of (SubgridSize+1)^3 samples.
type SDF struct {
	Spacing     float64
	SubgridSize int
	BitsPerCell int

	origin mgl64.Vec3
	blocks [3]int
	coarse []float32
	sub    []subgrid
	data   []byte
}

type subgrid struct {
	offset   int // byte offset into data, -1 when the block has no subgrid
	min, max float32
}

func buildSDF(m *ConcaveMesh, p SDFParams) (*SDF, error) {
	s := &SDF{
		Spacing:     p.Spacing,
		SubgridSize: p.SubgridSize,
		BitsPerCell: p.BitsPerCell,
	}
	margin := 2 * p.Spacing
	lo := m.lo.Sub(mgl64.Vec3{margin, margin, margin})
	hi := m.hi.Add(mgl64.Vec3{margin, margin, margin})
	s.origin = lo

	blockLen := float64(p.SubgridSize) * p.Spacing
	perBlock := float64(p.SubgridSize+1) * float64(p.SubgridSize+1) * float64(p.SubgridSize+1)
	samples := perBlock
	for a := 0; a < 3; a++ {
		n := gomath.Max(1, gomath.Ceil((hi[a]-lo[a])/blockLen))
		// The grid must step past the bounds in floating point.
		if gomath.IsNaN(n) || lo[a]+blockLen == lo[a] {
			return nil, fmt.Errorf("%w: sdf spacing %v cannot resolve bounds %v..%v", ErrCookingFailed,
				p.Spacing, m.lo, m.hi)
		}
		samples *= n
		if samples > maxSDFSamples {
			return nil, fmt.Errorf("%w: sdf spacing %v subgrid %d needs more than %d samples", ErrCookingFailed,
				p.Spacing, p.SubgridSize, maxSDFSamples)
		}
		s.blocks[a] = int(n)
	}
	total := s.blocks[0] * s.blocks[1] * s.blocks[2]
	for a := 0; a < 3; a++ {
		if lo[a]+float64(s.blocks[a])*blockLen < hi[a] {
			return nil, fmt.Errorf("%w: sdf grid does not cover axis %d", ErrCookingFailed, a)
		}
	}

	// Coarse grid at block corners.
	cx, cy := s.blocks[0]+1, s.blocks[1]+1
	s.coarse = make([]float32, cx*cy*(s.blocks[2]+1))
	for k := 0; k <= s.blocks[2]; k++ {
		for j := 0; j < cy; j++ {
			for i := 0; i < cx; i++ {
				pt := lo.Add(mgl64.Vec3{float64(i), float64(j), float64(k)}.Mul(blockLen))
				d, _ := m.exactQuery(pt)
				s.coarse[(k*cy+j)*cx+i] = float32(d)
			}
		}
	}

	// Dense samples for blocks near the surface, computed in parallel and
	// assembled in block order.
	band := blockLen * gomath.Sqrt(3)
	dense := make([][]float32, total)
	g := new(errgroup.Group)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for b := 0; b < total; b++ {
		bi, bj, bk := b%s.blocks[0], (b/s.blocks[0])%s.blocks[1], b/(s.blocks[0]*s.blocks[1])
		if !s.nearSurface(bi, bj, bk, band) {
			continue
		}
		g.Go(func() error {
			n := p.SubgridSize + 1
			out := make([]float32, n*n*n)
			base := lo.Add(mgl64.Vec3{float64(bi), float64(bj), float64(bk)}.Mul(blockLen))
			for k := 0; k < n; k++ {
				for j := 0; j < n; j++ {
					for i := 0; i < n; i++ {
						pt := base.Add(mgl64.Vec3{float64(i), float64(j), float64(k)}.Mul(p.Spacing))
						d, _ := m.exactQuery(pt)
						out[(k*n+j)*n+i] = float32(d)
					}
				}
			}
			dense[b] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	bytesPerCell := p.BitsPerCell / 8
	s.sub = make([]subgrid, total)
	for b, vals := range dense {
		if vals == nil {
			s.sub[b] = subgrid{offset: -1}
			continue
		}
		vmin, vmax := vals[0], vals[0]
		for _, v := range vals[1:] {
			vmin = min(vmin, v)
			vmax = max(vmax, v)
		}
		s.sub[b] = subgrid{offset: len(s.data), min: vmin, max: vmax}
		s.data = append(s.data, make([]byte, len(vals)*bytesPerCell)...)
		for i, v := range vals {
			s.encode(s.sub[b], i, v)
		}
	}
	return s, nil
}

func (s *SDF) nearSurface(bi, bj, bk int, band float64) bool {
	cx, cy := s.blocks[0]+1, s.blocks[1]+1
	for c := 0; c < 8; c++ {
		i, j, k := bi+c&1, bj+(c>>1)&1, bk+(c>>2)&1
		if gomath.Abs(float64(s.coarse[(k*cy+j)*cx+i])) <= band {
			return true
		}
	}
	return false
}

func (s *SDF) quantMax() float32 {
	if s.BitsPerCell == 8 {
		return 255
	}
	return 65535
}

func (s *SDF) encode(g subgrid, i int, v float32) {
	var q float32
	if g.max > g.min {
		q = (v - g.min) / (g.max - g.min) * s.quantMax()
	}
	u := uint16(gomath.Round(float64(q)))
	if s.BitsPerCell == 8 {
		s.data[g.offset+i] = byte(u)
		return
	}
	binary.LittleEndian.PutUint16(s.data[g.offset+2*i:], u)
}

func (s *SDF) decode(g subgrid, i int) float32 {
	var u uint16
	if s.BitsPerCell == 8 {
		u = uint16(s.data[g.offset+i])
	} else {
		u = binary.LittleEndian.Uint16(s.data[g.offset+2*i:])
	}
	return g.min + float32(u)/s.quantMax()*(g.max-g.min)
}

// SubgridCount returns the number of blocks that store a subgrid.
func (s *SDF) SubgridCount() int {
	n := 0
	for _, g := range s.sub {
		if g.offset >= 0 {
			n++
		}
	}
	return n
}

// Bytes returns the memory used by the quantized subgrids and coarse grid.
func (s *SDF) Bytes() int {
	return len(s.data) + 4*len(s.coarse)
}

// Sample returns the interpolated signed distance at p. Points outside the
// field are clamped to it and the clamped distance is added.
func (s *SDF) Sample(p mgl64.Vec3) float64 {
	size := float64(s.SubgridSize)
	g := p.Sub(s.origin).Mul(1 / s.Spacing)

	var outside mgl64.Vec3
	var bidx [3]int
	var local [3]float64
	for a := 0; a < 3; a++ {
		ext := float64(s.blocks[a]) * size
		c := gomath.Max(0, gomath.Min(ext, g[a]))
		outside[a] = g[a] - c
		bidx[a] = min(int(c/size), s.blocks[a]-1)
		local[a] = c - float64(bidx[a])*size
	}
	extra := outside.Len() * s.Spacing

	b := (bidx[2]*s.blocks[1]+bidx[1])*s.blocks[0] + bidx[0]
	sg := s.sub[b]
	if sg.offset < 0 {
		cx, cy := s.blocks[0]+1, s.blocks[1]+1
		at := func(i, j, k int) float64 {
			return float64(s.coarse[((bidx[2]+k)*cy+bidx[1]+j)*cx+bidx[0]+i])
		}
		return trilinear(at, local[0]/size, local[1]/size, local[2]/size) + extra
	}

	n := s.SubgridSize + 1
	var cell [3]int
	var f [3]float64
	for a := 0; a < 3; a++ {
		cell[a] = min(int(local[a]), s.SubgridSize-1)
		f[a] = local[a] - float64(cell[a])
	}
	at := func(i, j, k int) float64 {
		return float64(s.decode(sg, ((cell[2]+k)*n+cell[1]+j)*n+cell[0]+i))
	}
	return trilinear(at, f[0], f[1], f[2]) + extra
}

// Gradient returns the normalized direction of increasing distance at p.
func (s *SDF) Gradient(p mgl64.Vec3) mgl64.Vec3 {
	h := 0.5 * s.Spacing
	var g mgl64.Vec3
	for a := 0; a < 3; a++ {
		var d mgl64.Vec3
		d[a] = h
		g[a] = s.Sample(p.Add(d)) - s.Sample(p.Sub(d))
	}
	if l := g.Len(); l > 1e-12 {
		return g.Mul(1 / l)
	}
	return mgl64.Vec3{0, 1, 0}
}

func trilinear(at func(i, j, k int) float64, fx, fy, fz float64) float64 {
	c00 := at(0, 0, 0)*(1-fx) + at(1, 0, 0)*fx
	c10 := at(0, 1, 0)*(1-fx) + at(1, 1, 0)*fx
	c01 := at(0, 0, 1)*(1-fx) + at(1, 0, 1)*fx
	c11 := at(0, 1, 1)*(1-fx) + at(1, 1, 1)*fx
	c0 := c00*(1-fy) + c10*fy
	c1 := c01*(1-fy) + c11*fy
	return c0*(1-fz) + c1*fz
}
