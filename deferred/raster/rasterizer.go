package raster

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

type DepthCompare int

const (
	CompareLess DepthCompare = iota
	CompareLessEqual
	CompareAlways
)

func (c DepthCompare) test(fragment, stored float32) bool {
	switch c {
	case CompareLess:
		return fragment < stored
	case CompareLessEqual:
		return fragment <= stored
	default:
		return true
	}
}

type BlendMode int

const (
	BlendOpaque BlendMode = iota
	BlendAdditive
)

type CullMode int

const (
	CullNone CullMode = iota
	CullBack
	CullFront
)

// State is the fixed-function configuration of a draw.
type State struct {
	Targets      []*Image
	Depth        *DepthBuffer // nil disables depth test and write
	DepthCompare DepthCompare
	DepthWrite   bool
	Blend        BlendMode
	Cull         CullMode
}

// ClipVertex is a vertex shader output: clip-space position plus varyings.
// All vertices of one draw carry the same number of varyings.
type ClipVertex struct {
	Position mgl32.Vec4
	Varyings []float32
}

// Fragment is what the fragment function sees.
type Fragment struct {
	X, Y int
	// FragCoord is (x+0.5, y+0.5, depth, 1/w), matching @builtin(position).
	FragCoord mgl32.Vec4
	Varyings  []float32
}

// FragmentFunc fills one colour per bound target. Returning false discards
// the fragment: nothing is written, depth included.
type FragmentFunc func(f *Fragment, out []mgl32.Vec4) bool

type Rasterizer struct {
	Width, Height int

	// Counters for the last frame; reset with ResetStats.
	TrianglesIn  int
	FragmentsRun int
}

func NewRasterizer(width, height int) *Rasterizer {
	return &Rasterizer{Width: width, Height: height}
}

func (r *Rasterizer) ResetStats() {
	r.TrianglesIn = 0
	r.FragmentsRun = 0
}

// DrawIndexed rasterizes a triangle list.
func (r *Rasterizer) DrawIndexed(st *State, verts []ClipVertex, indices []uint32, fs FragmentFunc) {
	for i := 0; i+2 < len(indices); i += 3 {
		r.drawTriangle(st, verts[indices[i]], verts[indices[i+1]], verts[indices[i+2]], fs)
	}
}

// DrawStrip rasterizes a triangle strip. Odd triangles are re-wound so the
// whole strip shares one facing.
func (r *Rasterizer) DrawStrip(st *State, verts []ClipVertex, fs FragmentFunc) {
	for i := 0; i+2 < len(verts); i++ {
		if i%2 == 0 {
			r.drawTriangle(st, verts[i], verts[i+1], verts[i+2], fs)
		} else {
			r.drawTriangle(st, verts[i+1], verts[i], verts[i+2], fs)
		}
	}
}

func (r *Rasterizer) drawTriangle(st *State, a, b, c ClipVertex, fs FragmentFunc) {
	r.TrianglesIn++
	poly := clipNear([]ClipVertex{a, b, c})
	for i := 1; i+1 < len(poly); i++ {
		r.rasterize(st, poly[0], poly[i], poly[i+1], fs)
	}
}

// nearSlack tolerates vertices placed exactly on the near plane that land a
// rounding error outside it.
const nearSlack = 1e-5

func nearDistance(v ClipVertex) float32 {
	w := v.Position.W()
	return v.Position.Z() + w + nearSlack*float32(math.Abs(float64(w)))
}

// clipNear clips a convex polygon against z >= -w.
func clipNear(poly []ClipVertex) []ClipVertex {
	allInside := true
	for _, v := range poly {
		if nearDistance(v) < 0 {
			allInside = false
			break
		}
	}
	if allInside {
		return poly
	}

	out := make([]ClipVertex, 0, len(poly)+1)
	for i := range poly {
		cur, next := poly[i], poly[(i+1)%len(poly)]
		dc, dn := nearDistance(cur), nearDistance(next)
		if dc >= 0 {
			out = append(out, cur)
		}
		if (dc >= 0) != (dn >= 0) {
			t := dc / (dc - dn)
			out = append(out, lerpVertex(cur, next, t))
		}
	}
	return out
}

func lerpVertex(a, b ClipVertex, t float32) ClipVertex {
	v := ClipVertex{
		Position: a.Position.Add(b.Position.Sub(a.Position).Mul(t)),
		Varyings: make([]float32, len(a.Varyings)),
	}
	for i := range a.Varyings {
		v.Varyings[i] = a.Varyings[i] + (b.Varyings[i]-a.Varyings[i])*t
	}
	return v
}

// Screen positions are snapped to a 1/16 pixel grid so that edge tests are
// exact and a pixel on an edge shared by two triangles is drawn once.
const (
	subpixelBits  = 4
	subpixelScale = 1 << subpixelBits
	guardBand     = 1 << 24
)

type screenVertex struct {
	x, y     int64 // fixed point
	z, invW  float64
	varyings []float32
}

func snap(v float64) int64 {
	v = math.Min(math.Max(v, -guardBand), guardBand)
	return int64(math.Round(v * subpixelScale))
}

func (r *Rasterizer) toScreen(v ClipVertex) (screenVertex, bool) {
	w := float64(v.Position.W())
	if w <= 1e-9 {
		return screenVertex{}, false
	}
	inv := 1 / w
	nx := float64(v.Position.X()) * inv
	ny := float64(v.Position.Y()) * inv
	nz := float64(v.Position.Z()) * inv
	return screenVertex{
		x:        snap((nx*0.5 + 0.5) * float64(r.Width)),
		y:        snap((0.5 - ny*0.5) * float64(r.Height)),
		z:        math.Min(math.Max(nz*0.5+0.5, 0), 1),
		invW:     inv,
		varyings: v.Varyings,
	}, true
}

func edge(ax, ay, bx, by, px, py int64) int64 {
	return (bx-ax)*(py-ay) - (by-ay)*(px-ax)
}

// topLeft reports whether the edge a->b owns pixels lying exactly on it,
// for a triangle with positive area in screen space (y down).
func topLeft(ax, ay, bx, by int64) bool {
	return (ay == by && bx > ax) || by < ay
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func (r *Rasterizer) rasterize(st *State, ca, cb, cc ClipVertex, fs FragmentFunc) {
	a, okA := r.toScreen(ca)
	b, okB := r.toScreen(cb)
	c, okC := r.toScreen(cc)
	if !okA || !okB || !okC {
		return
	}

	// Counter-clockwise in NDC is negative area in y-down screen space.
	area := edge(a.x, a.y, b.x, b.y, c.x, c.y)
	if area == 0 {
		return
	}
	front := area < 0
	switch st.Cull {
	case CullBack:
		if !front {
			return
		}
	case CullFront:
		if front {
			return
		}
	}
	if area < 0 {
		b, c = c, b
		area = -area
	}

	minX := max(floorDiv(min(a.x, b.x, c.x), subpixelScale), 0)
	maxX := min(floorDiv(max(a.x, b.x, c.x), subpixelScale), int64(r.Width-1))
	minY := max(floorDiv(min(a.y, b.y, c.y), subpixelScale), 0)
	maxY := min(floorDiv(max(a.y, b.y, c.y), subpixelScale), int64(r.Height-1))
	if minX > maxX || minY > maxY {
		return
	}

	tlBC := topLeft(b.x, b.y, c.x, c.y)
	tlCA := topLeft(c.x, c.y, a.x, a.y)
	tlAB := topLeft(a.x, a.y, b.x, b.y)

	nv := len(a.varyings)
	frag := Fragment{Varyings: make([]float32, nv)}
	out := make([]mgl32.Vec4, len(st.Targets))
	fArea := float64(area)
	const half = subpixelScale / 2

	for py := minY; py <= maxY; py++ {
		sy := py*subpixelScale + half
		for px := minX; px <= maxX; px++ {
			sx := px*subpixelScale + half
			w0 := edge(b.x, b.y, c.x, c.y, sx, sy)
			w1 := edge(c.x, c.y, a.x, a.y, sx, sy)
			w2 := edge(a.x, a.y, b.x, b.y, sx, sy)
			if w0 < 0 || w1 < 0 || w2 < 0 {
				continue
			}
			if (w0 == 0 && !tlBC) || (w1 == 0 && !tlCA) || (w2 == 0 && !tlAB) {
				continue
			}
			l0, l1, l2 := float64(w0)/fArea, float64(w1)/fArea, float64(w2)/fArea

			depth := float32(l0*a.z + l1*b.z + l2*c.z)
			idx := int(py)*r.Width + int(px)
			if st.Depth != nil && !st.DepthCompare.test(depth, st.Depth.Depth[idx]) {
				continue
			}

			invW := l0*a.invW + l1*b.invW + l2*c.invW
			p0, p1, p2 := l0*a.invW/invW, l1*b.invW/invW, l2*c.invW/invW
			for k := 0; k < nv; k++ {
				frag.Varyings[k] = float32(p0*float64(a.varyings[k]) + p1*float64(b.varyings[k]) + p2*float64(c.varyings[k]))
			}
			frag.X, frag.Y = int(px), int(py)
			frag.FragCoord = mgl32.Vec4{float32(px) + 0.5, float32(py) + 0.5, depth, float32(invW)}

			for i := range out {
				out[i] = mgl32.Vec4{}
			}
			r.FragmentsRun++
			if !fs(&frag, out) {
				continue
			}

			if st.Depth != nil && st.DepthWrite {
				st.Depth.Depth[idx] = depth
			}
			for i, t := range st.Targets {
				switch st.Blend {
				case BlendAdditive:
					t.Pix[idx] = t.Pix[idx].Add(out[i])
				default:
					t.Pix[idx] = out[i]
				}
			}
		}
	}
}
