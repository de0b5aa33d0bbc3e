package vector

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// Vector2 is a point or offset in a flat 2D coordinate system. World and
// canvas coordinates both use it.
type Vector2 struct {
	X, Y float64
}

func New(x, y float64) Vector2 {
	return Vector2{x, y}
}

func FromPoint(p orb.Point) Vector2 {
	return Vector2{p[0], p[1]}
}

func (v Vector2) Point() orb.Point {
	return orb.Point{v.X, v.Y}
}

func (v Vector2) Add(o Vector2) Vector2 {
	return Vector2{v.X + o.X, v.Y + o.Y}
}

func (v Vector2) Sub(o Vector2) Vector2 {
	return Vector2{v.X - o.X, v.Y - o.Y}
}

// Scale multiplies each axis independently.
func (v Vector2) Scale(x, y float64) Vector2 {
	return Vector2{v.X * x, v.Y * y}
}

func (v Vector2) Mul(s float64) Vector2 {
	return Vector2{v.X * s, v.Y * s}
}

func (v Vector2) Div(s float64) Vector2 {
	return Vector2{v.X / s, v.Y / s}
}

func (v Vector2) Dot(o Vector2) float64 {
	return v.X*o.X + v.Y*o.Y
}

func (v Vector2) LengthSq() float64 {
	return v.Dot(v)
}

// Translation returns the offset that moves from onto to.
func Translation(from, to Vector2) Vector2 {
	return to.Sub(from)
}

func DistanceSq(a, b Vector2) float64 {
	return a.Sub(b).LengthSq()
}

// NearestPointOnSegment returns the point of segment [a,b] closest to p.
func NearestPointOnSegment(p, a, b Vector2) Vector2 {
	ab := b.Sub(a)
	l := ab.LengthSq()
	if l == 0 {
		return a
	}
	t := p.Sub(a).Dot(ab) / l
	t = math.Max(0, math.Min(1, t))
	return a.Add(ab.Mul(t))
}

// Polygon is a simple polygon given by its vertices in winding order. The
// closing edge from the last vertex back to the first is implicit.
type Polygon []Vector2

// edgeEpsilonSq is the squared distance under which a point counts as lying
// on an edge.
const edgeEpsilonSq = 0.001

func (p Polygon) Ring() orb.Ring {
	r := make(orb.Ring, 0, len(p)+1)
	for _, v := range p {
		r = append(r, v.Point())
	}
	if len(p) > 0 && p[0] != p[len(p)-1] {
		r = append(r, p[0].Point())
	}
	return r
}

// Contains reports whether pt lies inside the polygon. Points on a vertex or
// edge (within a small tolerance) are inside. Polygons with fewer than three
// vertices contain nothing.
func (p Polygon) Contains(pt Vector2) bool {
	if len(p) < 3 {
		return false
	}
	for i := range p {
		a, b := p[i], p[(i+1)%len(p)]
		if DistanceSq(pt, NearestPointOnSegment(pt, a, b)) < edgeEpsilonSq {
			return true
		}
	}
	return planar.RingContains(p.Ring(), pt.Point())
}

// Centroid returns the area centroid, falling back to the vertex average for
// degenerate polygons.
func (p Polygon) Centroid() Vector2 {
	if len(p) == 0 {
		return Vector2{}
	}
	if len(p) >= 3 {
		c, area := planar.CentroidArea(p.Ring())
		if area != 0 {
			return FromPoint(c)
		}
	}
	var sum Vector2
	for _, v := range p {
		sum = sum.Add(v)
	}
	return sum.Div(float64(len(p)))
}

func (p Polygon) Bounds() Rect {
	if len(p) == 0 {
		return Rect{}
	}
	b := orb.Bound{Min: p[0].Point(), Max: p[0].Point()}
	for _, v := range p[1:] {
		b = b.Extend(v.Point())
	}
	return RectFromBound(b)
}

// Rect is an axis aligned rectangle, Min inclusive.
type Rect struct {
	Min, Max Vector2
}

func RectFromBound(b orb.Bound) Rect {
	return Rect{FromPoint(b.Min), FromPoint(b.Max)}
}

func (r Rect) Bound() orb.Bound {
	return orb.Bound{Min: r.Min.Point(), Max: r.Max.Point()}
}

func (r Rect) Size() Vector2 {
	return r.Max.Sub(r.Min)
}

func (r Rect) Contains(p Vector2) bool {
	return p.X >= r.Min.X && p.X < r.Max.X && p.Y >= r.Min.Y && p.Y < r.Max.Y
}

func (r Rect) Intersects(o Rect) bool {
	return r.Bound().Intersects(o.Bound())
}

func (r Rect) Polygon() Polygon {
	return Polygon{r.Min, {r.Max.X, r.Min.Y}, r.Max, {r.Min.X, r.Max.Y}}
}
