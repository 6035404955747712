// Package graph implements piecewise linear functions over the reals with
// jump discontinuities, as used for beat and time conversions.
package graph

import (
	"math"
	"sort"

	"github.com/pkg/errors"
)

var ErrNotInvertible = errors.New("graph is not monotonic")

// Point is one breakpoint of a Graph. A non-zero Jump makes the function
// discontinuous at X, going from Y on the left to Y+Jump on the right.
// LeftDefined picks which of the two F(X) returns.
type Point struct {
	X, Y        float64
	Jump        float64
	LeftDefined bool
}

func (p Point) IsJump() bool {
	return p.Jump != 0
}

// Pre is the value approached from the left.
func (p Point) Pre() float64 {
	return p.Y
}

// Post is the value approached from the right.
func (p Point) Post() float64 {
	return p.Y + p.Jump
}

func (p Point) Value() float64 {
	if p.LeftDefined || !p.IsJump() {
		return p.Y
	}
	return p.Y + p.Jump
}

// Graph is a piecewise linear function defined by points ordered by X.
// The zero value is an empty graph.
type Graph struct {
	points []Point
	jumps  int
}

func New(points ...Point) *Graph {
	g := &Graph{}
	for _, p := range points {
		g.Put(p)
	}
	return g
}

func (g *Graph) search(x float64) (int, bool) {
	i := sort.Search(len(g.points), func(i int) bool {
		return g.points[i].X >= x
	})
	return i, i < len(g.points) && g.points[i].X == x
}

// Put inserts p, replacing any point already at p.X.
func (g *Graph) Put(p Point) {
	i, found := g.search(p.X)
	if found {
		if g.points[i].IsJump() {
			g.jumps--
		}
		g.points[i] = p
	} else {
		g.points = append(g.points, Point{})
		copy(g.points[i+1:], g.points[i:])
		g.points[i] = p
	}
	if p.IsJump() {
		g.jumps++
	}
}

func (g *Graph) PutXY(x, y float64) {
	g.Put(Point{X: x, Y: y})
}

// Remove deletes the point at x and reports whether there was one.
func (g *Graph) Remove(x float64) bool {
	i, found := g.search(x)
	if !found {
		return false
	}
	if g.points[i].IsJump() {
		g.jumps--
	}
	g.points = append(g.points[:i], g.points[i+1:]...)
	return true
}

// PutJump sets the discontinuity at x, or clears it when amount is 0. A
// missing point is created on the current function value.
func (g *Graph) PutJump(x, amount float64, leftDefined bool) {
	i, found := g.search(x)
	if found {
		p := g.points[i]
		p.Jump = amount
		p.LeftDefined = leftDefined
		g.Put(p)
		return
	}
	if amount == 0 {
		return
	}
	y := g.F(x)
	if math.IsNaN(y) {
		y = g.nearest(i)
	}
	g.Put(Point{X: x, Y: y, Jump: amount, LeftDefined: leftDefined})
}

// nearest is the value of the closest boundary point for an insertion index
// outside the defined range.
func (g *Graph) nearest(i int) float64 {
	switch {
	case len(g.points) == 0:
		return 0
	case i == 0:
		return g.points[0].Pre()
	case i >= len(g.points):
		return g.points[len(g.points)-1].Post()
	}
	return g.points[i-1].Post()
}

// segment returns the two points whose line covers insertion index i, and
// false when the function is undefined there.
func (g *Graph) segment(i int) (Point, Point, bool) {
	n := len(g.points)
	switch {
	case n < 2:
		return Point{}, Point{}, false
	case i == 0:
		first := g.points[0]
		return first, g.points[1], !first.IsJump()
	case i >= n:
		last := g.points[n-1]
		return g.points[n-2], last, !last.IsJump()
	}
	return g.points[i-1], g.points[i], true
}

func line(a, b Point, x float64) float64 {
	from, to := a.Post(), b.Pre()
	if from == to {
		return from
	}
	return from + (to-from)*(x-a.X)/(b.X-a.X)
}

// F evaluates the function at x. It is NaN where the graph is undefined.
func (g *Graph) F(x float64) float64 {
	if len(g.points) < 2 {
		return math.NaN()
	}
	i, found := g.search(x)
	if found {
		return g.points[i].Value()
	}
	a, b, ok := g.segment(i)
	if !ok {
		return math.NaN()
	}
	return line(a, b, x)
}

// Bounds returns the values approached from the left and from the right of
// x. They only differ on a jump.
func (g *Graph) Bounds(x float64) (float64, float64) {
	if len(g.points) < 2 {
		return math.NaN(), math.NaN()
	}
	if i, found := g.search(x); found {
		p := g.points[i]
		return p.Pre(), p.Post()
	}
	v := g.F(x)
	return v, v
}

func (g *Graph) IsDefined(x float64) bool {
	if len(g.points) < 2 {
		return false
	}
	i, found := g.search(x)
	if found {
		return true
	}
	_, _, ok := g.segment(i)
	return ok
}

// direction reports whether the effective values never decrease (1), never
// increase (-1) or never change (0). ok is false when they do both.
func (g *Graph) direction() (int, bool) {
	dir := 0
	prev := math.NaN()
	step := func(v float64) bool {
		if !math.IsNaN(prev) {
			d := 0
			if v > prev {
				d = 1
			} else if v < prev {
				d = -1
			}
			if d != 0 {
				if dir != 0 && d != dir {
					return false
				}
				dir = d
			}
		}
		prev = v
		return true
	}
	for _, p := range g.points {
		if !step(p.Pre()) {
			return 0, false
		}
		if p.IsJump() && !step(p.Post()) {
			return 0, false
		}
	}
	return dir, true
}

func (g *Graph) IsInvertible() bool {
	if len(g.points) < 2 {
		return false
	}
	_, ok := g.direction()
	return ok
}

// Invert swaps the axes. Every jump becomes a constant segment and every
// constant segment becomes a jump, which takes LeftDefined from the end of
// the segment.
func (g *Graph) Invert() (*Graph, error) {
	if len(g.points) < 2 {
		return nil, errors.Wrapf(ErrNotInvertible, "%d points", len(g.points))
	}
	dir, ok := g.direction()
	if !ok {
		return nil, ErrNotInvertible
	}

	type pair struct {
		v, x float64
		ld   bool
	}
	seq := make([]pair, 0, len(g.points)+g.jumps)
	if dir >= 0 {
		for _, p := range g.points {
			seq = append(seq, pair{p.Pre(), p.X, p.LeftDefined})
			if p.IsJump() {
				seq = append(seq, pair{p.Post(), p.X, p.LeftDefined})
			}
		}
	} else {
		for i := len(g.points) - 1; i >= 0; i-- {
			p := g.points[i]
			seq = append(seq, pair{p.Post(), p.X, p.LeftDefined})
			if p.IsJump() {
				seq = append(seq, pair{p.Pre(), p.X, p.LeftDefined})
			}
		}
	}

	inv := &Graph{points: make([]Point, 0, len(seq))}
	for i, s := range seq {
		if i > 0 && seq[i-1].v == s.v {
			base, _ := inv.Point(s.v)
			base.Jump = s.x - base.Y
			base.LeftDefined = s.ld
			inv.Put(base)
			continue
		}
		inv.Put(Point{X: s.v, Y: s.x, LeftDefined: s.ld})
	}
	return inv, nil
}

func (g *Graph) Point(x float64) (Point, bool) {
	i, found := g.search(x)
	if !found {
		return Point{}, false
	}
	return g.points[i], true
}

// Points returns a copy of the points in ascending X.
func (g *Graph) Points() []Point {
	return append([]Point(nil), g.points...)
}

func (g *Graph) Len() int {
	return len(g.points)
}

func (g *Graph) Jumps() int {
	return g.jumps
}
