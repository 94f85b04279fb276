// Package geom provides the immutable value types shared by pipeline
// messages: points, vectors, and sizes.
package geom

import "math"

// Point is an immutable 2D point in continuous image coordinates.
type Point struct {
	X, Y float64
}

// Pt is a convenience constructor for Point.
func Pt(x, y float64) Point { return Point{X: x, Y: y} }

// Add returns the sum of two points.
func (p Point) Add(q Point) Point { return Point{X: p.X + q.X, Y: p.Y + q.Y} }

// Sub returns the difference of two points.
func (p Point) Sub(q Point) Point { return Point{X: p.X - q.X, Y: p.Y - q.Y} }

// Distance returns the Euclidean distance between two points.
func (p Point) Distance(q Point) float64 {
	return p.Sub(q).Length()
}

// Length returns the distance from the origin, treating p as a vector.
func (p Point) Length() float64 { return math.Sqrt(p.X*p.X + p.Y*p.Y) }

// Vector2D is an immutable 2D displacement, used for optical-flow output
// and other node results that are directional rather than positional.
type Vector2D struct {
	DX, DY float64
}

// Add returns the sum of two vectors.
func (v Vector2D) Add(w Vector2D) Vector2D { return Vector2D{DX: v.DX + w.DX, DY: v.DY + w.DY} }

// Scale returns v scaled by s.
func (v Vector2D) Scale(s float64) Vector2D { return Vector2D{DX: v.DX * s, DY: v.DY * s} }

// Length returns the vector's Euclidean magnitude.
func (v Vector2D) Length() float64 { return math.Sqrt(v.DX*v.DX + v.DY*v.DY) }

// Size is an immutable width/height pair in pixels.
type Size struct {
	Width, Height int
}

// Area returns Width * Height.
func (s Size) Area() int { return s.Width * s.Height }
