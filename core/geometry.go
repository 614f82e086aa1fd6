package core

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/signalsfoundry/suspension-kinematics/model"
)

const (
	// parallelTol bounds |n1 x n2| below which two planes or lines are
	// treated as parallel.
	parallelTol = 1e-12
	// discriminantTol is the relative slack within which a slightly negative
	// quadratic discriminant is rounded up to a tangent solution.
	discriminantTol = 1e-9
)

// Sphere is the locus of points at Radius from Center.
type Sphere struct {
	Center model.Point
	Radius float64
}

// Plane is the set of points p with Normal·(p - Point) = 0. Normal is unit.
type Plane struct {
	Normal model.Point
	Point  model.Point
}

// Circle lies in the plane through Center with unit Normal.
type Circle struct {
	Center model.Point
	Normal model.Point
	Radius float64
}

// Axis is a directed line. AtInfinity marks an axis whose construction
// degenerated (parallel planes); only Direction is meaningful then.
type Axis struct {
	Point      model.Point
	Direction  model.Point
	AtInfinity bool
}

// PlaneFromPoints returns the plane through a, b and c. It fails when the
// points are collinear.
func PlaneFromPoints(a, b, c model.Point) (Plane, bool) {
	n := b.Sub(a).Cross(c.Sub(a))
	l := n.Len()
	if l < parallelTol*math.Max(1, b.Sub(a).Len()*c.Sub(a).Len()) {
		return Plane{}, false
	}
	return Plane{Normal: n.Mul(1 / l), Point: a}, true
}

// PlanePlane intersects two planes. It fails when the planes are parallel.
func PlanePlane(a, b Plane) (Axis, bool) {
	d := a.Normal.Cross(b.Normal)
	dd := d.Dot(d)
	if math.Sqrt(dd) < parallelTol {
		return Axis{}, false
	}
	h1 := a.Normal.Dot(a.Point)
	h2 := b.Normal.Dot(b.Point)
	n12 := a.Normal.Dot(b.Normal)
	n11 := a.Normal.Dot(a.Normal)
	n22 := b.Normal.Dot(b.Normal)
	p := a.Normal.Mul(h1*n22 - h2*n12).Add(b.Normal.Mul(h2*n11 - h1*n12)).Mul(1 / dd)
	return Axis{Point: p, Direction: d.Mul(1 / math.Sqrt(dd))}, true
}

// AxisSphere intersects a line with a sphere, returning the entry and exit
// points along the axis direction. Tangency returns the same point twice.
func AxisSphere(ax Axis, s Sphere) (model.Point, model.Point, bool) {
	l := ax.Direction.Len()
	if l == 0 {
		return model.Point{}, model.Point{}, false
	}
	u := ax.Direction.Mul(1 / l)
	w := ax.Point.Sub(s.Center)
	b := u.Dot(w)
	disc := b*b - (w.Dot(w) - s.Radius*s.Radius)
	if disc < 0 {
		if disc < -discriminantTol*math.Max(1, s.Radius*s.Radius) {
			return model.Point{}, model.Point{}, false
		}
		disc = 0
	}
	root := math.Sqrt(disc)
	return ax.Point.Add(u.Mul(-b - root)), ax.Point.Add(u.Mul(-b + root)), true
}

// radicalPlane returns the plane containing the intersection circle of two
// spheres. It fails for concentric spheres.
func radicalPlane(s1, s2 Sphere) (Plane, bool) {
	n := s2.Center.Sub(s1.Center)
	d := n.Len()
	if d < parallelTol {
		return Plane{}, false
	}
	u := n.Mul(1 / d)
	a := (d*d + s1.Radius*s1.Radius - s2.Radius*s2.Radius) / (2 * d)
	return Plane{Normal: u, Point: s1.Center.Add(u.Mul(a))}, true
}

// ThreeSphere finds the points lying on all three spheres. The first result
// lies on the positive side of the plane through the centers, oriented by
// (c2-c1) x (c3-c1).
func ThreeSphere(s1, s2, s3 Sphere) (model.Point, model.Point, bool) {
	p12, ok := radicalPlane(s1, s2)
	if !ok {
		return model.Point{}, model.Point{}, false
	}
	p13, ok := radicalPlane(s1, s3)
	if !ok {
		return model.Point{}, model.Point{}, false
	}
	ax, ok := PlanePlane(p12, p13)
	if !ok {
		return model.Point{}, model.Point{}, false
	}
	a, b, ok := AxisSphere(ax, s1)
	if !ok {
		return model.Point{}, model.Point{}, false
	}
	normal := s2.Center.Sub(s1.Center).Cross(s3.Center.Sub(s1.Center))
	mid := a.Add(b).Mul(0.5)
	if a.Sub(mid).Dot(normal) < 0 {
		a, b = b, a
	}
	return a, b, true
}

// CircleSphere intersects a circle with a sphere.
func CircleSphere(c Circle, s Sphere) (model.Point, model.Point, bool) {
	rp, ok := radicalPlane(Sphere{Center: c.Center, Radius: c.Radius}, s)
	if !ok {
		return model.Point{}, model.Point{}, false
	}
	return CirclePlane(c, rp)
}

// CirclePlane intersects a circle with a plane.
func CirclePlane(c Circle, p Plane) (model.Point, model.Point, bool) {
	ax, ok := PlanePlane(Plane{Normal: c.Normal, Point: c.Center}, p)
	if !ok {
		return model.Point{}, model.Point{}, false
	}
	return AxisSphere(ax, Sphere{Center: c.Center, Radius: c.Radius})
}

// LinePlane intersects a line with a plane. It fails when the line is
// parallel to the plane.
func LinePlane(ax Axis, p Plane) (model.Point, bool) {
	den := p.Normal.Dot(ax.Direction)
	if math.Abs(den) < parallelTol*math.Max(1, ax.Direction.Len()) {
		return model.Point{}, false
	}
	t := p.Normal.Dot(p.Point.Sub(ax.Point)) / den
	return ax.Point.Add(ax.Direction.Mul(t)), true
}

// LineIntersect2D intersects the lines p1 + s·d1 and p2 + t·d2 in a plane.
func LineIntersect2D(p1, d1, p2, d2 mgl64.Vec2) (mgl64.Vec2, bool) {
	den := d1.X()*d2.Y() - d1.Y()*d2.X()
	if math.Abs(den) < parallelTol*math.Max(1, d1.Len()*d2.Len()) {
		return mgl64.Vec2{}, false
	}
	w := p2.Sub(p1)
	s := (w.X()*d2.Y() - w.Y()*d2.X()) / den
	return p1.Add(d1.Mul(s)), true
}

// ClosestTo returns whichever of a and b lies nearer to ref. Ties keep a.
func ClosestTo(ref, a, b model.Point) model.Point {
	if model.Distance(b, ref) < model.Distance(a, ref) {
		return b
	}
	return a
}

// CircleAbout returns the circle traced by p when it rotates about the line
// through pivot with direction axis.
func CircleAbout(p, pivot, axis model.Point) Circle {
	u := axis.Normalize()
	center := pivot.Add(u.Mul(p.Sub(pivot).Dot(u)))
	return Circle{Center: center, Normal: u, Radius: model.Distance(p, center)}
}

// referenceTangent returns a unit vector perpendicular to n built from the
// world axis least aligned with n, so it does not flip under small changes.
func referenceTangent(n model.Point) model.Point {
	ref := model.Point{1, 0, 0}
	ax, ay, az := math.Abs(n.X()), math.Abs(n.Y()), math.Abs(n.Z())
	switch {
	case ay <= ax && ay <= az:
		ref = model.Point{0, 1, 0}
	case az <= ax && az <= ay:
		ref = model.Point{0, 0, 1}
	}
	t := ref.Sub(n.Mul(ref.Dot(n)))
	return t.Normalize()
}

// SignedAngleOnCircle returns the angle of v, measured from the circle
// center, in (-π, π] about the circle normal from the reference tangent.
func SignedAngleOnCircle(c Circle, v model.Point) float64 {
	n := c.Normal.Normalize()
	u := referenceTangent(n)
	w := n.Cross(u)
	return wrapAngle(math.Atan2(v.Dot(w), v.Dot(u)))
}

// SignedAngle returns the rotation in (-π, π] about axis that carries the
// direction from onto to, both projected into the plane normal to axis.
func SignedAngle(from, to, axis model.Point) float64 {
	c := Circle{Normal: axis}
	return wrapAngle(SignedAngleOnCircle(c, to) - SignedAngleOnCircle(c, from))
}

func wrapAngle(a float64) float64 {
	for a <= -math.Pi {
		a += 2 * math.Pi
	}
	for a > math.Pi {
		a -= 2 * math.Pi
	}
	return a
}

// RotateVector rotates v by angle about the unit direction axis.
func RotateVector(v, axis model.Point, angle float64) model.Point {
	return mgl64.QuatRotate(angle, axis.Normalize()).Rotate(v)
}

// RotateAbout rotates p by angle about the line through pivot along axis.
func RotateAbout(p, pivot, axis model.Point, angle float64) model.Point {
	return RotateVector(p.Sub(pivot), axis, angle).Add(pivot)
}

// RigidTransform maps p to R·p + T.
type RigidTransform struct {
	R mgl64.Mat3
	T model.Point
}

// Identity returns the transform that leaves every point in place.
func Identity() RigidTransform {
	return RigidTransform{R: mgl64.Ident3()}
}

// Apply transforms a point.
func (t RigidTransform) Apply(p model.Point) model.Point {
	return t.R.Mul3x1(p).Add(t.T)
}

// ApplyDir rotates a direction.
func (t RigidTransform) ApplyDir(v model.Point) model.Point {
	return t.R.Mul3x1(v)
}

func triadFrame(a, b, c model.Point) (mgl64.Mat3, bool) {
	e1 := b.Sub(a)
	e3 := e1.Cross(c.Sub(a))
	if e1.Len() < parallelTol || e3.Len() < parallelTol {
		return mgl64.Mat3{}, false
	}
	e1 = e1.Normalize()
	e3 = e3.Normalize()
	e2 := e3.Cross(e1)
	return mgl64.Mat3FromCols(e1, e2, e3), true
}

// TriadTransform returns the rigid motion carrying the triangle (a0, b0, c0)
// onto (a1, b1, c1). The triangles are assumed congruent; a maps exactly onto
// a1 and the edge a→b keeps its direction.
func TriadTransform(a0, b0, c0, a1, b1, c1 model.Point) (RigidTransform, bool) {
	f0, ok := triadFrame(a0, b0, c0)
	if !ok {
		return RigidTransform{}, false
	}
	f1, ok := triadFrame(a1, b1, c1)
	if !ok {
		return RigidTransform{}, false
	}
	r := f1.Mul3(f0.Transpose())
	return RigidTransform{R: r, T: a1.Sub(r.Mul3x1(a0))}, true
}
