package model

import "fmt"

// Location identifies one corner of the car.
type Location int

const (
	RightFront Location = iota
	LeftFront
	RightRear
	LeftRear
	NumLocations
)

// Locations lists every corner in the canonical serialisation order.
var Locations = [NumLocations]Location{RightFront, LeftFront, RightRear, LeftRear}

func (l Location) String() string {
	switch l {
	case RightFront:
		return "RightFront"
	case LeftFront:
		return "LeftFront"
	case RightRear:
		return "RightRear"
	case LeftRear:
		return "LeftRear"
	default:
		return fmt.Sprintf("Location(%d)", int(l))
	}
}

// ParseLocation maps a stable corner name back to its Location.
func ParseLocation(s string) (Location, error) {
	for _, l := range Locations {
		if l.String() == s {
			return l, nil
		}
	}
	return 0, fmt.Errorf("unknown corner location %q", s)
}

// IsRight reports whether the corner is on the driver's right.
func (l Location) IsRight() bool { return l == RightFront || l == RightRear }

// IsFront reports whether the corner belongs to the front axle.
func (l Location) IsFront() bool { return l == RightFront || l == LeftFront }

// Side returns +1 for right-hand corners and -1 for left-hand corners.
func (l Location) Side() float64 {
	if l.IsRight() {
		return 1
	}
	return -1
}

// Opposite returns the corner on the other side of the same axle.
func (l Location) Opposite() Location {
	switch l {
	case RightFront:
		return LeftFront
	case LeftFront:
		return RightFront
	case RightRear:
		return LeftRear
	default:
		return RightRear
	}
}

// Axle returns the axle the corner belongs to.
func (l Location) Axle() Axle {
	if l.IsFront() {
		return Front
	}
	return Rear
}

// Axle identifies the front or rear pair of corners.
type Axle int

const (
	Front Axle = iota
	Rear
)

func (a Axle) String() string {
	if a == Front {
		return "Front"
	}
	return "Rear"
}

// Right returns the right-hand corner of the axle.
func (a Axle) Right() Location {
	if a == Front {
		return RightFront
	}
	return RightRear
}

// Left returns the left-hand corner of the axle.
func (a Axle) Left() Location {
	if a == Front {
		return LeftFront
	}
	return LeftRear
}

// WheelSet holds one value per corner.
type WheelSet[T any] struct {
	RightFront T
	LeftFront  T
	RightRear  T
	LeftRear   T
}

// NewWheelSet returns a WheelSet with every corner set to v.
func NewWheelSet[T any](v T) WheelSet[T] {
	return WheelSet[T]{RightFront: v, LeftFront: v, RightRear: v, LeftRear: v}
}

// Get returns the value for the given corner.
func (w *WheelSet[T]) Get(l Location) T {
	return *w.Ptr(l)
}

// Set stores the value for the given corner.
func (w *WheelSet[T]) Set(l Location, v T) {
	*w.Ptr(l) = v
}

// Ptr returns a pointer to the value for the given corner.
func (w *WheelSet[T]) Ptr(l Location) *T {
	switch l {
	case RightFront:
		return &w.RightFront
	case LeftFront:
		return &w.LeftFront
	case RightRear:
		return &w.RightRear
	case LeftRear:
		return &w.LeftRear
	default:
		panic(fmt.Sprintf("model: invalid location %d", int(l)))
	}
}

// FrontRear holds one value per axle.
type FrontRear[T any] struct {
	Front T
	Rear  T
}

// Get returns the value for the given axle.
func (f *FrontRear[T]) Get(a Axle) T {
	if a == Front {
		return f.Front
	}
	return f.Rear
}

// Set stores the value for the given axle.
func (f *FrontRear[T]) Set(a Axle, v T) {
	if a == Front {
		f.Front = v
		return
	}
	f.Rear = v
}
