package model

import "sync"

// Car is the full parametric description of a vehicle. Editors hold the
// advisory lock while mutating; analyses take a Clone.
type Car struct {
	mu sync.RWMutex

	Name       string
	Suspension Suspension
	Brakes     Brakes
	Drivetrain Drivetrain
	Engine     Engine
	Aero       Aerodynamics
	Mass       MassProperties
	Tires      WheelSet[Tire]
}

// Lock takes the advisory write lock for an edit.
func (c *Car) Lock() { c.mu.Lock() }

// Unlock releases the advisory write lock.
func (c *Car) Unlock() { c.mu.Unlock() }

// RLock takes the advisory read lock.
func (c *Car) RLock() { c.mu.RLock() }

// RUnlock releases the advisory read lock.
func (c *Car) RUnlock() { c.mu.RUnlock() }

// Clone returns an independent copy of the car taken under the read lock.
func (c *Car) Clone() *Car {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cloneLocked()
}

func (c *Car) cloneLocked() *Car {
	return &Car{
		Name:       c.Name,
		Suspension: c.Suspension,
		Brakes:     c.Brakes,
		Drivetrain: c.Drivetrain,
		Engine:     c.Engine,
		Aero:       c.Aero,
		Mass:       c.Mass,
		Tires:      c.Tires,
	}
}

// Edit runs fn under the write lock and refreshes derived points afterwards.
func (c *Car) Edit(fn func(*Car)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(c)
	c.updateDerivedPointsLocked()
}

// UpdateDerivedPoints applies symmetry and recomputes every wheel center from
// its contact patch, static angles and tire radius.
func (c *Car) UpdateDerivedPoints() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.updateDerivedPointsLocked()
}

func (c *Car) updateDerivedPointsLocked() {
	c.Suspension.ApplySymmetry()
	for _, loc := range Locations {
		c.Suspension.Corner(loc).DeriveWheelCenter(c.Tires.Get(loc).Radius())
	}
}

// TireRadius returns the unloaded radius of the tire at loc.
func (c *Car) TireRadius(loc Location) float64 {
	t := c.Tires.Get(loc)
	return t.Radius()
}
