// Package kb keeps the garage: the named original cars that analyses are
// run against.
package kb

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/signalsfoundry/suspension-kinematics/model"
)

var (
	ErrCarExists   = errors.New("kb: car already exists")
	ErrCarNotFound = errors.New("kb: car not found")
)

// EventType indicates what kind of change happened in the garage.
type EventType int

const (
	EventCarAdded EventType = iota
	EventCarUpdated
	EventCarRemoved
)

func (t EventType) String() string {
	switch t {
	case EventCarAdded:
		return "added"
	case EventCarUpdated:
		return "updated"
	case EventCarRemoved:
		return "removed"
	default:
		return fmt.Sprintf("EventType(%d)", int(t))
	}
}

// Event is emitted to subscribers after a change is committed.
type Event struct {
	Type EventType
	Name string
}

// Garage is an in-memory, thread-safe store of original cars keyed by name.
// The map is guarded by the garage lock; each car's geometry is guarded by
// the car's own advisory lock, so editors and analysis jobs can share a car.
type Garage struct {
	mu   sync.RWMutex
	cars map[string]*model.Car

	subs   map[int]func(Event)
	nextID int
}

// NewGarage constructs an empty garage.
func NewGarage() *Garage {
	return &Garage{
		cars: make(map[string]*model.Car),
		subs: make(map[int]func(Event)),
	}
}

// Add stores car under its name after validating it.
func (g *Garage) Add(car *model.Car) error {
	if car == nil {
		return fmt.Errorf("%w: nil car", model.ErrInvalidConfiguration)
	}
	if car.Name == "" {
		return fmt.Errorf("%w: car has no name", model.ErrInvalidConfiguration)
	}
	if err := car.Clone().Validate(); err != nil {
		return err
	}

	g.mu.Lock()
	if _, exists := g.cars[car.Name]; exists {
		g.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrCarExists, car.Name)
	}
	g.cars[car.Name] = car
	subs := g.subscribersLocked()
	g.mu.Unlock()

	notify(subs, Event{Type: EventCarAdded, Name: car.Name})
	return nil
}

// Get returns the original car, or nil if not found. Callers that read it
// must hold its read lock or use Snapshot.
func (g *Garage) Get(name string) *model.Car {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.cars[name]
}

// Snapshot returns an independent copy of the named car.
func (g *Garage) Snapshot(name string) (*model.Car, error) {
	car := g.Get(name)
	if car == nil {
		return nil, fmt.Errorf("%w: %q", ErrCarNotFound, name)
	}
	return car.Clone(), nil
}

// Update edits the named car under its write lock, refreshes derived points
// and notifies subscribers. The car keeps its name.
func (g *Garage) Update(name string, fn func(*model.Car)) error {
	car := g.Get(name)
	if car == nil {
		return fmt.Errorf("%w: %q", ErrCarNotFound, name)
	}
	car.Edit(func(c *model.Car) {
		fn(c)
		c.Name = name
	})

	g.mu.RLock()
	subs := g.subscribersLocked()
	g.mu.RUnlock()
	notify(subs, Event{Type: EventCarUpdated, Name: name})
	return nil
}

// Remove deletes the named car.
func (g *Garage) Remove(name string) error {
	g.mu.Lock()
	if _, ok := g.cars[name]; !ok {
		g.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrCarNotFound, name)
	}
	delete(g.cars, name)
	subs := g.subscribersLocked()
	g.mu.Unlock()

	notify(subs, Event{Type: EventCarRemoved, Name: name})
	return nil
}

// List returns the car names in sorted order.
func (g *Garage) List() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	names := make([]string, 0, len(g.cars))
	for name := range g.cars {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Subscribe registers a callback for garage events. It returns an
// unsubscribe function; calling it more than once is harmless.
func (g *Garage) Subscribe(fn func(Event)) (unsubscribe func()) {
	g.mu.Lock()
	defer g.mu.Unlock()
	id := g.nextID
	g.nextID++
	g.subs[id] = fn

	return func() {
		g.mu.Lock()
		defer g.mu.Unlock()
		delete(g.subs, id)
	}
}

func (g *Garage) subscribersLocked() []func(Event) {
	ids := make([]int, 0, len(g.subs))
	for id := range g.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	subs := make([]func(Event), 0, len(ids))
	for _, id := range ids {
		subs = append(subs, g.subs[id])
	}
	return subs
}

// notify runs outside the garage lock so callbacks may call back in.
func notify(subs []func(Event), ev Event) {
	for _, sub := range subs {
		sub(ev)
	}
}
