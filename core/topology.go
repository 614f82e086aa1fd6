package core

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/signalsfoundry/suspension-kinematics/model"
)

// solveStep is one node of the per-corner dependency graph.
type solveStep int64

const (
	stepContact solveStep = iota
	stepOutboardPushrod
	stepBellcrank
	stepSpringDamper
	stepOutboardBarLink
	stepInboardBarLink
	stepHalfShaft
)

func (s solveStep) String() string {
	switch s {
	case stepContact:
		return "ContactPatch"
	case stepOutboardPushrod:
		return model.OutboardPushrod.String()
	case stepBellcrank:
		return model.InboardPushrod.String()
	case stepSpringDamper:
		return model.OutboardSpring.String()
	case stepOutboardBarLink:
		return model.OutboardBarLink.String()
	case stepInboardBarLink:
		return model.InboardBarLink.String()
	case stepHalfShaft:
		return model.OutboardHalfShaft.String()
	default:
		return fmt.Sprintf("solveStep(%d)", int64(s))
	}
}

// cornerTopology is the actuation variant of a corner. The solver picks the
// variant once and runs its steps without further branching on enums.
type cornerTopology interface {
	// solveCrank poses the bellcrank from the solved pushrod, if there is one.
	solveCrank(cs *cornerSolve) error
	// solveSpringDamper places the spring and damper outboard ends.
	solveSpringDamper(cs *cornerSolve) error
	hasBellcrank() bool
}

// bellcrankTopology routes the pushrod to a chassis-mounted bellcrank that
// carries the spring and damper.
type bellcrankTopology struct{}

// rockerTopology mounts the spring and damper directly on the actuation
// member.
type rockerTopology struct{}

func topologyFor(c *model.Corner) cornerTopology {
	if c.ActuationType == model.PushPullrodWithBellcrank {
		return bellcrankTopology{}
	}
	return rockerTopology{}
}

func (bellcrankTopology) hasBellcrank() bool { return true }
func (rockerTopology) hasBellcrank() bool    { return false }

func (bellcrankTopology) solveCrank(cs *cornerSolve) error { return cs.solveBellcrank() }

func (rockerTopology) solveCrank(*cornerSolve) error { return nil }

func (bellcrankTopology) solveSpringDamper(cs *cornerSolve) error {
	for _, h := range []model.Hardpoint{model.OutboardSpring, model.OutboardDamper} {
		cs.moveWithBellcrank(h)
	}
	return nil
}

func (rockerTopology) solveSpringDamper(cs *cornerSolve) error {
	cs.moveWithMember(cs.orig.ActuationAttachment, model.OutboardSpring, model.OutboardDamper)
	return nil
}

type orderKey struct {
	bellcrank  bool
	bar        bool
	barOnCrank bool
	halfShafts bool
}

// solveOrder builds the dependency graph of one corner's steps and returns a
// deterministic topological order.
func solveOrder(key orderKey) ([]solveStep, error) {
	g := simple.NewDirectedGraph()
	g.AddNode(simple.Node(stepContact))
	edge := func(from, to solveStep) {
		g.SetEdge(g.NewEdge(simple.Node(from), simple.Node(to)))
	}

	edge(stepContact, stepOutboardPushrod)
	if key.bellcrank {
		edge(stepOutboardPushrod, stepBellcrank)
		edge(stepBellcrank, stepSpringDamper)
	} else {
		edge(stepOutboardPushrod, stepSpringDamper)
	}
	if key.bar {
		if key.barOnCrank && key.bellcrank {
			edge(stepBellcrank, stepOutboardBarLink)
		} else {
			edge(stepContact, stepOutboardBarLink)
		}
		edge(stepOutboardBarLink, stepInboardBarLink)
	}
	if key.halfShafts {
		edge(stepContact, stepHalfShaft)
	}

	sorted, err := topo.SortStabilized(g, func(nodes []graph.Node) {
		sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID() < nodes[j].ID() })
	})
	if err != nil {
		return nil, fmt.Errorf("corner dependency graph: %w", err)
	}
	order := make([]solveStep, len(sorted))
	for i, n := range sorted {
		order[i] = solveStep(n.ID())
	}
	return order, nil
}
