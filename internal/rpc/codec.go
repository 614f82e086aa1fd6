package rpc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/signalsfoundry/suspension-kinematics/core"
	"github.com/signalsfoundry/suspension-kinematics/internal/jobs"
	"github.com/signalsfoundry/suspension-kinematics/model"
)

// attitudeJSON is the wire form of an attitude command. Angles are radians.
type attitudeJSON struct {
	Pitch            float64            `json:"pitch"`
	Roll             float64            `json:"roll"`
	Heave            float64            `json:"heave"`
	RackTravel       float64            `json:"rack_travel"`
	CenterOfRotation *[3]float64        `json:"center_of_rotation,omitempty"`
	Sequence         string             `json:"sequence,omitempty"`
	TireDeflections  map[string]float64 `json:"tire_deflections,omitempty"`
}

// analyzeRequest: "car" is a garage name or an inline JSON car.
type analyzeRequest struct {
	Car      json.RawMessage `json:"car"`
	Inputs   attitudeJSON    `json:"inputs"`
	Priority string          `json:"priority,omitempty"`
}

type quasiStaticRequest struct {
	Car              json.RawMessage `json:"car"`
	Gx               float64         `json:"gx"`
	Gy               float64         `json:"gy"`
	RackTravel       float64         `json:"rack_travel"`
	CenterOfRotation *[3]float64     `json:"center_of_rotation,omitempty"`
	Sequence         string          `json:"sequence,omitempty"`
	Priority         string          `json:"priority,omitempty"`
}

func decodeRequest(req *structpb.Struct, dst any) error {
	raw, err := protojson.Marshal(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	return nil
}

// carRef is either a garage name or an inline car decoded from the request.
type carRef struct {
	name   string
	inline *model.Car
}

func parseCarRef(raw json.RawMessage) (carRef, error) {
	raw = bytes.TrimSpace(raw)
	switch {
	case len(raw) == 0 || bytes.Equal(raw, []byte("null")):
		return carRef{}, fmt.Errorf("%w: car is required", ErrBadRequest)
	case raw[0] == '"':
		var name string
		if err := json.Unmarshal(raw, &name); err != nil || name == "" {
			return carRef{}, fmt.Errorf("%w: car name must be a non-empty string", ErrBadRequest)
		}
		return carRef{name: name}, nil
	case raw[0] == '{':
		car, err := core.LoadCar(bytes.NewReader(raw))
		if err != nil {
			return carRef{}, fmt.Errorf("%w: %v", ErrBadRequest, err)
		}
		return carRef{name: car.Name, inline: car}, nil
	default:
		return carRef{}, fmt.Errorf("%w: car must be a name or an object", ErrBadRequest)
	}
}

func parseSequence(s string) (model.RotationSequence, error) {
	switch s {
	case "", model.PitchThenRoll.String():
		return model.PitchThenRoll, nil
	case model.RollThenPitch.String():
		return model.RollThenPitch, nil
	default:
		return 0, fmt.Errorf("%w: unknown rotation sequence %q", ErrBadRequest, s)
	}
}

func parsePriority(s string, def jobs.Priority) (jobs.Priority, error) {
	if s == "" {
		return def, nil
	}
	p, err := jobs.ParsePriority(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	return p, nil
}

func (a attitudeJSON) inputs() (model.KinematicsInputs, error) {
	seq, err := parseSequence(a.Sequence)
	if err != nil {
		return model.KinematicsInputs{}, err
	}
	in := model.KinematicsInputs{
		Pitch:      a.Pitch,
		Roll:       a.Roll,
		Heave:      a.Heave,
		RackTravel: a.RackTravel,
		Sequence:   seq,
	}
	if a.CenterOfRotation != nil {
		in.CenterOfRotation = model.Point(*a.CenterOfRotation)
	}
	for name, d := range a.TireDeflections {
		loc, err := model.ParseLocation(name)
		if err != nil {
			return model.KinematicsInputs{}, fmt.Errorf("%w: tire deflection: %v", ErrBadRequest, err)
		}
		in.TireDeflections.Set(loc, d)
	}
	return in, nil
}

func (q quasiStaticRequest) inputs() (model.QuasiStaticInputs, error) {
	seq, err := parseSequence(q.Sequence)
	if err != nil {
		return model.QuasiStaticInputs{}, err
	}
	in := model.QuasiStaticInputs{Gx: q.Gx, Gy: q.Gy, RackTravel: q.RackTravel, Sequence: seq}
	if q.CenterOfRotation != nil {
		in.CenterOfRotation = model.Point(*q.CenterOfRotation)
	}
	return in, nil
}

func pointValue(p model.Point) []any {
	return []any{p.X(), p.Y(), p.Z()}
}

func wheelValues[T any](w model.WheelSet[T], conv func(T) any) map[string]any {
	m := make(map[string]any, model.NumLocations)
	for _, loc := range model.Locations {
		m[loc.String()] = conv(w.Get(loc))
	}
	return m
}

// outputsValue flattens o. JSON numbers cannot carry infinities, so
// outputs at infinity are sent as the string "Infinity" the way protojson
// writes non-finite doubles.
func outputsValue(o *core.Outputs) map[string]any {
	flat := o.Flatten()
	m := make(map[string]any, len(flat))
	for k, v := range flat {
		switch {
		case math.IsInf(v, 1):
			m[k] = "Infinity"
		case math.IsInf(v, -1):
			m[k] = "-Infinity"
		case math.IsNaN(v):
			m[k] = "NaN"
		default:
			m[k] = v
		}
	}
	return m
}

// hardpointsValue lists the solved corner points, keyed by location then
// hardpoint name.
func hardpointsValue(car *model.Car) map[string]any {
	out := make(map[string]any, model.NumLocations)
	for _, loc := range model.Locations {
		corner := car.Suspension.Corner(loc)
		pts := make(map[string]any, model.NumHardpoints)
		for h := model.Hardpoint(0); h < model.NumHardpoints; h++ {
			pts[h.String()] = pointValue(corner.Point(h))
		}
		out[loc.String()] = pts
	}
	return out
}

func attitudeValue(in model.KinematicsInputs) map[string]any {
	return map[string]any{
		"pitch":              in.Pitch,
		"roll":               in.Roll,
		"heave":              in.Heave,
		"rack_travel":        in.RackTravel,
		"center_of_rotation": pointValue(in.CenterOfRotation),
		"sequence":           in.Sequence.String(),
		"tire_deflections":   wheelValues(in.TireDeflections, func(v float64) any { return v }),
	}
}

func encodeAnalysis(name string, res *core.Result) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"car":        name,
		"inputs":     attitudeValue(res.Inputs),
		"iterations": wheelValues(res.Iterations, func(v int) any { return v }),
		"outputs":    outputsValue(&res.Outputs),
		"hardpoints": hardpointsValue(res.Working),
	})
}

func encodeQuasiStatic(name string, res *core.QuasiStaticResult) (*structpb.Struct, error) {
	m := map[string]any{
		"car":        name,
		"converged":  res.Converged,
		"iterations": res.Iterations,
		"residual":   res.Residual,
		"inputs":     attitudeValue(res.Inputs),
		"loads":      wheelValues(res.Loads, func(v float64) any { return v }),
	}
	if res.Kinematics != nil {
		m["outputs"] = outputsValue(&res.Kinematics.Outputs)
	}
	return structpb.NewStruct(m)
}
