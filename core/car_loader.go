package core

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/signalsfoundry/suspension-kinematics/model"
)

// internal JSON shapes, kept unexported so the file format can evolve
// independently of the model.
type carJSON struct {
	Name       string                `json:"name"`
	Symmetric  bool                  `json:"symmetric"`
	RackRatio  float64               `json:"rack_ratio"`
	Corners    map[string]cornerJSON `json:"corners"`
	Hardpoints map[string][3]float64 `json:"hardpoints,omitempty"`
	Front      axleJSON              `json:"front"`
	Rear       axleJSON              `json:"rear"`
	Tire       *tireJSON             `json:"tire,omitempty"`  // applied to every corner
	Tires      map[string]tireJSON   `json:"tires,omitempty"` // per-corner overrides
	Mass       massJSON              `json:"mass"`
	Unsprung   map[string]float64    `json:"unsprung_mass,omitempty"`
	Brakes     brakesJSON            `json:"brakes"`
	Drivetrain drivetrainJSON        `json:"drivetrain"`
	Engine     *model.Engine         `json:"engine,omitempty"`
	Aero       *aeroJSON             `json:"aero,omitempty"`
}

type cornerJSON struct {
	Hardpoints          map[string][3]float64 `json:"hardpoints"`
	StaticCamber        float64               `json:"static_camber"`
	StaticToe           float64               `json:"static_toe"`
	ActuationAttachment string                `json:"actuation_attachment"` // "LowerAArm" | "UpperAArm" | "Upright"
	ActuationType       string                `json:"actuation_type"`       // "PushPullrodWithBellcrank" | "OutboardRockerArm"
	SpringRate          float64               `json:"spring_rate"`
}

type axleJSON struct {
	BarStyle           string  `json:"bar_style"`      // "None" | "UBar" | "TBar" | "Geared"
	BarAttachment      string  `json:"bar_attachment"` // "Bellcrank" | "LowerAArm" | "UpperAArm" | "Upright"
	BarRate            float64 `json:"bar_rate"`
	BarSignGreaterThan *bool   `json:"bar_sign_greater_than"` // optional; defaults to true
	ThirdSpring        bool    `json:"third_spring"`
	ThirdDamper        bool    `json:"third_damper"`
	ThirdSpringRate    float64 `json:"third_spring_rate"`
	HalfShafts         bool    `json:"half_shafts"`
}

type tireJSON struct {
	Diameter  float64 `json:"diameter"`
	Width     float64 `json:"width"`
	Stiffness float64 `json:"stiffness"`
}

type massJSON struct {
	Mass            float64    `json:"mass"`
	CenterOfGravity [3]float64 `json:"cg"`
	Gravity         float64    `json:"gravity"`
}

type brakesJSON struct {
	FrontInboard  bool            `json:"front_inboard"`
	RearInboard   bool            `json:"rear_inboard"`
	FrontFraction float64         `json:"front_fraction"`
	Braked        map[string]bool `json:"braked,omitempty"` // optional; defaults to all braked
}

type drivetrainJSON struct {
	Drive               string  `json:"drive"` // "RearWheelDrive" | "FrontWheelDrive" | "AllWheelDrive"
	FrontTorqueFraction float64 `json:"front_torque_fraction"`
}

type aeroJSON struct {
	FrontalArea      float64    `json:"frontal_area"`
	DragCoefficient  float64    `json:"drag_coefficient"`
	LiftCoefficient  float64    `json:"lift_coefficient"`
	CenterOfPressure [3]float64 `json:"center_of_pressure"`
}

// LoadCar decodes a JSON car description. When the car is symmetric the
// left-hand corners may be omitted. Derived points are refreshed, but the
// car is not validated; call Validate before solving.
func LoadCar(r io.Reader) (*model.Car, error) {
	var payload carJSON
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("LoadCar: decode failed: %w", err)
	}

	car := &model.Car{Name: payload.Name}
	s := &car.Suspension
	s.IsSymmetric = payload.Symmetric
	s.RackRatio = payload.RackRatio

	for name, cj := range payload.Corners {
		loc, err := model.ParseLocation(name)
		if err != nil {
			return nil, fmt.Errorf("LoadCar: %w", err)
		}
		c, err := cornerFromJSON(loc, cj)
		if err != nil {
			return nil, fmt.Errorf("LoadCar: %s: %w", name, err)
		}
		*s.Corner(loc) = c
	}
	for _, loc := range model.Locations {
		if _, ok := payload.Corners[loc.String()]; ok {
			continue
		}
		_, mirrored := payload.Corners[loc.Opposite().String()]
		if !payload.Symmetric || loc.IsRight() || !mirrored {
			return nil, fmt.Errorf("LoadCar: corner %s is missing", loc)
		}
		s.Corner(loc).Location = loc
	}

	for name, p := range payload.Hardpoints {
		h, err := model.ParseSuspensionHardpoint(name)
		if err != nil {
			return nil, fmt.Errorf("LoadCar: %w", err)
		}
		s.SetPoint(h, model.Point(p))
	}
	for axle, aj := range map[model.Axle]axleJSON{model.Front: payload.Front, model.Rear: payload.Rear} {
		cfg, err := axleFromJSON(aj)
		if err != nil {
			return nil, fmt.Errorf("LoadCar: %s axle: %w", axle, err)
		}
		*s.Axle(axle) = cfg
	}

	if payload.Tire != nil {
		car.Tires = model.NewWheelSet(model.Tire(*payload.Tire))
	}
	for name, tj := range payload.Tires {
		loc, err := model.ParseLocation(name)
		if err != nil {
			return nil, fmt.Errorf("LoadCar: tires: %w", err)
		}
		car.Tires.Set(loc, model.Tire(tj))
	}

	car.Mass = model.MassProperties{
		Mass:            payload.Mass.Mass,
		CenterOfGravity: model.Point(payload.Mass.CenterOfGravity),
		Gravity:         payload.Mass.Gravity,
	}
	if car.Mass.Gravity == 0 {
		car.Mass.Gravity = 386.088
	}
	for name, m := range payload.Unsprung {
		loc, err := model.ParseLocation(name)
		if err != nil {
			return nil, fmt.Errorf("LoadCar: unsprung_mass: %w", err)
		}
		car.Mass.UnsprungMass.Set(loc, m)
	}

	car.Brakes = model.Brakes{
		Braked:              model.NewWheelSet(true),
		FrontBrakesInboard:  payload.Brakes.FrontInboard,
		RearBrakesInboard:   payload.Brakes.RearInboard,
		PercentFrontBraking: payload.Brakes.FrontFraction,
	}
	for name, b := range payload.Brakes.Braked {
		loc, err := model.ParseLocation(name)
		if err != nil {
			return nil, fmt.Errorf("LoadCar: brakes: %w", err)
		}
		car.Brakes.Braked.Set(loc, b)
	}

	drive, err := parseEnum(payload.Drivetrain.Drive, model.RearWheelDrive, model.RearWheelDrive, model.FrontWheelDrive, model.AllWheelDrive)
	if err != nil {
		return nil, fmt.Errorf("LoadCar: drivetrain: %w", err)
	}
	car.Drivetrain = model.Drivetrain{DriveType: drive, FrontTorqueFraction: payload.Drivetrain.FrontTorqueFraction}

	if payload.Engine != nil {
		car.Engine = *payload.Engine
	}
	if a := payload.Aero; a != nil {
		car.Aero = model.Aerodynamics{
			FrontalArea:      a.FrontalArea,
			DragCoefficient:  a.DragCoefficient,
			LiftCoefficient:  a.LiftCoefficient,
			CenterOfPressure: model.Point(a.CenterOfPressure),
		}
	}

	car.UpdateDerivedPoints()
	return car, nil
}

func cornerFromJSON(loc model.Location, cj cornerJSON) (model.Corner, error) {
	c := model.Corner{
		Location:     loc,
		StaticCamber: cj.StaticCamber,
		StaticToe:    cj.StaticToe,
		SpringRate:   cj.SpringRate,
	}
	for name, p := range cj.Hardpoints {
		h, err := model.ParseHardpoint(name)
		if err != nil {
			return model.Corner{}, err
		}
		c.SetPoint(h, model.Point(p))
	}
	var err error
	c.ActuationAttachment, err = parseEnum(cj.ActuationAttachment, model.AttachLowerAArm,
		model.AttachLowerAArm, model.AttachUpperAArm, model.AttachUpright)
	if err != nil {
		return model.Corner{}, err
	}
	c.ActuationType, err = parseEnum(cj.ActuationType, model.PushPullrodWithBellcrank,
		model.PushPullrodWithBellcrank, model.OutboardRockerArm)
	if err != nil {
		return model.Corner{}, err
	}
	return c, nil
}

func axleFromJSON(aj axleJSON) (model.AxleConfig, error) {
	style, err := parseEnum(aj.BarStyle, model.BarNone, model.BarNone, model.BarUBar, model.BarTBar, model.BarGeared)
	if err != nil {
		return model.AxleConfig{}, err
	}
	attach, err := parseEnum(aj.BarAttachment, model.BarAttachBellcrank,
		model.BarAttachBellcrank, model.BarAttachLowerAArm, model.BarAttachUpperAArm, model.BarAttachUpright)
	if err != nil {
		return model.AxleConfig{}, err
	}
	sign := true
	if aj.BarSignGreaterThan != nil {
		sign = *aj.BarSignGreaterThan
	}
	return model.AxleConfig{
		BarStyle:           style,
		BarAttachment:      attach,
		BarRate:            aj.BarRate,
		BarSignGreaterThan: sign,
		HasThirdSpring:     aj.ThirdSpring,
		HasThirdDamper:     aj.ThirdDamper,
		ThirdSpringRate:    aj.ThirdSpringRate,
		HasHalfShafts:      aj.HalfShafts,
	}, nil
}

// parseEnum maps a stable name onto one of values; an empty name selects def.
func parseEnum[T fmt.Stringer](name string, def T, values ...T) (T, error) {
	if name == "" {
		return def, nil
	}
	for _, v := range values {
		if v.String() == name {
			return v, nil
		}
	}
	return def, fmt.Errorf("unknown value %q", name)
}

// WriteCar encodes car in the format LoadCar reads.
func WriteCar(w io.Writer, car *model.Car) error {
	c := car.Clone()
	payload := carJSON{
		Name:       c.Name,
		Symmetric:  c.Suspension.IsSymmetric,
		RackRatio:  c.Suspension.RackRatio,
		Corners:    make(map[string]cornerJSON, model.NumLocations),
		Hardpoints: make(map[string][3]float64, model.NumSuspensionHardpoints),
		Front:      axleToJSON(c.Suspension.Front),
		Rear:       axleToJSON(c.Suspension.Rear),
		Tires:      make(map[string]tireJSON, model.NumLocations),
		Mass: massJSON{
			Mass:            c.Mass.Mass,
			CenterOfGravity: c.Mass.CenterOfGravity,
			Gravity:         c.Mass.Gravity,
		},
		Brakes: brakesJSON{
			FrontInboard:  c.Brakes.FrontBrakesInboard,
			RearInboard:   c.Brakes.RearBrakesInboard,
			FrontFraction: c.Brakes.PercentFrontBraking,
			Braked:        make(map[string]bool, model.NumLocations),
		},
		Drivetrain: drivetrainJSON{
			Drive:               c.Drivetrain.DriveType.String(),
			FrontTorqueFraction: c.Drivetrain.FrontTorqueFraction,
		},
		Engine: &c.Engine,
		Aero: &aeroJSON{
			FrontalArea:      c.Aero.FrontalArea,
			DragCoefficient:  c.Aero.DragCoefficient,
			LiftCoefficient:  c.Aero.LiftCoefficient,
			CenterOfPressure: c.Aero.CenterOfPressure,
		},
		Unsprung: make(map[string]float64, model.NumLocations),
	}
	for _, loc := range model.Locations {
		corner := c.Suspension.Corner(loc)
		hps := make(map[string][3]float64, model.NumHardpoints)
		for h := model.Hardpoint(0); h < model.NumHardpoints; h++ {
			if h == model.WheelCenter {
				continue
			}
			hps[h.String()] = corner.Point(h)
		}
		payload.Corners[loc.String()] = cornerJSON{
			Hardpoints:          hps,
			StaticCamber:        corner.StaticCamber,
			StaticToe:           corner.StaticToe,
			ActuationAttachment: corner.ActuationAttachment.String(),
			ActuationType:       corner.ActuationType.String(),
			SpringRate:          corner.SpringRate,
		}
		payload.Tires[loc.String()] = tireJSON(c.Tires.Get(loc))
		payload.Brakes.Braked[loc.String()] = c.Brakes.Braked.Get(loc)
		payload.Unsprung[loc.String()] = c.Mass.UnsprungMass.Get(loc)
	}
	for h := model.SuspensionHardpoint(0); h < model.NumSuspensionHardpoints; h++ {
		payload.Hardpoints[h.String()] = c.Suspension.Point(h)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(payload); err != nil {
		return fmt.Errorf("WriteCar: encode failed: %w", err)
	}
	return nil
}

func axleToJSON(cfg model.AxleConfig) axleJSON {
	sign := cfg.BarSignGreaterThan
	return axleJSON{
		BarStyle:           cfg.BarStyle.String(),
		BarAttachment:      cfg.BarAttachment.String(),
		BarRate:            cfg.BarRate,
		BarSignGreaterThan: &sign,
		ThirdSpring:        cfg.HasThirdSpring,
		ThirdDamper:        cfg.HasThirdDamper,
		ThirdSpringRate:    cfg.ThirdSpringRate,
		HalfShafts:         cfg.HasHalfShafts,
	}
}
