package core

// SolverConfig tunes the per-corner solve. The zero value is completed by
// ApplyDefaults.
type SolverConfig struct {
	// MaxIterations caps the ball joint and contact patch loop.
	MaxIterations int
	// Tolerance is the wheel-center step, in length units, at which the loop
	// is considered settled.
	Tolerance float64
	// MotionRatioStep is the ground offset used for the central difference
	// behind every motion ratio.
	MotionRatioStep float64
	// SkipMotionRatios disables the extra corner solves behind the motion
	// ratio outputs, leaving every ratio zero. The quasi-static wrapper never
	// sets it because its wheel loads are built from those ratios.
	SkipMotionRatios bool
}

// DefaultSolverConfig returns the documented defaults.
func DefaultSolverConfig() SolverConfig {
	return SolverConfig{
		MaxIterations:   50,
		Tolerance:       1e-9,
		MotionRatioStep: 0.01,
	}
}

// ApplyDefaults fills unset fields with their defaults.
func (c SolverConfig) ApplyDefaults() SolverConfig {
	d := DefaultSolverConfig()
	if c.MaxIterations <= 0 {
		c.MaxIterations = d.MaxIterations
	}
	if c.Tolerance <= 0 {
		c.Tolerance = d.Tolerance
	}
	if c.MotionRatioStep <= 0 {
		c.MotionRatioStep = d.MotionRatioStep
	}
	return c
}

// QuasiStaticConfig tunes the force-balance iteration.
type QuasiStaticConfig struct {
	MaxIterations int
	// LoadTolerance is the largest per-wheel load change between iterations
	// at which the balance is considered converged.
	LoadTolerance float64
	// HeaveStep and AngleStep are the finite-difference steps of the
	// attitude Jacobian.
	HeaveStep float64
	AngleStep float64
	// TireIterations caps the inner tire-deflection fixed point.
	TireIterations int
}

// DefaultQuasiStaticConfig returns the documented defaults.
func DefaultQuasiStaticConfig() QuasiStaticConfig {
	return QuasiStaticConfig{
		MaxIterations:  30,
		LoadTolerance:  1e-3,
		HeaveStep:      1e-3,
		AngleStep:      1e-4,
		TireIterations: 20,
	}
}

// ApplyDefaults fills unset fields with their defaults.
func (c QuasiStaticConfig) ApplyDefaults() QuasiStaticConfig {
	d := DefaultQuasiStaticConfig()
	if c.MaxIterations <= 0 {
		c.MaxIterations = d.MaxIterations
	}
	if c.LoadTolerance <= 0 {
		c.LoadTolerance = d.LoadTolerance
	}
	if c.HeaveStep <= 0 {
		c.HeaveStep = d.HeaveStep
	}
	if c.AngleStep <= 0 {
		c.AngleStep = d.AngleStep
	}
	if c.TireIterations <= 0 {
		c.TireIterations = d.TireIterations
	}
	return c
}
