package model

import (
	"errors"
	"fmt"
)

// ErrInvalidConfiguration is the sentinel for cars rejected before solving.
var ErrInvalidConfiguration = errors.New("invalid configuration")

// ConfigError pins a validation failure to a corner and hardpoint so editors
// can present it beside the offending field.
type ConfigError struct {
	Corner    *Location
	Hardpoint string
	Reason    string
}

func (e *ConfigError) Error() string {
	if e.Corner != nil {
		return fmt.Sprintf("%v: %s %s: %s", ErrInvalidConfiguration, e.Corner, e.Hardpoint, e.Reason)
	}
	if e.Hardpoint != "" {
		return fmt.Sprintf("%v: %s: %s", ErrInvalidConfiguration, e.Hardpoint, e.Reason)
	}
	return fmt.Sprintf("%v: %s", ErrInvalidConfiguration, e.Reason)
}

func (e *ConfigError) Unwrap() error { return ErrInvalidConfiguration }

func cornerError(loc Location, hp Hardpoint, format string, args ...any) *ConfigError {
	l := loc
	return &ConfigError{Corner: &l, Hardpoint: hp.String(), Reason: fmt.Sprintf(format, args...)}
}
