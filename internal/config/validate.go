package config

import "fmt"

// ValidateName reports whether name matches the jail identity format
// required: [A-Za-z0-9_-]{1,64}.
func ValidateName(name string) error {
	if !namePattern.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// validHookPhase reports whether phase is one of the four lifecycle points.
func validHookPhase(phase HookPhase) bool {
	switch phase {
	case PhasePreStart, PhasePostStart, PhasePreStop, PhasePostStop:
		return true
	}
	return false
}

// validCheckTarget reports whether target is a known check/hook target.
func validCheckTarget(target CheckTarget) bool {
	switch target {
	case TargetJail, TargetHost:
		return true
	}
	return false
}

// validOnFailure reports whether mode is a known hook failure mode.
func validOnFailure(mode HookFailureMode) bool {
	switch mode {
	case OnFailureAbort, OnFailureContinue:
		return true
	}
	return false
}

// validProtocol reports whether proto is a known transport.
func validProtocol(proto Protocol) bool {
	switch proto {
	case ProtoTCP, ProtoUDP:
		return true
	}
	return false
}

// ValidateShape checks the fields a single Jail Spec can validate in
// isolation — its own name, its own hooks, its own checks, its own exposed
// ports. It does not resolve depends_on or detect network conflicts; those
// require the full fleet and live in internal/fleet's check().
func (j *JailSpec) ValidateShape() error {
	if err := ValidateName(j.Name); err != nil {
		return err
	}

	if j.Healthcheck != nil {
		for _, c := range j.Healthcheck.Checks {
			if !validCheckTarget(c.Target) {
				return fmt.Errorf("%w: jail %q check %q: target %q", ErrInvalidCheck, j.Name, c.Name, c.Target)
			}
			if c.Interval < 1 {
				return fmt.Errorf("%w: jail %q check %q: interval must be >= 1s", ErrInvalidCheck, j.Name, c.Name)
			}
			if c.Timeout < 1 || c.Timeout >= c.Interval {
				return fmt.Errorf("%w: jail %q check %q: timeout must be >= 1s and < interval", ErrInvalidCheck, j.Name, c.Name)
			}
			if c.Retries < 0 {
				return fmt.Errorf("%w: jail %q check %q: retries must be >= 0", ErrInvalidCheck, j.Name, c.Name)
			}
		}
	}

	for _, h := range j.Hooks {
		if !validHookPhase(h.Phase) {
			return fmt.Errorf("%w: jail %q: phase %q", ErrInvalidHook, j.Name, h.Phase)
		}
		if !validCheckTarget(h.Target) {
			return fmt.Errorf("%w: jail %q: target %q", ErrInvalidHook, j.Name, h.Target)
		}
		if !validOnFailure(h.OnFailure) {
			return fmt.Errorf("%w: jail %q: on_failure %q", ErrInvalidHook, j.Name, h.OnFailure)
		}
	}

	for _, p := range j.ExposedPorts {
		if !validProtocol(p.Protocol) {
			return fmt.Errorf("%w: jail %q: protocol %q", ErrInvalidPort, j.Name, p.Protocol)
		}
		if p.HostPort < 1 || p.HostPort > 65535 {
			return fmt.Errorf("%w: jail %q: host_port %d out of range", ErrInvalidPort, j.Name, p.HostPort)
		}
		if p.InternalPort < 1 || p.InternalPort > 65535 {
			return fmt.Errorf("%w: jail %q: internal_port %d out of range", ErrInvalidPort, j.Name, p.InternalPort)
		}
	}

	return nil
}
