package config

import (
	"errors"
	"testing"
)

func TestValidateShapeRejectsBadCheckTiming(t *testing.T) {
	j := &JailSpec{
		Name: "web",
		Healthcheck: &Healthcheck{
			Enabled: true,
			Checks: []CheckSpec{
				{Name: "http", Target: TargetJail, Interval: 5, Timeout: 5, Retries: 1},
			},
		},
	}
	if err := j.ValidateShape(); !errors.Is(err, ErrInvalidCheck) {
		t.Fatalf("expected ErrInvalidCheck for timeout == interval, got %v", err)
	}
}

func TestValidateShapeRejectsBadHookPhase(t *testing.T) {
	j := &JailSpec{
		Name: "web",
		Hooks: []HookSpec{
			{Phase: "mid_start", Target: TargetJail, Command: "echo hi", OnFailure: OnFailureAbort},
		},
	}
	if err := j.ValidateShape(); !errors.Is(err, ErrInvalidHook) {
		t.Fatalf("expected ErrInvalidHook, got %v", err)
	}
}

func TestValidateShapeRejectsOutOfRangePort(t *testing.T) {
	j := &JailSpec{
		Name: "web",
		ExposedPorts: []ExposedPort{
			{HostPort: 70000, InternalPort: 80, Protocol: ProtoTCP},
		},
	}
	if err := j.ValidateShape(); !errors.Is(err, ErrInvalidPort) {
		t.Fatalf("expected ErrInvalidPort for out-of-range host_port, got %v", err)
	}
}

func TestValidateShapeAcceptsWellFormedSpec(t *testing.T) {
	j := &JailSpec{
		Name:    "web",
		Release: "14.1-RELEASE",
		Healthcheck: &Healthcheck{
			Enabled: true,
			Checks: []CheckSpec{
				{Name: "http", Target: TargetJail, Interval: 10, Timeout: 3, Retries: 3},
			},
		},
		Hooks: []HookSpec{
			{Phase: PhasePostStart, Target: TargetJail, Command: "touch /ready", OnFailure: OnFailureContinue},
		},
		ExposedPorts: []ExposedPort{
			{HostPort: 8080, InternalPort: 80, Protocol: ProtoTCP},
		},
	}
	if err := j.ValidateShape(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}
