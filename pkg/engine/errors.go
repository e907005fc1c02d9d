package engine

import (
	"errors"
	"fmt"

	"github.com/jwebster45206/werewolf-engine/pkg/state"
)

// ErrRuleViolation is wrapped by errors that reject an action on game-rule
// grounds rather than bad input.
var ErrRuleViolation = errors.New("rule violation")

// PhaseError is returned when an operation is invoked outside its phase.
type PhaseError struct {
	Op   string
	Want state.Phase
	Got  state.Phase
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf("%s: current phase is %s, not %s", e.Op, e.Got, e.Want)
}

// InvalidTargetError is returned for a missing or ineligible target.
type InvalidTargetError struct {
	Name   string
	Reason string
}

func (e *InvalidTargetError) Error() string {
	return fmt.Sprintf("invalid target %q: %s", e.Name, e.Reason)
}

// InvalidVoterError is returned for a ballot cast by someone who may not vote.
type InvalidVoterError struct {
	Name   string
	Reason string
}

func (e *InvalidVoterError) Error() string {
	return fmt.Sprintf("invalid voter %q: %s", e.Name, e.Reason)
}

// RepeatGuardError is returned when the bodyguard protects the same player on
// two consecutive nights.
type RepeatGuardError struct {
	Target string
}

func (e *RepeatGuardError) Error() string {
	return fmt.Sprintf("%s was guarded last night: consecutive guard is not allowed", e.Target)
}

func (e *RepeatGuardError) Unwrap() error { return ErrRuleViolation }
