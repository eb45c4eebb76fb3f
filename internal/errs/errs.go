// Package errs defines the fail-fast error kinds the simulator core can
// raise. None of them are retried: validation happens at model-load and
// LP-init time, and steady-state handlers are total functions.
package errs

import "errors"

// Sentinel error kinds. Wrap these with fmt.Errorf("...: %w", Kind) to add
// context while keeping errors.Is checks working.
var (
	// ErrModelMismatch is raised when a master's registered slave count
	// does not match the number of routes the routing table has from it.
	ErrModelMismatch = errors.New("model mismatch")

	// ErrNoRoute is raised when RoutingTable.GetRoute is called on an
	// absent (src, dst) pair.
	ErrNoRoute = errors.New("no route")

	// ErrUnregisteredUser is raised when a workload references a user
	// name that was never registered.
	ErrUnregisteredUser = errors.New("unregistered user")

	// ErrInvalidConfig is raised on non-positive power/bandwidth/etc.,
	// load outside [0,1], or non-finite limits during registration.
	ErrInvalidConfig = errors.New("invalid config")

	// ErrDuplicateService is raised when the same Lpid is registered
	// twice.
	ErrDuplicateService = errors.New("duplicate service")

	// ErrUnknownVmOwner is raised when the VMM's scheduler returns a VM
	// id that has no entry in the owner map.
	ErrUnknownVmOwner = errors.New("unknown vm owner")

	// ErrPolicyViolation is raised when a reverse handler detects that
	// its event's bitfield is inconsistent with LP state. This signals a
	// bug in a forward/reverse pair, not a user error.
	ErrPolicyViolation = errors.New("policy violation")

	// ErrLookaheadViolation is raised by Kernel.ScheduleLookahead when an
	// event is scheduled with a delay smaller than the configured lookahead
	// epsilon; plain Kernel.Schedule does not check it.
	ErrLookaheadViolation = errors.New("lookahead violation")

	// ErrNoTarget is raised by a scheduler/allocator asked to select from
	// an empty candidate set.
	ErrNoTarget = errors.New("no target available")
)
