// Package model holds the simulation's static, read-only-after-load data:
// registered users and per-service configuration records. The user
// registry is shared immutable state after initialization — never
// mutated by LP handlers.
package model

import (
	"fmt"
	"math"

	"github.com/ispd-go/ispd-go/internal/errs"
	"github.com/ispd-go/ispd-go/internal/kernel"
)

// UserMetrics accumulates the commit-time, never-reversed metrics a user
// accrues across every task they own.
type UserMetrics struct {
	IssuedTasks     uint64
	CompletedTasks  uint64
	ProcTime        float64
	ProcWaitingTime float64
}

// User is a registered simulation participant. Users live for the whole
// simulation; the name↔id mapping is injective.
type User struct {
	ID          kernel.UserId
	Name        string
	EnergyLimit float64
	Metrics     UserMetrics
}

// UserRegistry maps user names to Users injectively and is read-only after
// Load/Register calls complete at model-load time.
type UserRegistry struct {
	byID   map[kernel.UserId]*User
	byName map[string]kernel.UserId
	nextID kernel.UserId
}

// NewUserRegistry creates an empty registry.
func NewUserRegistry() *UserRegistry {
	return &UserRegistry{
		byID:   make(map[kernel.UserId]*User),
		byName: make(map[string]kernel.UserId),
	}
}

// Register adds a new user, failing with ErrDuplicateService if the name
// is already registered (names must be injective) or ErrInvalidConfig if
// the energy limit is not finite and non-negative.
func (r *UserRegistry) Register(name string, energyLimit float64) (kernel.UserId, error) {
	if _, exists := r.byName[name]; exists {
		return 0, fmt.Errorf("%w: user name %q already registered", errs.ErrDuplicateService, name)
	}
	if math.IsNaN(energyLimit) || math.IsInf(energyLimit, 0) || energyLimit < 0 {
		return 0, fmt.Errorf("%w: energy limit for user %q must be a finite, non-negative number", errs.ErrInvalidConfig, name)
	}

	id := r.nextID
	r.nextID++
	r.byID[id] = &User{ID: id, Name: name, EnergyLimit: energyLimit}
	r.byName[name] = id
	return id, nil
}

// ByID looks up a user by id, failing with ErrUnregisteredUser if absent.
func (r *UserRegistry) ByID(id kernel.UserId) (*User, error) {
	u, ok := r.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: user id %d", errs.ErrUnregisteredUser, id)
	}
	return u, nil
}

// ByName looks up a user by name, failing with ErrUnregisteredUser if absent.
func (r *UserRegistry) ByName(name string) (*User, error) {
	id, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: user name %q", errs.ErrUnregisteredUser, name)
	}
	return r.byID[id], nil
}

// All returns every registered user, ordered by id, for report generation.
func (r *UserRegistry) All() []*User {
	users := make([]*User, 0, len(r.byID))
	for id := kernel.UserId(0); int(id) < len(r.byID); id++ {
		if u, ok := r.byID[id]; ok {
			users = append(users, u)
		}
	}
	return users
}
