// ABOUTME: Collection of active parameter ramps keyed by parameter group
// ABOUTME: One ticker advances every ramp; a new ramp on a group replaces the old one
package automation

import (
	"sort"
	"time"
)

// Group identifies a set of parameters automated together
type Group int

const (
	GroupVolume Group = iota
	GroupSpeed
	GroupMidpass
	GroupBitcrush
	GroupDelay
)

// String returns the group name
func (g Group) String() string {
	switch g {
	case GroupVolume:
		return "volume"
	case GroupSpeed:
		return "speed"
	case GroupMidpass:
		return "midpass"
	case GroupBitcrush:
		return "bitcrush"
	case GroupDelay:
		return "delay"
	default:
		return "unknown"
	}
}

// ApplyFunc writes interpolated values to the governed parameters
type ApplyFunc func(values []float64)

type entry struct {
	ramp   *Ramp
	apply  ApplyFunc
	onDone func()
}

// Automator holds at most one active ramp per group.
// It is not safe for concurrent use; the owner serializes access.
type Automator struct {
	active map[Group]*entry
}

// NewAutomator creates an empty automator
func NewAutomator() *Automator {
	return &Automator{
		active: make(map[Group]*entry),
	}
}

// Start installs a ramp for a group, replacing any ramp in flight.
// The replaced ramp's completion hook never runs.
func (a *Automator) Start(group Group, ramp *Ramp, apply ApplyFunc, onDone func()) {
	a.active[group] = &entry{
		ramp:   ramp,
		apply:  apply,
		onDone: onDone,
	}
}

// Cancel drops the ramp for a group without applying its target
func (a *Automator) Cancel(group Group) {
	delete(a.active, group)
}

// CancelAll drops every active ramp
func (a *Automator) CancelAll() {
	for g := range a.active {
		delete(a.active, g)
	}
}

// Active reports whether a group has a ramp in flight
func (a *Automator) Active(group Group) bool {
	_, ok := a.active[group]
	return ok
}

// Len returns the number of ramps in flight
func (a *Automator) Len() int {
	return len(a.active)
}

// Tick applies the current value of every ramp. Ramps that reached their
// final step are retired and their completion hooks are returned, in group
// order, for the caller to run after publishing the applied values.
func (a *Automator) Tick(now time.Time) []func() {
	groups := make([]Group, 0, len(a.active))
	for g := range a.active {
		groups = append(groups, g)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i] < groups[j] })

	var done []func()
	for _, g := range groups {
		e := a.active[g]
		values, finished := e.ramp.Values(now)
		e.apply(values)
		if finished {
			delete(a.active, g)
			if e.onDone != nil {
				done = append(done, e.onDone)
			}
		}
	}
	return done
}
