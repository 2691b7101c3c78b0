// Package lockout implements the failed-login lockout state machine as a pure
// policy. The account repository applies the mutations the policy decides on,
// which keeps the transitions independently testable.
package lockout

import "time"

// State is the lockout state of an account at a point in time.
type State int

const (
	Active State = iota
	TemporarilyLocked
	PermanentlyLocked
)

func (s State) String() string {
	switch s {
	case Active:
		return "active"
	case TemporarilyLocked:
		return "temporarily_locked"
	case PermanentlyLocked:
		return "permanently_locked"
	}
	return "unknown"
}

// Snapshot is the lockout bookkeeping read from an account record.
type Snapshot struct {
	FailedAttempts    int
	LockCycles        int
	LockoutUntil      *time.Time
	PermanentlyLocked bool
}

// Outcome is the gate decision for an authentication attempt.
type Outcome int

const (
	// Allow lets the attempt proceed to credential verification.
	Allow Outcome = iota
	// DenyLocked rejects the attempt because a temporary lock is in force.
	DenyLocked
	// DenyPermanent rejects the attempt because the account is permanently locked.
	DenyPermanent
)

// Followup names the store mutation to apply once a failed attempt has been counted.
type Followup int

const (
	// NoFollowup leaves the account active.
	NoFollowup Followup = iota
	// LockTemporarily closes the cycle with a temporary lock until Gate.LockUntil.
	LockTemporarily
	// LockPermanently closes the final cycle with a permanent lock.
	LockPermanently
)

// Policy holds the lockout thresholds. SoftThreshold failures within a cycle
// trigger a temporary lock of LockDuration; HardCycles completed cycles
// trigger a permanent lock instead of another temporary one.
type Policy struct {
	SoftThreshold int
	LockDuration  time.Duration
	HardCycles    int
}

// Default thresholds: five failures lock for fifteen minutes, the third full
// cycle locks permanently.
func Default() Policy {
	return Policy{SoftThreshold: 5, LockDuration: 15 * time.Minute, HardCycles: 3}
}

// StateOf derives the lockout state from the snapshot at time now.
// A permanent lock always wins; an elapsed temporary lock reads as Active.
func (p Policy) StateOf(s Snapshot, now time.Time) State {
	if s.PermanentlyLocked {
		return PermanentlyLocked
	}
	if s.LockoutUntil != nil && now.Before(*s.LockoutUntil) {
		return TemporarilyLocked
	}
	return Active
}

// Gate decides whether an authentication attempt may proceed. Attempts against
// a locked account are rejected without being counted; the caller still stamps
// the attempt time. RestartCycle is true when the previous temporary lock has
// elapsed, meaning the failure counter starts over at 1 if this attempt fails.
type Gate struct {
	Outcome      Outcome
	LockedUntil  *time.Time // set when Outcome is DenyLocked
	RestartCycle bool
}

// Evaluate gates the attempt against the current snapshot.
func (p Policy) Evaluate(s Snapshot, now time.Time) Gate {
	switch p.StateOf(s, now) {
	case PermanentlyLocked:
		return Gate{Outcome: DenyPermanent}
	case TemporarilyLocked:
		return Gate{Outcome: DenyLocked, LockedUntil: s.LockoutUntil}
	}
	restart := s.LockoutUntil != nil && !now.Before(*s.LockoutUntil)
	return Gate{Outcome: Allow, RestartCycle: restart}
}

// AfterFailure decides what follows a counted failure, given the
// post-increment counter and cycle count. When the counter reaches the soft
// threshold the cycle closes: with HardCycles-1 cycles already behind the
// account the close is a permanent lock, otherwise a temporary lock until
// now + LockDuration.
func (p Policy) AfterFailure(failedAttempts, lockCycles int, now time.Time) (Followup, time.Time) {
	if failedAttempts < p.SoftThreshold {
		return NoFollowup, time.Time{}
	}
	if lockCycles+1 >= p.HardCycles {
		return LockPermanently, time.Time{}
	}
	return LockTemporarily, now.Add(p.LockDuration)
}
