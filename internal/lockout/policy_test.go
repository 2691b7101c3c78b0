package lockout

import (
	"testing"
	"time"
)

func TestStateOf(t *testing.T) {
	p := Default()
	now := time.Now().UTC()
	future := now.Add(10 * time.Minute)
	past := now.Add(-1 * time.Minute)

	cases := []struct {
		name string
		snap Snapshot
		want State
	}{
		{"fresh account", Snapshot{}, Active},
		{"failures below threshold", Snapshot{FailedAttempts: 4}, Active},
		{"locked until future", Snapshot{FailedAttempts: 5, LockoutUntil: &future}, TemporarilyLocked},
		{"lock elapsed", Snapshot{FailedAttempts: 5, LockoutUntil: &past}, Active},
		{"permanent wins over elapsed lock", Snapshot{LockoutUntil: &past, PermanentlyLocked: true}, PermanentlyLocked},
		{"permanent wins over active lock", Snapshot{LockoutUntil: &future, PermanentlyLocked: true}, PermanentlyLocked},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := p.StateOf(tc.snap, now); got != tc.want {
				t.Fatalf("StateOf() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestEvaluateDeniesWhileLocked(t *testing.T) {
	p := Default()
	now := time.Now().UTC()
	until := now.Add(5 * time.Minute)

	g := p.Evaluate(Snapshot{FailedAttempts: 5, LockoutUntil: &until}, now)
	if g.Outcome != DenyLocked {
		t.Fatalf("expected DenyLocked, got %v", g.Outcome)
	}
	if g.LockedUntil == nil || !g.LockedUntil.Equal(until) {
		t.Fatalf("expected LockedUntil %v, got %v", until, g.LockedUntil)
	}
}

func TestEvaluateRestartsCycleAfterLockExpiry(t *testing.T) {
	p := Default()
	now := time.Now().UTC()
	past := now.Add(-1 * time.Second)

	g := p.Evaluate(Snapshot{FailedAttempts: 5, LockCycles: 1, LockoutUntil: &past}, now)
	if g.Outcome != Allow {
		t.Fatalf("expected Allow after lock expiry, got %v", g.Outcome)
	}
	if !g.RestartCycle {
		t.Fatal("expected RestartCycle after lock expiry")
	}
}

func TestEvaluatePermanentLockNeverExpires(t *testing.T) {
	p := Default()
	now := time.Now().UTC()
	longPast := now.Add(-24 * time.Hour)

	g := p.Evaluate(Snapshot{PermanentlyLocked: true, LockoutUntil: &longPast}, now)
	if g.Outcome != DenyPermanent {
		t.Fatalf("expected DenyPermanent regardless of elapsed time, got %v", g.Outcome)
	}
}

func TestAfterFailureThresholds(t *testing.T) {
	p := Default()
	now := time.Now().UTC()

	cases := []struct {
		name     string
		failed   int
		cycles   int
		want     Followup
	}{
		{"below threshold", 4, 0, NoFollowup},
		{"fifth failure locks", 5, 0, LockTemporarily},
		{"fifth failure second cycle locks", 5, 1, LockTemporarily},
		{"third cycle locks permanently", 5, 2, LockPermanently},
		{"past hard ceiling stays permanent", 5, 7, LockPermanently},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, until := p.AfterFailure(tc.failed, tc.cycles, now)
			if got != tc.want {
				t.Fatalf("AfterFailure(%d, %d) = %v, want %v", tc.failed, tc.cycles, got, tc.want)
			}
			if got == LockTemporarily && !until.Equal(now.Add(p.LockDuration)) {
				t.Fatalf("expected lock until %v, got %v", now.Add(p.LockDuration), until)
			}
		})
	}
}

func TestEvaluateIsPure(t *testing.T) {
	p := Default()
	now := time.Now().UTC()
	until := now.Add(5 * time.Minute)
	snap := Snapshot{FailedAttempts: 5, LockCycles: 1, LockoutUntil: &until}

	first := p.Evaluate(snap, now)
	for i := 0; i < 100; i++ {
		if got := p.Evaluate(snap, now); got != first {
			t.Fatalf("Evaluate() changed across calls: %+v vs %+v", got, first)
		}
	}
}
