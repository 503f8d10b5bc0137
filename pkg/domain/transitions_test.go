package domain

import "testing"

func TestRequestStatusTransitions(t *testing.T) {
	cases := []struct {
		from, to RequestStatus
		want     bool
	}{
		{StatusPending, StatusApproved, true},
		{StatusPending, StatusRejected, true},
		{StatusPending, StatusCompleted, false},
		{StatusPending, StatusPending, false},
		{StatusApproved, StatusCompleted, true},
		{StatusApproved, StatusPending, false},
		{StatusApproved, StatusRejected, false},
		{StatusRejected, StatusApproved, false},
		{StatusRejected, StatusPending, false},
		{StatusCompleted, StatusApproved, false},
	}
	for _, tc := range cases {
		if got := tc.from.CanTransitionTo(tc.to); got != tc.want {
			t.Errorf("%s -> %s: got %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestRequestStatusTerminal(t *testing.T) {
	if StatusPending.Terminal() || StatusApproved.Terminal() {
		t.Fatalf("pending and approved must admit transitions")
	}
	if !StatusRejected.Terminal() || !StatusCompleted.Terminal() {
		t.Fatalf("rejected and completed must be terminal")
	}
	if RequestStatus("archived").Valid() {
		t.Fatalf("unknown status must not validate")
	}
}

func TestRegistrationStatusTransitions(t *testing.T) {
	if !RegistrationRegistered.CanTransitionTo(RegistrationDonated) {
		t.Fatalf("registered -> donated must be allowed")
	}
	if !RegistrationAttended.CanTransitionTo(RegistrationDonated) {
		t.Fatalf("attended -> donated must be allowed")
	}
	if RegistrationDonated.CanTransitionTo(RegistrationRegistered) {
		t.Fatalf("donated is terminal")
	}
	if RegistrationCancelled.CanTransitionTo(RegistrationAttended) {
		t.Fatalf("cancelled is terminal")
	}
}

func TestBloodGroupValid(t *testing.T) {
	for _, g := range BloodGroups() {
		if !g.Valid() {
			t.Errorf("group %s should be valid", g)
		}
	}
	if BloodGroup("C+").Valid() {
		t.Fatalf("C+ is not a blood group")
	}
	if len(BloodGroups()) != 8 {
		t.Fatalf("expected 8 blood groups, got %d", len(BloodGroups()))
	}
}
