package domain

// RequestStatus is the explicit finite-state type governing a blood request's
// lifecycle. Transitions are monotonic: a request leaves pending exactly once
// and never returns.
type RequestStatus string

// Request statuses. Rejected and completed are terminal; approved admits only
// the completion edge used by donation history.
const (
	StatusPending   RequestStatus = "pending"
	StatusApproved  RequestStatus = "approved"
	StatusRejected  RequestStatus = "rejected"
	StatusCompleted RequestStatus = "completed"
)

var requestTransitions = map[RequestStatus][]RequestStatus{
	StatusPending:   {StatusApproved, StatusRejected},
	StatusApproved:  {StatusCompleted},
	StatusRejected:  {},
	StatusCompleted: {},
}

// Valid reports whether s is a recognised request status.
func (s RequestStatus) Valid() bool {
	_, ok := requestTransitions[s]
	return ok
}

// Terminal reports whether no transition leaves s.
func (s RequestStatus) Terminal() bool {
	next, ok := requestTransitions[s]
	return ok && len(next) == 0
}

// CanTransitionTo reports whether the status machine admits s -> next.
func (s RequestStatus) CanTransitionTo(next RequestStatus) bool {
	for _, allowed := range requestTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

var registrationTransitions = map[RegistrationStatus][]RegistrationStatus{
	RegistrationRegistered: {RegistrationAttended, RegistrationDonated, RegistrationCancelled},
	RegistrationAttended:   {RegistrationDonated, RegistrationCancelled},
	RegistrationDonated:    {},
	RegistrationCancelled:  {},
}

// Valid reports whether s is a recognised camp registration status.
func (s RegistrationStatus) Valid() bool {
	_, ok := registrationTransitions[s]
	return ok
}

// CanTransitionTo reports whether the registration machine admits s -> next.
func (s RegistrationStatus) CanTransitionTo(next RegistrationStatus) bool {
	for _, allowed := range registrationTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}
