package core

import (
	"context"
	"fmt"

	"hemocore/pkg/domain"
)

// RequestTransitionRule blocks illegal status moves on blood requests and camp
// registrations. Created requests must start pending; updates must follow the
// transition table.
func RequestTransitionRule() domain.Rule {
	return requestTransitionRule{}
}

type requestTransitionRule struct{}

func (requestTransitionRule) Name() string { return "request_transition" }

func (requestTransitionRule) Evaluate(_ context.Context, _ domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, change := range changes {
		switch change.Entity {
		case domain.EntityRequest:
			res.Violations = append(res.Violations, checkRequestChange(change)...)
		case domain.EntityCamp:
			res.Violations = append(res.Violations, checkRegistrationChanges(change)...)
		}
	}
	return res, nil
}

func checkRequestChange(change domain.Change) []domain.Violation {
	after, ok := domain.DecodePayload[domain.BloodRequest](change.After)
	if !ok {
		return nil
	}
	if !after.Status.Valid() {
		return []domain.Violation{{
			Rule:     "request_transition",
			Severity: domain.SeverityBlock,
			Message:  fmt.Sprintf("request %s has invalid status %s", after.ID, after.Status),
			Entity:   domain.EntityRequest,
			EntityID: after.ID,
		}}
	}
	before, hadBefore := domain.DecodePayload[domain.BloodRequest](change.Before)
	if !hadBefore {
		if after.Status != domain.StatusPending {
			return []domain.Violation{{
				Rule:     "request_transition",
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("request %s created with status %s, must start pending", after.ID, after.Status),
				Entity:   domain.EntityRequest,
				EntityID: after.ID,
			}}
		}
		return nil
	}
	if before.Status == after.Status {
		return nil
	}
	if !before.Status.CanTransitionTo(after.Status) {
		return []domain.Violation{{
			Rule:     "request_transition",
			Severity: domain.SeverityBlock,
			Message:  fmt.Sprintf("request %s cannot move from %s to %s", after.ID, before.Status, after.Status),
			Entity:   domain.EntityRequest,
			EntityID: after.ID,
		}}
	}
	return nil
}

func checkRegistrationChanges(change domain.Change) []domain.Violation {
	after, ok := domain.DecodePayload[domain.BloodCamp](change.After)
	if !ok {
		return nil
	}
	before, hadBefore := domain.DecodePayload[domain.BloodCamp](change.Before)
	prior := map[string]domain.RegistrationStatus{}
	if hadBefore {
		for _, reg := range before.Registrations {
			prior[reg.DonorID] = reg.Status
		}
	}
	var out []domain.Violation
	for _, reg := range after.Registrations {
		if !reg.Status.Valid() {
			out = append(out, domain.Violation{
				Rule:     "request_transition",
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("camp %s registration for donor %s has invalid status %s", after.ID, reg.DonorID, reg.Status),
				Entity:   domain.EntityCamp,
				EntityID: after.ID,
			})
			continue
		}
		prev, existed := prior[reg.DonorID]
		if !existed {
			if reg.Status != domain.RegistrationRegistered {
				out = append(out, domain.Violation{
					Rule:     "request_transition",
					Severity: domain.SeverityBlock,
					Message:  fmt.Sprintf("camp %s registration for donor %s created with status %s", after.ID, reg.DonorID, reg.Status),
					Entity:   domain.EntityCamp,
					EntityID: after.ID,
				})
			}
			continue
		}
		if prev != reg.Status && !prev.CanTransitionTo(reg.Status) {
			out = append(out, domain.Violation{
				Rule:     "request_transition",
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("camp %s registration for donor %s cannot move from %s to %s", after.ID, reg.DonorID, prev, reg.Status),
				Entity:   domain.EntityCamp,
				EntityID: after.ID,
			})
		}
	}
	return out
}
