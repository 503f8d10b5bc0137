package core

import (
	"context"
	"fmt"
	"sort"

	"hemocore/pkg/domain"
)

// CreateCamp records a collection drive owned by an approved organization.
func (s *Service) CreateCamp(ctx context.Context, organizerID string, camp BloodCamp) (BloodCamp, error) {
	ctx, done := s.instrument(ctx, "create_camp")
	var created BloodCamp
	_, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		org, ok := tx.FindUser(organizerID)
		if !ok || org.Role != RoleOrganization {
			return UnauthorizedError{Detail: fmt.Sprintf("organizer %s is not an organization", organizerID)}
		}
		if !org.Approved {
			return UnauthorizedError{Detail: fmt.Sprintf("organization %s is not approved", organizerID)}
		}
		if camp.Title == "" {
			return ValidationError{Field: "title", Detail: "required"}
		}
		if camp.Venue == "" {
			return ValidationError{Field: "venue", Detail: "required"}
		}
		if camp.Date.IsZero() {
			return ValidationError{Field: "date", Detail: "required"}
		}
		camp.OrganizerID = organizerID
		camp.CollectedUnits = 0
		camp.Registrations = nil
		var err error
		created, err = tx.CreateCamp(camp)
		return err
	})
	done(err)
	return created, err
}

// UpdateCamp applies a mutator to a camp owned by the acting organization.
// Ownership, registrations, and collected units are pinned against the
// mutator.
func (s *Service) UpdateCamp(ctx context.Context, organizerID, campID string, mutator func(*BloodCamp) error) (BloodCamp, error) {
	ctx, done := s.instrument(ctx, "update_camp")
	var updated BloodCamp
	_, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		camp, ok := tx.FindCamp(campID)
		if !ok {
			return NotFoundError{Entity: EntityCamp, ID: campID}
		}
		if camp.OrganizerID != organizerID {
			return UnauthorizedError{Detail: fmt.Sprintf("camp %s is not run by organization %s", campID, organizerID)}
		}
		var err error
		updated, err = tx.UpdateCamp(campID, func(c *BloodCamp) error {
			organizer, regs, collected := c.OrganizerID, c.Registrations, c.CollectedUnits
			if err := mutator(c); err != nil {
				return err
			}
			c.OrganizerID, c.Registrations, c.CollectedUnits = organizer, regs, collected
			return nil
		})
		return err
	})
	done(err)
	return updated, err
}

// DeleteCamp removes a camp owned by the acting organization.
func (s *Service) DeleteCamp(ctx context.Context, organizerID, campID string) error {
	ctx, done := s.instrument(ctx, "delete_camp")
	_, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		camp, ok := tx.FindCamp(campID)
		if !ok {
			return NotFoundError{Entity: EntityCamp, ID: campID}
		}
		if camp.OrganizerID != organizerID {
			return UnauthorizedError{Detail: fmt.Sprintf("camp %s is not run by organization %s", campID, organizerID)}
		}
		return tx.DeleteCamp(campID)
	})
	done(err)
	return err
}

// GetCamp returns one camp by id.
func (s *Service) GetCamp(ctx context.Context, id string) (BloodCamp, error) {
	var found BloodCamp
	err := s.store.View(ctx, func(view TransactionView) error {
		camp, ok := view.FindCamp(id)
		if !ok {
			return NotFoundError{Entity: EntityCamp, ID: id}
		}
		found = camp
		return nil
	})
	return found, err
}

// ListCamps returns camps, optionally filtered by status, soonest first.
func (s *Service) ListCamps(ctx context.Context, status CampStatus) ([]BloodCamp, error) {
	var camps []BloodCamp
	err := s.store.View(ctx, func(view TransactionView) error {
		for _, camp := range view.ListCamps() {
			if status != "" && camp.Status != status {
				continue
			}
			camps = append(camps, camp)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(camps, func(i, j int) bool { return camps[i].Date.Before(camps[j].Date) })
	return camps, nil
}

// RegisterForCamp signs a donor up for a camp that has not finished.
func (s *Service) RegisterForCamp(ctx context.Context, campID, donorID string) (BloodCamp, error) {
	ctx, done := s.instrument(ctx, "register_for_camp")
	var updated BloodCamp
	_, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		donor, ok := tx.FindUser(donorID)
		if !ok || donor.Role != RoleDonor {
			return UnauthorizedError{Detail: fmt.Sprintf("user %s is not a donor", donorID)}
		}
		camp, ok := tx.FindCamp(campID)
		if !ok {
			return NotFoundError{Entity: EntityCamp, ID: campID}
		}
		if camp.Status != domain.CampUpcoming && camp.Status != domain.CampOngoing {
			return StateError{Entity: EntityCamp, ID: campID, Code: "camp_closed", Detail: string(camp.Status)}
		}
		for _, reg := range camp.Registrations {
			if reg.DonorID == donorID {
				return StateError{Entity: EntityCamp, ID: campID, Code: "already_registered", Detail: donorID}
			}
		}
		var err error
		updated, err = tx.UpdateCamp(campID, func(c *BloodCamp) error {
			c.Registrations = append(c.Registrations, CampRegistration{
				DonorID:      donorID,
				RegisteredAt: s.now(),
				Status:       domain.RegistrationRegistered,
			})
			return nil
		})
		return err
	})
	done(err)
	return updated, err
}

// CampRegistrations lists a camp's registrations for its organizer.
func (s *Service) CampRegistrations(ctx context.Context, organizerID, campID string) ([]CampRegistration, error) {
	var regs []CampRegistration
	err := s.store.View(ctx, func(view TransactionView) error {
		camp, ok := view.FindCamp(campID)
		if !ok {
			return NotFoundError{Entity: EntityCamp, ID: campID}
		}
		if camp.OrganizerID != organizerID {
			return UnauthorizedError{Detail: fmt.Sprintf("camp %s is not run by organization %s", campID, organizerID)}
		}
		regs = camp.Registrations
		return nil
	})
	return regs, err
}

// UpdateRegistrationStatus advances one donor's registration through its
// state machine. Marking a registration donated increments the camp's
// collected units.
func (s *Service) UpdateRegistrationStatus(ctx context.Context, organizerID, campID, donorID string, status RegistrationStatus) (BloodCamp, error) {
	ctx, done := s.instrument(ctx, "update_registration_status")
	var updated BloodCamp
	_, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		camp, ok := tx.FindCamp(campID)
		if !ok {
			return NotFoundError{Entity: EntityCamp, ID: campID}
		}
		if camp.OrganizerID != organizerID {
			return UnauthorizedError{Detail: fmt.Sprintf("camp %s is not run by organization %s", campID, organizerID)}
		}
		var err error
		updated, err = tx.UpdateCamp(campID, func(c *BloodCamp) error {
			for i := range c.Registrations {
				if c.Registrations[i].DonorID != donorID {
					continue
				}
				prev := c.Registrations[i].Status
				if prev == status {
					return nil
				}
				if !prev.CanTransitionTo(status) {
					return StateError{Entity: EntityCamp, ID: campID, Code: "invalid_registration_transition", Detail: fmt.Sprintf("%s -> %s", prev, status)}
				}
				c.Registrations[i].Status = status
				if status == domain.RegistrationDonated {
					c.CollectedUnits++
				}
				return nil
			}
			return StateError{Entity: EntityCamp, ID: campID, Code: "not_registered", Detail: donorID}
		})
		return err
	})
	done(err)
	return updated, err
}

// CampsForDonor returns the camps a donor has registered for, soonest first.
func (s *Service) CampsForDonor(ctx context.Context, donorID string) ([]BloodCamp, error) {
	var camps []BloodCamp
	err := s.store.View(ctx, func(view TransactionView) error {
		for _, camp := range view.ListCamps() {
			for _, reg := range camp.Registrations {
				if reg.DonorID == donorID {
					camps = append(camps, camp)
					break
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(camps, func(i, j int) bool { return camps[i].Date.Before(camps[j].Date) })
	return camps, nil
}
