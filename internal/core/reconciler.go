package core

import (
	"context"
	"fmt"
	"sort"
	"time"

	"hemocore/pkg/domain"
)

// LotShelfLife is how long a lot created from an approved donation stays
// usable before expiry.
const LotShelfLife = 42 * 24 * time.Hour

// ResolveRequest applies an organization's decision to a pending blood
// request. The whole sequence — request status, inventory mutation, ledger
// append — commits in one store transaction or not at all. A rejection writes
// only the request. An approved donation stamps the donor's last donation,
// appends a donation ledger entry, and upserts an available lot. An approved
// distribution consumes units from one available lot, marking it used exactly
// when it reaches zero, and appends a distribution ledger entry; when no lot
// can cover the requested units the transaction aborts with
// InsufficientInventoryError and the request stays pending.
func (s *Service) ResolveRequest(ctx context.Context, requestID string, decision RequestStatus, actingOrgID, notes string) (BloodRequest, error) {
	ctx, done := s.instrument(ctx, "resolve_request")
	var resolved BloodRequest
	err := s.resolveRequest(ctx, requestID, decision, actingOrgID, notes, &resolved)
	done(err)
	return resolved, err
}

func (s *Service) resolveRequest(ctx context.Context, requestID string, decision RequestStatus, actingOrgID, notes string, out *BloodRequest) error {
	if decision != StatusApproved && decision != StatusRejected {
		return ValidationError{Field: "status", Detail: fmt.Sprintf("decision must be %s or %s", StatusApproved, StatusRejected)}
	}
	_, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		req, ok := tx.FindRequest(requestID)
		if !ok {
			return NotFoundError{Entity: EntityRequest, ID: requestID}
		}
		if req.Status != StatusPending {
			return StateError{Entity: EntityRequest, ID: requestID, Code: "request_not_pending", Detail: fmt.Sprintf("status is %s", req.Status)}
		}
		org, ok := tx.FindUser(actingOrgID)
		if !ok || org.Role != RoleOrganization {
			return UnauthorizedError{Detail: fmt.Sprintf("acting party %s is not an organization", actingOrgID)}
		}
		if !org.Approved {
			return UnauthorizedError{Detail: fmt.Sprintf("organization %s is not approved", actingOrgID)}
		}

		if decision == StatusRejected {
			updated, err := tx.UpdateRequest(requestID, func(r *BloodRequest) error {
				r.Status = StatusRejected
				r.OrganizationID = &org.ID
				r.DecisionNotes = notes
				return nil
			})
			if err != nil {
				return err
			}
			*out = updated
			return nil
		}

		switch req.Kind {
		case KindDonation:
			if err := s.applyDonation(tx, req, org); err != nil {
				return err
			}
		case KindBloodRequest:
			if err := s.applyDistribution(tx, req, org); err != nil {
				return err
			}
		default:
			return StateError{Entity: EntityRequest, ID: requestID, Code: "unknown_request_kind", Detail: string(req.Kind)}
		}

		updated, err := tx.UpdateRequest(requestID, func(r *BloodRequest) error {
			r.Status = StatusApproved
			r.OrganizationID = &org.ID
			r.DecisionNotes = notes
			return nil
		})
		if err != nil {
			return err
		}
		*out = updated
		return nil
	})
	return err
}

// applyDonation records an approved donation: donor cooldown stamp, ledger
// entry, and lot upsert.
func (s *Service) applyDonation(tx Transaction, req BloodRequest, org User) error {
	now := s.now()
	donorID := req.RequesterID
	if _, err := tx.UpdateUser(donorID, func(u *User) error {
		t := now
		u.LastDonation = &t
		return nil
	}); err != nil {
		return err
	}
	if _, err := tx.AppendLedgerEntry(LedgerEntry{
		OrganizationID: org.ID,
		Type:           LedgerDonation,
		BloodGroup:     req.BloodGroup,
		Units:          req.Units,
		DonorID:        &donorID,
		RequestID:      req.ID,
		Note:           req.Reason,
		RecordedAt:     now,
	}); err != nil {
		return err
	}

	lots := availableLots(tx.Snapshot(), org.ID, req.BloodGroup)
	if len(lots) > 0 {
		_, err := tx.UpdateLot(lots[0].ID, func(l *InventoryLot) error {
			l.Units += req.Units
			return nil
		})
		return err
	}
	_, err := tx.CreateLot(InventoryLot{
		OrganizationID: org.ID,
		BloodGroup:     req.BloodGroup,
		Units:          req.Units,
		ExpiresAt:      now.Add(LotShelfLife),
		DonorID:        &donorID,
		CollectedAt:    now,
		Status:         LotAvailable,
	})
	return err
}

// applyDistribution consumes units from a single available lot and records
// the distribution in the ledger.
func (s *Service) applyDistribution(tx Transaction, req BloodRequest, org User) error {
	lots := availableLots(tx.Snapshot(), org.ID, req.BloodGroup)
	var chosen *InventoryLot
	available := 0
	for i := range lots {
		available += lots[i].Units
		if chosen == nil && lots[i].Units >= req.Units {
			chosen = &lots[i]
		}
	}
	if chosen == nil {
		return InsufficientInventoryError{BloodGroup: req.BloodGroup, Requested: req.Units, Available: available}
	}
	if _, err := tx.UpdateLot(chosen.ID, func(l *InventoryLot) error {
		l.Units -= req.Units
		if l.Units == 0 {
			l.Status = LotUsed
		}
		return nil
	}); err != nil {
		return err
	}
	recipientID := req.RequesterID
	note := req.Reason
	if req.HospitalName != "" || req.PatientName != "" {
		note = fmt.Sprintf("hospital=%s patient=%s", req.HospitalName, req.PatientName)
	}
	_, err := tx.AppendLedgerEntry(LedgerEntry{
		OrganizationID: org.ID,
		Type:           LedgerDistribution,
		BloodGroup:     req.BloodGroup,
		Units:          req.Units,
		RecipientID:    &recipientID,
		RequestID:      req.ID,
		Note:           note,
		RecordedAt:     s.now(),
	})
	return err
}

// availableLots returns the organization's available lots for a group,
// earliest expiry first.
func availableLots(view TransactionView, orgID string, group BloodGroup) []domain.InventoryLot {
	var out []domain.InventoryLot
	for _, lot := range view.ListLots() {
		if lot.OrganizationID == orgID && lot.BloodGroup == group && lot.Status == LotAvailable {
			out = append(out, lot)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExpiresAt.Before(out[j].ExpiresAt) })
	return out
}
