package core

import (
	"context"
	"fmt"
	"sort"
	"time"

	"hemocore/pkg/domain"
)

// DonationCooldown is the minimum interval between a donor's donations,
// checked at intake against the lastDonation stamp.
const DonationCooldown = 30 * 24 * time.Hour

// BloodRequestParams carries hospital/donor distribution request input.
type BloodRequestParams struct {
	BloodGroup    BloodGroup
	Units         int
	Urgency       Urgency
	Reason        string
	PatientName   string
	HospitalName  string
	ContactNumber string
	RequiredBy    *time.Time
}

// SubmitDonationOffer creates a pending donation request for a donor. The
// blood group is taken from the verified donor record, never from input.
func (s *Service) SubmitDonationOffer(ctx context.Context, donorID string, units int, reason, contact string) (BloodRequest, error) {
	ctx, done := s.instrument(ctx, "submit_donation_offer")
	var created BloodRequest
	_, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		donor, ok := tx.FindUser(donorID)
		if !ok {
			return NotFoundError{Entity: EntityUser, ID: donorID}
		}
		if donor.Role != RoleDonor {
			return UnauthorizedError{Detail: fmt.Sprintf("user %s is not a donor", donorID)}
		}
		if !donor.BloodGroupVerified {
			return StateError{Entity: EntityUser, ID: donorID, Code: "blood_group_unverified", Detail: "donation offers require a verified blood group"}
		}
		if donor.LastDonation != nil {
			elapsed := s.now().Sub(*donor.LastDonation)
			if elapsed < DonationCooldown {
				remaining := int((DonationCooldown - elapsed).Hours()/24) + 1
				return StateError{Entity: EntityUser, ID: donorID, Code: "donation_cooldown", Detail: fmt.Sprintf("%d days remaining", remaining)}
			}
		}
		if units < 1 || units > 5 {
			return ValidationError{Field: "units", Detail: "donations accept 1 to 5 units"}
		}
		var err error
		created, err = tx.CreateRequest(BloodRequest{
			RequesterID:   donorID,
			Kind:          KindDonation,
			BloodGroup:    donor.BloodGroup,
			Units:         units,
			Urgency:       domain.UrgencyMedium,
			Reason:        reason,
			ContactNumber: contact,
			Status:        StatusPending,
		})
		return err
	})
	done(err)
	return created, err
}

// SubmitBloodRequest creates a pending distribution request. Donors may
// request up to 5 units, hospitals up to 10. Hospital names are filled from
// the requester profile for hospital accounts.
func (s *Service) SubmitBloodRequest(ctx context.Context, requesterID string, params BloodRequestParams) (BloodRequest, error) {
	ctx, done := s.instrument(ctx, "submit_blood_request")
	var created BloodRequest
	_, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		requester, ok := tx.FindUser(requesterID)
		if !ok {
			return NotFoundError{Entity: EntityUser, ID: requesterID}
		}
		maxUnits := 0
		switch requester.Role {
		case RoleDonor:
			maxUnits = 5
		case RoleHospital:
			maxUnits = 10
		default:
			return UnauthorizedError{Detail: fmt.Sprintf("role %s cannot request blood", requester.Role)}
		}
		if !params.BloodGroup.Valid() {
			return ValidationError{Field: "blood_group", Detail: "unknown group"}
		}
		if params.Units < 1 || params.Units > maxUnits {
			return ValidationError{Field: "units", Detail: fmt.Sprintf("%s requests accept 1 to %d units", requester.Role, maxUnits)}
		}
		urgency := params.Urgency
		switch urgency {
		case "":
			urgency = domain.UrgencyMedium
		case domain.UrgencyLow, domain.UrgencyMedium, domain.UrgencyHigh, domain.UrgencyCritical:
		default:
			return ValidationError{Field: "urgency", Detail: "unknown urgency"}
		}
		hospitalName := params.HospitalName
		if requester.Role == RoleHospital && hospitalName == "" {
			hospitalName = requester.HospitalName
		}
		var err error
		created, err = tx.CreateRequest(BloodRequest{
			RequesterID:   requesterID,
			Kind:          KindBloodRequest,
			BloodGroup:    params.BloodGroup,
			Units:         params.Units,
			Urgency:       urgency,
			Reason:        params.Reason,
			PatientName:   params.PatientName,
			HospitalName:  hospitalName,
			ContactNumber: params.ContactNumber,
			RequiredBy:    params.RequiredBy,
			Status:        StatusPending,
		})
		return err
	})
	done(err)
	return created, err
}

// GetRequest returns one request by id.
func (s *Service) GetRequest(ctx context.Context, id string) (BloodRequest, error) {
	var found BloodRequest
	err := s.store.View(ctx, func(view TransactionView) error {
		req, ok := view.FindRequest(id)
		if !ok {
			return NotFoundError{Entity: EntityRequest, ID: id}
		}
		found = req
		return nil
	})
	return found, err
}

// ListRequestsByRequester returns a requester's submissions, newest first.
func (s *Service) ListRequestsByRequester(ctx context.Context, requesterID string) ([]BloodRequest, error) {
	return s.listRequests(ctx, func(r BloodRequest) bool { return r.RequesterID == requesterID })
}

// ListPendingRequests returns all pending requests, newest first.
func (s *Service) ListPendingRequests(ctx context.Context) ([]BloodRequest, error) {
	return s.listRequests(ctx, func(r BloodRequest) bool { return r.Status == StatusPending })
}

// ListRequests pages all requests, optionally filtered by status, newest
// first.
func (s *Service) ListRequests(ctx context.Context, status RequestStatus, page, limit int) ([]BloodRequest, int, error) {
	requests, err := s.listRequests(ctx, func(r BloodRequest) bool {
		return status == "" || r.Status == status
	})
	if err != nil {
		return nil, 0, err
	}
	pageRequests, total := paginate(requests, page, limit)
	return pageRequests, total, nil
}

func (s *Service) listRequests(ctx context.Context, keep func(BloodRequest) bool) ([]BloodRequest, error) {
	var requests []BloodRequest
	err := s.store.View(ctx, func(view TransactionView) error {
		for _, r := range view.ListRequests() {
			if keep(r) {
				requests = append(requests, r)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(requests, func(i, j int) bool { return requests[i].CreatedAt.After(requests[j].CreatedAt) })
	return requests, nil
}

// DonationHistory returns the donor's donation ledger entries, newest first.
func (s *Service) DonationHistory(ctx context.Context, donorID string) ([]LedgerEntry, error) {
	var entries []LedgerEntry
	err := s.store.View(ctx, func(view TransactionView) error {
		for _, e := range view.ListLedgerEntries() {
			if e.Type == LedgerDonation && e.DonorID != nil && *e.DonorID == donorID {
				entries = append(entries, e)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].RecordedAt.After(entries[j].RecordedAt) })
	return entries, nil
}

// ListLedgerEntries pages ledger entries, optionally scoped to one
// organization, newest first.
func (s *Service) ListLedgerEntries(ctx context.Context, orgID string, page, limit int) ([]LedgerEntry, int, error) {
	var entries []LedgerEntry
	err := s.store.View(ctx, func(view TransactionView) error {
		for _, e := range view.ListLedgerEntries() {
			if orgID != "" && e.OrganizationID != orgID {
				continue
			}
			entries = append(entries, e)
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].RecordedAt.After(entries[j].RecordedAt) })
	pageEntries, total := paginate(entries, page, limit)
	return pageEntries, total, nil
}
