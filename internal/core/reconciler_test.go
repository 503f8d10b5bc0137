package core

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"hemocore/pkg/domain"
)

var testClock = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) *Service {
	t.Helper()
	return NewInMemoryService(nil, WithNowFunc(func() time.Time { return testClock }))
}

func seedOrg(t *testing.T, svc *Service, approved bool) User {
	t.Helper()
	org, err := svc.RegisterUser(context.Background(), User{
		Name:             "Central Blood Bank",
		Email:            "org-" + t.Name() + "@example.com",
		PasswordHash:     "hash",
		Role:             RoleOrganization,
		OrganizationName: "Central Blood Bank",
		OrganizationType: domain.OrgBloodBank,
	})
	if err != nil {
		t.Fatalf("seed org: %v", err)
	}
	if approved {
		org, err = svc.SetOrganizationApproval(context.Background(), org.ID, true)
		if err != nil {
			t.Fatalf("approve org: %v", err)
		}
	}
	return org
}

func seedDonor(t *testing.T, svc *Service, group BloodGroup) User {
	t.Helper()
	donor, err := svc.RegisterUser(context.Background(), User{
		Name:         "Asha Donor",
		Email:        "donor-" + t.Name() + "@example.com",
		PasswordHash: "hash",
		Role:         RoleDonor,
		BloodGroup:   group,
		Age:          30,
	})
	if err != nil {
		t.Fatalf("seed donor: %v", err)
	}
	donor, err = svc.VerifyDonorBloodGroup(context.Background(), donor.ID, group, true)
	if err != nil {
		t.Fatalf("verify donor: %v", err)
	}
	return donor
}

func seedHospital(t *testing.T, svc *Service) User {
	t.Helper()
	hospital, err := svc.RegisterUser(context.Background(), User{
		Name:          "City Hospital",
		Email:         "hospital-" + t.Name() + "@example.com",
		PasswordHash:  "hash",
		Role:          RoleHospital,
		HospitalName:  "City Hospital",
		LicenseNumber: "LIC-1001",
	})
	if err != nil {
		t.Fatalf("seed hospital: %v", err)
	}
	return hospital
}

func TestResolveDonationApproval(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	org := seedOrg(t, svc, true)
	donor := seedDonor(t, svc, domain.GroupOPos)

	offer, err := svc.SubmitDonationOffer(ctx, donor.ID, 2, "routine", "555-0101")
	if err != nil {
		t.Fatalf("submit offer: %v", err)
	}

	resolved, err := svc.ResolveRequest(ctx, offer.ID, StatusApproved, org.ID, "ok")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resolved.Status != StatusApproved {
		t.Fatalf("expected approved, got %s", resolved.Status)
	}
	if resolved.OrganizationID == nil || *resolved.OrganizationID != org.ID {
		t.Fatalf("expected claiming organization stamped")
	}

	stampedDonor, _ := svc.Store().GetUser(donor.ID)
	if stampedDonor.LastDonation == nil || !stampedDonor.LastDonation.Equal(testClock) {
		t.Fatalf("expected lastDonation stamped, got %v", stampedDonor.LastDonation)
	}

	lots := svc.Store().ListLots()
	if len(lots) != 1 {
		t.Fatalf("expected exactly one lot, got %d", len(lots))
	}
	lot := lots[0]
	if lot.Units != 2 || lot.BloodGroup != domain.GroupOPos || lot.Status != LotAvailable {
		t.Fatalf("unexpected lot %+v", lot)
	}
	if !lot.ExpiresAt.Equal(testClock.Add(LotShelfLife)) {
		t.Fatalf("expected 42 day expiry, got %v", lot.ExpiresAt)
	}
	if lot.DonorID == nil || *lot.DonorID != donor.ID {
		t.Fatalf("expected donor ref on lot")
	}

	entries := svc.Store().ListLedgerEntries()
	if len(entries) != 1 {
		t.Fatalf("expected exactly one ledger entry, got %d", len(entries))
	}
	entry := entries[0]
	if entry.Type != LedgerDonation || entry.Units != 2 || entry.RequestID != offer.ID {
		t.Fatalf("unexpected ledger entry %+v", entry)
	}
	if entry.DonorID == nil || *entry.DonorID != donor.ID {
		t.Fatalf("expected donor ref on ledger entry")
	}
}

func TestResolveDonationIncrementsExistingLot(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	org := seedOrg(t, svc, true)
	donor := seedDonor(t, svc, domain.GroupAPos)

	if _, err := svc.AddInventoryLot(ctx, org.ID, domain.GroupAPos, 4, testClock.Add(10*24*time.Hour)); err != nil {
		t.Fatalf("seed lot: %v", err)
	}
	offer, err := svc.SubmitDonationOffer(ctx, donor.ID, 3, "", "")
	if err != nil {
		t.Fatalf("submit offer: %v", err)
	}
	if _, err := svc.ResolveRequest(ctx, offer.ID, StatusApproved, org.ID, ""); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	lots := svc.Store().ListLots()
	if len(lots) != 1 {
		t.Fatalf("expected upsert into the existing lot, got %d lots", len(lots))
	}
	if lots[0].Units != 7 {
		t.Fatalf("expected 7 units, got %d", lots[0].Units)
	}
}

func TestResolveDistributionApproval(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	org := seedOrg(t, svc, true)
	hospital := seedHospital(t, svc)

	if _, err := svc.AddInventoryLot(ctx, org.ID, domain.GroupBNeg, 5, testClock.Add(20*24*time.Hour)); err != nil {
		t.Fatalf("seed lot: %v", err)
	}
	req, err := svc.SubmitBloodRequest(ctx, hospital.ID, BloodRequestParams{
		BloodGroup:  domain.GroupBNeg,
		Units:       3,
		Urgency:     domain.UrgencyHigh,
		PatientName: "R. Patel",
	})
	if err != nil {
		t.Fatalf("submit request: %v", err)
	}
	if req.HospitalName != "City Hospital" {
		t.Fatalf("expected hospital name autofill, got %q", req.HospitalName)
	}

	if _, err := svc.ResolveRequest(ctx, req.ID, StatusApproved, org.ID, "dispatch"); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	lots := svc.Store().ListLots()
	if len(lots) != 1 || lots[0].Units != 2 || lots[0].Status != LotAvailable {
		t.Fatalf("expected decremented available lot, got %+v", lots)
	}
	entries := svc.Store().ListLedgerEntries()
	if len(entries) != 1 || entries[0].Type != LedgerDistribution {
		t.Fatalf("expected one distribution entry, got %+v", entries)
	}
	if entries[0].RecipientID == nil || *entries[0].RecipientID != hospital.ID {
		t.Fatalf("expected recipient ref")
	}
}

func TestResolveDistributionMarksLotUsedAtZero(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	org := seedOrg(t, svc, true)
	hospital := seedHospital(t, svc)

	if _, err := svc.AddInventoryLot(ctx, org.ID, domain.GroupOPos, 3, testClock.Add(20*24*time.Hour)); err != nil {
		t.Fatalf("seed lot: %v", err)
	}
	req, err := svc.SubmitBloodRequest(ctx, hospital.ID, BloodRequestParams{BloodGroup: domain.GroupOPos, Units: 3})
	if err != nil {
		t.Fatalf("submit request: %v", err)
	}
	if _, err := svc.ResolveRequest(ctx, req.ID, StatusApproved, org.ID, ""); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	lots := svc.Store().ListLots()
	if len(lots) != 1 || lots[0].Units != 0 || lots[0].Status != LotUsed {
		t.Fatalf("expected used lot at zero units, got %+v", lots)
	}
}

func TestResolveDistributionInsufficientInventory(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	org := seedOrg(t, svc, true)
	hospital := seedHospital(t, svc)

	if _, err := svc.AddInventoryLot(ctx, org.ID, domain.GroupABNeg, 2, testClock.Add(20*24*time.Hour)); err != nil {
		t.Fatalf("seed lot: %v", err)
	}
	req, err := svc.SubmitBloodRequest(ctx, hospital.ID, BloodRequestParams{BloodGroup: domain.GroupABNeg, Units: 6})
	if err != nil {
		t.Fatalf("submit request: %v", err)
	}
	_, err = svc.ResolveRequest(ctx, req.ID, StatusApproved, org.ID, "")
	var insufficient InsufficientInventoryError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientInventoryError, got %v", err)
	}
	if insufficient.Requested != 6 || insufficient.Available != 2 || insufficient.Shortfall() != 4 {
		t.Fatalf("unexpected shortfall detail %+v", insufficient)
	}

	after, _ := svc.Store().GetRequest(req.ID)
	if after.Status != StatusPending {
		t.Fatalf("request must stay pending, got %s", after.Status)
	}
	if len(svc.Store().ListLedgerEntries()) != 0 {
		t.Fatalf("no ledger entry may exist without an inventory mutation")
	}
	lots := svc.Store().ListLots()
	if len(lots) != 1 || lots[0].Units != 2 {
		t.Fatalf("inventory must be untouched, got %+v", lots)
	}
}

func TestResolveRejectionWritesOnlyRequest(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	org := seedOrg(t, svc, true)
	donor := seedDonor(t, svc, domain.GroupOPos)

	offer, err := svc.SubmitDonationOffer(ctx, donor.ID, 1, "", "")
	if err != nil {
		t.Fatalf("submit offer: %v", err)
	}
	resolved, err := svc.ResolveRequest(ctx, offer.ID, StatusRejected, org.ID, "deferred")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resolved.Status != StatusRejected || resolved.DecisionNotes != "deferred" {
		t.Fatalf("unexpected resolution %+v", resolved)
	}
	if len(svc.Store().ListLots()) != 0 || len(svc.Store().ListLedgerEntries()) != 0 {
		t.Fatalf("rejection must not touch inventory or ledger")
	}
	after, _ := svc.Store().GetUser(donor.ID)
	if after.LastDonation != nil {
		t.Fatalf("rejection must not stamp lastDonation")
	}
}

func TestResolveNonPendingRequestFails(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	org := seedOrg(t, svc, true)
	donor := seedDonor(t, svc, domain.GroupOPos)

	offer, err := svc.SubmitDonationOffer(ctx, donor.ID, 1, "", "")
	if err != nil {
		t.Fatalf("submit offer: %v", err)
	}
	if _, err := svc.ResolveRequest(ctx, offer.ID, StatusRejected, org.ID, ""); err != nil {
		t.Fatalf("first resolve: %v", err)
	}
	_, err = svc.ResolveRequest(ctx, offer.ID, StatusApproved, org.ID, "")
	var state StateError
	if !errors.As(err, &state) || state.Code != "request_not_pending" {
		t.Fatalf("expected request_not_pending, got %v", err)
	}
}

func TestResolveRequiresApprovedOrganization(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	donor := seedDonor(t, svc, domain.GroupOPos)
	pendingOrg := seedOrg(t, svc, false)

	offer, err := svc.SubmitDonationOffer(ctx, donor.ID, 1, "", "")
	if err != nil {
		t.Fatalf("submit offer: %v", err)
	}

	var unauthorized UnauthorizedError
	if _, err := svc.ResolveRequest(ctx, offer.ID, StatusApproved, pendingOrg.ID, ""); !errors.As(err, &unauthorized) {
		t.Fatalf("expected UnauthorizedError for unapproved org, got %v", err)
	}
	if _, err := svc.ResolveRequest(ctx, offer.ID, StatusApproved, donor.ID, ""); !errors.As(err, &unauthorized) {
		t.Fatalf("expected UnauthorizedError for non-organization, got %v", err)
	}
	if _, err := svc.ResolveRequest(ctx, "missing", StatusApproved, pendingOrg.ID, ""); err == nil {
		t.Fatalf("expected error for missing request")
	}
	var invalid ValidationError
	if _, err := svc.ResolveRequest(ctx, offer.ID, StatusCompleted, pendingOrg.ID, ""); !errors.As(err, &invalid) {
		t.Fatalf("expected ValidationError for completed decision, got %v", err)
	}
}

func TestConcurrentApprovalsExactlyOneSucceeds(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	org := seedOrg(t, svc, true)
	hospital := seedHospital(t, svc)

	if _, err := svc.AddInventoryLot(ctx, org.ID, domain.GroupOPos, 3, testClock.Add(20*24*time.Hour)); err != nil {
		t.Fatalf("seed lot: %v", err)
	}
	var requests []BloodRequest
	for i := 0; i < 2; i++ {
		req, err := svc.SubmitBloodRequest(ctx, hospital.ID, BloodRequestParams{BloodGroup: domain.GroupOPos, Units: 3})
		if err != nil {
			t.Fatalf("submit request %d: %v", i, err)
		}
		requests = append(requests, req)
	}

	var wg sync.WaitGroup
	errs := make([]error, len(requests))
	for i, req := range requests {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			_, errs[i] = svc.ResolveRequest(ctx, id, StatusApproved, org.ID, "")
		}(i, req.ID)
	}
	wg.Wait()

	successes := 0
	for _, err := range errs {
		if err == nil {
			successes++
			continue
		}
		var insufficient InsufficientInventoryError
		if !errors.As(err, &insufficient) {
			t.Fatalf("losing approval must fail with InsufficientInventoryError, got %v", err)
		}
	}
	if successes != 1 {
		t.Fatalf("expected exactly one success, got %d", successes)
	}
	if entries := svc.Store().ListLedgerEntries(); len(entries) != 1 {
		t.Fatalf("expected exactly one ledger entry, got %d", len(entries))
	}
	lots := svc.Store().ListLots()
	if len(lots) != 1 || lots[0].Units != 0 || lots[0].Status != LotUsed {
		t.Fatalf("expected fully consumed lot, got %+v", lots)
	}
}
