package core

import (
	"context"
	"time"

	"hemocore/pkg/domain"
)

// TrendBucket aggregates donated units for one calendar month.
type TrendBucket struct {
	Month string `json:"month"` // formatted 2006-01
	Units int    `json:"units"`
	Count int    `json:"count"`
}

// DonationTrends sums donation ledger entries into monthly buckets covering
// the last twelve months, oldest first. Empty months are zero-filled.
func (s *Service) DonationTrends(ctx context.Context) ([]TrendBucket, error) {
	now := s.now()
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -11, 0)
	byMonth := map[string]*TrendBucket{}
	err := s.store.View(ctx, func(view TransactionView) error {
		for _, e := range view.ListLedgerEntries() {
			if e.Type != LedgerDonation || e.RecordedAt.Before(start) {
				continue
			}
			key := e.RecordedAt.Format("2006-01")
			b := byMonth[key]
			if b == nil {
				b = &TrendBucket{Month: key}
				byMonth[key] = b
			}
			b.Units += e.Units
			b.Count++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	out := make([]TrendBucket, 0, 12)
	for i := 0; i < 12; i++ {
		key := start.AddDate(0, i, 0).Format("2006-01")
		if b := byMonth[key]; b != nil {
			out = append(out, *b)
		} else {
			out = append(out, TrendBucket{Month: key})
		}
	}
	return out, nil
}

// RequestStats counts requests per status.
func (s *Service) RequestStats(ctx context.Context) (map[RequestStatus]int, error) {
	stats := map[RequestStatus]int{
		StatusPending:   0,
		StatusApproved:  0,
		StatusRejected:  0,
		StatusCompleted: 0,
	}
	err := s.store.View(ctx, func(view TransactionView) error {
		for _, r := range view.ListRequests() {
			stats[r.Status]++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// DonorStats reports the donor population: blood-group distribution and
// monthly registration counts for the last twelve months.
type DonorStats struct {
	ByBloodGroup         map[BloodGroup]int `json:"by_blood_group"`
	MonthlyRegistrations []TrendBucket      `json:"monthly_registrations"`
}

// DonorStatistics aggregates the donor population for the admin analytics
// view.
func (s *Service) DonorStatistics(ctx context.Context) (DonorStats, error) {
	now := s.now()
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -11, 0)
	stats := DonorStats{ByBloodGroup: map[BloodGroup]int{}}
	for _, g := range domain.BloodGroups() {
		stats.ByBloodGroup[g] = 0
	}
	byMonth := map[string]int{}
	err := s.store.View(ctx, func(view TransactionView) error {
		for _, u := range view.ListUsers() {
			if u.Role != RoleDonor {
				continue
			}
			if u.BloodGroup.Valid() {
				stats.ByBloodGroup[u.BloodGroup]++
			}
			if !u.CreatedAt.Before(start) {
				byMonth[u.CreatedAt.Format("2006-01")]++
			}
		}
		return nil
	})
	if err != nil {
		return DonorStats{}, err
	}
	for i := 0; i < 12; i++ {
		key := start.AddDate(0, i, 0).Format("2006-01")
		stats.MonthlyRegistrations = append(stats.MonthlyRegistrations, TrendBucket{Month: key, Count: byMonth[key]})
	}
	return stats, nil
}

// DashboardCounts summarises the system for the admin dashboard.
type DashboardCounts struct {
	Donors               int `json:"donors"`
	Hospitals            int `json:"hospitals"`
	Organizations        int `json:"organizations"`
	PendingOrganizations int `json:"pending_organizations"`
	Requests             int `json:"requests"`
	PendingRequests      int `json:"pending_requests"`
	AvailableUnits       int `json:"available_units"`
	LedgerEntries        int `json:"ledger_entries"`
	Camps                int `json:"camps"`
}

// Dashboard computes admin dashboard counts over one snapshot.
func (s *Service) Dashboard(ctx context.Context) (DashboardCounts, error) {
	var counts DashboardCounts
	err := s.store.View(ctx, func(view TransactionView) error {
		for _, u := range view.ListUsers() {
			switch u.Role {
			case RoleDonor:
				counts.Donors++
			case RoleHospital:
				counts.Hospitals++
			case RoleOrganization:
				counts.Organizations++
				if !u.Approved {
					counts.PendingOrganizations++
				}
			}
		}
		for _, r := range view.ListRequests() {
			counts.Requests++
			if r.Status == StatusPending {
				counts.PendingRequests++
			}
		}
		for _, lot := range view.ListLots() {
			if lot.Status == LotAvailable {
				counts.AvailableUnits += lot.Units
			}
		}
		counts.LedgerEntries = len(view.ListLedgerEntries())
		counts.Camps = len(view.ListCamps())
		return nil
	})
	if err != nil {
		return DashboardCounts{}, err
	}
	return counts, nil
}
