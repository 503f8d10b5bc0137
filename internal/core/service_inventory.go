package core

import (
	"context"
	"fmt"
	"sort"
	"time"

	"hemocore/pkg/domain"
)

// GroupAvailability reports aggregate availability for one blood group.
type GroupAvailability struct {
	BloodGroup    BloodGroup `json:"blood_group"`
	Units         int        `json:"units"`
	Organizations int        `json:"organizations"`
}

// Availability sums available lot units per blood group, zero-filled across
// all eight groups. An empty orgID aggregates every organization; the
// organization count reports distinct holders per group.
func (s *Service) Availability(ctx context.Context, orgID string) ([]GroupAvailability, error) {
	units := map[BloodGroup]int{}
	holders := map[BloodGroup]map[string]struct{}{}
	err := s.store.View(ctx, func(view TransactionView) error {
		for _, lot := range view.ListLots() {
			if lot.Status != LotAvailable || lot.Units == 0 {
				continue
			}
			if orgID != "" && lot.OrganizationID != orgID {
				continue
			}
			units[lot.BloodGroup] += lot.Units
			if holders[lot.BloodGroup] == nil {
				holders[lot.BloodGroup] = map[string]struct{}{}
			}
			holders[lot.BloodGroup][lot.OrganizationID] = struct{}{}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	out := make([]GroupAvailability, 0, len(domain.BloodGroups()))
	for _, group := range domain.BloodGroups() {
		out = append(out, GroupAvailability{
			BloodGroup:    group,
			Units:         units[group],
			Organizations: len(holders[group]),
		})
	}
	return out, nil
}

// AddInventoryLot records stock held by an organization outside the donation
// flow (bulk imports, existing holdings).
func (s *Service) AddInventoryLot(ctx context.Context, orgID string, group BloodGroup, units int, expiresAt time.Time) (InventoryLot, error) {
	ctx, done := s.instrument(ctx, "add_inventory_lot")
	var created InventoryLot
	_, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		org, ok := tx.FindUser(orgID)
		if !ok || org.Role != RoleOrganization {
			return UnauthorizedError{Detail: fmt.Sprintf("acting party %s is not an organization", orgID)}
		}
		if !org.Approved {
			return UnauthorizedError{Detail: fmt.Sprintf("organization %s is not approved", orgID)}
		}
		if !group.Valid() {
			return ValidationError{Field: "blood_group", Detail: "unknown group"}
		}
		if units < 1 {
			return ValidationError{Field: "units", Detail: "at least one unit required"}
		}
		if expiresAt.IsZero() {
			expiresAt = s.now().Add(LotShelfLife)
		}
		var err error
		created, err = tx.CreateLot(InventoryLot{
			OrganizationID: orgID,
			BloodGroup:     group,
			Units:          units,
			ExpiresAt:      expiresAt,
			CollectedAt:    s.now(),
			Status:         LotAvailable,
		})
		return err
	})
	done(err)
	return created, err
}

// LotPatch carries the optional fields an organization may change on a lot.
type LotPatch struct {
	Units     *int
	Status    *LotStatus
	ExpiresAt *time.Time
}

// UpdateInventoryLot applies a patch to a lot owned by the acting
// organization. The non-negative rule still gates the result.
func (s *Service) UpdateInventoryLot(ctx context.Context, orgID, lotID string, patch LotPatch) (InventoryLot, error) {
	ctx, done := s.instrument(ctx, "update_inventory_lot")
	var updated InventoryLot
	_, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		lot, ok := tx.FindLot(lotID)
		if !ok {
			return NotFoundError{Entity: EntityLot, ID: lotID}
		}
		if lot.OrganizationID != orgID {
			return UnauthorizedError{Detail: fmt.Sprintf("lot %s is not held by organization %s", lotID, orgID)}
		}
		var err error
		updated, err = tx.UpdateLot(lotID, func(l *InventoryLot) error {
			if patch.Units != nil {
				l.Units = *patch.Units
			}
			if patch.Status != nil {
				l.Status = *patch.Status
			}
			if patch.ExpiresAt != nil {
				l.ExpiresAt = *patch.ExpiresAt
			}
			return nil
		})
		return err
	})
	done(err)
	return updated, err
}

// DeleteInventoryLot removes a lot owned by the acting organization.
func (s *Service) DeleteInventoryLot(ctx context.Context, orgID, lotID string) error {
	ctx, done := s.instrument(ctx, "delete_inventory_lot")
	_, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		lot, ok := tx.FindLot(lotID)
		if !ok {
			return NotFoundError{Entity: EntityLot, ID: lotID}
		}
		if lot.OrganizationID != orgID {
			return UnauthorizedError{Detail: fmt.Sprintf("lot %s is not held by organization %s", lotID, orgID)}
		}
		return tx.DeleteLot(lotID)
	})
	done(err)
	return err
}

// ListInventory returns an organization's lots, most recently collected
// first.
func (s *Service) ListInventory(ctx context.Context, orgID string) ([]InventoryLot, error) {
	var lots []InventoryLot
	err := s.store.View(ctx, func(view TransactionView) error {
		for _, lot := range view.ListLots() {
			if lot.OrganizationID == orgID {
				lots = append(lots, lot)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(lots, func(i, j int) bool { return lots[i].CollectedAt.After(lots[j].CollectedAt) })
	return lots, nil
}

// DetailedInventory returns every available lot across organizations,
// earliest expiry first.
func (s *Service) DetailedInventory(ctx context.Context) ([]InventoryLot, error) {
	var lots []InventoryLot
	err := s.store.View(ctx, func(view TransactionView) error {
		for _, lot := range view.ListLots() {
			if lot.Status == LotAvailable {
				lots = append(lots, lot)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(lots, func(i, j int) bool { return lots[i].ExpiresAt.Before(lots[j].ExpiresAt) })
	return lots, nil
}

// ExpireLots sweeps available lots past their expiry, marking them expired.
// Returns the number of lots transitioned.
func (s *Service) ExpireLots(ctx context.Context) (int, error) {
	ctx, done := s.instrument(ctx, "expire_lots")
	expired := 0
	_, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		now := s.now()
		for _, lot := range tx.Snapshot().ListLots() {
			if lot.Status != LotAvailable || lot.ExpiresAt.After(now) {
				continue
			}
			if _, err := tx.UpdateLot(lot.ID, func(l *InventoryLot) error {
				l.Status = domain.LotExpired
				return nil
			}); err != nil {
				return err
			}
			expired++
		}
		return nil
	})
	done(err)
	if err != nil {
		return 0, err
	}
	return expired, nil
}
