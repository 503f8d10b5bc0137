package core

import (
	"context"
	"fmt"

	"hemocore/pkg/domain"
)

// InventoryBalanceRule blocks any transaction that would leave an inventory
// lot with negative units or an unrecognised status, and requires a lot that
// reaches zero units to be marked used.
func InventoryBalanceRule() domain.Rule {
	return inventoryBalanceRule{}
}

type inventoryBalanceRule struct{}

func (inventoryBalanceRule) Name() string { return "inventory_balance" }

var lotStatuses = map[domain.LotStatus]struct{}{
	domain.LotAvailable: {},
	domain.LotReserved:  {},
	domain.LotExpired:   {},
	domain.LotUsed:      {},
}

func (inventoryBalanceRule) Evaluate(_ context.Context, _ domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, change := range changes {
		if change.Entity != domain.EntityLot || change.Action == domain.ActionDelete {
			continue
		}
		lot, ok := domain.DecodePayload[domain.InventoryLot](change.After)
		if !ok {
			continue
		}
		if lot.Units < 0 {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "inventory_balance",
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("lot %s would hold %d units", lot.ID, lot.Units),
				Entity:   domain.EntityLot,
				EntityID: lot.ID,
			})
			continue
		}
		if _, known := lotStatuses[lot.Status]; !known {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "inventory_balance",
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("lot %s has unknown status %s", lot.ID, lot.Status),
				Entity:   domain.EntityLot,
				EntityID: lot.ID,
			})
			continue
		}
		if lot.Units == 0 && lot.Status == domain.LotAvailable {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "inventory_balance",
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("lot %s is empty but still marked available", lot.ID),
				Entity:   domain.EntityLot,
				EntityID: lot.ID,
			})
		}
	}
	return res, nil
}
