package core

import (
	"context"
	"fmt"

	"hemocore/pkg/domain"
)

// LedgerAppendOnlyRule blocks updates and deletes of ledger entries. The
// persistence contract offers no such operations; this rule guards against
// future write paths reintroducing them.
func LedgerAppendOnlyRule() domain.Rule {
	return ledgerAppendOnlyRule{}
}

type ledgerAppendOnlyRule struct{}

func (ledgerAppendOnlyRule) Name() string { return "ledger_append_only" }

func (ledgerAppendOnlyRule) Evaluate(_ context.Context, _ domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, change := range changes {
		if change.Entity != domain.EntityLedger || change.Action == domain.ActionCreate {
			continue
		}
		id := ""
		if entry, ok := domain.DecodePayload[domain.LedgerEntry](change.Before); ok {
			id = entry.ID
		}
		res.Violations = append(res.Violations, domain.Violation{
			Rule:     "ledger_append_only",
			Severity: domain.SeverityBlock,
			Message:  fmt.Sprintf("ledger entry %s cannot be modified after recording (%s)", id, change.Action),
			Entity:   domain.EntityLedger,
			EntityID: id,
		})
	}
	return res, nil
}

// DefaultRulesEngine returns an engine with the standard rule set registered.
func DefaultRulesEngine() *domain.RulesEngine {
	engine := domain.NewRulesEngine()
	engine.Register(RequestTransitionRule())
	engine.Register(InventoryBalanceRule())
	engine.Register(LedgerAppendOnlyRule())
	return engine
}
