package memory

import (
	"context"
	"fmt"
	"testing"
	"time"

	"hemocore/pkg/domain"
)

func TestStoreRunInTransactionAndSnapshots(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()
	_, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		if _, ok := tx.FindLot("missing"); ok {
			t.Fatalf("expected missing lot lookup")
		}
		created, err := tx.CreateUser(domain.User{Name: "Asha", Email: "asha@example.com", Role: domain.RoleDonor})
		if err != nil {
			return err
		}
		if created.ID == "" {
			t.Fatalf("expected generated ID")
		}
		view := tx.Snapshot()
		if len(view.ListUsers()) != 1 {
			t.Fatalf("snapshot mismatch")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("run transaction: %v", err)
	}
	if len(store.ListUsers()) != 1 {
		t.Fatalf("expected persisted user")
	}
	snapshot := store.ExportState()
	store.ImportState(Snapshot{})
	if len(store.ListUsers()) != 0 {
		t.Fatalf("expected cleared state")
	}
	store.ImportState(snapshot)
	if len(store.ListUsers()) != 1 {
		t.Fatalf("expected restored state")
	}
	if store.RulesEngine() == nil {
		t.Fatalf("expected rules engine")
	}
}

func TestStoreRuleViolationRollsBack(t *testing.T) {
	store := NewStore(domain.NewRulesEngine())
	store.RulesEngine().Register(blockingRule{})
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, e := tx.CreateUser(domain.User{Name: "Fail", Email: "fail@example.com", Role: domain.RoleDonor})
		return e
	})
	var violation domain.RuleViolationError
	if !asRuleViolation(err, &violation) {
		t.Fatalf("expected rule violation error, got %v", err)
	}
	if len(store.ListUsers()) != 0 {
		t.Fatalf("expected rollback, found %d users", len(store.ListUsers()))
	}
}

func asRuleViolation(err error, target *domain.RuleViolationError) bool {
	if err == nil {
		return false
	}
	v, ok := err.(domain.RuleViolationError)
	if ok {
		*target = v
	}
	return ok
}

type blockingRule struct{}

func (blockingRule) Name() string { return "block" }

func (blockingRule) Evaluate(ctx context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	res.Merge(domain.Result{Violations: []domain.Violation{{Rule: "block", Severity: domain.SeverityBlock}}})
	return res, nil
}

func TestTransactionFnErrorRollsBack(t *testing.T) {
	store := NewStore(nil)
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		if _, e := tx.CreateLot(domain.InventoryLot{BloodGroup: domain.GroupOPos, Units: 3}); e != nil {
			return e
		}
		return fmt.Errorf("boom")
	})
	if err == nil {
		t.Fatalf("expected error")
	}
	if len(store.ListLots()) != 0 {
		t.Fatalf("expected rollback")
	}
}

func TestUpdateMissingEntitiesError(t *testing.T) {
	store := NewStore(nil)
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		if _, err := tx.UpdateUser("missing", func(*domain.User) error { return nil }); err == nil {
			t.Fatalf("expected missing user error")
		}
		if _, err := tx.UpdateRequest("missing", func(*domain.BloodRequest) error { return nil }); err == nil {
			t.Fatalf("expected missing request error")
		}
		if _, err := tx.UpdateLot("missing", func(*domain.InventoryLot) error { return nil }); err == nil {
			t.Fatalf("expected missing lot error")
		}
		if _, err := tx.UpdateCamp("missing", func(*domain.BloodCamp) error { return nil }); err == nil {
			t.Fatalf("expected missing camp error")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("transaction: %v", err)
	}
}

func TestCreateValidationGuards(t *testing.T) {
	store := NewStore(nil)
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		if _, err := tx.CreateRequest(domain.BloodRequest{BloodGroup: "Z+"}); err == nil {
			t.Fatalf("expected invalid blood group error")
		}
		if _, err := tx.CreateLot(domain.InventoryLot{BloodGroup: domain.GroupAPos, Units: -1}); err == nil {
			t.Fatalf("expected negative units error")
		}
		if _, err := tx.AppendLedgerEntry(domain.LedgerEntry{Type: domain.LedgerDonation, BloodGroup: domain.GroupAPos, Units: 0}); err == nil {
			t.Fatalf("expected zero units ledger error")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("transaction: %v", err)
	}
}

func TestLotDefaultsAndLedgerTimestamps(t *testing.T) {
	store := NewStore(nil)
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store.SetNowFunc(func() time.Time { return fixed })
	var lotID string
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		lot, err := tx.CreateLot(domain.InventoryLot{BloodGroup: domain.GroupBNeg, Units: 2, ExpiresAt: fixed.AddDate(0, 0, 42)})
		if err != nil {
			return err
		}
		lotID = lot.ID
		if lot.Status != domain.LotAvailable {
			t.Fatalf("expected defaulted status, got %s", lot.Status)
		}
		if !lot.CollectedAt.Equal(fixed) {
			t.Fatalf("expected CollectedAt defaulted to now")
		}
		entry, err := tx.AppendLedgerEntry(domain.LedgerEntry{Type: domain.LedgerDonation, BloodGroup: domain.GroupBNeg, Units: 2})
		if err != nil {
			return err
		}
		if !entry.RecordedAt.Equal(fixed) {
			t.Fatalf("expected RecordedAt defaulted to now")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("transaction: %v", err)
	}
	if _, ok := store.GetLot(lotID); !ok {
		t.Fatalf("expected committed lot")
	}
}

func TestViewIsIsolatedCopy(t *testing.T) {
	store := NewStore(nil)
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, e := tx.CreateCamp(domain.BloodCamp{Title: "City Drive", OrganizerID: "org-1", Date: time.Now().AddDate(0, 1, 0)})
		return e
	})
	if err != nil {
		t.Fatalf("transaction: %v", err)
	}
	if err := store.View(context.Background(), func(view domain.TransactionView) error {
		camps := view.ListCamps()
		if len(camps) != 1 {
			t.Fatalf("expected 1 camp")
		}
		camps[0].Title = "Tampered"
		return nil
	}); err != nil {
		t.Fatalf("view: %v", err)
	}
	fresh := store.ListCamps()
	if fresh[0].Title != "City Drive" {
		t.Fatalf("view mutation leaked into store")
	}
}
