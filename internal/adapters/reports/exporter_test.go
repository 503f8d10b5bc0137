package reports

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"
	"time"

	"hemocore/internal/core"
	blobmemory "hemocore/internal/infra/blob/memory"
	"hemocore/pkg/domain"
)

func newReportService(t *testing.T) *core.Service {
	t.Helper()
	ctx := context.Background()
	svc := core.NewInMemoryService(nil)
	org, err := svc.RegisterUser(ctx, core.User{
		Name:             "Bank",
		Email:            "bank@example.com",
		PasswordHash:     "h",
		Role:             core.RoleOrganization,
		OrganizationName: "Bank",
		OrganizationType: domain.OrgBloodBank,
	})
	if err != nil {
		t.Fatalf("register org: %v", err)
	}
	if _, err := svc.SetOrganizationApproval(ctx, org.ID, true); err != nil {
		t.Fatalf("approve org: %v", err)
	}
	if _, err := svc.AddInventoryLot(ctx, org.ID, domain.GroupOPos, 5, time.Now().Add(48*time.Hour)); err != nil {
		t.Fatalf("add lot: %v", err)
	}
	return svc
}

func waitForRecord(t *testing.T, exp *Exporter, id string) Record {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		record, ok := exp.GetArchive(id)
		if !ok {
			t.Fatalf("record %s disappeared", id)
		}
		switch record.Status {
		case StatusSucceeded, StatusFailed:
			return record
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("archive %s did not finish", id)
	return Record{}
}

func TestExporterArchivesAllKinds(t *testing.T) {
	svc := newReportService(t)
	store := blobmemory.New()
	exp := NewExporter(svc, store, nil)
	exp.Start()
	defer func() {
		if err := exp.Stop(context.Background()); err != nil {
			t.Fatalf("stop: %v", err)
		}
	}()

	queued, err := exp.EnqueueArchive(context.Background(), Input{RequestedBy: "admin"})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if queued.Status != StatusQueued || len(queued.Kinds) != len(AllKinds()) {
		t.Fatalf("unexpected queued record %+v", queued)
	}

	record := waitForRecord(t, exp, queued.ID)
	if record.Status != StatusSucceeded {
		t.Fatalf("archive failed: %s", record.Error)
	}
	if len(record.Artifacts) != len(AllKinds())*2 {
		t.Fatalf("expected json and csv per kind, got %d artifacts", len(record.Artifacts))
	}
	if record.CompletedAt == nil {
		t.Fatalf("completed timestamp missing")
	}

	infos, err := exp.ListArtifacts(context.Background(), KindAvailability)
	if err != nil || len(infos) != 2 {
		t.Fatalf("availability artifacts: %v %d", err, len(infos))
	}
	for _, info := range infos {
		if !strings.HasPrefix(info.Key, "reports/availability/") {
			t.Fatalf("unexpected key %s", info.Key)
		}
	}
}

func TestExporterRendersPayloads(t *testing.T) {
	svc := newReportService(t)
	store := blobmemory.New()
	exp := NewExporter(svc, store, nil)
	exp.Start()
	defer exp.Stop(context.Background())

	queued, err := exp.EnqueueArchive(context.Background(), Input{Kinds: []Kind{KindAvailability}})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	record := waitForRecord(t, exp, queued.ID)
	if record.Status != StatusSucceeded {
		t.Fatalf("archive failed: %s", record.Error)
	}

	var jsonKey, csvKey string
	for _, a := range record.Artifacts {
		switch a.Format {
		case FormatJSON:
			jsonKey = a.Key
		case FormatCSV:
			csvKey = a.Key
		}
	}

	_, rc, err := store.Get(context.Background(), jsonKey)
	if err != nil {
		t.Fatalf("get json: %v", err)
	}
	payload, _ := io.ReadAll(rc)
	rc.Close()
	var decoded table
	if err := json.Unmarshal(payload, &decoded); err != nil {
		t.Fatalf("decode json: %v", err)
	}
	if decoded.Kind != KindAvailability || len(decoded.Rows) != 8 {
		t.Fatalf("unexpected json table %+v", decoded)
	}

	_, rc, err = store.Get(context.Background(), csvKey)
	if err != nil {
		t.Fatalf("get csv: %v", err)
	}
	raw, _ := io.ReadAll(rc)
	rc.Close()
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	if len(lines) != 9 {
		t.Fatalf("expected header plus eight groups, got %d lines", len(lines))
	}
	if lines[0] != "blood_group,units,organizations" {
		t.Fatalf("unexpected csv header %q", lines[0])
	}
}

func TestExporterRejectsUnknownInput(t *testing.T) {
	svc := newReportService(t)
	exp := NewExporter(svc, blobmemory.New(), nil)

	if _, err := exp.EnqueueArchive(context.Background(), Input{Kinds: []Kind{"weekly"}}); err == nil {
		t.Fatalf("expected unknown kind error")
	}
	if _, err := exp.EnqueueArchive(context.Background(), Input{Formats: []Format{"xml"}}); err == nil {
		t.Fatalf("expected unknown format error")
	}
	if _, err := exp.ListArtifacts(context.Background(), "weekly"); err == nil {
		t.Fatalf("expected unknown kind error from list")
	}
}
