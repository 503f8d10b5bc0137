package core

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"hemocore/pkg/domain"
)

type captureRecorder struct {
	mu           sync.Mutex
	observations []capturedObservation
}

type capturedObservation struct {
	operation string
	success   bool
	duration  time.Duration
}

func (r *captureRecorder) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observations = append(r.observations, capturedObservation{operation, success, duration})
}

type captureTracer struct {
	mu    sync.Mutex
	spans []capturedSpan
}

type capturedSpan struct {
	operation string
	err       error
}

func (t *captureTracer) Start(ctx context.Context, operation string) (context.Context, TraceSpan) {
	return ctx, &captureSpan{tracer: t, operation: operation}
}

type captureSpan struct {
	tracer    *captureTracer
	operation string
}

func (s *captureSpan) End(err error) {
	s.tracer.mu.Lock()
	defer s.tracer.mu.Unlock()
	s.tracer.spans = append(s.tracer.spans, capturedSpan{operation: s.operation, err: err})
}

func TestServiceInstrumentationRecordsOutcomes(t *testing.T) {
	ctx := context.Background()
	rec := &captureRecorder{}
	tracer := &captureTracer{}
	svc := NewInMemoryService(nil,
		WithNowFunc(func() time.Time { return testClock }),
		WithMetricsRecorder(rec),
		WithTracer(tracer),
	)

	if _, err := svc.RegisterUser(ctx, User{Name: "D", Email: "obs@example.com", PasswordHash: "h", Role: RoleDonor}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := svc.RegisterUser(ctx, User{Name: "D", Email: "obs@example.com", PasswordHash: "h", Role: RoleDonor}); err == nil {
		t.Fatalf("expected duplicate email error")
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.observations) != 2 {
		t.Fatalf("expected two observations, got %d", len(rec.observations))
	}
	if rec.observations[0].operation != "register_user" || !rec.observations[0].success {
		t.Fatalf("unexpected first observation %+v", rec.observations[0])
	}
	if rec.observations[1].success {
		t.Fatalf("second observation should record failure")
	}

	tracer.mu.Lock()
	defer tracer.mu.Unlock()
	if len(tracer.spans) != 2 {
		t.Fatalf("expected two spans, got %d", len(tracer.spans))
	}
	if tracer.spans[0].operation != "register_user" || tracer.spans[0].err != nil {
		t.Fatalf("unexpected first span %+v", tracer.spans[0])
	}
	if tracer.spans[1].err == nil {
		t.Fatalf("second span should carry the error")
	}
}

func TestExpvarMetricsRecorder(t *testing.T) {
	rec := NewExpvarMetricsRecorder("")
	if rec.Name() == "" || !strings.HasPrefix(rec.Name(), "hemocore_service_metrics_") {
		t.Fatalf("unexpected generated name %q", rec.Name())
	}
	ctx := context.Background()
	rec.Observe(ctx, "resolve_request", true, 20*time.Millisecond)
	rec.Observe(ctx, "resolve_request", false, 5*time.Millisecond)
	rec.Observe(ctx, "", true, time.Second)

	snap := rec.Snapshot()
	stats := snap.Operations["resolve_request"]
	if stats.TotalMS != 25 {
		t.Fatalf("unexpected duration total %v", stats.TotalMS)
	}
	if stats.Success != 1 || stats.Error != 1 {
		t.Fatalf("unexpected result counters %+v", stats)
	}
	if _, ok := snap.Operations[""]; ok {
		t.Fatalf("empty operation must be ignored")
	}
}

func TestJSONTracerEmitsEntries(t *testing.T) {
	var buf bytes.Buffer
	tracer := NewJSONTracer(&buf)
	ctx := context.Background()

	_, span := tracer.Start(ctx, "resolve_request")
	span.End(nil)
	_, span = tracer.Start(ctx, "resolve_request")
	span.End(domain.RuleViolationError{})

	entries := tracer.Entries()
	if len(entries) != 2 {
		t.Fatalf("expected two entries, got %d", len(entries))
	}
	if entries[0].Status != "success" || entries[1].Status != "error" {
		t.Fatalf("unexpected statuses %+v", entries)
	}

	dec := json.NewDecoder(&buf)
	for i := 0; i < 2; i++ {
		var entry JSONTraceEntry
		if err := dec.Decode(&entry); err != nil {
			t.Fatalf("decode line %d: %v", i, err)
		}
		if entry.Operation != "resolve_request" {
			t.Fatalf("unexpected operation %q", entry.Operation)
		}
	}
}

func TestPrometheusMetricsRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec, err := NewPrometheusMetricsRecorder(reg)
	if err != nil {
		t.Fatalf("new recorder: %v", err)
	}
	ctx := context.Background()
	rec.Observe(ctx, "resolve_request", true, 15*time.Millisecond)
	rec.Observe(ctx, "resolve_request", false, 5*time.Millisecond)
	rec.Observe(ctx, "", true, time.Second)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	found := map[string]bool{}
	for _, mf := range families {
		found[mf.GetName()] = true
		if mf.GetName() == "hemocore_service_operation_results_total" {
			var total float64
			for _, m := range mf.GetMetric() {
				total += m.GetCounter().GetValue()
			}
			if total != 2 {
				t.Fatalf("expected two results, got %v", total)
			}
		}
	}
	if !found["hemocore_service_operation_duration_seconds"] || !found["hemocore_service_operation_results_total"] {
		t.Fatalf("missing metric families %v", found)
	}

	if _, err := NewPrometheusMetricsRecorder(reg); err == nil {
		t.Fatalf("expected duplicate registration error")
	}
}

func TestOpenPersistentStoreMemoryDriver(t *testing.T) {
	t.Setenv("HEMOCORE_STORAGE_DRIVER", string(StorageMemory))
	store, err := OpenPersistentStore(DefaultRulesEngine())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if store == nil {
		t.Fatalf("expected store")
	}
}

func TestOpenPersistentStoreSQLiteDefault(t *testing.T) {
	t.Setenv("HEMOCORE_STORAGE_DRIVER", "")
	t.Setenv("HEMOCORE_SQLITE_PATH", t.TempDir()+"/hemocore.db")
	store, err := OpenPersistentStore(DefaultRulesEngine())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if store == nil {
		t.Fatalf("expected store")
	}
}

func TestOpenPersistentStoreRejectsUnknownDriver(t *testing.T) {
	t.Setenv("HEMOCORE_STORAGE_DRIVER", "etcd")
	if _, err := OpenPersistentStore(DefaultRulesEngine()); err == nil {
		t.Fatalf("expected unknown driver error")
	}
}
