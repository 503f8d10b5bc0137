// Package reports renders analytics snapshots into archived artifacts stored
// in the blob backend.
package reports

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"hemocore/internal/core"
	blobcore "hemocore/internal/infra/blob/core"
)

// Kind identifies one archivable report.
type Kind string

const (
	KindAvailability   Kind = "availability"
	KindDonationTrends Kind = "donation_trends"
	KindRequestStats   Kind = "request_stats"
	KindDashboard      Kind = "dashboard"
	KindInventory      Kind = "inventory"
)

// Format selects an artifact encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

// Status describes the lifecycle stage of an archive request.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Artifact captures one stored report file.
type Artifact struct {
	Key         string    `json:"key"`
	Kind        Kind      `json:"kind"`
	Format      Format    `json:"format"`
	ContentType string    `json:"content_type"`
	SizeBytes   int64     `json:"size_bytes"`
	URL         string    `json:"url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Record tracks an archive request and its resulting artifacts.
type Record struct {
	ID          string     `json:"id"`
	Kinds       []Kind     `json:"kinds"`
	Formats     []Format   `json:"formats"`
	Status      Status     `json:"status"`
	Error       string     `json:"error,omitempty"`
	Artifacts   []Artifact `json:"artifacts,omitempty"`
	RequestedBy string     `json:"requested_by,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Input represents an enqueue request for the exporter.
type Input struct {
	Kinds       []Kind
	Formats     []Format
	RequestedBy string
}

// Exporter renders report snapshots asynchronously and stores the artifacts.
type Exporter struct {
	svc   *core.Service
	store blobcore.Store
	log   logrus.FieldLogger
	now   func() time.Time

	queue chan task
	mu    sync.RWMutex
	jobs  map[string]*Record

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type task struct {
	id    string
	input Input
}

// NewExporter constructs an exporter writing artifacts through the blob store.
func NewExporter(svc *core.Service, store blobcore.Store, log logrus.FieldLogger) *Exporter {
	if log == nil {
		log = logrus.StandardLogger()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Exporter{
		svc:    svc,
		store:  store,
		log:    log.WithField("component", "reports"),
		now:    time.Now,
		queue:  make(chan task, 16),
		jobs:   make(map[string]*Record),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start begins processing archive requests.
func (e *Exporter) Start() {
	e.wg.Add(1)
	go e.loop()
}

// Stop signals the exporter to halt and waits for completion.
func (e *Exporter) Stop(ctx context.Context) error {
	e.cancel()
	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Exporter) loop() {
	defer e.wg.Done()
	for {
		select {
		case <-e.ctx.Done():
			return
		case t := <-e.queue:
			e.process(t)
		}
	}
}

// AllKinds lists every archivable report kind.
func AllKinds() []Kind {
	return []Kind{KindAvailability, KindDonationTrends, KindRequestStats, KindDashboard, KindInventory}
}

func validKind(k Kind) bool {
	switch k {
	case KindAvailability, KindDonationTrends, KindRequestStats, KindDashboard, KindInventory:
		return true
	}
	return false
}

// EnqueueArchive schedules an archive job and returns the queued record.
// Empty kinds archive every report; empty formats render both JSON and CSV.
func (e *Exporter) EnqueueArchive(_ context.Context, input Input) (Record, error) {
	kinds := input.Kinds
	if len(kinds) == 0 {
		kinds = AllKinds()
	}
	seen := make(map[Kind]struct{}, len(kinds))
	uniq := make([]Kind, 0, len(kinds))
	for _, k := range kinds {
		if !validKind(k) {
			return Record{}, fmt.Errorf("unknown report kind %s", k)
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		uniq = append(uniq, k)
	}

	formats := input.Formats
	if len(formats) == 0 {
		formats = []Format{FormatJSON, FormatCSV}
	}
	for _, f := range formats {
		if f != FormatJSON && f != FormatCSV {
			return Record{}, fmt.Errorf("unknown report format %s", f)
		}
	}

	now := e.now().UTC()
	record := Record{
		ID:          uuid.NewString(),
		Kinds:       uniq,
		Formats:     formats,
		Status:      StatusQueued,
		RequestedBy: input.RequestedBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	e.mu.Lock()
	e.jobs[record.ID] = &record
	snapshot := record.copy()
	e.mu.Unlock()

	select {
	case e.queue <- task{id: record.ID, input: input}:
	default:
		e.fail(record.ID, "archive queue full")
		return Record{}, fmt.Errorf("archive queue full")
	}
	return snapshot, nil
}

// GetArchive returns a snapshot of the archive record.
func (e *Exporter) GetArchive(id string) (Record, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	record, ok := e.jobs[id]
	if !ok {
		return Record{}, false
	}
	return record.copy(), true
}

// ListArtifacts returns stored artifacts under the report prefix, optionally
// narrowed to one kind.
func (e *Exporter) ListArtifacts(ctx context.Context, kind Kind) ([]blobcore.Info, error) {
	prefix := "reports/"
	if kind != "" {
		if !validKind(kind) {
			return nil, fmt.Errorf("unknown report kind %s", kind)
		}
		prefix += string(kind) + "/"
	}
	return e.store.List(ctx, prefix)
}

func (e *Exporter) process(t task) {
	e.mu.RLock()
	record, ok := e.jobs[t.id]
	e.mu.RUnlock()
	if !ok {
		return
	}
	e.setStatus(t.id, StatusRunning, "")

	stamp := e.now().UTC().Format("20060102T150405")
	artifacts := make([]Artifact, 0, len(record.Kinds)*len(record.Formats))
	for _, kind := range record.Kinds {
		table, err := e.render(e.ctx, kind)
		if err != nil {
			e.fail(t.id, fmt.Sprintf("render %s: %v", kind, err))
			return
		}
		for _, format := range record.Formats {
			payload, contentType, err := encode(table, format)
			if err != nil {
				e.fail(t.id, fmt.Sprintf("encode %s as %s: %v", kind, format, err))
				return
			}
			key := fmt.Sprintf("reports/%s/%s-%s.%s", kind, stamp, t.id[:8], format)
			info, err := e.store.Put(e.ctx, key, bytes.NewReader(payload), blobcore.PutOptions{
				ContentType: contentType,
				Metadata:    map[string]string{"kind": string(kind), "job": t.id},
			})
			if err != nil {
				e.fail(t.id, fmt.Sprintf("store %s: %v", key, err))
				return
			}
			artifacts = append(artifacts, Artifact{
				Key:         info.Key,
				Kind:        kind,
				Format:      format,
				ContentType: contentType,
				SizeBytes:   info.Size,
				URL:         info.URL,
				CreatedAt:   info.LastModified,
			})
		}
	}
	e.complete(t.id, artifacts)
	e.log.WithFields(logrus.Fields{"job": t.id, "artifacts": len(artifacts)}).Info("report archive completed")
}

// table is a rendered report: ordered columns plus rows keyed by column name.
type table struct {
	Kind    Kind             `json:"kind"`
	Columns []string         `json:"columns"`
	Rows    []map[string]any `json:"rows"`
}

func (e *Exporter) render(ctx context.Context, kind Kind) (table, error) {
	switch kind {
	case KindAvailability:
		report, err := e.svc.Availability(ctx, "")
		if err != nil {
			return table{}, err
		}
		out := table{Kind: kind, Columns: []string{"blood_group", "units", "organizations"}}
		for _, g := range report {
			out.Rows = append(out.Rows, map[string]any{
				"blood_group":   string(g.BloodGroup),
				"units":         g.Units,
				"organizations": g.Organizations,
			})
		}
		return out, nil
	case KindDonationTrends:
		trends, err := e.svc.DonationTrends(ctx)
		if err != nil {
			return table{}, err
		}
		out := table{Kind: kind, Columns: []string{"month", "units", "count"}}
		for _, b := range trends {
			out.Rows = append(out.Rows, map[string]any{"month": b.Month, "units": b.Units, "count": b.Count})
		}
		return out, nil
	case KindRequestStats:
		stats, err := e.svc.RequestStats(ctx)
		if err != nil {
			return table{}, err
		}
		statuses := make([]string, 0, len(stats))
		for s := range stats {
			statuses = append(statuses, string(s))
		}
		sort.Strings(statuses)
		out := table{Kind: kind, Columns: []string{"status", "count"}}
		for _, s := range statuses {
			out.Rows = append(out.Rows, map[string]any{"status": s, "count": stats[core.RequestStatus(s)]})
		}
		return out, nil
	case KindDashboard:
		counts, err := e.svc.Dashboard(ctx)
		if err != nil {
			return table{}, err
		}
		return table{
			Kind:    kind,
			Columns: []string{"metric", "value"},
			Rows: []map[string]any{
				{"metric": "donors", "value": counts.Donors},
				{"metric": "hospitals", "value": counts.Hospitals},
				{"metric": "organizations", "value": counts.Organizations},
				{"metric": "pending_organizations", "value": counts.PendingOrganizations},
				{"metric": "requests", "value": counts.Requests},
				{"metric": "pending_requests", "value": counts.PendingRequests},
				{"metric": "available_units", "value": counts.AvailableUnits},
				{"metric": "ledger_entries", "value": counts.LedgerEntries},
				{"metric": "camps", "value": counts.Camps},
			},
		}, nil
	case KindInventory:
		lots, err := e.svc.DetailedInventory(ctx)
		if err != nil {
			return table{}, err
		}
		out := table{Kind: kind, Columns: []string{"lot_id", "organization_id", "blood_group", "units", "expires_at"}}
		for _, lot := range lots {
			out.Rows = append(out.Rows, map[string]any{
				"lot_id":          lot.ID,
				"organization_id": lot.OrganizationID,
				"blood_group":     string(lot.BloodGroup),
				"units":           lot.Units,
				"expires_at":      lot.ExpiresAt.UTC().Format(time.RFC3339),
			})
		}
		return out, nil
	default:
		return table{}, fmt.Errorf("unknown report kind %s", kind)
	}
}

func encode(t table, format Format) ([]byte, string, error) {
	switch format {
	case FormatJSON:
		payload, err := json.Marshal(t)
		if err != nil {
			return nil, "", err
		}
		return payload, "application/json", nil
	case FormatCSV:
		buf := &bytes.Buffer{}
		w := csv.NewWriter(buf)
		if err := w.Write(t.Columns); err != nil {
			return nil, "", err
		}
		for _, row := range t.Rows {
			record := make([]string, len(t.Columns))
			for i, col := range t.Columns {
				record[i] = formatValue(row[col])
			}
			if err := w.Write(record); err != nil {
				return nil, "", err
			}
		}
		w.Flush()
		if err := w.Error(); err != nil {
			return nil, "", err
		}
		return buf.Bytes(), "text/csv", nil
	default:
		return nil, "", fmt.Errorf("unsupported format %s", format)
	}
}

func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case fmt.Stringer:
		return val.String()
	default:
		return strings.TrimSpace(fmt.Sprintf("%v", val))
	}
}

func (e *Exporter) setStatus(id string, status Status, message string) {
	now := e.now().UTC()
	e.mu.Lock()
	if record, ok := e.jobs[id]; ok {
		record.Status = status
		record.Error = message
		record.UpdatedAt = now
	}
	e.mu.Unlock()
}

func (e *Exporter) complete(id string, artifacts []Artifact) {
	now := e.now().UTC()
	e.mu.Lock()
	if record, ok := e.jobs[id]; ok {
		record.Status = StatusSucceeded
		record.Error = ""
		record.Artifacts = artifacts
		record.UpdatedAt = now
		record.CompletedAt = &now
	}
	e.mu.Unlock()
}

func (e *Exporter) fail(id, reason string) {
	now := e.now().UTC()
	e.mu.Lock()
	if record, ok := e.jobs[id]; ok {
		record.Status = StatusFailed
		record.Error = reason
		record.UpdatedAt = now
		record.CompletedAt = &now
	}
	e.mu.Unlock()
	e.log.WithFields(logrus.Fields{"job": id, "error": reason}).Warn("report archive failed")
}

func (r Record) copy() Record {
	dup := r
	dup.Kinds = append([]Kind(nil), r.Kinds...)
	dup.Formats = append([]Format(nil), r.Formats...)
	if len(r.Artifacts) > 0 {
		dup.Artifacts = append([]Artifact(nil), r.Artifacts...)
	}
	return dup
}
