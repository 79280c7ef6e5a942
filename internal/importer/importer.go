// Package importer orchestrates one import run: payload validation,
// file staging, record-graph construction, draft updates and the final
// all-or-nothing publish.
package importer

import (
	"context"
	"errors"
	"fmt"
	"time"

	domerrors "github.com/oergraz/moodle-lom-go/internal/errors"
	"github.com/oergraz/moodle-lom-go/internal/filecache"
	"github.com/oergraz/moodle-lom-go/internal/graph"
	"github.com/oergraz/moodle-lom-go/internal/logger"
	"github.com/oergraz/moodle-lom-go/internal/metrics"
	"github.com/oergraz/moodle-lom-go/internal/moodle"
	"github.com/oergraz/moodle-lom-go/internal/repository"
)

// Report summarizes one import run.
type Report struct {
	Created   int
	Edited    int
	Published int
	Skipped   int
	Failed    int

	// FailedPIDs lists the moodle pid values of records that were left
	// out of the run because of per-record errors.
	FailedPIDs []string
}

// Importer drives one import run end to end.
type Importer struct {
	repo    *repository.Service
	cache   *filecache.Cache
	log     *logger.Logger
	metrics *metrics.Metrics
}

// New creates an Importer. The metrics recorder may be nil.
func New(repo *repository.Service, cache *filecache.Cache, log *logger.Logger, m *metrics.Metrics) *Importer {
	return &Importer{
		repo:    repo,
		cache:   cache,
		log:     log.WithModule("importer"),
		metrics: m,
	}
}

// Run imports one export payload. provided maps URLs to local file
// paths that substitute for downloading. A per-record failure excludes
// that record from the run and is reported, not fatal; payload
// validation errors, download errors and publish errors abort the whole
// run. Nothing is published unless every pending record publishes.
func (i *Importer) Run(ctx context.Context, payload map[string]any, provided map[string]string) (*Report, error) {
	start := time.Now()
	report, err := i.run(ctx, payload, provided)
	i.observeRun(err, time.Since(start))
	return report, err
}

func (i *Importer) run(ctx context.Context, payload map[string]any, provided map[string]string) (*Report, error) {
	if err := moodle.ValidatePayload(payload); err != nil {
		return nil, domerrors.NewWrapper("importer", "validate").Wrap(err, "payload rejected")
	}

	elements, err := moodle.ExtractElements(payload)
	if err != nil {
		return nil, err
	}
	moodle.PostProcess(elements)
	i.log.Infof("payload accepted with %d elements", len(elements))

	for url, path := range provided {
		if err := i.cache.Provide(url, path); err != nil {
			return nil, err
		}
	}

	// Elements without a supplied content hash must be downloaded up
	// front so their file keys can be derived.
	stage := domerrors.NewWrapper("importer", "stage_files")
	for _, element := range elements {
		if element.IsLink() || element.ContentHash() != "" {
			continue
		}
		if _, err := i.cache.Fetch(ctx, element.URL()); err != nil {
			return nil, stage.Wrapf(err, "download failed for %s", element.URL())
		}
	}

	builder := graph.NewBuilder(i.repo, i.repo, i.cache, i.log)
	if err := builder.Build(ctx, elements); err != nil {
		return nil, err
	}
	if err := builder.Link(ctx); err != nil {
		return nil, err
	}

	report := &Report{}
	failed := make(map[string]bool)
	fail := func(pid string, err error) {
		i.log.WithRecord(pid).WithError(err).Errorf("record excluded from run")
		if i.metrics != nil {
			i.metrics.RecordErrorsTotal.Inc()
		}
		failed[pid] = true
		report.Failed++
		report.FailedPIDs = append(report.FailedPIDs, pid)
	}

	if err := i.attachFiles(ctx, builder.Entries(), failed, fail); err != nil {
		return nil, err
	}
	if err := i.updateDrafts(ctx, builder.Records(), report, failed, fail); err != nil {
		return nil, err
	}
	if err := i.publish(ctx, builder.Records(), report, failed); err != nil {
		return nil, err
	}

	i.log.WithFields(map[string]any{
		"created":   report.Created,
		"edited":    report.Edited,
		"published": report.Published,
		"skipped":   report.Skipped,
		"failed":    report.Failed,
	}).Infof("import run finished")
	return report, nil
}

// attachFiles stages the downloaded content of every new file record. A
// record already carrying its file is left alone; more than one
// pre-existing file violates the single-file model and aborts the run.
func (i *Importer) attachFiles(ctx context.Context, entries []graph.Entry, failed map[string]bool, fail func(string, error)) error {
	for _, entry := range entries {
		record := entry.Record
		if record.Key.ResourceType() != graph.ResourceFile {
			continue
		}
		pid := record.PID()
		if failed[pid] {
			continue
		}

		files, err := i.repo.ListFiles(ctx, pid)
		if err != nil {
			fail(pid, err)
			continue
		}
		if len(files) > 1 {
			return domerrors.NewConsistencyError(pid, fmt.Sprintf("record carries %d files, expected at most one", len(files)))
		}
		if len(files) == 1 {
			continue
		}

		info, err := i.cache.Fetch(ctx, entry.Element.URL())
		if err != nil {
			return err
		}
		if err := i.repo.AttachFile(ctx, pid, info.Filename(), info.Path); err != nil {
			fail(pid, err)
			continue
		}
		record.Document.SetDefaultPreview(info.Filename())
	}
	return nil
}

// updateDrafts writes the converted document of every dirty record back
// as its pending draft.
func (i *Importer) updateDrafts(ctx context.Context, records []*graph.Record, report *Report, failed map[string]bool, fail func(string, error)) error {
	for _, record := range records {
		pid := record.PID()
		if failed[pid] {
			continue
		}

		if i.metrics != nil {
			i.metrics.RecordsTotal.WithLabelValues(string(record.Key.ResourceType()), string(record.Status)).Inc()
		}
		switch record.Status {
		case graph.StatusNew:
			report.Created++
		case graph.StatusEdit:
			if record.Dirty() {
				report.Edited++
			}
		}

		if !record.Dirty() {
			continue
		}

		if record.Status == graph.StatusEdit {
			if err := i.repo.Edit(ctx, pid); err != nil {
				fail(pid, err)
				continue
			}
		}
		if err := i.repo.UpdateDraft(ctx, pid, record.Document); err != nil {
			fail(pid, err)
		}
	}
	return nil
}

// publish publishes every record with a pending draft inside one unit
// of work. Any failure rolls the whole batch back.
func (i *Importer) publish(ctx context.Context, records []*graph.Record, report *Report, failed map[string]bool) error {
	var pending []string
	queued := make(map[string]bool)
	for _, record := range records {
		pid := record.PID()
		if failed[pid] || queued[pid] {
			continue
		}
		queued[pid] = true
		hasDraft, err := i.repo.HasDraft(ctx, pid)
		if err != nil {
			return err
		}
		if !hasDraft {
			report.Skipped++
			continue
		}
		pending = append(pending, pid)
	}
	if len(pending) == 0 {
		return nil
	}

	uow, err := i.repo.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = uow.Rollback() }()

	wrap := domerrors.NewWrapper("importer", "publish")
	for _, pid := range pending {
		if err := i.repo.Publish(ctx, pid, uow); err != nil {
			return wrap.Wrapf(err, "publish failed for %s, rolling back batch", pid)
		}
	}
	if err := uow.Commit(); err != nil {
		return err
	}

	report.Published = len(pending)
	if i.metrics != nil {
		i.metrics.PublishedTotal.Add(float64(len(pending)))
	}
	return nil
}

func (i *Importer) observeRun(err error, elapsed time.Duration) {
	if i.metrics == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
		var validationErr *domerrors.ValidationError
		if errors.As(err, &validationErr) {
			outcome = "validation_error"
		}
	}
	i.metrics.ImportRunsTotal.WithLabelValues(outcome).Inc()
	i.metrics.ImportRunDuration.Observe(elapsed.Seconds())
}
