package imports

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"path/filepath"
	"time"

	"github.com/JaimeStill/tally/internal/metrics"
	"github.com/JaimeStill/tally/internal/profiles"
	"github.com/JaimeStill/tally/internal/sessions"
	"github.com/JaimeStill/tally/pkg/dedupe"
	"github.com/JaimeStill/tally/pkg/mapping"
	"github.com/JaimeStill/tally/pkg/schema"
	"github.com/JaimeStill/tally/pkg/storage"
	"github.com/JaimeStill/tally/pkg/tabular"
)

type pipeline struct {
	store     Store
	blobs     storage.System
	assistant mapping.Assistant
	cfg       Config
	metrics   *metrics.Registry
	logger    *slog.Logger
}

// New creates the import pipeline. blobs and m may be nil; a nil assistant
// falls back to mapping.NoopAssistant.
func New(
	store Store,
	blobs storage.System,
	assistant mapping.Assistant,
	cfg Config,
	m *metrics.Registry,
	logger *slog.Logger,
) System {
	if assistant == nil {
		assistant = mapping.NoopAssistant{}
	}
	return &pipeline{
		store:     store,
		blobs:     blobs,
		assistant: assistant,
		cfg:       cfg,
		metrics:   m,
		logger:    logger.With("system", "imports"),
	}
}

func (p *pipeline) Handler(maxUploadSize int64) *Handler {
	return NewHandler(p, p.logger, maxUploadSize)
}

func (p *pipeline) Inspect(ctx context.Context, cmd InspectCommand) (*InspectResult, error) {
	start := time.Now()

	entity, err := p.entity(cmd.Entity)
	if err != nil {
		return nil, err
	}
	if len(cmd.Data) == 0 {
		return nil, tabular.ErrNoFile
	}

	sheet, err := tabular.Parse(cmd.Data, cmd.Filename, cmd.Sheet)
	if err != nil {
		p.observe(entity, "inspect", "rejected", start)
		return nil, err
	}

	hash := tabular.Hash(cmd.Data)
	storageKey := p.retain(ctx, entity, hash, cmd)

	fields, err := p.fields(ctx, entity, sheet)
	if err != nil {
		p.observe(entity, "inspect", "error", start)
		return nil, err
	}

	opts := mapping.Options{
		SampleRows: p.cfg.SampleRows,
		Threshold:  p.cfg.AutoMapThreshold,
		MinSupport: p.cfg.MinSupport,
	}
	proposals := mapping.Propose(sheet.Headers, sheet.Rows, fields.list, opts)

	if pending := mapping.Pending(proposals); len(pending) > 0 {
		req := mapping.NewAssistRequest(entity, fields.list, pending, sheet.Rows, p.cfg.AssistSamples)
		suggestions := p.assistant.Suggest(ctx, req)
		proposals = mapping.Merge(proposals, suggestions, fields.list, p.cfg.AutoMapThreshold)
	}

	existing, err := p.store.RecentRecords(ctx, entity, p.cfg.CandidateLimit)
	if err != nil {
		p.observe(entity, "inspect", "error", start)
		return nil, fmt.Errorf("load existing records: %w", err)
	}

	candidates := make([]dedupe.Candidate, len(existing))
	for i, r := range existing {
		candidates[i] = dedupe.Candidate{ID: r.ID.String(), Doc: r.Data}
	}

	report, err := dedupe.Build(ctx, sheet.Rows, sheet.Headers, candidates, dedupe.Options{
		Threshold: p.cfg.AutoInsertThreshold,
		Workers:   p.cfg.Workers,
	})
	if err != nil {
		p.observe(entity, "inspect", "error", start)
		return nil, fmt.Errorf("score duplicates: %w", err)
	}

	autoMapped := 0
	for _, pr := range proposals {
		if pr.AutoMapped {
			autoMapped++
		}
	}

	sess, err := p.store.SaveDryRun(ctx, sessions.DryRunCommand{
		Entity:     entity,
		FileHash:   hash,
		Filename:   cmd.Filename,
		StorageKey: storageKey,
		Stats: sessions.Stats{
			Rows:           len(sheet.Rows),
			SchemaStatus:   string(fields.status),
			AutoMapped:     autoMapped,
			PendingHeaders: len(proposals) - autoMapped,
			AutoInsert:     len(report.AutoInsert),
			Review:         len(report.Review),
		},
	})
	if err != nil {
		p.observe(entity, "inspect", "error", start)
		return nil, fmt.Errorf("record dry run: %w", err)
	}

	result := &InspectResult{
		ImportID:         sess.ID,
		FileHash:         hash,
		Sheet:            sheet.Name,
		Headers:          sheet.Headers,
		RowCount:         len(sheet.Rows),
		SchemaStatus:     fields.status,
		ProfileVersion:   fields.version,
		Committed:        sess.Committed(),
		Mapping:          proposals,
		SuggestedMapping: mapping.Confirmed(proposals),
		Duplicates: DuplicatePreview{
			AutoInsert:      report.AutoInsert[:min(len(report.AutoInsert), p.cfg.PreviewAutoInsert)],
			Review:          report.Review[:min(len(report.Review), p.cfg.PreviewReview)],
			AutoInsertTotal: len(report.AutoInsert),
			ReviewTotal:     len(report.Review),
		},
	}

	p.observe(entity, "inspect", "ok", start)
	p.count(entity, autoMapped, len(proposals)-autoMapped, report)

	p.logger.Info(
		"import inspected",
		"import_id", sess.ID,
		"entity", entity,
		"file_hash", hash,
		"sheet", sheet.Name,
		"rows", len(sheet.Rows),
		"schema_status", fields.status,
		"auto_mapped", autoMapped,
		"review", len(report.Review),
	)
	return result, nil
}

func (p *pipeline) Commit(ctx context.Context, cmd CommitCommand) (*CommitResult, error) {
	start := time.Now()

	entity, err := p.entity(cmd.Entity)
	if err != nil {
		return nil, err
	}

	file, err := p.resolveFile(ctx, entity, cmd)
	if err != nil {
		p.observe(entity, "commit", "rejected", start)
		return nil, err
	}

	sheet, err := tabular.Parse(file.data, file.filename, cmd.Sheet)
	if err != nil {
		p.observe(entity, "commit", "rejected", start)
		return nil, err
	}

	if err := validateMapping(cmd.Mapping, sheet.Headers); err != nil {
		p.observe(entity, "commit", "rejected", start)
		return nil, err
	}

	skips, err := skipSet(cmd.DupDecisions, len(sheet.Rows))
	if err != nil {
		p.observe(entity, "commit", "rejected", start)
		return nil, err
	}

	snapshot, err := cmd.snapshot()
	if err != nil {
		return nil, fmt.Errorf("encode decisions: %w", err)
	}

	var (
		result  = CommitResult{OK: true, Total: len(sheet.Rows)}
		created int
	)

	err = p.store.WithTx(ctx, func(tx Tx) error {
		result = CommitResult{OK: true, Total: len(sheet.Rows)}
		created = 0

		if err := tx.Lock(ctx, entity, file.hash); err != nil {
			return err
		}

		prior, err := tx.Session(ctx, entity, file.hash)
		switch {
		case err == nil && prior.Committed():
			return ErrAlreadyCommitted
		case err != nil && !errors.Is(err, sessions.ErrNotFound):
			return fmt.Errorf("load session: %w", err)
		}

		if cmd.AdoptAsStandard {
			adopted, err := tx.Adopt(ctx, entity, mapping.AdoptedFields(cmd.Mapping, sheet.Headers))
			if err != nil {
				return fmt.Errorf("adopt profile: %w", err)
			}
			result.ProfileVersion = adopted.Version
		}

		for i, row := range sheet.Rows {
			if skips[i] {
				result.Skipped++
				continue
			}

			doc := mapping.Apply(row, sheet.Headers, cmd.Mapping)
			if len(doc) == 0 {
				result.Skipped++
				continue
			}

			inserted, err := tx.Upsert(ctx, entity, doc)
			if err != nil {
				return fmt.Errorf("upsert row %d: %w", i, err)
			}
			if inserted {
				created++
			}
			result.Inserted++
		}

		sess, err := tx.MarkCommitted(ctx, sessions.CommitCommand{
			Entity:     entity,
			FileHash:   file.hash,
			Filename:   file.filename,
			StorageKey: file.storageKey,
			Decisions:  snapshot,
			Stats: sessions.Stats{
				Rows:     len(sheet.Rows),
				Inserted: result.Inserted,
				Skipped:  result.Skipped,
				Total:    result.Total,
			},
		})
		if err != nil {
			return err
		}

		result.ImportID = sess.ID
		return nil
	})
	if err != nil {
		outcome := "error"
		if errors.Is(err, ErrAlreadyCommitted) {
			outcome = "conflict"
		}
		p.observe(entity, "commit", outcome, start)
		return nil, err
	}

	p.observe(entity, "commit", "ok", start)
	if p.metrics != nil {
		p.metrics.RowsTotal.WithLabelValues(entity, "inserted").Add(float64(created))
		p.metrics.RowsTotal.WithLabelValues(entity, "updated").Add(float64(result.Inserted - created))
		p.metrics.RowsTotal.WithLabelValues(entity, "skipped").Add(float64(result.Skipped))
		if cmd.AdoptAsStandard {
			p.metrics.ProfilesAdopted.WithLabelValues(entity).Inc()
		}
	}

	p.logger.Info(
		"import committed",
		"import_id", result.ImportID,
		"entity", entity,
		"file_hash", file.hash,
		"inserted", result.Inserted,
		"created", created,
		"skipped", result.Skipped,
		"adopted_version", result.ProfileVersion,
	)
	return &result, nil
}

func (p *pipeline) entity(name string) (string, error) {
	entity := normalizeEntity(name)
	if entity == "" || !p.cfg.Allows(entity) {
		return "", fmt.Errorf("%w: %q", ErrUnknownEntity, name)
	}
	return entity, nil
}

type fieldSet struct {
	list    []schema.Field
	status  SchemaStatus
	version int
}

// fields returns the active profile's fields, or a transient set inferred
// from the sheet when the entity has no profile yet.
func (p *pipeline) fields(ctx context.Context, entity string, sheet *tabular.Sheet) (fieldSet, error) {
	profile, err := p.store.ActiveProfile(ctx, entity)
	if errors.Is(err, profiles.ErrNotFound) {
		return fieldSet{
			list:   schema.InferFields(sheet.Headers, sheet.Rows, p.cfg.ColdStartRows),
			status: ColdStartWillLearn,
		}, nil
	}
	if err != nil {
		return fieldSet{}, fmt.Errorf("load active profile: %w", err)
	}
	return fieldSet{
		list:    profile.Fields,
		status:  UsingExistingStandard,
		version: profile.Version,
	}, nil
}

// retain stores the raw upload so a later commit can reference it by
// import id. Storage trouble never fails the inspection.
func (p *pipeline) retain(ctx context.Context, entity, hash string, cmd InspectCommand) string {
	if p.blobs == nil {
		return ""
	}

	key := storageKey(entity, hash, cmd.Filename)

	exists, err := p.blobs.Exists(ctx, key)
	if err != nil {
		p.logger.Warn("import file lookup failed", "key", key, "error", err)
		return ""
	}
	if exists {
		return key
	}

	contentType := cmd.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	if err := p.blobs.Upload(ctx, key, bytes.NewReader(cmd.Data), contentType); err != nil {
		p.logger.Warn("import file not retained", "key", key, "error", err)
		return ""
	}
	return key
}

type commitFile struct {
	data       []byte
	hash       string
	filename   string
	storageKey string
}

// resolveFile settles which bytes a commit applies. An uploaded file wins;
// with an import id it must hash to the inspected file. Without an upload
// the retained copy is downloaded and verified.
func (p *pipeline) resolveFile(ctx context.Context, entity string, cmd CommitCommand) (commitFile, error) {
	if cmd.ImportID == nil {
		if len(cmd.Data) == 0 {
			return commitFile{}, tabular.ErrNoFile
		}
		return commitFile{
			data:     cmd.Data,
			hash:     tabular.Hash(cmd.Data),
			filename: cmd.Filename,
		}, nil
	}

	sess, err := p.store.Session(ctx, *cmd.ImportID)
	if errors.Is(err, sessions.ErrNotFound) || (err == nil && sess.Entity != entity) {
		return commitFile{}, ErrSessionNotFound
	}
	if err != nil {
		return commitFile{}, fmt.Errorf("load session: %w", err)
	}

	file := commitFile{
		hash:       sess.FileHash,
		filename:   sess.Filename,
		storageKey: sess.StorageKey,
	}

	if len(cmd.Data) > 0 {
		if tabular.Hash(cmd.Data) != sess.FileHash {
			return commitFile{}, ErrHashMismatch
		}
		file.data = cmd.Data
		if cmd.Filename != "" {
			file.filename = cmd.Filename
		}
		return file, nil
	}

	if sess.StorageKey == "" || p.blobs == nil {
		return commitFile{}, ErrFileRequired
	}

	data, err := p.download(ctx, sess.StorageKey)
	if errors.Is(err, storage.ErrNotFound) {
		return commitFile{}, ErrFileRequired
	}
	if err != nil {
		return commitFile{}, fmt.Errorf("download import file: %w", err)
	}
	if tabular.Hash(data) != sess.FileHash {
		return commitFile{}, ErrHashMismatch
	}

	file.data = data
	return file, nil
}

func (p *pipeline) download(ctx context.Context, key string) ([]byte, error) {
	rc, err := p.blobs.Download(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func (p *pipeline) observe(entity, phase, outcome string, start time.Time) {
	if p.metrics == nil {
		return
	}
	p.metrics.ImportsTotal.WithLabelValues(entity, phase, outcome).Inc()
	p.metrics.ImportDuration.WithLabelValues(phase).Observe(time.Since(start).Seconds())
}

func (p *pipeline) count(entity string, autoMapped, pending int, report dedupe.Report) {
	if p.metrics == nil {
		return
	}
	p.metrics.MappingDecisions.WithLabelValues(entity, "auto").Add(float64(autoMapped))
	p.metrics.MappingDecisions.WithLabelValues(entity, "pending").Add(float64(pending))
	p.metrics.DuplicateRows.WithLabelValues(entity, "auto_insert").Add(float64(len(report.AutoInsert)))
	p.metrics.DuplicateRows.WithLabelValues(entity, "review").Add(float64(len(report.Review)))
}

func validateMapping(cols []mapping.Column, headers []string) error {
	known := make(map[string]bool, len(headers))
	for _, h := range headers {
		known[h] = true
	}
	for _, c := range cols {
		if !known[c.Incoming] {
			return fmt.Errorf("%w: %q", ErrInvalidMapping, c.Incoming)
		}
	}
	return nil
}

// skipSet indexes decisions by row. Later decisions for a row override
// earlier ones.
func skipSet(decisions []DupDecision, rows int) (map[int]bool, error) {
	skips := make(map[int]bool, len(decisions))
	for _, d := range decisions {
		if d.RowIndex < 0 || d.RowIndex >= rows {
			return nil, fmt.Errorf("%w: row %d out of range", ErrInvalidDecision, d.RowIndex)
		}
		switch d.Action {
		case ActionSkip:
			skips[d.RowIndex] = true
		case ActionInsert:
			skips[d.RowIndex] = false
		default:
			return nil, fmt.Errorf("%w: action %q", ErrInvalidDecision, d.Action)
		}
	}
	return skips, nil
}

func storageKey(entity, hash, filename string) string {
	name := filepath.Base(filename)
	if name == "." || name == "/" || name == "" {
		name = "upload"
	}
	return fmt.Sprintf("imports/%s/%s/%s", entity, hash, url.PathEscape(name))
}
