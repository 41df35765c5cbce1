// Package importer implements the two-phase import workflow: an upload is
// parsed, transformed, validated, and diffed into a preview bundle that a
// human operator later commits or cancels.
package importer

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/careops/measuresync/internal/auth"
	"github.com/careops/measuresync/internal/domain"
	"github.com/careops/measuresync/internal/ingest"
	"github.com/careops/measuresync/internal/preview"
	"github.com/careops/measuresync/internal/registry"
	"github.com/careops/measuresync/internal/repository"
	"github.com/careops/measuresync/internal/rules"
)

// Service orchestrates the import reconciliation pipeline.
type Service struct {
	registry *registry.Registry
	measures repository.MeasureRepository
	audit    repository.ImportAuditRepository
	previews *preview.Store
	parser   *ingest.Parser
	offsets  rules.OffsetLookup
	prompts  rules.PromptLookup
	logger   zerolog.Logger
}

// NewService wires the pipeline. audit may be nil in tests.
func NewService(
	reg *registry.Registry,
	measures repository.MeasureRepository,
	audit repository.ImportAuditRepository,
	previews *preview.Store,
	logger zerolog.Logger,
) *Service {
	return &Service{
		registry: reg,
		measures: measures,
		audit:    audit,
		previews: previews,
		parser:   ingest.NewParser(),
		offsets:  rules.NewStaticOffsets(),
		logger:   logger,
	}
}

// UploadRequest describes one uploaded export.
type UploadRequest struct {
	Payload       []byte
	FileName      string
	SystemID      string
	Mode          string
	TargetOwnerID uuid.UUID
	// TTL overrides the preview lifetime; zero uses the store default.
	TTL time.Duration
}

// PreviewSummary is returned from UploadAndPreview; the full bundle stays in
// the store until the operator asks for detail or commits.
type PreviewSummary struct {
	PreviewID     string              `json:"previewId"`
	SystemID      string              `json:"systemId"`
	Counts        domain.ChangeCounts `json:"changeSummaryCounts"`
	ErrorCount    int                 `json:"errorCount"`
	WarningCount  int                 `json:"warningCount"`
	Reassignments int                 `json:"reassignments"`
	ExpiresAt     time.Time           `json:"expiresAt"`
}

// CommitResult reports what a commit applied.
type CommitResult struct {
	PreviewID string              `json:"previewId"`
	Counts    domain.ChangeCounts `json:"appliedCounts"`
}

// UploadAndPreview runs ingest, transform, validate, and diff, then parks the
// outcome in the preview store. Validation errors do not fail the call; the
// operator must see them in the bundle.
func (s *Service) UploadAndPreview(ctx context.Context, req UploadRequest) (PreviewSummary, error) {
	systemID := req.SystemID
	if systemID == "" {
		systemID = s.registry.DefaultID()
	}
	profile, err := s.registry.Get(systemID)
	if err != nil {
		return PreviewSummary{}, err
	}

	mode, err := domain.ParseMergeMode(req.Mode)
	if err != nil {
		return PreviewSummary{}, domain.WrapError(domain.CodeValidationFailed, err, "merge mode is not recognized")
	}

	sheet, err := s.parser.Parse(req.Payload, req.FileName)
	if err != nil {
		s.recordAudit(ctx, systemID, req.FileName, domain.AuditActionError, "", err.Error())
		return PreviewSummary{}, err
	}

	if ok, missing := ingest.ValidateRequiredColumns(sheet.Headers, requiredColumns(profile)); !ok {
		failure := domain.NewError(domain.CodeMissingRequiredColumns,
			"upload is missing columns required by system %q", systemID)
		failure.MissingColumns = missing
		s.recordAudit(ctx, systemID, req.FileName, domain.AuditActionError, "", failure.Message)
		return PreviewSummary{}, failure
	}

	transformer := NewTransformer(profile, s.offsets, s.prompts)
	transformed := transformer.Transform(sheet, req.TargetOwnerID)

	validation := NewValidator().Validate(transformed.Records)

	warnings := make([]domain.ValidationIssue, 0, len(sheet.Warnings)+len(transformed.Warnings))
	for _, message := range sheet.Warnings {
		warnings = append(warnings, domain.ValidationIssue{
			Severity: domain.SeverityWarning,
			Row:      1,
			Message:  message,
		})
	}
	warnings = append(warnings, transformed.Warnings...)

	snapshot, err := s.measures.Snapshot(ctx, req.TargetOwnerID)
	if err != nil {
		return PreviewSummary{}, fmt.Errorf("failed to read persisted snapshot: %w", err)
	}

	changeset, reassignments := Diff(transformed.Records, snapshot, mode)

	id, expiresAt := s.previews.Put(preview.Bundle{
		SourceSystemID: systemID,
		MergeMode:      mode,
		FileName:       req.FileName,
		ChangeSet:      changeset,
		Records:        transformed.Records,
		Validation:     validation,
		Warnings:       warnings,
		Reassignments:  reassignments,
		TargetOwnerID:  req.TargetOwnerID,
	}, req.TTL)

	counts := changeset.Counts()

	s.logger.Info().
		Str("previewId", id).
		Str("system", systemID).
		Str("file", req.FileName).
		Int("rows", len(sheet.Rows)).
		Int("adds", counts.Adds).
		Int("updates", counts.Updates).
		Int("deletes", counts.Deletes).
		Int("errors", len(validation.Errors)).
		Msg("import preview created")

	s.recordAudit(ctx, systemID, req.FileName, domain.AuditActionPreview, id,
		fmt.Sprintf("%d rows, %d adds, %d updates, %d deletes, %d errors",
			len(sheet.Rows), counts.Adds, counts.Updates, counts.Deletes, len(validation.Errors)))

	return PreviewSummary{
		PreviewID:     id,
		SystemID:      systemID,
		Counts:        counts,
		ErrorCount:    len(validation.Errors),
		WarningCount:  len(validation.Warnings) + len(warnings),
		Reassignments: len(reassignments),
		ExpiresAt:     expiresAt,
	}, nil
}

// PreviewDetail returns the full bundle for operator review.
func (s *Service) PreviewDetail(id string) (*preview.Bundle, error) {
	bundle, result := s.previews.Get(id)
	switch result {
	case preview.Hit:
		return bundle, nil
	case preview.Expired:
		return nil, domain.NewError(domain.CodePreviewExpired, "preview %q has expired", id)
	default:
		return nil, domain.NewError(domain.CodePreviewNotFound, "preview %q does not exist", id)
	}
}

// ExtendPreview pushes out a live bundle's expiry.
func (s *Service) ExtendPreview(id string, extra time.Duration) error {
	if s.previews.ExtendTTL(id, extra) {
		return nil
	}
	return domain.NewError(domain.CodePreviewNotFound, "preview %q does not exist or has expired", id)
}

// CommitPreview applies a previewed changeset through the persistence layer
// and removes the bundle. Validation errors block the commit; pending
// reassignments must be explicitly confirmed by the operator.
func (s *Service) CommitPreview(ctx context.Context, id string, confirmReassignments bool) (CommitResult, error) {
	bundle, result := s.previews.Get(id)
	switch result {
	case preview.Expired:
		return CommitResult{}, domain.NewError(domain.CodePreviewExpired, "preview %q has expired", id)
	case preview.Miss:
		return CommitResult{}, domain.NewError(domain.CodePreviewNotFound, "preview %q does not exist", id)
	}

	if bundle.Validation.HasErrors() {
		return CommitResult{}, domain.NewError(domain.CodeValidationFailed,
			"preview %q has %d blocking validation errors", id, len(bundle.Validation.Errors))
	}

	if len(bundle.Reassignments) > 0 && !confirmReassignments {
		return CommitResult{}, domain.NewError(domain.CodeReassignmentConflict,
			"preview %q moves %d patients between owners; confirmation required", id, len(bundle.Reassignments))
	}

	if err := s.measures.ApplyChangeSet(ctx, bundle.ChangeSet, bundle.Reassignments); err != nil {
		s.recordAudit(ctx, bundle.SourceSystemID, bundle.FileName, domain.AuditActionError, id, err.Error())
		return CommitResult{}, fmt.Errorf("failed to apply changeset: %w", err)
	}

	s.previews.Delete(id)

	counts := bundle.ChangeSet.Counts()
	s.logger.Info().
		Str("previewId", id).
		Str("system", bundle.SourceSystemID).
		Int("applied", counts.Total).
		Msg("import committed")
	s.recordAudit(ctx, bundle.SourceSystemID, bundle.FileName, domain.AuditActionCommit, id,
		fmt.Sprintf("applied %d changes", counts.Total))

	return CommitResult{PreviewID: id, Counts: counts}, nil
}

// CancelPreview discards a bundle. Cancelling an absent or expired preview is
// a no-op.
func (s *Service) CancelPreview(ctx context.Context, id string) {
	bundle, result := s.previews.Get(id)
	if result != preview.Hit {
		return
	}
	s.previews.Delete(id)
	s.recordAudit(ctx, bundle.SourceSystemID, bundle.FileName, domain.AuditActionCancel, id, "preview cancelled")
}

// Systems lists the configured source systems for selector UIs.
func (s *Service) Systems() []registry.SystemInfo {
	return s.registry.List()
}

// Owners lists the owning physicians for selector UIs.
func (s *Service) Owners(ctx context.Context) ([]domain.Owner, error) {
	return s.measures.ListOwners(ctx)
}

// StoreStats exposes preview store counters for operational visibility.
func (s *Service) StoreStats() preview.Stats {
	return s.previews.Stats()
}

// AuditTrail lists recorded import actions, newest first. Both filters are
// optional and an empty string matches everything.
func (s *Service) AuditTrail(ctx context.Context, systemID, fileName string, limit, offset int) ([]domain.ImportAuditEntry, error) {
	if s.audit == nil {
		return []domain.ImportAuditEntry{}, nil
	}
	return s.audit.List(ctx, systemID, fileName, limit, offset)
}

/// requiredColumns derives the headers an upload must carry: every source
// column feeding patient identity.
func requiredColumns(profile *registry.SystemProfile) []string {
	var required []string
	for header, field := range profile.PatientColumns {
		switch field {
		case patientFieldFullName, patientFieldFirstName, patientFieldLastName, patientFieldDateOfBirth:
			required = append(required, header)
		}
	}
	sort.Strings(required)
	return required
}

func (s *Service) recordAudit(ctx context.Context, systemID, fileName, action, previewID, detail string) {
	if s.audit == nil {
		return
	}
	operatorID, _ := auth.OperatorIDFromContext(ctx)
	entry := domain.ImportAuditEntry{
		OperatorID: operatorID,
		SystemID:   systemID,
		FileName:   fileName,
		Action:     action,
		PreviewID:  previewID,
		Detail:     detail,
	}
	if err := s.audit.Record(ctx, entry); err != nil {
		s.logger.Warn().Err(err).Str("action", action).Msg("failed to record import audit entry")
	}
}
