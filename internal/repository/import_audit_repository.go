package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/careops/measuresync/internal/domain"
)

type importAuditRepository struct {
	pool *pgxpool.Pool
}

// NewImportAuditRepository wires a repository backed by pgxpool.
func NewImportAuditRepository(pool *pgxpool.Pool) ImportAuditRepository {
	return &importAuditRepository{pool: pool}
}

func (r *importAuditRepository) Record(ctx context.Context, entry domain.ImportAuditEntry) error {
	if r.pool == nil {
		return fmt.Errorf("import audit repository not initialized")
	}

	var rowNumber any
	if entry.RowNumber != nil {
		rowNumber = *entry.RowNumber
	}

	_, err := r.pool.Exec(
		ctx,
		`INSERT INTO import_audit_log (operator_id, system_id, file_name, action, preview_id, row_number, detail)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		entry.OperatorID,
		entry.SystemID,
		entry.FileName,
		entry.Action,
		entry.PreviewID,
		rowNumber,
		entry.Detail,
	)
	if err != nil {
		return fmt.Errorf("failed to record import audit entry: %w", err)
	}

	return nil
}

func (r *importAuditRepository) List(ctx context.Context, systemID string, fileName string, limit int, offset int) ([]domain.ImportAuditEntry, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("import audit repository not initialized")
	}

	if limit <= 0 {
		limit = 200
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := r.pool.Query(
		ctx,
		`SELECT id, operator_id, system_id, file_name, action, preview_id, row_number, detail, created_at
		 FROM import_audit_log
		 WHERE ($1 = '' OR system_id = $1)
		   AND ($2 = '' OR file_name = $2)
		 ORDER BY created_at DESC
		 LIMIT $3 OFFSET $4`,
		systemID,
		fileName,
		limit,
		offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list import audit entries: %w", err)
	}
	defer rows.Close()

	entries := []domain.ImportAuditEntry{}
	for rows.Next() {
		var (
			entry     domain.ImportAuditEntry
			rowNumber pgtype.Int4
			createdAt pgtype.Timestamptz
		)
		if scanErr := rows.Scan(
			&entry.ID,
			&entry.OperatorID,
			&entry.SystemID,
			&entry.FileName,
			&entry.Action,
			&entry.PreviewID,
			&rowNumber,
			&entry.Detail,
			&createdAt,
		); scanErr != nil {
			return nil, fmt.Errorf("failed to scan import audit entry: %w", scanErr)
		}

		if rowNumber.Valid {
			value := int(rowNumber.Int32)
			entry.RowNumber = &value
		}
		if createdAt.Valid {
			entry.CreatedAt = createdAt.Time
		}

		entries = append(entries, entry)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("failed to iterate import audit entries: %w", rowsErr)
	}

	return entries, nil
}
