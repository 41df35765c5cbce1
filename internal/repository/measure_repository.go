package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/careops/measuresync/internal/db"
	"github.com/careops/measuresync/internal/domain"
)

// measureRepository implements MeasureRepository on postgres.
type measureRepository struct {
	conn *db.Connection
}

// NewMeasureRepository wires a repository backed by the shared connection.
func NewMeasureRepository(conn *db.Connection) MeasureRepository {
	return &measureRepository{conn: conn}
}

func (r *measureRepository) Snapshot(ctx context.Context, ownerID uuid.UUID) (domain.Snapshot, error) {
	var snapshot domain.Snapshot

	patientQuery := `SELECT p.id, p.name, p.date_of_birth, p.owner_id, o.name, p.created_at, p.updated_at
		 FROM patients p
		 JOIN owners o ON o.id = p.owner_id`
	args := []any{}
	if ownerID != uuid.Nil {
		patientQuery += ` WHERE p.owner_id = $1`
		args = append(args, ownerID)
	}
	patientQuery += ` ORDER BY p.name, p.id`

	rows, err := r.conn.Pool.Query(ctx, patientQuery, args...)
	if err != nil {
		return snapshot, fmt.Errorf("failed to read patient snapshot: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			patient domain.Patient
			dob     pgtype.Date
		)
		if scanErr := rows.Scan(&patient.ID, &patient.Name, &dob, &patient.OwnerID, &patient.OwnerName, &patient.CreatedAt, &patient.UpdatedAt); scanErr != nil {
			return snapshot, fmt.Errorf("failed to scan patient: %w", scanErr)
		}
		if dob.Valid {
			value := dob.Time
			patient.DateOfBirth = &value
		}
		snapshot.Patients = append(snapshot.Patients, patient)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return snapshot, fmt.Errorf("failed to iterate patients: %w", rowsErr)
	}

	recordQuery := `SELECT m.id, m.patient_id, p.name, p.date_of_birth, m.request_type, m.quality_measure,
			m.measure_status, m.tracking1, m.tracking2, m.tracking3, m.status_date, m.due_date,
			m.interval_days, m.notes, m.is_duplicate, p.owner_id
		 FROM measure_records m
		 JOIN patients p ON p.id = m.patient_id`
	if ownerID != uuid.Nil {
		recordQuery += ` WHERE p.owner_id = $1`
	}
	recordQuery += ` ORDER BY p.name, m.request_type, m.quality_measure, m.id`

	recordRows, err := r.conn.Pool.Query(ctx, recordQuery, args...)
	if err != nil {
		return snapshot, fmt.Errorf("failed to read measure snapshot: %w", err)
	}
	defer recordRows.Close()

	for recordRows.Next() {
		var (
			record     domain.MeasureRecord
			dob        pgtype.Date
			statusDate pgtype.Date
			dueDate    pgtype.Date
			interval   pgtype.Int4
		)
		if scanErr := recordRows.Scan(
			&record.ID,
			&record.PatientID,
			&record.PatientName,
			&dob,
			&record.RequestType,
			&record.QualityMeasure,
			&record.MeasureStatus,
			&record.Tracking1,
			&record.Tracking2,
			&record.Tracking3,
			&statusDate,
			&dueDate,
			&interval,
			&record.Notes,
			&record.IsDuplicate,
			&record.OwnerID,
		); scanErr != nil {
			return snapshot, fmt.Errorf("failed to scan measure record: %w", scanErr)
		}
		if dob.Valid {
			value := dob.Time
			record.DateOfBirth = &value
		}
		if statusDate.Valid {
			value := statusDate.Time
			record.StatusDate = &value
		}
		if dueDate.Valid {
			value := dueDate.Time
			record.DueDate = &value
		}
		if interval.Valid {
			value := int(interval.Int32)
			record.IntervalDays = &value
		}
		snapshot.Records = append(snapshot.Records, record)
	}
	if rowsErr := recordRows.Err(); rowsErr != nil {
		return snapshot, fmt.Errorf("failed to iterate measure records: %w", rowsErr)
	}

	return snapshot, nil
}

func (r *measureRepository) ApplyChangeSet(ctx context.Context, changeset domain.ChangeSet, reassignments []domain.PatientReassignment) error {
	return r.conn.WithTx(ctx, func(tx pgx.Tx) error {
		for _, reassignment := range reassignments {
			if _, err := tx.Exec(ctx,
				`UPDATE patients SET owner_id = $1, updated_at = now() WHERE id = $2`,
				reassignment.NewOwnerID, reassignment.PatientID,
			); err != nil {
				return fmt.Errorf("failed to reassign patient %s: %w", reassignment.PatientID, err)
			}
		}

		for _, entry := range changeset.Entries {
			switch entry.Kind {
			case domain.ChangeAdd:
				if err := applyAdd(ctx, tx, entry); err != nil {
					return err
				}
			case domain.ChangeUpdate:
				if err := applyUpdate(ctx, tx, entry); err != nil {
					return err
				}
			case domain.ChangeDelete:
				if err := applyDelete(ctx, tx, entry); err != nil {
					return err
				}
			case domain.ChangeReassign:
				// Handled through the reassignment list above.
			}
		}
		return nil
	})
}

func applyAdd(ctx context.Context, tx pgx.Tx, entry domain.Change) error {
	record := entry.After
	if record == nil {
		return fmt.Errorf("add entry %q has no record", entry.Key)
	}

	patientID := record.PatientID
	if patientID == uuid.Nil {
		// New patient: upsert on identity so repeated adds stay idempotent.
		err := tx.QueryRow(ctx,
			`INSERT INTO patients (id, name, date_of_birth, owner_id)
			 VALUES ($1, $2, $3, $4)
			 ON CONFLICT (lower(name), date_of_birth)
			 DO UPDATE SET updated_at = now()
			 RETURNING id`,
			uuid.New(), record.PatientName, datePtr(record.DateOfBirth), record.OwnerID,
		).Scan(&patientID)
		if err != nil {
			return fmt.Errorf("failed to upsert patient for %q: %w", entry.Key, err)
		}
	}

	if record.PatientLevel() {
		return nil
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO measure_records
			(id, patient_id, request_type, quality_measure, measure_status,
			 tracking1, tracking2, tracking3, status_date, due_date, interval_days, notes, is_duplicate)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		uuid.New(), patientID, record.RequestType, record.QualityMeasure, record.MeasureStatus,
		record.Tracking1, record.Tracking2, record.Tracking3,
		datePtr(record.StatusDate), datePtr(record.DueDate), intPtr(record.IntervalDays),
		record.Notes, record.IsDuplicate,
	); err != nil {
		return fmt.Errorf("failed to insert measure record %q: %w", entry.Key, err)
	}
	return nil
}

func applyUpdate(ctx context.Context, tx pgx.Tx, entry domain.Change) error {
	record := entry.After
	if record == nil {
		return fmt.Errorf("update entry %q has no record", entry.Key)
	}

	if record.PatientLevel() {
		if _, err := tx.Exec(ctx,
			`UPDATE patients SET name = $1, date_of_birth = $2, updated_at = now() WHERE id = $3`,
			record.PatientName, datePtr(record.DateOfBirth), record.PatientID,
		); err != nil {
			return fmt.Errorf("failed to update patient %q: %w", entry.Key, err)
		}
		return nil
	}

	if _, err := tx.Exec(ctx,
		`UPDATE measure_records SET
			measure_status = $1, tracking1 = $2, tracking2 = $3, tracking3 = $4,
			status_date = $5, due_date = $6, interval_days = $7, notes = $8,
			is_duplicate = $9, updated_at = now()
		 WHERE id = $10`,
		record.MeasureStatus, record.Tracking1, record.Tracking2, record.Tracking3,
		datePtr(record.StatusDate), datePtr(record.DueDate), intPtr(record.IntervalDays),
		record.Notes, record.IsDuplicate, record.ID,
	); err != nil {
		return fmt.Errorf("failed to update measure record %q: %w", entry.Key, err)
	}
	return nil
}

func applyDelete(ctx context.Context, tx pgx.Tx, entry domain.Change) error {
	record := entry.Before
	if record == nil {
		return fmt.Errorf("delete entry %q has no record", entry.Key)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM measure_records WHERE id = $1`, record.ID); err != nil {
		return fmt.Errorf("failed to delete measure record %q: %w", entry.Key, err)
	}
	return nil
}

func (r *measureRepository) ListOwners(ctx context.Context) ([]domain.Owner, error) {
	rows, err := r.conn.Pool.Query(ctx, `SELECT id, name FROM owners ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list owners: %w", err)
	}
	defer rows.Close()

	owners := []domain.Owner{}
	for rows.Next() {
		var owner domain.Owner
		if scanErr := rows.Scan(&owner.ID, &owner.Name); scanErr != nil {
			return nil, fmt.Errorf("failed to scan owner: %w", scanErr)
		}
		owners = append(owners, owner)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("failed to iterate owners: %w", rowsErr)
	}
	return owners, nil
}

func datePtr(value *time.Time) any {
	if value == nil {
		return nil
	}
	return *value
}

func intPtr(value *int) any {
	if value == nil {
		return nil
	}
	return *value
}
