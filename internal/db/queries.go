package db

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"strings"

	"github.com/MrCreosote/contigfilter/internal/assembly"
	"github.com/MrCreosote/contigfilter/internal/errors"
)

// ErrUniqueConstraint is returned when an insert violates a UNIQUE constraint.
var ErrUniqueConstraint = &errors.FilterError{
	Code:    "UNIQUE_CONSTRAINT",
	Status:  409,
	Message: "unique constraint violation",
}

// InsertAssembly stores a new assembly row. a.Ref is filled in on success.
func InsertAssembly(ctx context.Context, db *sql.DB, a *assembly.Assembly) error {
	query := `
		INSERT INTO assemblies (id, workspace, version, name, path, contig_count, created_at)
		VALUES (?, ?, 1, ?, ?, ?, ?)
	`
	if _, err := db.ExecContext(ctx, query,
		a.ID, a.Workspace, a.Name, a.Path, a.ContigCount, a.CreatedAt,
	); err != nil {
		if isUniqueConstraintError(err) {
			return ErrUniqueConstraint
		}
		return errors.NewInternal(err)
	}
	a.Ref = assembly.FormatRef(a.Workspace, a.ID, 1)
	return nil
}

// GetAssembly retrieves an assembly by workspace and id.
func GetAssembly(ctx context.Context, db *sql.DB, workspace, id string) (*assembly.Assembly, error) {
	query := `
		SELECT id, workspace, version, name, path, contig_count, created_at
		FROM assemblies
		WHERE workspace = ? AND id = ?
	`
	var a assembly.Assembly
	var version int
	err := db.QueryRowContext(ctx, query, workspace, id).Scan(
		&a.ID, &a.Workspace, &version, &a.Name, &a.Path, &a.ContigCount, &a.CreatedAt,
	)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.NewNotFound(assembly.FormatRef(workspace, id, 1))
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	a.Ref = assembly.FormatRef(a.Workspace, a.ID, version)
	return &a, nil
}

// InsertReport stores a new report. r.Ref must already be set by the caller.
func InsertReport(ctx context.Context, db *sql.DB, id string, r *assembly.Report) error {
	objects := r.ObjectsCreated
	if objects == nil {
		objects = []assembly.ObjectRef{}
	}
	data, err := json.Marshal(objects)
	if err != nil {
		return errors.NewInternal(err)
	}

	query := `
		INSERT INTO reports (id, workspace, name, text_message, objects_created_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	if _, err := db.ExecContext(ctx, query,
		id, r.Workspace, r.Name, r.TextMessage, string(data), r.CreatedAt,
	); err != nil {
		if isUniqueConstraintError(err) {
			return ErrUniqueConstraint
		}
		return errors.NewInternal(err)
	}
	return nil
}

// GetReport retrieves a report by workspace and id.
func GetReport(ctx context.Context, db *sql.DB, workspace, id string) (*assembly.Report, error) {
	query := `
		SELECT id, workspace, name, text_message, objects_created_json, created_at
		FROM reports
		WHERE workspace = ? AND id = ?
	`
	r, err := scanReport(db.QueryRowContext(ctx, query, workspace, id))
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.NewNotFound(assembly.FormatRef(workspace, id, 1))
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return r, nil
}

// ListReports returns reports newest first, plus the total count.
func ListReports(ctx context.Context, db *sql.DB, limit, offset int) ([]assembly.Report, int, error) {
	var total int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM reports").Scan(&total); err != nil {
		return nil, 0, errors.NewInternal(err)
	}

	query := `
		SELECT id, workspace, name, text_message, objects_created_json, created_at
		FROM reports
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
	`
	rows, err := db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, errors.NewInternal(err)
	}
	defer rows.Close()

	reports := make([]assembly.Report, 0)
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, 0, errors.NewInternal(err)
		}
		reports = append(reports, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, errors.NewInternal(err)
	}
	return reports, total, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanReport(row rowScanner) (*assembly.Report, error) {
	var r assembly.Report
	var id, objectsJSON string
	if err := row.Scan(&id, &r.Workspace, &r.Name, &r.TextMessage, &objectsJSON, &r.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(objectsJSON), &r.ObjectsCreated); err != nil {
		return nil, err
	}
	r.Ref = assembly.FormatRef(r.Workspace, id, 1)
	return &r, nil
}

// isUniqueConstraintError checks if the error is a SQLite UNIQUE constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	// SQLite returns "UNIQUE constraint failed: ..." for unique violations
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
