package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
)

// AuditRepository defines the data access contract for audit log operations.
// All SQL lives in the concrete implementation -- no SQL leaks out.
type AuditRepository interface {
	// Log inserts a new entry and sets its ID.
	Log(ctx context.Context, entry *Entry) error

	// List returns matching entries, most recent first, plus the total
	// count for pagination.
	List(ctx context.Context, filter ListFilter, limit, offset int) ([]Entry, int, error)
}

// auditRepository implements AuditRepository with MariaDB queries.
type auditRepository struct {
	db *sql.DB
}

// NewAuditRepository creates a new repository backed by the given DB pool.
func NewAuditRepository(db *sql.DB) AuditRepository {
	return &auditRepository{db: db}
}

// Log inserts a new audit entry. The details map is serialized to JSON
// before storage. Nil details are stored as SQL NULL.
func (r *auditRepository) Log(ctx context.Context, entry *Entry) error {
	var details sql.NullString
	if entry.Details != nil {
		raw, err := json.Marshal(entry.Details)
		if err != nil {
			return fmt.Errorf("marshaling audit details: %w", err)
		}
		details = sql.NullString{String: string(raw), Valid: true}
	}

	result, err := r.db.ExecContext(ctx,
		`INSERT INTO audit_log (action, resource_type, resource_id, remote_ip, request_id, details, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.Action, entry.ResourceType, entry.ResourceID,
		entry.RemoteIP, entry.RequestID, details, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting audit entry: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("getting audit entry id: %w", err)
	}
	entry.ID = id
	return nil
}

// List returns audit entries ordered by most recent first.
func (r *auditRepository) List(ctx context.Context, filter ListFilter, limit, offset int) ([]Entry, int, error) {
	var conds []string
	var args []any
	if filter.ResourceType != "" {
		conds = append(conds, "resource_type = ?")
		args = append(args, filter.ResourceType)
	}
	if filter.ResourceID != "" {
		conds = append(conds, "resource_id = ?")
		args = append(args, filter.ResourceID)
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM audit_log`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting audit entries: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, action, resource_type, resource_id, remote_ip, request_id, details, created_at
		 FROM audit_log`+where+`
		 ORDER BY created_at DESC, id DESC
		 LIMIT ? OFFSET ?`,
		append(args, limit, offset)...,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("listing audit entries: %w", err)
	}
	defer rows.Close()

	entries, err := scanAuditRows(rows)
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

// scanAuditRows scans rows from an audit_log query into Entry slices.
func scanAuditRows(rows *sql.Rows) ([]Entry, error) {
	entries := []Entry{}
	for rows.Next() {
		var e Entry
		var details sql.NullString
		if err := rows.Scan(
			&e.ID, &e.Action, &e.ResourceType, &e.ResourceID,
			&e.RemoteIP, &e.RequestID, &details, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning audit entry: %w", err)
		}

		// Non-fatal: a bad details blob must not break the feed.
		if details.Valid && details.String != "" {
			if err := json.Unmarshal([]byte(details.String), &e.Details); err != nil {
				e.Details = map[string]any{"_parse_error": "invalid JSON"}
			}
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating audit rows: %w", err)
	}
	return entries, nil
}
