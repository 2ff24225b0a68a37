package database

import (
	"context"
	"fmt"
	"time"

	"github.com/balbi1122/balbi-golf-booking/internal/models"
)

// InsertAuditEntry appends one audit row.
func (db *DB) InsertAuditEntry(ctx context.Context, actor, action, detail string) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO audit (ts, actor, action, detail) VALUES (?, ?, ?, ?)`,
		time.Now().UTC(), actor, action, detail)
	return err
}

// RecentAuditEntries returns up to limit entries, newest first.
func (db *DB) RecentAuditEntries(ctx context.Context, limit int) ([]models.AuditEntry, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, ts, actor, action, detail FROM audit
		ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.AuditEntry
	for rows.Next() {
		var e models.AuditEntry
		if err := rows.Scan(&e.ID, &e.TS, &e.Actor, &e.Action, &e.Detail); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// AuditTableNames lists the tables included in audit exports.
var AuditTableNames = []string{
	"customers",
	"lessons",
	"blocks",
	"settings",
	"audit",
}

// GetTableNames returns the list of table names to export.
func (db *DB) GetTableNames(ctx context.Context) ([]string, error) {
	return AuditTableNames, nil
}

// GetTableData returns all rows from a table as maps.
func (db *DB) GetTableData(ctx context.Context, tableName string) (result []map[string]interface{}, columns []string, err error) {
	// Validate table name to prevent SQL injection
	validTable := false
	for _, t := range AuditTableNames {
		if t == tableName {
			validTable = true
			break
		}
	}
	if !validTable {
		return nil, nil, fmt.Errorf("invalid table name: %s", tableName)
	}

	rows, err := db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", tableName))
	if err != nil {
		return nil, nil, err
	}
	for rows.Next() {
		var cid int
		var name, typeName string
		var notNull, pk int
		var dfltValue any
		if errScan := rows.Scan(&cid, &name, &typeName, &notNull, &dfltValue, &pk); errScan != nil {
			rows.Close()
			return nil, nil, errScan
		}
		columns = append(columns, name)
	}
	rows.Close()

	if len(columns) == 0 {
		return nil, nil, fmt.Errorf("table %s has no columns", tableName)
	}

	dataRows, err := db.QueryContext(ctx, fmt.Sprintf("SELECT * FROM %s", tableName))
	if err != nil {
		return nil, nil, err
	}
	defer dataRows.Close()

	for dataRows.Next() {
		values := make([]interface{}, len(columns))
		valuePtrs := make([]interface{}, len(columns))
		for i := range values {
			valuePtrs[i] = &values[i]
		}
		if errScan := dataRows.Scan(valuePtrs...); errScan != nil {
			return nil, nil, errScan
		}
		row := make(map[string]interface{})
		for i, col := range columns {
			row[col] = values[i]
		}
		result = append(result, row)
	}

	return result, columns, dataRows.Err()
}
