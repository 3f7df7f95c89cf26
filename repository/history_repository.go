package repository

import (
	"database/sql"
	"fmt"
	"time"

	"songrab/db"
	"songrab/model"
)

// HistoryRepository defines the interface for download history operations.
type HistoryRepository interface {
	RecordOutcome(record *model.DownloadRecord) (int64, error)
	GetRecordsByRunID(runID string) ([]*model.DownloadRecord, error)
	GetRecordsByTrackID(trackID string) ([]*model.DownloadRecord, error)
}

// mysqlHistoryRepository implements HistoryRepository for MySQL.
type mysqlHistoryRepository struct {
	DB *sql.DB
}

// NewMySQLHistoryRepository creates a new instance of mysqlHistoryRepository.
func NewMySQLHistoryRepository() HistoryRepository {
	return &mysqlHistoryRepository{DB: db.DB}
}

// RecordOutcome adds one terminal track outcome to the history table.
func (r *mysqlHistoryRepository) RecordOutcome(record *model.DownloadRecord) (int64, error) {
	query := `INSERT INTO download_records (run_id, track_id, title, format, output_path, succeeded, fail_kind, fail_reason, created_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	stmt, err := r.DB.Prepare(query)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare statement for RecordOutcome: %w", err)
	}
	defer stmt.Close()

	res, err := stmt.Exec(record.RunID, record.TrackID, record.Title, record.Format,
		record.OutputPath, record.Succeeded, record.FailKind, record.FailReason, time.Now())
	if err != nil {
		return 0, fmt.Errorf("failed to execute RecordOutcome: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID for RecordOutcome: %w", err)
	}
	return id, nil
}

// GetRecordsByRunID retrieves all outcomes of one run.
func (r *mysqlHistoryRepository) GetRecordsByRunID(runID string) ([]*model.DownloadRecord, error) {
	query := `SELECT id, run_id, track_id, title, format, output_path, succeeded, fail_kind, fail_reason, created_at
	           FROM download_records WHERE run_id = ? ORDER BY id`
	return r.queryRecords(query, runID)
}

// GetRecordsByTrackID retrieves the download history of one track.
func (r *mysqlHistoryRepository) GetRecordsByTrackID(trackID string) ([]*model.DownloadRecord, error) {
	query := `SELECT id, run_id, track_id, title, format, output_path, succeeded, fail_kind, fail_reason, created_at
	           FROM download_records WHERE track_id = ? ORDER BY id`
	return r.queryRecords(query, trackID)
}

func (r *mysqlHistoryRepository) queryRecords(query string, arg interface{}) ([]*model.DownloadRecord, error) {
	rows, err := r.DB.Query(query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to query download records: %w", err)
	}
	defer rows.Close()

	var records []*model.DownloadRecord
	for rows.Next() {
		rec := &model.DownloadRecord{}
		if err := rows.Scan(&rec.ID, &rec.RunID, &rec.TrackID, &rec.Title, &rec.Format,
			&rec.OutputPath, &rec.Succeeded, &rec.FailKind, &rec.FailReason, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan download record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
