package repository

import (
	"database/sql"
	"database/sql/driver"
	"errors"
	"io"
	"testing"
	"time"

	"songrab/model"
)

// fakeConn 返回预置行的假连接，校验仓储层的 SQL 走向和扫描逻辑
type fakeConn struct {
	rows      [][]driver.Value
	lastQuery string
	lastArgs  []driver.Value
}

type fakeDriver struct{ conn *fakeConn }

func (d *fakeDriver) Open(string) (driver.Conn, error) { return d.conn, nil }

func (c *fakeConn) Prepare(query string) (driver.Stmt, error) {
	c.lastQuery = query
	return &fakeStmt{conn: c}, nil
}
func (c *fakeConn) Close() error              { return nil }
func (c *fakeConn) Begin() (driver.Tx, error) { return nil, errors.New("transactions not supported") }

type fakeStmt struct{ conn *fakeConn }

func (s *fakeStmt) Close() error  { return nil }
func (s *fakeStmt) NumInput() int { return -1 }

func (s *fakeStmt) Exec(args []driver.Value) (driver.Result, error) {
	s.conn.lastArgs = args
	return fakeResult{}, nil
}

func (s *fakeStmt) Query(args []driver.Value) (driver.Rows, error) {
	s.conn.lastArgs = args
	return &fakeRows{data: s.conn.rows}, nil
}

type fakeResult struct{}

func (fakeResult) LastInsertId() (int64, error) { return 42, nil }
func (fakeResult) RowsAffected() (int64, error) { return 1, nil }

type fakeRows struct {
	data [][]driver.Value
	pos  int
}

func (r *fakeRows) Columns() []string {
	return []string{"id", "run_id", "track_id", "title", "format", "output_path",
		"succeeded", "fail_kind", "fail_reason", "created_at"}
}
func (r *fakeRows) Close() error { return nil }
func (r *fakeRows) Next(dest []driver.Value) error {
	if r.pos >= len(r.data) {
		return io.EOF
	}
	copy(dest, r.data[r.pos])
	r.pos++
	return nil
}

func newFakeRepo(t *testing.T, conn *fakeConn) *mysqlHistoryRepository {
	t.Helper()
	name := "songrab-fake-" + t.Name()
	sql.Register(name, &fakeDriver{conn: conn})
	sqlDB, err := sql.Open(name, "")
	if err != nil {
		t.Fatalf("open fake db: %v", err)
	}
	t.Cleanup(func() { sqlDB.Close() })
	return &mysqlHistoryRepository{DB: sqlDB}
}

func TestGetRecordsByRunID(t *testing.T) {
	created := time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC)
	conn := &fakeConn{rows: [][]driver.Value{
		{int64(1), "run-1", "t1", "Track One", "flac", "/out/01 - Track One.flac", true, "", "", created},
		{int64(2), "run-1", "t2", "Track Two", "flac", "", false, "fetch", "rate limited", created},
	}}
	repo := newFakeRepo(t, conn)

	records, err := repo.GetRecordsByRunID("run-1")
	if err != nil {
		t.Fatalf("GetRecordsByRunID: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if len(conn.lastArgs) != 1 || conn.lastArgs[0] != "run-1" {
		t.Fatalf("query args = %v, want [run-1]", conn.lastArgs)
	}
	if records[0].TrackID != "t1" || !records[0].Succeeded || records[0].OutputPath == "" {
		t.Fatalf("first record scanned wrong: %+v", records[0])
	}
	if records[1].Succeeded || records[1].FailKind != "fetch" || records[1].FailReason != "rate limited" {
		t.Fatalf("second record scanned wrong: %+v", records[1])
	}
	if !records[0].CreatedAt.Equal(created) {
		t.Fatalf("created_at = %v, want %v", records[0].CreatedAt, created)
	}
}

func TestGetRecordsByTrackID(t *testing.T) {
	conn := &fakeConn{rows: [][]driver.Value{
		{int64(3), "run-1", "t7", "Seventh", "mp3", "/out/07 - Seventh.mp3", true, "", "", time.Now()},
	}}
	repo := newFakeRepo(t, conn)

	records, err := repo.GetRecordsByTrackID("t7")
	if err != nil {
		t.Fatalf("GetRecordsByTrackID: %v", err)
	}
	if len(records) != 1 || records[0].RunID != "run-1" || records[0].Format != "mp3" {
		t.Fatalf("unexpected records: %+v", records)
	}
	if len(conn.lastArgs) != 1 || conn.lastArgs[0] != "t7" {
		t.Fatalf("query args = %v, want [t7]", conn.lastArgs)
	}
}

func TestRecordOutcome(t *testing.T) {
	conn := &fakeConn{}
	repo := newFakeRepo(t, conn)

	id, err := repo.RecordOutcome(&model.DownloadRecord{
		RunID:     "run-9",
		TrackID:   "t1",
		Title:     "Track One",
		Format:    "flac",
		Succeeded: true,
	})
	if err != nil {
		t.Fatalf("RecordOutcome: %v", err)
	}
	if id != 42 {
		t.Fatalf("insert id = %d, want 42", id)
	}
	// run_id, track_id, title, format, output_path, succeeded, fail_kind, fail_reason, created_at
	if len(conn.lastArgs) != 9 {
		t.Fatalf("expected 9 insert args, got %d: %v", len(conn.lastArgs), conn.lastArgs)
	}
	if conn.lastArgs[0] != "run-9" || conn.lastArgs[5] != true {
		t.Fatalf("insert args scanned wrong: %v", conn.lastArgs)
	}
}
