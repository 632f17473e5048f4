package generation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNoHistory 网站没有任何记录
var ErrNoHistory = errors.New("no generation history")

// HistoryStore 基于 SQLite 的事件历史，供 status / history 命令查询
type HistoryStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// OpenHistory 打开（必要时创建）历史数据库。":memory:" 表示内存数据库。
func OpenHistory(dbPath string) (*HistoryStore, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
			return nil, fmt.Errorf("create history directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// 单连接，保证内存数据库在各查询间共享
	db.SetMaxOpenConns(1)

	store := &HistoryStore{db: db}
	if err := store.initialize(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return store, nil
}

func (s *HistoryStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS generation_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		website_id TEXT NOT NULL,
		status TEXT NOT NULL,
		step TEXT NOT NULL,
		reason TEXT NOT NULL DEFAULT '',
		start_time INTEGER NOT NULL,
		end_time INTEGER
	);
	CREATE INDEX IF NOT EXISTS idx_generation_website ON generation_events(website_id);
	CREATE INDEX IF NOT EXISTS idx_generation_run ON generation_events(run_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Append 追加一条事件
func (s *HistoryStore) Append(ctx context.Context, evt Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var end sql.NullInt64
	if evt.EndTime != nil {
		end = sql.NullInt64{Int64: evt.EndTime.UnixNano(), Valid: true}
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO generation_events (run_id, website_id, status, step, reason, start_time, end_time) VALUES (?, ?, ?, ?, ?, ?, ?)",
		evt.RunID, evt.WebsiteID, string(evt.Status), string(evt.Step), evt.Reason, evt.StartTime.UnixNano(), end,
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// Notify 实现 Notifier
func (s *HistoryStore) Notify(ctx context.Context, evt Event) error {
	return s.Append(ctx, evt)
}

// Latest 返回网站最近一条事件，没有记录时返回 ErrNoHistory
func (s *HistoryStore) Latest(ctx context.Context, websiteID string) (*Event, error) {
	events, err := s.query(ctx,
		"SELECT run_id, website_id, status, step, reason, start_time, end_time FROM generation_events WHERE website_id = ? ORDER BY id DESC LIMIT 1",
		websiteID)
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, fmt.Errorf("%w for website %s", ErrNoHistory, websiteID)
	}
	return &events[0], nil
}

// List 按时间顺序返回网站最近 limit 条事件，limit <= 0 表示全部
func (s *HistoryStore) List(ctx context.Context, websiteID string, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = -1
	}
	return s.query(ctx,
		`SELECT run_id, website_id, status, step, reason, start_time, end_time FROM (
			SELECT * FROM generation_events WHERE website_id = ? ORDER BY id DESC LIMIT ?
		) ORDER BY id`,
		websiteID, limit)
}

// RunEvents 返回一次任务的全部事件
func (s *HistoryStore) RunEvents(ctx context.Context, runID string) ([]Event, error) {
	return s.query(ctx,
		"SELECT run_id, website_id, status, step, reason, start_time, end_time FROM generation_events WHERE run_id = ? ORDER BY id",
		runID)
}

func (s *HistoryStore) query(ctx context.Context, q string, args ...any) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var (
			e     Event
			start int64
			end   sql.NullInt64
		)
		if err := rows.Scan(&e.RunID, &e.WebsiteID, &e.Status, &e.Step, &e.Reason, &start, &end); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.StartTime = time.Unix(0, start)
		if end.Valid {
			t := time.Unix(0, end.Int64)
			e.EndTime = &t
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return events, nil
}

// Close 关闭数据库连接
func (s *HistoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
