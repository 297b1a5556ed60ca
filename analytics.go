package main

import (
	"database/sql"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	analyticsBuffer     = 1024
	analyticsBatch      = 50
	analyticsFlushEvery = 5 * time.Second
)

// Analytics records world events with batched background writes
type Analytics struct {
	db     *DB
	log    *zap.Logger
	events chan Event
	stop   chan struct{}
	wg     sync.WaitGroup
	once   sync.Once

	mu      sync.Mutex
	dropped int
}

// NewAnalytics creates and starts the analytics background writer
func NewAnalytics(db *DB, log *zap.Logger) *Analytics {
	a := &Analytics{
		db:     db,
		log:    log,
		events: make(chan Event, analyticsBuffer),
		stop:   make(chan struct{}),
	}
	a.wg.Add(1)
	go a.writer()
	return a
}

// Record enqueues an event for async persistence; it never blocks
func (a *Analytics) Record(e Event) {
	if e.Type == EventInteraction {
		return
	}
	select {
	case a.events <- e:
	default:
		a.mu.Lock()
		a.dropped++
		a.mu.Unlock()
	}
}

// Dropped returns how many events overflowed the buffer
func (a *Analytics) Dropped() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.dropped
}

// Stop flushes pending events and shuts down the writer
func (a *Analytics) Stop() {
	a.once.Do(func() {
		close(a.stop)
		a.wg.Wait()
	})
}

func (a *Analytics) writer() {
	defer a.wg.Done()

	batch := make([]Event, 0, analyticsBatch)
	ticker := time.NewTicker(analyticsFlushEvery)
	defer ticker.Stop()

	for {
		select {
		case evt := <-a.events:
			batch = append(batch, evt)
			if len(batch) >= analyticsBatch {
				a.flush(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				a.flush(batch)
				batch = batch[:0]
			}
		case <-a.stop:
			for {
				select {
				case evt := <-a.events:
					batch = append(batch, evt)
				default:
					a.flush(batch)
					return
				}
			}
		}
	}
}

// flush writes a batch of events in one transaction
func (a *Analytics) flush(events []Event) {
	if a.db == nil || len(events) == 0 {
		return
	}
	tx, err := a.db.conn.Begin()
	if err != nil {
		a.log.Warn("begin tx", zap.Error(err))
		return
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO analytics_events (event_type, player_id, peer_id, data, created_at) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		a.log.Warn("prepare insert", zap.Error(err))
		return
	}
	defer stmt.Close()

	for _, evt := range events {
		pid := sql.NullInt64{Int64: evt.AuthID, Valid: evt.AuthID > 0}
		peer := sql.NullString{String: evt.PlayerID, Valid: evt.PlayerID != ""}
		data := evt.Detail
		if evt.Value != 0 {
			data += ":" + strconv.FormatFloat(evt.Value, 'f', 1, 64)
		}
		_, err := stmt.Exec(string(evt.Type), pid, peer,
			sql.NullString{String: data, Valid: data != ""},
			evt.At.UTC().Format(time.RFC3339))
		if err != nil {
			a.log.Warn("insert event", zap.String("type", string(evt.Type)), zap.Error(err))
		}
	}
	if err := tx.Commit(); err != nil {
		a.log.Warn("commit events", zap.Error(err))
	}
}

// EventCounts returns counts of each event type for the last N days
func (a *Analytics) EventCounts(days int) (map[string]int, error) {
	result := make(map[string]int)
	if a.db == nil {
		return result, nil
	}
	since := time.Now().UTC().AddDate(0, 0, -days).Format(time.RFC3339)
	rows, err := a.db.conn.Query(`
		SELECT event_type, COUNT(*) FROM analytics_events
		WHERE created_at >= ?
		GROUP BY event_type ORDER BY COUNT(*) DESC
	`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var evtType string
		var count int
		if err := rows.Scan(&evtType, &count); err != nil {
			return nil, err
		}
		result[evtType] = count
	}
	return result, rows.Err()
}

// DeathCauses returns death counts by cause for the last N days
func (a *Analytics) DeathCauses(days int) (map[string]int, error) {
	result := make(map[string]int)
	if a.db == nil {
		return result, nil
	}
	since := time.Now().UTC().AddDate(0, 0, -days).Format(time.RFC3339)
	rows, err := a.db.conn.Query(`
		SELECT substr(data, 1, instr(data || ':', ':') - 1) AS cause, COUNT(*)
		FROM analytics_events
		WHERE event_type = ? AND created_at >= ? AND data IS NOT NULL
		GROUP BY cause
	`, string(EventDeath), since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var cause string
		var count int
		if err := rows.Scan(&cause, &count); err != nil {
			return nil, err
		}
		result[cause] = count
	}
	return result, rows.Err()
}
