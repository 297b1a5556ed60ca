package main

import (
	"sync"

	"go.uber.org/zap"
)

// StatsRecorder applies world events to account statistics on its own
// goroutine so database writes never run under the game lock.
type StatsRecorder struct {
	db     *DB
	log    *zap.Logger
	events chan Event
	wg     sync.WaitGroup
	once   sync.Once
}

// NewStatsRecorder starts the writer
func NewStatsRecorder(db *DB, log *zap.Logger) *StatsRecorder {
	s := &StatsRecorder{
		db:     db,
		log:    log,
		events: make(chan Event, 256),
	}
	s.wg.Add(1)
	go s.run()
	return s
}

// Record queues an account event; guest events and overflow are dropped
func (s *StatsRecorder) Record(e Event) {
	if e.AuthID <= 0 {
		return
	}
	switch e.Type {
	case EventDeath, EventLeave, EventBlockPlaced, EventMealEaten:
	default:
		return
	}
	select {
	case s.events <- e:
	default:
		s.log.Warn("stats buffer full, dropping event", zap.String("type", string(e.Type)))
	}
}

// Stop drains queued events and waits for the writer
func (s *StatsRecorder) Stop() {
	s.once.Do(func() {
		close(s.events)
		s.wg.Wait()
	})
}

func (s *StatsRecorder) run() {
	defer s.wg.Done()
	for e := range s.events {
		if err := s.apply(e); err != nil {
			s.log.Warn("stats write", zap.String("type", string(e.Type)), zap.Int64("account", e.AuthID), zap.Error(err))
		}
	}
}

func (s *StatsRecorder) apply(e Event) error {
	switch e.Type {
	case EventDeath:
		return s.db.RecordDeath(e.AuthID, NeedKind(e.Detail), e.Value)
	case EventLeave:
		if e.Value <= 0 {
			return nil
		}
		return s.db.AddSurvived(e.AuthID, e.Value)
	case EventBlockPlaced:
		return s.db.AddBlocksPlaced(e.AuthID, 1)
	case EventMealEaten:
		return s.db.AddMealsEaten(e.AuthID, 1)
	}
	return nil
}
