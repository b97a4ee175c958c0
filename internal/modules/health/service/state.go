package service

import (
	"sync/atomic"
	"time"
)

type State struct {
	ready     atomic.Bool
	startedAt time.Time

	exchangeOK     atomic.Bool
	lastSignalUnix atomic.Int64 // unix seconds
	signals        atomic.Int64
	failures       atomic.Int64
}

func NewState() *State {
	s := &State{startedAt: time.Now()}
	s.ready.Store(false)
	return s
}

func (s *State) SetReady(v bool) { s.ready.Store(v) }
func (s *State) Ready() bool     { return s.ready.Load() }

// SetExchangeOK — результат последнего обращения к бирже.
func (s *State) SetExchangeOK(v bool) { s.exchangeOK.Store(v) }
func (s *State) ExchangeOK() bool     { return s.exchangeOK.Load() }

// TouchSignal отмечает обработанный сигнал.
func (s *State) TouchSignal(t time.Time, failed bool) {
	s.lastSignalUnix.Store(t.Unix())
	s.signals.Add(1)
	if failed {
		s.failures.Add(1)
	}
}

func (s *State) LastSignal() time.Time {
	u := s.lastSignalUnix.Load()
	if u == 0 {
		return time.Time{}
	}
	return time.Unix(u, 0)
}

func (s *State) Signals() int64  { return s.signals.Load() }
func (s *State) Failures() int64 { return s.failures.Load() }

func (s *State) Uptime() time.Duration { return time.Since(s.startedAt) }
