package entity

import "sync"

// StopSignal is the externally owned stop request of a run. It can be
// requested any number of times; Done is closed on the first request.
type StopSignal struct {
	once sync.Once
	done chan struct{}
}

func NewStopSignal() *StopSignal {
	return &StopSignal{done: make(chan struct{})}
}

func (s *StopSignal) Stop() {
	s.once.Do(func() { close(s.done) })
}

func (s *StopSignal) Done() <-chan struct{} {
	return s.done
}

func (s *StopSignal) Stopped() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}
