package store

import (
	"context"
	"time"
)

// signal records that the document changed. A pending signal already covers this one.
func (s *Store) signal() {
	select {
	case s.changes <- struct{}{}:
	default:
	}
}

// autosave consumes change signals and saves once no change has arrived for the
// quiescence window. Intermediate states inside the window are never sent.
func (s *Store) autosave() {
	defer s.loop.Done()

	timer := time.NewTimer(s.delay)
	timer.Stop()
	var fire <-chan time.Time

	for {
		select {
		case <-s.changes:
			timer.Reset(s.delay)
			fire = timer.C
		case <-fire:
			fire = nil
			s.writes.Add(1)
			go func() {
				defer s.writes.Done()
				// Errors are already logged and published by Persist.
				_ = s.Persist(context.Background())
			}()
		case <-s.done:
			timer.Stop()
			return
		}
	}
}
