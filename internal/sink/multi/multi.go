// Package multi fans one audit stream out to several sinks.
package multi

import (
	"context"
	"errors"

	"auditflow/internal/emission"
)

// Sink forwards every record to each member in order. All members see every
// record even when an earlier one fails; errors are joined.
type Sink struct {
	members []emission.Sink
}

func New(members ...emission.Sink) *Sink {
	return &Sink{members: members}
}

func (s *Sink) Record(ctx context.Context, ev emission.Event, inv emission.Invocation) error {
	var errs []error
	for _, m := range s.members {
		if err := m.Record(ctx, ev, inv); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
