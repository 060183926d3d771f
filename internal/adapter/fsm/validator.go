package fsm

import (
	"context"
	"errors"

	loopfsm "github.com/looplab/fsm"

	"github.com/neomorfeo/ledgerlab/internal/domain"
)

// Compile-time check: Validator implements domain.EdgeValidator.
var _ domain.EdgeValidator = (*Validator)(nil)

// events holds, per document variant, the domain transition tables
// converted into looplab/fsm EventDesc format. Event names are the
// destination state, with sources grouped (e.g. VOIDED is reachable from
// DRAFT, SUBMITTED, and AUTHORISED through a single event).
var events = buildEvents()

func buildEvents() map[domain.DocumentType][]loopfsm.EventDesc {
	out := make(map[domain.DocumentType][]loopfsm.EventDesc, len(domain.Transitions))

	for docType, graph := range domain.Transitions {
		grouped := make(map[domain.Status][]string)
		var order []domain.Status

		for src, dsts := range graph {
			for _, dst := range dsts {
				if _, exists := grouped[dst]; !exists {
					order = append(order, dst)
				}
				grouped[dst] = append(grouped[dst], string(src))
			}
		}

		descs := make([]loopfsm.EventDesc, 0, len(order))
		for _, dst := range order {
			descs = append(descs, loopfsm.EventDesc{
				Name: string(dst),
				Src:  grouped[dst],
				Dst:  string(dst),
			})
		}
		out[docType] = descs
	}

	return out
}

// Validator implements domain.EdgeValidator using looplab/fsm. It creates
// a short-lived FSM instance per Apply call, initialized with the
// document's current state. This is necessary because looplab/fsm is
// stateful (it tracks the current state internally).
type Validator struct{}

// New creates a new FSM-backed edge validator.
func New() *Validator {
	return &Validator{}
}

// Apply checks that moving from current to next is a single legal edge for
// the variant. Returns a domain.IllegalTransitionError listing the allowed
// next states when it is not.
func (v *Validator) Apply(ctx context.Context, docType domain.DocumentType, current, next domain.Status) error {
	descs, ok := events[docType]
	if !ok {
		return &domain.UnknownStateError{DocType: docType, State: current}
	}

	machine := loopfsm.NewFSM(string(current), descs, nil)

	if err := machine.Event(ctx, string(next)); err != nil {
		var invalidEvent loopfsm.InvalidEventError
		var unknownEvent loopfsm.UnknownEventError
		var noTransition loopfsm.NoTransitionError
		if errors.As(err, &invalidEvent) || errors.As(err, &unknownEvent) || errors.As(err, &noTransition) {
			return &domain.IllegalTransitionError{
				DocType: docType,
				Current: current,
				Target:  next,
				Allowed: domain.AllowedFrom(docType, current),
			}
		}
		return err
	}

	return nil
}
