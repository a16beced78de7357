package statemachine

import "slices"

// Builder assembles a Table fluently:
//
//	table := statemachine.NewBuilder[Form, Trigger, Methods]().
//		From(FormPasswordSignin).On(TriggerForgotPassword).To(FormForgotPassword).When(passwordEnabled).
//		Build()
type Builder[S, E comparable, D any] struct {
	table *Table[S, E, D]
}

func NewBuilder[S, E comparable, D any]() *Builder[S, E, D] {
	return &Builder[S, E, D]{table: &Table[S, E, D]{transitions: make(map[key[S, E]][]transition[S, E, D])}}
}

// Rule is a transition under construction.
type Rule[S, E comparable, D any] struct {
	b      *Builder[S, E, D]
	from   []S
	event  E
	to     S
	guards []Guard[S, E, D]
	added  bool
}

// From starts a rule that applies to each of the given source states.
func (b *Builder[S, E, D]) From(states ...S) *Rule[S, E, D] {
	return &Rule[S, E, D]{b: b, from: states}
}

func (r *Rule[S, E, D]) On(event E) *Rule[S, E, D] {
	r.event = event
	return r
}

// To registers the rule; guards may still be attached with When.
func (r *Rule[S, E, D]) To(state S) *Rule[S, E, D] {
	r.to = state
	r.commit()
	return r
}

// When adds guards to the registered rule.
func (r *Rule[S, E, D]) When(guards ...Guard[S, E, D]) *Rule[S, E, D] {
	r.guards = append(r.guards, guards...)
	r.commit()
	return r
}

// From finishes the current rule and starts another.
func (r *Rule[S, E, D]) From(states ...S) *Rule[S, E, D] {
	return r.b.From(states...)
}

func (r *Rule[S, E, D]) Build() *Table[S, E, D] {
	return r.b.Build()
}

func (b *Builder[S, E, D]) Build() *Table[S, E, D] {
	return b.table
}

func (r *Rule[S, E, D]) commit() {
	t := r.b.table
	if !slices.Contains(t.events, r.event) {
		t.events = append(t.events, r.event)
	}
	for _, from := range r.from {
		k := key[S, E]{from, r.event}
		list := t.transitions[k]
		if r.added {
			list[len(list)-1] = transition[S, E, D]{to: r.to, guards: r.guards}
		} else {
			list = append(list, transition[S, E, D]{to: r.to, guards: r.guards})
		}
		t.transitions[k] = list
	}
	r.added = true
}
