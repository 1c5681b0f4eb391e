package recipient

import (
	"fmt"
	"time"
)

// Registry is the ordered set of recipients. Names are unique.
//
// Registry itself does not lock: the scheduler owns it and mutates each
// recipient from at most one goroutine per tick.
type Registry struct {
	list   []*Recipient
	byName map[string]*Recipient
}

// NewRegistry validates recs and builds a registry preserving their order.
func NewRegistry(recs ...Recipient) (*Registry, error) {
	reg := &Registry{
		list:   make([]*Recipient, 0, len(recs)),
		byName: make(map[string]*Recipient, len(recs)),
	}
	for i := range recs {
		r := recs[i]
		if err := r.validate(); err != nil {
			return nil, err
		}
		if _, dup := reg.byName[r.Name]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateName, r.Name)
		}
		r.NextDue = r.NextDue.UTC()
		reg.list = append(reg.list, &r)
		reg.byName[r.Name] = &r
	}
	return reg, nil
}

func (rg *Registry) Len() int { return len(rg.list) }

// All returns the recipients in registry order. The pointers are live.
func (rg *Registry) All() []*Recipient { return rg.list }

// Lookup returns the recipient called name.
func (rg *Registry) Lookup(name string) (*Recipient, bool) {
	r, ok := rg.byName[name]
	return r, ok
}

// Due returns the recipients owed a reminder at now, in registry order.
func (rg *Registry) Due(now time.Time) []*Recipient {
	var out []*Recipient
	for _, r := range rg.list {
		if r.Due(now) {
			out = append(out, r)
		}
	}
	return out
}

