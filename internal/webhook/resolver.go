package webhook

import (
	"context"
	"fmt"
)

// Resolver finds the registrations that should receive an event.
type Resolver struct {
	store RegistrationStore
}

func NewResolver(store RegistrationStore) *Resolver {
	return &Resolver{store: store}
}

// Resolve returns every active registration of tenantID subscribed to event.
// No subscribers is a nil slice, not an error. Order is unspecified.
func (r *Resolver) Resolve(ctx context.Context, tenantID string, event EventType) ([]Registration, error) {
	if !event.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownEvent, int(event))
	}
	regs, err := r.store.FindActiveByTenantAndEvent(ctx, tenantID, event)
	if err != nil {
		return nil, fmt.Errorf("find registrations: %w", err)
	}

	var out []Registration
	for _, reg := range regs {
		if reg.TenantID != tenantID || !reg.Active || !reg.Subscribes(event) {
			continue
		}
		out = append(out, reg)
	}
	return out, nil
}
