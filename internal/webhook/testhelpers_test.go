package webhook_test

import (
	"context"
	"sync"

	"media-webhooks-api/internal/webhook"
)

// memStore is an in-memory RegistrationStore, HealthStore and AuditStore.
type memStore struct {
	mu       sync.Mutex
	regs     map[string]*webhook.Registration
	records  []webhook.DeliveryRecord
	inserted chan webhook.DeliveryRecord
	health   chan string
	findErr  error
}

func newMemStore(regs ...webhook.Registration) *memStore {
	s := &memStore{
		regs:     make(map[string]*webhook.Registration),
		inserted: make(chan webhook.DeliveryRecord, 64),
		health:   make(chan string, 64),
	}
	for i := range regs {
		r := regs[i]
		s.regs[r.ID] = &r
	}
	return s
}

func (s *memStore) FindActiveByTenantAndEvent(_ context.Context, tenantID string, _ webhook.EventType) ([]webhook.Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findErr != nil {
		return nil, s.findErr
	}
	// Deliberately returns every registration of the tenant so the resolver's own filter is exercised.
	var out []webhook.Registration
	for _, r := range s.regs {
		if r.TenantID == tenantID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (s *memStore) UpdateHealth(_ context.Context, webhookID string, success bool) error {
	s.mu.Lock()
	if r, ok := s.regs[webhookID]; ok {
		if success {
			r.FailureCount = 0
		} else {
			r.FailureCount++
		}
	}
	s.mu.Unlock()
	s.health <- webhookID
	return nil
}

func (s *memStore) InsertDeliveryRecord(_ context.Context, rec webhook.DeliveryRecord) error {
	s.mu.Lock()
	s.records = append(s.records, rec)
	s.mu.Unlock()
	s.inserted <- rec
	return nil
}

func (s *memStore) recordsFor(webhookID string) []webhook.DeliveryRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []webhook.DeliveryRecord
	for _, r := range s.records {
		if r.WebhookID == webhookID {
			out = append(out, r)
		}
	}
	return out
}

func (s *memStore) failureCount(webhookID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.regs[webhookID].FailureCount
}

// scriptedAttempter returns its outcomes in order, repeating the last one.
type scriptedAttempter struct {
	mu       sync.Mutex
	outcomes []webhook.AttemptOutcome
	requests []webhook.AttemptRequest
}

func (a *scriptedAttempter) Execute(_ context.Context, ar webhook.AttemptRequest) webhook.AttemptOutcome {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.requests = append(a.requests, ar)
	i := len(a.requests) - 1
	if i >= len(a.outcomes) {
		i = len(a.outcomes) - 1
	}
	return a.outcomes[i]
}

func (a *scriptedAttempter) calls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.requests)
}

func statusOutcome(code int) webhook.AttemptOutcome {
	return webhook.AttemptOutcome{
		StatusCode: &code,
		Success:    code >= 200 && code <= 299,
	}
}

func testRegistration(id, tenant, url string, events ...webhook.EventType) webhook.Registration {
	return webhook.Registration{
		ID:       id,
		TenantID: tenant,
		Name:     "hook " + id,
		URL:      url,
		Secret:   "whsec_testsecret0123456789abcdefghijkl",
		Events:   events,
		Active:   true,
	}
}
