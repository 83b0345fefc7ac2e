package webhook

import "context"

// RegistrationStore is what the resolver reads.
type RegistrationStore interface {
	FindActiveByTenantAndEvent(ctx context.Context, tenantID string, event EventType) ([]Registration, error)
}

// HealthStore records the outcome of a finished delivery sequence. Implementations
// must reset or increment failure_count in a single statement, never read-modify-write.
type HealthStore interface {
	UpdateHealth(ctx context.Context, webhookID string, success bool) error
}

// AuditStore appends delivery records.
type AuditStore interface {
	InsertDeliveryRecord(ctx context.Context, rec DeliveryRecord) error
}

// Repository persists registrations and their delivery history.
type Repository interface {
	RegistrationStore
	HealthStore
	AuditStore

	Create(ctx context.Context, r Registration) (Registration, error)
	Get(ctx context.Context, tenantID, id string) (Registration, error)
	List(ctx context.Context, tenantID string) ([]Registration, error)
	Update(ctx context.Context, r Registration) error
	Delete(ctx context.Context, tenantID, id string) error
	RotateSecret(ctx context.Context, tenantID, id, secret string) error
	ListDeliveries(ctx context.Context, tenantID, webhookID string, limit int) ([]DeliveryRecord, error)
}
