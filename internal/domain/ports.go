package domain

import "context"

// Repository defines the persistence contract for the sandbox store.
type Repository interface {
	GetTenantContext(ctx context.Context, tenantID string) (TenantContext, error)
	GetDocument(ctx context.Context, tenantID, documentID string) (Document, error)
	ListDocuments(ctx context.Context, tenantID string, filter DocumentFilter) ([]Document, error)
	CreateDocument(ctx context.Context, doc Document) error
	UpdateDocumentStatus(ctx context.Context, tenantID, documentID string, status Status) error
	CreatePayment(ctx context.Context, payment Payment) error
	ListPayments(ctx context.Context, tenantID, documentID string) ([]Payment, error)
}

// DocumentFilter holds optional criteria for listing documents.
type DocumentFilter struct {
	Type   *DocumentType
	Status *Status
	Limit  int
	Offset int
}

// Event identifies something that happened in the sandbox worth auditing.
type Event string

const (
	EventDocumentCreated      Event = "document.created"
	EventDocumentTransitioned Event = "document.transitioned"
	EventPaymentCreated       Event = "payment.created"
	EventSimulationChanged    Event = "simulation.changed"
)

// EventRecord is the snapshot attached to a published event. DocumentID is
// empty for simulation events; Detail carries event-specific context such
// as the chaos condition.
type EventRecord struct {
	TenantID     string
	DocumentID   string
	DocumentType DocumentType
	Status       Status
	Detail       string
}

// EventPublisher defines the contract for emitting sandbox events.
type EventPublisher interface {
	Publish(ctx context.Context, event Event, record EventRecord) error
}

// EdgeValidator checks that a single state transition edge is legal for a
// document variant.
type EdgeValidator interface {
	Apply(ctx context.Context, docType DocumentType, current, next Status) error
}
