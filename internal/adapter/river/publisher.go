package river

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/riverqueue/river"

	"github.com/neomorfeo/ledgerlab/internal/domain"
)

// Compile-time check: Publisher implements domain.EventPublisher.
var _ domain.EventPublisher = (*Publisher)(nil)

// AuditJobArgs carries a sandbox event into the async audit trail. River
// serializes this as JSON into its job queue table. It snapshots the
// event record at publish time, so the worker never needs to query the
// database.
type AuditJobArgs struct {
	Event        string `json:"event"`
	TenantID     string `json:"tenant_id"`
	DocumentID   string `json:"document_id,omitempty"`
	DocumentType string `json:"document_type,omitempty"`
	Status       string `json:"status,omitempty"`
	Detail       string `json:"detail,omitempty"`
}

// Kind returns the unique job type identifier used by River's job routing.
func (AuditJobArgs) Kind() string { return "sandbox.event" }

// Client is the River client type parameterized for SQLite (*sql.Tx).
type Client = river.Client[*sql.Tx]

// Publisher implements domain.EventPublisher by enqueuing River jobs.
type Publisher struct {
	client *Client
}

// NewPublisher creates a publisher backed by the given River client.
func NewPublisher(client *Client) *Publisher {
	return &Publisher{client: client}
}

// Publish enqueues a sandbox event as an async audit job in River.
func (p *Publisher) Publish(ctx context.Context, event domain.Event, record domain.EventRecord) error {
	_, err := p.client.Insert(ctx, AuditJobArgs{
		Event:        string(event),
		TenantID:     record.TenantID,
		DocumentID:   record.DocumentID,
		DocumentType: string(record.DocumentType),
		Status:       string(record.Status),
		Detail:       record.Detail,
	}, nil)
	if err != nil {
		return fmt.Errorf("enqueuing audit job: %w", err)
	}
	return nil
}
