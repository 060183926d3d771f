package otel_test

import (
	"context"
	"fmt"
	"testing"

	"go.opentelemetry.io/otel/codes"

	adapter "github.com/neomorfeo/ledgerlab/internal/adapter/otel"
	"github.com/neomorfeo/ledgerlab/internal/domain"
)

// --- Mock publisher ---

type mockPublisher struct {
	events []publishedEvent
}

type publishedEvent struct {
	event  domain.Event
	record domain.EventRecord
}

func (m *mockPublisher) Publish(_ context.Context, e domain.Event, r domain.EventRecord) error {
	m.events = append(m.events, publishedEvent{event: e, record: r})
	return nil
}

type failingPublisher struct{}

func (p *failingPublisher) Publish(_ context.Context, _ domain.Event, _ domain.EventRecord) error {
	return fmt.Errorf("publish failed")
}

// --- Tests ---

func TestTracingPublisher_Publish_RecordsSpan(t *testing.T) {
	exporter := setupTestTracer(t)
	inner := &mockPublisher{}
	pub := adapter.NewTracingPublisher(inner)

	record := domain.EventRecord{
		TenantID:     "demo",
		DocumentID:   "inv-1",
		DocumentType: domain.DocTypeInvoice,
		Status:       domain.StatusSubmitted,
	}
	if err := pub.Publish(context.Background(), domain.EventDocumentTransitioned, record); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	if spans[0].Name != "EventPublisher.Publish" {
		t.Errorf("span name = %q, want %q", spans[0].Name, "EventPublisher.Publish")
	}

	assertAttribute(t, spans[0], "event.type", "document.transitioned")
	assertAttribute(t, spans[0], "tenant.id", "demo")
	assertAttribute(t, spans[0], "document.id", "inv-1")

	if len(inner.events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(inner.events))
	}
}

func TestTracingPublisher_Publish_RecordsError(t *testing.T) {
	exporter := setupTestTracer(t)
	pub := adapter.NewTracingPublisher(&failingPublisher{})

	record := domain.EventRecord{TenantID: "demo"}
	err := pub.Publish(context.Background(), domain.EventSimulationChanged, record)
	if err == nil {
		t.Fatal("expected error")
	}

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}

	if spans[0].Status.Code != codes.Error {
		t.Errorf("span status = %v, want %v", spans[0].Status.Code, codes.Error)
	}
}
