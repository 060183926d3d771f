package otel_test

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	adapter "github.com/neomorfeo/ledgerlab/internal/adapter/otel"
	"github.com/neomorfeo/ledgerlab/internal/domain"
)

// --- Test tracer setup ---

func setupTestTracer(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return exporter
}

// --- Mock repository ---

type mockRepo struct {
	tenants  map[string]domain.TenantContext
	docs     map[string]domain.Document
	payments map[string][]domain.Payment
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		tenants:  make(map[string]domain.TenantContext),
		docs:     make(map[string]domain.Document),
		payments: make(map[string][]domain.Payment),
	}
}

func (m *mockRepo) GetTenantContext(_ context.Context, tenantID string) (domain.TenantContext, error) {
	tc, ok := m.tenants[tenantID]
	if !ok {
		return domain.TenantContext{}, domain.ErrTenantNotFound
	}
	return tc, nil
}

func (m *mockRepo) GetDocument(_ context.Context, _, documentID string) (domain.Document, error) {
	doc, ok := m.docs[documentID]
	if !ok {
		return domain.Document{}, &domain.NotFoundError{Resource: "document", ID: documentID}
	}
	return doc, nil
}

func (m *mockRepo) ListDocuments(_ context.Context, _ string, _ domain.DocumentFilter) ([]domain.Document, error) {
	out := make([]domain.Document, 0, len(m.docs))
	for _, d := range m.docs {
		out = append(out, d)
	}
	return out, nil
}

func (m *mockRepo) CreateDocument(_ context.Context, doc domain.Document) error {
	m.docs[doc.ID] = doc
	return nil
}

func (m *mockRepo) UpdateDocumentStatus(_ context.Context, _, documentID string, status domain.Status) error {
	doc, ok := m.docs[documentID]
	if !ok {
		return &domain.NotFoundError{Resource: "document", ID: documentID}
	}
	doc.Status = status
	m.docs[documentID] = doc
	return nil
}

func (m *mockRepo) CreatePayment(_ context.Context, p domain.Payment) error {
	m.payments[p.DocumentID] = append(m.payments[p.DocumentID], p)
	return nil
}

func (m *mockRepo) ListPayments(_ context.Context, _, documentID string) ([]domain.Payment, error) {
	return m.payments[documentID], nil
}

// --- Tests ---

func TestTracingRepository_GetTenantContext_RecordsSpan(t *testing.T) {
	exporter := setupTestTracer(t)
	inner := newMockRepo()
	repo := adapter.NewTracingRepository(inner)

	inner.tenants["demo"] = domain.TenantContext{
		TenantID: "demo",
		Accounts: []domain.Account{{Code: "200"}},
		Contacts: []domain.Contact{{ID: "c-001"}},
	}

	tc, err := repo.GetTenantContext(context.Background(), "demo")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tc.TenantID != "demo" {
		t.Errorf("tenant = %q, want demo", tc.TenantID)
	}

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	if spans[0].Name != "Repository.GetTenantContext" {
		t.Errorf("span name = %q, want %q", spans[0].Name, "Repository.GetTenantContext")
	}

	assertAttribute(t, spans[0], "tenant.id", "demo")
	assertAttribute(t, spans[0], "context.accounts", "1")
}

func TestTracingRepository_GetDocument_RecordsError(t *testing.T) {
	exporter := setupTestTracer(t)
	inner := newMockRepo()
	repo := adapter.NewTracingRepository(inner)

	_, err := repo.GetDocument(context.Background(), "demo", "inv-404")

	var notFound *domain.NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}

	if spans[0].Status.Code != codes.Error {
		t.Errorf("span status = %v, want %v", spans[0].Status.Code, codes.Error)
	}
	if len(spans[0].Events) == 0 {
		t.Error("expected error event on span")
	}
}

func TestTracingRepository_ListDocuments_RecordsResultCount(t *testing.T) {
	exporter := setupTestTracer(t)
	inner := newMockRepo()
	repo := adapter.NewTracingRepository(inner)

	inner.docs["inv-1"] = domain.Document{ID: "inv-1", Type: domain.DocTypeInvoice}
	inner.docs["quo-1"] = domain.Document{ID: "quo-1", Type: domain.DocTypeQuote}

	docs, err := repo.ListDocuments(context.Background(), "demo", domain.DocumentFilter{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(docs) != 2 {
		t.Errorf("got %d documents, want 2", len(docs))
	}

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}

	assertAttribute(t, spans[0], "result.count", "2")
}

func TestTracingRepository_UpdateDocumentStatus_RecordsSpan(t *testing.T) {
	exporter := setupTestTracer(t)
	inner := newMockRepo()
	repo := adapter.NewTracingRepository(inner)

	inner.docs["inv-1"] = domain.Document{ID: "inv-1", Status: domain.StatusDraft}

	if err := repo.UpdateDocumentStatus(context.Background(), "demo", "inv-1", domain.StatusSubmitted); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	if spans[0].Name != "Repository.UpdateDocumentStatus" {
		t.Errorf("span name = %q, want %q", spans[0].Name, "Repository.UpdateDocumentStatus")
	}

	assertAttribute(t, spans[0], "document.status", "SUBMITTED")
}

func TestTracingRepository_CreatePayment_RecordsSpan(t *testing.T) {
	exporter := setupTestTracer(t)
	inner := newMockRepo()
	repo := adapter.NewTracingRepository(inner)

	payment := domain.Payment{ID: "pay-1", TenantID: "demo", DocumentID: "inv-1", Amount: 345}
	if err := repo.CreatePayment(context.Background(), payment); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	if spans[0].Name != "Repository.CreatePayment" {
		t.Errorf("span name = %q, want %q", spans[0].Name, "Repository.CreatePayment")
	}

	assertAttribute(t, spans[0], "payment.amount", "345")
	assertAttribute(t, spans[0], "document.id", "inv-1")
}

// assertAttribute checks that a span has an attribute with the given key and string value.
func assertAttribute(t *testing.T, span tracetest.SpanStub, key, want string) {
	t.Helper()
	for _, attr := range span.Attributes {
		if string(attr.Key) == key {
			got := attr.Value.Emit()
			if got != want {
				t.Errorf("attribute %q = %q, want %q", key, got, want)
			}
			return
		}
	}
	t.Errorf("attribute %q not found on span %q", key, span.Name)
}
