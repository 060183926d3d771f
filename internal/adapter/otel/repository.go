package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/neomorfeo/ledgerlab/internal/domain"
)

const tracerName = "github.com/neomorfeo/ledgerlab/internal/adapter/otel"

// TracingRepository wraps a domain.Repository with OpenTelemetry tracing.
// Each method creates a span with semantic attributes and records errors.
type TracingRepository struct {
	next   domain.Repository
	tracer trace.Tracer
}

// Compile-time check: TracingRepository implements domain.Repository.
var _ domain.Repository = (*TracingRepository)(nil)

// NewTracingRepository creates a tracing decorator around the given repository.
func NewTracingRepository(next domain.Repository) *TracingRepository {
	return &TracingRepository{
		next:   next,
		tracer: otel.Tracer(tracerName),
	}
}

func (r *TracingRepository) GetTenantContext(ctx context.Context, tenantID string) (domain.TenantContext, error) {
	ctx, span := r.tracer.Start(ctx, "Repository.GetTenantContext",
		trace.WithAttributes(attribute.String("tenant.id", tenantID)),
	)
	defer span.End()

	tc, err := r.next.GetTenantContext(ctx, tenantID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetAttributes(
			attribute.Int("context.accounts", len(tc.Accounts)),
			attribute.Int("context.tax_rates", len(tc.TaxRates)),
			attribute.Int("context.contacts", len(tc.Contacts)),
		)
	}
	return tc, err
}

func (r *TracingRepository) GetDocument(ctx context.Context, tenantID, documentID string) (domain.Document, error) {
	ctx, span := r.tracer.Start(ctx, "Repository.GetDocument",
		trace.WithAttributes(
			attribute.String("tenant.id", tenantID),
			attribute.String("document.id", documentID),
		),
	)
	defer span.End()

	doc, err := r.next.GetDocument(ctx, tenantID, documentID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return doc, err
}

func (r *TracingRepository) ListDocuments(ctx context.Context, tenantID string, filter domain.DocumentFilter) ([]domain.Document, error) {
	ctx, span := r.tracer.Start(ctx, "Repository.ListDocuments",
		trace.WithAttributes(
			attribute.String("tenant.id", tenantID),
			attribute.Int("filter.limit", filter.Limit),
			attribute.Int("filter.offset", filter.Offset),
		),
	)
	defer span.End()

	if filter.Type != nil {
		span.SetAttributes(attribute.String("filter.type", string(*filter.Type)))
	}
	if filter.Status != nil {
		span.SetAttributes(attribute.String("filter.status", string(*filter.Status)))
	}

	docs, err := r.next.ListDocuments(ctx, tenantID, filter)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetAttributes(attribute.Int("result.count", len(docs)))
	}
	return docs, err
}

func (r *TracingRepository) CreateDocument(ctx context.Context, doc domain.Document) error {
	ctx, span := r.tracer.Start(ctx, "Repository.CreateDocument",
		trace.WithAttributes(
			attribute.String("tenant.id", doc.TenantID),
			attribute.String("document.id", doc.ID),
			attribute.String("document.type", string(doc.Type)),
		),
	)
	defer span.End()

	err := r.next.CreateDocument(ctx, doc)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (r *TracingRepository) UpdateDocumentStatus(ctx context.Context, tenantID, documentID string, status domain.Status) error {
	ctx, span := r.tracer.Start(ctx, "Repository.UpdateDocumentStatus",
		trace.WithAttributes(
			attribute.String("tenant.id", tenantID),
			attribute.String("document.id", documentID),
			attribute.String("document.status", string(status)),
		),
	)
	defer span.End()

	err := r.next.UpdateDocumentStatus(ctx, tenantID, documentID, status)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (r *TracingRepository) CreatePayment(ctx context.Context, payment domain.Payment) error {
	ctx, span := r.tracer.Start(ctx, "Repository.CreatePayment",
		trace.WithAttributes(
			attribute.String("tenant.id", payment.TenantID),
			attribute.String("document.id", payment.DocumentID),
			attribute.Float64("payment.amount", payment.Amount),
		),
	)
	defer span.End()

	err := r.next.CreatePayment(ctx, payment)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (r *TracingRepository) ListPayments(ctx context.Context, tenantID, documentID string) ([]domain.Payment, error) {
	ctx, span := r.tracer.Start(ctx, "Repository.ListPayments",
		trace.WithAttributes(
			attribute.String("tenant.id", tenantID),
			attribute.String("document.id", documentID),
		),
	)
	defer span.End()

	payments, err := r.next.ListPayments(ctx, tenantID, documentID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetAttributes(attribute.Int("result.count", len(payments)))
	}
	return payments, err
}
