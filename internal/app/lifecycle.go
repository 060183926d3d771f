package app

import (
	"context"
	"fmt"
	"time"

	"github.com/neomorfeo/ledgerlab/internal/domain"
)

// TransitionResult reports a completed (or attempted) lifecycle transition.
// Path is the full state sequence including the starting state. PaymentID
// and InvoiceID are set when the corresponding side effect ran.
type TransitionResult struct {
	DocumentID   string
	DocumentType domain.DocumentType
	Path         []domain.Status
	FinalStatus  domain.Status
	PaymentID    string
	InvoiceID    string
}

// LifecycleDriver computes and executes multi-step state transitions for
// business documents. It holds no document state between calls: it reads
// the current status, BFS-searches the variant's transition graph, and
// applies the path one edge at a time through the repository.
type LifecycleDriver struct {
	repo      domain.Repository
	edges     domain.EdgeValidator
	publisher domain.EventPublisher
}

// NewLifecycleDriver creates a driver with the given collaborators.
func NewLifecycleDriver(repo domain.Repository, edges domain.EdgeValidator, publisher domain.EventPublisher) *LifecycleDriver {
	return &LifecycleDriver{repo: repo, edges: edges, publisher: publisher}
}

// Transition moves a document to the target state along the shortest legal
// path, creating payments and quote conversions along the way. A failing
// step aborts immediately: prior steps stay committed (no compensating
// rollback) and the error reports the path prefix actually applied.
func (d *LifecycleDriver) Transition(ctx context.Context, tenantID string, docType domain.DocumentType, documentID string, target domain.Status, payment *domain.PaymentDetails) (TransitionResult, error) {
	result := TransitionResult{DocumentID: documentID, DocumentType: docType}

	if !domain.KnownStatus(docType, target) {
		return result, &domain.UnknownStateError{DocType: docType, State: target}
	}

	if target == domain.StatusPaid {
		if err := validatePaymentDetails(payment); err != nil {
			return result, err
		}
	}

	doc, err := d.repo.GetDocument(ctx, tenantID, documentID)
	if err != nil {
		return result, err
	}
	if doc.Type != docType {
		return result, &domain.NotFoundError{Resource: string(docType), ID: documentID}
	}

	if doc.Status == target {
		// Idempotent no-op: already there, no side effects.
		result.Path = []domain.Status{target}
		result.FinalStatus = target
		return result, nil
	}

	path := domain.ShortestPath(docType, doc.Status, target)
	if path == nil {
		return result, &domain.IllegalTransitionError{
			DocType: docType,
			Current: doc.Status,
			Target:  target,
			Allowed: domain.AllowedFrom(docType, doc.Status),
		}
	}

	committed := []domain.Status{doc.Status}
	for i := 1; i < len(path); i++ {
		next := path[i]
		if err := d.applyEdge(ctx, &doc, path[i-1], next, payment, &result); err != nil {
			result.Path = committed
			result.FinalStatus = committed[len(committed)-1]
			return result, &domain.PartialTransitionError{Completed: committed, Failed: next, Err: err}
		}
		committed = append(committed, next)
	}

	result.Path = path
	result.FinalStatus = target
	return result, nil
}

// applyEdge performs the side effect for one edge, then advances the
// document's status. Each edge's commit is a precondition for the next, so
// edges are never reordered or applied in parallel.
func (d *LifecycleDriver) applyEdge(ctx context.Context, doc *domain.Document, current, next domain.Status, payment *domain.PaymentDetails, result *TransitionResult) error {
	if err := d.edges.Apply(ctx, doc.Type, current, next); err != nil {
		return err
	}

	switch {
	case next == domain.StatusPaid:
		id, err := d.createPayment(ctx, *doc, payment)
		if err != nil {
			return err
		}
		result.PaymentID = id

	case next == domain.StatusInvoiced && doc.Type == domain.DocTypeQuote:
		id, err := d.convertQuote(ctx, *doc)
		if err != nil {
			return err
		}
		result.InvoiceID = id
	}

	if err := d.repo.UpdateDocumentStatus(ctx, doc.TenantID, doc.ID, next); err != nil {
		return fmt.Errorf("updating status to %q: %w", next, err)
	}
	doc.Status = next

	if err := d.publisher.Publish(ctx, domain.EventDocumentTransitioned, domain.EventRecord{
		TenantID:     doc.TenantID,
		DocumentID:   doc.ID,
		DocumentType: doc.Type,
		Status:       next,
	}); err != nil {
		return fmt.Errorf("publishing transition to %q: %w", next, err)
	}

	return nil
}

func (d *LifecycleDriver) createPayment(ctx context.Context, doc domain.Document, details *domain.PaymentDetails) (string, error) {
	id, err := generateID("pay")
	if err != nil {
		return "", fmt.Errorf("generating payment id: %w", err)
	}

	date := details.Date
	if date.IsZero() {
		date = time.Now().UTC()
	}

	payment := domain.Payment{
		ID:          id,
		TenantID:    doc.TenantID,
		DocumentID:  doc.ID,
		AccountCode: details.AccountCode,
		Amount:      details.Amount,
		Date:        date,
		Reference:   "lifecycle transition",
	}
	if err := d.repo.CreatePayment(ctx, payment); err != nil {
		return "", fmt.Errorf("creating payment: %w", err)
	}

	if err := d.publisher.Publish(ctx, domain.EventPaymentCreated, domain.EventRecord{
		TenantID:     doc.TenantID,
		DocumentID:   doc.ID,
		DocumentType: doc.Type,
		Status:       doc.Status,
		Detail:       id,
	}); err != nil {
		return "", fmt.Errorf("publishing payment event: %w", err)
	}

	return id, nil
}

func (d *LifecycleDriver) convertQuote(ctx context.Context, quote domain.Document) (string, error) {
	id, err := generateID(idPrefixFor(domain.DocTypeInvoice))
	if err != nil {
		return "", fmt.Errorf("generating invoice id: %w", err)
	}

	invoice := domain.InvoiceFromQuote(id, quote)
	if err := d.repo.CreateDocument(ctx, invoice); err != nil {
		return "", fmt.Errorf("creating invoice from quote: %w", err)
	}

	if err := d.publisher.Publish(ctx, domain.EventDocumentCreated, domain.EventRecord{
		TenantID:     invoice.TenantID,
		DocumentID:   invoice.ID,
		DocumentType: invoice.Type,
		Status:       invoice.Status,
		Detail:       quote.ID,
	}); err != nil {
		return "", fmt.Errorf("publishing invoice event: %w", err)
	}

	return id, nil
}

// validatePaymentDetails enforces the PAID preconditions: a positive
// amount and a bank account reference.
func validatePaymentDetails(details *domain.PaymentDetails) error {
	if details == nil {
		return &domain.PaymentRequiredError{Missing: "amount and account_code"}
	}
	if details.Amount <= 0 {
		return &domain.PaymentRequiredError{Missing: "positive amount"}
	}
	if details.AccountCode == "" {
		return &domain.PaymentRequiredError{Missing: "account_code"}
	}
	return nil
}
