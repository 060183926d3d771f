package app

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/neomorfeo/ledgerlab/internal/domain"
)

// SimulationStatus reports the outcome of a chaos activation: the condition
// now in force (nil after a clear) and the one it replaced, if any.
type SimulationStatus struct {
	Active   *domain.SimulationState
	Previous *domain.SimulationState
}

// SandboxService orchestrates the sandbox write path: every mutating
// operation consults the chaos simulator first, then the idempotency store
// where a key is supplied, then the validator, and only then touches the
// repository.
type SandboxService struct {
	repo      domain.Repository
	validator *Validator
	driver    *LifecycleDriver
	idem      *IdempotencyStore
	chaos     *ChaosSimulator
	publisher domain.EventPublisher
}

// NewSandboxService creates a service with the given adapters. The
// idempotency store and chaos simulator are injected so tests can reset
// shared state between cases.
func NewSandboxService(repo domain.Repository, edges domain.EdgeValidator, publisher domain.EventPublisher, idem *IdempotencyStore, chaos *ChaosSimulator) *SandboxService {
	return &SandboxService{
		repo:      repo,
		validator: NewValidator(),
		driver:    NewLifecycleDriver(repo, edges, publisher),
		idem:      idem,
		chaos:     chaos,
		publisher: publisher,
	}
}

// Validate runs the two-phase validation of a candidate payload against
// the tenant's live configuration. Read-only: the chaos simulator is not
// consulted.
func (s *SandboxService) Validate(ctx context.Context, tenantID string, kind PayloadKind, raw map[string]any) (domain.ValidationResult, error) {
	tc, err := s.repo.GetTenantContext(ctx, tenantID)
	if err != nil {
		return domain.ValidationResult{}, err
	}
	return s.validator.Validate(tc, kind, raw, s.resolverFor(ctx, tenantID)), nil
}

// CreateDocument validates and persists a new draft document. When an
// idempotency key is supplied, a repeated call with the same key returns
// the original document byte-identically instead of creating a duplicate.
func (s *SandboxService) CreateDocument(ctx context.Context, tenantID string, kind PayloadKind, idempotencyKey string, raw map[string]any) (domain.Document, bool, error) {
	if decision := s.chaos.Check(tenantID); decision.ShouldFail {
		return domain.Document{}, false, &domain.SimulatedFaultError{Condition: decision.Condition, StatusCode: decision.StatusCode}
	}

	docType, ok := DocTypeForKind(kind)
	if !ok {
		return domain.Document{}, false, fmt.Errorf("entity type %q cannot be created directly", kind)
	}

	produce := func() ([]byte, error) {
		doc, err := s.createDocument(ctx, tenantID, docType, kind, raw)
		if err != nil {
			return nil, err
		}
		return json.Marshal(doc)
	}

	var (
		payload  []byte
		replayed bool
		err      error
	)
	if idempotencyKey == "" {
		payload, err = produce()
	} else {
		payload, replayed, err = s.idem.GetOrCreate(idempotencyKey, "create_"+string(kind), tenantID, produce)
	}
	if err != nil {
		return domain.Document{}, false, err
	}

	var doc domain.Document
	if err := json.Unmarshal(payload, &doc); err != nil {
		return domain.Document{}, false, fmt.Errorf("decoding stored document: %w", err)
	}
	return doc, replayed, nil
}

func (s *SandboxService) createDocument(ctx context.Context, tenantID string, docType domain.DocumentType, kind PayloadKind, raw map[string]any) (domain.Document, error) {
	tc, err := s.repo.GetTenantContext(ctx, tenantID)
	if err != nil {
		return domain.Document{}, err
	}

	result := s.validator.Validate(tc, kind, raw, s.resolverFor(ctx, tenantID))
	if !result.Valid {
		return domain.Document{}, &domain.ValidationRejectedError{Result: result}
	}

	parsed, _ := parseDocumentPayload(docType, raw)

	id, err := generateID(idPrefixFor(docType))
	if err != nil {
		return domain.Document{}, fmt.Errorf("generating document id: %w", err)
	}

	doc := parsed.toDocument(id, tenantID, tc.Currency)
	if err := s.repo.CreateDocument(ctx, doc); err != nil {
		return domain.Document{}, fmt.Errorf("creating document: %w", err)
	}

	if err := s.publisher.Publish(ctx, domain.EventDocumentCreated, domain.EventRecord{
		TenantID:     tenantID,
		DocumentID:   doc.ID,
		DocumentType: doc.Type,
		Status:       doc.Status,
	}); err != nil {
		return domain.Document{}, fmt.Errorf("publishing creation event: %w", err)
	}

	return doc, nil
}

// Transition drives a document to the target state through the lifecycle
// driver, consulting the chaos simulator first.
func (s *SandboxService) Transition(ctx context.Context, tenantID string, docType domain.DocumentType, documentID string, target domain.Status, payment *domain.PaymentDetails) (TransitionResult, error) {
	if decision := s.chaos.Check(tenantID); decision.ShouldFail {
		return TransitionResult{}, &domain.SimulatedFaultError{Condition: decision.Condition, StatusCode: decision.StatusCode}
	}
	return s.driver.Transition(ctx, tenantID, docType, documentID, target, payment)
}

// Simulate activates, replaces, or clears (duration zero) a fault
// condition for a tenant.
func (s *SandboxService) Simulate(ctx context.Context, tenantID string, condition domain.ChaosCondition, durationSeconds int, failureRate float64) (SimulationStatus, error) {
	// Unknown tenants get NotFound before any simulation state changes.
	if _, err := s.repo.GetTenantContext(ctx, tenantID); err != nil {
		return SimulationStatus{}, err
	}

	previous, current, err := s.chaos.Activate(tenantID, condition, durationSeconds, failureRate)
	if err != nil {
		return SimulationStatus{}, err
	}

	detail := "cleared"
	if current != nil {
		detail = string(current.Condition)
	}
	if err := s.publisher.Publish(ctx, domain.EventSimulationChanged, domain.EventRecord{
		TenantID: tenantID,
		Detail:   detail,
	}); err != nil {
		return SimulationStatus{}, fmt.Errorf("publishing simulation event: %w", err)
	}

	return SimulationStatus{Active: current, Previous: previous}, nil
}

// SimulationStatus returns the tenant's active condition, if any.
func (s *SandboxService) SimulationStatus(tenantID string) (domain.SimulationState, bool) {
	return s.chaos.Status(tenantID)
}

// CheckFault consults the chaos simulator. Every call counts against the
// tenant's request counter, active condition or not.
func (s *SandboxService) CheckFault(tenantID string) domain.FaultDecision {
	return s.chaos.Check(tenantID)
}

// GetTenantContext returns the tenant's validation universe.
func (s *SandboxService) GetTenantContext(ctx context.Context, tenantID string) (domain.TenantContext, error) {
	return s.repo.GetTenantContext(ctx, tenantID)
}

// GetDocument returns one document by ID.
func (s *SandboxService) GetDocument(ctx context.Context, tenantID, documentID string) (domain.Document, error) {
	return s.repo.GetDocument(ctx, tenantID, documentID)
}

// ListDocuments returns documents matching the given filter.
func (s *SandboxService) ListDocuments(ctx context.Context, tenantID string, filter domain.DocumentFilter) ([]domain.Document, error) {
	return s.repo.ListDocuments(ctx, tenantID, filter)
}

// ListPayments returns payments recorded against a document.
func (s *SandboxService) ListPayments(ctx context.Context, tenantID, documentID string) ([]domain.Payment, error) {
	return s.repo.ListPayments(ctx, tenantID, documentID)
}

func (s *SandboxService) resolverFor(ctx context.Context, tenantID string) DocumentResolver {
	return func(documentID string) (domain.Document, bool) {
		doc, err := s.repo.GetDocument(ctx, tenantID, documentID)
		if err != nil {
			return domain.Document{}, false
		}
		return doc, true
	}
}
