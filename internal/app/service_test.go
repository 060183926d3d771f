package app_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/neomorfeo/ledgerlab/internal/app"
	"github.com/neomorfeo/ledgerlab/internal/domain"

	fsmadapter "github.com/neomorfeo/ledgerlab/internal/adapter/fsm"
)

func newService(repo *mockRepo) (*app.SandboxService, *capturePublisher) {
	pub := &capturePublisher{}
	svc := app.NewSandboxService(repo, fsmadapter.New(), pub, app.NewIdempotencyStore(), app.NewChaosSimulator())
	return svc, pub
}

func TestService_CreateDocument(t *testing.T) {
	repo := newMockRepo()
	svc, pub := newService(repo)

	doc, replayed, err := svc.CreateDocument(context.Background(), "demo", app.KindInvoice, "", invoicePayload(goodLine()))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if replayed {
		t.Error("fresh create reported replayed")
	}

	if doc.Status != domain.StatusDraft {
		t.Errorf("status = %s, want DRAFT", doc.Status)
	}
	if doc.Type != domain.DocTypeInvoice {
		t.Errorf("type = %s, want INVOICE", doc.Type)
	}
	if doc.Currency != "NZD" {
		t.Errorf("currency = %q, want tenant default NZD", doc.Currency)
	}
	if doc.Total != 300 {
		t.Errorf("total = %v, want 300 (2 x 150)", doc.Total)
	}

	stored, ok := repo.docs[doc.ID]
	if !ok {
		t.Fatalf("document %s not persisted", doc.ID)
	}
	if stored.Status != domain.StatusDraft {
		t.Errorf("stored status = %s, want DRAFT", stored.Status)
	}

	if len(pub.events) != 1 || pub.events[0] != domain.EventDocumentCreated {
		t.Errorf("events = %v, want one document.created", pub.events)
	}
}

func TestService_CreateDocumentRejectsInvalidPayload(t *testing.T) {
	repo := newMockRepo()
	svc, _ := newService(repo)

	line := goodLine()
	line["account_code"] = "999"
	_, _, err := svc.CreateDocument(context.Background(), "demo", app.KindInvoice, "", invoicePayload(line))

	var rejected *domain.ValidationRejectedError
	if !errors.As(err, &rejected) {
		t.Fatalf("err = %v, want ValidationRejectedError", err)
	}
	if rejected.Result.Valid {
		t.Error("rejected result marked valid")
	}
	if repo.created != 0 {
		t.Errorf("documents created = %d, want 0", repo.created)
	}
}

func TestService_CreateDocumentUnknownTenant(t *testing.T) {
	repo := newMockRepo()
	svc, _ := newService(repo)

	_, _, err := svc.CreateDocument(context.Background(), "ghost", app.KindInvoice, "", invoicePayload(goodLine()))
	if !errors.Is(err, domain.ErrTenantNotFound) {
		t.Fatalf("err = %v, want ErrTenantNotFound", err)
	}
}

func TestService_CreateDocumentIdempotent(t *testing.T) {
	repo := newMockRepo()
	svc, _ := newService(repo)

	first, replayed, err := svc.CreateDocument(context.Background(), "demo", app.KindInvoice, "retry-1", invoicePayload(goodLine()))
	if err != nil {
		t.Fatalf("first create: %v", err)
	}
	if replayed {
		t.Error("first create reported replayed")
	}

	second, replayed, err := svc.CreateDocument(context.Background(), "demo", app.KindInvoice, "retry-1", invoicePayload(goodLine()))
	if err != nil {
		t.Fatalf("second create: %v", err)
	}
	if !replayed {
		t.Error("second create did not report replayed")
	}

	if first.ID != second.ID {
		t.Errorf("replay ID = %s, want %s", second.ID, first.ID)
	}
	if repo.created != 1 {
		t.Errorf("documents created = %d, want exactly 1", repo.created)
	}
}

func TestService_IdempotencyKeysScopedByKind(t *testing.T) {
	repo := newMockRepo()
	svc, _ := newService(repo)

	inv, _, err := svc.CreateDocument(context.Background(), "demo", app.KindInvoice, "retry-1", invoicePayload(goodLine()))
	if err != nil {
		t.Fatalf("invoice create: %v", err)
	}
	quo, replayed, err := svc.CreateDocument(context.Background(), "demo", app.KindQuote, "retry-1", invoicePayload(goodLine()))
	if err != nil {
		t.Fatalf("quote create: %v", err)
	}

	if replayed {
		t.Error("quote create replayed the invoice record")
	}
	if inv.ID == quo.ID {
		t.Error("invoice and quote share an ID across operations")
	}
	if repo.created != 2 {
		t.Errorf("documents created = %d, want 2", repo.created)
	}
}

func TestService_ChaosBlocksWrites(t *testing.T) {
	repo := newMockRepo(domain.Document{
		ID: "inv-1", TenantID: "demo", Type: domain.DocTypeInvoice, Status: domain.StatusDraft,
	})
	svc, _ := newService(repo)

	if _, err := svc.Simulate(context.Background(), "demo", domain.ChaosRateLimit, 60, 0); err != nil {
		t.Fatalf("simulate: %v", err)
	}

	_, _, err := svc.CreateDocument(context.Background(), "demo", app.KindInvoice, "", invoicePayload(goodLine()))
	var fault *domain.SimulatedFaultError
	if !errors.As(err, &fault) {
		t.Fatalf("create err = %v, want SimulatedFaultError", err)
	}
	if fault.StatusCode != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", fault.StatusCode)
	}

	_, err = svc.Transition(context.Background(), "demo", domain.DocTypeInvoice, "inv-1", domain.StatusSubmitted, nil)
	if !errors.As(err, &fault) {
		t.Fatalf("transition err = %v, want SimulatedFaultError", err)
	}

	if repo.created != 0 {
		t.Errorf("documents created = %d, want 0 under chaos", repo.created)
	}
}

func TestService_ValidateIgnoresChaos(t *testing.T) {
	repo := newMockRepo()
	svc, _ := newService(repo)

	if _, err := svc.Simulate(context.Background(), "demo", domain.ChaosServerError, 60, 0); err != nil {
		t.Fatalf("simulate: %v", err)
	}

	result, err := svc.Validate(context.Background(), "demo", app.KindInvoice, invoicePayload(goodLine()))
	if err != nil {
		t.Fatalf("validate under chaos: %v", err)
	}
	if !result.Valid {
		t.Errorf("valid = false, errors = %v", result.Errors)
	}
}

func TestService_ValidatePaymentResolvesRepositoryDocument(t *testing.T) {
	repo := newMockRepo(domain.Document{
		ID: "inv-1", TenantID: "demo", Type: domain.DocTypeInvoice, Status: domain.StatusAuthorised,
	})
	svc, _ := newService(repo)

	result, err := svc.Validate(context.Background(), "demo", app.KindPayment, map[string]any{
		"document_id":  "inv-1",
		"account_code": "090",
		"amount":       100.0,
	})
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !result.Valid {
		t.Errorf("valid = false, errors = %v", result.Errors)
	}
}

func TestService_SimulateUnknownTenant(t *testing.T) {
	repo := newMockRepo()
	svc, _ := newService(repo)

	_, err := svc.Simulate(context.Background(), "ghost", domain.ChaosRateLimit, 60, 0)
	if !errors.Is(err, domain.ErrTenantNotFound) {
		t.Fatalf("err = %v, want ErrTenantNotFound", err)
	}
}

func TestService_SimulateLifecycleEvents(t *testing.T) {
	repo := newMockRepo()
	svc, pub := newService(repo)

	status, err := svc.Simulate(context.Background(), "demo", domain.ChaosTimeout, 60, 0)
	if err != nil {
		t.Fatalf("activate: %v", err)
	}
	if status.Active == nil || status.Active.Condition != domain.ChaosTimeout {
		t.Fatalf("active = %+v, want TIMEOUT", status.Active)
	}

	if state, ok := svc.SimulationStatus("demo"); !ok || state.Condition != domain.ChaosTimeout {
		t.Errorf("status = %+v ok = %v, want active TIMEOUT", state, ok)
	}

	status, err = svc.Simulate(context.Background(), "demo", domain.ChaosTimeout, 0, 0)
	if err != nil {
		t.Fatalf("clear: %v", err)
	}
	if status.Active != nil {
		t.Errorf("active = %+v, want nil after clear", status.Active)
	}
	if status.Previous == nil || status.Previous.Condition != domain.ChaosTimeout {
		t.Errorf("previous = %+v, want the cleared TIMEOUT state", status.Previous)
	}

	if len(pub.records) != 2 {
		t.Fatalf("events = %d, want 2", len(pub.records))
	}
	if pub.records[0].Detail != "TIMEOUT" || pub.records[1].Detail != "cleared" {
		t.Errorf("details = %q, %q; want TIMEOUT then cleared", pub.records[0].Detail, pub.records[1].Detail)
	}
}
