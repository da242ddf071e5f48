package service

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/andresuchdata/autopo-reorder/internal/config"
	"github.com/andresuchdata/autopo-reorder/internal/provider"
	"github.com/andresuchdata/autopo-reorder/internal/reorder"
	"github.com/andresuchdata/autopo-reorder/internal/repository"
	"github.com/andresuchdata/autopo-reorder/internal/storage"
	"github.com/shopspring/decimal"
)

func fp(v float64) *float64 { return &v }

func fixtureItems() []reorder.Item {
	acme := &reorder.SupplierInfo{ID: 7, Name: "Acme", MinimumOrderQuantity: 12, IsActive: true}
	cost := decimal.NewFromInt(2)
	sid := int64(7)
	return []reorder.Item{
		{
			Product:  reorder.ProductReorderInput{ProductID: 1, SKU: "SKU-1", Cost: &cost, ReorderPoint: 20, PackSize: 5, SupplierID: &sid, OnHand: 10, Velocity7d: fp(2)},
			Supplier: acme,
		},
		{
			Product:  reorder.ProductReorderInput{ProductID: 2, SKU: "SKU-2", Cost: &cost, PackSize: 1, SupplierID: &sid, OnHand: 0, Velocity7d: fp(1)},
			Supplier: acme,
		},
		{
			Product: reorder.ProductReorderInput{ProductID: 3, SKU: "SKU-3", PackSize: 1, OnHand: 0, Velocity30d: fp(1)},
		},
		{
			Product: reorder.ProductReorderInput{ProductID: 4, SKU: "SKU-4", PackSize: 1, OnHand: 100},
		},
	}
}

type countingProvider struct {
	provider.MetricProvider
	calls int
}

func (c *countingProvider) FetchInputs(ctx context.Context, scope provider.Scope) ([]reorder.Item, error) {
	c.calls++
	return c.MetricProvider.FetchInputs(ctx, scope)
}

type invalidatingProvider struct {
	provider.MetricProvider
	invalidated []*provider.Scope
}

func (p *invalidatingProvider) Invalidate(ctx context.Context, scope *provider.Scope) error {
	p.invalidated = append(p.invalidated, scope)
	return nil
}

type fakeDraftRepo struct {
	batchID string
	saved   *reorder.DraftResult
	err     error
}

func (f *fakeDraftRepo) SaveDrafts(ctx context.Context, batchID string, result *reorder.DraftResult) ([]repository.SavedDraft, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.batchID = batchID
	f.saved = result
	out := make([]repository.SavedDraft, 0, len(result.Drafts))
	for i, d := range result.Drafts {
		out = append(out, repository.SavedDraft{ID: int64(i + 1), PONumber: d.PONumber, SupplierID: d.SupplierID})
	}
	return out, nil
}

type fakeStorage struct {
	storage.ObjectStorage
	uploads map[string][]byte
	err     error
}

func (f *fakeStorage) UploadObject(ctx context.Context, key string, data []byte, contentType string) error {
	if f.err != nil {
		return f.err
	}
	f.uploads[key] = data
	return nil
}

func newTestService(repo repository.DraftRepository, objects storage.ObjectStorage) (*ReorderService, *countingProvider) {
	p := &countingProvider{MetricProvider: provider.NewStaticProvider("fixture", fixtureItems())}
	svc := NewReorderService(p, repo, objects, config.ReorderConfig{DefaultStrategy: "latest", Workers: 2, PONumberPrefix: "PO"})
	svc.now = func() time.Time { return time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC) }
	return svc, p
}

func TestSuggest(t *testing.T) {
	svc, _ := newTestService(nil, nil)

	result, err := svc.Suggest(context.Background(), SuggestRequest{Params: svc.DefaultParams()})
	if err != nil {
		t.Fatalf("Suggest returned error: %v", err)
	}
	if result.Summary.TotalSuggestions != 3 {
		t.Errorf("Expected 3 suggestions, got %d", result.Summary.TotalSuggestions)
	}
	if len(result.Skipped) != 1 || result.Skipped[0].ProductID != 4 {
		t.Errorf("Expected product 4 skipped for zero velocity, got %+v", result.Skipped)
	}
}

func TestSuggest_ValidatesBeforeFetching(t *testing.T) {
	svc, p := newTestService(nil, nil)

	_, err := svc.Suggest(context.Background(), SuggestRequest{Params: reorder.Params{Strategy: "bogus"}})
	var verr *reorder.ValidationError
	if !errors.As(err, &verr) || verr.Field != "strategy" {
		t.Fatalf("Expected strategy validation error, got %v", err)
	}
	if p.calls != 0 {
		t.Errorf("Expected no provider call, got %d", p.calls)
	}
}

func TestExplain(t *testing.T) {
	svc, _ := newTestService(nil, nil)

	exp, err := svc.Explain(context.Background(), ExplainRequest{ProductID: 1})
	if err != nil {
		t.Fatalf("Explain returned error: %v", err)
	}
	if exp.Suggestion == nil || exp.Suggestion.RecommendedQuantity != 15 {
		t.Errorf("Expected 15 units, got %+v", exp.Suggestion)
	}

	_, err = svc.Explain(context.Background(), ExplainRequest{ProductID: 99})
	if !errors.Is(err, reorder.ErrProductNotFound) {
		t.Errorf("Expected ErrProductNotFound, got %v", err)
	}
}

func TestCreateDrafts(t *testing.T) {
	repo := &fakeDraftRepo{}
	objects := &fakeStorage{uploads: map[string][]byte{}}
	svc, _ := newTestService(repo, objects)

	resp, err := svc.CreateDrafts(context.Background(), DraftRequest{
		ProductIDs: []int64{1, 2, 3, 42},
		AutoNumber: true,
		Persist:    true,
		Export:     true,
	})
	if err != nil {
		t.Fatalf("CreateDrafts returned error: %v", err)
	}

	d := resp.Drafts
	if d.Summary.DraftCount != 1 || d.Drafts[0].SupplierName != "Acme" {
		t.Fatalf("Expected one Acme draft, got %+v", d.Drafts)
	}
	if d.Drafts[0].TotalItems != 2 {
		t.Errorf("Expected 2 lines on the Acme draft, got %d", d.Drafts[0].TotalItems)
	}
	if len(d.Unassigned) != 1 || d.Unassigned[0].ProductID != 3 {
		t.Errorf("Expected product 3 unassigned, got %+v", d.Unassigned)
	}
	if len(d.Failures) != 1 || d.Failures[0].Reason != reorder.DraftFailureNotInBatch {
		t.Errorf("Expected product 42 not in batch, got %+v", d.Failures)
	}

	pattern := regexp.MustCompile(`^PO-20261018-[0-9A-F]{8}-001$`)
	if !pattern.MatchString(d.Drafts[0].PONumber) {
		t.Errorf("Unexpected PO number %s", d.Drafts[0].PONumber)
	}

	if repo.batchID != resp.BatchID || len(resp.Saved) != 1 {
		t.Errorf("Expected drafts persisted under batch %s, got %s / %+v", resp.BatchID, repo.batchID, resp.Saved)
	}
	if _, ok := objects.uploads[resp.ExportKey]; !ok || !strings.HasPrefix(resp.ExportKey, "drafts/2026-10-18/") {
		t.Errorf("Expected export under drafts/2026-10-18, got %q", resp.ExportKey)
	}
}

func TestCreateDrafts_Errors(t *testing.T) {
	svc, _ := newTestService(nil, nil)

	_, err := svc.CreateDrafts(context.Background(), DraftRequest{})
	var verr *reorder.ValidationError
	if !errors.As(err, &verr) || verr.Field != "product_ids" {
		t.Errorf("Expected product_ids validation error, got %v", err)
	}

	_, err = svc.CreateDrafts(context.Background(), DraftRequest{ProductIDs: []int64{1}, Persist: true})
	if !errors.Is(err, ErrPersistenceUnavailable) {
		t.Errorf("Expected ErrPersistenceUnavailable, got %v", err)
	}

	resp, err := svc.CreateDrafts(context.Background(), DraftRequest{ProductIDs: []int64{1}, Export: true})
	if err != nil {
		t.Fatalf("Expected export failure to be reported, not returned: %v", err)
	}
	if resp.ExportError == "" || resp.ExportKey != "" {
		t.Errorf("Expected export error recorded, got %+v", resp)
	}
	if resp.Drafts.Drafts[0].PONumber != "DRAFT-001" {
		t.Errorf("Expected placeholder PO number without auto numbering, got %s", resp.Drafts.Drafts[0].PONumber)
	}

	failing := &fakeDraftRepo{err: errors.New("db down")}
	svc, _ = newTestService(failing, nil)
	if _, err := svc.CreateDrafts(context.Background(), DraftRequest{ProductIDs: []int64{1}, Persist: true}); err == nil {
		t.Error("Expected persistence failure to be returned")
	}
}

func TestCreateDrafts_InvalidatesSnapshotsAfterPersist(t *testing.T) {
	p := &invalidatingProvider{MetricProvider: provider.NewStaticProvider("fixture", fixtureItems())}
	svc := NewReorderService(p, &fakeDraftRepo{}, nil, config.ReorderConfig{})

	if _, err := svc.CreateDrafts(context.Background(), DraftRequest{ProductIDs: []int64{1}}); err != nil {
		t.Fatalf("CreateDrafts returned error: %v", err)
	}
	if len(p.invalidated) != 0 {
		t.Errorf("Expected no invalidation without persist, got %d", len(p.invalidated))
	}

	if _, err := svc.CreateDrafts(context.Background(), DraftRequest{ProductIDs: []int64{1}, Persist: true}); err != nil {
		t.Fatalf("CreateDrafts returned error: %v", err)
	}
	if len(p.invalidated) != 1 || p.invalidated[0] != nil {
		t.Errorf("Expected one full invalidation after persist, got %+v", p.invalidated)
	}
}
