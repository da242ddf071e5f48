package service

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/andresuchdata/autopo-reorder/internal/config"
	"github.com/andresuchdata/autopo-reorder/internal/provider"
	"github.com/andresuchdata/autopo-reorder/internal/reorder"
	"github.com/andresuchdata/autopo-reorder/internal/report"
	"github.com/andresuchdata/autopo-reorder/internal/repository"
	"github.com/andresuchdata/autopo-reorder/internal/storage"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ErrPersistenceUnavailable is returned when drafts are to be saved but no store is wired.
var ErrPersistenceUnavailable = errors.New("draft persistence not configured")

type SuggestRequest struct {
	Scope  provider.Scope
	Params reorder.Params
}

type ExplainRequest struct {
	Scope     provider.Scope
	ProductID int64
	Params    reorder.Params
}

type DraftRequest struct {
	Scope      provider.Scope
	ProductIDs []int64
	Params     reorder.Params
	AutoNumber bool
	Persist    bool
	Export     bool
}

type DraftResponse struct {
	BatchID     string                  `json:"batch_id"`
	Drafts      *reorder.DraftResult    `json:"drafts"`
	Saved       []repository.SavedDraft `json:"saved,omitempty"`
	ExportKey   string                  `json:"export_key,omitempty"`
	ExportError string                  `json:"export_error,omitempty"`
	Diagnostics []reorder.Diagnostic    `json:"diagnostics,omitempty"`
}

type ReorderService struct {
	provider provider.MetricProvider
	engine   *reorder.Engine
	drafts   repository.DraftRepository
	storage  storage.ObjectStorage
	cfg      config.ReorderConfig
	now      func() time.Time
}

// NewReorderService wires the service. drafts and objects may be nil; the matching
// draft options then fail or are skipped.
func NewReorderService(p provider.MetricProvider, drafts repository.DraftRepository, objects storage.ObjectStorage, cfg config.ReorderConfig) *ReorderService {
	return &ReorderService{
		provider: p,
		engine:   reorder.NewEngine(engineOptions(cfg)...),
		drafts:   drafts,
		storage:  objects,
		cfg:      cfg,
		now:      time.Now,
	}
}

func engineOptions(cfg config.ReorderConfig) []reorder.Option {
	if cfg.Workers > 0 {
		return []reorder.Option{reorder.WithWorkers(cfg.Workers)}
	}
	return nil
}

// DefaultParams returns request parameters seeded from configuration.
func (s *ReorderService) DefaultParams() reorder.Params {
	return reorder.Params{
		Strategy:            reorder.Strategy(s.cfg.DefaultStrategy),
		IncludeZeroVelocity: s.cfg.IncludeZeroVelocity,
		ExcludeNoSupplier:   s.cfg.ExcludeNoSupplier,
	}
}

func (s *ReorderService) ProviderName() string {
	return s.provider.Name()
}

func (s *ReorderService) Suggest(ctx context.Context, req SuggestRequest) (*reorder.Result, error) {
	if err := req.Params.Validate(); err != nil {
		return nil, err
	}

	items, err := s.provider.FetchInputs(ctx, req.Scope)
	if err != nil {
		return nil, fmt.Errorf("fetch reorder inputs: %w", err)
	}

	start := s.now()
	result, err := s.engine.Suggest(items, req.Params)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("provider", s.provider.Name()).
		Int("products", len(items)).
		Int("suggestions", result.Summary.TotalSuggestions).
		Int("skipped", result.Summary.SkippedCount).
		Int("diagnostics", result.Summary.DiagnosticCount).
		Dur("elapsed", s.now().Sub(start)).
		Msg("reorder: suggestions computed")

	return result, nil
}

func (s *ReorderService) Explain(ctx context.Context, req ExplainRequest) (*reorder.Explanation, error) {
	if err := req.Params.Validate(); err != nil {
		return nil, err
	}

	scope := req.Scope
	scope.ProductIDs = []int64{req.ProductID}
	items, err := s.provider.FetchInputs(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("fetch reorder inputs: %w", err)
	}

	return s.engine.Explain(items, req.ProductID, req.Params)
}

// CreateDrafts computes suggestions for the selected products and groups them into
// one draft per supplier. Persistence and export run only when requested.
func (s *ReorderService) CreateDrafts(ctx context.Context, req DraftRequest) (*DraftResponse, error) {
	if len(req.ProductIDs) == 0 {
		return nil, &reorder.ValidationError{Field: "product_ids", Message: "at least one product id is required"}
	}
	if err := req.Params.Validate(); err != nil {
		return nil, err
	}
	if req.Persist && s.drafts == nil {
		return nil, ErrPersistenceUnavailable
	}

	scope := req.Scope
	scope.ProductIDs = req.ProductIDs
	items, err := s.provider.FetchInputs(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("fetch reorder inputs: %w", err)
	}

	result, err := s.engine.Suggest(items, req.Params)
	if err != nil {
		return nil, err
	}

	batchID := uuid.New().String()
	drafts := reorder.GroupDrafts(result.Suggestions, activeSuppliers(items), req.ProductIDs, reorder.DraftOptions{
		AutoNumber: req.AutoNumber,
		Numberer:   s.poNumberer(batchID),
	})

	resp := &DraftResponse{
		BatchID:     batchID,
		Drafts:      drafts,
		Diagnostics: result.Diagnostics,
	}

	if req.Persist {
		saved, err := s.drafts.SaveDrafts(ctx, batchID, drafts)
		if err != nil {
			return nil, fmt.Errorf("save drafts: %w", err)
		}
		resp.Saved = saved
		s.invalidateSnapshots(ctx, batchID)
	}

	if req.Export {
		key, err := s.exportDrafts(ctx, batchID, drafts)
		if err != nil {
			log.Warn().Err(err).Str("batch_id", batchID).Msg("reorder: draft export failed")
			resp.ExportError = err.Error()
		} else {
			resp.ExportKey = key
		}
	}

	log.Info().
		Str("batch_id", batchID).
		Int("drafts", drafts.Summary.DraftCount).
		Int("unassigned", drafts.Summary.UnassignedCount).
		Int("failures", drafts.Summary.FailureCount).
		Msg("reorder: drafts grouped")

	return resp, nil
}

func (s *ReorderService) exportDrafts(ctx context.Context, batchID string, drafts *reorder.DraftResult) (string, error) {
	if s.storage == nil {
		return "", errors.New("object storage not configured")
	}
	data, err := report.DraftsCSV(drafts)
	if err != nil {
		return "", fmt.Errorf("render drafts: %w", err)
	}
	key := path.Join("drafts", s.now().Format("2006-01-02"), batchID+".csv")
	if err := s.storage.UploadObject(ctx, key, data, "text/csv"); err != nil {
		return "", err
	}
	return key, nil
}

// invalidateSnapshots drops cached snapshots once drafts are saved; their open quantities
// change incoming supply for every scope the products appear in.
func (s *ReorderService) invalidateSnapshots(ctx context.Context, batchID string) {
	inv, ok := s.provider.(provider.Invalidator)
	if !ok {
		return
	}
	if err := inv.Invalidate(ctx, nil); err != nil {
		log.Warn().Err(err).Str("batch_id", batchID).Msg("reorder: snapshot invalidation failed")
	}
}

// poNumberer numbers drafts as PREFIX-YYYYMMDD-BATCH-NNN, where BATCH is the first
// eight characters of the batch uuid.
func (s *ReorderService) poNumberer(batchID string) reorder.PONumberFunc {
	prefix := strings.TrimSpace(s.cfg.PONumberPrefix)
	if prefix == "" {
		prefix = "PO"
	}
	short := strings.ToUpper(strings.ReplaceAll(batchID, "-", ""))
	if len(short) > 8 {
		short = short[:8]
	}
	day := s.now().Format("20060102")
	return func(seq int, _ reorder.SupplierInfo) string {
		return fmt.Sprintf("%s-%s-%s-%03d", prefix, day, short, seq)
	}
}

// activeSuppliers collects the suppliers referenced by the batch that can receive
// a purchase order.
func activeSuppliers(items []reorder.Item) map[int64]reorder.SupplierInfo {
	out := make(map[int64]reorder.SupplierInfo)
	for _, item := range items {
		if item.Supplier != nil && item.Supplier.IsActive {
			out[item.Supplier.ID] = *item.Supplier
		}
	}
	return out
}
