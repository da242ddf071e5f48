package reorder

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/rs/zerolog/log"
)

// Engine computes reorder suggestions over a batch of product snapshots.
// It holds no state between calls and is safe for concurrent use.
type Engine struct {
	workers int
}

// Option configures an Engine.
type Option func(*Engine)

// WithWorkers sets how many products are evaluated concurrently. Values below 1 mean
// sequential evaluation.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		e.workers = n
	}
}

// NewEngine creates an engine. By default it uses one worker per CPU.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{workers: runtime.NumCPU()}
	for _, opt := range opts {
		opt(e)
	}
	if e.workers < 1 {
		e.workers = 1
	}
	return e
}

// evalOutcome is the per-index result slot written by exactly one worker.
type evalOutcome struct {
	eval Evaluation
	err  error
}

// Suggest evaluates every item and returns the ranked, filtered suggestion list.
// Invalid params fail the whole request; a failure inside one product only excludes
// that product and is reported as a diagnostic.
func (e *Engine) Suggest(items []Item, params Params) (*Result, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	params = params.normalized()

	outcomes := e.evaluateAll(items, params)

	result := &Result{
		Suggestions: make([]ReorderSuggestion, 0, len(items)),
	}
	for i, out := range outcomes {
		p := items[i].Product
		switch {
		case out.err != nil:
			log.Warn().Err(out.err).Int64("product_id", p.ProductID).Str("sku", p.SKU).Msg("reorder: product excluded")
			result.Diagnostics = append(result.Diagnostics, Diagnostic{
				ProductID: p.ProductID,
				SKU:       p.SKU,
				Message:   out.err.Error(),
			})
		case out.eval.Suggestion != nil:
			result.Suggestions = append(result.Suggestions, *out.eval.Suggestion)
		default:
			result.Skipped = append(result.Skipped, Skipped{
				ProductID: p.ProductID,
				SKU:       p.SKU,
				Reason:    out.eval.SkipReason,
			})
		}
	}

	Rank(result.Suggestions)
	result.Summary = Summarize(result.Suggestions)
	result.Summary.SkippedCount = len(result.Skipped)
	result.Summary.DiagnosticCount = len(result.Diagnostics)
	result.Summary.ProductsEvaluatedCount = len(items)

	return result, nil
}

// evaluateAll fans the batch out to a fixed worker pool. Each worker writes only the
// slots of the indices it receives, so the output keeps input order without locking.
func (e *Engine) evaluateAll(items []Item, params Params) []evalOutcome {
	outcomes := make([]evalOutcome, len(items))
	if len(items) == 0 {
		return outcomes
	}

	workerCount := e.workers
	if workerCount > len(items) {
		workerCount = len(items)
	}

	if workerCount == 1 {
		for i := range items {
			outcomes[i] = safeEvaluate(items[i], params, false)
		}
		return outcomes
	}

	jobChan := make(chan int, len(items))
	var wg sync.WaitGroup

	for w := 0; w < workerCount; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobChan {
				outcomes[idx] = safeEvaluate(items[idx], params, false)
			}
		}()
	}

	for i := range items {
		jobChan <- i
	}
	close(jobChan)
	wg.Wait()

	return outcomes
}

// safeEvaluate converts a panic inside one product's evaluation into an error.
func safeEvaluate(item Item, params Params, explain bool) (out evalOutcome) {
	defer func() {
		if r := recover(); r != nil {
			out = evalOutcome{err: fmt.Errorf("evaluation panicked: %v", r)}
		}
	}()
	eval, err := Evaluate(item, params, explain)
	return evalOutcome{eval: eval, err: err}
}

// Explanation is the explain contract for a single product.
type Explanation struct {
	ProductID  int64              `json:"product_id"`
	SKU        string             `json:"sku"`
	Skipped    bool               `json:"skipped"`
	SkipReason string             `json:"skip_reason,omitempty"`
	Suggestion *ReorderSuggestion `json:"suggestion,omitempty"`
	Trace      *ExplanationTrace  `json:"trace,omitempty"`
}

// Explain re-runs the computation for one product with trace capture enabled.
func (e *Engine) Explain(items []Item, productID int64, params Params) (*Explanation, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	params = params.normalized()

	for _, item := range items {
		if item.Product.ProductID != productID {
			continue
		}
		out := safeEvaluate(item, params, true)
		if out.err != nil {
			return nil, fmt.Errorf("explain product %d: %w", productID, out.err)
		}
		exp := &Explanation{
			ProductID:  productID,
			SKU:        item.Product.SKU,
			Suggestion: out.eval.Suggestion,
			Trace:      out.eval.Trace,
		}
		if out.eval.Suggestion == nil {
			exp.Skipped = true
			exp.SkipReason = out.eval.SkipReason
		}
		return exp, nil
	}

	return nil, fmt.Errorf("product %d: %w", productID, ErrProductNotFound)
}
