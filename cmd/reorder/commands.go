package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/andresuchdata/autopo-reorder/internal/config"
	"github.com/andresuchdata/autopo-reorder/internal/reorder"
	"github.com/andresuchdata/autopo-reorder/internal/report"
	"github.com/andresuchdata/autopo-reorder/internal/service"
	"github.com/andresuchdata/autopo-reorder/internal/storage"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

func paramsFromFlags(c *cli.Context) reorder.Params {
	params := reorder.Params{
		Strategy:            reorder.Strategy(c.String("strategy")),
		IncludeZeroVelocity: c.Bool("include-zero-velocity"),
		ExcludeNoSupplier:   c.Bool("exclude-no-supplier"),
	}
	if c.IsSet("horizon-days") {
		v := c.Int("horizon-days")
		params.HorizonDaysOverride = &v
	}
	if c.IsSet("min-days-cover") {
		v := c.Float64("min-days-cover")
		params.MinDaysCover = &v
	}
	if c.IsSet("max-days-cover") {
		v := c.Float64("max-days-cover")
		params.MaxDaysCover = &v
	}
	return params
}

// newService builds a service without object storage; uploads go through --upload-key.
func newService(src *source, cfg *config.Config) *service.ReorderService {
	return service.NewReorderService(src.provider, src.drafts(), nil, cfg.Reorder)
}

func runSuggest(c *cli.Context, cfg *config.Config) error {
	src, err := openSource(c, cfg)
	if err != nil {
		return err
	}
	defer src.Close()

	svc := newService(src, cfg)
	result, err := svc.Suggest(c.Context, service.SuggestRequest{Scope: src.scope, Params: paramsFromFlags(c)})
	if err != nil {
		return err
	}

	if err := writeSuggestions(os.Stdout, c.String("format"), result); err != nil {
		return err
	}
	for _, d := range result.Diagnostics {
		log.Warn().Int64("product_id", d.ProductID).Str("sku", d.SKU).Msg(d.Message)
	}

	if key := c.String("upload-key"); key != "" {
		data, err := report.SuggestionsCSV(result.Suggestions)
		if err != nil {
			return err
		}
		return upload(c, cfg, key, data)
	}
	return nil
}

func runExplain(c *cli.Context, cfg *config.Config) error {
	src, err := openSource(c, cfg)
	if err != nil {
		return err
	}
	defer src.Close()

	svc := newService(src, cfg)
	explanation, err := svc.Explain(c.Context, service.ExplainRequest{
		Scope:     src.scope,
		ProductID: c.Int64("product-id"),
		Params:    paramsFromFlags(c),
	})
	if err != nil {
		return err
	}
	return writeJSON(os.Stdout, explanation)
}

func runDraft(c *cli.Context, cfg *config.Config) error {
	ids, err := parseIDs(c.String("product-ids"))
	if err != nil {
		return err
	}

	src, err := openSource(c, cfg)
	if err != nil {
		return err
	}
	defer src.Close()

	svc := newService(src, cfg)
	resp, err := svc.CreateDrafts(c.Context, service.DraftRequest{
		Scope:      src.scope,
		ProductIDs: ids,
		Params:     paramsFromFlags(c),
		AutoNumber: c.Bool("auto-number"),
		Persist:    c.Bool("persist"),
	})
	if err != nil {
		return err
	}

	if err := writeDrafts(os.Stdout, c.String("format"), resp); err != nil {
		return err
	}

	if key := c.String("upload-key"); key != "" {
		data, err := report.DraftsCSV(resp.Drafts)
		if err != nil {
			return err
		}
		return upload(c, cfg, key, data)
	}
	return nil
}

func upload(c *cli.Context, cfg *config.Config, key string, data []byte) error {
	client, err := storage.NewMinioClient(cfg.Storage)
	if err != nil {
		return err
	}
	if err := client.UploadObject(c.Context, key, data, "text/csv"); err != nil {
		return err
	}
	log.Info().Str("key", key).Int("bytes", len(data)).Msg("report uploaded")
	return nil
}

func writeSuggestions(w io.Writer, format string, result *reorder.Result) error {
	switch strings.ToLower(format) {
	case "", "table":
		return report.WriteSuggestionsTable(w, result)
	case "csv":
		return report.WriteSuggestionsCSV(w, result.Suggestions)
	case "json":
		return writeJSON(w, result)
	}
	return fmt.Errorf("unknown format %q", format)
}

func writeDrafts(w io.Writer, format string, resp *service.DraftResponse) error {
	switch strings.ToLower(format) {
	case "", "table":
		return report.WriteDraftsTable(w, resp.Drafts)
	case "csv":
		return report.WriteDraftsCSV(w, resp.Drafts)
	case "json":
		return writeJSON(w, resp)
	}
	return fmt.Errorf("unknown format %q", format)
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func parseIDs(raw string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid product id %q", part)
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("no product ids given")
	}
	return ids, nil
}
