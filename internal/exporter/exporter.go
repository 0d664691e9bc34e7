// Copyright (c) 2024 Netskope, Inc. All rights reserved.

// Package exporter drives the page loop: fetch a page, stream its rows to
// the CSV sink, and stop on a short page or at the row limit.
package exporter

import (
	"context"
	"fmt"

	"github.com/towerofpower256/DavesSNBulkDataExportTool/internal/config"
	"github.com/towerofpower256/DavesSNBulkDataExportTool/internal/servicenow"
	"go.uber.org/zap"
)

// PageFetcher is the interface the exporter pulls record pages through.
// This allows mocking in tests.
type PageFetcher interface {
	FetchPage(ctx context.Context, offset int) (*servicenow.Page, error)
}

// Exporter handles CSV export from the ServiceNow Table API.
type Exporter struct {
	fetcher PageFetcher
	config  *config.Config
	logger  *zap.Logger
}

// NewExporter creates a new CSV exporter.
func NewExporter(fetcher PageFetcher, cfg *config.Config, logger *zap.Logger) *Exporter {
	return &Exporter{
		fetcher: fetcher,
		config:  cfg,
		logger:  logger,
	}
}

// Export runs the full export. The output file is closed exactly once
// whether the loop finishes normally or fails; on failure a partial file
// may remain on disk.
func (e *Exporter) Export(ctx context.Context) (*Result, error) {
	comma := ','
	if e.config.Delimiter != "" {
		comma = []rune(e.config.Delimiter)[0]
	}

	e.logger.Info("Output file", zap.String("path", e.config.OutputPath))
	sink, err := newCSVSink(e.config.OutputPath, comma)
	if err != nil {
		return nil, err
	}

	result := &Result{FilePath: e.config.OutputPath}
	runErr := e.run(ctx, sink, result)
	closeErr := sink.Close()

	if runErr != nil {
		return nil, runErr
	}
	if closeErr != nil {
		return nil, fmt.Errorf("failed to close the output file: %w", closeErr)
	}
	return result, nil
}

// run executes the page loop against the open sink.
//
// A page shorter than the requested page size is the sole end-of-data
// signal. The Table API's X-Total-Count header is logged but deliberately
// not consulted, so a final page that is exactly full costs one extra
// fetch of an empty page before the loop stops.
func (e *Exporter) run(ctx context.Context, sink *csvSink, result *Result) error {
	pageSize := e.config.PageSize
	rowLimit := e.config.RowLimit

	for pageIdx := 0; ; pageIdx++ {
		offset := pageIdx * pageSize

		e.logger.Info("Fetching page",
			zap.Int("page", pageIdx+1),
			zap.Int("offset", offset),
			zap.Int("limit", pageSize))

		page, err := e.fetcher.FetchPage(ctx, offset)
		if err != nil {
			return err
		}
		result.Pages++

		e.logger.Info("Results", zap.Int("rows", page.Count()))

		if pageIdx == 0 {
			if page.Count() == 0 {
				e.logger.Info("No data returned, nothing to do here")
				return nil
			}

			if page.TotalCount >= 0 {
				e.logger.Info("Query total reported by instance",
					zap.Int("total_count", page.TotalCount))
			}

			// An explicit field list drives both the request projection
			// and the header; otherwise the first record decides.
			columns := e.config.Fields
			if len(columns) == 0 {
				columns = page.Columns
			}
			result.Columns = columns

			if err := sink.WriteHeader(columns); err != nil {
				return err
			}
		}

		for _, row := range page.Rows {
			if rowLimit > 0 && result.RowCount >= rowLimit {
				break
			}
			if err := sink.WriteRow(row); err != nil {
				return err
			}
			result.RowCount++
		}

		if rowLimit > 0 && result.RowCount >= rowLimit {
			e.logger.Info("Row limit reached", zap.Int("row_limit", rowLimit))
			return nil
		}

		if page.Count() < pageSize {
			e.logger.Info("No more pages", zap.Int("rows_written", result.RowCount))
			return nil
		}
	}
}
