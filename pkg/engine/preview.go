package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/user/tabmap"
	"github.com/user/tabmap/pkg/mapping"
)

// SheetPreview holds the first transformed rows of one target sheet.
type SheetPreview struct {
	Sheet     string       `json:"sheet"`
	Headers   []string     `json:"headers"`
	Rows      []tabmap.Row `json:"rows"`
	Truncated bool         `json:"truncated"`
	// Err is set when the source sheet could not be read. Rows is then empty.
	Err error `json:"-"`
}

// Preview is the result of Engine.Preview, one entry per spec sheet in spec order.
type Preview struct {
	RunID  string         `json:"run_id"`
	Sheets []SheetPreview `json:"sheets"`
}

// Sheet returns the preview of a target sheet.
func (p *Preview) Sheet(name string) (*SheetPreview, bool) {
	for i := range p.Sheets {
		if p.Sheets[i].Sheet == name {
			return &p.Sheets[i], true
		}
	}
	return nil, false
}

// Preview transforms at most maxRowsPerSheet surviving rows per sheet. A
// non-positive limit uses the configured default. Sheets are read
// concurrently; a sheet whose source cannot be read is reported in its Err
// without failing the others.
func (e *Engine) Preview(ctx context.Context, spec *mapping.MappingSpec, maxRowsPerSheet int) (*Preview, error) {
	start := time.Now()
	ActiveRuns.Inc()
	defer func() {
		ActiveRuns.Dec()
		RunDuration.WithLabelValues("preview").Observe(time.Since(start).Seconds())
	}()

	src, err := e.openSource(ctx, spec)
	if err != nil {
		return nil, err
	}
	defer src.wb.Close()

	if maxRowsPerSheet <= 0 {
		maxRowsPerSheet = e.config.MaxPreviewRows
	}
	runID := newRunID()
	e.logger.Info("Starting preview", "run_id", runID, "source", spec.SourcePath, "sheets", len(spec.Sheets), "max_rows", maxRowsPerSheet)

	out := &Preview{RunID: runID, Sheets: make([]SheetPreview, len(spec.Sheets))}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.config.Workers)
	for i, sheet := range spec.Sheets {
		i, sheet := i, sheet
		g.Go(func() error {
			sp, err := e.previewSheet(gctx, spec, sheet, src, maxRowsPerSheet, runID)
			out.Sheets[i] = sp
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	e.logger.Info("Preview finished", "run_id", runID, "duration", time.Since(start).String())
	return out, nil
}

// previewSheet only returns an error when ctx is done.
func (e *Engine) previewSheet(ctx context.Context, spec *mapping.MappingSpec, sheet mapping.SheetMapping, src *source, maxRows int, runID string) (SheetPreview, error) {
	p, ok := e.pipeline(spec, sheet, src, runID)
	sp := SheetPreview{Sheet: sheet.TargetSheet, Headers: p.Headers(), Rows: []tabmap.Row{}}
	if !ok {
		e.logger.Debug("Sheet has no source rows", "run_id", runID, "sheet", sheet.TargetSheet, "source_sheet", sheet.SourceSheet)
		return sp, nil
	}

	it, err := src.wb.Rows(ctx, sheet.SourceSheet)
	if err != nil {
		if errors.Is(err, tabmap.ErrSheetNotFound) {
			return sp, nil
		}
		sp.Err = e.sheetFailed(runID, sheet.TargetSheet, stageOpen, err)
		return sp, nil
	}
	defer it.Close()

	for {
		if err := ctx.Err(); err != nil {
			return sp, err
		}
		row, err := it.Next(ctx)
		if err == io.EOF {
			return sp, nil
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return sp, ctxErr
			}
			sp.Rows = []tabmap.Row{}
			sp.Err = e.sheetFailed(runID, sheet.TargetSheet, stageRead, err)
			return sp, nil
		}

		RowsRead.WithLabelValues(sheet.TargetSheet).Inc()
		out, keep := p.TransformRow(row)
		if !keep {
			RowsDropped.WithLabelValues(sheet.TargetSheet).Inc()
			continue
		}
		sp.Rows = append(sp.Rows, out)
		if len(sp.Rows) >= maxRows {
			sp.Truncated = true
			return sp, nil
		}
	}
}

func (e *Engine) sheetFailed(runID, sheet, stage string, err error) error {
	SheetErrors.WithLabelValues(sheet, stage).Inc()
	e.logger.Warn("Sheet degraded", "run_id", runID, "sheet", sheet, "stage", stage, "error", err)
	return fmt.Errorf("sheet %s: %s: %w", sheet, stage, err)
}
