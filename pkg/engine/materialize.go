package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/user/tabmap"
	"github.com/user/tabmap/pkg/mapping"
)

// SheetReport counts what happened to one target sheet.
type SheetReport struct {
	Sheet       string
	RowsRead    int
	RowsWritten int
	RowsDropped int
	// Err is set when the source sheet failed part way. Rows written before
	// the failure stay in the output.
	Err error
}

// Report is the result of Engine.Materialize and Engine.Apply.
type Report struct {
	RunID      string
	OutputPath string
	Sheets     []SheetReport
}

// Failed returns the sheets that were degraded by a read failure.
func (r *Report) Failed() []SheetReport {
	var out []SheetReport
	for _, s := range r.Sheets {
		if s.Err != nil {
			out = append(out, s)
		}
	}
	return out
}

// Materialize writes every sheet of spec into w: the header row first, then
// each surviving row from row 2 on. Sheets without a source get only headers.
// w is not finalized.
func (e *Engine) Materialize(ctx context.Context, spec *mapping.MappingSpec, w tabmap.WorkbookWriter) (*Report, error) {
	start := time.Now()
	ActiveRuns.Inc()
	defer func() {
		ActiveRuns.Dec()
		RunDuration.WithLabelValues("materialize").Observe(time.Since(start).Seconds())
	}()

	src, err := e.openSource(ctx, spec)
	if err != nil {
		return nil, err
	}
	defer src.wb.Close()

	runID := newRunID()
	e.logger.Info("Starting materialization", "run_id", runID, "source", spec.SourcePath, "sheets", len(spec.Sheets))

	report := &Report{RunID: runID, Sheets: make([]SheetReport, 0, len(spec.Sheets))}
	for _, sheet := range spec.Sheets {
		sr, err := e.materializeSheet(ctx, spec, sheet, src, w, runID)
		report.Sheets = append(report.Sheets, sr)
		if err != nil {
			return report, err
		}
	}

	e.logger.Info("Materialization finished", "run_id", runID, "duration", time.Since(start).String(), "failed_sheets", len(report.Failed()))
	return report, nil
}

// materializeSheet returns an error for write failures and cancellation.
// Read failures are recorded in the report.
func (e *Engine) materializeSheet(ctx context.Context, spec *mapping.MappingSpec, sheet mapping.SheetMapping, src *source, w tabmap.WorkbookWriter, runID string) (SheetReport, error) {
	sr := SheetReport{Sheet: sheet.TargetSheet}
	p, ok := e.pipeline(spec, sheet, src, runID)

	sw, err := w.CreateSheet(sheet.TargetSheet)
	if err != nil {
		SheetErrors.WithLabelValues(sheet.TargetSheet, stageWrite).Inc()
		return sr, fmt.Errorf("create sheet %s: %w", sheet.TargetSheet, err)
	}
	for j, h := range p.Headers() {
		if err := sw.WriteCell(1, j+1, h, ""); err != nil {
			SheetErrors.WithLabelValues(sheet.TargetSheet, stageWrite).Inc()
			return sr, fmt.Errorf("write header of %s: %w", sheet.TargetSheet, err)
		}
	}
	if !ok {
		return sr, nil
	}

	it, err := src.wb.Rows(ctx, sheet.SourceSheet)
	if err != nil {
		if errors.Is(err, tabmap.ErrSheetNotFound) {
			return sr, nil
		}
		sr.Err = e.sheetFailed(runID, sheet.TargetSheet, stageOpen, err)
		return sr, nil
	}
	defer it.Close()

	formats := p.NumberFormats()
	rowNum := 2
	for {
		if err := ctx.Err(); err != nil {
			return sr, err
		}
		row, err := it.Next(ctx)
		if err == io.EOF {
			return sr, nil
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return sr, ctxErr
			}
			sr.Err = e.sheetFailed(runID, sheet.TargetSheet, stageRead, err)
			return sr, nil
		}

		sr.RowsRead++
		RowsRead.WithLabelValues(sheet.TargetSheet).Inc()
		out, keep := p.TransformRow(row)
		if !keep {
			sr.RowsDropped++
			RowsDropped.WithLabelValues(sheet.TargetSheet).Inc()
			continue
		}
		for j, v := range out {
			if err := sw.WriteCell(rowNum, j+1, v, formats[j]); err != nil {
				SheetErrors.WithLabelValues(sheet.TargetSheet, stageWrite).Inc()
				return sr, fmt.Errorf("write row %d of %s: %w", rowNum, sheet.TargetSheet, err)
			}
		}
		rowNum++
		sr.RowsWritten++
		RowsWritten.WithLabelValues(sheet.TargetSheet).Inc()
	}
}

// Apply materializes spec into a new workbook from the engine's writer
// factory and stores it at outputPath.
func (e *Engine) Apply(ctx context.Context, spec *mapping.MappingSpec, outputPath string) (*Report, error) {
	if outputPath == "" {
		return nil, errors.New("output path is not set")
	}
	if e.newWriter == nil {
		return nil, errors.New("engine has no workbook writer")
	}

	w := e.newWriter()
	report, err := e.Materialize(ctx, spec, w)
	if err != nil {
		return report, err
	}
	if err := w.Finalize(ctx, outputPath); err != nil {
		return report, fmt.Errorf("write output %s: %w", outputPath, err)
	}
	report.OutputPath = outputPath
	e.logger.Info("Output written", "run_id", report.RunID, "path", outputPath)
	return report, nil
}
