// Package engine drives mapping specs over source workbooks, producing
// bounded previews or fully written output workbooks.
package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/user/tabmap"
	"github.com/user/tabmap/pkg/mapping"
	"github.com/user/tabmap/pkg/transformer"
)

// WriterFactory returns an empty output workbook for one materialization.
type WriterFactory func() tabmap.WorkbookWriter

// Engine runs mapping specs against workbooks obtained from an Opener.
type Engine struct {
	opener    tabmap.Opener
	newWriter WriterFactory
	logger    tabmap.Logger
	config    Config
}

// Config holds configuration for the Engine.
type Config struct {
	// MaxPreviewRows caps the rows collected per sheet when Preview is
	// called with a non-positive limit.
	MaxPreviewRows int
	// Workers bounds the sheets previewed concurrently.
	Workers int
}

// DefaultConfig returns the default configuration for the Engine.
func DefaultConfig() Config {
	return Config{
		MaxPreviewRows: 1000,
		Workers:        4,
	}
}

// NewEngine creates an engine. newWriter may be nil when Apply is not used.
func NewEngine(opener tabmap.Opener, newWriter WriterFactory) *Engine {
	return &Engine{
		opener:    opener,
		newWriter: newWriter,
		logger:    NewDefaultLogger(),
		config:    DefaultConfig(),
	}
}

// SetConfig sets the configuration for the engine.
func (e *Engine) SetConfig(config Config) {
	if config.MaxPreviewRows <= 0 {
		config.MaxPreviewRows = DefaultConfig().MaxPreviewRows
	}
	if config.Workers <= 0 {
		config.Workers = 1
	}
	e.config = config
}

// SetLogger sets the logger for the engine.
func (e *Engine) SetLogger(logger tabmap.Logger) {
	e.logger = logger
}

// BuildSpec reads the header rows of the template and, when sourcePath is
// set, of the source, and proposes an initial mapping.
func (e *Engine) BuildSpec(ctx context.Context, templatePath, sourcePath string) (*mapping.MappingSpec, error) {
	if templatePath == "" {
		return nil, errors.New("template path is not set")
	}
	templateHeaders, err := e.readHeaders(ctx, templatePath)
	if err != nil {
		return nil, err
	}

	var sourceHeaders []tabmap.SheetHeaders
	if sourcePath != "" {
		if sourceHeaders, err = e.readHeaders(ctx, sourcePath); err != nil {
			return nil, err
		}
	}

	spec := mapping.BuildInitialSpec(templateHeaders, sourceHeaders)
	spec.TemplatePath = templatePath
	spec.SourcePath = sourcePath
	e.logger.Info("Built initial mapping", "template", templatePath, "source", sourcePath, "sheets", len(spec.Sheets))
	return spec, nil
}

func (e *Engine) readHeaders(ctx context.Context, path string) ([]tabmap.SheetHeaders, error) {
	wb, err := e.opener.Open(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer wb.Close()
	headers, err := wb.Headers(ctx)
	if err != nil {
		return nil, fmt.Errorf("read headers of %s: %w", path, err)
	}
	return headers, nil
}

// source is an opened source workbook with its header rows indexed by sheet.
type source struct {
	wb      tabmap.Workbook
	headers map[string][]string
}

func (e *Engine) openSource(ctx context.Context, spec *mapping.MappingSpec) (*source, error) {
	if spec == nil || spec.SourcePath == "" {
		return nil, tabmap.ErrNoSource
	}
	wb, err := e.opener.Open(ctx, spec.SourcePath)
	if err != nil {
		return nil, fmt.Errorf("open source %s: %w", spec.SourcePath, err)
	}
	all, err := wb.Headers(ctx)
	if err != nil {
		wb.Close()
		return nil, fmt.Errorf("read headers of %s: %w", spec.SourcePath, err)
	}
	src := &source{wb: wb, headers: make(map[string][]string, len(all))}
	for _, sh := range all {
		if _, seen := src.headers[sh.Sheet]; !seen {
			src.headers[sh.Sheet] = sh.Headers
		}
	}
	return src, nil
}

// pipeline compiles sheet against its source headers. ok is false when the
// sheet has no source sheet or the source sheet does not exist.
func (e *Engine) pipeline(spec *mapping.MappingSpec, sheet mapping.SheetMapping, src *source, runID string) (p *transformer.SheetPipeline, ok bool) {
	headers, found := src.headers[sheet.SourceSheet]
	hook := transformer.WithFallbackHook(func(stage, column string, err error) {
		ValueFallbacks.WithLabelValues(stage).Inc()
		e.logger.Debug("Value kept after failure", "run_id", runID, "sheet", sheet.TargetSheet, "column", column, "stage", stage, "error", err)
	})
	p = transformer.NewSheetPipeline(spec.GlobalFindReplace, sheet, headers, hook)
	return p, sheet.SourceSheet != "" && found
}

func newRunID() string {
	return uuid.NewString()
}
