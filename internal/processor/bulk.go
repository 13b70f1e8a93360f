// Package processor implements bulk feature extraction over URL datasets
// using a bounded worker pool.
package processor

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/jonesrussell/url-sentinel/internal/domain"
	"github.com/jonesrussell/url-sentinel/internal/features"
	"github.com/jonesrussell/url-sentinel/internal/logging"
)

// maxWorkers caps the pool regardless of configuration.
const maxWorkers = 8

// BulkExtractor turns a labeled URL CSV into a feature CSV. Input rows keep
// their order in the output; rows that cannot be processed are emitted with
// zeroed features so the output stays row-aligned with the input.
type BulkExtractor struct {
	extractor    *features.Extractor
	resolver     features.HostResolver
	limiter      *RateLimiter
	workers      int
	chunkSize    int
	hostFeatures bool
	log          logging.Logger
}

// BulkOptions configure a BulkExtractor.
type BulkOptions struct {
	Workers      int
	ChunkSize    int
	HostFeatures bool
}

// NewBulkExtractor creates a bulk extractor. The resolver and limiter are
// only used when host features are enabled.
func NewBulkExtractor(extractor *features.Extractor, resolver features.HostResolver, limiter *RateLimiter, opts BulkOptions, log logging.Logger) *BulkExtractor {
	workers := opts.Workers
	if workers <= 0 || workers > maxWorkers {
		workers = maxWorkers
	}
	chunkSize := opts.ChunkSize
	if chunkSize <= 0 {
		chunkSize = 100
	}
	return &BulkExtractor{
		extractor:    extractor,
		resolver:     resolver,
		limiter:      limiter,
		workers:      workers,
		chunkSize:    chunkSize,
		hostFeatures: opts.HostFeatures,
		log:          log,
	}
}

// BulkResult summarizes one extraction run.
type BulkResult struct {
	Total      int           `json:"total"`
	Extracted  int           `json:"extracted"`
	Failed     int           `json:"failed"`
	OutputPath string        `json:"output_path"`
	Duration   time.Duration `json:"-"`
	DurationMs int64         `json:"duration_ms"`
}

type inputRow struct {
	url   string
	label string
}

// ExtractFile reads a CSV with url and type columns and writes the feature
// CSV to outputPath.
func (b *BulkExtractor) ExtractFile(ctx context.Context, inputPath, outputPath string) (*BulkResult, error) {
	rows, err := readInput(inputPath)
	if err != nil {
		return nil, err
	}

	b.log.Info("starting bulk extraction",
		logging.Int("rows", len(rows)),
		logging.Int("workers", b.workers),
		logging.Bool("host_features", b.hostFeatures))
	start := time.Now()

	columns := domain.LexicalColumns
	if b.hostFeatures {
		columns = domain.ExtendedColumns
	}

	out := make([][]string, len(rows))
	failures := make([]bool, len(rows))

	for chunkStart := 0; chunkStart < len(rows); chunkStart += b.chunkSize {
		if err := ctx.Err(); err != nil {
			return nil, domain.WrapError(domain.KindFeatureExtraction, "bulk extraction canceled", err)
		}
		end := chunkStart + b.chunkSize
		if end > len(rows) {
			end = len(rows)
		}
		b.processChunk(ctx, rows, out, failures, chunkStart, end, columns)
	}

	result := &BulkResult{Total: len(rows), OutputPath: outputPath}
	for _, failed := range failures {
		if failed {
			result.Failed++
		} else {
			result.Extracted++
		}
	}

	if err := writeOutput(outputPath, columns, out); err != nil {
		return nil, err
	}

	result.Duration = time.Since(start)
	result.DurationMs = result.Duration.Milliseconds()
	b.log.Info("bulk extraction complete",
		logging.Int("total", result.Total),
		logging.Int("failed", result.Failed),
		logging.Duration("duration", result.Duration))
	return result, nil
}

// processChunk fans one chunk out over the worker pool. Results land at
// their input index.
func (b *BulkExtractor) processChunk(ctx context.Context, rows []inputRow, out [][]string, failures []bool, start, end int, columns []string) {
	jobs := make(chan int, end-start)

	var wg sync.WaitGroup
	for w := 0; w < b.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				row, ok := b.extractRow(ctx, rows[i], columns)
				out[i] = row
				failures[i] = !ok
			}
		}()
	}

	for i := start; i < end; i++ {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
}

// extractRow builds one output record. On failure it returns a zeroed record
// and false.
func (b *BulkExtractor) extractRow(ctx context.Context, in inputRow, columns []string) ([]string, bool) {
	label, ok := parseLabel(in.label)
	if in.url == "" || !ok {
		return zeroRow(in, columns), false
	}

	fv := b.extractor.Extract(in.url)
	if b.hostFeatures {
		if b.limiter != nil {
			if err := b.limiter.Wait(ctx); err != nil {
				return zeroRow(in, columns), false
			}
		}
		fv = b.extractor.ExtractHost(ctx, in.url, b.resolver, fv)
	}

	rec := make([]string, len(columns))
	rec[0] = in.url
	rec[1] = in.label
	rec[2] = strconv.Itoa(label)
	for i, col := range columns[3:] {
		if col == "tld" {
			rec[i+3] = fv.TLD
			continue
		}
		rec[i+3] = strconv.FormatFloat(fv.Get(col), 'g', -1, 64)
	}
	return rec, true
}

func zeroRow(in inputRow, columns []string) []string {
	rec := make([]string, len(columns))
	rec[0] = in.url
	rec[1] = in.label
	rec[2] = "0"
	for i := 3; i < len(rec); i++ {
		rec[i] = "0"
	}
	return rec
}

// parseLabel maps a type cell to the numeric result value.
func parseLabel(label string) (int, bool) {
	switch label {
	case "malicious", "1":
		return 1, true
	case "benign", "0":
		return 0, true
	default:
		return 0, false
	}
}

func readInput(path string) ([]inputRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, domain.WrapError(domain.KindFeatureExtraction, "open input csv", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, domain.WrapError(domain.KindFeatureExtraction, "read input header", err)
	}

	urlIdx, typeIdx := -1, -1
	for i, name := range header {
		switch name {
		case "url":
			urlIdx = i
		case "type", "label":
			typeIdx = i
		}
	}
	if urlIdx < 0 || typeIdx < 0 {
		return nil, domain.NewError(domain.KindFeatureExtraction,
			fmt.Sprintf("input csv must have url and type columns, got %v", header))
	}

	var rows []inputRow
	for {
		rec, err := r.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, domain.WrapError(domain.KindFeatureExtraction, "read input row", err)
		}
		rows = append(rows, inputRow{url: rec[urlIdx], label: rec[typeIdx]})
	}
	if len(rows) == 0 {
		return nil, domain.NewError(domain.KindFeatureExtraction, "input csv contains no rows")
	}
	return rows, nil
}

func writeOutput(path string, columns []string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return domain.WrapError(domain.KindFeatureExtraction, "create output csv", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(columns); err != nil {
		return domain.WrapError(domain.KindFeatureExtraction, "write output header", err)
	}
	for _, rec := range rows {
		if err := w.Write(rec); err != nil {
			return domain.WrapError(domain.KindFeatureExtraction, "write output row", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return domain.WrapError(domain.KindFeatureExtraction, "flush output csv", err)
	}
	return nil
}
