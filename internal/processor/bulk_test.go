package processor

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/jonesrussell/url-sentinel/internal/domain"
	"github.com/jonesrussell/url-sentinel/internal/features"
	"github.com/jonesrussell/url-sentinel/internal/logging"
)

func writeInput(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "input.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func readOutput(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	return rows
}

func newTestExtractor(t *testing.T, workers int) *BulkExtractor {
	t.Helper()
	return NewBulkExtractor(features.NewExtractor(), nil, nil,
		BulkOptions{Workers: workers, ChunkSize: 2}, logging.NewNop())
}

func TestExtractFile(t *testing.T) {
	input := writeInput(t,
		"url,type\n"+
			"https://example.com/docs,benign\n"+
			"http://bit.ly/paypal-login,malicious\n"+
			"https://news.example.org,benign\n")
	output := filepath.Join(t.TempDir(), "out.csv")

	b := newTestExtractor(t, 4)
	res, err := b.ExtractFile(context.Background(), input, output)
	if err != nil {
		t.Fatal(err)
	}
	if res.Total != 3 || res.Extracted != 3 || res.Failed != 0 {
		t.Errorf("result = %+v", res)
	}

	rows := readOutput(t, output)
	if len(rows) != 4 {
		t.Fatalf("output rows = %d, want header + 3", len(rows))
	}
	if len(rows[0]) != len(domain.LexicalColumns) {
		t.Errorf("columns = %d, want %d", len(rows[0]), len(domain.LexicalColumns))
	}
	for i, want := range domain.LexicalColumns {
		if rows[0][i] != want {
			t.Fatalf("header[%d] = %q, want %q", i, rows[0][i], want)
		}
	}

	// Input order is preserved and labels map to result values.
	if rows[1][0] != "https://example.com/docs" || rows[1][2] != "0" {
		t.Errorf("row 1 = %v", rows[1][:3])
	}
	if rows[2][0] != "http://bit.ly/paypal-login" || rows[2][2] != "1" {
		t.Errorf("row 2 = %v", rows[2][:3])
	}
}

func TestExtractFileBadRowsZeroed(t *testing.T) {
	input := writeInput(t,
		"url,type\n"+
			"https://ok.example.com,benign\n"+
			",malicious\n"+
			"https://bad-label.example.com,mystery\n")
	output := filepath.Join(t.TempDir(), "out.csv")

	b := newTestExtractor(t, 2)
	res, err := b.ExtractFile(context.Background(), input, output)
	if err != nil {
		t.Fatal(err)
	}
	if res.Failed != 2 || res.Extracted != 1 {
		t.Errorf("result = %+v", res)
	}

	rows := readOutput(t, output)
	// Failed rows keep their position with zeroed features.
	for i := 3; i < len(rows[2]); i++ {
		if rows[2][i] != "0" {
			t.Errorf("failed row feature %d = %q, want 0", i, rows[2][i])
		}
	}
}

func TestExtractFileMissingColumns(t *testing.T) {
	input := writeInput(t, "address,verdict\nx,y\n")
	b := newTestExtractor(t, 2)
	_, err := b.ExtractFile(context.Background(), input, filepath.Join(t.TempDir(), "out.csv"))
	if !domain.IsKind(err, domain.KindFeatureExtraction) {
		t.Fatalf("err = %v, want feature extraction kind", err)
	}
}

func TestExtractFileEmpty(t *testing.T) {
	input := writeInput(t, "url,type\n")
	b := newTestExtractor(t, 2)
	if _, err := b.ExtractFile(context.Background(), input, filepath.Join(t.TempDir(), "out.csv")); err == nil {
		t.Fatal("expected error for empty input")
	}
}

func TestWorkerCap(t *testing.T) {
	b := NewBulkExtractor(features.NewExtractor(), nil, nil,
		BulkOptions{Workers: 64}, logging.NewNop())
	if b.workers != maxWorkers {
		t.Errorf("workers = %d, want capped at %d", b.workers, maxWorkers)
	}
}
