package compression

import (
	"bytes"
	"testing"
)

func TestCompressors(t *testing.T) {
	testData := []byte("Code,Name,Amount\nA-1,Widget,10\nA-2,Gadget,12\nA-3,Gizmo,7\n")

	algorithms := []Algorithm{Gzip, LZ4, Snappy, Zstd}

	for _, algo := range algorithms {
		t.Run(string(algo), func(t *testing.T) {
			compressor, err := NewCompressor(algo)
			if err != nil {
				t.Fatalf("failed to create compressor for %s: %v", algo, err)
			}
			if compressor.Algorithm() != algo {
				t.Errorf("Algorithm() = %s, want %s", compressor.Algorithm(), algo)
			}

			compressed, err := compressor.Compress(testData)
			if err != nil {
				t.Fatalf("failed to compress with %s: %v", algo, err)
			}
			decompressed, err := compressor.Decompress(compressed)
			if err != nil {
				t.Fatalf("failed to decompress with %s: %v", algo, err)
			}
			if !bytes.Equal(testData, decompressed) {
				t.Errorf("%s: decompressed data does not match original", algo)
			}
		})
	}
}

func TestEmptyData(t *testing.T) {
	algorithms := []Algorithm{Gzip, LZ4, Snappy, Zstd, None}

	for _, algo := range algorithms {
		t.Run(string(algo), func(t *testing.T) {
			compressor, err := NewCompressor(algo)
			if err != nil {
				t.Fatalf("failed to create compressor for %s: %v", algo, err)
			}

			compressed, err := compressor.Compress([]byte{})
			if err != nil {
				t.Fatalf("failed to compress empty data with %s: %v", algo, err)
			}

			decompressed, err := compressor.Decompress(compressed)
			if err != nil {
				t.Fatalf("failed to decompress empty data with %s: %v", algo, err)
			}

			if len(decompressed) != 0 {
				t.Errorf("expected empty data, got %d bytes", len(decompressed))
			}
		})
	}
}

func TestCorruptData(t *testing.T) {
	for _, algo := range []Algorithm{Gzip, Snappy, Zstd} {
		c, _ := NewCompressor(algo)
		if _, err := c.Decompress([]byte("definitely not compressed")); err == nil {
			t.Errorf("%s: expected error for corrupt input", algo)
		}
	}
}

func TestFromPath(t *testing.T) {
	tests := []struct {
		path     string
		wantAlgo Algorithm
		wantRest string
	}{
		{"orders.csv.gz", Gzip, "orders.csv"},
		{"s3://bucket/book.xlsx.ZST", Zstd, "s3://bucket/book.xlsx"},
		{"https://host/a.csv.lz4?sig=1", LZ4, "https://host/a.csv"},
		{"data.csv.sz", Snappy, "data.csv"},
		{"book.xlsx", None, "book.xlsx"},
		{"dir.gz/book", None, "dir.gz/book"},
		{"noext", None, "noext"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			algo, rest := FromPath(tt.path)
			if algo != tt.wantAlgo || rest != tt.wantRest {
				t.Errorf("FromPath(%q) = (%q, %q), want (%q, %q)", tt.path, algo, rest, tt.wantAlgo, tt.wantRest)
			}
		})
	}
}

func TestUnsupported(t *testing.T) {
	if _, err := NewCompressor("brotli"); err == nil {
		t.Error("expected error for unsupported algorithm")
	}
}
