package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDiskUsageBytes(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "db", "ragqa.db")
	uploads := filepath.Join(dir, "documents")
	for path, content := range map[string]string{
		dbPath:                                     strings.Repeat("x", 10),
		filepath.Join(uploads, "1a2b3c4d_a.txt"):   "warranty",
		filepath.Join(uploads, "nested", "b.docx"): "abc",
	} {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		name  string
		paths []string
		want  int64
	}{
		{"database file", []string{dbPath}, 10},
		{"upload dir recursive", []string{uploads}, 11},
		{"database and uploads", []string{dbPath, uploads}, 21},
		{"missing path skipped", []string{filepath.Join(dir, "nope"), uploads}, 11},
		{"empty path skipped", []string{"", dbPath}, 10},
		{"nothing", nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DiskUsageBytes(tt.paths...)
			if err != nil {
				t.Fatalf("DiskUsageBytes: %v", err)
			}
			if got != tt.want {
				t.Errorf("DiskUsageBytes = %d, want %d", got, tt.want)
			}
		})
	}
}
