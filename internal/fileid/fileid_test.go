package fileid

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestFileDocID(t *testing.T) {
	// Deterministic: same path gives same ID
	id1 := FileDocID("/foo/bar.txt")
	id2 := FileDocID("/foo/bar.txt")
	if id1 != id2 {
		t.Errorf("same path should give same ID: %q vs %q", id1, id2)
	}
	if !IsFileDocID(id1) {
		t.Errorf("ID should have prefix %q: got %q", filePrefix, id1)
	}
	if len(id1) != len(filePrefix)+32 {
		t.Errorf("unexpected ID length: %q", id1)
	}
}

func TestFileDocID_differentPaths(t *testing.T) {
	if FileDocID("/foo/bar.txt") == FileDocID("/foo/baz.txt") {
		t.Error("different paths should give different IDs")
	}
}

func TestFileDocID_normalized(t *testing.T) {
	// Clean path: /foo/bar and /foo/bar/ and /foo/./bar should match
	id1 := FileDocID("/foo/bar")
	id2 := FileDocID("/foo/bar/")
	id3 := FileDocID("/foo/./bar")
	if id1 != id2 {
		t.Errorf("paths differing only by trailing slash should match: %q vs %q", id1, id2)
	}
	if id1 != id3 {
		t.Errorf("paths with . should normalize: %q vs %q", id1, id3)
	}
}

func TestFileDocID_relativeMadeAbsolute(t *testing.T) {
	abs, err := filepath.Abs("a/b.txt")
	if err != nil {
		t.Fatal(err)
	}
	if FileDocID("a/b.txt") != FileDocID(abs) {
		t.Error("relative and absolute names of the same file should match")
	}
}

func TestUploadDocID(t *testing.T) {
	id1, id2 := UploadDocID(), UploadDocID()
	if id1 == id2 {
		t.Error("upload IDs should be unique")
	}
	if !strings.HasPrefix(id1, uploadPrefix) || IsFileDocID(id1) {
		t.Errorf("unexpected upload ID %q", id1)
	}
}
