package source

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"panelspace/pkg/config"
)

func writeFiles(t *testing.T, root string, names ...string) {
	t.Helper()
	for _, name := range names {
		path := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("mkdir failed: %v", err)
		}
		if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
			t.Fatalf("write failed: %v", err)
		}
	}
}

func TestDirectoryRows(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root,
		"b.png", "A.jpg", "notes.txt",
		"zeta/2.png", "zeta/1.PNG",
		"Alpha/x.webp",
		"Alpha/inner/y.gif",
		"empty/readme.md",
		".hidden/skip.png",
	)

	src := NewDirectory(root, config.DefaultConfig(), nil)
	records, err := src.Images(context.Background())
	if err != nil {
		t.Fatalf("Images failed: %v", err)
	}

	type want struct {
		name     string
		row, col int
		folder   string
	}
	expected := []want{
		{"A.jpg", 0, 0, filepath.Base(root)},
		{"b.png", 0, 1, filepath.Base(root)},
		{"x.webp", 1, 0, "Alpha"},
		{"y.gif", 2, 0, "Alpha/inner"},
		{"1.PNG", 3, 0, "zeta"},
		{"2.png", 3, 1, "zeta"},
	}
	if len(records) != len(expected) {
		t.Fatalf("Expected %d records, got %d: %+v", len(expected), len(records), records)
	}
	for i, w := range expected {
		r := records[i]
		if r.Name != w.name || r.Row != w.row || r.Column != w.col || r.Folder != w.folder {
			t.Errorf("Record %d = %+v, want %+v", i, r, w)
		}
		if !filepath.IsAbs(r.Path) {
			t.Errorf("Record %d path not absolute: %s", i, r.Path)
		}
	}
}

func TestDirectoryWithoutRootImages(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "one/a.png", "two/b.png")

	records, err := NewDirectory(root, config.DefaultConfig(), nil).Images(context.Background())
	if err != nil {
		t.Fatalf("Images failed: %v", err)
	}
	if len(records) != 2 || records[0].Row != 0 || records[1].Row != 1 {
		t.Errorf("Expected rows 0 and 1, got %+v", records)
	}
}

func TestDirectoryErrors(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "notes.txt")
	src := NewDirectory(root, config.DefaultConfig(), nil)

	if _, err := src.Images(context.Background()); !errors.Is(err, ErrNoImages) {
		t.Errorf("Expected ErrNoImages, got %v", err)
	}

	missing := NewDirectory(filepath.Join(root, "missing"), config.DefaultConfig(), nil)
	if _, err := missing.Images(context.Background()); err == nil {
		t.Error("Expected error for missing directory")
	}

	file := NewDirectory(filepath.Join(root, "notes.txt"), config.DefaultConfig(), nil)
	if _, err := file.Images(context.Background()); err == nil {
		t.Error("Expected error when root is a file")
	}

	writeFiles(t, root, "a.png")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := src.Images(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestExtensionsFilter(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "a.png", "b.jpg", "c.PNG")

	src := &Directory{Root: root, Extensions: []string{"png"}}
	records, err := src.Images(context.Background())
	if err != nil {
		t.Fatalf("Images failed: %v", err)
	}
	if len(records) != 2 || records[0].Name != "a.png" || records[1].Name != "c.PNG" {
		t.Errorf("Unexpected records %+v", records)
	}
}

func TestStatic(t *testing.T) {
	records, err := Static{"/x/a.png", "/x/b.png"}.Images(context.Background())
	if err != nil {
		t.Fatalf("Images failed: %v", err)
	}
	if len(records) != 2 || records[1].Column != 1 || records[1].Row != 0 || records[1].Name != "b.png" {
		t.Errorf("Unexpected records %+v", records)
	}
	if _, err := (Static{}).Images(context.Background()); !errors.Is(err, ErrNoImages) {
		t.Errorf("Expected ErrNoImages, got %v", err)
	}
}

func TestRecords(t *testing.T) {
	in := Records{{Path: "/x/a.png", Row: 1, Column: 2}}
	records, err := in.Images(context.Background())
	if err != nil {
		t.Fatalf("Images failed: %v", err)
	}
	if len(records) != 1 || records[0] != in[0] {
		t.Errorf("Unexpected records %+v", records)
	}
	if _, err := (Records{}).Images(context.Background()); !errors.Is(err, ErrNoImages) {
		t.Errorf("Expected ErrNoImages, got %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := in.Images(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}
