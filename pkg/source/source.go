// Package source enumerates the images to place in the panel space.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/charmbracelet/log"

	"panelspace/internal/models"
	"panelspace/pkg/config"
)

// ErrNoImages is returned when a directory holds no usable images.
var ErrNoImages = errors.New("no images found")

// ImageSource supplies image records with row and column indices.
type ImageSource interface {
	Images(ctx context.Context) ([]models.ImageRecord, error)
}

// Records is an ImageSource over records enumerated earlier.
type Records []models.ImageRecord

// Images returns the records, or ErrNoImages when there are none.
func (r Records) Images(ctx context.Context) ([]models.ImageRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(r) == 0 {
		return nil, ErrNoImages
	}
	return r, nil
}

// Directory is an ImageSource backed by a folder tree. Images directly in
// Root form the first row; every sub-folder holding images forms its own
// row. Folders and files are ordered by name, case-insensitively.
type Directory struct {
	Root       string
	Extensions []string
	Logger     *log.Logger
}

// NewDirectory creates a directory source using the configured extensions.
func NewDirectory(root string, cfg *config.Config, logger *log.Logger) *Directory {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Directory{
		Root:       root,
		Extensions: cfg.Source.Extensions,
		Logger:     logger.WithPrefix("source"),
	}
}

// Images walks the tree and returns one record per image file.
func (d *Directory) Images(ctx context.Context) ([]models.ImageRecord, error) {
	logger := d.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	root, err := filepath.Abs(d.Root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", d.Root, err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("failed to open image directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", root)
	}

	exts := make(map[string]bool, len(d.Extensions))
	for _, e := range d.Extensions {
		e = strings.ToLower(e)
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		exts[e] = true
	}

	folders := map[string][]string{}
	err = filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		name := entry.Name()
		if path != root && strings.HasPrefix(name, ".") {
			if entry.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if entry.IsDir() || !entry.Type().IsRegular() {
			return nil
		}
		if !exts[strings.ToLower(filepath.Ext(name))] {
			return nil
		}
		rel, err := filepath.Rel(root, filepath.Dir(path))
		if err != nil {
			return err
		}
		folders[rel] = append(folders[rel], path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", root, err)
	}
	if len(folders) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoImages, root)
	}

	names := make([]string, 0, len(folders))
	for rel := range folders {
		names = append(names, rel)
	}
	sort.Slice(names, func(i, j int) bool {
		// the root folder always comes first
		if names[i] == "." || names[j] == "." {
			return names[i] == "."
		}
		return lessFold(filepath.ToSlash(names[i]), filepath.ToSlash(names[j]))
	})

	var records []models.ImageRecord
	for row, rel := range names {
		files := folders[rel]
		sort.Slice(files, func(i, j int) bool {
			return lessFold(filepath.Base(files[i]), filepath.Base(files[j]))
		})
		folder := filepath.Base(root)
		if rel != "." {
			folder = filepath.ToSlash(rel)
		}
		for col, path := range files {
			records = append(records, models.ImageRecord{
				Path:   path,
				Row:    row,
				Column: col,
				Name:   filepath.Base(path),
				Folder: folder,
			})
		}
		logger.Debug("row", "index", row, "folder", folder, "images", len(files))
	}

	logger.Info("scanned images", "root", root, "rows", len(names), "images", len(records))
	return records, nil
}

// lessFold orders case-insensitively and breaks ties on the exact name.
func lessFold(a, b string) bool {
	la, lb := strings.ToLower(a), strings.ToLower(b)
	if la != lb {
		return la < lb
	}
	return a < b
}

// Static is an ImageSource over a fixed list of paths laid out in one row.
type Static []string

// Images returns one record per path in order.
func (s Static) Images(ctx context.Context) ([]models.ImageRecord, error) {
	if len(s) == 0 {
		return nil, ErrNoImages
	}
	records := make([]models.ImageRecord, len(s))
	for i, path := range s {
		records[i] = models.ImageRecord{
			Path:   path,
			Column: i,
			Name:   filepath.Base(path),
			Folder: filepath.Base(filepath.Dir(path)),
		}
	}
	return records, nil
}
