// Package archive keeps the raw enrollment captures on disk, one folder per
// student, so enrollments can be audited or replayed offline.
package archive

import (
	"errors"
	"fmt"
	"image"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/disintegration/imaging"
)

const (
	dirPerm     = 0o755
	jpegQuality = 90
)

// Archive writes captures under <root>/<id>_<slug>/<slug>_<n>.jpg.
type Archive struct {
	root string
}

func New(root string) *Archive {
	return &Archive{root: root}
}

func (a *Archive) Root() string {
	return a.root
}

// Save writes every image of one enrollment and returns the written paths.
// Numbering starts at 1 and continues after captures already in the folder.
func (a *Archive) Save(studentID int64, name string, images []image.Image) ([]string, error) {
	dir := a.folder(studentID, name)
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return nil, fmt.Errorf("create archive folder: %w", err)
	}

	existing, err := a.List(studentID, name)
	if err != nil {
		return nil, err
	}

	slug := Slug(name)
	paths := make([]string, 0, len(images))
	for i, img := range images {
		path := filepath.Join(dir, fmt.Sprintf("%s_%d.jpg", slug, len(existing)+i+1))
		if err := imaging.Save(img, path, imaging.JPEGQuality(jpegQuality)); err != nil {
			return paths, fmt.Errorf("save capture %d: %w", i+1, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// List returns the capture paths of a student, in capture order.
func (a *Archive) List(studentID int64, name string) ([]string, error) {
	return listImages(a.folder(studentID, name))
}

// Folder is one student directory found by Scan.
type Folder struct {
	StudentID int64
	Name      string
	Files     []string
}

// Scan walks root for <id>_<name> folders. Directories that do not follow
// the layout are ignored.
func Scan(root string) ([]Folder, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("read archive root: %w", err)
	}

	var folders []Folder
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		id, name, ok := parseFolderName(e.Name())
		if !ok {
			continue
		}
		files, err := listImages(filepath.Join(root, e.Name()))
		if err != nil {
			return nil, err
		}
		folders = append(folders, Folder{StudentID: id, Name: name, Files: files})
	}

	sort.Slice(folders, func(i, j int) bool { return folders[i].StudentID < folders[j].StudentID })
	return folders, nil
}

// Slug makes a name safe to use as a path segment. Spaces become underscores.
func Slug(name string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(name) {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '-':
			b.WriteRune(r)
		case unicode.IsSpace(r), r == '_':
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "student"
	}
	return b.String()
}

func (a *Archive) folder(studentID int64, name string) string {
	return filepath.Join(a.root, fmt.Sprintf("%d_%s", studentID, Slug(name)))
}

func parseFolderName(s string) (int64, string, bool) {
	idPart, namePart, found := strings.Cut(s, "_")
	if !found || namePart == "" {
		return 0, "", false
	}
	id, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil || id <= 0 {
		return 0, "", false
	}
	return id, strings.ReplaceAll(namePart, "_", " "), true
}

var imageExts = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".webp": true, ".gif": true, ".bmp": true,
}

func listImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", dir, err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || !imageExts[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Slice(files, func(i, j int) bool { return captureIndex(files[i]) < captureIndex(files[j]) })
	return files, nil
}

// captureIndex orders "<slug>_10.jpg" after "<slug>_9.jpg".
func captureIndex(path string) int {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if i := strings.LastIndexByte(base, '_'); i >= 0 {
		if n, err := strconv.Atoi(base[i+1:]); err == nil {
			return n
		}
	}
	return 0
}
