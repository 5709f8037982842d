package registry

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"rtscorrect/internal/common/fsutil"
	"rtscorrect/pkg/types"
)

// ErrNoModel is returned when a path or directory does not yield a GGUF model.
var ErrNoModel = errors.New("no gguf model found")

var quantRe = regexp.MustCompile(`(?i)(?:^|[-_.])((?:IQ|Q)\d+(?:_[A-Z0-9]+)*|F16|BF16|F32)$`)

// GGUFScanner discovers *.gguf files in a directory.
type GGUFScanner struct{}

// NewGGUFScanner returns a scanner.
func NewGGUFScanner() GGUFScanner { return GGUFScanner{} }

// Scan lists GGUF files in dir (non-recursive), sorted by file name.
func (GGUFScanner) Scan(dir string) ([]types.Model, error) {
	return LoadDir(dir)
}

// LoadDir scans a directory for *.gguf files and builds a registry from filenames.
// ID is the file name without extension; Path is the absolute file path.
func LoadDir(dir string) ([]types.Model, error) {
	base, err := fsutil.ExpandHome(dir)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("abs path: %w", err)
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}
	var models []types.Model
	for _, e := range entries {
		if e.IsDir() || !fsutil.HasExt(e.Name(), ".gguf") {
			continue
		}
		models = append(models, modelFor(filepath.Join(abs, e.Name()), e))
	}
	sort.Slice(models, func(i, j int) bool { return models[i].ID < models[j].ID })
	return models, nil
}

func modelFor(path string, e os.DirEntry) types.Model {
	name := filepath.Base(path)
	id := strings.TrimSuffix(name, filepath.Ext(name))
	m := types.Model{ID: id, Name: id, Path: path}
	if q := quantRe.FindStringSubmatch(id); q != nil {
		m.Quant = strings.ToUpper(q[1])
	}
	if e != nil {
		if fi, err := e.Info(); err == nil {
			m.SizeBytes = fi.Size()
		}
	}
	return m
}

// Resolve turns a configured model reference into a file path. ref may be a
// GGUF file, a directory (the first model by name is used), or a model id or
// file name inside modelsDir. An empty ref selects the first model in modelsDir.
func Resolve(ref, modelsDir string) (string, error) {
	if ref == "" {
		if modelsDir == "" {
			return "", ErrNoModel
		}
		return firstIn(modelsDir)
	}
	p, err := fsutil.ExpandHome(ref)
	if err != nil {
		return "", err
	}
	if fsutil.IsDir(p) {
		return firstIn(p)
	}
	if fsutil.PathExists(p) {
		return filepath.Abs(p)
	}
	if modelsDir == "" {
		return "", fmt.Errorf("%w: %s", ErrNoModel, ref)
	}
	models, err := LoadDir(modelsDir)
	if err != nil {
		return "", err
	}
	for _, m := range models {
		if m.ID == ref || filepath.Base(m.Path) == ref {
			return m.Path, nil
		}
	}
	return "", fmt.Errorf("%w: %s in %s", ErrNoModel, ref, modelsDir)
}

func firstIn(dir string) (string, error) {
	models, err := LoadDir(dir)
	if err != nil {
		return "", err
	}
	if len(models) == 0 {
		return "", fmt.Errorf("%w in %s", ErrNoModel, dir)
	}
	return models[0].Path, nil
}
