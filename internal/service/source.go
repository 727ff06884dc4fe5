package service

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joeblew999/plat-mapcraft/internal/host/local"
)

// SourceService lists the vector files under the sources directory.
type SourceService struct {
	sourcesDir string
	local      bool
}

// NewSourceService creates a new source service. Unless local is set, layer
// files must stay inside the sources directory; the CLI sets it to accept
// any file on the machine.
func NewSourceService(dataDir string, local bool) *SourceService {
	return &SourceService{
		sourcesDir: filepath.Join(dataDir, "sources"),
		local:      local,
	}
}

// List returns all readable source files.
func (s *SourceService) List() ([]SourceFile, error) {
	entries, err := os.ReadDir(s.sourcesDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []SourceFile{}, nil
		}
		return nil, err
	}

	files := []SourceFile{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		ext := strings.ToLower(filepath.Ext(entry.Name()))
		fileType, ok := local.VectorExtensions[ext]
		if !ok {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		files = append(files, SourceFile{
			Name:     entry.Name(),
			Size:     formatSize(info.Size()),
			FileType: fileType,
		})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

// Resolve joins a relative path to the sources directory. Absolute paths are
// returned unchanged for local use and rejected otherwise, as is any path
// that leaves the sources directory.
func (s *SourceService) Resolve(path string) (string, error) {
	if s.local && filepath.IsAbs(path) {
		return path, nil
	}
	if !s.local && !filepath.IsLocal(path) {
		return "", fmt.Errorf("%q is outside the sources directory", path)
	}
	return filepath.Join(s.sourcesDir, path), nil
}

// Local reports whether paths outside the data directory are accepted.
func (s *SourceService) Local() bool {
	return s.local
}

// SourcesDir returns the path to the sources directory.
func (s *SourceService) SourcesDir() string {
	return s.sourcesDir
}

func formatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
