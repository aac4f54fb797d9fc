package history

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jwulff/bolt/internal/domain"
)

// Download is a named plain-text file ready to be written.
type Download struct {
	Name string
	Data []byte
}

// DownloadAsText returns the entry's text as a file named after its type and id.
func DownloadAsText(e domain.HistoryEntry) Download {
	return Download{
		Name: fmt.Sprintf("%s-log-%s.txt", e.Type, e.ID),
		Data: []byte(e.Text),
	}
}

// DownloadCurrent returns the live text of a mode as a dated file.
func DownloadCurrent(t domain.EntryType, text string, now time.Time) Download {
	return Download{
		Name: fmt.Sprintf("%s-text-%s.txt", t, now.Format("2006-01-02")),
		Data: []byte(text),
	}
}

// DownloadAll concatenates every entry, newest first, each under a header
// line carrying its timestamp and confidence.
func (s *Store) DownloadAll() Download {
	entries := s.List(Filter{})
	blocks := make([]string, 0, len(entries))
	for _, e := range entries {
		blocks = append(blocks, formatBlock(e))
	}
	return Download{
		Name: fmt.Sprintf("complete-history-%s.txt", s.now().Format("2006-01-02")),
		Data: []byte(strings.Join(blocks, "\n")),
	}
}

func formatBlock(e domain.HistoryEntry) string {
	conf := "n/a"
	if e.Confidence != nil {
		conf = e.ConfidenceLabel() + "%"
	}
	return fmt.Sprintf("[%s] (Confidence: %s)\n%s\n", e.Timestamp(), conf, e.Text)
}

// WriteFile writes d into dir, creating it if needed, and returns the path.
// An existing file of the same name gets a numeric suffix instead of being
// overwritten.
func WriteFile(dir string, d Download) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create downloads dir: %w", err)
	}

	ext := filepath.Ext(d.Name)
	base := strings.TrimSuffix(d.Name, ext)
	path := filepath.Join(dir, d.Name)
	for i := 1; ; i++ {
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			if _, err := f.Write(d.Data); err != nil {
				f.Close()
				return "", fmt.Errorf("write %s: %w", path, err)
			}
			if err := f.Close(); err != nil {
				return "", fmt.Errorf("close %s: %w", path, err)
			}
			return path, nil
		}
		if !os.IsExist(err) {
			return "", fmt.Errorf("create %s: %w", path, err)
		}
		path = filepath.Join(dir, fmt.Sprintf("%s (%d)%s", base, i, ext))
	}
}
