package commands

import (
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"taskmate/internal/service"
)

// parsePriorityFilter parses a --priority filter; "" and "all" clear it.
func parsePriorityFilter(s string) (service.Priority, error) {
	if s == "" || strings.EqualFold(s, "all") {
		return "", nil
	}
	return service.ParsePriority(s)
}

// parseStatusFilter parses a --status filter; "" and "all" clear it.
func parseStatusFilter(s string) (service.Status, error) {
	if s == "" || strings.EqualFold(s, "all") {
		return "", nil
	}
	return service.ParseStatus(s)
}

// parseDue parses a due date. Besides dates it accepts "today",
// "tomorrow" and "+N" (days from today); "" means today.
func parseDue(s string, now time.Time) (service.Date, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "", "today":
		return service.NewDate(now), nil
	case "tomorrow":
		return service.NewDate(now.AddDate(0, 0, 1)), nil
	}
	if strings.HasPrefix(s, "+") {
		var days int
		if _, err := fmt.Sscanf(s, "+%d", &days); err == nil && days >= 0 {
			return service.NewDate(now.AddDate(0, 0, days)), nil
		}
	}
	return service.ParseDate(s)
}

// readFile reads a file for upload, enforcing the size limit before the
// contents are read.
func readFile(path string) (service.FileUpload, error) {
	info, err := os.Stat(path)
	if err != nil {
		return service.FileUpload{}, err
	}
	if info.IsDir() {
		return service.FileUpload{}, fmt.Errorf("%s is a directory", path)
	}
	if info.Size() > service.MaxFileSize {
		return service.FileUpload{}, fmt.Errorf("file exceeds the %s size limit: %s", humanize.Bytes(service.MaxFileSize), path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return service.FileUpload{}, err
	}
	return service.FileUpload{
		Name:        filepath.Base(path),
		ContentType: contentType(path, data),
		Data:        data,
	}, nil
}

// readInlineFile reads a file for embedding in a create or update payload.
func readInlineFile(path string) (*service.InlineFile, error) {
	f, err := readFile(path)
	if err != nil {
		return nil, err
	}
	return service.NewInlineFile(f.Name, f.ContentType, f.Data)
}

func contentType(path string, data []byte) string {
	if t := mime.TypeByExtension(filepath.Ext(path)); t != "" {
		return t
	}
	return http.DetectContentType(data)
}
