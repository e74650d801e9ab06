package reporting

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Export formats accepted by WriteFiles.
const (
	FormatCSV      = "csv"
	FormatXLSX     = "xlsx"
	FormatMarkdown = "md"
)

// ParseFormats splits a comma-separated format list such as "xlsx,csv,md".
func ParseFormats(s string) ([]string, error) {
	var out []string
	seen := make(map[string]bool)
	for _, f := range strings.Split(s, ",") {
		f = strings.ToLower(strings.TrimSpace(f))
		if f == "" || seen[f] {
			continue
		}
		switch f {
		case FormatCSV, FormatXLSX, FormatMarkdown:
		default:
			return nil, fmt.Errorf("unknown export format %q (csv, xlsx, md)", f)
		}
		seen[f] = true
		out = append(out, f)
	}
	return out, nil
}

// WriteFiles writes one export per format into dir, creating dir if needed.
// All files share the timestamp of report.GeneratedAt. Returns the written paths.
func WriteFiles(dir string, report *Report, formats []string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	var paths []string
	for _, f := range formats {
		path := filepath.Join(dir, ExportFileName(report.GeneratedAt, f))
		err := writeFile(path, func(w io.Writer) error {
			switch f {
			case FormatCSV:
				return WriteCSV(w, report.Results)
			case FormatXLSX:
				return WriteXLSX(w, report.Results, report.Summary)
			case FormatMarkdown:
				_, err := io.WriteString(w, RenderMarkdown(report))
				return err
			default:
				return fmt.Errorf("unknown export format %q", f)
			}
		})
		if err != nil {
			return paths, fmt.Errorf("write %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

