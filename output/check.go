package output

import (
	"bufio"
	"bytes"
	"os"
	"path/filepath"
	"strings"

	"github.com/teranos/genpipe/errors"
	"github.com/teranos/genpipe/pipeline"
)

// DefaultMetadataPrefixes mark lines that change on every generation
// without representing a real difference.
var DefaultMetadataPrefixes = []string{
	"// Source last modified:",
	"// Source version:",
}

// CheckResult holds the result of comparing a report with files on disk.
type CheckResult struct {
	UpToDate bool
	Stale    []string // files whose content differs
	Missing  []string // files that do not exist yet
}

// Check compares every artifact in report with the file a Writer rooted at
// dir would produce. Lines starting with one of ignorePrefixes are left out
// of the comparison; with none given, DefaultMetadataPrefixes apply.
func Check(report *pipeline.Report, dir string, ignorePrefixes ...string) (*CheckResult, error) {
	if len(ignorePrefixes) == 0 {
		ignorePrefixes = DefaultMetadataPrefixes
	}

	result := &CheckResult{}
	for _, sf := range report.Artifacts() {
		rel, err := ArtifactPath(sf)
		if err != nil {
			return nil, err
		}

		existing, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(rel)))
		switch {
		case os.IsNotExist(err):
			result.Missing = append(result.Missing, rel)
			continue
		case err != nil:
			return nil, errors.Wrapf(err, "failed to read %s", rel)
		}

		if filterMetadataLines(existing, ignorePrefixes) != filterMetadataLines([]byte(sf.Content), ignorePrefixes) {
			result.Stale = append(result.Stale, rel)
		}
	}

	result.UpToDate = len(result.Stale) == 0 && len(result.Missing) == 0
	return result, nil
}

// filterMetadataLines removes lines matching prefixes (after trimming
// whitespace). Returns "" if the scanner fails, which makes the comparison
// fail rather than pass silently.
func filterMetadataLines(content []byte, prefixes []string) string {
	var result strings.Builder
	scanner := bufio.NewScanner(bytes.NewReader(content))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		if hasAnyPrefix(strings.TrimSpace(line), prefixes) {
			continue
		}
		result.WriteString(line)
		result.WriteString("\n")
	}

	if err := scanner.Err(); err != nil {
		return ""
	}
	return result.String()
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
