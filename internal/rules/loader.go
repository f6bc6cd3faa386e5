package rules

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"ruleomatic/internal/logging"
	"ruleomatic/internal/types"
)

// FileError reports a rule file that could not be read. The loader logs it
// and continues with the remaining files.
type FileError struct {
	Path string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("failed to read rule file %s: %v", e.Path, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}

// LoadReport is the outcome of one load over all base directories.
type LoadReport struct {
	Rules        []types.EnrichedRule
	Files        int
	FailedFiles  []*FileError
	SkippedLines int
}

// Repository loads rules from an ordered list of base directories. Earlier
// directories have lower precedence than later ones.
type Repository struct {
	basePaths []string
}

// NewRepository creates a repository over basePaths.
func NewRepository(basePaths []string) *Repository {
	paths := make([]string, len(basePaths))
	copy(paths, basePaths)
	return &Repository{basePaths: paths}
}

// BasePaths returns a copy of the configured base directories.
func (r *Repository) BasePaths() []string {
	out := make([]string, len(r.basePaths))
	copy(out, r.basePaths)
	return out
}

// LoadAll returns every rule in base directory order, then path order, then
// file order. Shadowing is not resolved here.
func (r *Repository) LoadAll() ([]types.EnrichedRule, error) {
	report, err := r.Load()
	if err != nil {
		return nil, err
	}
	return report.Rules, nil
}

// Load is LoadAll with per-file diagnostics.
func (r *Repository) Load() (*LoadReport, error) {
	timer := logging.StartTimer(logging.CategoryRules, "load rules")
	defer timer.Stop()

	log := logging.Get(logging.CategoryRules)
	report := &LoadReport{}

	for _, base := range r.basePaths {
		files := discoverRuleFiles(base)
		log.Debugw("discovered rule files", "base", base, "count", len(files))

		for _, path := range files {
			report.Files++
			data, err := os.ReadFile(path)
			if err != nil {
				fe := &FileError{Path: path, Err: err}
				report.FailedFiles = append(report.FailedFiles, fe)
				log.Warnw("skipping invalid rule file", "path", path, "error", err)
				continue
			}

			parsed, skipped := Parse(string(data), path)
			for _, s := range skipped {
				log.Debugw("skipping malformed rule line", "path", path, "line", s.Line, "error", s.Err)
			}
			report.SkippedLines += len(skipped)
			report.Rules = append(report.Rules, parsed...)
		}
	}

	log.Infow("rules loaded",
		"rules", len(report.Rules),
		"files", report.Files,
		"failed_files", len(report.FailedFiles),
		"skipped_lines", report.SkippedLines)
	return report, nil
}

// discoverRuleFiles walks base recursively and returns the rule files in
// lexicographic path order. A base that is itself a rule file yields just
// that file. A missing or unreadable base yields nothing.
func discoverRuleFiles(base string) []string {
	if abs, err := filepath.Abs(base); err == nil {
		base = abs
	}

	info, err := os.Stat(base)
	if err != nil {
		return nil
	}
	if !info.IsDir() {
		if info.Mode().IsRegular() && filepath.Ext(base) == Extension {
			return []string{filepath.Clean(base)}
		}
		return nil
	}

	root := base
	if linfo, err := os.Lstat(base); err == nil && linfo.Mode()&fs.ModeSymlink != 0 {
		// A trailing separator makes WalkDir descend into a symlinked base.
		root = base + string(filepath.Separator)
	}

	var files []string
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if filepath.Ext(path) == Extension {
			files = append(files, filepath.Clean(path))
		}
		return nil
	})

	sort.SliceStable(files, func(i, j int) bool {
		return comparePaths(files[i], files[j]) < 0
	})
	return files
}

// comparePaths orders paths component by component, so "a/x.rules" sorts
// before "a.rules" just as a directory walk would visit them.
func comparePaths(a, b string) int {
	ac := strings.Split(a, string(filepath.Separator))
	bc := strings.Split(b, string(filepath.Separator))
	for i := 0; i < len(ac) && i < len(bc); i++ {
		if c := strings.Compare(ac[i], bc[i]); c != 0 {
			return c
		}
	}
	return len(ac) - len(bc)
}
