package parser

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jhsmit/hal/internal/fileutil"
	"github.com/jhsmit/hal/internal/ignore"
)

// LanguageParser defines the interface each language must implement
type LanguageParser interface {
	// Language returns the language name (e.g., "python")
	Language() string

	// Extensions returns file extensions this parser handles
	Extensions() []string

	// Parse extracts imports and config path reads from source code
	Parse(filename string, content []byte) (*FileFacts, error)
}

// Registry holds all registered language parsers
type Registry struct {
	parsers   map[string]LanguageParser // language name -> parser
	extToLang map[string]string         // extension -> language name
}

// NewRegistry creates a new parser registry
func NewRegistry() *Registry {
	return &Registry{
		parsers:   make(map[string]LanguageParser),
		extToLang: make(map[string]string),
	}
}

// Register adds a language parser to the registry
func (r *Registry) Register(p LanguageParser) {
	lang := p.Language()
	r.parsers[lang] = p
	for _, ext := range p.Extensions() {
		r.extToLang[ext] = lang
	}
}

// GetParserForFile returns the appropriate parser for a file
func (r *Registry) GetParserForFile(filename string) (LanguageParser, bool) {
	ext := strings.ToLower(filepath.Ext(filename))
	lang, ok := r.extToLang[ext]
	if !ok {
		return nil, false
	}
	parser, ok := r.parsers[lang]
	return parser, ok
}

// SupportedExtensions returns all supported file extensions, sorted
func (r *Registry) SupportedExtensions() []string {
	exts := make([]string, 0, len(r.extToLang))
	for ext := range r.extToLang {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// ParseFile parses a single file. Unsupported file types yield nil facts.
func (r *Registry) ParseFile(path string) (*FileFacts, error) {
	parser, ok := r.GetParserForFile(path)
	if !ok {
		return nil, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	facts, err := parser.Parse(path, content)
	if err != nil {
		return nil, err
	}

	facts.Imports = normalizeStrings(facts.Imports)
	facts.PathKeys = normalizeStrings(facts.PathKeys)
	facts.ImportAliases = normalizeImportAliases(facts.ImportAliases)
	facts.Hash = fileutil.HashBytes(content)

	return facts, nil
}

// CollectSources walks root and returns every file a registered parser
// handles, minus ignored paths, sorted by relative path. Walk errors are
// reported as issues rather than aborting the scan.
func (r *Registry) CollectSources(root string, ignoreRules []string) ([]SourceFile, []ParseIssue, error) {
	ignoreMatcher := ignore.NewMatcher(ignoreRules)
	files := make([]SourceFile, 0)
	issues := make([]ParseIssue, 0)

	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		relPath := path
		if rel, relErr := filepath.Rel(root, path); relErr == nil {
			relPath = filepath.ToSlash(rel)
		}
		if err != nil {
			issues = append(issues, ParseIssue{
				File:     relPath,
				Severity: "warning",
				Message:  "walk error: " + err.Error(),
			})
			if info != nil && info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if relPath == "." {
			return nil
		}

		if ignoreMatcher.ShouldIgnore(relPath, info.IsDir()) {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		if _, ok := r.GetParserForFile(path); !ok {
			return nil
		}

		files = append(files, SourceFile{Path: path, RelPath: relPath})
		return nil
	})

	sort.Slice(files, func(i, j int) bool {
		return files[i].RelPath < files[j].RelPath
	})
	return files, issues, err
}

func normalizeStrings(values []string) []string {
	if len(values) == 0 {
		return nil
	}

	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, value := range values {
		value = strings.TrimSpace(value)
		if value == "" || seen[value] {
			continue
		}
		seen[value] = true
		out = append(out, value)
	}
	sort.Strings(out)
	return out
}

func normalizeImportAliases(values map[string]string) map[string]string {
	if len(values) == 0 {
		return nil
	}

	out := make(map[string]string, len(values))
	for alias, target := range values {
		alias = strings.TrimSpace(alias)
		target = strings.TrimSpace(target)
		if alias == "" || target == "" {
			continue
		}
		out[alias] = target
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
