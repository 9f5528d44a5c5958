// Package snapshot writes reproducibility archives for a script run.
//
// Register prepares the output directory next to the script and returns a
// Guard. The archives are written when the guard runs:
//
//	guard, err := snapshot.Register(req, deps)
//	if err != nil {
//		return err
//	}
//	defer guard.Close()
//
// The primary archive output/_rpr.zip holds the scripts, a watermark, the
// dependency freeze, the lockfile and the toolbox tree. If the run failed it
// is replaced by an archive holding only error.txt. The secondary archive
// output/<stem>_data_sources.zip lists the data directories the run used.
package snapshot

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/jhsmit/hal/internal/config"
	"github.com/jhsmit/hal/internal/fileutil"
	"github.com/jhsmit/hal/internal/freeze"
	"github.com/jhsmit/hal/internal/ignore"
	"github.com/jhsmit/hal/internal/inventory"
	"github.com/jhsmit/hal/internal/languages"
	"github.com/jhsmit/hal/internal/listing"
	"github.com/jhsmit/hal/internal/logging"
	"github.com/jhsmit/hal/internal/parser"
	"github.com/jhsmit/hal/internal/vcs"
	"github.com/jhsmit/hal/internal/watermark"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	OutputDirName    = "output"
	PrimaryArchive   = "_rpr.zip"
	DataSourceSuffix = "_data_sources.zip"

	ScriptsPrefix    = "scripts/"
	WatermarkEntry   = "watermark.txt"
	FreezeEntry      = "uv_pip_freeze.txt"
	FreezeErrorEntry = "uv_pip_freeze_error.txt"
	ErrorEntry       = "error.txt"
	ManifestEntry    = "manifest.json"
)

// Request describes one snapshot.
type Request struct {
	// ScriptPath is the script being run.
	ScriptPath string
	// Namespace overrides the names parsed from the script source.
	Namespace inventory.Namespace
	// Packages are extra package names to record.
	Packages []string
	// DataPaths are extra named data directories to list.
	DataPaths map[string]string
	Overrides watermark.Overrides
	// Hook records a panic escaping the deferred Close as the run's error.
	Hook bool
}

// Deps are the collaborators a snapshot uses. Zero fields get defaults.
type Deps struct {
	Config      *config.Config
	Registry    *parser.Registry
	Interpreter *inventory.Interpreter
	Git         *vcs.Probe
	Freeze      *freeze.Provider
	Log         logrus.FieldLogger
	Now         func() time.Time
}

type snapshotter struct {
	req       Request
	cfg       *config.Config
	registry  *parser.Registry
	interp    *inventory.Interpreter
	git       *vcs.Probe
	freezer   *freeze.Provider
	log       logrus.FieldLogger
	now       func() time.Time
	scriptDir string
	outputDir string
	namespace inventory.Namespace
}

// Register resolves and creates <script dir>/output and returns the guard
// that will write the archives. Unless the request carries a namespace the
// script is parsed: its imports become the namespace and every configured
// path key read by it, or by a helper module archived beside it, is marked
// as used.
func Register(req Request, deps Deps) (*Guard, error) {
	if deps.Config == nil {
		return nil, errors.New("snapshot requires a configuration")
	}
	script, err := filepath.Abs(req.ScriptPath)
	if err != nil {
		return nil, errors.Wrapf(err, "resolve %s", req.ScriptPath)
	}
	req.ScriptPath = script

	s := &snapshotter{
		req:       req,
		cfg:       deps.Config,
		registry:  deps.Registry,
		interp:    deps.Interpreter,
		git:       deps.Git,
		freezer:   deps.Freeze,
		log:       logging.OrDiscard(deps.Log),
		now:       deps.Now,
		scriptDir: filepath.Dir(script),
	}
	if s.registry == nil {
		s.registry = languages.NewDefaultRegistry()
	}
	if s.interp == nil {
		s.interp = inventory.NewInterpreter(s.cfg.Python, s.log)
	}
	if s.git == nil {
		s.git = vcs.NewProbe()
	}
	if s.freezer == nil {
		s.freezer = freeze.NewProvider(s.cfg.Root)
	}
	if s.now == nil {
		s.now = time.Now
	}

	s.outputDir = filepath.Join(s.scriptDir, OutputDirName)
	if err := os.MkdirAll(s.outputDir, 0o755); err != nil {
		return nil, errors.Wrap(err, "create output directory")
	}

	s.namespace = req.Namespace
	if s.namespace == nil {
		facts, err := s.registry.ParseFile(script)
		if err != nil {
			return nil, errors.Wrapf(err, "parse %s", script)
		}
		s.namespace = inventory.NamespaceFromFacts(facts)
		if facts != nil {
			s.markPathKeys(facts.PathKeys)
		}
		if err := s.markHelperPathKeys(script); err != nil {
			return nil, err
		}
	}

	return &Guard{snap: s, state: Registered}, nil
}

func (s *snapshotter) markPathKeys(keys []string) {
	for _, key := range keys {
		s.cfg.Paths.Get(key)
	}
}

// markHelperPathKeys marks the configured paths read by the other modules
// archived next to the script. Unparseable helpers are skipped.
func (s *snapshotter) markHelperPathKeys(script string) error {
	rules, err := ignore.LoadRules(s.scriptDir)
	if err != nil {
		return err
	}
	sources, _, err := s.registry.CollectSources(s.scriptDir, rules)
	if err != nil {
		return errors.Wrap(err, "collect scripts")
	}
	for _, source := range sources {
		if filepath.Clean(source.Path) == filepath.Clean(script) {
			continue
		}
		facts, err := s.registry.ParseFile(source.Path)
		if err != nil {
			s.log.WithError(err).WithField("file", source.RelPath).Debug("skipping helper")
			continue
		}
		if facts != nil {
			s.markPathKeys(facts.PathKeys)
		}
	}
	return nil
}

func (s *snapshotter) execute(ctx context.Context, failure *ErrorRecord) error {
	stdlib := s.interp.Stdlib(ctx)
	packages := inventory.Collect(s.namespace, s.req.Packages, inventory.Options{
		EditableDir: s.cfg.EditableDir(),
		LocalDir:    s.scriptDir,
		Stdlib:      stdlib,
	})

	facts, opts, err := s.gatherWatermark(ctx, packages)
	if err != nil {
		return err
	}

	frozen := s.freezer.Freeze(ctx)
	facts.Versions = make(map[string]string, len(packages))
	for _, name := range packages {
		if version, ok := inventory.Version(name, frozen.Stdout); ok {
			facts.Versions[name] = version
		}
	}
	mark := watermark.Render(facts, opts)

	dataPaths := s.dataPaths()

	entries, err := s.primaryEntries(mark, frozen)
	if err != nil {
		return err
	}
	primary := filepath.Join(s.outputDir, PrimaryArchive)
	if err := WriteArchive(primary, entries); err != nil {
		return err
	}

	if failure != nil {
		// Replaces the primary archive rather than adding to it.
		if err := WriteArchive(primary, []Entry{{Name: ErrorEntry, Data: []byte(failure.Text())}}); err != nil {
			return err
		}
	}

	stem := strings.TrimSuffix(filepath.Base(s.req.ScriptPath), filepath.Ext(s.req.ScriptPath))
	if err := WriteArchive(filepath.Join(s.outputDir, stem+DataSourceSuffix), dataSourceEntries(dataPaths)); err != nil {
		return err
	}

	s.log.WithFields(logrus.Fields{
		"output":   s.outputDir,
		"packages": len(packages),
	}).Debug("snapshot written")
	return nil
}

func (s *snapshotter) gatherWatermark(ctx context.Context, packages []string) (watermark.Facts, watermark.Options, error) {
	facts := watermark.Facts{
		RunID:    watermark.NewRunID(),
		Now:      s.now(),
		Machine:  watermark.HostMachine(),
		Packages: packages,
	}

	isRepo := s.git.IsRepository(ctx, s.cfg.Root)
	overrides := s.req.Overrides
	if overrides.Author == nil && s.cfg.Author != "" {
		author := s.cfg.Author
		overrides.Author = &author
	}
	opts := watermark.Apply(overrides, isRepo)

	if isRepo {
		lines, err := s.git.StatusLines(ctx, s.cfg.Root)
		if err != nil {
			return facts, opts, errors.Wrap(err, "git status failed in a repository")
		}
		if len(lines) > 0 {
			counts := vcs.Count(lines)
			s.log.WithFields(logrus.Fields{
				"untracked": counts.Untracked,
				"modified":  counts.Modified,
				"added":     counts.Added,
				"deleted":   counts.Deleted,
				"renamed":   counts.Renamed,
			}).Warn(counts.String())
			facts.StatusLines = lines
		}
		if opts.GitHash {
			facts.GitHash, _ = s.git.Head(ctx, s.cfg.Root)
		}
		if opts.GitBranch {
			facts.GitBranch, _ = s.git.Branch(ctx, s.cfg.Root)
		}
	} else {
		s.log.Warn("Current directory is not a git repository.")
	}

	if opts.Python {
		info, err := s.interp.Describe(ctx)
		if err != nil {
			s.log.WithError(err).Debug("python version unavailable")
		}
		facts.Implementation = info.Implementation
		facts.PythonVersion = info.Version
		facts.Compiler = info.Compiler
	}
	facts.Additional = s.interp.ModuleVersions(ctx, s.req.Packages)
	return facts, opts, nil
}

// dataPaths merges explicit paths, the reserved root data and output
// directories and every configured path the run read. Later sources win.
func (s *snapshotter) dataPaths() map[string]string {
	paths := make(map[string]string, len(s.req.DataPaths)+2)
	for key, value := range s.req.DataPaths {
		paths[key] = value
	}
	paths[config.RootDataKey] = s.cfg.DataDir()
	paths[config.OutputKey] = s.outputDir
	configured := s.cfg.Paths.Snapshot()
	for _, key := range s.cfg.Paths.UsedKeys() {
		if value, ok := configured[key]; ok {
			paths[key] = value
		}
	}
	return paths
}

func (s *snapshotter) primaryEntries(mark string, frozen freeze.Result) ([]Entry, error) {
	entries := make([]Entry, 0, 16)

	rules, err := ignore.LoadRules(s.scriptDir)
	if err != nil {
		return nil, err
	}
	sources, issues, err := s.registry.CollectSources(s.scriptDir, rules)
	if err != nil {
		return nil, errors.Wrap(err, "collect scripts")
	}
	for _, issue := range issues {
		s.log.WithField("file", issue.File).Warn(issue.Message)
	}
	for _, source := range sources {
		data, err := os.ReadFile(source.Path)
		if err != nil {
			return nil, errors.Wrapf(err, "read %s", source.Path)
		}
		entries = append(entries, Entry{Name: ScriptsPrefix + source.RelPath, Data: data})
	}

	entries = append(entries,
		Entry{Name: WatermarkEntry, Data: []byte(mark)},
		Entry{Name: FreezeEntry, Data: []byte(frozen.Stdout)},
	)
	if frozen.Stderr != "" {
		entries = append(entries, Entry{Name: FreezeErrorEntry, Data: []byte(frozen.Stderr)})
	}

	if data, err := os.ReadFile(s.cfg.LockFilePath()); err == nil {
		entries = append(entries, Entry{Name: config.LockFile, Data: data})
	} else if !os.IsNotExist(err) {
		return nil, errors.Wrap(err, "read lockfile")
	}

	toolbox, err := treeEntries(s.cfg.ToolboxDir(), config.ToolboxDirName)
	if err != nil {
		return nil, err
	}
	entries = append(entries, toolbox...)

	manifest, err := manifestEntry(entries)
	if err != nil {
		return nil, err
	}
	return append(entries, manifest), nil
}

// treeEntries archives every regular file below dir under prefix, skipping
// interpreter caches. A missing dir yields nothing.
func treeEntries(dir, prefix string) ([]Entry, error) {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, nil
	}
	entries := make([]Entry, 0)
	fsys := os.DirFS(dir)
	err = doublestar.GlobWalk(fsys, "**", func(path string, d fs.DirEntry) error {
		if !d.Type().IsRegular() || containsSegment(path, "__pycache__") {
			return nil
		}
		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return errors.Wrapf(err, "read %s", path)
		}
		entries = append(entries, Entry{Name: prefix + "/" + path, Data: data})
		return nil
	})
	return entries, err
}

func containsSegment(path, segment string) bool {
	for _, part := range strings.Split(path, "/") {
		if part == segment {
			return true
		}
	}
	return false
}

type manifest struct {
	Files map[string]string `json:"files"`
}

func manifestEntry(entries []Entry) (Entry, error) {
	m := manifest{Files: make(map[string]string, len(entries))}
	for _, entry := range entries {
		m.Files[entry.Name] = fileutil.HashBytes(entry.Data)
	}
	var buf strings.Builder
	if err := fileutil.WriteJSON(&buf, m); err != nil {
		return Entry{}, errors.Wrap(err, "encode manifest")
	}
	return Entry{Name: ManifestEntry, Data: []byte(buf.String())}, nil
}

func dataSourceEntries(paths map[string]string) []Entry {
	keys := make([]string, 0, len(paths))
	for key := range paths {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	entries := make([]Entry, 0, len(keys))
	for _, key := range keys {
		text := listing.ListDir(paths[key])
		if text == "" {
			continue
		}
		entries = append(entries, Entry{Name: key + ".txt", Data: []byte(text)})
	}
	return entries
}
