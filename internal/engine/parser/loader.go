package parser

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"semgraph/internal/core/errors"
	"semgraph/internal/shared/observability"

	"github.com/gobwas/glob"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/zeebo/xxh3"
)

const (
	DefaultEntry     = "main.rs"
	FallbackEntry    = "lib.rs"
	DefaultCacheSize = 512
)

type LoaderOptions struct {
	Entry        string
	CrateName    string
	ExcludeDirs  []string
	ExcludeFiles []string
	CacheSize    int
}

// CrateLoader discovers a crate's module files by following `mod` items from
// the entry file and extracts one forest. Extraction results are cached by
// content hash, so reloading after an edit only re-parses changed files.
type CrateLoader struct {
	opts         LoaderOptions
	pool         *ParserPool
	cache        *lru.Cache[string, *FileResult]
	excludeDirs  []glob.Glob
	excludeFiles []glob.Glob
}

func NewCrateLoader(opts LoaderOptions) (*CrateLoader, error) {
	if opts.Entry == "" {
		opts.Entry = DefaultEntry
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = DefaultCacheSize
	}
	cache, err := lru.New[string, *FileResult](opts.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("create parse cache: %w", err)
	}

	l := &CrateLoader{
		opts:  opts,
		pool:  NewParserPool(RustLanguage()),
		cache: cache,
	}
	for _, p := range opts.ExcludeDirs {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid exclude dir pattern %q: %w", p, err)
		}
		l.excludeDirs = append(l.excludeDirs, g)
	}
	for _, p := range opts.ExcludeFiles {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid exclude file pattern %q: %w", p, err)
		}
		l.excludeFiles = append(l.excludeFiles, g)
	}
	return l, nil
}

type loadJob struct {
	module string
	file   string
	dir    string // directory holding the files of this module's `mod x;` children
}

// Load builds the forest of the crate rooted at root, which may be the crate
// directory, its src directory or the entry file itself. Modules declared
// without a file on disk are left for the tree builder to fill with
// placeholders.
func (l *CrateLoader) Load(ctx context.Context, root string) (Forest, error) {
	entry, err := l.locateEntry(root)
	if err != nil {
		return Forest{}, err
	}
	srcDir := filepath.Dir(entry)

	forest := Forest{Crate: l.crateName(srcDir)}
	queue := []loadJob{{module: SegCrate, file: entry, dir: srcDir}}
	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return Forest{}, errors.Wrap(err, errors.CodeCanceled, "crate load canceled")
		}
		job := queue[0]
		queue = queue[1:]

		res, err := l.parseFile(job.file, l.relPath(srcDir, job.file), job.module)
		if err != nil {
			return Forest{}, errors.AddContext(err, errors.CtxPath, job.file)
		}
		forest.Modules = append(forest.Modules, res.Modules...)

		for _, fm := range res.FileMods {
			dir := filepath.Join(append([]string{job.dir}, fm.Dir...)...)
			name := LastSegment(fm.Path)
			file, ok := l.findModuleFile(dir, name)
			if !ok {
				slog.Warn("module file not found", "module", fm.Path, "dir", dir, "location", fm.Location.String())
				continue
			}
			if l.isExcluded(srcDir, file) {
				slog.Debug("module file excluded", "module", fm.Path, "path", file)
				continue
			}
			queue = append(queue, loadJob{module: fm.Path, file: file, dir: filepath.Join(dir, name)})
		}
	}

	slog.Debug("crate loaded", "crate", forest.Crate, "modules", len(forest.Modules), "cached_files", l.cache.Len())
	return forest, nil
}

func (l *CrateLoader) locateEntry(root string) (string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return "", errors.Wrap(err, errors.CodeNotFound, "crate root not found")
	}
	if !info.IsDir() {
		return root, nil
	}
	names := []string{l.opts.Entry}
	if l.opts.Entry != FallbackEntry {
		names = append(names, FallbackEntry)
	}
	for _, name := range names {
		for _, dir := range []string{root, filepath.Join(root, "src")} {
			candidate := filepath.Join(dir, name)
			if st, err := os.Stat(candidate); err == nil && !st.IsDir() {
				return candidate, nil
			}
		}
	}
	return "", errors.Newf(errors.CodeNotFound, "no %s under %s", strings.Join(names, " or "), root)
}

func (l *CrateLoader) crateName(srcDir string) string {
	if l.opts.CrateName != "" {
		return l.opts.CrateName
	}
	abs, err := filepath.Abs(srcDir)
	if err != nil {
		abs = srcDir
	}
	if filepath.Base(abs) == "src" {
		abs = filepath.Dir(abs)
	}
	return filepath.Base(abs)
}

// findModuleFile applies the `name.rs` then `name/mod.rs` lookup.
func (l *CrateLoader) findModuleFile(dir, name string) (string, bool) {
	for _, candidate := range []string{
		filepath.Join(dir, name+".rs"),
		filepath.Join(dir, name, "mod.rs"),
	} {
		if st, err := os.Stat(candidate); err == nil && !st.IsDir() {
			return candidate, true
		}
	}
	return "", false
}

func (l *CrateLoader) isExcluded(srcDir, file string) bool {
	rel, err := filepath.Rel(srcDir, file)
	if err != nil {
		rel = file
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	for _, dir := range parts[:len(parts)-1] {
		for _, g := range l.excludeDirs {
			if g.Match(dir) {
				return true
			}
		}
	}
	base := parts[len(parts)-1]
	for _, g := range l.excludeFiles {
		if g.Match(base) {
			return true
		}
	}
	return false
}

// relPath reports file relative to the crate directory.
func (l *CrateLoader) relPath(srcDir, file string) string {
	base := srcDir
	if filepath.Base(srcDir) == "src" {
		base = filepath.Dir(srcDir)
	}
	rel, err := filepath.Rel(base, file)
	if err != nil {
		return filepath.ToSlash(file)
	}
	return filepath.ToSlash(rel)
}

// parseFile extracts file as the module at modulePath, serving unchanged
// content from the cache.
func (l *CrateLoader) parseFile(file, rel, modulePath string) (*FileResult, error) {
	start := time.Now()
	source, err := os.ReadFile(file)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeNotFound, "read source file")
	}

	sum := xxh3.Hash128(source).Bytes()
	key := modulePath + "\x00" + rel + "\x00" + hex.EncodeToString(sum[:])
	if res, ok := l.cache.Get(key); ok {
		observability.ParseCacheHitsTotal.Inc()
		observability.ParsingDuration.WithLabelValues("hit").Observe(time.Since(start).Seconds())
		return res, nil
	}

	res, err := l.ParseSource(source, rel, modulePath)
	if err != nil {
		return nil, err
	}
	l.cache.Add(key, res)
	observability.ParsingDuration.WithLabelValues("miss").Observe(time.Since(start).Seconds())
	return res, nil
}

// ParseSource extracts one in-memory source buffer without touching the cache.
func (l *CrateLoader) ParseSource(source []byte, file, modulePath string) (*FileResult, error) {
	tree, err := l.pool.Parse(source)
	if err != nil {
		return nil, errors.AddContext(err, errors.CtxPath, file)
	}
	defer tree.Close()

	return NewRustExtractor().Extract(tree.RootNode(), source, file, modulePath)
}

// CacheLen returns the number of cached file extractions.
func (l *CrateLoader) CacheLen() int {
	return l.cache.Len()
}
