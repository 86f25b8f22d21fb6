package usecase

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"genesis/config"
	"genesis/internal/adapter/analyzer"
	"genesis/internal/adapter/cache"
	"genesis/internal/adapter/catalog"
	"genesis/internal/adapter/extractor"
	"genesis/internal/adapter/fs"
	"genesis/internal/adapter/grouper"
	"genesis/internal/adapter/mapper"
	"genesis/internal/adapter/synth"
	"genesis/internal/adapter/validator"
	"genesis/internal/domain"
	"genesis/internal/logging"
)

// BuildListName is the file, under the output root, listing every generated
// source for the build.
const BuildListName = "CMakeLists_modular.txt"

// PlanUseCase runs the pipeline up to, but not including, the write phase.
type PlanUseCase struct {
	cfg    *config.Config
	tree   *fs.Tree
	logger *logging.Logger
}

// NewPlanUseCase creates a new plan use case rooted at tree.
func NewPlanUseCase(cfg *config.Config, tree *fs.Tree, logger *logging.Logger) *PlanUseCase {
	if logger == nil {
		logger = logging.Nop()
	}
	return &PlanUseCase{cfg: cfg, tree: tree, logger: logger}
}

// Plan decomposes inputs (root-relative paths or globs; empty means the
// configured source set) into a Plan. It never writes. A parse error in any
// input, an ambiguous catalog in strict mode, or two units claiming the
// same output path abort the run.
func (u *PlanUseCase) Plan(ctx context.Context, inputs []string) (*domain.Plan, error) {
	ctx, span := startPhase(ctx, "plan")
	defer span.End()

	plan := &domain.Plan{
		Root:       u.tree.Root(),
		OutputRoot: u.cfg.Mapping.OutputRoot,
	}

	paths, err := u.resolveInputs(inputs)
	if err != nil {
		return nil, err
	}
	sources, err := u.readSources(paths)
	if err != nil {
		return nil, err
	}
	plan.Sources = paths

	// The catalog is complete before any analysis starts.
	cat, err := u.buildCatalog(ctx)
	if err != nil {
		return nil, err
	}
	u.diagnose(ctx, plan, cat.Diagnostics()...)

	units, err := u.extract(ctx, sources, plan)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	domainTypes := append(append([]string(nil), analyzer.DefaultDomainTypes...), u.cfg.Analysis.DomainTypes...)
	an := analyzer.New(cat, domainTypes)
	for i := range units {
		units[i].Deps = an.Analyze(units[i])
	}

	m, err := u.Mapper()
	if err != nil {
		return nil, err
	}
	for _, s := range m.Shadowed() {
		u.logger.WithPhase("map").Warn("mapping rule can never match",
			"rule", s.Rule, "pattern", s.Pattern, "shadowed_by", s.ShadowBy, "shadowed_by_pattern", s.ByPat)
	}
	router := cache.NewCachedRouter(m, cache.NewRouteCache(0))

	groups := grouper.New(units, m).Group()
	u.diagnose(ctx, plan, groups.Diagnostics...)

	placed, err := u.place(units, groups, m, router)
	if err != nil {
		return nil, err
	}
	u.diagnose(ctx, plan, placed.diagnostics...)

	graph := analyzer.NewCallGraph(units)
	u.diagnose(ctx, plan, strandedCalls(graph, units)...)
	for _, unit := range units {
		if missing := graph.Unresolved(unit); len(missing) > 0 {
			u.diagnose(ctx, plan, domain.Diagnostic{
				Kind:    domain.DiagDependencyUnresolved,
				Subject: unit.Name,
				File:    unit.SourceFile,
				Message: "no declaration found for " + strings.Join(missing, ", ") + "; add the include by hand",
			})
		}
	}

	moduleHeaders := make(map[string]string)
	for _, unit := range units {
		if !unit.Static {
			moduleHeaders[unit.Name] = m.ModuleHeaderPath(placed.dirs[unit.Key()])
		}
	}
	s := synth.New(cat, an, synth.Options{
		Common:        u.cfg.Analysis.CommonHeaders,
		ModuleHeaders: moduleHeaders,
	})
	for i := range units {
		units[i].Deps.Headers = s.HeaderTokens(units[i])
	}

	u.render(plan, units, groups, placed, m, s)
	plan.Units = units

	srcs := make([]validator.Source, len(sources))
	for i, src := range sources {
		srcs[i] = validator.Source{Path: src.Path, Content: src.Content}
	}
	plan.Snapshot = validator.New(validator.Options{}, nil).Snapshot(srcs, units, plan.Files)

	span.SetAttributes(
		attribute.Int("genesis.functions", len(units)),
		attribute.Int("genesis.files", len(plan.Files)),
		attribute.Int("genesis.headers", len(plan.Headers)),
	)
	u.logger.WithPhase("plan").Info("plan ready",
		"sources", len(plan.Sources), "functions", len(units),
		"files", len(plan.Files), "headers", len(plan.Headers), "diagnostics", len(plan.Diagnostics))
	return plan, nil
}

type source struct {
	Path    string
	Content string
}

func (u *PlanUseCase) resolveInputs(inputs []string) ([]string, error) {
	var paths []string
	if len(inputs) == 0 {
		files, err := fs.NewWalker(u.cfg.Sources.Includes, u.cfg.Sources.Excludes).Walk(u.tree.Root())
		if err != nil {
			return nil, fmt.Errorf("%w: scanning sources: %v", domain.ErrIO, err)
		}
		for _, f := range files {
			paths = append(paths, f.Path)
		}
	} else {
		var err error
		paths, err = fs.Glob(u.tree.Root(), inputs)
		if err != nil {
			return nil, fmt.Errorf("invalid input pattern: %w", err)
		}
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: no source files matched", domain.ErrMissingInput)
	}
	return paths, nil
}

func (u *PlanUseCase) readSources(paths []string) ([]source, error) {
	sources := make([]source, 0, len(paths))
	for _, p := range paths {
		content, err := u.tree.ReadFile(p)
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", domain.ErrMissingInput, p)
		}
		if err != nil {
			return nil, fmt.Errorf("%w: reading %s: %v", domain.ErrIO, p, err)
		}
		sources = append(sources, source{Path: p, Content: content})
	}
	return sources, nil
}

// Catalog builds the symbol catalog on its own, for inspection.
func (u *PlanUseCase) Catalog(ctx context.Context) (*catalog.Catalog, error) {
	return u.buildCatalog(ctx)
}

// buildCatalog reads every header under the include directory. A missing
// include directory yields an empty catalog.
func (u *PlanUseCase) buildCatalog(ctx context.Context) (*catalog.Catalog, error) {
	_, span := startPhase(ctx, "catalog")
	defer span.End()
	log := u.logger.WithPhase("catalog")

	dir := u.cfg.Catalog.IncludeDir
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(u.tree.Root(), dir)
	}

	var headers []catalog.Header
	if info, err := os.Stat(dir); err == nil && info.IsDir() {
		files, err := fs.NewWalker(u.cfg.Catalog.Patterns, nil).Walk(dir)
		if err != nil {
			return nil, fmt.Errorf("%w: scanning headers: %v", domain.ErrIO, err)
		}
		for _, f := range files {
			data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(f.Path)))
			if err != nil {
				return nil, fmt.Errorf("%w: reading header %s: %v", domain.ErrIO, f.Path, err)
			}
			headers = append(headers, catalog.Header{Token: f.Path, Content: string(data)})
		}
	} else {
		log.Debug("include directory not found; catalog is empty", "dir", dir)
	}

	cat, err := catalog.NewBuilder(catalog.Options{Strict: u.cfg.Catalog.StrictAmbiguity}).Build(headers)
	if err != nil {
		return nil, err
	}
	for _, d := range cat.Duplicates() {
		if !d.Conflict {
			log.Info("identical declaration repeated; keeping the first", "name", d.Name, "header", d.Header, "first", d.First)
		}
	}
	span.SetAttributes(attribute.Int("genesis.catalog_entries", cat.Len()))
	log.Info("catalog built", "headers", len(headers), "functions", len(cat.FunctionNames()), "types", len(cat.TypeNames()))
	return cat, nil
}

// extract splits every source in parallel. Results keep input order. The
// first parse error cancels the remaining work.
func (u *PlanUseCase) extract(ctx context.Context, sources []source, plan *domain.Plan) ([]domain.FunctionUnit, error) {
	ctx, span := startPhase(ctx, "extract", attribute.Int("genesis.sources", len(sources)))
	defer span.End()

	workers := u.cfg.Analysis.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	ext := extractor.New()
	results := make([][]domain.FunctionUnit, len(sources))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, src := range sources {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			units, err := ext.Extract(src.Path, src.Content)
			if err != nil {
				return err
			}
			results[i] = units
			recordExtracted(gctx, src.Path, len(units))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var units []domain.FunctionUnit
	for i, src := range sources {
		us := results[i]
		log := u.logger.WithPhase("extract").WithFile(src.Path)
		if origin, ok := synth.Origin(src.Content); ok {
			// A generated file keeps naming the file it was first split from.
			for j := range us {
				us[j].Origin = origin
			}
		} else if n := extractor.ResidualLines(src.Content, us); n > 0 {
			u.diagnose(ctx, plan, domain.Diagnostic{
				Kind:    domain.DiagResidualCode,
				File:    src.Path,
				Message: fmt.Sprintf("%d lines of top-level code outside any function are not carried into the output tree", n),
			})
		}
		log.Debug("extracted", "functions", len(us))
		units = append(units, us...)
	}
	return units, nil
}

// Mapper compiles the configured rule table.
func (u *PlanUseCase) Mapper() (*mapper.Mapper, error) {
	rules := make([]mapper.Rule, len(u.cfg.Mapping.Rules))
	for i, r := range u.cfg.Mapping.Rules {
		rules[i] = mapper.Rule{Pattern: r.Pattern, Dir: r.Dir}
	}
	m, err := mapper.New(rules, mapper.Options{
		OutputRoot: u.cfg.Mapping.OutputRoot,
		Extension:  u.cfg.Mapping.Extension,
		DefaultDir: u.cfg.Mapping.DefaultDir,
	})
	if err != nil {
		return nil, fmt.Errorf("invalid mapping configuration: %w", err)
	}
	return m, nil
}

// layout records where every unit goes.
type layout struct {
	index       map[string]int    // unit key -> position in units
	dirs        map[string]string // unit key -> module dir under the output root
	ungrouped   map[string]bool
	diagnostics []domain.Diagnostic
}

// place sets TargetPath on every unit. Externally visible units are routed
// by name, grouped helpers follow their host, and helpers without a host get
// a file of their own in the default directory. When that file is already
// taken, typically by a same-named static from another input, the helper
// joins the first externally visible function of its own source file.
func (u *PlanUseCase) place(units []domain.FunctionUnit, groups *grouper.Result, m *mapper.Mapper, router *cache.CachedRouter) (*layout, error) {
	l := &layout{
		index:     make(map[string]int, len(units)),
		dirs:      make(map[string]string, len(units)),
		ungrouped: make(map[string]bool, len(groups.Ungrouped)),
	}
	for i, unit := range units {
		l.index[unit.Key()] = i
	}

	owners := make(map[string]string)
	claim := func(unit domain.FunctionUnit) error {
		if other, ok := owners[unit.TargetPath]; ok {
			return fmt.Errorf("%w: %s and %s both map to %s", domain.ErrDuplicateTarget, other, unit.Key(), unit.TargetPath)
		}
		owners[unit.TargetPath] = unit.Key()
		return nil
	}

	for i := range units {
		if units[i].Static {
			continue
		}
		route := router.Route(units[i].Name)
		units[i].TargetPath = route.Path
		l.dirs[units[i].Key()] = route.Dir
		if err := claim(units[i]); err != nil {
			return nil, err
		}
	}
	for _, helper := range groups.Ungrouped {
		i := l.index[helper.Key()]
		target := m.FilePath(m.DefaultDir(), helper.Name)
		if other, taken := owners[target]; taken {
			if host, ok := firstPublic(units, helper.SourceFile); ok {
				groups.Helpers[host.Key()] = append(groups.Helpers[host.Key()], grouper.Assignment{
					Helper: helper,
					Host:   host,
					Tier:   grouper.TierSourceFile,
				})
				l.diagnostics = append(l.diagnostics, domain.Diagnostic{
					Kind:    domain.DiagGroupingUnresolved,
					Subject: helper.Name,
					File:    helper.SourceFile,
					Message: fmt.Sprintf("%s is already taken by %s; emitted with %s instead", target, other, host.Name),
				})
				continue
			}
		}
		units[i].TargetPath = target
		l.dirs[helper.Key()] = m.DefaultDir()
		l.ungrouped[helper.Key()] = true
		if err := claim(units[i]); err != nil {
			return nil, err
		}
	}
	for hostKey, assignments := range groups.Helpers {
		host := units[l.index[hostKey]]
		for _, a := range assignments {
			i := l.index[a.Helper.Key()]
			units[i].TargetPath = host.TargetPath
			l.dirs[a.Helper.Key()] = l.dirs[hostKey]
		}
	}
	return l, nil
}

// firstPublic returns the first externally visible unit defined in file.
func firstPublic(units []domain.FunctionUnit, file string) (domain.FunctionUnit, bool) {
	for _, u := range units {
		if !u.Static && u.SourceFile == file {
			return u, true
		}
	}
	return domain.FunctionUnit{}, false
}

// strandedCalls reports calls to a static function that ends up in a
// different output file than its caller. The generated caller cannot see
// the helper, so the call needs fixing by hand.
func strandedCalls(graph *analyzer.CallGraph, units []domain.FunctionUnit) []domain.Diagnostic {
	var out []domain.Diagnostic
	for _, unit := range units {
		for _, callee := range graph.Callees(unit) {
			if !callee.Static || callee.SourceFile != unit.SourceFile || callee.TargetPath == unit.TargetPath {
				continue
			}
			out = append(out, domain.Diagnostic{
				Kind:    domain.DiagGroupingUnresolved,
				Subject: callee.Name,
				File:    unit.SourceFile,
				Message: fmt.Sprintf("static %s is emitted in %s but %s (%s) also calls it; make it non-static or move the call by hand",
					callee.Name, callee.TargetPath, unit.Name, unit.TargetPath),
			})
		}
	}
	return out
}

// render produces the source files, module headers and build list.
func (u *PlanUseCase) render(plan *domain.Plan, units []domain.FunctionUnit, groups *grouper.Result, l *layout, m *mapper.Mapper, s *synth.Synthesizer) {
	byDir := make(map[string][]domain.FunctionUnit)
	dirs := make(map[string]struct{})

	for _, unit := range units {
		if unit.Static && !l.ungrouped[unit.Key()] {
			continue
		}
		dir := l.dirs[unit.Key()]
		dirs[dir] = struct{}{}
		if !unit.Static {
			byDir[dir] = append(byDir[dir], unit)
		}

		members := []domain.FunctionUnit{unit}
		var helperNames, tiers []string
		for _, a := range groups.Helpers[unit.Key()] {
			members = append(members, units[l.index[a.Helper.Key()]])
			helperNames = append(helperNames, a.Helper.Name)
			if len(tiers) == 0 || tiers[len(tiers)-1] != string(a.Tier) {
				tiers = append(tiers, string(a.Tier))
			}
		}
		plan.Files = append(plan.Files, s.RenderSource(unit.TargetPath, m.ModuleHeaderPath(dir), members))
		if len(helperNames) > 0 {
			plan.Groups = append(plan.Groups, domain.StaticGroup{
				Host:    unit.Name,
				Tier:    strings.Join(tiers, ","),
				Helpers: helperNames,
			})
		}
	}
	sort.Slice(plan.Files, func(i, j int) bool { return plan.Files[i].Path < plan.Files[j].Path })

	sortedDirs := make([]string, 0, len(dirs))
	for d := range dirs {
		sortedDirs = append(sortedDirs, d)
	}
	sort.Strings(sortedDirs)
	for _, d := range sortedDirs {
		plan.Headers = append(plan.Headers, s.RenderModuleHeader(m.ModuleHeaderPath(d), d, byDir[d]))
	}

	paths := make([]string, len(plan.Files))
	for i, f := range plan.Files {
		paths[i] = f.Path
	}
	plan.BuildList = domain.OutputFile{
		Path:    path.Join(m.OutputRoot(), BuildListName),
		Content: synth.BuildSources(paths),
	}
}

func (u *PlanUseCase) diagnose(ctx context.Context, plan *domain.Plan, diags ...domain.Diagnostic) {
	for _, d := range diags {
		plan.Diagnostics = append(plan.Diagnostics, d)
		u.logger.Diagnostic(d)
		recordDiagnostic(ctx, string(d.Kind))
	}
}
