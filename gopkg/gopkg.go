// Package gopkg supplies Go packages as pipeline units.
package gopkg

import (
	"context"
	"go/ast"
	"go/token"
	"go/types"
	"os"
	"path/filepath"
	"sort"

	"golang.org/x/tools/go/packages"

	"github.com/teranos/genpipe/errors"
	"github.com/teranos/genpipe/logger"
	"github.com/teranos/genpipe/pipeline"
)

// LoadMode is everything targets need to walk syntax with type information.
const LoadMode = packages.NeedName |
	packages.NeedFiles |
	packages.NeedTypes |
	packages.NeedSyntax |
	packages.NeedTypesInfo

// Package is a loaded Go package. Its unit name is the import path.
type Package struct {
	pkg       *packages.Package
	generated bool
}

// NewPackage wraps an already loaded package.
func NewPackage(pkg *packages.Package) *Package {
	return &Package{pkg: pkg, generated: allGenerated(pkg.Syntax)}
}

// Name implements pipeline.Unit.
func (p *Package) Name() string { return p.pkg.PkgPath }

// PkgName is the package clause name, e.g. "types".
func (p *Package) PkgName() string { return p.pkg.Name }

// Dir is the directory holding the package's files, or "".
func (p *Package) Dir() string {
	if len(p.pkg.GoFiles) == 0 {
		return ""
	}
	return filepath.Dir(p.pkg.GoFiles[0])
}

// Files lists the package's Go files.
func (p *Package) Files() []string { return p.pkg.GoFiles }

func (p *Package) Syntax() []*ast.File { return p.pkg.Syntax }
func (p *Package) Fset() *token.FileSet { return p.pkg.Fset }
func (p *Package) Types() *types.Package { return p.pkg.Types }
func (p *Package) TypesInfo() *types.Info { return p.pkg.TypesInfo }

// Position resolves pos against the package's file set.
func (p *Package) Position(pos token.Pos) token.Position {
	return p.pkg.Fset.Position(pos)
}

// Generated reports whether every file carries the standard
// "Code generated ... DO NOT EDIT." header.
func (p *Package) Generated() bool { return p.generated }

func allGenerated(files []*ast.File) bool {
	if len(files) == 0 {
		return false
	}
	for _, f := range files {
		if !ast.IsGenerated(f) {
			return false
		}
	}
	return true
}

// Load loads the packages matching patterns from the module at dir,
// ordered by import path. dir must exist.
func Load(ctx context.Context, dir string, patterns ...string) ([]*Package, error) {
	info, err := os.Stat(dir)
	switch {
	case os.IsNotExist(err):
		return nil, errors.NewNotFoundError("project directory %s", dir)
	case err != nil:
		return nil, errors.Wrapf(err, "stat project directory %s", dir)
	case !info.IsDir():
		return nil, errors.Wrapf(errors.ErrInvalidRequest, "%s is not a directory", dir)
	}

	if len(patterns) == 0 {
		patterns = []string{"./..."}
	}

	log := logger.ComponentLogger("gopkg")
	log.Debugw("Loading packages", logger.FieldPath, dir, "patterns", patterns)

	cfg := &packages.Config{
		Context: ctx,
		Mode:    LoadMode,
		Dir:     dir,
	}
	pkgs, err := packages.Load(cfg, patterns...)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load packages %v from %s", patterns, dir)
	}

	var loadErrs []packages.Error
	packages.Visit(pkgs, nil, func(pkg *packages.Package) {
		loadErrs = append(loadErrs, pkg.Errors...)
	})
	if len(loadErrs) > 0 {
		err := errors.Newf("package errors: %v", loadErrs[0])
		return nil, errors.WithDetailf(err, "%d errors while loading %v", len(loadErrs), patterns)
	}

	out := make([]*Package, 0, len(pkgs))
	for _, pkg := range pkgs {
		out = append(out, NewPackage(pkg))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })

	log.Infow("Loaded packages", logger.FieldCount, len(out), logger.FieldPath, dir)
	return out, nil
}

// Resolver loads packages at the start of every run.
func Resolver(dir string, patterns ...string) pipeline.UnitResolver {
	patterns = append([]string(nil), patterns...)
	return func(ctx context.Context) ([]pipeline.Unit, error) {
		pkgs, err := Load(ctx, dir, patterns...)
		if err != nil {
			return nil, err
		}
		units := make([]pipeline.Unit, len(pkgs))
		for i, p := range pkgs {
			units[i] = p
		}
		return units, nil
	}
}

// FromUnit returns the package behind a unit, if there is one.
func FromUnit(u pipeline.Unit) (*Package, bool) {
	p, ok := u.(*Package)
	return p, ok
}
