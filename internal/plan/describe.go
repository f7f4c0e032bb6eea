package plan

import (
	"context"
	"path/filepath"

	"github.com/ZebulonRouseFrantzich/kvirt/internal/document"
)

// Info describes the parameters of a plan document and of its baseplan.
type Info struct {
	Path       string
	Parameters *document.Mapping
	Base       *Info
}

// Describe reads the parameter blocks along the baseplan chain of path
// without rendering anything.
func (r *Resolver) Describe(ctx context.Context, path, onfly string) (*Info, error) {
	if path == "" {
		path = DefaultPlanFile
	}
	return r.describe(ctx, path, onfly, nil)
}

func (r *Resolver) describe(ctx context.Context, path, onfly string, chain []string) (*Info, error) {
	clean := filepath.Clean(path)
	for _, seen := range chain {
		if seen == clean {
			return nil, &BaseplanCycleError{Chain: append(append([]string(nil), chain...), clean)}
		}
	}
	chain = append(chain, clean)

	params, err := ReadParameters(r.fs, path)
	if err != nil {
		return nil, err
	}
	info := &Info{Path: path, Parameters: params}

	value, ok := params.Get(BaseplanKey)
	if !ok {
		return info, nil
	}
	name, err := baseplanName(path, value)
	if err != nil {
		return nil, err
	}
	basePath, err := r.locate(ctx, filepath.Dir(path), name, onfly)
	if err != nil {
		return nil, err
	}
	if info.Base, err = r.describe(ctx, basePath, onfly, chain); err != nil {
		return nil, err
	}
	return info, nil
}
