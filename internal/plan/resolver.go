// Package plan resolves plan templates: it reads the parameter block a plan
// declares, inherits defaults through its baseplan chain, layers caller
// overrides on top and renders the result with a Jinja-compatible engine.
package plan

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/ZebulonRouseFrantzich/kvirt/internal/config"
	"github.com/ZebulonRouseFrantzich/kvirt/internal/document"
)

// Fetcher downloads a remote document into destDir and returns its path.
type Fetcher interface {
	Fetch(ctx context.Context, url, destDir string) (string, error)
}

// Request describes one plan resolution.
type Request struct {
	// Plan is bound to the "plan" variable.
	Plan string
	// Path of the plan document. Defaults to DefaultPlanFile.
	Path string
	// Overrides win over every declared or inherited parameter.
	Overrides map[string]interface{}
	// Onfly is a base URL baseplans are fetched from before being read.
	Onfly string
	// Full parses the rendered output instead of returning text.
	Full bool
	Mode Mode
	// Download forces boolean parameters of the document to true.
	Download bool
}

// Result is the outcome of a resolution.
type Result struct {
	// Rendered holds the output without its parameter block. Empty when Full.
	Rendered string
	// Data holds the parsed output when Full.
	Data *document.Mapping
	// Overrides is the final set of variables the template was rendered with.
	Overrides map[string]interface{}
	// BaseFile is the baseplan named by the document, if any.
	BaseFile string
	// BaseDir is the directory baseplans and includes are resolved from.
	BaseDir string
}

// Resolver renders plan documents read from an afero filesystem.
type Resolver struct {
	fs        afero.Fs
	fetcher   Fetcher
	overrides map[string]interface{}
	logger    config.Logger
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithFetcher sets the capability used to download on-the-fly baseplans.
func WithFetcher(f Fetcher) ResolverOption {
	return func(r *Resolver) { r.fetcher = f }
}

// WithOverrides sets variables applied to every render after the plan's own
// parameters.
func WithOverrides(overrides map[string]interface{}) ResolverOption {
	return func(r *Resolver) { r.overrides = overrides }
}

// WithLogger sets the logger.
func WithLogger(l config.Logger) ResolverOption {
	return func(r *Resolver) { r.logger = config.OrNop(l) }
}

// NewResolver returns a resolver over fs.
func NewResolver(fs afero.Fs, opts ...ResolverOption) *Resolver {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	r := &Resolver{fs: fs, logger: config.NopLogger()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve renders req.Path.
func (r *Resolver) Resolve(ctx context.Context, req Request) (*Result, error) {
	path := req.Path
	if path == "" {
		path = DefaultPlanFile
	}
	content, err := readPlan(r.fs, path)
	if err != nil {
		return nil, err
	}
	baseDir := filepath.Dir(path)

	tpl, err := compile(r.fs, path, req.Mode)
	if err != nil {
		return nil, err
	}

	params, err := ParseParameters(path, content)
	if err != nil {
		return nil, err
	}

	vars := make(map[string]interface{}, len(req.Overrides)+params.Len())
	for k, v := range req.Overrides {
		vars[k] = v
	}

	var baseFile string
	for _, key := range params.Keys() {
		value, _ := params.Get(key)
		if key == BaseplanKey {
			baseFile, err = baseplanName(path, value)
			if err != nil {
				return nil, err
			}
			inherited, err := r.inherit(ctx, baseDir, baseFile, req.Onfly, []string{filepath.Clean(path)})
			if err != nil {
				return nil, err
			}
			for _, k := range inherited.Keys() {
				if _, ok := vars[k]; ok || params.Has(k) {
					continue
				}
				v, _ := inherited.Get(k)
				vars[k] = document.Plain(v)
			}
			continue
		}
		if _, ok := vars[key]; ok {
			continue
		}
		if _, isBool := value.(bool); isBool && req.Download {
			value = true
		}
		vars[key] = document.Plain(value)
	}

	for k, v := range r.overrides {
		vars[k] = v
	}
	vars[PlanKey] = req.Plan

	r.logger.Debug("rendering plan", "path", path, "mode", req.Mode.String(), "baseplan", baseFile)
	rendered, err := execute(tpl, path, vars)
	if err != nil {
		return nil, err
	}

	result := &Result{Overrides: vars, BaseFile: baseFile, BaseDir: baseDir}
	if !req.Full {
		result.Rendered = StripParameters(rendered)
		return result, nil
	}
	data, err := document.Decode([]byte(rendered))
	if err != nil {
		return nil, &TemplateParseError{File: path, Err: err}
	}
	result.Data = data
	return result, nil
}

// inherit returns the parameters a baseplan contributes: its own
// declarations followed by whatever its ancestors add.
func (r *Resolver) inherit(ctx context.Context, dir, name, onfly string, chain []string) (*document.Mapping, error) {
	path, err := r.locate(ctx, dir, name, onfly)
	if err != nil {
		return nil, err
	}
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

	result := document.NewMapping()
	var parent *document.Mapping
	for _, key := range params.Keys() {
		value, _ := params.Get(key)
		if key != BaseplanKey {
			result.Set(key, value)
			continue
		}
		next, err := baseplanName(path, value)
		if err != nil {
			return nil, err
		}
		if parent, err = r.inherit(ctx, filepath.Dir(path), next, onfly, chain); err != nil {
			return nil, err
		}
	}
	if parent != nil {
		for _, key := range parent.Keys() {
			if !result.Has(key) {
				value, _ := parent.Get(key)
				result.Set(key, value)
			}
		}
	}
	return result, nil
}

// locate resolves a baseplan name against dir, downloading it first when an
// on-the-fly origin is set.
func (r *Resolver) locate(ctx context.Context, dir, name, onfly string) (string, error) {
	path := filepath.Join(dir, name)
	if onfly == "" {
		return path, nil
	}
	if r.fetcher == nil {
		return "", fmt.Errorf("fetch baseplan %s: no fetcher configured", name)
	}
	url := strings.TrimSuffix(onfly, "/") + "/" + filepath.ToSlash(name)
	r.logger.Info("fetching baseplan", "url", url)
	if _, err := r.fetcher.Fetch(ctx, url, filepath.Dir(path)); err != nil {
		return "", fmt.Errorf("fetch baseplan %s: %w", name, err)
	}
	return path, nil
}

func baseplanName(file string, value interface{}) (string, error) {
	name, ok := value.(string)
	if !ok || name == "" {
		return "", &TemplateParseError{File: file, Err: fmt.Errorf("%s must name a plan file, got %v", BaseplanKey, value)}
	}
	return name, nil
}
