package plan

import (
	"bytes"
	"io"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/nikolalohinski/gonja"
	gonjaconfig "github.com/nikolalohinski/gonja/config"
	"github.com/nikolalohinski/gonja/exec"
	"github.com/spf13/afero"
)

// Mode selects how references to unset variables are rendered.
type Mode int

const (
	// Strict fails the render on any unset variable.
	Strict Mode = iota
	// Lenient renders unset variables as empty values.
	Lenient
)

func (m Mode) String() string {
	if m == Lenient {
		return "lenient"
	}
	return "strict"
}

var linePattern = regexp.MustCompile(`(?i)line:?\s+(\d+)`)

// fsLoader serves templates to gonja from an afero filesystem, resolving
// relative names against root.
type fsLoader struct {
	fs   afero.Fs
	root string
}

func (l *fsLoader) Path(name string) (string, error) {
	if filepath.IsAbs(name) {
		return name, nil
	}
	return filepath.Join(l.root, name), nil
}

func (l *fsLoader) Get(name string) (io.Reader, error) {
	path, err := l.Path(name)
	if err != nil {
		return nil, err
	}
	data, err := afero.ReadFile(l.fs, path)
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(data), nil
}

// compile parses the template at path. Includes are resolved from the
// template's own directory.
func compile(fs afero.Fs, path string, mode Mode) (*exec.Template, error) {
	cfg := gonjaconfig.NewConfig()
	cfg.StrictUndefined = mode == Strict

	env := gonja.NewEnvironment(cfg, &fsLoader{fs: fs, root: filepath.Dir(path)})
	tpl, err := env.FromFile(filepath.Base(path))
	if err != nil {
		return nil, renderError(path, err)
	}
	return tpl, nil
}

func execute(tpl *exec.Template, path string, vars map[string]interface{}) (string, error) {
	out, err := tpl.Execute(vars)
	if err != nil {
		return "", renderError(path, err)
	}
	return out, nil
}

func renderError(path string, err error) *RenderError {
	e := &RenderError{File: path, Message: err.Error(), Err: err}
	if m := linePattern.FindStringSubmatch(e.Message); m != nil {
		e.Line, _ = strconv.Atoi(m[1])
	}
	return e
}
