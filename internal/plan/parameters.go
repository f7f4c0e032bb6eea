package plan

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/afero"

	"github.com/ZebulonRouseFrantzich/kvirt/internal/document"
)

const (
	// DefaultPlanFile is used when no plan document is named.
	DefaultPlanFile = "kcli_plan.yml"
	// ParametersKey introduces the parameter block of a plan document.
	ParametersKey = "parameters"
	// BaseplanKey names the plan a document inherits parameters from.
	BaseplanKey = "baseplan"
	// PlanKey is the variable bound to the plan name at render time.
	PlanKey = "plan"
)

// ExtractParameterBlock returns the raw parameter block of a plan document:
// the first line starting at column zero with "parameters:" plus the
// indented, blank and comment lines that follow it.
func ExtractParameterBlock(content string) (string, bool) {
	lines := strings.Split(content, "\n")
	start := -1
	for i, line := range lines {
		if strings.HasPrefix(line, ParametersKey+":") {
			start = i
			break
		}
	}
	if start < 0 {
		return "", false
	}

	end := start + 1
	for ; end < len(lines); end++ {
		line := lines[end]
		if strings.TrimSpace(line) == "" || line[0] == ' ' || line[0] == '\t' || line[0] == '#' {
			continue
		}
		break
	}
	return strings.Join(lines[start:end], "\n") + "\n", true
}

// ParseParameters extracts and decodes the parameter block of content. A
// document without a block yields an empty set.
func ParseParameters(file, content string) (*document.Mapping, error) {
	block, ok := ExtractParameterBlock(content)
	if !ok {
		return document.NewMapping(), nil
	}

	doc, err := document.Decode([]byte(block))
	if err != nil {
		return nil, &TemplateParseError{File: file, Err: err}
	}
	value, _ := doc.Get(ParametersKey)
	if value == nil {
		return nil, &NotADictError{File: file, Kind: "null"}
	}
	params, _, err := doc.Child(ParametersKey)
	if err != nil {
		var notMapping *document.NotAMappingError
		if errors.As(err, &notMapping) {
			return nil, &NotADictError{File: file, Kind: notMapping.Kind}
		}
		return nil, &TemplateParseError{File: file, Err: err}
	}
	return params, nil
}

// ReadParameters reads path from fs and returns its parameter block.
func ReadParameters(fs afero.Fs, path string) (*document.Mapping, error) {
	content, err := readPlan(fs, path)
	if err != nil {
		return nil, err
	}
	return ParseParameters(path, content)
}

func readPlan(fs afero.Fs, path string) (string, error) {
	exists, err := afero.Exists(fs, path)
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", path, err)
	}
	if !exists {
		return "", &MissingInputFileError{Path: path}
	}
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(data), nil
}
