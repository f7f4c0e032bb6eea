package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

var (
	okColor      = color.New(color.FgGreen)
	failureColor = color.New(color.FgRed)
	headerColor  = color.New(color.Bold)
)

func ok(msg string) string {
	return okColor.Sprint(msg)
}

func failure(msg string) string {
	return failureColor.Sprint(msg)
}

// newTable returns a table with a bold header row.
func newTable(headers ...string) *uitable.Table {
	table := uitable.New()
	table.MaxColWidth = 60
	table.Wrap = true

	cells := make([]interface{}, len(headers))
	for i, h := range headers {
		cells[i] = headerColor.Sprint(h)
	}
	table.AddRow(cells...)
	return table
}

func printTable(w io.Writer, table *uitable.Table) {
	fmt.Fprintln(w, table)
}

// cell renders an optional value; nil is empty.
func cell(v interface{}) string {
	if v == nil {
		return ""
	}
	if b, ok := v.(bool); ok {
		return yesNo(b)
	}
	return fmt.Sprint(v)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// parseParams turns key=value pairs into a map. Values are read as YAML
// scalars or flow collections, so "count=3" yields an int and
// "nets=[a,b]" a list.
func parseParams(pairs []string) (map[string]interface{}, error) {
	params := make(map[string]interface{}, len(pairs))
	for _, pair := range pairs {
		key, raw, found := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !found || key == "" {
			return nil, fmt.Errorf("invalid parameter %q: expected key=value", pair)
		}

		var value interface{}
		if raw == "" || yaml.Unmarshal([]byte(raw), &value) != nil {
			value = raw
		}
		params[key] = value
	}
	return params, nil
}

// readParamFile reads a YAML mapping of parameters.
func readParamFile(fs afero.Fs, path string) (map[string]interface{}, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("read parameter file: %w", err)
	}
	params := map[string]interface{}{}
	if err := yaml.Unmarshal(data, &params); err != nil {
		return nil, fmt.Errorf("parse parameter file %s: %w", path, err)
	}
	return params, nil
}
