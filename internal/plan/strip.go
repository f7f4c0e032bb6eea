package plan

import (
	"strings"
	"unicode"
)

// StripParameters removes a leading parameter block from rendered output.
// The block runs from a first line starting with "parameters:" up to the
// next line starting with a non-space character. Output without a leading
// block is returned unchanged.
func StripParameters(rendered string) string {
	lines := strings.Split(rendered, "\n")
	if !strings.HasPrefix(lines[0], ParametersKey+":") {
		return rendered
	}
	for i := 1; i < len(lines); i++ {
		if startsWithContent(lines[i]) {
			return strings.Join(lines[i:], "\n")
		}
	}
	return ""
}

func startsWithContent(line string) bool {
	for _, r := range line {
		return !unicode.IsSpace(r)
	}
	return false
}
