package benchmark

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed cases.yaml
var defaultCasesYAML []byte

// Case is one labeled request: the query and the tool it should select.
type Case struct {
	Query        string `yaml:"query" json:"query"`
	ExpectedTool string `yaml:"expectedTool" json:"expectedTool"`
}

type caseFile struct {
	Cases []Case `yaml:"cases"`
}

// DefaultCases returns the bundled labeled corpus.
func DefaultCases() []Case {
	cases, err := ParseCases(defaultCasesYAML)
	if err != nil {
		panic(fmt.Sprintf("bundled benchmark cases are invalid: %v", err))
	}
	return cases
}

// LoadCases reads labeled cases from a YAML file with a top-level "cases" list.
func LoadCases(path string) ([]Case, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read benchmark cases: %w", err)
	}
	return ParseCases(data)
}

// ParseCases decodes and validates YAML cases.
func ParseCases(data []byte) ([]Case, error) {
	var file caseFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse benchmark cases: %w", err)
	}

	for i, c := range file.Cases {
		if strings.TrimSpace(c.Query) == "" {
			return nil, fmt.Errorf("case %d: query is required", i)
		}
		if strings.TrimSpace(c.ExpectedTool) == "" {
			return nil, fmt.Errorf("case %d: expectedTool is required", i)
		}
	}
	return file.Cases, nil
}
