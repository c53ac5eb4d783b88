/*
Package toolset lists the tools offered to the catalog.

Tools are declared explicitly: each group contributes a fixed set of
(name, description) pairs. Builtin returns the bundled groups; LoadFile reads
additional definitions from YAML.
*/
package toolset

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Definition is one tool offered for registration.
type Definition struct {
	Name        string `yaml:"name" json:"name"`
	Group       string `yaml:"group" json:"group"`
	Description string `yaml:"description" json:"description"`
}

// Group is a named collection of tools.
type Group struct {
	Name  string `yaml:"name"`
	Tools []Tool `yaml:"tools"`
}

// Tool is a tool inside a Group.
type Tool struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

// File is the YAML layout accepted by LoadFile. Both sections are optional.
//
//	groups:
//	  - name: WeatherPlugin
//	    tools:
//	      - name: GetForecast
//	        description: Gets weather forecast for a location
//	tools:
//	  - group: MathPlugin
//	    name: Calculate
//	    description: Performs mathematical calculations
type File struct {
	Groups []Group      `yaml:"groups"`
	Tools  []Definition `yaml:"tools"`
}

// Flatten expands groups into definitions, groups first.
func Flatten(groups []Group) []Definition {
	var defs []Definition
	for _, g := range groups {
		for _, t := range g.Tools {
			defs = append(defs, Definition{Name: t.Name, Group: g.Name, Description: t.Description})
		}
	}
	return defs
}

// LoadFile reads tool definitions from a YAML file.
func LoadFile(path string) ([]Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tool definitions: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML tool definitions and validates them.
func Parse(data []byte) ([]Definition, error) {
	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse tool definitions: %w", err)
	}

	defs := append(Flatten(file.Groups), file.Tools...)
	if err := Validate(defs); err != nil {
		return nil, err
	}
	return defs, nil
}

// Validate checks that every definition is complete and that (group, name) is unique.
func Validate(defs []Definition) error {
	seen := make(map[string]bool, len(defs))
	for i, d := range defs {
		switch {
		case strings.TrimSpace(d.Name) == "":
			return fmt.Errorf("tool %d: name is required", i)
		case strings.TrimSpace(d.Group) == "":
			return fmt.Errorf("tool %q: group is required", d.Name)
		case strings.TrimSpace(d.Description) == "":
			return fmt.Errorf("tool %s/%s: description is required", d.Group, d.Name)
		}
		key := d.Group + "/" + d.Name
		if seen[key] {
			return fmt.Errorf("tool %s: defined more than once", key)
		}
		seen[key] = true
	}
	return nil
}

// GroupNames returns the distinct group names in defs, sorted.
func GroupNames(defs []Definition) []string {
	set := make(map[string]struct{})
	for _, d := range defs {
		set[d.Group] = struct{}{}
	}
	names := make([]string, 0, len(set))
	for n := range set {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
