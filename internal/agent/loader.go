package agent

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// agentSetFile is the YAML document shape for an externally defined agent set.
type agentSetFile struct {
	Agents []*Definition `yaml:"agents"`
}

// LoadSet reads an agent-set YAML file and assembles a [Registry] from it.
//
// Agents defined in a file carry no local tool handlers: their declared tools
// are advertised to the model but resolved remotely. Transfer tools are still
// synthesized from the declared downstream edges, so file-defined agent
// graphs hand off exactly like built-in ones.
func LoadSet(path string) (*Registry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("agent: open %q: %w", path, err)
	}
	defer f.Close()

	reg, err := LoadSetFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("agent: parse %q: %w", path, err)
	}
	return reg, nil
}

// LoadSetFromReader decodes an agent-set YAML document from r and assembles a
// [Registry]. Useful in tests where agent sets are string literals.
func LoadSetFromReader(r io.Reader) (*Registry, error) {
	var file agentSetFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("agent: decode yaml: %w", err)
	}
	if len(file.Agents) == 0 {
		return nil, fmt.Errorf("agent: agent set defines no agents")
	}
	return NewRegistry(file.Agents...)
}
