package agent

import (
	"fmt"
	"strings"
)

// TransferToolName is the wire name of the synthesized agent-transfer tool.
const TransferToolName = "transferAgents"

// Registry is an immutable, name-indexed collection of agent definitions.
//
// Construction is two-phase: agents are defined independently, then
// [NewRegistry] resolves the name index and derives transfer-tool schemas
// from the declared downstream edges. This avoids construction-order cycles
// between agents that reference each other.
type Registry struct {
	byName  map[string]*Definition
	ordered []*Definition
}

// NewRegistry assembles a registry from the given definitions. For every
// agent with a non-empty DownstreamAgents set it injects one transfer tool
// whose destination parameter is enum-constrained to the declared downstream
// names, so transfers can only traverse edges explicitly declared here.
//
// Returns an error for empty or duplicate agent names and for downstream
// references to agents absent from the registry.
func NewRegistry(defs ...*Definition) (*Registry, error) {
	r := &Registry{byName: make(map[string]*Definition, len(defs))}

	// Phase 1: index by name.
	for _, d := range defs {
		if d == nil || d.Name == "" {
			return nil, fmt.Errorf("agent: definition with empty name")
		}
		if _, dup := r.byName[d.Name]; dup {
			return nil, fmt.Errorf("agent: duplicate agent name %q", d.Name)
		}
		r.byName[d.Name] = d
		r.ordered = append(r.ordered, d)
	}

	// Phase 2: resolve downstream edges and inject transfer tools.
	for _, d := range r.ordered {
		if len(d.DownstreamAgents) == 0 {
			continue
		}
		for _, target := range d.DownstreamAgents {
			if _, ok := r.byName[target]; !ok {
				return nil, fmt.Errorf("agent: %q declares unknown downstream agent %q", d.Name, target)
			}
		}
		if _, exists := d.Tool(TransferToolName); exists {
			return nil, fmt.Errorf("agent: %q declares a tool named %q, which is reserved", d.Name, TransferToolName)
		}
		d.Tools = append(d.Tools, r.transferTool(d))
	}

	return r, nil
}

// Lookup returns the definition for the named agent.
func (r *Registry) Lookup(name string) (*Definition, bool) {
	d, ok := r.byName[name]
	return d, ok
}

// Agents returns the definitions in registration order.
func (r *Registry) Agents() []*Definition {
	out := make([]*Definition, len(r.ordered))
	copy(out, r.ordered)
	return out
}

// Names returns the agent names in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.ordered))
	for i, d := range r.ordered {
		out[i] = d.Name
	}
	return out
}

// First returns the first registered agent, the default starting agent when
// no explicit choice is configured.
func (r *Registry) First() (*Definition, bool) {
	if len(r.ordered) == 0 {
		return nil, false
	}
	return r.ordered[0], true
}

// transferTool synthesizes the universal transfer tool for d. The
// destination_agent enum is restricted to d's declared downstream set; each
// candidate's public description is folded into the tool description so the
// model can pick a target without extra round trips.
func (r *Registry) transferTool(d *Definition) ToolSchema {
	names := make([]any, 0, len(d.DownstreamAgents))
	var desc strings.Builder
	desc.WriteString("Transfers the conversation to a more specialized agent. Available agents:\n")
	for _, name := range d.DownstreamAgents {
		names = append(names, name)
		target := r.byName[name]
		fmt.Fprintf(&desc, "- %s: %s\n", target.Name, target.PublicDescription)
	}

	return ToolSchema{
		Name:        TransferToolName,
		Description: desc.String(),
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"destination_agent": map[string]any{
					"type":        "string",
					"description": "The name of the agent that should take over the conversation.",
					"enum":        names,
				},
			},
			"required": []any{"destination_agent"},
		},
	}
}
