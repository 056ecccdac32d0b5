// Package agent defines agent configurations and the registry that resolves
// them: named bundles of instructions and callable tools, one of which holds
// conversational control at any time. Control moves between agents via the
// synthesized transfer tool, restricted to edges declared in the registry.
//
// This package lives under internal/ because it encapsulates
// application-private orchestration configuration and is not intended to be
// imported by external code.
package agent

import "context"

// ToolSchema describes one callable tool advertised to the model. Parameters
// is a JSON-Schema object in the shape the realtime endpoint expects.
type ToolSchema struct {
	// Name is the tool's wire name. Unique within one agent's tool list.
	Name string `yaml:"name"`

	// Description tells the model when to call the tool.
	Description string `yaml:"description"`

	// Parameters is the JSON-Schema parameter object.
	Parameters map[string]any `yaml:"parameters"`
}

// Handler executes one tool call locally. args is the decoded arguments
// object from the model.
//
// Handlers must catch their own I/O failures and return a user-facing error
// description as a normal result rather than an error; the returned map is
// delivered back to the model as the tool-call output either way. A non-nil
// error is converted into an error-string result by the dispatcher, so the
// tool-call/response cycle always completes.
//
// A "nextAgent" key in the result (with "switchAgent" accepted as a legacy
// alias) names the agent that should take over the conversation.
type Handler func(ctx context.Context, args map[string]any) (map[string]any, error)

// Definition is the static configuration of one agent. Constructed once at
// process start; immutable thereafter except for the transfer tool injected
// during registry assembly.
type Definition struct {
	// Name is the unique, process-lifetime-stable agent identifier.
	Name string `yaml:"name"`

	// PublicDescription is a human-readable summary, surfaced to sibling
	// agents in the synthesized transfer tool description.
	PublicDescription string `yaml:"public_description"`

	// Instructions is the opaque natural-language configuration sent verbatim
	// to the remote model whenever this agent takes control.
	Instructions string `yaml:"instructions"`

	// Tools is the ordered tool schema list advertised to the model.
	Tools []ToolSchema `yaml:"tools"`

	// ToolLogic maps tool names to local handlers. A tool declared in Tools
	// without an entry here is advertised but resolved by the model itself.
	ToolLogic map[string]Handler `yaml:"-"`

	// DownstreamAgents lists agent names reachable via transfer from this
	// agent. Used only to synthesize the transfer tool during registry
	// assembly; transfers to agents outside this set are never offered.
	DownstreamAgents []string `yaml:"downstream_agents"`
}

// Tool returns the schema for the named tool, if declared.
func (d *Definition) Tool(name string) (ToolSchema, bool) {
	for _, t := range d.Tools {
		if t.Name == name {
			return t, true
		}
	}
	return ToolSchema{}, false
}

// Handler returns the local handler bound to the named tool. The second
// return value is false when the tool has no local handler; the defined
// "not locally executable" case, never a fallthrough panic.
func (d *Definition) Handler(name string) (Handler, bool) {
	h, ok := d.ToolLogic[name]
	return h, ok && h != nil
}
