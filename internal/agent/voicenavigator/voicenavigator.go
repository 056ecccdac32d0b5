// Package voicenavigator defines the built-in agent set: a hands-free
// assistant that chats, operates the user's computer through the actuation
// backend, and reads the current screen aloud.
//
// Four agents are defined. The voice navigator is the default all-in-one
// agent; the greeter/voice-control/image-to-text trio demonstrates explicit
// handoff edges, with the greeter as the hub.
package voicenavigator

import (
	"context"
	"fmt"

	"github.com/voicenav/voicenav/internal/agent"
	"github.com/voicenav/voicenav/internal/navigator"
)

// Agent names, stable for the process lifetime.
const (
	NavigatorName   = "voiceNavigator"
	GreeterName     = "greeter"
	ControlName     = "voiceControl"
	ImageToTextName = "imageToText"
)

// NewRegistry assembles the built-in agent set over the given backend client.
// The first registered agent (the voice navigator) is the default starting
// agent.
func NewRegistry(backend *navigator.Client) (*agent.Registry, error) {
	return agent.NewRegistry(
		navigatorAgent(backend),
		greeterAgent(),
		controlAgent(backend),
		imageToTextAgent(backend),
	)
}

func navigatorAgent(backend *navigator.Client) *agent.Definition {
	return &agent.Definition{
		Name: NavigatorName,
		PublicDescription: "A versatile voice assistant that responds to general conversations, " +
			"operates the computer, and reads the current screen content aloud.",
		Instructions: navigatorInstructions,
		Tools: []agent.ToolSchema{
			operateToolSchema(),
			{
				Name: "readScreenContent",
				Description: "Captures the current screen content and reads it aloud, interpreting " +
					"the user's intent to provide context-based descriptions. Use this for summarizing " +
					"videos, narrating articles, or describing on-screen content.",
				Parameters: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"prompt": map[string]any{
							"type":        "string",
							"description": "The type of content to read.",
							"enum":        []any{"article", "video", "general"},
						},
					},
					"required": []any{"prompt"},
				},
			},
		},
		ToolLogic: map[string]agent.Handler{
			"selfOperateComputer": operateHandler(backend),
			"readScreenContent":   readHandler(backend, ""),
		},
	}
}

func greeterAgent() *agent.Definition {
	return &agent.Definition{
		Name: GreeterName,
		PublicDescription: "Agent that greets the user, manages general queries, detects computer " +
			"control and image-to-text tasks, and transitions to the appropriate agent.",
		Instructions:     greeterInstructions,
		DownstreamAgents: []string{ControlName, ImageToTextName},
	}
}

func controlAgent(backend *navigator.Client) *agent.Definition {
	return &agent.Definition{
		Name: ControlName,
		PublicDescription: "Agent that executes confirmed computer-control commands such as opening " +
			"applications or scrolling pages, then hands back to the greeter.",
		Instructions: controlInstructions,
		Tools:        []agent.ToolSchema{operateToolSchema()},
		ToolLogic: map[string]agent.Handler{
			"selfOperateComputer": operateHandlerWithReturn(backend, GreeterName),
		},
		DownstreamAgents: []string{GreeterName},
	}
}

func imageToTextAgent(backend *navigator.Client) *agent.Definition {
	return &agent.Definition{
		Name: ImageToTextName,
		PublicDescription: "An assistant that immediately extracts text from the current webpage or " +
			"screenshot, reports the result, and hands back to the greeter.",
		Instructions: imageToTextInstructions,
		Tools: []agent.ToolSchema{
			{
				Name:        "extractTextFromImage",
				Description: "Extracts text from the current webpage or screenshot and returns a description.",
				Parameters: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"prompt": map[string]any{
							"type":        "string",
							"description": "A command instructing how to extract or summarize text from the webpage/screenshot.",
						},
					},
					"required":             []any{"prompt"},
					"additionalProperties": false,
				},
			},
		},
		ToolLogic: map[string]agent.Handler{
			"extractTextFromImage": readHandler(backend, GreeterName),
		},
		DownstreamAgents: []string{GreeterName},
	}
}

func operateToolSchema() agent.ToolSchema {
	return agent.ToolSchema{
		Name: "selfOperateComputer",
		Description: "Executes a system command to operate the computer, such as opening applications, " +
			"websites, or scrolling pages. Always confirm with the user before execution.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"command": map[string]any{
					"type":        "string",
					"description": "The system command to execute, e.g., 'open YouTube' or 'scroll down'.",
				},
			},
			"required": []any{"command"},
		},
	}
}

// operateHandler runs a system command through the actuation backend. All
// failures are folded into a user-facing message so the tool-call/response
// cycle always completes.
func operateHandler(backend *navigator.Client) agent.Handler {
	return func(ctx context.Context, args map[string]any) (map[string]any, error) {
		command, _ := args["command"].(string)

		ops, err := backend.Operate(ctx, command)
		if err != nil {
			return map[string]any{
				"message": "Something went wrong while processing your request. Please try again.",
			}, nil
		}

		status, summary := "unknown", "No details provided."
		if len(ops) > 0 {
			if ops[0].Operation != "" {
				status = ops[0].Operation
			}
			if ops[0].Summary != "" {
				summary = ops[0].Summary
			}
		}

		if status != "done" {
			return map[string]any{
				"message": fmt.Sprintf("Sorry, I couldn't complete your request. Here's what I found: %s", summary),
			}, nil
		}
		return map[string]any{
			"message": fmt.Sprintf("Success! %s", summary),
		}, nil
	}
}

// operateHandlerWithReturn is operateHandler plus a handoff directive back to
// returnAgent once the command settles.
func operateHandlerWithReturn(backend *navigator.Client, returnAgent string) agent.Handler {
	inner := operateHandler(backend)
	return func(ctx context.Context, args map[string]any) (map[string]any, error) {
		result, err := inner(ctx, args)
		if err != nil {
			return result, err
		}
		result["nextAgent"] = returnAgent
		return result, nil
	}
}

// readHandler describes the current screen through the OCR backend. When
// returnAgent is non-empty the result carries a handoff directive.
func readHandler(backend *navigator.Client, returnAgent string) agent.Handler {
	return func(ctx context.Context, args map[string]any) (map[string]any, error) {
		prompt, _ := args["prompt"].(string)
		if prompt == "" {
			prompt = "general"
		}

		result := map[string]any{}
		if returnAgent != "" {
			result["nextAgent"] = returnAgent
		}

		text, err := backend.Describe(ctx, prompt)
		if err != nil {
			result["description"] = "Error processing screen content. Please try again."
			return result, nil
		}
		if text == "" {
			text = "No content detected."
		}
		result["description"] = text
		return result, nil
	}
}
