package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Prompts holds the system prompts for the two turn modes.
type Prompts struct {
	System  string `yaml:"system"`
	Cleaner string `yaml:"cleaner"`
}

const defaultSystemPrompt = `You are a coding assistant living inside a terminal session. ` +
	`Context sources (files, project tree, search results, tmux panes, notes) are injected ` +
	`ahead of the conversation; each is wrapped in an "=== Header [id] ===" block and each ` +
	`message is prefixed with its [id]. Be concise and refer to sources and messages by id.`

const defaultCleanerPrompt = `You maintain the context window for a coding assistant. ` +
	`Given the conversation and its context sources, decide which messages can be ` +
	`summarized or dropped and which sources are no longer needed. Answer with the ids ` +
	`and the action for each.`

// DefaultPrompts returns the built-in prompts.
func DefaultPrompts() *Prompts {
	return &Prompts{
		System:  defaultSystemPrompt,
		Cleaner: defaultCleanerPrompt,
	}
}

// LoadPrompts reads the YAML prompts file at path, layering its
// non-empty fields over the defaults. An empty path or a missing file
// yields the defaults.
func LoadPrompts(path string) (*Prompts, error) {
	prompts := DefaultPrompts()
	if path == "" {
		return prompts, nil
	}

	data, err := os.ReadFile(expandPath(path))
	if err != nil {
		if os.IsNotExist(err) {
			return prompts, nil
		}
		return nil, fmt.Errorf("read prompts: %w", err)
	}

	var file Prompts
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse prompts: %w", err)
	}
	if file.System != "" {
		prompts.System = file.System
	}
	if file.Cleaner != "" {
		prompts.Cleaner = file.Cleaner
	}
	return prompts, nil
}
