package conf

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// PromptsConfig contains the prompt templates and personas loaded from YAML
type PromptsConfig struct {
	Analysis AnalysisPrompts `yaml:"analysis"`
	Personas []PersonaEntry  `yaml:"personas"`
}

// AnalysisPrompts contains the interest-analysis templates
type AnalysisPrompts struct {
	// Template is the classifier prompt; placeholders {awakening_context},
	// {persona}, {history} and {current_message} are substituted at render
	// time
	Template string `yaml:"template"`
	// AwakeningNote replaces {awakening_context} when the user directly
	// invoked the bot; otherwise the placeholder renders empty
	AwakeningNote string `yaml:"awakening_note"`
}

// PersonaEntry is one named persona description
type PersonaEntry struct {
	Name   string `yaml:"name"`
	Prompt string `yaml:"prompt"`
}

// LoadPromptsConfig loads the prompts configuration from a YAML file
func LoadPromptsConfig(configPath string) (*PromptsConfig, error) {
	// Try multiple paths
	paths := []string{configPath}
	if configPath == "" {
		paths = []string{
			"configs/prompts.yaml",
			"./configs/prompts.yaml",
			"/etc/interest-bridge/prompts.yaml",
		}
		if execPath, err := os.Executable(); err == nil {
			paths = append(paths, filepath.Join(filepath.Dir(execPath), "configs", "prompts.yaml"))
		}
	}

	var data []byte
	var loadedPath string
	var err error

	for _, p := range paths {
		data, err = os.ReadFile(p)
		if err == nil {
			loadedPath = p
			break
		}
	}

	if data == nil {
		fmt.Println("[Config] No prompts.yaml found, using defaults")
		return DefaultPromptsConfig(), nil
	}

	fmt.Printf("[Config] Loading prompts from: %s\n", loadedPath)

	var config PromptsConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse prompts.yaml: %w", err)
	}

	config.fillDefaults()

	return &config, nil
}

// fillDefaults fills in default values for empty fields
func (c *PromptsConfig) fillDefaults() {
	defaults := DefaultPromptsConfig()

	if c.Analysis.Template == "" {
		c.Analysis.Template = defaults.Analysis.Template
	}
	if c.Analysis.AwakeningNote == "" {
		c.Analysis.AwakeningNote = defaults.Analysis.AwakeningNote
	}
	if len(c.Personas) == 0 {
		c.Personas = defaults.Personas
	}
}

// RenderAnalysisPrompt substitutes the template placeholders with actual
// values. awakened selects the awakening note for {awakening_context}.
func (c *PromptsConfig) RenderAnalysisPrompt(awakened bool, persona, history, currentMessage string) string {
	awakeningContext := ""
	if awakened {
		awakeningContext = c.Analysis.AwakeningNote
	}

	prompt := c.Analysis.Template
	prompt = strings.ReplaceAll(prompt, "{awakening_context}", awakeningContext)
	prompt = strings.ReplaceAll(prompt, "{persona}", persona)
	prompt = strings.ReplaceAll(prompt, "{history}", history)
	prompt = strings.ReplaceAll(prompt, "{current_message}", currentMessage)
	return prompt
}

// PersonaMap returns persona name -> prompt for the persona store
func (c *PromptsConfig) PersonaMap() map[string]string {
	m := make(map[string]string, len(c.Personas))
	for _, p := range c.Personas {
		m[p.Name] = p.Prompt
	}
	return m
}

// DefaultPromptsConfig returns the default prompts configuration
func DefaultPromptsConfig() *PromptsConfig {
	return &PromptsConfig{
		Analysis: AnalysisPrompts{
			Template: `You are an interest and emotion analyzer for a chat bot.

{awakening_context}

## Persona
The bot is currently playing the following persona:
{persona}

## Conversation so far
{history}

## Current message
{current_message}

## Task
Judge, from the persona's point of view, whether the bot should reply to the
current message, how interested the persona is, and what it is feeling.

Respond with a single JSON object and nothing else:
{"should_reply": true or false, "reason": "short explanation", "interest": "low/normal/high", "feeling": "one word"}`,
			AwakeningNote: "IMPORTANT CONTEXT: The user has directly awakened you. Treat the message as addressed to you.",
		},
		Personas: []PersonaEntry{
			{
				Name:   "default",
				Prompt: "A friendly, curious chat companion. Casual register, answers briefly, asks a follow-up question when genuinely interested.",
			},
		},
	}
}
