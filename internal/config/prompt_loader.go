package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// PromptFiles points at files that replace the built-in interviewer system prompts
type PromptFiles struct {
	NextQuestion string `mapstructure:"nextQuestion"`
	Summarize    string `mapstructure:"summarize"`
}

// LoadedPrompts holds prompt text read from PromptFiles. Empty fields keep the defaults.
type LoadedPrompts struct {
	NextQuestion string
	Summarize    string
}

// loadPromptsFromFiles reads the configured prompt files into Rehearsal.AI.Prompts
func (c *Config) loadPromptsFromFiles() error {
	files := c.Rehearsal.AI.PromptFiles
	if files.NextQuestion == "" && files.Summarize == "" {
		return nil
	}
	log.Println("[CONFIG] Starting custom prompt loading from files")

	if files.NextQuestion != "" {
		content, err := loadPromptFromFile(files.NextQuestion, "nextQuestion")
		if err != nil {
			return err
		}
		c.Rehearsal.AI.Prompts.NextQuestion = content
	}

	if files.Summarize != "" {
		content, err := loadPromptFromFile(files.Summarize, "summarize")
		if err != nil {
			return err
		}
		c.Rehearsal.AI.Prompts.Summarize = content
	}

	return nil
}

// loadPromptFromFile reads one prompt file and rejects empty content
func loadPromptFromFile(filePath, operation string) (string, error) {
	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve absolute path for %s prompt file '%s': %w", operation, filePath, err)
	}

	if _, err := os.Stat(absPath); os.IsNotExist(err) {
		return "", fmt.Errorf("%s prompt file not found: %s", operation, absPath)
	}

	content, err := os.ReadFile(absPath)
	if err != nil {
		return "", fmt.Errorf("failed to read %s prompt file '%s': %w", operation, absPath, err)
	}

	trimmedContent := strings.TrimSpace(string(content))
	if trimmedContent == "" {
		return "", fmt.Errorf("%s prompt file '%s' is empty", operation, absPath)
	}

	log.Printf("[CONFIG] Successfully loaded %s prompt from file: %s (%d characters)",
		operation, absPath, len(trimmedContent))

	return trimmedContent, nil
}
