package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// loadPromptsFromFiles reads every configured prompt file into the
// operation blocks. File paths are kept so the source can be reported.
func (c *Config) loadPromptsFromFiles() error {
	log.Println("[CONFIG] Starting custom prompt loading from files")

	loaded := 0
	for _, op := range Operations {
		block, _ := c.operationBlock(op)
		n, err := c.loadOperationPrompts(op, &block.Prompts)
		if err != nil {
			return fmt.Errorf("failed to load %s prompts: %w", op, err)
		}
		loaded += n
	}

	if loaded == 0 {
		log.Println("[CONFIG] No custom prompt files loaded")
	} else {
		log.Printf("[CONFIG] Total custom prompt files loaded: %d", loaded)
	}
	return nil
}

func (c *Config) loadOperationPrompts(op string, prompts *PromptConfig) (int, error) {
	n := 0
	if prompts.SystemFile != "" {
		content, err := c.loadPromptFromFile(prompts.SystemFile, "system", op)
		if err != nil {
			return n, err
		}
		prompts.LoadedSystem = content
		n++
	}
	if prompts.UserFile != "" {
		content, err := c.loadPromptFromFile(prompts.UserFile, "user", op)
		if err != nil {
			return n, err
		}
		prompts.LoadedUser = content
		n++
	}
	return n, nil
}

// loadPromptFromFile loads a prompt from a file with proper error handling and logging
func (c *Config) loadPromptFromFile(filePath, promptType, operation string) (string, error) {
	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve absolute path for %s %s prompt file '%s': %w", promptType, operation, filePath, err)
	}

	if _, err := os.Stat(absPath); os.IsNotExist(err) {
		return "", fmt.Errorf("%s %s prompt file not found: %s", promptType, operation, absPath)
	}

	content, err := os.ReadFile(absPath)
	if err != nil {
		return "", fmt.Errorf("failed to read %s %s prompt file '%s': %w", promptType, operation, absPath, err)
	}

	trimmedContent := strings.TrimSpace(string(content))
	if trimmedContent == "" {
		return "", fmt.Errorf("%s %s prompt file '%s' is empty", promptType, operation, absPath)
	}

	log.Printf("[CONFIG] Successfully loaded %s %s prompt from file: %s (%d characters)",
		promptType, operation, absPath, len(trimmedContent))

	return trimmedContent, nil
}

// validatePromptFiles validates that prompt files exist before loading
func (c *Config) validatePromptFiles() error {
	var validationErrors []string

	validateFile := func(filePath, promptType, operation string) {
		if filePath == "" {
			return
		}

		absPath, err := filepath.Abs(filePath)
		if err != nil {
			validationErrors = append(validationErrors, fmt.Sprintf("invalid path for %s %s prompt: %s", promptType, operation, filePath))
			return
		}

		if _, err := os.Stat(absPath); os.IsNotExist(err) {
			validationErrors = append(validationErrors, fmt.Sprintf("%s %s prompt file not found: %s", promptType, operation, absPath))
		}
	}

	for _, op := range Operations {
		block, _ := c.operationBlock(op)
		validateFile(block.Prompts.SystemFile, "system", op)
		validateFile(block.Prompts.UserFile, "user", op)
	}

	if len(validationErrors) > 0 {
		return fmt.Errorf("prompt file validation failed:\n%s", strings.Join(validationErrors, "\n"))
	}

	return nil
}

// SystemPrompt returns the configured system prompt, file content first
func (p PromptConfig) SystemPrompt() string {
	if p.LoadedSystem != "" {
		return p.LoadedSystem
	}
	return p.System
}

// UserPrompt returns the configured user prompt template, file content first
func (p PromptConfig) UserPrompt() string {
	if p.LoadedUser != "" {
		return p.LoadedUser
	}
	return p.User
}
