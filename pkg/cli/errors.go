package cli

import "fmt"

// ConfigError reports an unusable configuration file or flag.
type ConfigError struct {
	// Source is the config file path or flag name.
	Source string
	Err    error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration (%s): %v", e.Source, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// CommandError represents an error from a command execution.
type CommandError struct {
	Command string
	Err     error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Command, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a new ConfigError.
func NewConfigError(source string, err error) *ConfigError {
	return &ConfigError{Source: source, Err: err}
}

// NewCommandError creates a new CommandError.
func NewCommandError(command string, err error) *CommandError {
	return &CommandError{Command: command, Err: err}
}
