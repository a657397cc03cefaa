package config

import "time"

// Config is the daemon configuration. Every field has a default, so an empty
// or missing file is valid.
type Config struct {
	Agent    AgentConfig    `yaml:"agent" toml:"agent" jsonschema:"description=The interactive agent spawned for every session"`
	Terminal TerminalConfig `yaml:"terminal" toml:"terminal" jsonschema:"description=Pseudo-terminal geometry"`
	Capture  CaptureConfig  `yaml:"capture" toml:"capture" jsonschema:"description=Background output capture tuning"`
	Shutdown ShutdownConfig `yaml:"shutdown" toml:"shutdown" jsonschema:"description=Session disposal behaviour"`
	Logging  LoggingConfig  `yaml:"logging" toml:"logging" jsonschema:"description=Daemon log output"`
}

// AgentConfig describes the command run inside each session's terminal.
type AgentConfig struct {
	Command string            `yaml:"command" toml:"command" jsonschema:"description=Agent binary looked up on PATH,minLength=1"`
	Args    []string          `yaml:"args,omitempty" toml:"args,omitempty" jsonschema:"description=Extra arguments passed to the agent"`
	Env     map[string]string `yaml:"env,omitempty" toml:"env,omitempty" jsonschema:"description=Environment variables added to the agent environment"`
}

// TerminalConfig is the initial window size of each pseudo-terminal.
type TerminalConfig struct {
	Rows uint16 `yaml:"rows" toml:"rows" jsonschema:"minimum=1,description=Terminal rows"`
	Cols uint16 `yaml:"cols" toml:"cols" jsonschema:"minimum=1,description=Terminal columns"`
}

// CaptureConfig tunes the per-session output capture loop.
type CaptureConfig struct {
	BufferSize   int `yaml:"buffer_size" toml:"buffer_size" jsonschema:"minimum=1,description=Read chunk size in bytes (one log line per chunk)"`
	RetryDelayMs int `yaml:"retry_delay_ms" toml:"retry_delay_ms" jsonschema:"minimum=1,description=Sleep before retrying a would-block read"`
}

// RetryDelay returns the would-block retry delay.
func (c CaptureConfig) RetryDelay() time.Duration {
	return time.Duration(c.RetryDelayMs) * time.Millisecond
}

// ShutdownConfig controls what happens after a session's terminal is closed.
type ShutdownConfig struct {
	// GracePeriodMs is how long a child may outlive its closed terminal
	// before it is killed. Zero disables the force-kill.
	GracePeriodMs int `yaml:"grace_period_ms" toml:"grace_period_ms" jsonschema:"minimum=0,description=Delay before force-killing an agent whose terminal was closed (0 disables)"`
}

// GracePeriod returns the force-kill delay.
func (c ShutdownConfig) GracePeriod() time.Duration {
	return time.Duration(c.GracePeriodMs) * time.Millisecond
}

// LoggingConfig defines the structure for the logging section.
type LoggingConfig struct {
	// Level is the minimum log level to output (e.g., "debug", "info", "warn", "error").
	// Can be overridden by the CLAUDE_SESSIONS_LOG_LEVEL environment variable.
	Level string `yaml:"level,omitempty" toml:"level,omitempty" jsonschema:"enum=trace,enum=debug,enum=info,enum=warn,enum=warning,enum=error"`

	// ReportCaller, if true, includes the file, line, and function name in the log output.
	ReportCaller bool `yaml:"report_caller,omitempty" toml:"report_caller,omitempty"`

	// File configures logging to a file.
	File FileSinkConfig `yaml:"file,omitempty" toml:"file,omitempty"`

	// Format configures the appearance of the log output.
	Format FormatConfig `yaml:"format,omitempty" toml:"format,omitempty"`
}

// FileSinkConfig configures the file logging sink.
type FileSinkConfig struct {
	Enabled bool `yaml:"enabled,omitempty" toml:"enabled,omitempty"`
	// Path is the full path to the log file.
	Path string `yaml:"path,omitempty" toml:"path,omitempty"`
}

// FormatConfig controls the log output format.
type FormatConfig struct {
	// Preset can be "default" (rich text), "simple" (minimal text), or "json".
	Preset string `yaml:"preset,omitempty" toml:"preset,omitempty" jsonschema:"enum=default,enum=simple,enum=json"`
	// DisableTimestamp disables the timestamp from the "default" and "simple" formats.
	DisableTimestamp bool `yaml:"disable_timestamp,omitempty" toml:"disable_timestamp,omitempty"`
	// DisableComponent disables the component name from the "default" and "simple" formats.
	DisableComponent bool `yaml:"disable_component,omitempty" toml:"disable_component,omitempty"`
	// StructuredToStderr controls when structured logs are sent to stderr.
	// Can be "auto" (default), "always", or "never".
	StructuredToStderr string `yaml:"structured_to_stderr,omitempty" toml:"structured_to_stderr,omitempty" jsonschema:"enum=auto,enum=always,enum=never"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Agent: AgentConfig{
			Command: "claude",
		},
		Terminal: TerminalConfig{
			Rows: 24,
			Cols: 80,
		},
		Capture: CaptureConfig{
			BufferSize:   8192,
			RetryDelayMs: 10,
		},
		Shutdown: ShutdownConfig{
			GracePeriodMs: 5000,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}
