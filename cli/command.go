package cli

import (
	"github.com/grovetools/claude-sessions/config"
	"github.com/grovetools/claude-sessions/logging"
	"github.com/grovetools/claude-sessions/pkg/ipc"
	"github.com/grovetools/claude-sessions/pkg/paths"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// CommandOptions holds common options for claude-sessions commands
type CommandOptions struct {
	ConfigFile string
	SocketPath string
	Verbose    bool
	JSONOutput bool
}

// NewStandardCommand creates a new command with the standard flags
func NewStandardCommand(use, short string) *cobra.Command {
	cmd := &cobra.Command{
		Use:           use,
		Short:         short,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	AddStandardFlags(cmd.PersistentFlags())
	return cmd
}

// AddStandardFlags registers the flags every command understands.
func AddStandardFlags(fs *pflag.FlagSet) {
	fs.BoolP("verbose", "v", false, "Enable verbose logging")
	fs.Bool("json", false, "Output in JSON format")
	fs.StringP("config", "c", "", "Path to config file (default: config.yml in the config dir)")
	fs.String("socket", "", "Daemon socket path (default: "+paths.SocketPath()+")")
}

// GetLogger creates a logger based on command flags
func GetLogger(cmd *cobra.Command) *logrus.Entry {
	entry := logging.NewLogger("cli")

	verbose, _ := cmd.Flags().GetBool("verbose")
	if verbose {
		entry.Logger.SetLevel(logrus.DebugLevel)
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	if jsonOutput {
		entry.Logger.SetFormatter(&logrus.JSONFormatter{})
	}

	return entry
}

// GetOptions extracts common options from a command
func GetOptions(cmd *cobra.Command) CommandOptions {
	configFile, _ := cmd.Flags().GetString("config")
	socketPath, _ := cmd.Flags().GetString("socket")
	verbose, _ := cmd.Flags().GetBool("verbose")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	if socketPath == "" {
		socketPath = paths.SocketPath()
	}

	return CommandOptions{
		ConfigFile: configFile,
		SocketPath: socketPath,
		Verbose:    verbose,
		JSONOutput: jsonOutput,
	}
}

// LoadConfig loads the config named by --config, or the default one.
func LoadConfig(cmd *cobra.Command) (*config.Config, error) {
	return config.LoadOrDefault(GetOptions(cmd).ConfigFile)
}

// NewClient returns a daemon client for the socket selected by the flags.
func NewClient(cmd *cobra.Command) *ipc.Client {
	return ipc.NewClient(GetOptions(cmd).SocketPath)
}
