package root

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/PDUUR/Super-Muslim-Assistant/internal/config"
	"github.com/PDUUR/Super-Muslim-Assistant/internal/logging"
)

// Version is the application version reported by --version.
const Version = "1.0.0"

var (
	cGood  = lipgloss.Color("42")
	cBad   = lipgloss.Color("196")
	cMuted = lipgloss.Color("244")
	cTitle = lipgloss.Color("35")
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(cTitle)
	keyStyle   = lipgloss.NewStyle().Bold(true)
	goodStyle  = lipgloss.NewStyle().Bold(true).Foreground(cGood)
	badStyle   = lipgloss.NewStyle().Bold(true).Foreground(cBad)
	mutedStyle = lipgloss.NewStyle().Foreground(cMuted)
	panelStyle = lipgloss.NewStyle().BorderStyle(lipgloss.RoundedBorder()).BorderForeground(cMuted).Padding(0, 1)
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "assistant",
	Short:         "Super Muslim Assistant backend",
	Long:          "Runs the Telegram bot, the web API and the background workers of Super Muslim Assistant.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the command line.
func Execute() {
	rootCmd.Version = Version
	rootCmd.SetVersionTemplate("{{.Name}} v{{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config", "directory containing config.yaml")

	rootCmd.AddCommand(
		newServeCmd(),
		newMigrateCmd(),
		newBroadcastCmd(),
		newPrayerCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, badStyle.Render("✖ "+err.Error()))
		os.Exit(1)
	}
}

// loadConfig reads the configuration and installs the global logger. The
// returned closer flushes the log file, if any.
func loadConfig() (*config.Config, io.Closer, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logging.Setup(cfg.Log), nil
}
