package setup

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// NewCommand returns the "setup" command tree. Prompts read from the command's input.
func NewCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Register the QTc MCP server with Claude Desktop",
	}
	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Claude Desktop config file (detected when empty)")

	cmd.AddCommand(
		newClaudeDesktopCommand(&configPath),
		newRemoveCommand(&configPath),
		newStatusCommand(&configPath),
		newValidateCommand(&configPath),
	)
	return cmd
}

func newClaudeDesktopCommand(configPath *string) *cobra.Command {
	opts := SetupOptions{}

	cmd := &cobra.Command{
		Use:   "claude-desktop",
		Short: "Configure Claude Desktop integration",
		Example: `  qtc setup claude-desktop
  qtc setup claude-desktop --binary /usr/local/bin/qtc-mcp --yes`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts.ConfigPath = *configPath
			out := cmd.OutOrStdout()

			if opts.BinaryPath == "" {
				if path, err := FindBinary(); err == nil {
					opts.BinaryPath = path
				}
			}
			if opts.BinaryPath == "" {
				return fmt.Errorf("could not find %s; pass --binary", BinaryName)
			}

			target, err := resolveConfigPath(opts.ConfigPath)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, "Claude Desktop Configuration")
			fmt.Fprintln(out, "============================")
			fmt.Fprintf(out, "Config file: %s\n", target)
			fmt.Fprintf(out, "Server binary: %s\n", opts.BinaryPath)
			if opts.DataDir != "" {
				fmt.Fprintf(out, "Data directory: %s\n", opts.DataDir)
			}
			if opts.CriteriaFile != "" {
				fmt.Fprintf(out, "Criteria file: %s\n", opts.CriteriaFile)
			}
			fmt.Fprintln(out)

			if !opts.AutoConfirm && !confirm(cmd.InOrStdin(), out, "Proceed with configuration? [Y/n]: ", true) {
				fmt.Fprintln(out, "Configuration cancelled.")
				return nil
			}

			if _, err := ConfigureClaudeDesktop(opts); err != nil {
				return fmt.Errorf("failed to configure Claude Desktop: %w", err)
			}
			if err := EnsureDataDir(opts.DataDir); err != nil {
				fmt.Fprintf(out, "Warning: %v\n", err)
			}

			fmt.Fprintln(out, "Claude Desktop configured successfully.")
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Next steps:")
			fmt.Fprintln(out, "  1. Restart Claude Desktop to load the new configuration")
			fmt.Fprintln(out, "  2. Ask Claude: \"What is the Bazett QTc for QT 400 ms at 75 bpm?\"")
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.BinaryPath, "binary", "b", "", "path to the "+BinaryName+" binary")
	cmd.Flags().StringVarP(&opts.DataDir, "data-dir", "d", "", "history data directory")
	cmd.Flags().StringVar(&opts.CriteriaFile, "criteria-file", "", "extra criteria YAML")
	cmd.Flags().BoolVarP(&opts.AutoConfirm, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

func newRemoveCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "remove",
		Short: "Remove the QTc server from Claude Desktop",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			removed, err := RemoveClaudeDesktop(*configPath)
			if err != nil {
				return err
			}
			if removed {
				fmt.Fprintln(cmd.OutOrStdout(), "QTc server removed from Claude Desktop.")
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "QTc server was not configured.")
			}
			return nil
		},
	}
}

func newStatusCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show current setup status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			status, err := GetStatus(*configPath)
			if err != nil {
				return err
			}
			printStatus(cmd.OutOrStdout(), status)
			return nil
		},
	}
}

func newValidateCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate current configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			valid, issues := Validate(*configPath)
			for _, issue := range issues {
				fmt.Fprintf(out, "  - %s\n", issue)
			}
			if !valid {
				return fmt.Errorf("configuration has issues")
			}
			fmt.Fprintln(out, "Configuration is valid.")
			return nil
		},
	}
}

func printStatus(out io.Writer, status *Status) {
	fmt.Fprintln(out, "QTc MCP Server Status")
	fmt.Fprintln(out, "=====================")
	fmt.Fprintln(out)

	fmt.Fprintln(out, "Claude Desktop:")
	fmt.Fprintf(out, "  Config path: %s\n", status.ClaudeDesktopPath)
	if status.ClaudeDesktopConfigured {
		fmt.Fprintln(out, "  Status: configured")
		fmt.Fprintf(out, "  Binary: %s\n", status.ServerPath)
		if _, err := os.Stat(status.ServerPath); err != nil {
			fmt.Fprintln(out, "  Binary status: not found")
		}
	} else {
		fmt.Fprintln(out, "  Status: not configured")
	}
	fmt.Fprintln(out)

	fmt.Fprintln(out, "Data Directory:")
	fmt.Fprintf(out, "  Path: %s\n", status.DataDir)
	if status.HistoryDBPresent {
		fmt.Fprintln(out, "  History DB: present")
	} else {
		fmt.Fprintln(out, "  History DB: not created yet")
	}
	if status.CriteriaFile != "" {
		fmt.Fprintf(out, "  Criteria file: %s\n", status.CriteriaFile)
	}
	fmt.Fprintln(out)

	if len(status.Issues) > 0 {
		fmt.Fprintln(out, "Issues:")
		for _, issue := range status.Issues {
			fmt.Fprintf(out, "  ! %s\n", issue)
		}
		fmt.Fprintln(out)
	}
}

// confirm asks a yes/no question. An empty answer returns def.
func confirm(in io.Reader, out io.Writer, prompt string, def bool) bool {
	fmt.Fprint(out, prompt)
	response, _ := bufio.NewReader(in).ReadString('\n')
	response = strings.TrimSpace(strings.ToLower(response))
	if response == "" {
		return def
	}
	return response == "y" || response == "yes"
}
