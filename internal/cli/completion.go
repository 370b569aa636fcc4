package cli

import (
	"os"

	"github.com/spf13/cobra"
)

// newCompletionCmd creates the completion command for generating shell completions.
func newCompletionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for patchy.

To load completions:

Bash:
  $ source <(patchy completion bash)

  # To load completions for each session, execute once:
  # Linux:
  $ patchy completion bash > /etc/bash_completion.d/patchy
  # macOS:
  $ patchy completion bash > $(brew --prefix)/etc/bash_completion.d/patchy

Zsh:
  $ patchy completion zsh > "${fpath[1]}/_patchy"

  # You will need to start a new shell for this setup to take effect.

Fish:
  $ patchy completion fish | source

  # To load completions for each session, execute once:
  $ patchy completion fish > ~/.config/fish/completions/patchy.fish

PowerShell:
  PS> patchy completion powershell | Out-String | Invoke-Expression
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(os.Stdout)
			case "zsh":
				return cmd.Root().GenZshCompletion(os.Stdout)
			case "fish":
				return cmd.Root().GenFishCompletion(os.Stdout, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(os.Stdout)
			}
			return nil
		},
	}

	return cmd
}
