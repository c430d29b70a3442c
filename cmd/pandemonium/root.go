package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/BaSui01/pandemonium/config"
	"github.com/BaSui01/pandemonium/types"
)

// errInterrupted 表示用户中断（SIGINT 或交互模式下的 Ctrl+C）
var errInterrupted = errors.New("conversation interrupted")

// rootFlags 根命令参数
type rootFlags struct {
	configPath  string
	rounds      int
	interactive bool
	agents      []string
	criteria    string
	personas    string
	seed        uint64
}

// execute 运行 CLI 并返回进程退出码
func execute(ctx context.Context, a *app, args []string) int {
	cmd := newRootCmd(a)
	cmd.SetArgs(args)
	cmd.SetIn(a.stdin)
	cmd.SetOut(a.stdout)
	cmd.SetErr(a.stderr)

	err := cmd.ExecuteContext(ctx)
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errInterrupted) || errors.Is(err, context.Canceled):
		fmt.Fprintln(a.stdout, "\n\nConversation interrupted. Goodbye!")
		return 0
	case types.IsConfigurationError(err):
		fmt.Fprintf(a.stdout, "Configuration error: %v\n", err)
		if types.GetErrorCode(err) == types.ErrMissingCredentials {
			fmt.Fprintln(a.stdout, "Please make sure you have set OPENAI_API_KEY in your environment.")
		}
		return 1
	default:
		fmt.Fprintf(a.stdout, "Unexpected error: %v\n", err)
		return 1
	}
}

func newRootCmd(a *app) *cobra.Command {
	flags := &rootFlags{}

	rootCmd := &cobra.Command{
		Use:   "pandemonium [topic]",
		Short: "Pandemonium: a multi-persona conversation orchestrator",
		Long: `Pandemonium runs a round-robin discussion between composed personas,
moderated by a broker and concluded by an independent evaluator.`,
		Example: `  pandemonium "The future of artificial intelligence"
  pandemonium "Climate change solutions" --rounds 5
  pandemonium "Remote work vs office work" -r 2 -i`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(a, flags)
			if err != nil {
				return err
			}
			applyFlags(cmd, cfg, flags)
			if err := cfg.Validate(); err != nil {
				return err
			}
			return runConversation(cmd.Context(), a, cfg, args[0], flags.interactive)
		},
	}

	f := rootCmd.Flags()
	f.StringVar(&flags.configPath, "config", "", "Path to config file (YAML)")
	f.IntVarP(&flags.rounds, "rounds", "r", config.DefaultConversationConfig().MaxRounds, "Number of conversation rounds")
	f.BoolVarP(&flags.interactive, "interactive", "i", false, "Advance one turn per Enter press")
	f.StringArrayVar(&flags.agents, "agent", nil, "Participant as temperament:expertise (repeatable, either half may be empty)")
	f.StringVar(&flags.criteria, "criteria", "", "Evaluation criteria for the final verdict")
	f.StringVar(&flags.personas, "personas", "", "Path to a persona catalog (YAML or JSON)")
	f.Uint64Var(&flags.seed, "seed", 0, "Random seed for roster and scheduling (0 = random)")

	rootCmd.AddCommand(
		newVersionCmd(),
		newPersonasCmd(a, flags),
	)
	return rootCmd
}

func loadConfig(a *app, flags *rootFlags) (*config.Config, error) {
	loader := config.NewLoader()
	if flags.configPath != "" {
		loader = loader.WithConfigPath(flags.configPath)
	}
	if a.lookupEnv != nil {
		loader = loader.WithLookupEnv(a.lookupEnv)
	}
	return loader.Load()
}

// applyFlags 用显式给出的命令行参数覆盖配置
func applyFlags(cmd *cobra.Command, cfg *config.Config, flags *rootFlags) {
	changed := cmd.Flags().Changed
	if changed("rounds") {
		cfg.Conversation.MaxRounds = flags.rounds
	}
	if changed("agent") {
		cfg.Conversation.Agents = flags.agents
	}
	if changed("criteria") {
		cfg.Conversation.Criteria = flags.criteria
	}
	if changed("personas") {
		cfg.Conversation.PersonasPath = flags.personas
	}
	if changed("seed") {
		cfg.Conversation.Seed = flags.seed
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "Pandemonium %s\n  Build Time: %s\n  Git Commit: %s\n",
				Version, BuildTime, GitCommit)
			return err
		},
	}
}
