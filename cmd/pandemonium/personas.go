package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/BaSui01/pandemonium/agent"
)

func newPersonasCmd(a *app, root *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "personas",
		Short: "List temperament and expertise keys of the persona catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := root.personas
			if path == "" {
				cfg, err := loadConfig(a, root)
				if err != nil {
					return err
				}
				path = cfg.Conversation.PersonasPath
			}

			catalog := agent.DefaultCatalog()
			if path != "" {
				var err error
				if catalog, err = agent.LoadCatalog(path); err != nil {
					return err
				}
			}

			v := newView(cmd.OutOrStdout())
			fmt.Fprintln(v.w, v.styles.title.Render("Temperaments"))
			for _, key := range catalog.TemperamentKeys() {
				fmt.Fprintf(v.w, "  %s %s\n", v.styles.key.Render(key), v.styles.detail.Render(catalog.Temperaments[key].Name))
			}
			fmt.Fprintln(v.w)
			fmt.Fprintln(v.w, v.styles.title.Render("Expertise"))
			for _, key := range catalog.ExpertiseKeys() {
				fmt.Fprintf(v.w, "  %s\n", v.styles.key.Render(key))
			}
			fmt.Fprintln(v.w, v.styles.note.Render("\nCompose participants with --agent temperament:expertise"))
			return nil
		},
	}
	cmd.Flags().StringVar(&root.personas, "personas", "", "Path to a persona catalog (YAML or JSON)")
	cmd.Flags().StringVar(&root.configPath, "config", "", "Path to config file (YAML)")
	return cmd
}
