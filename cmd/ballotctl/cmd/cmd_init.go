package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"ballotledger/pkg/domain"
)

var cmdInit = &cobra.Command{
	Use:   "init <admin-account>",
	Short: "Create the election with the given administrator.",
	Long: "Create the election with the given administrator. An existing election " +
		"is left untouched. Seed candidates are registered only into a new election.",
	Args: cobra.ExactArgs(1),
	RunE: func(c *cobra.Command, args []string) error {
		admin, err := domain.ParseAccount(args[0])
		if err != nil {
			return err
		}
		seedFile, _ := c.Flags().GetString("seed-file")
		useDefault, _ := c.Flags().GetBool("default-seed")
		names, err := loadSeedNames(seedFile, useDefault)
		if err != nil {
			return err
		}

		ctx := c.Context()
		e, err := openEnv(ctx, c)
		if err != nil {
			return err
		}
		defer e.close()

		created, err := e.service.Bootstrap(ctx, admin, names)
		if err != nil {
			return err
		}
		if !created {
			fmt.Fprintln(c.OutOrStdout(), "election already initialized")
			return nil
		}
		candidates, err := e.service.ListCandidates(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.OutOrStdout(), "election initialized for %s\n", admin.Checksum())
		for _, cand := range candidates {
			fmt.Fprintf(c.OutOrStdout(), "  %d\t%s\n", cand.ID, cand.Name)
		}
		return nil
	},
}

func init() {
	cmdInit.Flags().String("seed-file", "", "YAML file of candidates to register")
	cmdInit.Flags().Bool("default-seed", false, "register the built-in deployment candidates")
}
