package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"ballotledger/pkg/domain"
)

var cmdSeed = &cobra.Command{
	Use:   "seed <admin-account>",
	Short: "Register candidates from a seed file.",
	Long: "Register candidates from a seed file as the election administrator. " +
		"Names that are already registered are skipped, so the command can be re-run.",
	Args: cobra.ExactArgs(1),
	RunE: func(c *cobra.Command, args []string) error {
		admin, err := domain.ParseAccount(args[0])
		if err != nil {
			return err
		}
		seedFile, _ := c.Flags().GetString("file")
		names, err := loadSeedNames(seedFile, seedFile == "")
		if err != nil {
			return err
		}
		if len(names) == 0 {
			return errors.New("seed file lists no candidates")
		}

		ctx := c.Context()
		e, err := openEnv(ctx, c)
		if err != nil {
			return err
		}
		defer e.close()

		created, err := e.service.Seed(ctx, admin, names)
		for _, cand := range created {
			fmt.Fprintf(c.OutOrStdout(), "registered %d\t%s\n", cand.ID, cand.Name)
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(c.OutOrStdout(), "%d registered, %d already present\n", len(created), len(names)-len(created))
		return nil
	},
}

func init() {
	cmdSeed.Flags().String("file", "", "YAML seed file (defaults to the built-in list)")
}
