package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var cmdResults = &cobra.Command{
	Use:   "results",
	Short: "Print the standings and the declared winner.",
	Args:  cobra.NoArgs,
	RunE: func(c *cobra.Command, _ []string) error {
		ctx := c.Context()
		e, err := openEnv(ctx, c)
		if err != nil {
			return err
		}
		defer e.close()

		standings, err := e.service.Standings(ctx)
		if err != nil {
			return err
		}
		w := c.OutOrStdout()
		for i, cand := range standings.Candidates {
			fmt.Fprintf(w, "%2d. %-32s %6d  (id %d)\n", i+1, cand.Name, cand.VoteCount, cand.ID)
		}
		fmt.Fprintf(w, "total votes: %d\n", standings.TotalVotes)

		result, err := e.service.DeclareResults(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "winner: %s with %d votes\n", result.Name, result.VoteCount)
		return nil
	},
}
