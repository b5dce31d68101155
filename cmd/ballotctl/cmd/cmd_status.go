package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"ballotledger/pkg/platform/audit"
)

type eventLister interface {
	List(ctx context.Context, limit int) ([]audit.Event, error)
}

var statusEvents int

func init() {
	cmdStatus.Flags().IntVar(&statusEvents, "events", 0, "also list this many recent audit events, newest first")
}

type statusOutput struct {
	Backend        string        `json:"backend"`
	StoreReachable bool          `json:"store_reachable"`
	Initialized    bool          `json:"initialized"`
	Admin          string        `json:"admin,omitempty"`
	CandidateCount int           `json:"candidate_count"`
	TotalVotes     uint64        `json:"total_votes"`
	RecentEvents   []audit.Event `json:"recent_events,omitempty"`
}

func recentEvents(ctx context.Context, l eventLister, limit int) ([]audit.Event, error) {
	if limit <= 0 {
		return nil, nil
	}
	events, err := l.List(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	return events, nil
}

var cmdStatus = &cobra.Command{
	Use:   "status",
	Short: "Report store reachability and election totals.",
	Args:  cobra.NoArgs,
	RunE: func(c *cobra.Command, _ []string) error {
		ctx := c.Context()
		e, err := openEnv(ctx, c)
		if err != nil {
			return err
		}
		defer e.close()

		out := statusOutput{Backend: e.cfg.Storage.Backend}
		health, err := e.service.Health(ctx)
		out.StoreReachable = health.StoreReachable
		out.Initialized = health.Initialized
		out.CandidateCount = health.CandidateCount
		if err == nil && health.Initialized {
			overview, err := e.service.Overview(ctx)
			if err != nil {
				return err
			}
			out.Admin = overview.Admin.Checksum()
			out.TotalVotes = overview.TotalVotes
		}
		events, listErr := recentEvents(ctx, e.audit, statusEvents)
		if listErr != nil {
			return listErr
		}
		out.RecentEvents = events
		if dumpErr := dumpJSON(c.OutOrStdout(), out); dumpErr != nil {
			return dumpErr
		}
		if err != nil {
			return err
		}
		if !health.Ready() {
			return errors.New("election is not initialized")
		}
		return nil
	},
}
