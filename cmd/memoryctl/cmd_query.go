package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"agentmemory/internal/core"
)

var (
	queryScopeID      string
	queryLimit        int
	queryTags         []string
	queryMinPriority  float64
	queryMaxPriority  float64
	queryCriticalOnly bool
)

var queryCmd = &cobra.Command{
	Use:   "query <text>",
	Short: "Query the memory store",
	Long: `Runs the full retrieval pipeline over every entry kind: full-text,
fuzzy, semantic, and relation-graph candidate collection, scored and
ranked into a single result list. --tag accepts "+label" to require,
"-label" to exclude, and a bare label to join an OR group.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		results, err := store.Query(cmd.Context(), core.QueryRequest{
			Text:         args[0],
			ScopeID:      queryScopeID,
			Tags:         queryTags,
			MinPriority:  queryMinPriority,
			MaxPriority:  queryMaxPriority,
			CriticalOnly: queryCriticalOnly,
			Limit:        queryLimit,
		})
		if err != nil {
			return err
		}
		if len(results) == 0 {
			fmt.Println("no results")
			return nil
		}
		for i, r := range results {
			fmt.Printf("%2d. [%.3f] %-10s %s\n", i+1, r.Score, r.Kind, r.EntryID)
		}
		return nil
	},
}

var scopeCmd = &cobra.Command{
	Use:   "scope",
	Short: "Manage scopes",
}

var (
	scopeParentID string
	scopeType     string
)

var scopeCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a new scope",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		scope, err := store.CreateScope(cmd.Context(), parseScopeType(scopeType), scopeParentID, args[0])
		if err != nil {
			return err
		}
		fmt.Println(scope.ID)
		return nil
	},
}

func init() {
	queryCmd.Flags().StringVar(&queryScopeID, "scope", "", "restrict to this scope and its ancestors")
	queryCmd.Flags().IntVar(&queryLimit, "limit", 20, "maximum number of results")
	queryCmd.Flags().StringSliceVar(&queryTags, "tag", nil, "tag filter, repeatable (+require, -exclude, bare=include)")
	queryCmd.Flags().Float64Var(&queryMinPriority, "min-priority", 0, "minimum current-version priority (0 = unbounded)")
	queryCmd.Flags().Float64Var(&queryMaxPriority, "max-priority", 0, "maximum current-version priority (0 = unbounded)")
	queryCmd.Flags().BoolVar(&queryCriticalOnly, "critical-only", false, "restrict to entries at or above the critical-priority threshold")

	scopeCreateCmd.Flags().StringVar(&scopeParentID, "parent", "", "parent scope ID (required unless --type=global)")
	scopeCreateCmd.Flags().StringVar(&scopeType, "type", "project", "scope type: session, project, org, global")
	scopeCmd.AddCommand(scopeCreateCmd)
}
