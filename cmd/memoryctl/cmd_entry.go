package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"agentmemory/internal/core"
)

var (
	entryScopeID  string
	entryPriority float64
	entryActor    string
	entryRationale string
	entryTags      []string
)

var guidelineCmd = &cobra.Command{
	Use:   "guideline",
	Short: "Create or update guidelines",
}

var guidelineCreateCmd = &cobra.Command{
	Use:   "create <name> <text>",
	Short: "Create a new guideline",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := store.CreateGuideline(cmd.Context(), core.CreateGuidelineRequest{
			ScopeID:   entryScopeID,
			Name:      args[0],
			Text:      args[1],
			Rationale: entryRationale,
			Priority:  entryPriority,
			Actor:     entryActor,
		})
		if err != nil {
			return err
		}
		logger.Info("created guideline", zap.String("id", resp.Identity.ID))
		fmt.Println(resp.Identity.ID)
		return nil
	},
}

var knowledgeCmd = &cobra.Command{
	Use:   "knowledge",
	Short: "Create or update knowledge entries",
}

var knowledgeCreateCmd = &cobra.Command{
	Use:   "create <name> <text>",
	Short: "Create a new knowledge entry",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := store.CreateKnowledge(cmd.Context(), core.CreateKnowledgeRequest{
			ScopeID:  entryScopeID,
			Name:     args[0],
			Text:     args[1],
			Tags:     entryTags,
			Priority: entryPriority,
			Actor:    entryActor,
		})
		if err != nil {
			return err
		}
		logger.Info("created knowledge entry", zap.String("id", resp.Identity.ID))
		fmt.Println(resp.Identity.ID)
		return nil
	},
}

var toolCmd = &cobra.Command{
	Use:   "tool",
	Short: "Create or update tool descriptions",
}

var toolSignature string

var toolCreateCmd = &cobra.Command{
	Use:   "create <name> <description>",
	Short: "Create a new tool description",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := store.CreateTool(cmd.Context(), core.CreateToolRequest{
			ScopeID:     entryScopeID,
			Name:        args[0],
			Description: args[1],
			Signature:   toolSignature,
			Priority:    entryPriority,
			Actor:       entryActor,
		})
		if err != nil {
			return err
		}
		logger.Info("created tool entry", zap.String("id", resp.Identity.ID))
		fmt.Println(resp.Identity.ID)
		return nil
	},
}

var experienceCmd = &cobra.Command{
	Use:   "experience",
	Short: "Record and review experiences",
}

var experienceOutcome string

var experienceRecordCmd = &cobra.Command{
	Use:   "record <name> <situation> <action>",
	Short: "Record a new situation/action/outcome observation",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := store.RecordExperience(cmd.Context(), core.RecordExperienceRequest{
			ScopeID:   entryScopeID,
			Name:      args[0],
			Situation: args[1],
			Action:    args[2],
			Outcome:   experienceOutcome,
			Priority:  entryPriority,
			Actor:     entryActor,
		})
		if err != nil {
			return err
		}
		logger.Info("recorded experience", zap.String("id", resp.Identity.ID))
		fmt.Println(resp.Identity.ID)
		return nil
	},
}

var experienceOutcomeCmd = &cobra.Command{
	Use:   "outcome <entry-id> <success|failure>",
	Short: "Report whether a past experience held up",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		success := strings.EqualFold(args[1], "success")
		version, err := store.ReportOutcome(cmd.Context(), core.ReportOutcomeRequest{
			EntryID: args[0],
			Success: success,
			Actor:   entryActor,
		})
		if err != nil {
			return err
		}
		fmt.Printf("entry %s now at version %d\n", args[0], version.Version)
		return nil
	},
}

func init() {
	for _, cmd := range []*cobra.Command{guidelineCreateCmd, knowledgeCreateCmd, toolCreateCmd, experienceRecordCmd} {
		cmd.Flags().StringVar(&entryScopeID, "scope", "", "scope ID to create this entry in (required)")
		cmd.Flags().Float64Var(&entryPriority, "priority", 0.5, "entry priority")
		cmd.Flags().StringVar(&entryActor, "actor", "cli", "actor recorded against this write")
		cmd.MarkFlagRequired("scope")
	}
	guidelineCreateCmd.Flags().StringVar(&entryRationale, "rationale", "", "why this guideline exists")
	knowledgeCreateCmd.Flags().StringSliceVar(&entryTags, "tags", nil, "tags to attach")
	toolCreateCmd.Flags().StringVar(&toolSignature, "signature", "", "tool call signature")
	experienceRecordCmd.Flags().StringVar(&experienceOutcome, "outcome", "success", "outcome: success, failure, or partial")

	guidelineCmd.AddCommand(guidelineCreateCmd)
	knowledgeCmd.AddCommand(knowledgeCreateCmd)
	toolCmd.AddCommand(toolCreateCmd)
	experienceCmd.AddCommand(experienceRecordCmd, experienceOutcomeCmd)
}
