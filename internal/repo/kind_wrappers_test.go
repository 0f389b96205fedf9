package repo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agentmemory/internal/model"
)

func TestGuidelineRepo_CreateAndCurrentRoundTrip(t *testing.T) {
	ctx := context.Background()
	entries := newTestEntryStore(t)
	guidelines := NewGuidelineRepo(entries)

	payload := model.GuidelinePayload{Text: "use spaces", Rationale: "consistency"}
	identity, _, err := guidelines.Create(ctx, "scope-1", "no-tabs", payload, 0.5, "tester")
	require.NoError(t, err)

	got, version, err := guidelines.Current(ctx, identity.ID)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
	assert.Equal(t, 1, version.Version)
}

func TestKnowledgeRepo_AddVersionAdvancesPayload(t *testing.T) {
	ctx := context.Background()
	entries := newTestEntryStore(t)
	knowledge := NewKnowledgeRepo(entries)

	identity, _, err := knowledge.Create(ctx, "scope-1", "fact", model.KnowledgePayload{Text: "v1"}, 0.5, "tester")
	require.NoError(t, err)

	_, err = knowledge.AddVersion(ctx, identity.ID, model.KnowledgePayload{Text: "v2"}, 0.5, "tester")
	require.NoError(t, err)

	got, version, err := knowledge.Current(ctx, identity.ID)
	require.NoError(t, err)
	assert.Equal(t, "v2", got.Text)
	assert.Equal(t, 2, version.Version)
}

func TestToolRepo_CurrentDecodesSignature(t *testing.T) {
	ctx := context.Background()
	entries := newTestEntryStore(t)
	tools := NewToolRepo(entries)

	payload := model.ToolPayload{Name: "deploy", Description: "deploys the service", Signature: "func Deploy(env string) error"}
	identity, _, err := tools.Create(ctx, "scope-1", "deploy", payload, 0.5, "tester")
	require.NoError(t, err)

	got, _, err := tools.Current(ctx, identity.ID)
	require.NoError(t, err)
	assert.Equal(t, payload.Signature, got.Signature)
}

func TestExperienceRepo_RecordOutcomeAccumulatesAndAdvancesVersion(t *testing.T) {
	ctx := context.Background()
	entries := newTestEntryStore(t)
	experiences := NewExperienceRepo(entries)

	identity, _, err := experiences.Create(ctx, "scope-1", "retry-pattern", model.ExperiencePayload{
		Situation: "transient network error",
		Action:    "retry with backoff",
		Outcome:   "success",
	}, 0.5, "tester")
	require.NoError(t, err)

	_, err = experiences.RecordOutcome(ctx, identity.ID, true, "tester")
	require.NoError(t, err)
	_, err = experiences.RecordOutcome(ctx, identity.ID, false, "tester")
	require.NoError(t, err)

	got, version, err := experiences.Current(ctx, identity.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Successes)
	assert.Equal(t, 1, got.Failures)
	assert.Equal(t, 3, version.Version)
	assert.InDelta(t, got.Usefulness(), version.Priority, 1e-9)
}
