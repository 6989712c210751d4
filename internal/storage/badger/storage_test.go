package badger

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpcwfm/wfm/internal/common"
	"github.com/hpcwfm/wfm/internal/models"
)

func openTestManager(t *testing.T) *Manager {
	t.Helper()
	manager, err := NewManager(common.GetLogger(), &common.BadgerConfig{Path: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { manager.Close() })
	return manager
}

func TestSessionAddAssignsID(t *testing.T) {
	m := openTestManager(t)
	ctx := context.Background()

	session := &models.Session{
		Name:         "sess1",
		WorkflowName: "lab",
		User:         "alice",
		StartTime:    time.Now(),
		Status:       models.SessionStatusStarting,
	}
	require.NoError(t, m.Sessions().Add(ctx, session))
	assert.NotZero(t, session.ID)

	got, err := m.Sessions().GetByID(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, "sess1", got.Name)
	assert.Equal(t, "alice", got.User)
}

func TestSessionUniquenessAmongLive(t *testing.T) {
	m := openTestManager(t)
	ctx := context.Background()

	first := &models.Session{Name: "sess1", WorkflowName: "lab", User: "alice", Status: models.SessionStatusActive}
	require.NoError(t, m.Sessions().Add(ctx, first))

	dup := &models.Session{Name: "sess1", WorkflowName: "lab", User: "alice", Status: models.SessionStatusStarting}
	err := m.Sessions().Add(ctx, dup)
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrState)

	// Same name for another user or workflow is allowed
	otherUser := &models.Session{Name: "sess1", WorkflowName: "lab", User: "bob", Status: models.SessionStatusActive}
	assert.NoError(t, m.Sessions().Add(ctx, otherUser))
	otherWorkflow := &models.Session{Name: "sess1", WorkflowName: "lab2", User: "alice", Status: models.SessionStatusActive}
	assert.NoError(t, m.Sessions().Add(ctx, otherWorkflow))

	// Once the first session stopped, the name is free again
	require.NoError(t, m.Sessions().UpdateStatus(ctx, first.ID, models.SessionStatusStopped))
	again := &models.Session{Name: "sess1", WorkflowName: "lab", User: "alice", Status: models.SessionStatusStarting}
	assert.NoError(t, m.Sessions().Add(ctx, again))
}

func TestSessionGetByName(t *testing.T) {
	m := openTestManager(t)
	ctx := context.Background()

	require.NoError(t, m.Sessions().Add(ctx, &models.Session{Name: "sess1", WorkflowName: "lab", User: "alice", Status: models.SessionStatusActive}))
	require.NoError(t, m.Sessions().Add(ctx, &models.Session{Name: "sess1", WorkflowName: "lab2", User: "alice", Status: models.SessionStatusActive}))

	all, err := m.Sessions().GetByName(ctx, "sess1", "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	scoped, err := m.Sessions().GetByName(ctx, "sess1", "lab2")
	require.NoError(t, err)
	require.Len(t, scoped, 1)
	assert.Equal(t, "lab2", scoped[0].WorkflowName)

	_, err = m.Sessions().GetByName(ctx, "ghost", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrState)
}

func TestSessionGetAllFiltersByUser(t *testing.T) {
	m := openTestManager(t)
	ctx := context.Background()

	require.NoError(t, m.Sessions().Add(ctx, &models.Session{Name: "a", WorkflowName: "lab", User: "alice", Status: models.SessionStatusActive}))
	require.NoError(t, m.Sessions().Add(ctx, &models.Session{Name: "b", WorkflowName: "lab", User: "bob", Status: models.SessionStatusActive}))

	all, err := m.Sessions().GetAll(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	mine, err := m.Sessions().GetAll(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "b", mine[0].Name)
}

func TestServiceStorage(t *testing.T) {
	m := openTestManager(t)
	ctx := context.Background()

	svc := &models.Service{
		SessionID: 7,
		Name:      "alice-sess1-gbf1",
		Kind:      models.ServiceKindGBF,
		Status:    models.ServiceStatusWaiting,
		JobID:     4711,
	}
	require.NoError(t, m.Services().Add(ctx, svc))
	require.NotZero(t, svc.ID)

	require.NoError(t, m.Services().UpdateStatus(ctx, svc.ID, models.ServiceStatusAllocated))

	bySession, err := m.Services().GetBySession(ctx, 7)
	require.NoError(t, err)
	require.Len(t, bySession, 1)
	assert.Equal(t, models.ServiceStatusAllocated, bySession[0].Status)

	byName, err := m.Services().GetByName(ctx, "alice-sess1-gbf1")
	require.NoError(t, err)
	assert.Len(t, byName, 1)

	require.NoError(t, m.Services().Delete(ctx, svc.ID))
	bySession, err = m.Services().GetBySession(ctx, 7)
	require.NoError(t, err)
	assert.Empty(t, bySession)
}

func TestStepDescriptions(t *testing.T) {
	m := openTestManager(t)
	ctx := context.Background()

	stepd := &models.StepDescription{SessionID: 7, Name: "sim", Command: "simulate"}
	require.NoError(t, m.Steps().AddDescription(ctx, stepd))
	require.NotZero(t, stepd.ID)

	got, err := m.Steps().GetDescriptionByName(ctx, 7, "sim")
	require.NoError(t, err)
	assert.Equal(t, stepd.ID, got.ID)

	_, err = m.Steps().GetDescriptionByName(ctx, 7, "ghost")
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrState)
}

func TestAddInstanceNamesSequentially(t *testing.T) {
	m := openTestManager(t)
	ctx := context.Background()

	stepd := &models.StepDescription{SessionID: 7, Name: "sim", Command: "simulate"}
	require.NoError(t, m.Steps().AddDescription(ctx, stepd))

	nameFor := func(index int) string {
		return fmt.Sprintf("alice-sess1-sim_%d", index+1)
	}

	first := &models.StepInstance{StepDescriptionID: stepd.ID, Status: models.StepStatusStarting, Command: "simulate"}
	require.NoError(t, m.Steps().AddInstance(ctx, first, nameFor))
	assert.Equal(t, "alice-sess1-sim_1", first.InstanceName)

	second := &models.StepInstance{StepDescriptionID: stepd.ID, Status: models.StepStatusStarting, Command: "simulate"}
	require.NoError(t, m.Steps().AddInstance(ctx, second, nameFor))
	assert.Equal(t, "alice-sess1-sim_2", second.InstanceName)

	got, err := m.Steps().GetInstanceByName(ctx, "alice-sess1-sim_2")
	require.NoError(t, err)
	assert.Equal(t, second.ID, got.ID)

	_, err = m.Steps().GetInstanceByName(ctx, "alice-sess1-sim_3")
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrState)
}

func TestInstancesByJobID(t *testing.T) {
	m := openTestManager(t)
	ctx := context.Background()

	stepd := &models.StepDescription{SessionID: 7, Name: "sim", Command: "simulate"}
	require.NoError(t, m.Steps().AddDescription(ctx, stepd))

	instance := &models.StepInstance{StepDescriptionID: stepd.ID, Status: models.StepStatusStarting}
	require.NoError(t, m.Steps().AddInstance(ctx, instance, func(int) string { return "alice-sess1-sim_1" }))

	instance.JobID = 99
	require.NoError(t, m.Steps().UpdateInstance(ctx, instance))

	matches, err := m.Steps().GetInstancesByJobID(ctx, 99)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "alice-sess1-sim_1", matches[0].InstanceName)
}

func TestLockAcquireConflict(t *testing.T) {
	m := openTestManager(t)
	ctx := context.Background()

	require.NoError(t, m.Locks().Acquire(ctx, "/ns/a", "alice-sess1-gbf1"))

	err := m.Locks().Acquire(ctx, "/ns/a", "bob-sess2-gbf1")
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrResource)
	assert.Contains(t, err.Error(), "alice-sess1-gbf1")

	// Another namespace is unaffected
	assert.NoError(t, m.Locks().Acquire(ctx, "/ns/b", "bob-sess2-gbf1"))

	// Release frees the namespace for the next holder
	require.NoError(t, m.Locks().Release(ctx, "/ns/a", "alice-sess1-gbf1"))
	assert.NoError(t, m.Locks().Acquire(ctx, "/ns/a", "bob-sess2-gbf2"))

	// Releasing a lock that is not held is not an error
	assert.NoError(t, m.Locks().Release(ctx, "/ns/c", "nobody"))
}

func TestActivityTrail(t *testing.T) {
	m := openTestManager(t)
	ctx := models.WithCorrelationID(context.Background(), "op-123")

	session := &models.Session{Name: "sess1", WorkflowName: "lab", User: "alice", Status: models.SessionStatusStarting}
	require.NoError(t, m.Sessions().Add(ctx, session))
	require.NoError(t, m.Sessions().Delete(ctx, session.ID))

	entries, err := m.Activity().GetRecent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	for _, entry := range entries {
		assert.Equal(t, models.ObjectTypeSession, entry.ObjectType)
		assert.Equal(t, session.ID, entry.ObjectID)
		assert.Equal(t, "op-123", entry.CorrelationID)
		assert.False(t, entry.Timestamp.IsZero())
	}
	assert.ElementsMatch(t,
		[]models.Activity{models.ActivityCreation, models.ActivityRemoval},
		[]models.Activity{entries[0].Activity, entries[1].Activity})
}

func TestResetOnStartup(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	m, err := NewManager(common.GetLogger(), &common.BadgerConfig{Path: dir})
	require.NoError(t, err)
	require.NoError(t, m.Sessions().Add(ctx, &models.Session{Name: "sess1", WorkflowName: "lab", User: "alice", Status: models.SessionStatusActive}))
	require.NoError(t, m.Close())

	m, err = NewManager(common.GetLogger(), &common.BadgerConfig{Path: dir, ResetOnStartup: true})
	require.NoError(t, err)
	defer m.Close()

	all, err := m.Sessions().GetAll(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, all)
}
