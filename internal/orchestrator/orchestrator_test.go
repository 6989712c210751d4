package orchestrator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpcwfm/wfm/internal/common"
	"github.com/hpcwfm/wfm/internal/ephemeral"
	"github.com/hpcwfm/wfm/internal/jobmanager"
	"github.com/hpcwfm/wfm/internal/models"
	badgerstore "github.com/hpcwfm/wfm/internal/storage/badger"
	"github.com/hpcwfm/wfm/internal/workflow"
)

// fakeJM hands out increasing job ids and serves canned raw states
type fakeJM struct {
	nextJob   int64
	states    map[int64]string
	cancelled []int64
	batchOpts []models.JobOptions
	lines     []string
	lineOpts  []models.JobOptions
	failLine  error
}

func newFakeJM() *fakeJM {
	return &fakeJM{nextJob: 100, states: make(map[int64]string)}
}

func (f *fakeJM) SubmitBatch(ctx context.Context, specFile string, opts models.JobOptions) (int64, error) {
	f.nextJob++
	f.batchOpts = append(f.batchOpts, opts)
	return f.nextJob, nil
}

func (f *fakeJM) SubmitLine(ctx context.Context, command string, opts models.JobOptions) (int64, error) {
	if f.failLine != nil {
		return 0, f.failLine
	}
	f.nextJob++
	f.lines = append(f.lines, command)
	f.lineOpts = append(f.lineOpts, opts)
	return f.nextJob, nil
}

func (f *fakeJM) Cancel(ctx context.Context, jobID int64) error {
	f.cancelled = append(f.cancelled, jobID)
	delete(f.states, jobID)
	return nil
}

func (f *fakeJM) JobState(ctx context.Context, jobID int64) (string, error) {
	return f.states[jobID], nil
}

func (f *fakeJM) ListPartitions(ctx context.Context) ([]models.Partition, error) {
	return []models.Partition{{Name: "gpp"}}, nil
}

func (f *fakeJM) CombineForDisplay(raw string) string  { return jobmanager.CombineForDisplay(raw) }
func (f *fakeJM) CombineForStopping(raw string) string { return jobmanager.CombineForStopping(raw) }

func (f *fakeJM) TranslateToWFMStatus(jmStatus string) models.StepStatus {
	return jobmanager.TranslateToWFMStatus(jmStatus)
}

func (f *fakeJM) TranslateToJMStatus(status models.StepStatus) string {
	return jobmanager.TranslateToJMStatus(status)
}

// fakeRM accepts or refuses reservations
type fakeRM struct {
	refuse   error
	requests []*models.ReservationRequest
}

func (f *fakeRM) Reserve(ctx context.Context, req *models.ReservationRequest) error {
	if f.refuse != nil {
		return f.refuse
	}
	f.requests = append(f.requests, req)
	return nil
}

func (f *fakeRM) ListLocations(ctx context.Context) ([]string, error) { return []string{"gpp"}, nil }
func (f *fakeRM) ListFlavors(ctx context.Context) ([]string, error)   { return []string{"small"}, nil }

type testEnv struct {
	orc   *Orchestrator
	store *badgerstore.Manager
	jm    *fakeJM
	rm    *fakeRM
	ns    string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := common.GetLogger()

	store, err := badgerstore.NewManager(logger, &common.BadgerConfig{Path: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	cfg := common.DefaultConfig()
	cfg.Workflow.TempDir = t.TempDir()
	cfg.Workflow.DefaultPartition = "gpp"

	jm := newFakeJM()
	rm := &fakeRM{}
	registry := ephemeral.NewRegistry(jm, cfg.Workflow, logger)
	validator := workflow.NewValidator(registry, logger)

	return &testEnv{
		orc:   New(store, jm, rm, registry, validator, cfg, logger),
		store: store,
		jm:    jm,
		rm:    rm,
		ns:    t.TempDir(),
	}
}

func (e *testEnv) description() string {
	return `
workflow:
  name: lab
services:
  - name: gbf1
    type: GBF
    attributes:
      namespace: ` + e.ns + `
      mountpoint: /mnt/gbf
      storagesize: 100GiB
steps:
  - name: sim
    command: simulate {{ input }}
    services:
      - name: gbf1
  - name: post
    command: collect
    services: []
`
}

func (e *testEnv) startSession(t *testing.T, synchronous bool) *models.Session {
	t.Helper()
	session, err := e.orc.StartSession(context.Background(), StartSessionRequest{
		SessionName: "sess1",
		User:        "alice",
		FileName:    "lab.yaml",
		Description: e.description(),
		Synchronous: synchronous,
	})
	require.NoError(t, err)
	return session
}

func TestStartSessionSynchronous(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	session := e.startSession(t, true)
	assert.Equal(t, models.SessionStatusActive, session.Status)
	assert.Equal(t, "lab", session.WorkflowName)

	services, err := e.store.Services().GetBySession(ctx, session.ID)
	require.NoError(t, err)
	require.Len(t, services, 1)
	assert.Equal(t, "alice-sess1-gbf1", services[0].Name)
	assert.Equal(t, models.ServiceStatusAllocated, services[0].Status)
	assert.Equal(t, models.NoJobDependency, services[0].JobID)

	stepds, err := e.store.Steps().GetDescriptionsBySession(ctx, session.ID)
	require.NoError(t, err)
	require.Len(t, stepds, 2)

	// The sim step is backed by the service row, the serviceless post step
	// carries the sentinel, and the two never coincide.
	for _, stepd := range stepds {
		if stepd.Name == "sim" {
			assert.Equal(t, services[0].ID, stepd.ServiceID)
			assert.NotEqual(t, models.NoService, stepd.ServiceID)
		} else {
			assert.Equal(t, models.NoService, stepd.ServiceID)
		}
	}

	// The namespace lease is held by the provisioned service
	locks, err := e.store.Locks().GetByNamespace(ctx, e.ns)
	require.NoError(t, err)
	require.Len(t, locks, 1)
	assert.Equal(t, "alice-sess1-gbf1", locks[0].ServiceName)

	// One reservation was placed for the GBF service
	require.Len(t, e.rm.requests, 1)
	assert.Equal(t, "alice-sess1-gbf1", e.rm.requests[0].Name)
}

func TestStartSessionRejectsDuplicate(t *testing.T) {
	e := newTestEnv(t)
	e.startSession(t, true)

	_, err := e.orc.StartSession(context.Background(), StartSessionRequest{
		SessionName: "sess1",
		User:        "alice",
		FileName:    "lab.yaml",
		Description: e.description(),
		Synchronous: true,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrState)
}

func TestStartSessionRejectsUnresolvedVariables(t *testing.T) {
	e := newTestEnv(t)

	_, err := e.orc.StartSession(context.Background(), StartSessionRequest{
		SessionName: "sess1",
		User:        "alice",
		FileName:    "lab.yaml",
		Description: "workflow:\n  name: {{ missing }}\nservices: []\nsteps: []\n",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrValidation)
	assert.Contains(t, err.Error(), "unresolved variables")
}

func TestStartSessionRollsBackOnRefusedReservation(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	e.rm.refuse = models.ErrResource

	_, err := e.orc.StartSession(ctx, StartSessionRequest{
		SessionName: "sess1",
		User:        "alice",
		FileName:    "lab.yaml",
		Description: e.description(),
		Synchronous: true,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrResource)

	// Nothing survives the rollback
	sessions, err := e.store.Sessions().GetAll(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, sessions)

	locks, err := e.store.Locks().GetAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, locks)
}

func TestStartSessionRefusedOnHeldNamespace(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	require.NoError(t, e.store.Locks().Acquire(ctx, e.ns, "bob-other-gbf1"))

	_, err := e.orc.StartSession(ctx, StartSessionRequest{
		SessionName: "sess1",
		User:        "alice",
		FileName:    "lab.yaml",
		Description: e.description(),
		Synchronous: true,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrResource)
	assert.Contains(t, err.Error(), "bob-other-gbf1")

	sessions, err := e.store.Sessions().GetAll(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, sessions)
}

func TestStartSessionSkipsUnusedServices(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	spare := t.TempDir()

	desc := `
workflow:
  name: lab
services:
  - name: gbf1
    type: GBF
    attributes:
      namespace: ` + e.ns + `
      mountpoint: /mnt/gbf
      storagesize: 100GiB
  - name: spare
    type: GBF
    attributes:
      namespace: ` + spare + `
      mountpoint: /mnt/spare
      storagesize: 10GiB
steps:
  - name: sim
    command: simulate
    services:
      - name: gbf1
`
	session, err := e.orc.StartSession(ctx, StartSessionRequest{
		SessionName: "sess1",
		User:        "alice",
		FileName:    "lab.yaml",
		Description: desc,
		Synchronous: true,
	})
	require.NoError(t, err)

	// Only the service referenced by a step is provisioned
	services, err := e.store.Services().GetBySession(ctx, session.ID)
	require.NoError(t, err)
	require.Len(t, services, 1)
	assert.Equal(t, "alice-sess1-gbf1", services[0].Name)

	// Neither a reservation nor a namespace lease exists for the spare one
	require.Len(t, e.rm.requests, 1)
	assert.Equal(t, "alice-sess1-gbf1", e.rm.requests[0].Name)
	locks, err := e.store.Locks().GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, locks, 1)
	assert.Equal(t, e.ns, locks[0].Namespace)
}

func TestStartStep(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	e.startSession(t, true)

	instance, err := e.orc.StartStep(ctx, StartStepRequest{
		SessionName: "sess1",
		StepName:    "sim",
		Variables:   map[string]string{"input": "/data/in"},
	})
	require.NoError(t, err)
	assert.Equal(t, "alice-sess1-sim_1", instance.InstanceName)
	assert.Equal(t, models.StepStatusStarting, instance.Status)
	assert.NotZero(t, instance.JobID)
	assert.Equal(t, "simulate /data/in", instance.Command)
	require.Len(t, e.jm.lines, 1)
	assert.Equal(t, "simulate /data/in", e.jm.lines[0])

	// A second launch of the same step gets the next index
	second, err := e.orc.StartStep(ctx, StartStepRequest{
		SessionName: "sess1",
		StepName:    "sim",
		Variables:   map[string]string{"input": "/data/in2"},
	})
	require.NoError(t, err)
	assert.Equal(t, "alice-sess1-sim_2", second.InstanceName)
}

func TestStartStepWithoutService(t *testing.T) {
	e := newTestEnv(t)
	e.startSession(t, true)

	instance, err := e.orc.StartStep(context.Background(), StartStepRequest{
		SessionName: "sess1",
		StepName:    "post",
	})
	require.NoError(t, err)
	assert.Equal(t, "alice-sess1-post_1", instance.InstanceName)
	// The step runs on the default partition with no service dependency
	opts := e.jm.lineOpts[len(e.jm.lineOpts)-1]
	assert.Equal(t, "gpp", opts.Partition)
	assert.Equal(t, models.NoJobDependency, opts.Dependency)
}

func TestStartStepRejectsUnresolvedVariables(t *testing.T) {
	e := newTestEnv(t)
	e.startSession(t, true)

	_, err := e.orc.StartStep(context.Background(), StartStepRequest{
		SessionName: "sess1",
		StepName:    "sim",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestStartStepDiscardsInstanceOnSubmitFailure(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	e.startSession(t, true)

	e.jm.failLine = models.ErrExternal
	_, err := e.orc.StartStep(ctx, StartStepRequest{
		SessionName: "sess1",
		StepName:    "post",
	})
	require.Error(t, err)

	// The discarded instance does not consume an index
	e.jm.failLine = nil
	instance, err := e.orc.StartStep(ctx, StartStepRequest{
		SessionName: "sess1",
		StepName:    "post",
	})
	require.NoError(t, err)
	assert.Equal(t, "alice-sess1-post_1", instance.InstanceName)
}

func TestStartStepNeedsActiveSession(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	e.startSession(t, true)

	_, err := e.orc.StopSession(ctx, StopSessionRequest{SessionName: "sess1", Synchronous: true})
	require.NoError(t, err)

	_, err = e.orc.StartStep(ctx, StartStepRequest{SessionName: "sess1", StepName: "post"})
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrState)
}

func TestStopSessionGracefulRefusesActiveSteps(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	e.startSession(t, true)

	instance, err := e.orc.StartStep(ctx, StartStepRequest{SessionName: "sess1", StepName: "post"})
	require.NoError(t, err)
	e.jm.states[instance.JobID] = "RUNNING"

	_, err = e.orc.StopSession(ctx, StopSessionRequest{SessionName: "sess1", Synchronous: true})
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrState)
	assert.Contains(t, err.Error(), "1 steps not yet completed")

	// The refusal leaves the session in teardown for a later retry
	sessions, err := e.store.Sessions().GetByName(ctx, "sess1", "")
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, models.SessionStatusTeardown, sessions[0].Status)

	// Once the step concluded, the retried stop goes through
	delete(e.jm.states, instance.JobID)
	stopped, err := e.orc.StopSession(ctx, StopSessionRequest{SessionName: "sess1", Synchronous: true})
	require.NoError(t, err)
	assert.Equal(t, models.SessionStatusStopped, stopped.Status)
}

func TestStopSessionForcedCancelsSteps(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	session := e.startSession(t, true)

	instance, err := e.orc.StartStep(ctx, StartStepRequest{SessionName: "sess1", StepName: "post"})
	require.NoError(t, err)
	e.jm.states[instance.JobID] = "RUNNING"

	stopped, err := e.orc.StopSession(ctx, StopSessionRequest{
		SessionName: "sess1",
		Forced:      true,
		Synchronous: true,
	})
	require.NoError(t, err)
	assert.Equal(t, models.SessionStatusStopped, stopped.Status)
	assert.Contains(t, e.jm.cancelled, instance.JobID)

	// The synchronous stop removes the session's rows
	services, err := e.store.Services().GetBySession(ctx, session.ID)
	require.NoError(t, err)
	assert.Empty(t, services)
	_, err = e.store.Sessions().GetByName(ctx, "sess1", "")
	require.Error(t, err)

	// The namespace lease is released with the service
	locks, err := e.store.Locks().GetByNamespace(ctx, e.ns)
	require.NoError(t, err)
	assert.Empty(t, locks)
}

func TestStopSessionCleansUpRows(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	session := e.startSession(t, true)

	instance, err := e.orc.StartStep(ctx, StartStepRequest{SessionName: "sess1", StepName: "post"})
	require.NoError(t, err)

	stopped, err := e.orc.StopSession(ctx, StopSessionRequest{SessionName: "sess1", Synchronous: true})
	require.NoError(t, err)
	assert.Equal(t, models.SessionStatusStopped, stopped.Status)

	// Services, step descriptions and instances go away with the session
	services, err := e.store.Services().GetBySession(ctx, session.ID)
	require.NoError(t, err)
	assert.Empty(t, services)
	stepds, err := e.store.Steps().GetDescriptionsBySession(ctx, session.ID)
	require.NoError(t, err)
	assert.Empty(t, stepds)
	_, err = e.store.Steps().GetInstanceByName(ctx, instance.InstanceName)
	require.Error(t, err)
	_, err = e.store.Sessions().GetByName(ctx, "sess1", "")
	require.Error(t, err)
}

func TestStopConcludedSessionFails(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	e.startSession(t, true)

	_, err := e.orc.StopSession(ctx, StopSessionRequest{SessionName: "sess1", Synchronous: true})
	require.NoError(t, err)

	// The session and its rows are gone; the name is free again
	_, err = e.orc.StopSession(ctx, StopSessionRequest{SessionName: "sess1", Synchronous: true})
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrState)
	assert.Contains(t, err.Error(), "not found")
}

func TestStopStoppingSessionRequiresForce(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	e.startSession(t, true)

	// The asynchronous stop leaves the session stopping
	_, err := e.orc.StopSession(ctx, StopSessionRequest{SessionName: "sess1"})
	require.NoError(t, err)

	_, err = e.orc.StopSession(ctx, StopSessionRequest{SessionName: "sess1"})
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrState)
	assert.Contains(t, err.Error(), "already stopping")

	// A forced stop pushes the teardown through
	stopped, err := e.orc.StopSession(ctx, StopSessionRequest{SessionName: "sess1", Forced: true, Synchronous: true})
	require.NoError(t, err)
	assert.Equal(t, models.SessionStatusStopped, stopped.Status)
}

func TestStopUnknownSessionFails(t *testing.T) {
	e := newTestEnv(t)

	_, err := e.orc.StopSession(context.Background(), StopSessionRequest{SessionName: "ghost"})
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrState)
}

func TestAsyncLifecycleThroughReconcile(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	session := e.startSession(t, false)
	assert.Equal(t, models.SessionStatusStarting, session.Status)

	services, err := e.store.Services().GetBySession(ctx, session.ID)
	require.NoError(t, err)
	require.Len(t, services, 1)
	svc := services[0]
	assert.Equal(t, models.ServiceStatusWaiting, svc.Status)
	require.Greater(t, svc.JobID, int64(0))

	// Creation job runs: the service is staging in, the session not active yet
	e.jm.states[svc.JobID] = "RUNNING"
	require.NoError(t, e.orc.Reconcile(ctx))
	services, _ = e.store.Services().GetBySession(ctx, session.ID)
	assert.Equal(t, models.ServiceStatusStagingIn, services[0].Status)
	sessions, _ := e.store.Sessions().GetByName(ctx, "sess1", "")
	assert.Equal(t, models.SessionStatusStarting, sessions[0].Status)

	// Creation job left the queue: the service is allocated and the session
	// is promoted
	delete(e.jm.states, svc.JobID)
	require.NoError(t, e.orc.Reconcile(ctx))
	services, _ = e.store.Services().GetBySession(ctx, session.ID)
	assert.Equal(t, models.ServiceStatusAllocated, services[0].Status)
	sessions, _ = e.store.Sessions().GetByName(ctx, "sess1", "")
	assert.Equal(t, models.SessionStatusActive, sessions[0].Status)

	// Asynchronous stop hands the teardown to the reconciler
	stopped, err := e.orc.StopSession(ctx, StopSessionRequest{SessionName: "sess1"})
	require.NoError(t, err)
	assert.Equal(t, models.SessionStatusStopping, stopped.Status)

	services, _ = e.store.Services().GetBySession(ctx, session.ID)
	require.Greater(t, services[0].StopJobID, int64(0))
	e.jm.states[services[0].StopJobID] = "RUNNING"
	require.NoError(t, e.orc.Reconcile(ctx))
	sessions, _ = e.store.Sessions().GetByName(ctx, "sess1", "")
	assert.Equal(t, models.SessionStatusStopping, sessions[0].Status)

	// Teardown job finished: the session concludes and its rows are removed
	delete(e.jm.states, services[0].StopJobID)
	require.NoError(t, e.orc.Reconcile(ctx))
	_, err = e.store.Sessions().GetByName(ctx, "sess1", "")
	require.Error(t, err)
	services, _ = e.store.Services().GetBySession(ctx, session.ID)
	assert.Empty(t, services)
}

func TestAsyncStartFencesSteps(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	session := e.startSession(t, false)

	services, err := e.store.Services().GetBySession(ctx, session.ID)
	require.NoError(t, err)
	require.Len(t, services, 1)
	e.jm.states[services[0].JobID] = "PENDING"

	// The creation job is still queued, so the session stays starting and
	// refuses steps, serviceless ones included
	_, err = e.orc.StartStep(ctx, StartStepRequest{SessionName: "sess1", StepName: "post"})
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrState)
	assert.Contains(t, err.Error(), "active session")

	// Once the service is allocated the step goes through without another
	// explicit reconcile
	delete(e.jm.states, services[0].JobID)
	instance, err := e.orc.StartStep(ctx, StartStepRequest{SessionName: "sess1", StepName: "post"})
	require.NoError(t, err)
	assert.Equal(t, "alice-sess1-post_1", instance.InstanceName)
}

func TestStartStepRequiresAllocatedServices(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	session := e.startSession(t, true)

	services, err := e.store.Services().GetBySession(ctx, session.ID)
	require.NoError(t, err)
	require.Len(t, services, 1)
	require.NoError(t, e.store.Services().UpdateStatus(ctx, services[0].ID, models.ServiceStatusWaiting))

	_, err = e.orc.StartStep(ctx, StartStepRequest{SessionName: "sess1", StepName: "post"})
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrState)
	assert.Contains(t, err.Error(), "some services are not allocated")
}

func TestReconcileUpdatesStepStatus(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	e.startSession(t, true)

	instance, err := e.orc.StartStep(ctx, StartStepRequest{SessionName: "sess1", StepName: "post"})
	require.NoError(t, err)

	e.jm.states[instance.JobID] = "RUNNING PENDING"
	require.NoError(t, e.orc.Reconcile(ctx))

	views, err := e.orc.StepStatuses(ctx, "sess1")
	require.NoError(t, err)
	require.Len(t, views, 1)
	// The raw heterogeneous status is stored verbatim and combined on read
	assert.Equal(t, models.StepStatusStarting, views[0].Status)
	assert.Equal(t, "PENDING", views[0].CombinedStatus)

	got, err := e.store.Steps().GetInstanceByName(ctx, instance.InstanceName)
	require.NoError(t, err)
	assert.Equal(t, "RUNNING PENDING", got.RawJobStatus)

	// The job left the queue: the instance concludes
	delete(e.jm.states, instance.JobID)
	require.NoError(t, e.orc.Reconcile(ctx))
	got, err = e.store.Steps().GetInstanceByName(ctx, instance.InstanceName)
	require.NoError(t, err)
	assert.Equal(t, models.StepStatusStopped, got.Status)
	assert.False(t, got.StopTime.IsZero())
}

func TestUpdateProgress(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	e.startSession(t, true)

	instance, err := e.orc.StartStep(ctx, StartStepRequest{SessionName: "sess1", StepName: "post"})
	require.NoError(t, err)

	updated, err := e.orc.UpdateProgress(ctx, "", instance.JobID, "50%")
	require.NoError(t, err)
	assert.Equal(t, instance.InstanceName, updated.InstanceName)
	assert.Equal(t, "50%", updated.Progress)

	_, err = e.orc.UpdateProgress(ctx, "", 424242, "none")
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrState)

	// A job id shared by several instances cannot be addressed
	second, err := e.orc.StartStep(ctx, StartStepRequest{SessionName: "sess1", StepName: "post"})
	require.NoError(t, err)
	second.JobID = instance.JobID
	require.NoError(t, e.store.Steps().UpdateInstance(ctx, second))

	_, err = e.orc.UpdateProgress(ctx, "", instance.JobID, "75%")
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrState)
	assert.Contains(t, err.Error(), "matches")
}

func TestAccessSession(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	e.startSession(t, true)

	command, err := e.orc.AccessSession(ctx, "sess1", "gbf1")
	require.NoError(t, err)
	assert.Contains(t, command, "srun")
	assert.Contains(t, command, "--pty bash")

	_, err = e.orc.AccessSession(ctx, "sess1", "ghost")
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrState)
}

func TestAccessSessionRequiresUsableService(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	session := e.startSession(t, true)

	services, err := e.store.Services().GetBySession(ctx, session.ID)
	require.NoError(t, err)
	require.Len(t, services, 1)
	require.NoError(t, e.store.Services().UpdateStatus(ctx, services[0].ID, models.ServiceStatusWaiting))

	_, err = e.orc.AccessSession(ctx, "sess1", "gbf1")
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrState)
	assert.Contains(t, err.Error(), "no allocated service")
}

func TestAccessSessionWithoutServices(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	_, err := e.orc.StartSession(ctx, StartSessionRequest{
		SessionName: "bare",
		User:        "alice",
		FileName:    "bare.yaml",
		Description: "workflow:\n  name: bare\nservices: []\nsteps:\n  - name: only\n    command: run\n    services: []\n",
	})
	require.NoError(t, err)

	_, err = e.orc.AccessSession(ctx, "bare", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrState)
	assert.Contains(t, err.Error(), "has no services")
}
