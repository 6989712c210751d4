package jobmanager

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpcwfm/wfm/internal/common"
	"github.com/hpcwfm/wfm/internal/models"
)

func testSlurm(run commandRunner) *Slurm {
	cfg := common.DefaultConfig().JobManager
	s := NewSlurm(cfg, common.GetLogger())
	s.run = run
	return s
}

func TestSubmitBatch(t *testing.T) {
	var gotName string
	var gotArgs []string
	s := testSlurm(func(ctx context.Context, name string, args ...string) (string, error) {
		gotName = name
		gotArgs = args
		return "4711;cluster", nil
	})

	jobID, err := s.SubmitBatch(context.Background(), "/tmp/bb.spec.create_persistent.svc", models.JobOptions{
		JobName:      "svc-create",
		Partition:    "gpp",
		Dependency:   models.NoJobDependency,
		Export:       []string{"IOLIB_MODULES=EphemeralServices"},
		WorkflowName: "wf",
		RunID:        "sess-2026-01-01_10:00:00",
		Wait:         true,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(4711), jobID)

	assert.Equal(t, "sbatch", gotName)
	assert.Contains(t, gotArgs, "--parsable")
	assert.Contains(t, gotArgs, "--job-name=svc-create")
	assert.Contains(t, gotArgs, "--partition=gpp")
	assert.Contains(t, gotArgs, "--export=ALL,IOLIB_MODULES=EphemeralServices")
	assert.Contains(t, gotArgs, "--comment=workflow:wf,runid:sess-2026-01-01_10:00:00")
	assert.Contains(t, gotArgs, "--wait")
	assert.NotContains(t, gotArgs, "--dependency=afterany:-1")
	assert.Equal(t, "/tmp/bb.spec.create_persistent.svc", gotArgs[len(gotArgs)-1])
}

func TestSubmitLineWithDependency(t *testing.T) {
	var gotArgs []string
	s := testSlurm(func(ctx context.Context, name string, args ...string) (string, error) {
		gotArgs = args
		return "99", nil
	})

	jobID, err := s.SubmitLine(context.Background(), "simulate --step 1", models.JobOptions{
		JobName:    "user-sess-sim_1",
		Dependency: 4711,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(99), jobID)

	assert.Contains(t, gotArgs, "--dependency=afterany:4711")
	assert.Equal(t, "--wrap", gotArgs[len(gotArgs)-2])
	assert.Equal(t, "simulate --step 1", gotArgs[len(gotArgs)-1])
}

func TestSubmitBatchFailure(t *testing.T) {
	s := testSlurm(func(ctx context.Context, name string, args ...string) (string, error) {
		return "", fmt.Errorf("sbatch: error: invalid partition")
	})

	_, err := s.SubmitBatch(context.Background(), "/tmp/spec", models.JobOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrExternal)
}

func TestJobStateTreatsFailureAsGone(t *testing.T) {
	s := testSlurm(func(ctx context.Context, name string, args ...string) (string, error) {
		return "", fmt.Errorf("squeue: error: Invalid job id")
	})

	raw, err := s.JobState(context.Background(), 12345)
	require.NoError(t, err)
	assert.Equal(t, "", raw)
	assert.Equal(t, StatusStopped, s.CombineForDisplay(raw))
}

func TestJobStateJoinsComponents(t *testing.T) {
	s := testSlurm(func(ctx context.Context, name string, args ...string) (string, error) {
		return "RUNNING\nPENDING\n", nil
	})

	raw, err := s.JobState(context.Background(), 4711)
	require.NoError(t, err)
	assert.Equal(t, "RUNNING PENDING", raw)
}

func TestListPartitions(t *testing.T) {
	s := testSlurm(func(ctx context.Context, name string, args ...string) (string, error) {
		assert.Equal(t, "sinfo", name)
		return "gpp\nhighmem\n", nil
	})

	partitions, err := s.ListPartitions(context.Background())
	require.NoError(t, err)
	require.Len(t, partitions, 2)
	assert.Equal(t, "gpp", partitions[0].Name)
	assert.Equal(t, "highmem", partitions[1].Name)
}

func TestParseJobID(t *testing.T) {
	jobID, err := parseJobID("123")
	require.NoError(t, err)
	assert.Equal(t, int64(123), jobID)

	jobID, err = parseJobID("123;cluster")
	require.NoError(t, err)
	assert.Equal(t, int64(123), jobID)

	_, err = parseJobID("not-a-number")
	assert.Error(t, err)

	_, err = parseJobID("")
	assert.Error(t, err)
}

func TestNewRefusesUnknownType(t *testing.T) {
	cfg := common.DefaultConfig().JobManager
	cfg.Type = "pbs"
	_, err := New(cfg, common.GetLogger())
	assert.ErrorIs(t, err, models.ErrNotSupported)
}
