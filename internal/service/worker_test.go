package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Hari-1410/H4shQ4x-2026/internal/logging"
	"github.com/Hari-1410/H4shQ4x-2026/internal/txgraph"
)

func TestBatchRunner_Run(t *testing.T) {
	svc := NewAnalysisService(newEngine(t), Limits{MaxTransactions: 3}, logging.Discard())
	runner := NewBatchRunner(svc, 2)

	small := muleBatch()[:3]
	jobs := []BatchJob{
		{Name: "first", Records: small},
		{Name: "oversize", Records: muleBatch()},
		{Name: "empty", Records: nil},
		{Name: "invalid", Records: []txgraph.Record{{Sender: "A", Receiver: "B", Amount: -1, Timestamp: "2024-01-01"}}},
	}

	outcomes, err := runner.Run(context.Background(), jobs)
	require.Error(t, err)
	require.Len(t, outcomes, len(jobs))

	for i, job := range jobs {
		assert.Equal(t, job.Name, outcomes[i].Name)
	}
	assert.NoError(t, outcomes[0].Err)
	assert.ErrorIs(t, outcomes[1].Err, ErrBatchTooLarge)
	assert.NoError(t, outcomes[2].Err)
	assert.Error(t, outcomes[3].Err)

	var taskErr *TaskError
	require.True(t, errors.As(err, &taskErr))
	assert.Len(t, taskErr.Errors, 2)
	assert.ErrorIs(t, err, ErrBatchTooLarge)
	assert.Contains(t, err.Error(), "oversize")

	var vErr *txgraph.ValidationError
	assert.True(t, errors.As(err, &vErr))
}

func TestBatchRunner_AllSucceed(t *testing.T) {
	svc := NewAnalysisService(newEngine(t), Limits{}, logging.Discard())
	runner := NewBatchRunner(svc, 0)

	outcomes, err := runner.Run(context.Background(), []BatchJob{
		{Name: "a", Records: muleBatch()},
		{Name: "b", Records: muleBatch()},
	})
	require.NoError(t, err)
	assert.NotEqual(t, outcomes[0].Assessment.AnalysisID, outcomes[1].Assessment.AnalysisID)
}

func TestBatchRunner_NoJobs(t *testing.T) {
	runner := NewBatchRunner(NewAnalysisService(newEngine(t), Limits{}, logging.Discard()), 2)
	outcomes, err := runner.Run(context.Background(), nil)
	assert.NoError(t, err)
	assert.Empty(t, outcomes)
}

func TestBatchRunner_Cancelled(t *testing.T) {
	runner := NewBatchRunner(NewAnalysisService(newEngine(t), Limits{}, logging.Discard()), 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := runner.Run(ctx, []BatchJob{{Name: "a", Records: muleBatch()}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTaskError_Message(t *testing.T) {
	var e TaskError
	assert.Equal(t, "no errors", e.Error())
	assert.NoError(t, e.asError())

	e.append(errors.New("one"))
	e.append(nil)
	assert.Equal(t, "one", e.Error())

	e.append(errors.New("two"))
	assert.Equal(t, "2 batches failed: one; two;", e.Error())
}
