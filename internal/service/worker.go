package service

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/Hari-1410/H4shQ4x-2026/internal/domain"
	"github.com/Hari-1410/H4shQ4x-2026/internal/txgraph"
)

// TaskError accumulates the per-batch failures of a BatchRunner run.
type TaskError struct {
	Errors []error
}

func (e *TaskError) Error() string {
	if len(e.Errors) == 0 {
		return "no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	msg := fmt.Sprintf("%d batches failed:", len(e.Errors))
	for _, err := range e.Errors {
		msg += " " + err.Error() + ";"
	}
	return msg
}

// Unwrap lets errors.Is and errors.As see every collected error.
func (e *TaskError) Unwrap() []error {
	return e.Errors
}

func (e *TaskError) append(err error) {
	if err == nil {
		return
	}
	e.Errors = append(e.Errors, err)
}

func (e *TaskError) asError() error {
	if len(e.Errors) == 0 {
		return nil
	}
	return e
}

// BatchJob is one named batch handed to a BatchRunner.
type BatchJob struct {
	Name    string
	Records []txgraph.Record
}

// BatchOutcome pairs a job with its assessment or error.
type BatchOutcome struct {
	Name       string
	Assessment domain.Assessment
	Err        error
}

// BatchRunner scores many independent batches with bounded concurrency.
type BatchRunner struct {
	service *AnalysisService
	workers int
}

// NewBatchRunner creates a BatchRunner with the provided concurrency.
func NewBatchRunner(service *AnalysisService, workers int) *BatchRunner {
	if workers <= 0 {
		workers = 4
	}
	return &BatchRunner{
		service: service,
		workers: workers,
	}
}

// Run scores every job. Outcomes are returned in job order even when some
// fail; the error is a *TaskError listing each failed job, or the context
// error when the run was cancelled.
func (br *BatchRunner) Run(ctx context.Context, jobs []BatchJob) ([]BatchOutcome, error) {
	outcomes := make([]BatchOutcome, len(jobs))
	if len(jobs) == 0 {
		return outcomes, nil
	}

	var g errgroup.Group
	g.SetLimit(br.workers)
	for i := range jobs {
		if ctx.Err() != nil {
			break
		}
		i := i
		g.Go(func() error {
			job := jobs[i]
			a, err := br.service.Analyze(ctx, job.Records)
			outcomes[i] = BatchOutcome{Name: job.Name, Assessment: a, Err: err}
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return outcomes, err
	}
	if err := ctx.Err(); err != nil {
		return outcomes, err
	}

	var taskErr TaskError
	for _, o := range outcomes {
		if o.Err != nil {
			taskErr.append(fmt.Errorf("%s: %w", o.Name, o.Err))
		}
	}
	return outcomes, taskErr.asError()
}
