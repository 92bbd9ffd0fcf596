// Package scheduler dispatches deferred verb invocations on a fixed tick,
// mirroring the teacher's cron trigger scheduler but polling the
// repository's due-task table instead of a set of stored cron specs.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rakunlabs/moo/internal/dispatcher"
	"github.com/rakunlabs/moo/internal/repository"
	"github.com/worldline-go/hardloop"
)

// SendFunc pushes a notification onto an entity's outbound session queue.
// The scheduler calls it with each task's entity id, since the triggering
// entity may or may not have a live session.
type SendFunc func(entityID int64, method string, params map[string]any)

// Scheduler polls the repository for due scheduled tasks and dispatches
// each through the verb dispatcher. Failures are logged, never retried,
// per spec.
type Scheduler struct {
	repo       *repository.Repository
	dispatcher *dispatcher.Dispatcher
	tick       time.Duration
	send       SendFunc

	cron interface {
		Start(ctx context.Context) error
		Stop()
	}
	cancel context.CancelFunc
}

// New builds a Scheduler. send may be nil, in which case dispatched tasks'
// notifications are simply dropped.
func New(repo *repository.Repository, d *dispatcher.Dispatcher, tick time.Duration, send SendFunc) *Scheduler {
	if tick <= 0 {
		tick = 250 * time.Millisecond
	}

	return &Scheduler{repo: repo, dispatcher: d, tick: tick, send: send}
}

// Start begins polling on the configured tick. Call Stop to halt it.
func (s *Scheduler) Start(ctx context.Context) error {
	cronCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	job, err := hardloop.NewCron(hardloop.Cron{
		Name:  "moo-scheduled-tasks",
		Specs: []string{fmt.Sprintf("@every %s", s.tick)},
		Func:  s.dispatchDue,
	})
	if err != nil {
		cancel()

		return fmt.Errorf("scheduler: create cron runner: %w", err)
	}

	s.cron = job

	if err := job.Start(cronCtx); err != nil {
		cancel()

		return fmt.Errorf("scheduler: start cron runner: %w", err)
	}

	return nil
}

// Stop halts the polling loop. Safe to call multiple times.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	if s.cron != nil {
		s.cron.Stop()
		s.cron = nil
	}
}

// dispatchDue pops every row due now and runs each to completion. Per spec
// §4.6, a task that fails to run (missing entity/verb, or a script error)
// is dropped and logged, never retried or re-raised.
func (s *Scheduler) dispatchDue(ctx context.Context) error {
	due, err := s.repo.PopDueTasks(ctx, time.Now().UTC().Unix())
	if err != nil {
		slog.Error("scheduler: pop due tasks failed", "error", err)

		return nil
	}

	for _, task := range due {
		s.runOne(ctx, task.EntityID, task.Verb, task.Args)
	}

	return nil
}

func (s *Scheduler) runOne(ctx context.Context, entityID int64, verb string, args []any) {
	result, err := s.dispatcher.Execute(ctx, entityID, verb, args, func(method string, params map[string]any) {
		if s.send != nil {
			s.send(entityID, method, params)
		}
	})
	if err != nil {
		slog.Warn("scheduler: task dispatch failed", "entity_id", entityID, "verb", verb, "error", err)

		return
	}

	for _, w := range result.Warnings {
		slog.Warn("scheduler: task warning", "entity_id", entityID, "verb", verb, "warning", w)
	}
}
