package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"

	"github.com/redis/go-redis/v9"

	"lucius/internal/logging"
)

// Worker pops tasks off the shared queue, executes them, and publishes
// prefixed results under the task's result key.
type Worker struct {
	rdb *redis.Client

	// run is swappable for tests; defaults to local process execution.
	run func(ctx context.Context, name string, args ...string) ([]byte, error)
}

// NewWorker connects a worker to the Redis instance at addr.
func NewWorker(addr string) *Worker {
	return &Worker{
		rdb: redis.NewClient(&redis.Options{Addr: addr}),
		run: runCombined,
	}
}

// newWorkerClient wraps an existing client. Used by tests.
func newWorkerClient(rdb *redis.Client) *Worker {
	return &Worker{rdb: rdb, run: runCombined}
}

func runCombined(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// Ping checks the Redis connection.
func (w *Worker) Ping(ctx context.Context) error {
	return w.rdb.Ping(ctx).Err()
}

// Run consumes tasks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	logging.Worker("worker consuming %s", TaskQueueKey)
	for {
		vals, err := w.rdb.BLPop(ctx, PollTimeout, TaskQueueKey).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("failed to pop task: %w", err)
		}
		if len(vals) != 2 {
			continue
		}

		var task Task
		if err := json.Unmarshal([]byte(vals[1]), &task); err != nil {
			logging.Worker("skipping malformed task: %v", err)
			continue
		}
		w.handle(ctx, task)
	}
}

// handle executes one task and publishes its result. Execution failures are
// published as ERROR: results, never dropped, so the waiting client always
// gets an answer.
func (w *Worker) handle(ctx context.Context, task Task) {
	logging.Worker("executing task %s type=%s host=%q", task.ID, task.TaskType, task.TargetHost)

	output, err := w.execute(ctx, task)
	result := ResultPrefixSuccess + " " + string(output)
	if err != nil {
		result = fmt.Sprintf("%s %v\n%s", ResultPrefixError, err, output)
	}

	pipe := w.rdb.TxPipeline()
	pipe.LPush(ctx, task.ResultKey(), result)
	pipe.Expire(ctx, task.ResultKey(), ResultTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		logging.Worker("failed to publish result for task %s: %v", task.ID, err)
		return
	}
	logging.Worker("published result for task %s", task.ID)
}

// execute runs the task's command. Shell tasks run locally via sh -c, or on
// the target host via ssh when one is set. Docker tasks get the docker
// binary prefixed to the details.
func (w *Worker) execute(ctx context.Context, task Task) ([]byte, error) {
	switch task.TaskType {
	case TaskTypeDocker:
		if task.TargetHost != "" {
			return w.run(ctx, "ssh", task.TargetHost, "docker "+task.Details)
		}
		return w.run(ctx, "sh", "-c", "docker "+task.Details)
	default:
		if task.TargetHost != "" {
			return w.run(ctx, "ssh", task.TargetHost, task.Details)
		}
		return w.run(ctx, "sh", "-c", task.Details)
	}
}

// Close releases the Redis connection.
func (w *Worker) Close() error {
	return w.rdb.Close()
}
