package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"lucius/internal/logging"
	"lucius/internal/mcp"
)

// ErrResultTimeout means no worker published a result within the poll window.
var ErrResultTimeout = errors.New("timed out waiting for task result")

// Broker is the client side of the queue: submit tasks, wait for results.
type Broker struct {
	rdb *redis.Client

	// pollTimeout bounds one result wait. Tests shrink it.
	pollTimeout time.Duration
}

// NewBroker connects a broker to the Redis instance at addr.
func NewBroker(addr string) *Broker {
	return &Broker{
		rdb:         redis.NewClient(&redis.Options{Addr: addr}),
		pollTimeout: PollTimeout,
	}
}

// newBrokerClient wraps an existing client. Used by tests.
func newBrokerClient(rdb *redis.Client) *Broker {
	return &Broker{rdb: rdb, pollTimeout: PollTimeout}
}

// Ping checks the Redis connection.
func (b *Broker) Ping(ctx context.Context) error {
	return b.rdb.Ping(ctx).Err()
}

// Submit pushes a task onto the shared queue.
func (b *Broker) Submit(ctx context.Context, task Task) error {
	data, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal task: %w", err)
	}
	if err := b.rdb.LPush(ctx, TaskQueueKey, data).Err(); err != nil {
		return fmt.Errorf("failed to submit task: %w", err)
	}
	logging.Queue("submitted task %s (%s) to %s", task.ID, task.TaskType, TaskQueueKey)
	return nil
}

// PollResult blocks until a worker publishes the task's result, the poll
// window expires, or ctx is cancelled.
func (b *Broker) PollResult(ctx context.Context, task Task) (string, error) {
	vals, err := b.rdb.BLPop(ctx, b.pollTimeout, task.ResultKey()).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", fmt.Errorf("%w: task %s", ErrResultTimeout, task.ID)
		}
		return "", fmt.Errorf("failed to poll result for task %s: %w", task.ID, err)
	}
	// BLPOP returns [key, value].
	if len(vals) != 2 {
		return "", fmt.Errorf("unexpected BLPOP reply for task %s: %v", task.ID, vals)
	}
	return vals[1], nil
}

// Execute queues a tool call and waits for its result. The worker's
// SUCCESS:/ERROR: prefix is preserved in the returned text so the model
// sees the outcome either way.
func (b *Broker) Execute(ctx context.Context, call mcp.ToolCall) (string, error) {
	task, err := NewTask(call)
	if err != nil {
		return "", err
	}
	if err := b.Submit(ctx, task); err != nil {
		return "", err
	}
	return b.PollResult(ctx, task)
}

// Close releases the Redis connection.
func (b *Broker) Close() error {
	return b.rdb.Close()
}
