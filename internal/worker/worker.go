package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/jwebster45206/werewolf-engine/internal/agents"
	"github.com/jwebster45206/werewolf-engine/internal/services/events"
	"github.com/jwebster45206/werewolf-engine/internal/services/queue"
	queuePkg "github.com/jwebster45206/werewolf-engine/pkg/queue"
)

const (
	workerTimeout = 5 * time.Second
	// lockTTL covers a discussion with every validator retry.
	lockTTL = 5 * time.Minute
)

var releaseScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`)

// Worker processes game requests from the shared queue
type Worker struct {
	id          string
	queue       *queue.RequestQueue
	processor   *Processor
	broadcaster *events.Broadcaster
	redisClient *redis.Client
	log         *slog.Logger
	ctx         context.Context
	cancel      context.CancelFunc
}

// New creates a new worker instance
func New(requests *queue.RequestQueue, processor *Processor, redisClient *redis.Client, log *slog.Logger, workerID string) *Worker {
	ctx, cancel := context.WithCancel(context.Background())

	if workerID == "" {
		workerID = fmt.Sprintf("worker-%s", uuid.New().String()[:8])
	}

	return &Worker{
		id:          workerID,
		queue:       requests,
		processor:   processor,
		broadcaster: events.NewBroadcaster(redisClient, log),
		redisClient: redisClient,
		log:         log,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// ID returns the worker's lock owner id.
func (w *Worker) ID() string {
	return w.id
}

// Start begins processing requests from the queue
func (w *Worker) Start() error {
	w.log.Info("Worker starting", "worker_id", w.id)

	for {
		select {
		case <-w.ctx.Done():
			w.log.Info("Worker shutting down", "worker_id", w.id)
			return nil
		default:
			if err := w.processNextRequest(); err != nil {
				w.log.Error("Error processing request", "error", err, "worker_id", w.id)
				// Continue processing even on error
				time.Sleep(1 * time.Second)
			}
		}
	}
}

// Stop gracefully shuts down the worker
func (w *Worker) Stop() {
	w.log.Info("Worker stop requested", "worker_id", w.id)
	w.cancel()
}

// processNextRequest pulls the next request from the queue and processes it
func (w *Worker) processNextRequest() error {
	// Block waiting for next request (timeout so shutdown is noticed)
	ctx, cancel := context.WithTimeout(w.ctx, workerTimeout+time.Second)
	defer cancel()

	req, err := w.queue.BlockingDequeueRequest(ctx, workerTimeout)
	if err != nil {
		if w.ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("failed to dequeue request: %w", err)
	}
	if req == nil {
		return nil
	}

	w.log.Info("Received request from queue",
		"worker_id", w.id,
		"request_id", req.RequestID,
		"type", req.Type,
		"game_state_id", req.GameStateID.String(),
	)

	locked, err := w.acquireGameLock(req.GameStateID)
	if err != nil {
		return fmt.Errorf("failed to acquire game lock: %w", err)
	}
	if !locked {
		// Another worker owns this game; requeue at the back
		w.log.Info("Game already locked, re-queueing request",
			"worker_id", w.id,
			"request_id", req.RequestID,
			"game_state_id", req.GameStateID.String(),
		)
		if err := w.queue.EnqueueRequest(w.ctx, req); err != nil {
			return fmt.Errorf("failed to re-queue request: %w", err)
		}
		return nil
	}

	defer w.releaseGameLock(req.GameStateID)
	return w.processRequest(req)
}

func lockKey(gameStateID uuid.UUID) string {
	return fmt.Sprintf("game-lock:%s", gameStateID.String())
}

// acquireGameLock returns true if the lock was acquired, false if it is
// already held.
func (w *Worker) acquireGameLock(gameStateID uuid.UUID) (bool, error) {
	return w.redisClient.SetNX(w.ctx, lockKey(gameStateID), w.id, lockTTL).Result()
}

// releaseGameLock deletes the lock only if this worker still owns it.
func (w *Worker) releaseGameLock(gameStateID uuid.UUID) {
	ctx, cancel := context.WithTimeout(context.Background(), workerTimeout)
	defer cancel()
	if err := releaseScript.Run(ctx, w.redisClient, []string{lockKey(gameStateID)}, w.id).Err(); err != nil {
		w.log.Error("Failed to release game lock", "error", err, "game_state_id", gameStateID.String())
	}
}

// processRequest runs one request and publishes its lifecycle events.
// Discussion and scene progress is forwarded as agent events as it happens.
func (w *Worker) processRequest(req *queuePkg.Request) error {
	w.log.Info("Processing request",
		"worker_id", w.id,
		"request_id", req.RequestID,
		"type", req.Type,
		"game_state_id", req.GameStateID.String(),
	)
	start := time.Now()

	if err := w.broadcaster.PublishRequestProcessing(w.ctx, req.GameStateID, req.RequestID, string(req.Type), req.Message); err != nil {
		w.log.Error("Failed to publish processing event", "error", err)
	}

	progress := make(chan agents.Progress, 16)
	forwarded := make(chan struct{})
	go func() {
		defer close(forwarded)
		for p := range progress {
			if err := w.broadcaster.PublishAgent(w.ctx, req.GameStateID, req.RequestID, string(p.Kind), p.Name, p.Text); err != nil {
				w.log.Error("Failed to publish agent event", "error", err)
			}
		}
	}()

	out, err := w.processor.Process(w.ctx, req, progress)
	close(progress)
	<-forwarded

	if err != nil {
		w.log.Error("Request failed",
			"error", err,
			"request_id", req.RequestID,
			"game_state_id", req.GameStateID.String(),
		)
		if pubErr := w.broadcaster.PublishRequestFailed(w.ctx, req.GameStateID, req.RequestID, err.Error()); pubErr != nil {
			w.log.Error("Failed to publish failure event", "error", pubErr)
		}
		return fmt.Errorf("failed to process %s request: %w", req.Type, err)
	}

	duration := time.Since(start).Milliseconds()
	w.log.Info("Request processed successfully",
		"worker_id", w.id,
		"request_id", req.RequestID,
		"type", req.Type,
		"duration_ms", duration,
	)

	out.Data["duration_ms"] = duration
	if err := w.broadcaster.PublishRequestCompleted(w.ctx, req.GameStateID, req.RequestID, out.Data); err != nil {
		w.log.Error("Failed to publish completion event", "error", err)
	}
	if err := w.broadcaster.PublishGameStateUpdated(w.ctx, req.GameStateID, out.State.Day, string(out.State.Phase)); err != nil {
		w.log.Error("Failed to publish state event", "error", err)
	}
	return nil
}
