package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"coursepass/internal/chain"
	"coursepass/internal/logger"
	"coursepass/internal/models"
)

// Task type definitions
const (
	TypeCourseRegister = "course:register"
)

// CourseRegisterPayload defines the payload for course registration tasks
type CourseRegisterPayload struct {
	From   string                     `json:"from"`
	Params chain.RegisterCourseParams `json:"params"`
}

// NewCourseRegisterTask creates a new course registration task
func NewCourseRegisterTask(from string, params chain.RegisterCourseParams) (*asynq.Task, error) {
	payload := CourseRegisterPayload{From: from, Params: params}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeCourseRegister, data), nil
}

// Enqueuer submits course registration tasks to the queue. It implements
// services.CourseRegistrar.
type Enqueuer struct {
	client      *asynq.Client
	maxAttempts int
}

func NewEnqueuer(client *asynq.Client, maxAttempts int) *Enqueuer {
	return &Enqueuer{client: client, maxAttempts: maxAttempts}
}

func (e *Enqueuer) Enqueue(ctx context.Context, from string, params chain.RegisterCourseParams) error {
	task, err := NewCourseRegisterTask(from, params)
	if err != nil {
		return err
	}
	_, err = e.client.EnqueueContext(ctx, task, asynq.MaxRetry(e.maxAttempts), asynq.Queue("chain"))
	return err
}

// CourseRegistrar processes course registration tasks.
type CourseRegistrar struct {
	chainClient chain.Client
	log         *logger.Logger
}

func NewCourseRegistrar(chainClient chain.Client, log *logger.Logger) *CourseRegistrar {
	return &CourseRegistrar{chainClient: chainClient, log: log}
}

// CourseRegisterHandler registers the course on chain and waits for
// confirmation. A transport failure or a failed transaction is returned so
// the queue retries; an already-registered revert means a prior attempt won
// the race and is treated as success.
func (r *CourseRegistrar) CourseRegisterHandler(ctx context.Context, t *asynq.Task) error {
	var payload CourseRegisterPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal course register payload: %w", err)
	}

	r.log.Info().
		Str("course_id", payload.Params.CourseID).
		Str("from", payload.From).
		Msg("registering course on chain")

	txHash, err := r.chainClient.RegisterCourse(ctx, payload.From, payload.Params)
	if err != nil {
		if errors.Is(err, models.ErrAlreadyRegistered) {
			r.log.Info().Str("course_id", payload.Params.CourseID).Msg("course already registered")
			return nil
		}
		var onchain *models.OnchainStateError
		if errors.As(err, &onchain) {
			// a state revert will not clear on retry
			return fmt.Errorf("course registration reverted: %s: %w", onchain.Reason, asynq.SkipRetry)
		}
		return err
	}

	receipt, err := r.chainClient.WaitForReceipt(ctx, txHash)
	if err != nil {
		return err
	}
	if receipt.Status != chain.ReceiptConfirmed {
		return fmt.Errorf("course registration transaction %s failed", txHash)
	}

	r.log.Info().
		Str("course_id", payload.Params.CourseID).
		Str("tx_hash", txHash).
		Msg("course registered")
	return nil
}

// NewWorkerServer builds the asynq server with a fixed retry delay; chain
// congestion does not benefit from exponential backoff on this timescale.
func NewWorkerServer(redisAddr, redisPassword string, redisDB int, retryDelay time.Duration) *asynq.Server {
	return asynq.NewServer(
		asynq.RedisClientOpt{Addr: redisAddr, Password: redisPassword, DB: redisDB},
		asynq.Config{
			Concurrency: 5,
			Queues: map[string]int{
				"chain":   6,
				"default": 4,
			},
			RetryDelayFunc: func(n int, e error, t *asynq.Task) time.Duration {
				return retryDelay
			},
		},
	)
}

// NewMux wires the task handlers.
func NewMux(registrar *CourseRegistrar) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeCourseRegister, registrar.CourseRegisterHandler)
	return mux
}
