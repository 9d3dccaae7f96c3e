package service

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"autosolver/internal/domain/model"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisDispatcher pushes job ids onto the solve queue list. Consumers BRPOP the other end.
type RedisDispatcher struct {
	rdb   redis.UniversalClient
	queue string
	log   *zap.Logger
}

func NewRedisDispatcher(rdb redis.UniversalClient, queue string, log *zap.Logger) *RedisDispatcher {
	return &RedisDispatcher{rdb: rdb, queue: queue, log: log}
}

func (d *RedisDispatcher) Dispatch(ctx context.Context, jobID string) {
	if err := d.rdb.LPush(ctx, d.queue, jobID).Err(); err != nil {
		d.log.Error("failed to push job to queue", zap.String("job_id", jobID), zap.String("queue", d.queue), zap.Error(err))
		return
	}
	d.log.Info("job dispatched", zap.String("job_id", jobID), zap.String("queue", d.queue))
}

// TokenSigner issues the bearer token the worker endpoint expects for a job.
type TokenSigner func(jobID string) (string, error)

// HTTPDispatcher POSTs {job_id} to the worker endpoint from a background goroutine.
type HTTPDispatcher struct {
	url    string
	client *http.Client
	sign   TokenSigner
	log    *zap.Logger
	wg     sync.WaitGroup
}

// WorkerCallTimeout bounds one worker invocation, which includes the verdict poll.
const WorkerCallTimeout = 5 * time.Minute

func NewHTTPDispatcher(url string, sign TokenSigner, log *zap.Logger) *HTTPDispatcher {
	return &HTTPDispatcher{
		url:    url,
		client: &http.Client{Timeout: WorkerCallTimeout},
		sign:   sign,
		log:    log,
	}
}

func (d *HTTPDispatcher) Dispatch(ctx context.Context, jobID string) {
	log := d.log.With(zap.String("job_id", jobID))
	token, err := d.sign(jobID)
	if err != nil {
		log.Error("failed to sign dispatch token", zap.Error(err))
		return
	}
	body, err := json.Marshal(model.DispatchMessage{JobID: jobID})
	if err != nil {
		log.Error("failed to encode dispatch message", zap.Error(err))
		return
	}

	// detach from the caller; the request that enqueued the job returns right away
	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), WorkerCallTimeout)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer cancel()

		req, err := http.NewRequestWithContext(callCtx, http.MethodPost, d.url, bytes.NewReader(body))
		if err != nil {
			log.Error("failed to build worker request", zap.Error(err))
			return
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+token)

		resp, err := d.client.Do(req)
		if err != nil {
			log.Error("worker invocation failed", zap.Error(err))
			return
		}
		defer func() { _ = resp.Body.Close() }()
		if resp.StatusCode >= 300 {
			log.Error("worker rejected job", zap.Int("status", resp.StatusCode))
			return
		}
		log.Info("worker finished job", zap.Int("status", resp.StatusCode))
	}()
}

// Wait blocks until in-flight worker calls return. Used on shutdown.
func (d *HTTPDispatcher) Wait() {
	d.wg.Wait()
}
