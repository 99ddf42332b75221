package executor

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"pulsewatch/config"
	"pulsewatch/internals/modules/history"
	"pulsewatch/internals/modules/scheduler"
	"pulsewatch/pkg/metrics"

	"github.com/rs/zerolog"
)

// maxDrain bounds how much of a response body is read so keep-alive
// connections can be reused.
const maxDrain = 64 << 10

type Executor struct {
	workerCount int
	method      string
	userAgent   string
	timeout     time.Duration

	jobChan    <-chan scheduler.JobPayload
	resultChan chan<- history.CheckResult

	httpSem    chan struct{}
	httpWg     sync.WaitGroup
	workerWg   sync.WaitGroup
	httpClient *http.Client

	logger *zerolog.Logger
}

func NewExecutor(
	cfg *config.ExecutorConfig,
	jobChan <-chan scheduler.JobPayload,
	resultChan chan<- history.CheckResult,
	httpClient *http.Client,
	logger *zerolog.Logger,
) *Executor {

	method := cfg.Method
	if method == "" {
		method = http.MethodGet
	}

	return &Executor{
		workerCount: cfg.WorkerCount,
		method:      method,
		userAgent:   cfg.UserAgent,
		timeout:     cfg.Timeout,
		jobChan:     jobChan,
		resultChan:  resultChan,
		httpSem:     make(chan struct{}, cfg.MaxConcurrency),
		httpClient:  httpClient,
		logger:      logger,
	}
}

// StartWorkers reads jobs until the job channel is closed. Every job yields
// exactly one result.
func (ew *Executor) StartWorkers(ctx context.Context) {
	for range ew.workerCount {
		ew.workerWg.Add(1)
		go ew.startWork(ctx)
	}
	ew.logger.Info().
		Int("workers", ew.workerCount).
		Int("max_concurrency", cap(ew.httpSem)).
		Dur("timeout", ew.timeout).
		Msg("executor started")
}

func (ew *Executor) startWork(ctx context.Context) {
	defer ew.workerWg.Done()

	for job := range ew.jobChan {
		// acquire http semaphore
		ew.httpSem <- struct{}{}
		ew.httpWg.Add(1)

		go func(job scheduler.JobPayload) {
			defer func() {
				<-ew.httpSem
				ew.httpWg.Done()
			}()

			ew.resultChan <- ew.Check(ctx, job)
		}(job)
	}
}

// Shutdown waits for queued and running probes, then closes the result
// channel. Call it after the job channel has been closed.
func (ew *Executor) Shutdown() {
	ew.workerWg.Wait()
	ew.httpWg.Wait()
	close(ew.resultChan)
	ew.logger.Info().Msg("executor drained")
}

// Check runs one probe. It never panics and always returns a result within
// the configured timeout plus scheduling slack.
func (ew *Executor) Check(ctx context.Context, job scheduler.JobPayload) (result history.CheckResult) {
	start := time.Now()

	ts := job.ScheduledAt
	if ts.IsZero() {
		ts = start.UTC().Truncate(time.Microsecond)
	}
	result = history.CheckResult{MonitorID: job.MonitorID, Timestamp: ts}

	defer func() {
		if r := recover(); r != nil {
			ew.logger.Error().
				Str("monitor_id", job.MonitorID.String()).
				Str("panic", fmt.Sprint(r)).
				Msg("probe panicked")
			result = history.CheckResult{
				MonitorID: job.MonitorID,
				Timestamp: ts,
				Outcome:   history.OutcomeError,
				Reason:    history.ReasonPanic,
			}
		}
		metrics.ObserveCheck(string(result.Outcome), time.Since(start))
	}()

	reqCtx, cancel := context.WithTimeout(ctx, ew.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, ew.method, job.URL, nil)
	if err != nil {
		// urls are validated on create, so this is our bug rather than the target's
		ew.logger.Error().Err(err).Str("monitor_id", job.MonitorID.String()).Msg("could not build probe request")
		result.Outcome = history.OutcomeError
		result.Reason = history.ReasonInvalidRequest
		return result
	}
	if ew.userAgent != "" {
		req.Header.Set("User-Agent", ew.userAgent)
	}

	resp, err := ew.httpClient.Do(req)
	latency := time.Since(start).Milliseconds()
	if err != nil {
		result.Outcome, result.Reason = classifyError(err)
		ew.logger.Debug().
			Err(err).
			Str("monitor_id", job.MonitorID.String()).
			Str("reason", result.Reason).
			Msg("probe failed")
		return result
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrain))

	code := resp.StatusCode
	result.HTTPStatus = &code

	if code >= 200 && code < 400 {
		result.Outcome = history.OutcomeUp
		result.ResponseTimeMs = &latency
		return result
	}

	result.Outcome = history.OutcomeDown
	result.Reason = history.ReasonHTTPStatus
	return result
}
