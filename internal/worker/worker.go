// Package worker drives suggestion runs to completion without a client in
// the loop. Run requests arrive from Kafka; each request is processed by
// repeating budgeted chunk calls until the run reports completion. The
// accumulated suggestions are left in the run state for display.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/Adithya-Monish-Kumar-K/linksuggest/internal/batch"
	"github.com/Adithya-Monish-Kumar-K/linksuggest/internal/doc"
	"github.com/Adithya-Monish-Kumar-K/linksuggest/internal/events"
	"github.com/Adithya-Monish-Kumar-K/linksuggest/internal/runstate"
	apperrors "github.com/Adithya-Monish-Kumar-K/linksuggest/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/linksuggest/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/linksuggest/pkg/logger"
)

// Runner is the chunk API a run is driven through.
type Runner interface {
	ProcessOutboundChunk(ctx context.Context, req batch.OutboundRequest) (*batch.ChunkResponse, error)
	ProcessExternalChunk(ctx context.Context, req batch.OutboundRequest) (*batch.ChunkResponse, error)
	ProcessInboundChunk(ctx context.Context, req batch.InboundRequest) (*batch.InboundResponse, error)
}

// Progress is reported after every chunk.
type Progress struct {
	Mode      runstate.Mode
	Processed int
	Total     int
	Completed bool
}

// ErrNoProgress is returned when consecutive chunks fail to move the cursor.
var ErrNoProgress = errors.New("run made no progress")

// Worker drives runs through a Runner.
type Worker struct {
	runner  Runner
	maxIdle int
	logger  *slog.Logger
}

// New returns a Worker that gives up on a run after maxIdle consecutive
// chunks without progress. Zero means 3.
func New(runner Runner, maxIdle int) *Worker {
	if maxIdle <= 0 {
		maxIdle = 3
	}
	return &Worker{
		runner:  runner,
		maxIdle: maxIdle,
		logger:  slog.Default().With("component", "run-worker"),
	}
}

// Handle is a kafka.MessageHandler for run requests. Malformed and invalid
// requests are logged and dropped so they are not redelivered.
func (w *Worker) Handle(ctx context.Context, key []byte, value []byte) error {
	req, err := kafka.DecodeJSON[events.RunRequest](value)
	if err != nil {
		w.logger.Error("failed to decode run request", "error", err, "key", string(key))
		return nil
	}
	ctx = logger.WithProcessKey(ctx, req.ProcessKey)
	log := logger.FromContext(ctx)
	log.Info("run request received", "mode", req.Mode, "document_id", req.DocumentID, "kind", req.Kind)

	err = w.Drive(ctx, req, nil)
	var appErr *apperrors.AppError
	switch {
	case err == nil:
		log.Info("run finished", "mode", req.Mode)
		return nil
	case errors.As(err, &appErr), errors.Is(err, ErrNoProgress):
		log.Warn("run request dropped", "error", err)
		return nil
	default:
		return fmt.Errorf("driving run %s: %w", req.ProcessKey, err)
	}
}

// Drive repeats chunk calls until the requested run completes. Outbound
// runs are followed by the external-site pass. progress may be nil.
func (w *Worker) Drive(ctx context.Context, req events.RunRequest, progress func(Progress)) error {
	kind, err := doc.ParseKind(req.Kind)
	if err != nil {
		return apperrors.DataError(apperrors.ErrInvalidInput)
	}
	ref := doc.Ref{ID: req.DocumentID, Kind: kind}
	if progress == nil {
		progress = func(Progress) {}
	}

	switch runstate.Mode(req.Mode) {
	case runstate.ModeOutbound:
		if err := w.driveOutbound(ctx, runstate.ModeOutbound, w.runner.ProcessOutboundChunk, ref, req.ProcessKey, progress); err != nil {
			return err
		}
		return w.driveOutbound(ctx, runstate.ModeExternal, w.runner.ProcessExternalChunk, ref, req.ProcessKey, progress)
	case runstate.ModeExternal:
		return w.driveOutbound(ctx, runstate.ModeExternal, w.runner.ProcessExternalChunk, ref, req.ProcessKey, progress)
	case runstate.ModeInbound:
		return w.driveInbound(ctx, ref, req, progress)
	default:
		return apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest, "unknown run mode %q", req.Mode)
	}
}

type chunkFunc func(ctx context.Context, req batch.OutboundRequest) (*batch.ChunkResponse, error)

func (w *Worker) driveOutbound(ctx context.Context, mode runstate.Mode, process chunkFunc, ref doc.Ref, key string, progress func(Progress)) error {
	count, processed, idle := 0, 0, 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		resp, err := process(ctx, batch.OutboundRequest{Source: ref, ProcessKey: key, Count: count})
		if err != nil {
			return err
		}
		progress(Progress{Mode: mode, Processed: resp.ProcessedCount, Total: resp.TotalCount, Completed: resp.Completed})
		if resp.Completed {
			return nil
		}
		if resp.ProcessedCount <= processed {
			if idle++; idle >= w.maxIdle {
				return fmt.Errorf("%s run %s at %d of %d: %w", mode, key, resp.ProcessedCount, resp.TotalCount, ErrNoProgress)
			}
		} else {
			idle = 0
		}
		count, processed = resp.Count, resp.ProcessedCount
	}
}

func (w *Worker) driveInbound(ctx context.Context, ref doc.Ref, req events.RunRequest, progress func(Progress)) error {
	var last int64
	processed, idle := 0, 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		resp, err := w.runner.ProcessInboundChunk(ctx, batch.InboundRequest{
			Target:          ref,
			ProcessKey:      req.ProcessKey,
			LastProcessedID: last,
			ProcessedCount:  processed,
			Keywords:        req.Keywords,
		})
		if err != nil {
			return err
		}
		progress(Progress{Mode: runstate.ModeInbound, Processed: resp.ProcessedCount, Total: resp.TotalCount, Completed: resp.Completed})
		if resp.Completed {
			return nil
		}
		if resp.PostsProcessed == 0 {
			if idle++; idle >= w.maxIdle {
				return fmt.Errorf("inbound run %s at %d of %d: %w", req.ProcessKey, resp.ProcessedCount, resp.TotalCount, ErrNoProgress)
			}
		} else {
			idle = 0
		}
		last, processed = resp.LastProcessedID, resp.ProcessedCount
	}
}
