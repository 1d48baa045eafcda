package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/garrettladley/whoopsync/internal/client/whoop"
	"github.com/garrettladley/whoopsync/internal/oauth"
	"github.com/garrettladley/whoopsync/internal/repository"
	"github.com/garrettladley/whoopsync/internal/xcontext"
	"github.com/garrettladley/whoopsync/internal/xerrors"
	"github.com/garrettladley/whoopsync/internal/xhttp"
	"github.com/garrettladley/whoopsync/internal/xsync"
)

const paramMode = "mode"

// RunTracker lets shutdown wait for runs started by a request.
type RunTracker interface {
	Track() func()
}

type Sync struct {
	syncer  xsync.Syncer
	runs    repository.SyncRunRepository
	tracker RunTracker
}

func NewSync(syncer xsync.Syncer, runs repository.SyncRunRepository, tracker RunTracker) *Sync {
	return &Sync{syncer: syncer, runs: runs, tracker: tracker}
}

// HandleCron handles POST /api/sync/cron, the scheduled daily sync.
func (h *Sync) HandleCron(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, xsync.ModeDaily, xcontext.TriggerCron)
}

// HandleSync handles POST /api/sync?mode=daily|historical.
func (h *Sync) HandleSync(w http.ResponseWriter, r *http.Request) {
	mode, err := xsync.ParseMode(r.URL.Query().Get(paramMode))
	if err != nil {
		xerrors.WriteError(r.Context(), w, xerrors.BadRequest(xerrors.WithMessage(err.Error())))
		return
	}
	h.run(w, r, mode, xcontext.TriggerAPI)
}

// HandleLast handles GET /api/sync/last.
func (h *Sync) HandleLast(w http.ResponseWriter, r *http.Request) {
	run, err := h.runs.Latest(r.Context())
	if err != nil {
		xerrors.WriteError(r.Context(), w, xerrors.Internal(xerrors.WithMessage("failed to load last sync run"), xerrors.WithCause(err)))
		return
	}
	if run == nil {
		xerrors.WriteError(r.Context(), w, xerrors.NotFound(xerrors.WithMessage("no sync run recorded")))
		return
	}
	xhttp.WriteOK(w, run)
}

// run is detached from the request: a sync either completes or the process
// stops, a disconnecting client does not abort it.
func (h *Sync) run(w http.ResponseWriter, r *http.Request, mode xsync.Mode, trigger xcontext.Trigger) {
	done := h.tracker.Track()
	defer done()

	ctx := xcontext.SetTrigger(context.WithoutCancel(r.Context()), trigger)
	summary, err := h.syncer.Run(ctx, mode)
	if err != nil {
		xerrors.WriteError(r.Context(), w, fatalResponse(err, summary))
		return
	}
	xhttp.WriteOK(w, summary)
}

func fatalResponse(err error, summary *xsync.Summary) *xerrors.Error {
	opts := []xerrors.Option{xerrors.WithCause(err), xerrors.WithDetails(summary)}

	var rateErr *whoop.RateLimitError
	switch {
	case errors.Is(err, oauth.ErrNoToken), errors.Is(err, oauth.ErrTokenExpired):
		return xerrors.ServiceUnavailable(append(opts, xerrors.WithMessage("whoop authorization required"))...)
	case errors.Is(err, whoop.ErrDailyBudgetExhausted):
		return xerrors.TooManyRequests(append(opts, xerrors.WithMessage("daily whoop request budget exhausted"))...)
	case errors.As(err, &rateErr):
		return xerrors.TooManyRequests(append(opts,
			xerrors.WithMessage("whoop rate limit exceeded"),
			xerrors.WithRetryAfter(rateErr.RetryAfter))...)
	default:
		return xerrors.BadGateway(append(opts, xerrors.WithMessage(err.Error()))...)
	}
}

// HandleHealth handles GET /health.
func HandleHealth(w http.ResponseWriter, _ *http.Request) {
	xhttp.WriteOK(w, map[string]string{"status": "ok"})
}
