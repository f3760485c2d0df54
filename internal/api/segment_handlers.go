package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ignite/salon-crm/internal/domain"
	"github.com/ignite/salon-crm/internal/pkg/httputil"
	"github.com/ignite/salon-crm/internal/pkg/logger"
	"github.com/ignite/salon-crm/internal/service/segmentation"
)

// SegmentUpdater starts segment updates and reports their state.
type SegmentUpdater interface {
	Run(ctx context.Context, trigger domain.RunTrigger) (*domain.RunSummary, error)
	Status() segmentation.Status
}

// SegmentQuerier answers downstream segment membership questions.
type SegmentQuerier interface {
	CustomersBySegmentTag(ctx context.Context, shopID int64, tag string) (*domain.SegmentCustomers, error)
	CustomersBySegmentID(ctx context.Context, shopID, segmentID int64) (*domain.SegmentCustomers, error)
	CustomersBySegmentTags(ctx context.Context, shopID int64, tags []string) ([]domain.SegmentCustomers, error)
	CustomersByLifecycleSegments(ctx context.Context, shopID int64) ([]domain.SegmentCustomers, error)
	LatestRun(ctx context.Context) (*domain.RunSummary, error)
}

// SegmentHandlers serves the segment update trigger and the read side.
type SegmentHandlers struct {
	updater SegmentUpdater
	query   SegmentQuerier
}

// NewSegmentHandlers creates the handlers.
func NewSegmentHandlers(updater SegmentUpdater, query SegmentQuerier) *SegmentHandlers {
	return &SegmentHandlers{updater: updater, query: query}
}

// HandleUpdate runs a segment update synchronously.
//
//	POST /customers/segments/update
func (h *SegmentHandlers) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	// The run owns its transaction; a dropped client must not roll it back.
	ctx := context.WithoutCancel(r.Context())

	summary, err := h.updater.Run(ctx, domain.TriggerManual)
	switch {
	case segmentation.IsBusy(err):
		httputil.ErrorWithCode(w, http.StatusConflict, "segment_update_in_progress",
			"a segment update is already running", nil)
	case err != nil:
		logger.Error("manual segment update failed", "error", err)
		var details map[string]string
		if summary != nil {
			details = map[string]string{"run_id": summary.ID, "state": string(summary.State)}
		}
		httputil.ErrorWithCode(w, http.StatusInternalServerError, "segment_update_failed",
			"segment update failed", details)
	default:
		httputil.OK(w, summary)
	}
}

// HandleStatus reports whether a run is in progress and the last outcome.
//
//	GET /customers/segments/status
func (h *SegmentHandlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	httputil.OK(w, h.updater.Status())
}

// HandleLatestRun returns the last recorded run.
//
//	GET /customers/segments/runs/latest
func (h *SegmentHandlers) HandleLatestRun(w http.ResponseWriter, r *http.Request) {
	run, err := h.query.LatestRun(r.Context())
	if errors.Is(err, segmentation.ErrNoRuns) {
		httputil.NotFound(w, "no segment update runs recorded")
		return
	}
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, run)
}

// HandleCustomersByTag lists the shop's customers holding a segment tag.
//
//	GET /segments/{tag}/customers
func (h *SegmentHandlers) HandleCustomersByTag(w http.ResponseWriter, r *http.Request) {
	shopID, _ := ShopIDFromContext(r.Context())
	res, err := h.query.CustomersBySegmentTag(r.Context(), shopID, chi.URLParam(r, "tag"))
	h.writeSegment(w, res, err)
}

// HandleCustomersBySegmentID lists the shop's customers holding a segment id.
//
//	GET /segments/id/{segmentID}/customers
func (h *SegmentHandlers) HandleCustomersBySegmentID(w http.ResponseWriter, r *http.Request) {
	segmentID, err := strconv.ParseInt(chi.URLParam(r, "segmentID"), 10, 64)
	if err != nil || segmentID <= 0 {
		httputil.BadRequest(w, "segment id must be a positive integer")
		return
	}
	shopID, _ := ShopIDFromContext(r.Context())
	res, err := h.query.CustomersBySegmentID(r.Context(), shopID, segmentID)
	h.writeSegment(w, res, err)
}

// HandleCustomersByTags answers a comma separated tag list.
//
//	GET /segments/customers?tags=NEW,VIP
func (h *SegmentHandlers) HandleCustomersByTags(w http.ResponseWriter, r *http.Request) {
	var tags []string
	for _, raw := range r.URL.Query()["tags"] {
		for _, t := range strings.Split(raw, ",") {
			if t = strings.TrimSpace(t); t != "" {
				tags = append(tags, t)
			}
		}
	}
	if len(tags) == 0 {
		httputil.BadRequest(w, "tags query parameter is required")
		return
	}

	shopID, _ := ShopIDFromContext(r.Context())
	res, err := h.query.CustomersBySegmentTags(r.Context(), shopID, tags)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, res)
}

// HandleLifecycleCustomers answers every lifecycle segment at once.
//
//	GET /segments/lifecycle/customers
func (h *SegmentHandlers) HandleLifecycleCustomers(w http.ResponseWriter, r *http.Request) {
	shopID, _ := ShopIDFromContext(r.Context())
	res, err := h.query.CustomersByLifecycleSegments(r.Context(), shopID)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, res)
}

func (h *SegmentHandlers) writeSegment(w http.ResponseWriter, res *domain.SegmentCustomers, err error) {
	if errors.Is(err, segmentation.ErrSegmentNotFound) {
		httputil.NotFound(w, "segment not found")
		return
	}
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, res)
}
