package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/speaknote/internal/apierr"
	"github.com/iliyamo/speaknote/internal/model"
	"github.com/iliyamo/speaknote/internal/repository"
	"github.com/iliyamo/speaknote/internal/service"
)

// ActivityHandler serves the heatmap and the dashboard stats.
type ActivityHandler struct {
	Activities *service.ActivityService
	Notes      *repository.NoteRepo
}

func windowDays(c echo.Context) (int, error) {
	raw := c.QueryParam("days")
	if raw == "" {
		return service.DefaultHeatmapDays, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > service.MaxHeatmapDays {
		return 0, apierr.Validation("invalid window", map[string]string{"days": "must be an integer between 1 and 366"})
	}
	return n, nil
}

// Overview returns {activities: [{date, count}], stats: {notes, days, tags}}.
func (h *ActivityHandler) Overview(c echo.Context) error {
	uid, err := currentUser(c)
	if err != nil {
		return err
	}
	days, err := windowDays(c)
	if err != nil {
		return err
	}
	ctx, cancel := dbCtx(c)
	defer cancel()

	heat, err := h.Activities.Heatmap(ctx, uid, days)
	if err != nil {
		return apierr.Internal(err)
	}
	stats, err := h.Activities.Summary(ctx, uid)
	if err != nil {
		return apierr.Internal(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"activities": heat, "stats": stats})
}

// Heatmap returns the sparse per-day totals of the trailing window.
func (h *ActivityHandler) Heatmap(c echo.Context) error {
	uid, err := currentUser(c)
	if err != nil {
		return err
	}
	days, err := windowDays(c)
	if err != nil {
		return err
	}
	ctx, cancel := dbCtx(c)
	defer cancel()

	heat, err := h.Activities.Heatmap(ctx, uid, days)
	if err != nil {
		return apierr.Internal(err)
	}
	return c.JSON(http.StatusOK, heat)
}

type recordReq struct {
	Type   model.ActivityType `json:"type"`
	NoteID *int64             `json:"noteId"`
}

// Record counts one activity for today; the type defaults to review.
func (h *ActivityHandler) Record(c echo.Context) error {
	uid, err := currentUser(c)
	if err != nil {
		return err
	}
	var req recordReq
	if c.Request().ContentLength != 0 {
		if err := c.Bind(&req); err != nil {
			return apierr.Validation("invalid body", nil)
		}
	}
	if req.Type == "" {
		req.Type = model.ActivityReview
	}
	if !req.Type.Valid() {
		return apierr.Validation("invalid activity", map[string]string{"type": "must be one of create_note, practice_speaking, review"})
	}

	ctx, cancel := dbCtx(c)
	defer cancel()

	if req.NoteID != nil {
		if _, err := h.Notes.GetOwned(ctx, *req.NoteID, uid); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return apierr.NotFound("Note not found or unauthorized")
			}
			return apierr.Internal(err)
		}
	}
	rec, err := h.Activities.Record(ctx, uid, req.Type, "", req.NoteID)
	if err != nil {
		if errors.Is(err, repository.ErrInvalidReference) {
			return apierr.Validation("invalid activity reference", nil)
		}
		return apierr.Internal(err)
	}
	return c.JSON(http.StatusCreated, rec)
}
