package handler

import (
	"errors"
	"math"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/speaknote/internal/apierr"
	"github.com/iliyamo/speaknote/internal/model"
	"github.com/iliyamo/speaknote/internal/repository"
	"github.com/iliyamo/speaknote/internal/service"
)

// PracticeHandler accepts practice recordings and lists past attempts.
type PracticeHandler struct {
	Practices      *repository.PracticeRepo
	Service        *service.PracticeService
	MaxUploadBytes int64
}

// Create handles multipart/form-data with an "audio" file, a "noteId" and
// optional pronunciation/intonation/fluency scores and feedback.
func (h *PracticeHandler) Create(c echo.Context) error {
	uid, err := currentUser(c)
	if err != nil {
		return err
	}

	noteID, err := strconv.ParseInt(strings.TrimSpace(c.FormValue("noteId")), 10, 64)
	if err != nil || noteID <= 0 {
		return apierr.Validation("invalid practice", map[string]string{"noteId": "must be a positive integer"})
	}
	scores, err := formScores(c)
	if err != nil {
		return err
	}

	sub := service.Submission{UserID: uid, NoteID: noteID, Scores: scores}

	fh, err := c.FormFile("audio")
	switch {
	case err == nil:
		if h.MaxUploadBytes > 0 && fh.Size > h.MaxUploadBytes {
			return apierr.TooLarge("recording exceeds the upload limit")
		}
		f, err := fh.Open()
		if err != nil {
			return apierr.Validation("unreadable audio file", nil)
		}
		defer f.Close()
		sub.Audio = f
		sub.FileName = fh.Filename
		sub.ContentType = fh.Header.Get(echo.HeaderContentType)
	case errors.Is(err, http.ErrMissingFile):
		// a practice without a recording is still counted
	default:
		var he *echo.HTTPError
		if errors.As(err, &he) {
			return err
		}
		if errors.Is(err, multipart.ErrMessageTooLarge) {
			return apierr.TooLarge("recording exceeds the upload limit")
		}
		return apierr.Validation("invalid multipart body", nil)
	}

	p, err := h.Service.Submit(c.Request().Context(), sub)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return apierr.NotFound("Note not found or unauthorized")
		case errors.Is(err, service.ErrRecordingTooLarge):
			return apierr.TooLarge("recording exceeds the upload limit")
		}
		return apierr.Internal(err)
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"id":            p.ID,
		"noteId":        p.NoteID,
		"audioUrl":      p.AudioURL,
		"pronunciation": p.Pronunciation,
		"intonation":    p.Intonation,
		"fluency":       p.Fluency,
		"feedback":      p.Feedback,
		"message":       "Practice recorded successfully",
	})
}

// formScores reads the optional score fields; each must lie in [0, 100].
func formScores(c echo.Context) (model.Scores, error) {
	var (
		sc     model.Scores
		fields = map[string]string{}
	)
	for name, dst := range map[string]**float64{
		"pronunciation": &sc.Pronunciation,
		"intonation":    &sc.Intonation,
		"fluency":       &sc.Fluency,
	} {
		raw := strings.TrimSpace(c.FormValue(name))
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 || v > 100 {
			fields[name] = "must be a number between 0 and 100"
			continue
		}
		*dst = &v
	}
	if fb := strings.TrimSpace(c.FormValue("feedback")); fb != "" {
		sc.Feedback = &fb
	}
	if len(fields) > 0 {
		return model.Scores{}, apierr.Validation("invalid practice", fields)
	}
	return sc, nil
}

// List returns the caller's practices with the practiced note's text.
func (h *PracticeHandler) List(c echo.Context) error {
	uid, err := currentUser(c)
	if err != nil {
		return err
	}
	ctx, cancel := dbCtx(c)
	defer cancel()

	out, err := h.Practices.ListByUser(ctx, uid)
	if err != nil {
		return apierr.Internal(err)
	}
	return c.JSON(http.StatusOK, out)
}
