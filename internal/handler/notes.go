package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/speaknote/internal/apierr"
	"github.com/iliyamo/speaknote/internal/logger"
	"github.com/iliyamo/speaknote/internal/model"
	"github.com/iliyamo/speaknote/internal/repository"
	"github.com/iliyamo/speaknote/internal/service"
)

// NoteHandler serves note CRUD. Every query is scoped by the caller's id.
type NoteHandler struct {
	Notes      *repository.NoteRepo
	Activities *service.ActivityService
	Cache      service.CacheInvalidator
	Log        *logger.Logger
}

type createNoteReq struct {
	Text string `json:"text"`
}

// Create stores a draft note and counts a create_note activity for today.
func (h *NoteHandler) Create(c echo.Context) error {
	uid, err := currentUser(c)
	if err != nil {
		return err
	}
	var req createNoteReq
	if err := c.Bind(&req); err != nil {
		return apierr.Validation("invalid body", nil)
	}
	req.Text = strings.TrimSpace(req.Text)
	if msg := validateNoteText(req.Text); msg != "" {
		return apierr.Validation("invalid note", map[string]string{"text": msg})
	}

	ctx, cancel := dbCtx(c)
	defer cancel()

	res, err := h.Notes.Create(ctx, uid, req.Text)
	if err != nil {
		return apierr.Internal(err)
	}
	noteID := res.InsertedID
	if _, err := h.Activities.Record(ctx, uid, model.ActivityCreateNote, "", &noteID); err != nil {
		h.Log.Warn("record create_note activity failed", "user_id", uid, "note_id", noteID, "err", err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"id":      noteID,
		"text":    req.Text,
		"userId":  uid,
		"message": "Note created successfully",
	})
}

// List returns the caller's notes newest first with stage and practice count.
func (h *NoteHandler) List(c echo.Context) error {
	uid, err := currentUser(c)
	if err != nil {
		return err
	}
	ctx, cancel := dbCtx(c)
	defer cancel()

	notes, err := h.Notes.ListByUser(ctx, uid)
	if err != nil {
		return apierr.Internal(err)
	}
	return c.JSON(http.StatusOK, notes)
}

// Get returns one of the caller's notes.
func (h *NoteHandler) Get(c echo.Context) error {
	uid, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := dbCtx(c)
	defer cancel()

	n, err := h.Notes.GetOwned(ctx, id, uid)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apierr.NotFound("Note not found or unauthorized")
		}
		return apierr.Internal(err)
	}
	return c.JSON(http.StatusOK, n)
}

// parseNotePatch validates body against the allow-list. Enrichment fields
// can be set or replaced but never cleared, and progress must be a
// non-negative integer.
func parseNotePatch(body map[string]json.RawMessage) (repository.NotePatch, error) {
	var (
		p      repository.NotePatch
		fields = map[string]string{}
	)
	if len(body) == 0 {
		return p, apierr.Validation("No updates provided", nil)
	}
	for key, raw := range body {
		switch key {
		case "text":
			s, ok := rawString(raw)
			if !ok {
				fields[key] = "must be a string"
				continue
			}
			s = strings.TrimSpace(s)
			if msg := validateNoteText(s); msg != "" {
				fields[key] = msg
				continue
			}
			p.Text = &s
		case "translated_text", "audio_url":
			s, ok := rawString(raw)
			if !ok || strings.TrimSpace(s) == "" {
				fields[key] = "must be a non-empty string; it cannot be cleared"
				continue
			}
			if key == "translated_text" {
				p.TranslatedText = &s
			} else {
				p.AudioURL = &s
			}
		case "progress":
			var n int
			if isNull(raw) || json.Unmarshal(raw, &n) != nil || n < 0 {
				fields[key] = "must be a non-negative integer"
				continue
			}
			p.Progress = &n
		default:
			fields[key] = "not an updatable field"
		}
	}
	if len(fields) > 0 {
		return repository.NotePatch{}, apierr.Validation("Invalid updates", fields)
	}
	return p, nil
}

// Patch applies an allow-listed partial update.
func (h *NoteHandler) Patch(c echo.Context) error {
	uid, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	body, err := decodeObject(c)
	if err != nil {
		return err
	}
	patch, err := parseNotePatch(body)
	if err != nil {
		return err
	}

	ctx, cancel := dbCtx(c)
	defer cancel()

	if _, err := h.Notes.Patch(ctx, id, uid, patch); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apierr.NotFound("Note not found or unauthorized")
		}
		return apierr.Internal(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Note updated successfully", "updates": body})
}

// Delete removes the note together with its practices.
func (h *NoteHandler) Delete(c echo.Context) error {
	uid, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := dbCtx(c)
	defer cancel()

	if _, err := h.Notes.Delete(ctx, id, uid); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apierr.NotFound("Note not found or unauthorized")
		}
		return apierr.Internal(err)
	}
	// note and practice counts in the stats changed
	if h.Cache != nil {
		if err := h.Cache.InvalidateUser(ctx, uid); err != nil {
			h.Log.Warn("cache invalidation failed", "user_id", uid, "err", err)
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Note deleted successfully"})
}
