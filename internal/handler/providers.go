package handler

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/speaknote/internal/apierr"
	"github.com/iliyamo/speaknote/internal/provider"
	"github.com/iliyamo/speaknote/internal/repository"
	"github.com/iliyamo/speaknote/internal/storage"
)

// ProviderHandler exposes translation and speech synthesis. When noteId is
// given the result is also written to the caller's note.
type ProviderHandler struct {
	Translator  provider.Translator
	Synthesizer provider.Synthesizer
	Store       storage.Store
	Notes       *repository.NoteRepo
	Timeout     time.Duration
	DefaultFrom string
	DefaultTo   string
}

type translateReq struct {
	Text   string `json:"text"`
	From   string `json:"from"`
	To     string `json:"to"`
	NoteID *int64 `json:"noteId"`
}

type ttsReq struct {
	Text   string `json:"text"`
	NoteID *int64 `json:"noteId"`
}

func (h *ProviderHandler) providerCtx(c echo.Context) (context.Context, context.CancelFunc) {
	t := h.Timeout
	if t <= 0 {
		t = 15 * time.Second
	}
	return context.WithTimeout(c.Request().Context(), t)
}

// Translate returns {translatedText}.
func (h *ProviderHandler) Translate(c echo.Context) error {
	uid, err := currentUser(c)
	if err != nil {
		return err
	}
	var req translateReq
	if err := c.Bind(&req); err != nil {
		return apierr.Validation("invalid body", nil)
	}
	if msg := validateNoteText(req.Text); msg != "" {
		return apierr.Validation("invalid text", map[string]string{"text": msg})
	}
	from, to := strings.TrimSpace(req.From), strings.TrimSpace(req.To)
	if from == "" {
		from = h.DefaultFrom
	}
	if to == "" {
		to = h.DefaultTo
	}
	if err := h.checkNote(c, req.NoteID, uid); err != nil {
		return err
	}

	ctx, cancel := h.providerCtx(c)
	defer cancel()
	translated, err := h.Translator.Translate(ctx, req.Text, from, to)
	if err != nil {
		return apierr.Provider("translation failed", err)
	}

	if req.NoteID != nil {
		if err := h.patchNote(c, *req.NoteID, uid, repository.NotePatch{TranslatedText: &translated}); err != nil {
			return err
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"translatedText": translated})
}

// Speak synthesizes text, stores the audio under tts/ and returns {audioUrl}.
func (h *ProviderHandler) Speak(c echo.Context) error {
	uid, err := currentUser(c)
	if err != nil {
		return err
	}
	var req ttsReq
	if err := c.Bind(&req); err != nil {
		return apierr.Validation("invalid body", nil)
	}
	if msg := validateNoteText(req.Text); msg != "" {
		return apierr.Validation("invalid text", map[string]string{"text": msg})
	}
	if err := h.checkNote(c, req.NoteID, uid); err != nil {
		return err
	}

	ctx, cancel := h.providerCtx(c)
	defer cancel()
	audio, err := h.Synthesizer.Synthesize(ctx, req.Text)
	if err != nil {
		return apierr.Provider("speech synthesis failed", err)
	}
	url, err := h.Store.Save(ctx, storage.NewKey(storage.PrefixTTS, "speech"+audio.Ext), bytes.NewReader(audio.Data), audio.ContentType)
	if err != nil {
		return apierr.Internal(err)
	}

	if req.NoteID != nil {
		if err := h.patchNote(c, *req.NoteID, uid, repository.NotePatch{AudioURL: &url}); err != nil {
			return err
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"audioUrl": url})
}

// checkNote fails early, before any provider call, when noteID is not the
// caller's.
func (h *ProviderHandler) checkNote(c echo.Context, noteID *int64, uid int64) error {
	if noteID == nil {
		return nil
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	if _, err := h.Notes.GetOwned(ctx, *noteID, uid); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apierr.NotFound("Note not found or unauthorized")
		}
		return apierr.Internal(err)
	}
	return nil
}

func (h *ProviderHandler) patchNote(c echo.Context, id, uid int64, p repository.NotePatch) error {
	ctx, cancel := dbCtx(c)
	defer cancel()
	if _, err := h.Notes.Patch(ctx, id, uid, p); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apierr.NotFound("Note not found or unauthorized")
		}
		return apierr.Internal(err)
	}
	return nil
}
