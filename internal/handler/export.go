package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/speaknote/internal/apierr"
	"github.com/iliyamo/speaknote/internal/export"
	"github.com/iliyamo/speaknote/internal/repository"
)

// ExportHandler streams the caller's notes and practices as xlsx.
type ExportHandler struct {
	Notes     *repository.NoteRepo
	Practices *repository.PracticeRepo
	Location  *time.Location
}

// Export responds with the workbook as an attachment.
func (h *ExportHandler) Export(c echo.Context) error {
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
	practices, err := h.Practices.ListByUser(ctx, uid)
	if err != nil {
		return apierr.Internal(err)
	}
	wb, err := export.Workbook(notes, practices, h.Location)
	if err != nil {
		return apierr.Internal(err)
	}
	defer wb.Close()

	name := fmt.Sprintf("speaknote-%s.xlsx", time.Now().In(h.loc()).Format("20060102"))
	res := c.Response()
	res.Header().Set(echo.HeaderContentType, export.ContentType)
	res.Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", name))
	res.WriteHeader(http.StatusOK)
	return wb.Write(res)
}

func (h *ExportHandler) loc() *time.Location {
	if h.Location == nil {
		return time.UTC
	}
	return h.Location
}
