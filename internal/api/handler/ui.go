package handler

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/edvin/mailtrack/internal/api/response"
	"github.com/edvin/mailtrack/internal/model"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTmpl = template.Must(template.New("index.html").Funcs(template.FuncMap{
	"badge":   model.StatusBadge,
	"when":    formatTime,
	"whenPtr": formatTimePtr,
	"deref":   deref,
}).ParseFS(templateFS, "templates/index.html"))

// historyLimit caps the rows rendered on the page; the live stream adds the
// rest as it arrives.
const historyLimit = 100

type UI struct {
	emails EmailReader
	events EventReader
}

func NewUI(emails EmailReader, events EventReader) *UI {
	return &UI{emails: emails, events: events}
}

type pageData struct {
	Emails []model.EmailRecord
	Events []model.EmailEvent
}

// Index renders the send form and both history tables.
func (h *UI) Index(w http.ResponseWriter, r *http.Request) {
	var data pageData

	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		emails, _, err := h.emails.List(ctx, historyLimit, "")
		data.Emails = emails
		return err
	})
	g.Go(func() error {
		events, _, err := h.events.List(ctx, historyLimit, "")
		data.Events = events
		return err
	})
	if err := g.Wait(); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("load history")
		response.WriteError(w, http.StatusInternalServerError, "failed to load history")
		return
	}

	var buf bytes.Buffer
	if err := pageTmpl.Execute(&buf, data); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("render page")
		response.WriteError(w, http.StatusInternalServerError, "failed to render page")
		return
	}
	response.WriteHTML(w, http.StatusOK, buf.Bytes())
}

const timeLayout = "Jan 2, 15:04:05"

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format(timeLayout)
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return formatTime(*t)
}

func deref(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}
