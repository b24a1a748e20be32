package handler

import (
	"net/http"

	"github.com/edvin/mailtrack/internal/api/request"
	"github.com/edvin/mailtrack/internal/api/response"
)

type Event struct {
	events EventReader
}

func NewEvent(events EventReader) *Event {
	return &Event{events: events}
}

// List returns webhook events newest first, linked or not.
func (h *Event) List(w http.ResponseWriter, r *http.Request) {
	pg := request.ParsePagination(r)
	if err := request.ValidateCursor(pg.Cursor); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	events, hasMore, err := h.events.List(r.Context(), pg.Limit, pg.Cursor)
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	var last string
	if len(events) > 0 {
		last = events[len(events)-1].ID
	}
	response.WritePaginated(w, http.StatusOK, emptyIfNil(events), request.NextCursor(last, hasMore), hasMore)
}
