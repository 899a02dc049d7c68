package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mhalvorsen/gigbook/backend/internal/services"
	"github.com/mhalvorsen/gigbook/backend/pkg/response"
	"gorm.io/gorm"
)

type CalendarHandler struct {
	icsService      *services.ICSService
	calendarService *services.BusinessCalendarService
}

func NewCalendarHandler(db *gorm.DB) *CalendarHandler {
	return &CalendarHandler{
		icsService:      services.NewICSService(db),
		calendarService: services.NewBusinessCalendarService(),
	}
}

// Feed serves the user's gigs as an ICS subscription
// GET /calendar/:token.ics
func (h *CalendarHandler) Feed(c *gin.Context) {
	token := strings.TrimSuffix(c.Param("token"), ".ics")

	feed, err := h.icsService.FeedByToken(token)
	if err != nil {
		// Calendar clients get a plain status, not a JSON envelope.
		c.String(http.StatusNotFound, "calendar not found")
		return
	}

	c.Header("Content-Type", "text/calendar; charset=utf-8")
	c.Header("Content-Disposition", `attachment; filename="gigbook.ics"`)
	c.String(http.StatusOK, feed)
}

// Countries lists the supported business day calendars
// GET /api/calendar/countries
func (h *CalendarHandler) Countries(c *gin.Context) {
	response.Success(c, h.calendarService.SupportedCountries())
}
