package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mhalvorsen/gigbook/backend/internal/models"
	"gorm.io/gorm"
)

// ICSService renders a user's gig schedule as an iCalendar feed. The feed
// URL embeds the per-user opaque token instead of a session, so calendar
// apps can poll it.
type ICSService struct {
	db *gorm.DB
}

func NewICSService(db *gorm.DB) *ICSService {
	return &ICSService{db: db}
}

// FeedByToken resolves the calendar token and renders every upcoming gig
// the user owns or plays, except cancelled ones.
func (s *ICSService) FeedByToken(token string) (string, error) {
	if token == "" {
		return "", ErrNotFound
	}

	var user models.User
	if err := s.db.Where("calendar_ics_token = ?", token).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrNotFound
		}
		return "", err
	}

	var gigs []models.Gig
	err := s.db.Model(&models.Gig{}).
		Distinct("gigs.*").
		Joins("JOIN projects ON projects.id = gigs.project_id AND projects.deleted_at IS NULL").
		Joins("LEFT JOIN gig_roles ON gig_roles.gig_id = gigs.id AND gig_roles.deleted_at IS NULL").
		Where("projects.owner_id = ? OR (gig_roles.musician_id = ? AND gig_roles.invitation_status IN ?)",
			user.ID, user.ID, []models.InvitationStatus{models.InvitationAccepted, models.InvitationTentative}).
		Where("gigs.status <> ?", models.GigCancelled).
		Where("gigs.date >= ?", time.Now().AddDate(0, -1, 0)).
		Order("gigs.date ASC").
		Find(&gigs).Error
	if err != nil {
		return "", err
	}

	return s.render(gigs), nil
}

func (s *ICSService) render(gigs []models.Gig) string {
	var sb strings.Builder
	writeLine := func(line string) {
		sb.WriteString(line)
		sb.WriteString("\r\n")
	}

	writeLine("BEGIN:VCALENDAR")
	writeLine("VERSION:2.0")
	writeLine("PRODID:-//GigBook//Gig Calendar//EN")
	writeLine("CALSCALE:GREGORIAN")

	now := time.Now().UTC().Format("20060102T150405Z")
	for i := range gigs {
		gig := &gigs[i]
		writeLine("BEGIN:VEVENT")
		writeLine(fmt.Sprintf("UID:gig-%d@gigbook", gig.ID))
		writeLine("DTSTAMP:" + now)

		start, end, allDay := eventTimes(gig)
		if allDay {
			writeLine("DTSTART;VALUE=DATE:" + start)
			writeLine("DTEND;VALUE=DATE:" + end)
		} else {
			writeLine("DTSTART:" + start)
			writeLine("DTEND:" + end)
		}

		writeLine("SUMMARY:" + escapeICS(gig.Title))
		if gig.LocationName != "" {
			location := gig.LocationName
			if gig.LocationAddress != "" {
				location += ", " + gig.LocationAddress
			}
			writeLine("LOCATION:" + escapeICS(location))
		}
		if gig.Notes != "" {
			writeLine("DESCRIPTION:" + escapeICS(gig.Notes))
		}
		if gig.Status == models.GigDraft {
			writeLine("STATUS:TENTATIVE")
		} else {
			writeLine("STATUS:CONFIRMED")
		}
		writeLine("END:VEVENT")
	}

	writeLine("END:VCALENDAR")
	return sb.String()
}

// eventTimes falls back to an all-day event when the gig has no start time.
func eventTimes(gig *models.Gig) (start, end string, allDay bool) {
	date := gig.Date
	startClock, err := time.Parse("15:04:05", gig.StartTime)
	if err != nil {
		startDate := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
		return startDate.Format("20060102"), startDate.AddDate(0, 0, 1).Format("20060102"), true
	}

	startAt := time.Date(date.Year(), date.Month(), date.Day(),
		startClock.Hour(), startClock.Minute(), 0, 0, time.UTC)
	endAt := startAt.Add(3 * time.Hour)
	if endClock, err := time.Parse("15:04:05", gig.EndTime); err == nil {
		endAt = time.Date(date.Year(), date.Month(), date.Day(),
			endClock.Hour(), endClock.Minute(), 0, 0, time.UTC)
		if !endAt.After(startAt) {
			endAt = endAt.AddDate(0, 0, 1)
		}
	}
	return startAt.Format("20060102T150405Z"), endAt.Format("20060102T150405Z"), false
}

func escapeICS(s string) string {
	r := strings.NewReplacer("\\", "\\\\", ";", "\\;", ",", "\\,", "\n", "\\n", "\r", "")
	return r.Replace(s)
}
