package api

import (
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
)

// dailyReportResponse aggregates one day of attendance.
type dailyReportResponse struct {
	Date                   string              `json:"date"`
	TotalVisits            int                 `json:"total_visits"`
	UniqueVisitors         int                 `json:"unique_visitors"`
	AverageDurationMinutes float64             `json:"average_duration_minutes"`
	Checkins               []dailyReportAction `json:"checkins"`
}

type dailyReportAction struct {
	MemberID     int64      `json:"member_id"`
	Name         string     `json:"name"`
	StudentID    string     `json:"student_id"`
	CheckIn      time.Time  `json:"check_in"`
	CheckOut     *time.Time `json:"check_out"`
	AutoCheckout bool       `json:"auto_checkout"`
}

// DailyReport returns attendance statistics for one calendar day
// (defaulting to today).
func (h *Handler) DailyReport(c *gin.Context) {
	dateStr := c.DefaultQuery("date", time.Now().Format("2006-01-02"))
	day, err := time.ParseInLocation("2006-01-02", dateStr, time.Local)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date, expected YYYY-MM-DD"})
		return
	}
	start := day
	end := day.AddDate(0, 0, 1).Add(-time.Nanosecond)

	sessions, err := h.store.HistoryInRange(c.Request.Context(), start, end)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := dailyReportResponse{
		Date:     dateStr,
		Checkins: make([]dailyReportAction, len(sessions)),
	}
	visitors := make(map[int64]struct{})
	var totalMinutes float64
	completed := 0

	for i, sess := range sessions {
		visitors[sess.MemberID] = struct{}{}
		if sess.CheckOut != nil {
			totalMinutes += sess.CheckOut.Sub(sess.CheckIn).Minutes()
			completed++
		}
		resp.Checkins[i] = dailyReportAction{
			MemberID:     sess.MemberID,
			Name:         sess.Member.Name,
			StudentID:    sess.Member.StudentID,
			CheckIn:      sess.CheckIn,
			CheckOut:     sess.CheckOut,
			AutoCheckout: sess.AutoCheckout,
		}
	}

	resp.TotalVisits = len(sessions)
	resp.UniqueVisitors = len(visitors)
	if completed > 0 {
		resp.AverageDurationMinutes = float64(int(totalMinutes/float64(completed)*100)) / 100
	}
	c.JSON(http.StatusOK, resp)
}

// weeklyReportEntry is one day's aggregate in the weekly report.
type weeklyReportEntry struct {
	Date           string `json:"date"`
	TotalVisits    int    `json:"total_visits"`
	UniqueVisitors int    `json:"unique_visitors"`
}

// WeeklyReport returns per-day attendance counts for the last 7 days.
func (h *Handler) WeeklyReport(c *gin.Context) {
	end := time.Now()
	start := end.AddDate(0, 0, -7)

	sessions, err := h.store.HistoryInRange(c.Request.Context(), start, end)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	type dayStats struct {
		visits  int
		members map[int64]struct{}
	}
	byDay := make(map[string]*dayStats)
	for _, sess := range sessions {
		date := sess.CheckIn.Format("2006-01-02")
		stats, ok := byDay[date]
		if !ok {
			stats = &dayStats{members: make(map[int64]struct{})}
			byDay[date] = stats
		}
		stats.visits++
		stats.members[sess.MemberID] = struct{}{}
	}

	result := make([]weeklyReportEntry, 0, len(byDay))
	for date, stats := range byDay {
		result = append(result, weeklyReportEntry{
			Date:           date,
			TotalVisits:    stats.visits,
			UniqueVisitors: len(stats.members),
		})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Date < result[j].Date })
	c.JSON(http.StatusOK, result)
}
