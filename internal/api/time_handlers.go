package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yourname/skilltracker/internal/service"
	"github.com/yourname/skilltracker/internal/storage"
)

func PostTime(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body service.TimeEntryRequest
		if err := c.ShouldBindJSON(&body); err != nil {
			HandleError(c, app.Logger(), wrapBindErr(err), "Invalid JSON")
			return
		}

		entry, err := service.AppendTime(c.Request.Context(), app.TimeRepo(), ownerID(c), c.Param("skillId"), &body)
		if err != nil {
			HandleError(c, app.Logger(), err, "Failed to log time")
			return
		}
		HandleSuccess(c, app.Logger(), 201, entry, nil)
	}
}

// parseTimeParam accepts RFC3339 timestamps and plain dates; a date-only
// value means midnight UTC of that day.
func parseTimeParam(v string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	return time.Parse(time.DateOnly, v)
}

func GetTime(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		filter := storage.TimeEntryFilter{SkillID: c.Query("skillId")}
		if v := c.Query("from"); v != "" {
			t, err := parseTimeParam(v)
			if err != nil {
				HandleError(c, app.Logger(), wrapBindErr(err), "Invalid 'from' date")
				return
			}
			filter.From = &t
		}
		if v := c.Query("to"); v != "" {
			t, err := parseTimeParam(v)
			if err != nil {
				HandleError(c, app.Logger(), wrapBindErr(err), "Invalid 'to' date")
				return
			}
			filter.To = &t
		}

		entries, err := service.ListTime(c.Request.Context(), app.TimeRepo(), ownerID(c), filter)
		if err != nil {
			HandleError(c, app.Logger(), err, "Failed to fetch time entries")
			return
		}
		HandleSuccess(c, app.Logger(), 200, entries, nil)
	}
}

func GetTimeSummary(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		summaries, err := service.SummarizeSkills(c.Request.Context(), app.SkillRepo(), ownerID(c))
		if err != nil {
			HandleError(c, app.Logger(), err, "Failed to summarize time")
			return
		}
		HandleSuccess(c, app.Logger(), 200, summaries, nil)
	}
}
