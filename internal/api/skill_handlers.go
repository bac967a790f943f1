package api

import (
	"github.com/gin-gonic/gin"
	"github.com/yourname/skilltracker/internal/service"
	"github.com/yourname/skilltracker/internal/storage"
)

func GetSkills(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		filter := storage.SkillFilter{
			Category: c.Query("category"),
			Status:   c.Query("status"),
			Tag:      c.Query("tag"),
			Search:   c.Query("search"),
		}

		skills, err := service.FindSkills(c.Request.Context(), app.SkillRepo(), ownerID(c), filter)
		if err != nil {
			HandleError(c, app.Logger(), err, "Failed to fetch skills")
			return
		}
		HandleSuccess(c, app.Logger(), 200, skills, nil)
	}
}

func PostSkill(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body service.SkillRequest
		if err := c.ShouldBindJSON(&body); err != nil {
			HandleError(c, app.Logger(), wrapBindErr(err), "Invalid JSON")
			return
		}

		skill, err := service.CreateSkill(c.Request.Context(), app.SkillRepo(), ownerID(c), &body)
		if err != nil {
			HandleError(c, app.Logger(), err, "Failed to create skill")
			return
		}
		HandleSuccess(c, app.Logger(), 201, skill, nil)
	}
}

func PatchSkill(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body service.SkillPatchRequest
		if err := c.ShouldBindJSON(&body); err != nil {
			HandleError(c, app.Logger(), wrapBindErr(err), "Invalid JSON")
			return
		}

		skill, err := service.UpdateSkill(c.Request.Context(), app.SkillRepo(), ownerID(c), c.Param("id"), &body)
		if err != nil {
			HandleError(c, app.Logger(), err, "Failed to update skill")
			return
		}
		HandleSuccess(c, app.Logger(), 200, skill, nil)
	}
}

func DeleteSkill(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := service.DeleteSkill(c.Request.Context(), app.SkillRepo(), ownerID(c), c.Param("id")); err != nil {
			HandleError(c, app.Logger(), err, "Failed to delete skill")
			return
		}
		HandleSuccess(c, app.Logger(), 200, nil, map[string]any{"deleted": true})
	}
}

// GetSkillGroups serves the status/category/confidence groupings; the
// dimension comes from the route parameter.
func GetSkillGroups(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		dimension := c.Param("dimension")
		if dimension == "tags" {
			groups, err := service.GroupSkillsByTag(c.Request.Context(), app.SkillRepo(), ownerID(c))
			if err != nil {
				HandleError(c, app.Logger(), err, "Failed to group skills by tag")
				return
			}
			HandleSuccess(c, app.Logger(), 200, groups, nil)
			return
		}

		groups, err := service.GroupSkills(c.Request.Context(), app.SkillRepo(), ownerID(c), dimension)
		if err != nil {
			HandleError(c, app.Logger(), err, "Failed to group skills")
			return
		}
		HandleSuccess(c, app.Logger(), 200, groups, nil)
	}
}
