package api

import (
	"github.com/gin-gonic/gin"
	"github.com/yourname/skilltracker/internal/auth"
)

// Router wires middleware and routes onto a fresh gin engine.
func Router(app App) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(CORSMiddleware())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"ok": true, "app": "skill-tracker"})
	})

	r.POST("/api/auth/register", PostRegister(app))
	r.POST("/api/auth/login", PostLogin(app))

	protected := r.Group("/api")
	protected.Use(auth.Middleware(app.Auth()))

	protected.GET("/auth/me", GetMe(app))

	protected.GET("/skills", GetSkills(app))
	protected.POST("/skills", PostSkill(app))
	protected.PATCH("/skills/:id", PatchSkill(app))
	protected.DELETE("/skills/:id", DeleteSkill(app))
	protected.GET("/skills/group/:dimension", GetSkillGroups(app))

	protected.POST("/time/:skillId", PostTime(app))
	protected.GET("/time", GetTime(app))
	protected.GET("/time/summary", GetTimeSummary(app))

	return r
}
