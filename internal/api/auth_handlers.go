package api

import (
	"github.com/gin-gonic/gin"
	"github.com/yourname/skilltracker/internal"
	"github.com/yourname/skilltracker/internal/service"
)

type authPayload struct {
	Token string         `json:"token"`
	User  *internal.User `json:"user"`
}

func PostRegister(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body service.RegisterRequest
		if err := c.ShouldBindJSON(&body); err != nil {
			HandleError(c, app.Logger(), wrapBindErr(err), "Invalid JSON")
			return
		}

		user, err := service.Register(c.Request.Context(), app.UserRepo(), &body)
		if err != nil {
			HandleError(c, app.Logger(), err, "Failed to register")
			return
		}

		token, err := app.Auth().IssueToken(user.ID)
		if err != nil {
			HandleError(c, app.Logger(), err, "Failed to issue token")
			return
		}

		HandleSuccess(c, app.Logger(), 201, authPayload{Token: token, User: user}, nil)
	}
}

func PostLogin(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body service.LoginRequest
		if err := c.ShouldBindJSON(&body); err != nil {
			HandleError(c, app.Logger(), wrapBindErr(err), "Invalid JSON")
			return
		}

		user, err := service.Login(c.Request.Context(), app.UserRepo(), &body)
		if err != nil {
			HandleError(c, app.Logger(), err, "Login failed")
			return
		}

		token, err := app.Auth().IssueToken(user.ID)
		if err != nil {
			HandleError(c, app.Logger(), err, "Failed to issue token")
			return
		}

		HandleSuccess(c, app.Logger(), 200, authPayload{Token: token, User: user}, nil)
	}
}

func GetMe(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := app.UserRepo().GetUserByID(c.Request.Context(), ownerID(c))
		if err != nil {
			HandleError(c, app.Logger(), err, "User not found")
			return
		}
		HandleSuccess(c, app.Logger(), 200, user, nil)
	}
}
