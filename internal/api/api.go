// Package api implements the minimal HTTP surface: trigger a generation run,
// observe its status, validate a pipeline, and feed participant uploads in.
package api

import (
	"github.com/FabienDubin/AppsByMci-V2-sub002/internal/app"
	"github.com/FabienDubin/AppsByMci-V2-sub002/internal/types"
	"github.com/gin-gonic/gin"
)

func getApp(c *gin.Context) *app.App {
	return c.MustGet("app").(*app.App)
}

// userMessages translates structured error codes into the participant-facing
// wording, independent of the technical provider text.
var userMessages = map[types.ErrorCode]string{
	types.ErrCodeNotFound:   "We could not find this generation.",
	types.ErrCodeValidation: "The animation is misconfigured. Please contact the event team.",
	types.ErrCodeRateLimit:  "The image service is busy. Please try again in a moment.",
	types.ErrCodeProvider:   "The image service could not process this request.",
	types.ErrCodeInternal:   "Something went wrong on our side. Please try again.",
}

func userMessage(code types.ErrorCode) string {
	if msg, ok := userMessages[code]; ok {
		return msg
	}
	return userMessages[types.ErrCodeInternal]
}
