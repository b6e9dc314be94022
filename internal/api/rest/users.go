package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lvdashuaibi/littlepoll/internal/model"
)

// UserPolls GET /api/users/:userId/polls?startDate=&endDate=
func (h *Handler) UserPolls(c *gin.Context) {
	userID, ok := pathID(c, "userId")
	if !ok {
		badRequest(c, "User ID is required")
		return
	}

	polls, err := h.participation.UserPolls(c.Request.Context(), userID, c.Query("startDate"), c.Query("endDate"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, model.UserPollsResponse{UserPolls: polls})
}

// SubmitPoll POST /api/users/:userId/submit-poll
func (h *Handler) SubmitPoll(c *gin.Context) {
	userID, ok := pathID(c, "userId")
	if !ok {
		badRequest(c, "User ID is required")
		return
	}

	var req model.SubmitPollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid input data")
		return
	}

	resp, err := h.participation.SubmitPoll(c.Request.Context(), userID, &req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
