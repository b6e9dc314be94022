package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lvdashuaibi/littlepoll/internal/model"
)

// CreatePoll POST /api/polls/create
func (h *Handler) CreatePoll(c *gin.Context) {
	var req model.CreatePollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid input data")
		return
	}

	resp, err := h.polls.CreatePoll(c.Request.Context(), &req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// ListPolls GET /api/polls/all?page=&pageSize=
func (h *Handler) ListPolls(c *gin.Context) {
	page, err := h.polls.ListPolls(c.Request.Context(), queryInt(c, "page"), queryInt(c, "pageSize"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// UpdatePoll PUT /api/polls/update/:pollId
//
// 有题目更新失败时返回 207，响应中逐项给出结果。
func (h *Handler) UpdatePoll(c *gin.Context) {
	pollID, ok := pathID(c, "pollId")
	if !ok {
		badRequest(c, "Poll ID is required")
		return
	}

	var req model.UpdatePollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid input data")
		return
	}

	resp, err := h.polls.UpdatePoll(c.Request.Context(), pollID, &req)
	if err != nil {
		writeError(c, err)
		return
	}

	status := http.StatusOK
	if !resp.AllUpdated() {
		status = http.StatusMultiStatus
	}
	c.JSON(status, resp)
}

// UpdateQuestionSet PUT /api/polls/update/:pollId/question-sets/:questionSetId
func (h *Handler) UpdateQuestionSet(c *gin.Context) {
	pollID, ok := pathID(c, "pollId")
	if !ok {
		badRequest(c, "Poll ID is required")
		return
	}
	questionSetID, ok := pathID(c, "questionSetId")
	if !ok {
		badRequest(c, "Question set ID is required")
		return
	}

	var input model.QuestionSetInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, "Invalid input data")
		return
	}

	if err := h.polls.UpdateQuestionSet(c.Request.Context(), pollID, questionSetID, &input); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Question set updated successfully"})
}

// PollAnalytics GET /api/polls/analytics/:pollId
func (h *Handler) PollAnalytics(c *gin.Context) {
	pollID, ok := pathID(c, "pollId")
	if !ok {
		badRequest(c, "Poll ID is required")
		return
	}

	analytics, err := h.analytics.PollAnalytics(c.Request.Context(), pollID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, analytics)
}

// OverallAnalytics GET /api/polls/analytics
func (h *Handler) OverallAnalytics(c *gin.Context) {
	overall, err := h.analytics.OverallAnalytics(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, overall)
}
