// Package rest 提供投票活动的 HTTP JSON 接口
package rest

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/lvdashuaibi/littlepoll/internal/apperr"
	"github.com/lvdashuaibi/littlepoll/internal/model"
	"github.com/sirupsen/logrus"
)

type PollManager interface {
	CreatePoll(ctx context.Context, req *model.CreatePollRequest) (*model.CreatePollResponse, error)
	ListPolls(ctx context.Context, page, pageSize int) (*model.PollPage, error)
	UpdatePoll(ctx context.Context, pollID int64, req *model.UpdatePollRequest) (*model.UpdatePollResponse, error)
	UpdateQuestionSet(ctx context.Context, pollID, questionSetID int64, input *model.QuestionSetInput) error
}

type AnalyticsReader interface {
	PollAnalytics(ctx context.Context, pollID int64) (*model.PollAnalytics, error)
	OverallAnalytics(ctx context.Context) (*model.OverallAnalytics, error)
}

type Participation interface {
	UserPolls(ctx context.Context, userID int64, startDate, endDate string) ([]*model.UserPoll, error)
	SubmitPoll(ctx context.Context, userID int64, req *model.SubmitPollRequest) (*model.SubmitPollResponse, error)
}

// Pinger 健康检查依赖
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	polls         PollManager
	analytics     AnalyticsReader
	participation Participation
	pinger        Pinger
}

func NewHandler(polls PollManager, analytics AnalyticsReader, participation Participation, pinger Pinger) *Handler {
	return &Handler{
		polls:         polls,
		analytics:     analytics,
		participation: participation,
		pinger:        pinger,
	}
}

// statusOf 错误分类到HTTP状态码
func statusOf(err error) int {
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		logrus.WithError(err).WithField("path", c.Request.URL.Path).Error("内部错误")
	}
	_ = c.Error(err)
	c.JSON(status, model.ErrorResponse{Error: apperr.MessageOf(err)})
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: message})
}

// pathID 解析正整数路径参数
func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// queryInt 无法解析时返回0，由服务层回退为默认值
func queryInt(c *gin.Context, name string) int {
	n, err := strconv.Atoi(c.Query(name))
	if err != nil {
		return 0
	}
	return n
}

func (h *Handler) Health(c *gin.Context) {
	if h.pinger != nil {
		if err := h.pinger.Ping(c.Request.Context()); err != nil {
			logrus.WithError(err).Warn("健康检查失败")
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
