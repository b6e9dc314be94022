package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Options 路由的可选部分
type Options struct {
	// GraphQLPath 与 GraphQLHandler 同时设置时挂载GraphQL端点
	GraphQLPath    string
	GraphQLHandler http.Handler
}

// NewRouter 注册全部路由
func NewRouter(h *Handler, opts Options) *gin.Engine {
	r := gin.New()
	r.Use(Recovery(), RequestLogger(), CORS())

	r.GET("/health", h.Health)

	polls := r.Group("/api/polls")
	{
		polls.POST("/create", h.CreatePoll)
		polls.GET("/all", h.ListPolls)
		polls.PUT("/update/:pollId", h.UpdatePoll)
		polls.PUT("/update/:pollId/question-sets/:questionSetId", h.UpdateQuestionSet)
		polls.GET("/analytics", h.OverallAnalytics)
		polls.GET("/analytics/:pollId", h.PollAnalytics)
	}

	users := r.Group("/api/users")
	{
		users.GET("/:userId/polls", h.UserPolls)
		users.POST("/:userId/submit-poll", h.SubmitPoll)
	}

	if opts.GraphQLPath != "" && opts.GraphQLHandler != nil {
		r.POST(opts.GraphQLPath, gin.WrapH(opts.GraphQLHandler))
	}
	return r
}
