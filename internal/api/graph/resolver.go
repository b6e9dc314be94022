package graph

import (
	"context"
	"math"
	"sort"
	"strconv"

	graphql "github.com/graph-gophers/graphql-go"
	"github.com/lvdashuaibi/littlepoll/internal/apperr"
	"github.com/lvdashuaibi/littlepoll/internal/model"
	"github.com/sirupsen/logrus"
)

// Resolver GraphQL根解析器
type Resolver struct {
	polls     PollLister
	analytics AnalyticsReader
}

// queryError 只暴露可公开的提示，分类放在 extensions.code
type queryError struct {
	message string
	code    string
}

func (e *queryError) Error() string { return e.message }

func (e *queryError) Extensions() map[string]interface{} {
	return map[string]interface{}{"code": e.code}
}

func publicError(err error, field string) error {
	kind := apperr.KindOf(err)
	if kind == apperr.KindInternal {
		logrus.WithError(err).WithField("field", field).Error("GraphQL查询失败")
	}
	return &queryError{message: apperr.MessageOf(err), code: kind.String()}
}

func parseID(id graphql.ID) (int64, error) {
	n, err := strconv.ParseInt(string(id), 10, 64)
	if err != nil || n <= 0 {
		return 0, apperr.Validation("Poll ID is required")
	}
	return n, nil
}

func formatID(id int64) graphql.ID {
	return graphql.ID(strconv.FormatInt(id, 10))
}

// clampInt32 GraphQL Int 为32位，超出范围的计数截断到边界
func clampInt32(n int64) int32 {
	switch {
	case n > math.MaxInt32:
		return math.MaxInt32
	case n < math.MinInt32:
		return math.MinInt32
	default:
		return int32(n)
	}
}

// Polls 分页查询投票活动
func (r *Resolver) Polls(ctx context.Context, args struct {
	Page     *int32
	PageSize *int32
}) (*pollPageResolver, error) {
	var page, pageSize int
	if args.Page != nil {
		page = int(*args.Page)
	}
	if args.PageSize != nil {
		pageSize = int(*args.PageSize)
	}

	result, err := r.polls.ListPolls(ctx, page, pageSize)
	if err != nil {
		return nil, publicError(err, "polls")
	}
	return &pollPageResolver{page: result}, nil
}

// PollAnalytics 单个投票活动的统计
func (r *Resolver) PollAnalytics(ctx context.Context, args struct{ PollID graphql.ID }) (*pollAnalyticsResolver, error) {
	pollID, err := parseID(args.PollID)
	if err != nil {
		return nil, publicError(err, "pollAnalytics")
	}

	analytics, err := r.analytics.PollAnalytics(ctx, pollID)
	if err != nil {
		return nil, publicError(err, "pollAnalytics")
	}
	return &pollAnalyticsResolver{pollID: analytics.PollID, total: analytics.TotalVotes, counts: analytics.OptionCounts}, nil
}

// OverallAnalytics 汇总统计
func (r *Resolver) OverallAnalytics(ctx context.Context) (*overallAnalyticsResolver, error) {
	overall, err := r.analytics.OverallAnalytics(ctx)
	if err != nil {
		return nil, publicError(err, "overallAnalytics")
	}
	return &overallAnalyticsResolver{overall: overall}, nil
}

type pollPageResolver struct {
	page *model.PollPage
}

func (r *pollPageResolver) Polls() []*pollSummaryResolver {
	result := make([]*pollSummaryResolver, 0, len(r.page.Polls))
	for _, p := range r.page.Polls {
		result = append(result, &pollSummaryResolver{p: p})
	}
	return result
}

func (r *pollPageResolver) Page() int32 { return clampInt32(int64(r.page.Page)) }

func (r *pollPageResolver) PageSize() int32 { return clampInt32(int64(r.page.PageSize)) }

type pollSummaryResolver struct {
	p *model.PollSummary
}

func (r *pollSummaryResolver) PollID() graphql.ID          { return formatID(r.p.PollID) }
func (r *pollSummaryResolver) Title() string               { return r.p.PollTitle }
func (r *pollSummaryResolver) Category() string            { return r.p.PollCategory }
func (r *pollSummaryResolver) StartDate() string           { return r.p.StartDate.String() }
func (r *pollSummaryResolver) EndDate() string             { return r.p.EndDate.String() }
func (r *pollSummaryResolver) MinReward() int32            { return clampInt32(int64(r.p.MinReward)) }
func (r *pollSummaryResolver) MaxReward() int32            { return clampInt32(int64(r.p.MaxReward)) }
func (r *pollSummaryResolver) TotalVotes() int32           { return clampInt32(r.p.TotalVotes) }
func (r *pollSummaryResolver) NumberOfQuestionSets() int32 { return clampInt32(r.p.NumberOfQuestionSets) }

func (r *pollSummaryResolver) SampleQuestion() *sampleQuestionResolver {
	if r.p.SampleQuestion == nil {
		return nil
	}
	return &sampleQuestionResolver{q: r.p.SampleQuestion}
}

type sampleQuestionResolver struct {
	q *model.SampleQuestion
}

func (r *sampleQuestionResolver) QuestionSetID() graphql.ID { return formatID(r.q.QuestionSetID) }
func (r *sampleQuestionResolver) QuestionType() string      { return r.q.QuestionType }
func (r *sampleQuestionResolver) QuestionText() string      { return r.q.QuestionText }
func (r *sampleQuestionResolver) Options() []string         { return r.q.Options }

// optionCount 按选项名排序后输出
type optionCount struct {
	Option string
	Count  int32
}

func sortedCounts(counts map[string]int64) []*optionCount {
	result := make([]*optionCount, 0, len(counts))
	for option, n := range counts {
		result = append(result, &optionCount{Option: option, Count: clampInt32(n)})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Option < result[j].Option })
	return result
}

type pollAnalyticsResolver struct {
	pollID int64
	total  int64
	counts map[string]int64
}

func (r *pollAnalyticsResolver) PollID() graphql.ID { return formatID(r.pollID) }

func (r *pollAnalyticsResolver) TotalVotes() int32 { return clampInt32(r.total) }

func (r *pollAnalyticsResolver) OptionCounts() []*optionCount { return sortedCounts(r.counts) }

type overallAnalyticsResolver struct {
	overall *model.OverallAnalytics
}

func (r *overallAnalyticsResolver) OverallTotalVotes() int32 {
	return clampInt32(r.overall.OverallTotalVotes)
}

// Polls 按投票活动ID升序
func (r *overallAnalyticsResolver) Polls() []*pollAnalyticsResolver {
	result := make([]*pollAnalyticsResolver, 0, len(r.overall.OverallOptionCounts))
	for key, counts := range r.overall.OverallOptionCounts {
		pollID, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			continue
		}
		var total int64
		for _, n := range counts {
			total += n
		}
		result = append(result, &pollAnalyticsResolver{pollID: pollID, total: total, counts: counts})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].pollID < result[j].pollID })
	return result
}
