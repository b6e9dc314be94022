package service

import (
	"context"

	"github.com/lvdashuaibi/littlepoll/internal/model"
)

// PollStore 投票活动与题目的持久化
type PollStore interface {
	CreatePoll(ctx context.Context, poll *model.Poll, questionSets []*model.QuestionSet) error
	ListPolls(ctx context.Context, limit, offset int) ([]*model.PollSummary, error)
	GetPoll(ctx context.Context, pollID int64) (*model.Poll, error)
	UpdatePoll(ctx context.Context, poll *model.Poll) error
	GetQuestionSet(ctx context.Context, pollID, questionSetID int64) (*model.QuestionSet, error)
	UpdateQuestionSet(ctx context.Context, qs *model.QuestionSet) error
}

// AnalyticsStore 投票统计的持久化
type AnalyticsStore interface {
	GetPollAnalytics(ctx context.Context, pollID int64) (*model.PollAnalytics, error)
	GetOverallAnalytics(ctx context.Context) (*model.OverallAnalytics, error)
}

// ParticipationStore 用户作答相关的持久化
type ParticipationStore interface {
	GetUser(ctx context.Context, userID int64) (*model.User, error)
	GetPoll(ctx context.Context, pollID int64) (*model.Poll, error)
	GetQuestionSet(ctx context.Context, pollID, questionSetID int64) (*model.QuestionSet, error)
	RecordVote(ctx context.Context, vote *model.Vote) error
	AnsweredQuestionSetIDs(ctx context.Context, userID int64) ([]int64, error)
	ListUnansweredPollQuestions(ctx context.Context, userID int64, start, end model.Date) ([]*model.PollQuestionRow, error)
}

// AnalyticsCache 投票统计缓存，found 为 false 表示未命中
type AnalyticsCache interface {
	GetPollAnalytics(ctx context.Context, pollID int64) (analytics *model.PollAnalytics, found bool, err error)
	SetPollAnalytics(ctx context.Context, analytics *model.PollAnalytics) error
	DeletePollAnalytics(ctx context.Context, pollID int64) error
}

// EventPublisher 投票事件发布
type EventPublisher interface {
	PublishVoteEvent(ctx context.Context, event *model.VoteEvent) error
}

// PollInvalidator 作答提交后使统计缓存失效
type PollInvalidator interface {
	InvalidatePoll(ctx context.Context, pollID int64) error
}

// NopCache 未启用Redis时使用，始终未命中
type NopCache struct{}

func (NopCache) GetPollAnalytics(context.Context, int64) (*model.PollAnalytics, bool, error) {
	return nil, false, nil
}

func (NopCache) SetPollAnalytics(context.Context, *model.PollAnalytics) error { return nil }

func (NopCache) DeletePollAnalytics(context.Context, int64) error { return nil }

// NopPublisher 未启用Kafka时使用
type NopPublisher struct{}

func (NopPublisher) PublishVoteEvent(context.Context, *model.VoteEvent) error { return nil }
