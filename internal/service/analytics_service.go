package service

import (
	"context"

	"emperror.dev/errors"
	"github.com/lvdashuaibi/littlepoll/internal/model"
	"github.com/sirupsen/logrus"
)

type AnalyticsService struct {
	store AnalyticsStore
	cache AnalyticsCache
}

func NewAnalyticsService(store AnalyticsStore, cache AnalyticsCache) *AnalyticsService {
	if cache == nil {
		cache = NopCache{}
	}
	return &AnalyticsService{store: store, cache: cache}
}

// PollAnalytics 先查缓存，未命中时读库并回填
func (s *AnalyticsService) PollAnalytics(ctx context.Context, pollID int64) (*model.PollAnalytics, error) {
	log := logrus.WithField("poll_id", pollID)

	cached, found, err := s.cache.GetPollAnalytics(ctx, pollID)
	if err != nil {
		log.WithError(err).Warn("读取统计缓存失败，回退到数据库")
	} else if found {
		return cached, nil
	}

	analytics, err := s.store.GetPollAnalytics(ctx, pollID)
	if err != nil {
		return nil, errors.WithMessage(err, "查询投票统计失败")
	}

	if err := s.cache.SetPollAnalytics(ctx, analytics); err != nil {
		log.WithError(err).Warn("写入统计缓存失败")
	}
	return analytics, nil
}

// OverallAnalytics 汇总统计，没有投票活动时返回空结果
func (s *AnalyticsService) OverallAnalytics(ctx context.Context) (*model.OverallAnalytics, error) {
	overall, err := s.store.GetOverallAnalytics(ctx)
	if err != nil {
		return nil, errors.WithMessage(err, "查询汇总统计失败")
	}
	if overall.OverallOptionCounts == nil {
		overall.OverallOptionCounts = map[string]map[string]int64{}
	}
	return overall, nil
}

// InvalidatePoll 删除投票活动的统计缓存
func (s *AnalyticsService) InvalidatePoll(ctx context.Context, pollID int64) error {
	return s.cache.DeletePollAnalytics(ctx, pollID)
}

// HandleVoteEvent 消费投票事件，使对应统计缓存失效
func (s *AnalyticsService) HandleVoteEvent(ctx context.Context, event *model.VoteEvent) error {
	if err := s.InvalidatePoll(ctx, event.PollID); err != nil {
		return errors.WithMessagef(err, "处理投票事件失败, poll_id=%d", event.PollID)
	}
	logrus.WithFields(logrus.Fields{"poll_id": event.PollID, "user_id": event.UserID}).Debug("已处理投票事件")
	return nil
}
