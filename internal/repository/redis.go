package repository

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"emperror.dev/errors"
	"github.com/go-redis/redis/v8"
	"github.com/lvdashuaibi/littlepoll/config"
	"github.com/lvdashuaibi/littlepoll/internal/model"
)

const (
	// Redis键前缀
	PollAnalyticsKey = "poll:analytics:"
)

type RedisRepository struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisRepository(cfg config.RedisConfig) (*RedisRepository, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.DataAddress,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  cfg.Timeout,
		ReadTimeout:  cfg.Timeout,
		WriteTimeout: cfg.Timeout,
	})

	// 测试连接
	if err := client.Ping(context.Background()).Err(); err != nil {
		client.Close()
		return nil, errors.Wrap(err, "Redis数据节点连接测试失败")
	}

	return NewRedisRepositoryWithClient(client, cfg.AnalyticsTTL), nil
}

func NewRedisRepositoryWithClient(client *redis.Client, ttl time.Duration) *RedisRepository {
	return &RedisRepository{client: client, ttl: ttl}
}

func analyticsKey(pollID int64) string {
	return PollAnalyticsKey + strconv.FormatInt(pollID, 10)
}

// GetPollAnalytics 从缓存获取投票统计，未命中时 found 为 false
func (r *RedisRepository) GetPollAnalytics(ctx context.Context, pollID int64) (*model.PollAnalytics, bool, error) {
	data, err := r.client.Get(ctx, analyticsKey(pollID)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, false, nil
		}
		return nil, false, errors.Wrap(err, "获取投票统计缓存失败")
	}

	var analytics model.PollAnalytics
	if err := json.Unmarshal([]byte(data), &analytics); err != nil {
		return nil, false, errors.Wrap(err, "解析投票统计缓存失败")
	}
	if analytics.OptionCounts == nil {
		analytics.OptionCounts = map[string]int64{}
	}
	return &analytics, true, nil
}

// SetPollAnalytics 写入投票统计缓存
func (r *RedisRepository) SetPollAnalytics(ctx context.Context, analytics *model.PollAnalytics) error {
	data, err := json.Marshal(analytics)
	if err != nil {
		return errors.Wrap(err, "序列化投票统计失败")
	}

	if err := r.client.Set(ctx, analyticsKey(analytics.PollID), data, r.ttl).Err(); err != nil {
		return errors.Wrap(err, "设置投票统计缓存失败")
	}
	return nil
}

// DeletePollAnalytics 删除投票统计缓存
func (r *RedisRepository) DeletePollAnalytics(ctx context.Context, pollID int64) error {
	if err := r.client.Del(ctx, analyticsKey(pollID)).Err(); err != nil {
		return errors.Wrap(err, "删除投票统计缓存失败")
	}
	return nil
}

// Close 关闭Redis连接
func (r *RedisRepository) Close() error {
	return r.client.Close()
}
