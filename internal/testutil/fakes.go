package testutil

import (
	"context"
	"sync"

	"github.com/lvdashuaibi/littlepoll/internal/model"
)

// MemCache 内存统计缓存，记录删除次数
type MemCache struct {
	mu      sync.Mutex
	entries map[int64]*model.PollAnalytics
	deletes int

	Err error
}

func NewMemCache() *MemCache {
	return &MemCache{entries: map[int64]*model.PollAnalytics{}}
}

func (c *MemCache) GetPollAnalytics(ctx context.Context, pollID int64) (*model.PollAnalytics, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return nil, false, c.Err
	}
	a, ok := c.entries[pollID]
	return a, ok, nil
}

func (c *MemCache) SetPollAnalytics(ctx context.Context, analytics *model.PollAnalytics) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return c.Err
	}
	c.entries[analytics.PollID] = analytics
	return nil
}

func (c *MemCache) DeletePollAnalytics(ctx context.Context, pollID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return c.Err
	}
	delete(c.entries, pollID)
	c.deletes++
	return nil
}

func (c *MemCache) Has(pollID int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[pollID]
	return ok
}

func (c *MemCache) Deletes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.deletes
}

// RecordingPublisher 记录发布的投票事件
type RecordingPublisher struct {
	mu     sync.Mutex
	events []*model.VoteEvent

	Err error
}

func (p *RecordingPublisher) PublishVoteEvent(ctx context.Context, event *model.VoteEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return p.Err
	}
	p.events = append(p.events, event)
	return nil
}

func (p *RecordingPublisher) Events() []*model.VoteEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*model.VoteEvent(nil), p.events...)
}
