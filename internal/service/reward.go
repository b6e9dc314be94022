package service

import (
	"math/rand"
	"sync"
	"time"
)

// RewardSource 在投票活动奖励区间内均匀抽取奖励，可并发使用
type RewardSource struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRewardSource seed 为0时使用当前时间
func NewRewardSource(seed int64) *RewardSource {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &RewardSource{rng: rand.New(rand.NewSource(seed))}
}

// Draw 返回 [minReward, maxReward] 闭区间内的整数
func (r *RewardSource) Draw(minReward, maxReward int) int {
	if maxReward <= minReward {
		return minReward
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return minReward + r.rng.Intn(maxReward-minReward+1)
}
