package lock

import (
	"context"
	"sync"
	"time"

	"emperror.dev/errors"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/lvdashuaibi/littlepoll/config"
	"github.com/sirupsen/logrus"
)

// 只刷新或释放自己持有的锁
var (
	refreshScript = redis.NewScript(`
		if redis.call("GET", KEYS[1]) == ARGV[1] then
			return redis.call("PEXPIRE", KEYS[1], ARGV[2])
		else
			return 0
		end
	`)
	unlockScript = redis.NewScript(`
		if redis.call("GET", KEYS[1]) == ARGV[1] then
			return redis.call("DEL", KEYS[1])
		else
			return 0
		end
	`)
)

// RedLock 多个独立Redis节点上的Redlock实现
type RedLock struct {
	clients    []*redis.Client
	addresses  []string
	mu         sync.Mutex
	locks      map[string]string // 锁名 -> token
	retries    int
	retryDelay time.Duration
}

// NewRedLock 创建新的分布式锁客户端
func NewRedLock(cfg config.RedisConfig, lockCfg config.LockConfig) (*RedLock, error) {
	if len(cfg.LockAddresses) == 0 {
		return nil, errors.New("未配置Redis锁节点")
	}

	ctx := context.Background()
	var clients []*redis.Client
	for _, addr := range cfg.LockAddresses {
		client := redis.NewClient(&redis.Options{
			Addr:         addr,
			Password:     cfg.Password,
			DB:           cfg.DB,
			PoolSize:     cfg.PoolSize,
			MaxRetries:   cfg.MaxRetries,
			DialTimeout:  cfg.Timeout,
			ReadTimeout:  cfg.Timeout,
			WriteTimeout: cfg.Timeout,
		})

		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			for _, c := range clients {
				c.Close()
			}
			return nil, errors.Wrapf(err, "Redis锁节点 %s 连接测试失败", addr)
		}
		clients = append(clients, client)
	}

	return newRedLock(clients, cfg.LockAddresses, lockCfg.RetryCount), nil
}

func newRedLock(clients []*redis.Client, addresses []string, retries int) *RedLock {
	if retries < 1 {
		retries = 1
	}
	return &RedLock{
		clients:    clients,
		addresses:  addresses,
		locks:      make(map[string]string),
		retries:    retries,
		retryDelay: 100 * time.Millisecond,
	}
}

// quorum 多数派节点数
func quorum(n int) int {
	return n/2 + 1
}

// AcquireLock 获取分布式锁
func (r *RedLock) AcquireLock(lockName string, timeout time.Duration) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.locks[lockName]; ok {
		return true, nil
	}

	token := uuid.NewString()
	ctx := context.Background()

	for attempt := 0; attempt < r.retries; attempt++ {
		success := 0
		start := time.Now()

		for i, client := range r.clients {
			ok, err := client.SetNX(ctx, lockName, token, timeout).Result()
			if err != nil {
				logrus.WithError(err).WithFields(logrus.Fields{"node": r.addresses[i], "lock": lockName}).Warn("在节点获取锁失败")
				continue
			}
			if ok {
				success++
			}
		}

		// 多数节点成功且锁仍在有效期内
		if success >= quorum(len(r.clients)) && timeout-time.Since(start) > 0 {
			r.locks[lockName] = token
			logrus.WithField("lock", lockName).Debug("获取锁成功")
			return true, nil
		}

		r.unlockAll(ctx, lockName, token)
		time.Sleep(r.retryDelay)
	}
	return false, nil
}

// RefreshLock 刷新锁的过期时间
func (r *RedLock) RefreshLock(lockName string, timeout time.Duration) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	token, exists := r.locks[lockName]
	if !exists {
		return false, nil
	}

	ctx := context.Background()
	success := 0
	for i, client := range r.clients {
		n, err := refreshScript.Run(ctx, client, []string{lockName}, token, timeout.Milliseconds()).Int64()
		if err != nil {
			logrus.WithError(err).WithFields(logrus.Fields{"node": r.addresses[i], "lock": lockName}).Warn("在节点刷新锁失败")
			continue
		}
		if n == 1 {
			success++
		}
	}

	if success >= quorum(len(r.clients)) {
		return true, nil
	}

	delete(r.locks, lockName)
	return false, nil
}

// ReleaseLock 释放分布式锁
func (r *RedLock) ReleaseLock(lockName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	token, exists := r.locks[lockName]
	if !exists {
		return nil
	}

	r.unlockAll(context.Background(), lockName, token)
	delete(r.locks, lockName)
	return nil
}

func (r *RedLock) unlockAll(ctx context.Context, lockName, token string) {
	for i, client := range r.clients {
		if err := unlockScript.Run(ctx, client, []string{lockName}, token).Err(); err != nil {
			logrus.WithError(err).WithFields(logrus.Fields{"node": r.addresses[i], "lock": lockName}).Warn("在节点释放锁失败")
		}
	}
}

// ReleaseAllLocks 释放所有持有的锁
func (r *RedLock) ReleaseAllLocks() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for name, token := range r.locks {
		r.unlockAll(context.Background(), name, token)
	}
	r.locks = make(map[string]string)
}

// Close 关闭分布式锁客户端
func (r *RedLock) Close() error {
	r.ReleaseAllLocks()

	var errs error
	for _, client := range r.clients {
		errs = errors.Append(errs, client.Close())
	}
	return errs
}
