package lock

import (
	"time"

	"emperror.dev/errors"
	"github.com/lvdashuaibi/littlepoll/config"
)

// Lock 分布式锁接口
type Lock interface {
	// AcquireLock 获取分布式锁，当前实例已持有时返回 true
	// 返回值：bool表示是否成功获取锁，error表示获取过程中的错误
	AcquireLock(lockName string, timeout time.Duration) (bool, error)

	// RefreshLock 刷新锁的过期时间，锁已丢失或未持有时返回 false
	// 返回值：bool表示是否成功刷新锁，error表示刷新过程中的错误
	RefreshLock(lockName string, timeout time.Duration) (bool, error)

	// ReleaseLock 释放分布式锁，未持有时不做任何事
	ReleaseLock(lockName string) error

	// ReleaseAllLocks 释放所有持有的锁
	ReleaseAllLocks()

	// Close 关闭分布式锁客户端
	Close() error
}

// New 按 lock.driver 创建分布式锁
func New(cfg *config.Config) (Lock, error) {
	switch cfg.Lock.Driver {
	case "etcd":
		return NewETCDLock(cfg.ETCD)
	case "redis":
		return NewRedLock(cfg.Redis, cfg.Lock)
	default:
		return nil, errors.Errorf("不支持的分布式锁类型: %s", cfg.Lock.Driver)
	}
}
