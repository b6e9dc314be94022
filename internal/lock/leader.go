package lock

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

func refreshInterval(ttl time.Duration) time.Duration {
	interval := ttl / 3
	if interval <= 0 {
		interval = time.Second
	}
	return interval
}

// Hold 尝试获取锁，成功后每 ttl/3 刷新一次直到 ctx 结束
//
// 刷新确认锁已丢失时调用 onLost，之后不再刷新。
func Hold(ctx context.Context, l Lock, lockName string, ttl time.Duration, onLost func()) (bool, error) {
	acquired, err := l.AcquireLock(lockName, ttl)
	if err != nil || !acquired {
		return acquired, err
	}

	go func() {
		ticker := time.NewTicker(refreshInterval(ttl))
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				ok, err := l.RefreshLock(lockName, ttl)
				if err != nil {
					logrus.WithError(err).WithField("lock", lockName).Warn("刷新锁失败")
					continue
				}
				if !ok {
					logrus.WithField("lock", lockName).Warn("锁已丢失")
					if onLost != nil {
						onLost()
					}
					return
				}
			}
		}
	}()
	return true, nil
}

// Campaign 反复竞争锁直到 ctx 结束，每次持锁期间阻塞运行 lead
//
// lead 的 ctx 在锁丢失或外部 ctx 结束时取消。lead 返回后释放锁，
// 每 ttl/3 重新竞争一次，持锁实例宕机后其他实例在租约到期后接管。
func Campaign(ctx context.Context, l Lock, lockName string, ttl time.Duration, lead func(ctx context.Context) error) {
	log := logrus.WithField("lock", lockName)
	retry := time.NewTicker(refreshInterval(ttl))
	defer retry.Stop()

	for {
		leadCtx, cancel := context.WithCancel(ctx)
		acquired, err := Hold(leadCtx, l, lockName, ttl, cancel)
		if err != nil {
			log.WithError(err).Warn("竞争锁失败")
		}

		if acquired {
			log.Info("获取锁成功，开始执行持锁任务")
			if err := lead(leadCtx); err != nil {
				log.WithError(err).Error("持锁任务异常退出")
			}
			cancel()
			if err := l.ReleaseLock(lockName); err != nil {
				log.WithError(err).Warn("释放锁失败")
			}
		}
		cancel()

		select {
		case <-ctx.Done():
			return
		case <-retry.C:
		}
	}
}
