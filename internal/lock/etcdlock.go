package lock

import (
	"context"
	"sync"
	"time"

	"emperror.dev/errors"
	"github.com/google/uuid"
	"github.com/lvdashuaibi/littlepoll/config"
	"github.com/sirupsen/logrus"
	"go.etcd.io/etcd/api/v3/v3rpc/rpctypes"
	clientv3 "go.etcd.io/etcd/client/v3"
)

const etcdKeyPrefix = "/littlepoll/locks/"

// EtcdLock 基于etcd租约的分布式锁
//
// 租约时长等于调用方传入的锁超时，续约完全由 Hold/Campaign 驱动；
// 持锁进程停止刷新后租约到期，锁自动转移给其他实例。
type EtcdLock struct {
	client    *clientv3.Client
	owner     string        // 写入锁键的值，标识持锁实例
	opTimeout time.Duration // 单次etcd请求超时

	mu    sync.Mutex
	locks map[string]clientv3.LeaseID
}

func NewETCDLock(cfg config.ETCDConfig) (*EtcdLock, error) {
	if len(cfg.Endpoints) == 0 {
		return nil, errors.New("未配置etcd地址")
	}

	cli, err := clientv3.New(clientv3.Config{
		Endpoints:   cfg.Endpoints,
		DialTimeout: cfg.DialTimeout,
	})
	if err != nil {
		return nil, errors.Wrap(err, "创建etcd客户端失败")
	}

	return newEtcdLock(cli, cfg.DialTimeout), nil
}

func newEtcdLock(cli *clientv3.Client, opTimeout time.Duration) *EtcdLock {
	if opTimeout <= 0 {
		opTimeout = 5 * time.Second
	}
	return &EtcdLock{
		client:    cli,
		owner:     uuid.NewString(),
		opTimeout: opTimeout,
		locks:     make(map[string]clientv3.LeaseID),
	}
}

// leaseTTL 租约以秒为单位，向上取整且至少1秒
func leaseTTL(timeout time.Duration) int64 {
	seconds := int64((timeout + time.Second - 1) / time.Second)
	if seconds < 1 {
		return 1
	}
	return seconds
}

func lockKey(lockName string) string {
	return etcdKeyPrefix + lockName
}

// AcquireLock 已持有时直接返回 true，便于调用方重复竞争
func (el *EtcdLock) AcquireLock(lockName string, timeout time.Duration) (bool, error) {
	el.mu.Lock()
	defer el.mu.Unlock()

	if _, ok := el.locks[lockName]; ok {
		return true, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), el.opTimeout)
	defer cancel()

	grantResp, err := el.client.Grant(ctx, leaseTTL(timeout))
	if err != nil {
		return false, errors.Wrap(err, "创建租约失败")
	}

	key := lockKey(lockName)
	txnResp, err := el.client.Txn(ctx).
		If(clientv3.Compare(clientv3.CreateRevision(key), "=", 0)).
		Then(clientv3.OpPut(key, el.owner, clientv3.WithLease(grantResp.ID))).
		Commit()
	if err != nil || !txnResp.Succeeded {
		el.revoke(grantResp.ID)
		if err != nil {
			return false, errors.Wrap(err, "事务执行失败")
		}
		return false, nil
	}

	el.locks[lockName] = grantResp.ID
	logrus.WithFields(logrus.Fields{"lock": lockName, "owner": el.owner}).Debug("获取etcd锁成功")
	return true, nil
}

// RefreshLock 续约一次，租约已过期时返回 false 并忘记该锁
func (el *EtcdLock) RefreshLock(lockName string, timeout time.Duration) (bool, error) {
	el.mu.Lock()
	defer el.mu.Unlock()

	leaseID, ok := el.locks[lockName]
	if !ok {
		return false, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), el.opTimeout)
	defer cancel()

	resp, err := el.client.KeepAliveOnce(ctx, leaseID)
	if err != nil {
		if errors.Is(err, rpctypes.ErrLeaseNotFound) {
			delete(el.locks, lockName)
			return false, nil
		}
		return false, errors.Wrap(err, "续约失败")
	}
	if resp.TTL <= 0 {
		delete(el.locks, lockName)
		return false, nil
	}
	return true, nil
}

func (el *EtcdLock) ReleaseLock(lockName string) error {
	el.mu.Lock()
	defer el.mu.Unlock()

	return el.releaseLock(lockName)
}

func (el *EtcdLock) ReleaseAllLocks() {
	el.mu.Lock()
	defer el.mu.Unlock()

	for lockName := range el.locks {
		if err := el.releaseLock(lockName); err != nil {
			logrus.WithError(err).WithField("lock", lockName).Warn("释放锁失败")
		}
	}
}

func (el *EtcdLock) Close() error {
	el.ReleaseAllLocks()
	return el.client.Close()
}

// releaseLock 撤销租约，锁键随租约一起删除
func (el *EtcdLock) releaseLock(lockName string) error {
	leaseID, ok := el.locks[lockName]
	if !ok {
		return nil
	}
	delete(el.locks, lockName)

	ctx, cancel := context.WithTimeout(context.Background(), el.opTimeout)
	defer cancel()
	if _, err := el.client.Revoke(ctx, leaseID); err != nil && !errors.Is(err, rpctypes.ErrLeaseNotFound) {
		return errors.Wrap(err, "释放租约失败")
	}
	return nil
}

func (el *EtcdLock) revoke(leaseID clientv3.LeaseID) {
	ctx, cancel := context.WithTimeout(context.Background(), el.opTimeout)
	defer cancel()
	if _, err := el.client.Revoke(ctx, leaseID); err != nil {
		logrus.WithError(err).Debug("撤销未使用的租约失败")
	}
}
