package data

import (
	"context"
	"fmt"
	"time"

	"subscription-service/internal/biz"
	"subscription-service/internal/constants"
	subErrors "subscription-service/internal/errors"
	"subscription-service/internal/metrics"

	pkgErrors "github.com/gaoyong06/go-pkg/errors"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-redsync/redsync/v4"
)

// userLocker 按用户粒度的分布式锁（redsync 实现）
type userLocker struct {
	sync *redsync.Redsync
	log  *log.Helper
}

// NewUserLocker 创建用户锁（返回 biz.UserLocker 接口）
func NewUserLocker(sync *redsync.Redsync, logger log.Logger) biz.UserLocker {
	return &userLocker{
		sync: sync,
		log:  log.NewHelper(logger),
	}
}

// Lock 获取用户对账锁，返回释放函数
// 锁过期时间覆盖一次完整对账（状态机 + 配额 + 返利），
// 获取失败说明同用户对账正在进行，由调用方重试
func (l *userLocker) Lock(ctx context.Context, userID string) (func(), error) {
	lockKey := fmt.Sprintf("%s%s", constants.RedisKeyReconcileLock, userID)
	mutex := l.sync.NewMutex(lockKey,
		redsync.WithExpiry(10*time.Second),
		redsync.WithTries(8),
		redsync.WithRetryDelay(250*time.Millisecond),
	)

	start := time.Now()
	if err := mutex.LockContext(ctx); err != nil {
		metrics.GetMetrics().LockAcquireTotal.WithLabelValues(constants.ReplyStatusError).Inc()
		l.log.Errorf("acquire reconcile lock failed: userID=%s, error=%v", userID, err)
		return nil, pkgErrors.NewBizErrorWithLang(ctx, subErrors.ErrCodeReconcileLockFailed)
	}
	metrics.GetMetrics().LockAcquireTotal.WithLabelValues(constants.ReplyStatusSuccess).Inc()
	metrics.GetMetrics().LockAcquireDuration.Observe(time.Since(start).Seconds())

	return func() {
		if _, err := mutex.Unlock(); err != nil {
			l.log.Warnf("release reconcile lock failed: userID=%s, error=%v", userID, err)
		}
	}, nil
}
