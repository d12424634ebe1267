package data

import (
	"io"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	kratoslog "github.com/go-kratos/kratos/v2/log"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupRepoTest 构造基于 sqlmock + miniredis 的 Data 实例
func setupRepoTest(t *testing.T) (*Data, sqlmock.Sqlmock, *miniredis.Miniredis, func()) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)

	gormDB, err := gorm.Open(gormmysql.New(gormmysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{
		TranslateError: true,
		// 显式事务之外不额外包事务，便于设定期望
		SkipDefaultTransaction: true,
		Logger:                 logger.Discard,
	})
	require.NoError(t, err)

	mr, err := miniredis.Run()
	require.NoError(t, err)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	cleanup := func() {
		rdb.Close()
		mr.Close()
		sqlDB.Close()
	}

	return &Data{db: gormDB, rdb: rdb}, mock, mr, cleanup
}

func testLogger() kratoslog.Logger {
	return kratoslog.NewStdLogger(io.Discard)
}
