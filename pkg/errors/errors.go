package errors

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// ErrOptimisticLock 乐观锁冲突：记录已被其他操作修改
var ErrOptimisticLock = errors.New("数据已被其他操作修改，请刷新后重试")

// PostgreSQL 约束类错误码
const (
	pgUniqueViolation     = "23505"
	pgExclusionViolation  = "23P01"
	pgCheckViolation      = "23514"
	pgForeignKeyViolation = "23503"
)

// IsConstraintViolation 判断写入失败是否由数据库约束（唯一/排他/检查）触发
// 这类错误属于业务冲突，应以 409 返回，而不是 500
func IsConstraintViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation, pgExclusionViolation, pgCheckViolation:
			return true
		}
	}
	return false
}

// IsForeignKeyViolation 判断是否为外键约束错误（引用的记录不存在）
func IsForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation
}
