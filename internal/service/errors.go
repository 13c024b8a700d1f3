package service

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrInvalidInput = errors.New("invalid input")
	ErrTransient    = errors.New("transient store failure")
	ErrFollowSelf   = errors.New("cannot follow self")
	ErrFriendSelf   = errors.New("cannot friend self")
)

// IsTransient 判断错误是否可重试
func IsTransient(err error) bool { return errors.Is(err, ErrTransient) }

// transient 把底层存储错误标记为可重试
func transient(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrTransient, op, err)
}

// notFoundOr 把 gorm 的记录缺失翻译为 ErrNotFound，其余原样返回
func notFoundOr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
