package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var l = zap.NewNop()

// Init 初始化全局 logger；mode 取 debug/release
func Init(mode string) error {
	var (
		zl  *zap.Logger
		err error
	)
	if mode == "release" {
		cfg := zap.NewProductionConfig()
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		zl, err = cfg.Build(zap.AddCallerSkip(1))
	} else {
		zl, err = zap.NewDevelopment(zap.AddCallerSkip(1))
	}
	if err != nil {
		return err
	}
	l = zl
	return nil
}

// L 返回底层 *zap.Logger（中间件等需要不带 skip 的实例时使用）
func L() *zap.Logger { return l }

func Sync() { _ = l.Sync() }

func Debug(msg string, fields ...zap.Field) { l.Debug(msg, fields...) }
func Info(msg string, fields ...zap.Field)  { l.Info(msg, fields...) }
func Warn(msg string, fields ...zap.Field)  { l.Warn(msg, fields...) }
func Error(msg string, fields ...zap.Field) { l.Error(msg, fields...) }
