package task

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/d60-Lab/social-timeline/pkg/logger"
)

// Handler 任务消费函数。投递语义是 at-least-once，实现必须幂等。
type Handler func(ctx context.Context, payload []byte) error

type job struct {
	name    string
	payload []byte
	enqAt   time.Time
}

// Runner 进程内异步任务执行器：有界队列 + worker 池，失败按 Retryable 判定重试。
// 扇出任务不允许静默丢弃，队列满时 Submit 阻塞直到有空位或 ctx 取消。
type Runner struct {
	handlers   map[string]Handler
	ch         chan job
	workers    int
	maxRetries int
	retryDelay time.Duration
	jobTimeout time.Duration
	stopCh     chan struct{}

	// Retryable 判定错误是否值得重试；默认全部重试（消费端幂等，重试无害）
	Retryable func(error) bool
}

func NewRunner(workers, queueSize, maxRetries int, retryDelay time.Duration) *Runner {
	if workers <= 0 {
		workers = 4
	}
	if queueSize <= 0 {
		queueSize = 10000
	}
	if maxRetries < 0 {
		maxRetries = 0
	}
	if retryDelay <= 0 {
		retryDelay = 100 * time.Millisecond
	}
	return &Runner{
		handlers:   make(map[string]Handler),
		ch:         make(chan job, queueSize),
		workers:    workers,
		maxRetries: maxRetries,
		retryDelay: retryDelay,
		jobTimeout: 30 * time.Second,
		stopCh:     make(chan struct{}),
		Retryable:  func(error) bool { return true },
	}
}

// Register 注册任务消费者；必须在 Start 之前完成
func (r *Runner) Register(name string, h Handler) { r.handlers[name] = h }

// Submit 投递任务
func (r *Runner) Submit(ctx context.Context, name string, payload []byte) error {
	if _, ok := r.handlers[name]; !ok {
		return fmt.Errorf("unknown task %q", name)
	}
	select {
	case r.ch <- job{name: name, payload: payload, enqAt: time.Now()}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-r.stopCh:
		return errors.New("task runner stopped")
	}
}

// Start 启动 worker 池；返回停止函数，停止时等待队列排空一小段时间
func (r *Runner) Start() func(context.Context) error {
	for i := 0; i < r.workers; i++ {
		go r.loop()
	}
	return func(ctx context.Context) error {
		close(r.stopCh)
		timeout := time.After(2 * time.Second)
		for {
			select {
			case <-timeout:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			default:
				if len(r.ch) == 0 {
					return nil
				}
				time.Sleep(50 * time.Millisecond)
			}
		}
	}
}

func (r *Runner) loop() {
	for {
		select {
		case j := <-r.ch:
			r.run(j)
		case <-r.stopCh:
			// stop 后把剩余任务消费完再退出
			for {
				select {
				case j := <-r.ch:
					r.run(j)
				default:
					return
				}
			}
		}
	}
}

func (r *Runner) run(j job) {
	h := r.handlers[j.name]
	var err error
	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(r.retryDelay)
		}
		ctx, cancel := context.WithTimeout(context.Background(), r.jobTimeout)
		err = h(ctx, j.payload)
		cancel()
		if err == nil {
			return
		}
		if !r.Retryable(err) {
			break
		}
	}
	logger.Error("task failed",
		zap.String("task", j.name),
		zap.Int("retries", r.maxRetries),
		zap.Duration("queued", time.Since(j.enqAt)),
		zap.Error(err))
}

// QueueLen 返回当前队列长度（采样值）
func (r *Runner) QueueLen() int { return len(r.ch) }
