package progress

import (
	"sync"
	"sync/atomic"

	"songrab/logger"
	"songrab/model"
)

// Sink 进度事件的外部出口
// Publish 必须是尽力而为的：没有观察者时直接丢弃，绝不阻塞
type Sink interface {
	Publish(event model.ProgressEvent)
}

// NoopSink 丢弃所有事件
type NoopSink struct{}

func (NoopSink) Publish(model.ProgressEvent) {}

// 事件缓冲大小，塞满时丢弃新事件而不是阻塞下载协程
const eventBuffer = 256

// Reporter 把编排器产生的生命周期事件异步转发给 Sink。
// 下载主流程只往通道里投递，转发协程慢了或挂了都不会拖住下载。
type Reporter struct {
	sink    Sink
	ch      chan model.ProgressEvent
	done    chan struct{}
	once    sync.Once
	dropped atomic.Int64
}

// NewReporter 创建并启动转发协程
func NewReporter(sink Sink) *Reporter {
	if sink == nil {
		sink = NoopSink{}
	}
	r := &Reporter{
		sink: sink,
		ch:   make(chan model.ProgressEvent, eventBuffer),
		done: make(chan struct{}),
	}
	go r.forward()
	return r
}

func (r *Reporter) forward() {
	defer close(r.done)
	for ev := range r.ch {
		r.sink.Publish(ev)
	}
}

// Publish 投递一个事件，缓冲满时丢弃
func (r *Reporter) Publish(ev model.ProgressEvent) {
	select {
	case r.ch <- ev:
	default:
		r.dropped.Add(1)
	}
}

// Dropped 返回因背压被丢弃的事件数
func (r *Reporter) Dropped() int64 {
	return r.dropped.Load()
}

// Close 关闭通道并等待已入队的事件转发完毕
func (r *Reporter) Close() {
	r.once.Do(func() {
		close(r.ch)
		<-r.done
		if n := r.dropped.Load(); n > 0 {
			logger.Warn("progress events dropped under backpressure", logger.Int64("count", n))
		}
	})
}
