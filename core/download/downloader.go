package download

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"songrab/core/audio"
	"songrab/core/crypto"
	"songrab/core/progress"
	"songrab/logger"
	"songrab/model"
)

// Session 已认证的服务会话能力。
// 所有工作协程只读共享，续期和状态维护是会话提供方的事。
type Session interface {
	// Resolve 把内容标识符展开为有序的曲目引用列表
	Resolve(ctx context.Context, identifier string) ([]model.TrackReference, error)
	// Fetch 拉取一条曲目的加密流和密钥材料
	Fetch(ctx context.Context, trackID string) (*model.EncryptedStream, error)
}

// Options 单次运行的下载配置
type Options struct {
	Destination string       // 输出目录，不存在时创建一层
	Parallel    int          // 工作协程数上限
	Compression int          // FLAC 压缩级别 0-8
	Format      audio.Format // 输出格式
}

// validate 校验配置，违规时返回 config 类错误，任何工作协程都不会启动
func (o Options) validate() *TaskError {
	if o.Parallel < 1 {
		return newTaskError(KindConfig, "", fmt.Errorf("parallel must be >= 1, got %d", o.Parallel))
	}
	if o.Compression < audio.MinCompression || o.Compression > audio.MaxCompression {
		return newTaskError(KindConfig, "",
			fmt.Errorf("compression level must be in [%d,%d], got %d",
				audio.MinCompression, audio.MaxCompression, o.Compression))
	}
	if o.Format != audio.FormatMP3 && o.Format != audio.FormatFLAC {
		return newTaskError(KindConfig, "", fmt.Errorf("unsupported output format: %q", o.Format))
	}
	if o.Destination == "" {
		return newTaskError(KindConfig, "", errors.New("destination directory is required"))
	}
	return nil
}

// TaskOutcome 一条曲目的终态结果，每个提交的引用恰好产生一条
type TaskOutcome struct {
	Ref  model.TrackReference
	Path string     // 成功时的输出文件路径
	Err  *TaskError // 失败时的分类错误
}

// Failed reports whether the track ended in failure.
func (o TaskOutcome) Failed() bool {
	return o.Err != nil
}

// UnresolvedIdentifier 无法展开的内容标识符
type UnresolvedIdentifier struct {
	Identifier string
	Err        error
}

// Report 一次运行的聚合结果
// Outcomes 的顺序是完成顺序，内容对相同输入是确定的
type Report struct {
	Outcomes   []TaskOutcome
	Unresolved []UnresolvedIdentifier
}

// Failed 返回所有失败的曲目结果
func (r *Report) Failed() []TaskOutcome {
	var failed []TaskOutcome
	for _, o := range r.Outcomes {
		if o.Failed() {
			failed = append(failed, o)
		}
	}
	return failed
}

// Succeeded 返回所有成功的曲目结果
func (r *Report) Succeeded() []TaskOutcome {
	var ok []TaskOutcome
	for _, o := range r.Outcomes {
		if !o.Failed() {
			ok = append(ok, o)
		}
	}
	return ok
}

// Downloader 下载编排器
// 固定大小的工作协程池从共享队列拉取曲目，逐个执行
// 拉流 → 解密 → 转码 → 落盘，单曲失败只记录，不影响其他曲目。
type Downloader struct {
	session    Session
	transcoder audio.Transcoder
	reporter   *progress.Reporter
}

// NewDownloader 创建编排器
func NewDownloader(session Session, transcoder audio.Transcoder, reporter *progress.Reporter) *Downloader {
	if reporter == nil {
		reporter = progress.NewReporter(progress.NoopSink{})
	}
	return &Downloader{
		session:    session,
		transcoder: transcoder,
		reporter:   reporter,
	}
}

// Run 把一批曲目引用下载到目标目录。
// 返回的 Report 对每个输入引用恰好包含一条结果；
// 只有配置类失败会让 Run 本身返回错误。
func (d *Downloader) Run(ctx context.Context, refs []model.TrackReference, opts Options) (*Report, error) {
	if cfgErr := opts.validate(); cfgErr != nil {
		return nil, cfgErr
	}

	// 编码器不可用要在任何网络请求之前暴露出来
	if !d.transcoder.SupportsFormat(opts.Format) {
		return nil, newTaskError(KindTranscode, "",
			fmt.Errorf("encoder for %s is not available", opts.Format))
	}

	// 目标目录只创建一层，父目录必须已经存在
	if err := os.Mkdir(opts.Destination, 0755); err != nil && !os.IsExist(err) {
		return nil, newTaskError(KindConfig, "",
			fmt.Errorf("cannot create destination directory: %w", err))
	}

	report := &Report{}
	if len(refs) == 0 {
		return report, nil
	}

	workers := opts.Parallel
	if workers > len(refs) {
		workers = len(refs)
	}

	logger.Info("download run starting",
		logger.Int("tracks", len(refs)),
		logger.Int("workers", workers),
		logger.String("format", string(opts.Format)))

	tasks := make(chan model.TrackReference)
	results := make(chan TaskOutcome, len(refs))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ref := range tasks {
				results <- d.downloadTrack(ctx, ref, opts)
			}
		}()
	}

	for _, ref := range refs {
		d.reporter.Publish(model.NewProgressEvent(ref.ID, ref.Title, model.StageQueued))
		tasks <- ref
	}
	close(tasks)

	wg.Wait()
	close(results)

	for outcome := range results {
		report.Outcomes = append(report.Outcomes, outcome)
	}

	logger.Info("download run finished",
		logger.Int("succeeded", len(report.Succeeded())),
		logger.Int("failed", len(report.Failed())))

	return report, nil
}

// errCapture 记录底层读取错误，用来区分解密层失败和编码层失败
type errCapture struct {
	r   io.Reader
	err error
}

func (c *errCapture) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	if err != nil && err != io.EOF {
		c.err = err
	}
	return n, err
}

// downloadTrack 执行单曲目的阶段链，任何失败都折叠成分类结果返回
func (d *Downloader) downloadTrack(ctx context.Context, ref model.TrackReference, opts Options) TaskOutcome {
	fail := func(kind ErrorKind, err error) TaskOutcome {
		taskErr := newTaskError(kind, ref.ID, err)
		ev := model.NewProgressEvent(ref.ID, ref.Title, model.StageFailed)
		ev.Error = taskErr.Error()
		d.reporter.Publish(ev)
		logger.Warn("track failed",
			logger.String("track", ref.ID),
			logger.String("kind", string(kind)),
			logger.ErrorField(err))
		return TaskOutcome{Ref: ref, Err: taskErr}
	}

	// 拉流
	d.reporter.Publish(model.NewProgressEvent(ref.ID, ref.Title, model.StageFetching))
	stream, err := d.session.Fetch(ctx, ref.ID)
	if err != nil {
		return fail(KindFetch, err)
	}
	defer stream.Close()

	// 解密
	d.reporter.Publish(model.NewProgressEvent(ref.ID, ref.Title, model.StageDecrypting))
	decrypted, err := crypto.NewReader(stream)
	if err != nil {
		return fail(KindDecrypt, err)
	}

	// 先读首块：密钥错误和空流要在启动编码器之前定性为解密失败
	head := make([]byte, 8192)
	n, err := decrypted.Read(head)
	if err != nil && err != io.EOF {
		return fail(KindDecrypt, err)
	}
	capture := &errCapture{r: io.MultiReader(bytes.NewReader(head[:n]), decrypted)}

	// 转码并写入临时文件，成功后原子改名
	finalPath := filepath.Join(opts.Destination, OutputFileName(ref, opts.Format))
	tmpPath := filepath.Join(opts.Destination,
		fmt.Sprintf(".%s.%s.part", filepath.Base(finalPath), uuid.NewString()))
	defer os.Remove(tmpPath)

	d.reporter.Publish(model.NewProgressEvent(ref.ID, ref.Title, model.StageTranscoding))
	err = d.transcoder.Transcode(ctx, capture, tmpPath, audio.TranscodeOptions{
		Format:      opts.Format,
		Compression: opts.Compression,
		OnProgress: func(bytes int64) {
			ev := model.NewProgressEvent(ref.ID, ref.Title, model.StageTranscoding)
			ev.Bytes = bytes
			d.reporter.Publish(ev)
		},
	})
	if err != nil {
		// 解密流在中途报错时，根因在解密层而不是编码器
		if capture.err != nil {
			return fail(KindDecrypt, capture.err)
		}
		return fail(KindTranscode, err)
	}

	if err := os.Rename(tmpPath, finalPath); err != nil {
		return fail(KindPersist, fmt.Errorf("rename output into place: %w", err))
	}

	d.reporter.Publish(model.NewProgressEvent(ref.ID, ref.Title, model.StageCompleted))
	logger.Info("track downloaded",
		logger.String("track", ref.ID),
		logger.String("path", finalPath))
	return TaskOutcome{Ref: ref, Path: finalPath}
}
