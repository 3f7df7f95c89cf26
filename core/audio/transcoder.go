package audio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"songrab/logger"
)

// Transcoder defines the interface for audio transcoding operations.
type Transcoder interface {
	// Transcode fully decodes the Ogg source stream and writes the encoded
	// result to outputPath. Encoded frames are streamed to disk as they are
	// produced, the whole output is never held in memory.
	Transcode(ctx context.Context, src io.Reader, outputPath string, opts TranscodeOptions) error
	// SupportsFormat reports whether the target encoder is available in this
	// environment. mp3 depends on a libmp3lame-enabled ffmpeg build.
	SupportsFormat(f Format) bool
}

// TranscodeOptions carries the per-track encoding parameters.
type TranscodeOptions struct {
	Format      Format
	Compression int               // FLAC only: 0-8, higher is smaller and slower
	OnProgress  func(bytes int64) // Optional, called with encoded bytes on disk so far
}

// FFmpegTranscoder implements Transcoder by shelling out to ffmpeg.
type FFmpegTranscoder struct {
	ffmpegPath string

	probeOnce   sync.Once
	encoderList string
	probeErr    error
}

// NewFFmpegTranscoder creates a new FFmpegTranscoder.
func NewFFmpegTranscoder(ffmpegPath string) *FFmpegTranscoder {
	return &FFmpegTranscoder{ffmpegPath: ffmpegPath}
}

// FFmpegPath returns the configured ffmpeg binary path.
func (t *FFmpegTranscoder) FFmpegPath() string {
	return t.ffmpegPath
}

// buildArgs 构建FFmpeg参数：源固定为 Ogg，从 stdin 读入
func buildArgs(outputPath string, opts TranscodeOptions) []string {
	args := []string{
		"-hide_banner",
		"-loglevel", "error",
		"-f", "ogg",
		"-i", "pipe:0",
	}

	switch opts.Format {
	case FormatFLAC:
		// 压缩级别只影响体积和耗时，不影响保真度
		args = append(args,
			"-c:a", "flac",
			"-compression_level", strconv.Itoa(opts.Compression),
			"-f", "flac",
		)
	case FormatMP3:
		// 固定质量档位，mp3 不暴露可调参数
		args = append(args,
			"-c:a", "libmp3lame",
			"-q:a", "2",
			"-f", "mp3",
		)
	}

	args = append(args, "-y", outputPath)
	return args
}

// Transcode runs ffmpeg over the decrypted stream.
func (t *FFmpegTranscoder) Transcode(ctx context.Context, src io.Reader, outputPath string, opts TranscodeOptions) error {
	if !t.SupportsFormat(opts.Format) {
		return fmt.Errorf("encoder for %s is not available in this ffmpeg build", opts.Format)
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	args := buildArgs(outputPath, opts)
	cmd := exec.CommandContext(ctx, t.ffmpegPath, args...)
	cmd.Stdin = src
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	// 用 fsnotify 盯着输出文件的增长来上报编码进度，
	// 和转码主流程完全解耦，监听失败只降级不报错
	stopWatch := t.watchOutput(outputPath, opts.OnProgress)
	defer stopWatch()

	logger.Debug("executing ffmpeg",
		logger.String("path", t.ffmpegPath),
		logger.String("args", strings.Join(args, " ")))

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg execution failed: %w\nFFmpeg Error: %s", err, stderr.String())
	}

	return nil
}

// watchOutput 监听输出文件写入事件，返回停止函数。
func (t *FFmpegTranscoder) watchOutput(outputPath string, onProgress func(int64)) func() {
	if onProgress == nil {
		return func() {}
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Warn("progress watcher unavailable", logger.ErrorField(err))
		return func() {}
	}
	if err := watcher.Add(filepath.Dir(outputPath)); err != nil {
		logger.Warn("progress watcher add failed", logger.ErrorField(err))
		watcher.Close()
		return func() {}
	}

	done := make(chan struct{})
	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Name == outputPath && event.Op&fsnotify.Write == fsnotify.Write {
					if info, err := os.Stat(outputPath); err == nil {
						onProgress(info.Size())
					}
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("progress watcher error", logger.ErrorField(err))
			case <-done:
				return
			}
		}
	}()

	return func() {
		close(done)
		watcher.Close()
	}
}

// SupportsFormat probes the ffmpeg build once and caches the encoder list.
func (t *FFmpegTranscoder) SupportsFormat(f Format) bool {
	switch f {
	case FormatFLAC:
		// flac 编码器是 ffmpeg 内建的，始终可用
		return true
	case FormatMP3:
		t.probeOnce.Do(func() {
			out, err := exec.Command(t.ffmpegPath, "-hide_banner", "-encoders").Output()
			if err != nil {
				t.probeErr = err
				return
			}
			t.encoderList = string(out)
		})
		if t.probeErr != nil {
			logger.Warn("encoder probe failed", logger.ErrorField(t.probeErr))
			return false
		}
		return hasEncoder(t.encoderList, "libmp3lame")
	default:
		return false
	}
}

// hasEncoder 在 `ffmpeg -encoders` 的输出里按行查找编码器名
func hasEncoder(list, name string) bool {
	for _, line := range strings.Split(list, "\n") {
		fields := strings.Fields(line)
		for _, f := range fields {
			if f == name {
				return true
			}
		}
	}
	return false
}
