package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"songrab/cache"
	"songrab/config"
	"songrab/core/audio"
	"songrab/core/download"
	"songrab/core/notify"
	"songrab/core/progress"
	"songrab/core/spot"
	"songrab/db"
	"songrab/logger"
	"songrab/model"
	"songrab/repository"
	"songrab/storage"
)

// SpotDownloader 下载服务入口
// 持有已登录的会话、转码器和可选的进度 Hub，生命周期内可多次发起下载。
type SpotDownloader struct {
	cfg          *config.Config
	outputFolder string
	session      *spot.Client
	transcoder   audio.Transcoder
	hub          *notify.Hub
	server       *notify.Server
}

// createOutputFolder 在用户主目录下创建一层输出目录
func createOutputFolder(folderName string) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home directory not found: %w", err)
	}

	folderPath := filepath.Join(home, folderName)
	if err := os.Mkdir(folderPath, 0755); err != nil && !os.IsExist(err) {
		return "", fmt.Errorf("cannot create output folder: %w", err)
	}
	return folderPath, nil
}

// New 创建下载服务：建输出目录、登录服务端、准备转码器。
// cfg.NotifyAddr 非空时同时启动进度订阅端点。
func New(ctx context.Context, cfg *config.Config) (*SpotDownloader, error) {
	outputFolder, err := createOutputFolder(cfg.OutputDir)
	if err != nil {
		return nil, err
	}

	session := spot.NewClient(cfg.ServiceBaseURL)
	if err := session.Login(ctx, cfg.ServiceUsername, cfg.ServicePassword); err != nil {
		return nil, fmt.Errorf("service login failed: %w", err)
	}

	s := &SpotDownloader{
		cfg:          cfg,
		outputFolder: outputFolder,
		session:      session,
		transcoder:   audio.NewFFmpegTranscoder(cfg.FFmpegPath),
	}

	if cfg.NotifyAddr != "" {
		s.hub = notify.NewHub()
		go s.hub.Run()
		s.server = notify.NewServer(s.hub, cfg.NotifyAddr, cfg.NotifySecret)
		s.server.Start()
	}

	return s, nil
}

// OutputFolder 返回输出目录的绝对路径
func (s *SpotDownloader) OutputFolder() string {
	return s.outputFolder
}

// Close 停止进度端点和 Hub
func (s *SpotDownloader) Close() {
	if s.server != nil {
		s.server.Shutdown(context.Background())
	}
	if s.hub != nil {
		s.hub.Stop()
	}
}

// resolveAll 把标识符列表展开成平铺的曲目列表。
// 单个标识符解析失败只影响它自己的曲目，记录后继续处理其余标识符。
func (s *SpotDownloader) resolveAll(ctx context.Context, identifiers []string) ([]model.TrackReference, []download.UnresolvedIdentifier) {
	var refs []model.TrackReference
	var unresolved []download.UnresolvedIdentifier

	for _, id := range identifiers {
		if cached := cache.GetResolved(ctx, id); cached != nil {
			logger.Debug("resolve cache hit", logger.String("identifier", id))
			refs = append(refs, cached...)
			continue
		}

		resolved, err := s.session.Resolve(ctx, id)
		if err != nil {
			logger.Warn("identifier resolution failed",
				logger.String("identifier", id),
				logger.ErrorField(err))
			unresolved = append(unresolved, download.UnresolvedIdentifier{Identifier: id, Err: err})
			continue
		}
		cache.PutResolved(ctx, id, resolved)
		refs = append(refs, resolved...)
	}
	return refs, unresolved
}

// DownloadTracks 下载一批内容标识符指向的全部曲目。
// parallel 和 compression 传非正数时使用配置默认值。
func (s *SpotDownloader) DownloadTracks(ctx context.Context, identifiers []string, parallel, compression int, format string) (*download.Report, error) {
	if format == "" {
		format = s.cfg.DefaultFormat
	}
	f, err := audio.ParseFormat(format)
	if err != nil {
		return nil, &download.TaskError{Kind: download.KindConfig, Err: err}
	}
	if parallel <= 0 {
		parallel = s.cfg.DefaultParallel
	}
	if compression < 0 {
		compression = s.cfg.DefaultCompression
	}

	refs, unresolved := s.resolveAll(ctx, identifiers)

	var sink progress.Sink = progress.NoopSink{}
	if s.hub != nil {
		sink = s.hub
	}
	reporter := progress.NewReporter(sink)
	defer reporter.Close()

	dl := download.NewDownloader(s.session, s.transcoder, reporter)
	report, err := dl.Run(ctx, refs, download.Options{
		Destination: s.outputFolder,
		Parallel:    parallel,
		Compression: compression,
		Format:      f,
	})
	if err != nil {
		return nil, err
	}
	report.Unresolved = unresolved

	s.recordRun(ctx, report, f)
	return report, nil
}

// recordRun 把终态结果写进历史库并镜像成功的文件，两者都是可选旁路
func (s *SpotDownloader) recordRun(ctx context.Context, report *download.Report, format audio.Format) {
	for _, outcome := range report.Succeeded() {
		storage.MirrorFile(ctx, s.cfg.MinioBucket, outcome.Path)
	}

	if db.DB == nil {
		return
	}

	runID := uuid.NewString()
	repo := repository.NewMySQLHistoryRepository()
	for _, outcome := range report.Outcomes {
		rec := &model.DownloadRecord{
			RunID:      runID,
			TrackID:    outcome.Ref.ID,
			Title:      outcome.Ref.Title,
			Format:     string(format),
			OutputPath: outcome.Path,
			Succeeded:  !outcome.Failed(),
		}
		if outcome.Err != nil {
			rec.FailKind = string(outcome.Err.Kind)
			rec.FailReason = outcome.Err.Error()
		}
		if _, err := repo.RecordOutcome(rec); err != nil {
			logger.Warn("history record failed",
				logger.String("track", outcome.Ref.ID),
				logger.ErrorField(err))
		}
	}
}
