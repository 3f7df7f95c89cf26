package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"songrab/cache"
	"songrab/config"
	"songrab/core/service"
	"songrab/db"
	"songrab/logger"
	"songrab/storage"
)

var (
	parallel    int
	compression int
	format      string
)

var downloadCmd = &cobra.Command{
	Use:   "download [content urls...]",
	Short: "下载曲目、专辑或歌单",
	Long: `把一个或多个内容链接展开成曲目并下载到本地。

支持曲目、专辑、歌单三种链接，示例：
  songrab download https://open.example.com/track/4uLU6hMCjMI75M1A2tKUQC
  songrab download -f flac -c 8 spot:album:6G9fHYDCoyEErUkHrFYfs4`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Load()

		// 可选后端：配置了才初始化，连不上只降级不中断
		if cfg.RedisHost != "" {
			if err := cache.ConnectRedis(cfg); err != nil {
				logger.Warn("redis unavailable, resolve cache disabled", logger.ErrorField(err))
			}
			defer cache.CloseRedis()
		}
		if cfg.MinioEndpoint != "" {
			if err := storage.InitMinio(cfg); err != nil {
				logger.Warn("minio unavailable, mirror disabled", logger.ErrorField(err))
			}
		}
		if cfg.DBHost != "" {
			if err := db.ConnectDB(cfg); err != nil {
				logger.Warn("mysql unavailable, history disabled", logger.ErrorField(err))
			} else {
				if err := db.ConnectGormDB(cfg); err != nil {
					logger.Warn("history migration failed", logger.ErrorField(err))
				}
				defer db.CloseDB()
				defer db.CloseGormDB()
			}
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		dl, err := service.New(ctx, cfg)
		if err != nil {
			logger.Fatal("downloader init failed", logger.ErrorField(err))
		}
		defer dl.Close()

		report, err := dl.DownloadTracks(ctx, args, parallel, compression, format)
		if err != nil {
			logger.Fatal("download aborted", logger.ErrorField(err))
		}

		for _, o := range report.Succeeded() {
			fmt.Printf("ok      %s\n", o.Path)
		}
		for _, o := range report.Failed() {
			fmt.Printf("failed  %s (%s): %v\n", o.Ref.Title, o.Err.Kind, o.Err.Err)
		}
		for _, u := range report.Unresolved {
			fmt.Printf("skipped %s: %v\n", u.Identifier, u.Err)
		}

		if len(report.Failed()) > 0 || len(report.Unresolved) > 0 {
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(downloadCmd)

	downloadCmd.Flags().IntVarP(&parallel, "parallel", "p", 0, "同时下载的曲目数，默认 5")
	downloadCmd.Flags().IntVarP(&compression, "compression", "c", -1, "FLAC 压缩级别 0-8，默认 4")
	downloadCmd.Flags().StringVarP(&format, "format", "f", "flac", "输出格式：flac 或 mp3")
}
