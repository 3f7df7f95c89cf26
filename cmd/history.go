package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"songrab/config"
	"songrab/db"
	"songrab/logger"
	"songrab/model"
	"songrab/repository"
)

var (
	historyRunID   string
	historyTrackID string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "查询下载历史记录",
	Long: `按运行 ID 或曲目 ID 查询历史库中的下载记录。

需要配置 MySQL（DB_HOST 等），示例：
  songrab history --run 3f1c...-uuid
  songrab history --track 4uLU6hMCjMI75M1A2tKUQC`,
	Run: func(cmd *cobra.Command, args []string) {
		if (historyRunID == "") == (historyTrackID == "") {
			fmt.Fprintln(os.Stderr, "exactly one of --run or --track is required")
			os.Exit(1)
		}

		cfg := config.Load()
		if cfg.DBHost == "" {
			fmt.Fprintln(os.Stderr, "mysql is not configured, no history available")
			os.Exit(1)
		}
		if err := db.ConnectDB(cfg); err != nil {
			logger.Fatal("mysql connection failed", logger.ErrorField(err))
		}
		defer db.CloseDB()

		repo := repository.NewMySQLHistoryRepository()
		var records []*model.DownloadRecord
		var err error
		if historyRunID != "" {
			records, err = repo.GetRecordsByRunID(historyRunID)
		} else {
			records, err = repo.GetRecordsByTrackID(historyTrackID)
		}
		if err != nil {
			logger.Fatal("history query failed", logger.ErrorField(err))
		}

		if len(records) == 0 {
			fmt.Println("no records found")
			return
		}
		for _, rec := range records {
			status := "ok"
			detail := rec.OutputPath
			if !rec.Succeeded {
				status = "failed"
				detail = fmt.Sprintf("%s: %s", rec.FailKind, rec.FailReason)
			}
			fmt.Printf("%s  %-6s  %s  %s  %s\n",
				rec.CreatedAt.Format("2006-01-02 15:04:05"), status, rec.TrackID, rec.Title, detail)
		}
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().StringVar(&historyRunID, "run", "", "按运行 ID 查询")
	historyCmd.Flags().StringVar(&historyTrackID, "track", "", "按曲目 ID 查询")
}
