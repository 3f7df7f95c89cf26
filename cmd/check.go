package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"songrab/cache"
	"songrab/config"
	"songrab/db"
	"songrab/storage"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "检查可选后端（Redis/MinIO/MySQL）的连接",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Load()
		failed := false

		if cfg.RedisHost != "" {
			if err := cache.ConnectRedis(cfg); err != nil {
				fmt.Printf("redis  FAIL: %v\n", err)
				failed = true
			} else {
				fmt.Println("redis  OK")
				cache.CloseRedis()
			}
		} else {
			fmt.Println("redis  not configured")
		}

		if cfg.MinioEndpoint != "" {
			if err := storage.InitMinio(cfg); err != nil {
				fmt.Printf("minio  FAIL: %v\n", err)
				failed = true
			} else {
				fmt.Println("minio  OK")
			}
		} else {
			fmt.Println("minio  not configured")
		}

		if cfg.DBHost != "" {
			if err := db.ConnectDB(cfg); err != nil {
				fmt.Printf("mysql  FAIL: %v\n", err)
				failed = true
			} else {
				fmt.Println("mysql  OK")
				db.CloseDB()
			}
		} else {
			fmt.Println("mysql  not configured")
		}

		if failed {
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
