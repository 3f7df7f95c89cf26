package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"songrab/config"
	"songrab/core/notify"
	"songrab/logger"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "签发进度订阅令牌",
	Long: `为进度 WebSocket 端点签发一个订阅令牌。

只有设置了 NOTIFY_SECRET 时订阅端点才要求令牌，
观察者用 ws://<NOTIFY_ADDR>/ws/progress?token=<token> 接入。`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Load()
		if cfg.NotifySecret == "" {
			fmt.Println("NOTIFY_SECRET is not set, the progress endpoint is open and needs no token.")
			return
		}

		token, err := notify.NewSubscriberToken(cfg.NotifySecret)
		if err != nil {
			logger.Fatal("token signing failed", logger.ErrorField(err))
		}
		fmt.Println(token)
	},
}

func init() {
	rootCmd.AddCommand(tokenCmd)
}
