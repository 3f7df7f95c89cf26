package notify

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"songrab/logger"
)

var wsUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Server 进度订阅端点
// 挂一个 /ws/progress 路由，观察者连上来就能收到之后的事件
type Server struct {
	hub    *Hub
	secret string
	srv    *http.Server
}

// NewServer 创建进度服务
// secret 非空时订阅端点要求携带有效的 JWT
func NewServer(hub *Hub, addr, secret string) *Server {
	s := &Server{hub: hub, secret: secret}

	r := mux.NewRouter()
	r.HandleFunc("/ws/progress", s.subscribeHandler)

	s.srv = &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Start 在独立协程中启动监听
func (s *Server) Start() {
	go func() {
		logger.Info("progress hub listening", logger.String("addr", s.srv.Addr))
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("progress hub server failed", logger.ErrorField(err))
		}
	}()
}

// Shutdown 优雅关闭监听
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// subscribeHandler 升级连接并注册订阅者
func (s *Server) subscribeHandler(w http.ResponseWriter, r *http.Request) {
	if s.secret != "" {
		if err := validateToken(r, s.secret); err != nil {
			logger.Warn("subscriber rejected", logger.ErrorField(err))
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
	}

	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("websocket upgrade failed", logger.ErrorField(err))
		return
	}

	client := &Client{
		hub:  s.hub,
		conn: conn,
		send: make(chan []byte, clientSendBuffer),
	}

	select {
	case s.hub.register <- client:
	case <-s.hub.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}
