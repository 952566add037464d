// internal/server/router.go
//
// 本檔負責 HTTP 路由註冊；handler.go 定義「如何處理請求」，
// router.go 定義「請求如何被導向」。
package server

import (
	"net/http"
	"time"

	"securebank/internal/log"
)

// Router 建立並回傳整個 HTTP 處理鏈。
func (s *Server) Router() http.Handler {
	v1 := http.NewServeMux()

	// 健康檢查
	v1.HandleFunc("/health", s.health)

	// 帳戶操作：
	//   - GET  /accounts
	//   - POST /accounts
	v1.HandleFunc("/accounts", s.accounts)

	// 帳戶子操作：
	//   - POST /accounts/{id}/balance
	//   - POST /accounts/{id}/deposit
	//   - POST /accounts/{id}/withdraw
	//   - POST /accounts/{id}/rename
	v1.HandleFunc("/accounts/", s.accountSubroutes)

	// 轉帳
	v1.HandleFunc("/transfer", s.transfer)

	// 同一組端點掛在 /api/v1/ 與根路徑下。
	root := http.NewServeMux()
	root.Handle("/api/v1/", http.StripPrefix("/api/v1", v1))
	root.Handle("/", v1)

	return s.logRequests(root)
}

// statusRecorder 記下 handler 寫出的狀態碼。
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// logRequests 以 debug 等級記錄每個請求；請求 body（含 PIN）不記錄。
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.Debug("request",
			"method", r.Method,
			log.FieldPath, r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}
