// internal/server/handler.go
//
// Package server
// ─────────────────────────────────────────────
// 提供 HTTP RESTful 介面，作為 bank 模組的應用層 (Application Layer)。
// 每個 handler 僅負責：
//  1. 接收與驗證 HTTP 請求（金額字串經 money.Parse 轉為最小單位）
//  2. 呼叫 bank 層執行商業邏輯
//  3. 回傳標準化 JSON 回應，錯誤依類別對應狀態碼
//
// 持久化由 bank 層在每次異動內完成，server 不再持有寫檔鉤子。
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"securebank/internal/bank"
	"securebank/internal/log"
	"securebank/internal/money"
)

// Server 為 HTTP 層核心結構：
// - Bank：注入商業邏輯層（銀行核心）。
// - currency：回應中顯示金額所用的幣別。
type Server struct {
	Bank     *bank.Bank
	currency string
	log      *log.Logger
}

// NewServer 建立新的 HTTP 伺服器。logger 可為 nil。
func NewServer(b *bank.Bank, currency string, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Discard()
	}
	if currency == "" {
		currency = money.DefaultCurrency
	}
	return &Server{Bank: b, currency: currency, log: logger.WithComponent(log.ComponentHTTP)}
}

// accountView 為帳戶回應格式，附帶顯示用金額。
type accountView struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Balance int64  `json:"balance"`
	Display string `json:"display"`
}

func (s *Server) view(a bank.Account) accountView {
	return accountView{ID: a.ID, Name: a.Name, Balance: a.Balance, Display: money.Format(a.Balance, s.currency)}
}

// accounts 處理：
//   - POST /accounts  → 開戶 {name, pin, initial}
//   - GET  /accounts  → 列出所有帳戶
func (s *Server) accounts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var req struct {
			Name    string `json:"name"`
			PIN     string `json:"pin"`
			Initial string `json:"initial"`
		}
		if !decode(w, r, &req) {
			return
		}
		initial := int64(0)
		if req.Initial != "" {
			amt, ok := s.amount(w, req.Initial)
			if !ok {
				return
			}
			initial = amt
		}
		id, err := s.Bank.Open(req.Name, req.PIN, initial)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		// 建立成功 → 回傳 201 Created
		writeJSON(w, http.StatusCreated, s.view(bank.Account{ID: id, Name: req.Name, Balance: initial}))

	case http.MethodGet:
		list := s.Bank.List()
		out := make([]accountView, 0, len(list))
		for _, a := range list {
			out = append(out, s.view(a))
		}
		writeJSON(w, http.StatusOK, out)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// accountSubroutes 處理子路徑（皆為 POST，PIN 放在 body 而非 URL）：
//
//	POST /accounts/{id}/balance   → 查詢餘額 {pin}
//	POST /accounts/{id}/deposit   → 存款 {amount}
//	POST /accounts/{id}/withdraw  → 提款 {pin, amount}
//	POST /accounts/{id}/rename    → 改名 {pin, name}
func (s *Server) accountSubroutes(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/accounts/")
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 2 || parts[0] == "" {
		http.NotFound(w, r)
		return
	}
	id, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		writeErr(w, "invalid account id", http.StatusBadRequest)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		PIN    string `json:"pin"`
		Amount string `json:"amount"`
		Name   string `json:"name"`
	}

	switch parts[1] {
	case "balance":
		if !decode(w, r, &req) {
			return
		}
		bal, err := s.Bank.Balance(id, req.PIN)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"id":      id,
			"balance": bal,
			"display": money.Format(bal, s.currency),
		})

	case "deposit":
		if !decode(w, r, &req) {
			return
		}
		amt, ok := s.amount(w, req.Amount)
		if !ok {
			return
		}
		if err := s.Bank.Deposit(id, amt); err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"message": "deposit success", "id": id, "amount": amt})

	case "withdraw":
		if !decode(w, r, &req) {
			return
		}
		amt, ok := s.amount(w, req.Amount)
		if !ok {
			return
		}
		if err := s.Bank.Withdraw(id, req.PIN, amt); err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"message": "withdraw success", "id": id, "amount": amt})

	case "rename":
		if !decode(w, r, &req) {
			return
		}
		if err := s.Bank.Rename(id, req.PIN, req.Name); err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"message": "rename success", "id": id, "name": req.Name})

	default:
		http.NotFound(w, r)
	}
}

// transfer 處理轉帳：
//
//	POST /transfer  → JSON {from, pin, to, amount}
//
// 只驗證轉出方 PIN；兩帳戶的異動在同一份快照中寫入。
func (s *Server) transfer(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		From   int64  `json:"from"`
		PIN    string `json:"pin"`
		To     int64  `json:"to"`
		Amount string `json:"amount"`
	}
	if !decode(w, r, &req) {
		return
	}
	amt, ok := s.amount(w, req.Amount)
	if !ok {
		return
	}
	if err := s.Bank.Transfer(req.From, req.PIN, req.To, amt); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "transfer success",
		"from":    req.From,
		"to":      req.To,
		"amount":  amt,
	})
}

// health 提供健康檢查端點：GET /health。
func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// maxBodyBytes 為單一請求 body 的上限。
const maxBodyBytes = 1 << 20

// decode 解析 JSON body；過大回 413，其餘解析失敗回 400。
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeErr(w, "request body too large", http.StatusRequestEntityTooLarge)
			return false
		}
		writeErr(w, "invalid JSON body: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

// amount 解析金額字串；失敗時已寫出 400。
func (s *Server) amount(w http.ResponseWriter, raw string) (int64, bool) {
	amt, err := money.Parse(raw)
	if err != nil {
		writeErr(w, err.Error(), http.StatusBadRequest)
		return 0, false
	}
	return amt, true
}

// fail 依錯誤類別輸出狀態碼；伺服器端錯誤另記錄 log。
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	if code >= http.StatusInternalServerError {
		s.log.Error("request failed", "method", r.Method, "path", r.URL.Path, log.FieldError, err)
	}
	writeErr(w, err.Error(), code)
}
