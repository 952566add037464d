// Package log 包裝 log/slog，為每個元件附上固定的 component 欄位。
package log

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger 為帶有元件名稱的結構化 logger。
type Logger struct {
	*slog.Logger
	component string
}

// Config 為 logger 設定；Handler 為 nil 時輸出文字格式至 Output（預設 stderr）。
type Config struct {
	Level     slog.Level
	Component string
	Output    io.Writer
	Handler   slog.Handler
}

// DefaultConfig 回傳預設設定：info 等級、輸出至 stderr。
// CLI 的 stdout 保留給使用者可見的結果。
func DefaultConfig() Config {
	return Config{
		Level:     slog.LevelInfo,
		Component: ComponentApp,
		Output:    os.Stderr,
	}
}

// New 依設定建立 logger。
func New(cfg Config) *Logger {
	handler := cfg.Handler
	if handler == nil {
		out := cfg.Output
		if out == nil {
			out = os.Stderr
		}
		handler = slog.NewTextHandler(out, &slog.HandlerOptions{Level: cfg.Level})
	}
	component := cfg.Component
	if component == "" {
		component = ComponentApp
	}
	return &Logger{
		Logger:    slog.New(handler).With(FieldComponent, component),
		component: component,
	}
}

// Discard 回傳丟棄所有輸出的 logger，供測試與未設定 logger 的呼叫端使用。
func Discard() *Logger {
	return New(Config{Handler: slog.NewTextHandler(io.Discard, nil)})
}

// With 回傳附加欄位後的新 logger。
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...), component: l.component}
}

// WithComponent 以新的元件名稱衍生 logger。
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{Logger: l.Logger.With(FieldComponent, component), component: component}
}

// Component 回傳元件名稱。
func (l *Logger) Component() string {
	return l.component
}

// ParseLevel 將 debug/info/warn/error 轉為 slog.Level。
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
}

// SetDefault 設定全域預設 logger。
func SetDefault(l *Logger) {
	slog.SetDefault(l.Logger)
}
