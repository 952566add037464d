package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTemp(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

// chdirTemp 切換到空目錄，避免讀到工作目錄下的 .env。
func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoadFile(t *testing.T) {
	dir := chdirTemp(t)
	p := writeTemp(t, dir, "bank.yaml", `
store: sqlite
sqlite_path: /tmp/x.sqlite
first_id: 5000
events:
  backend: kafka
  kafka_brokers: [a:9092, b:9092]
  kafka_topic: t
`)
	cfg, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, StoreSQLite, cfg.StoreBackend)
	assert.Equal(t, "/tmp/x.sqlite", cfg.SQLitePath)
	assert.Equal(t, int64(5000), cfg.FirstID)
	assert.Equal(t, EventsKafka, cfg.EventsBackend)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.KafkaBrokers)
	// 未設定的欄位保留預設值
	assert.Equal(t, "bank.db", cfg.DataPath)
	assert.NoError(t, cfg.Validate())
}

func TestLoadMissingFile(t *testing.T) {
	chdirTemp(t)
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)
	p := writeTemp(t, dir, "bank.yaml", "data_path: from-file.db\npin_salt: file-salt\n")
	t.Setenv("BANK_DATA_PATH", "from-env.db")
	t.Setenv("KAFKA_BROKERS", " x:1 , ,y:2")

	cfg, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, "from-env.db", cfg.DataPath)
	assert.Equal(t, "file-salt", cfg.PINSalt)
	assert.Equal(t, []string{"x:1", "y:2"}, cfg.KafkaBrokers)
}

func TestDotEnvLoaded(t *testing.T) {
	dir := chdirTemp(t)
	writeTemp(t, dir, ".env", "BANK_CIPHER_KEY=from-dotenv\n")
	// godotenv 不覆寫既有變數；確保測試結束後清除
	t.Setenv("BANK_CIPHER_KEY", "")
	os.Unsetenv("BANK_CIPHER_KEY")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.CipherKey)
}

func TestMalformedFirstIDReported(t *testing.T) {
	chdirTemp(t)
	t.Setenv("BANK_FIRST_ID", "10o1")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, int64(1001), cfg.FirstID)
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid BANK_FIRST_ID '10o1'")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"bad store", func(c *Config) { c.StoreBackend = "tape" }, "invalid store 'tape'"},
		{"empty data path", func(c *Config) { c.DataPath = "" }, "data path cannot be empty"},
		{"empty sqlite path", func(c *Config) { c.StoreBackend = StoreSQLite; c.SQLitePath = "" }, "SQLite path cannot be empty"},
		{"bad first id", func(c *Config) { c.FirstID = 0 }, "invalid first id 0"},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }, "unknown log level"},
		{"bad port", func(c *Config) { c.Port = "abc" }, "invalid port 'abc'"},
		{"port range", func(c *Config) { c.Port = "70000" }, "between 1 and 65535"},
		{"bad events", func(c *Config) { c.EventsBackend = "smoke" }, "invalid events backend"},
		{"amqp scheme", func(c *Config) { c.EventsBackend = EventsAMQP; c.AMQPURL = "http://x" }, "invalid AMQP URL scheme"},
		{"kafka topic", func(c *Config) { c.EventsBackend = EventsKafka; c.KafkaTopic = "" }, "Kafka topic cannot be empty"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(c)
			err := c.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateCollectsAll(t *testing.T) {
	c := Default()
	c.Port = "0"
	c.FirstID = -1
	err := c.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid port 0")
	assert.Contains(t, err.Error(), "invalid first id -1")
}
