package cli

import (
	"fmt"

	"securebank/internal/bank"
	"securebank/internal/cipher"
	"securebank/internal/config"
	"securebank/internal/events"
	"securebank/internal/log"
	"securebank/internal/storage"
)

// openBank 依設定組裝儲存後端、事件發送端與 Bank。
// 回傳的 closers 需在結束時依反序呼叫。
func openBank(cfg *config.Config, logger *log.Logger) (*bank.Bank, []func() error, error) {
	var closers []func() error
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			_ = closers[i]()
		}
	}

	key := cipher.Derive([]byte(cfg.CipherKey))
	var store bank.Store
	switch cfg.StoreBackend {
	case config.StoreFile:
		store = storage.NewFileStore(cfg.DataPath, key, logger)
	case config.StoreSQLite:
		s, err := storage.NewSQLiteStore(cfg.SQLitePath, key, logger)
		if err != nil {
			return nil, nil, err
		}
		closers = append(closers, s.Close)
		store = s
	case config.StoreMemory:
		store = storage.NewMemoryStore()
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}

	var pub events.Publisher
	switch cfg.EventsBackend {
	case config.EventsNone, "":
	case config.EventsAMQP:
		p, err := events.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		closers = append(closers, p.Close)
		pub = p
	case config.EventsKafka:
		p, err := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		closers = append(closers, p.Close)
		pub = p
	default:
		cleanup()
		return nil, nil, fmt.Errorf("unknown events backend %q", cfg.EventsBackend)
	}

	b, err := bank.New(store, bank.Options{
		Salt:      cfg.PINSalt,
		FirstID:   cfg.FirstID,
		Publisher: pub,
		Logger:    logger,
	})
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return b, closers, nil
}
