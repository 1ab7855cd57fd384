package refresh

import (
	"time"

	"github.com/mohammed-shakir/supermarkt-search/internal/core/config"
)

type Config struct {
	Brokers             []string
	Topic               string
	GroupID             string
	SessionTimeout      time.Duration
	Heartbeat           time.Duration
	RebalanceTimeout    time.Duration
	InitialOffsetOldest bool
	// DedupeSize bounds the number of sources whose last version is remembered.
	DedupeSize int
}

func ConfigFrom(c config.RefreshCfg) Config {
	return Config{
		Brokers:          config.Brokers(c.Brokers),
		Topic:            c.Topic,
		GroupID:          c.GroupID,
		SessionTimeout:   30 * time.Second,
		Heartbeat:        3 * time.Second,
		RebalanceTimeout: 30 * time.Second,
		// a fresh group only needs the latest catalog version
		InitialOffsetOldest: false,
		DedupeSize:          1024,
	}
}
