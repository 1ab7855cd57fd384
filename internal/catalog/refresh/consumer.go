// Package refresh reloads the store catalog when a new catalog version is
// announced on Kafka.
package refresh

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/IBM/sarama"

	obs "github.com/mohammed-shakir/supermarkt-search/internal/core/observability"
)

// Event announces that a catalog source has a new version.
type Event struct {
	Version uint64    `json:"version"`
	Source  string    `json:"source"`
	TS      time.Time `json:"ts"`
}

type Reloader interface {
	Reload(ctx context.Context, version string) error
}

type Consumer struct {
	cfg    Config
	logger *slog.Logger
	target Reloader
	dedupe *versionDedupe
}

func New(cfg Config, logger *slog.Logger, target Reloader) *Consumer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Consumer{
		cfg:    cfg,
		logger: logger.With("component", "catalog_refresh"),
		target: target,
		dedupe: newVersionDedupe(cfg.DedupeSize),
	}
}

// Start joins the consumer group and blocks until ctx is done.
func (c *Consumer) Start(ctx context.Context) error {
	if c.target == nil {
		return errors.New("refresh: missing reload target")
	}
	if len(c.cfg.Brokers) == 0 || c.cfg.Topic == "" {
		return errors.New("refresh: brokers and topic are required")
	}

	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_1_0_0
	cfg.Consumer.Group.Session.Timeout = c.cfg.SessionTimeout
	cfg.Consumer.Group.Heartbeat.Interval = c.cfg.Heartbeat
	cfg.Consumer.Group.Rebalance.Timeout = c.cfg.RebalanceTimeout
	if c.cfg.InitialOffsetOldest {
		cfg.Consumer.Offsets.Initial = sarama.OffsetOldest
	} else {
		cfg.Consumer.Offsets.Initial = sarama.OffsetNewest
	}
	cfg.Consumer.Offsets.AutoCommit.Enable = true

	group, err := sarama.NewConsumerGroup(c.cfg.Brokers, c.cfg.GroupID, cfg)
	if err != nil {
		return fmt.Errorf("create consumer group: %w", err)
	}
	defer func() { _ = group.Close() }()

	handler := &groupHandler{process: c.ProcessOne}

	c.logger.Info("catalog refresh consumer starting",
		"brokers", c.cfg.Brokers, "topic", c.cfg.Topic, "group", c.cfg.GroupID)

	for {
		if err := group.Consume(ctx, []string{c.cfg.Topic}, handler); err != nil && ctx.Err() == nil {
			obs.IncKafkaConsumerError("consume")
			c.logger.Error("consumer error", "err", err, "topic", c.cfg.Topic)
		}
		select {
		case <-ctx.Done():
			c.logger.Info("catalog refresh consumer shutting down")
			return nil
		case <-time.After(2 * time.Second):
		}
	}
}

// ProcessOne applies a single refresh event. Undecodable messages are
// logged and skipped; a failed reload is returned so the message is retried.
func (c *Consumer) ProcessOne(ctx context.Context, msg *sarama.ConsumerMessage) error {
	var ev Event
	if err := json.Unmarshal(msg.Value, &ev); err != nil || ev.Version == 0 {
		obs.IncKafkaConsumerError("decode")
		c.logger.WarnContext(ctx, "skipping malformed refresh event",
			"topic", msg.Topic, "partition", msg.Partition, "offset", msg.Offset, "err", err)
		return nil
	}

	source := strings.TrimSpace(ev.Source)
	if source == "" {
		source = "catalog"
	}
	if c.dedupe.stale(source, ev.Version) {
		c.logger.DebugContext(ctx, "dropping stale refresh event",
			"source", source, "version", ev.Version)
		return nil
	}

	version := source + "@" + strconv.FormatUint(ev.Version, 10)
	if err := c.target.Reload(ctx, version); err != nil {
		obs.IncKafkaConsumerError("reload")
		c.logger.ErrorContext(ctx, "catalog reload failed",
			"source", source, "version", ev.Version, "err", err)
		return fmt.Errorf("reload %s: %w", version, err)
	}
	c.dedupe.applied(source, ev.Version)
	return nil
}
