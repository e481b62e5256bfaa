package intake

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/whilber-ai/alert-engine/internal/config"
	"github.com/whilber-ai/alert-engine/internal/models"
	"github.com/whilber-ai/alert-engine/internal/sequencer"
)

// Consumer reads lifecycle events published by the strategy runners and
// feeds them into the sequencer. A malformed or invalid message is logged
// and skipped; the partition never stalls on bad input.
type Consumer struct {
	reader    *kafka.Reader
	sequencer *sequencer.Sequencer
	logger    zerolog.Logger
}

func NewConsumer(cfg config.KafkaConfig, seq *sequencer.Sequencer, logger zerolog.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	return &Consumer{
		reader:    reader,
		sequencer: seq,
		logger:    logger.With().Str("component", "intake").Logger(),
	}
}

// wireEvent is the message schema the strategy runners publish.
type wireEvent struct {
	StrategyID   string   `json:"strategy_id"`
	StrategyName string   `json:"strategy_name"`
	Symbol       string   `json:"symbol"`
	Type         string   `json:"type"`
	Direction    string   `json:"direction"`
	Price        float64  `json:"price"`
	Confidence   *int     `json:"confidence,omitempty"`
	PnL          *float64 `json:"pnl,omitempty"`
	Detail       string   `json:"detail,omitempty"`
}

func (c *Consumer) Run(ctx context.Context) error {
	c.logger.Info().Str("topic", c.reader.Config().Topic).Msg("Kafka intake started")

	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				c.logger.Info().Msg("Kafka intake stopped")
				return nil
			}
			return err
		}

		var wire wireEvent
		if err := json.Unmarshal(msg.Value, &wire); err != nil {
			c.logger.Warn().Err(err).
				Int64("offset", msg.Offset).
				Msg("skipping malformed event message")
			continue
		}

		ev := models.Event{
			StrategyID:   wire.StrategyID,
			StrategyName: wire.StrategyName,
			Symbol:       wire.Symbol,
			Type:         models.EventType(wire.Type),
			Direction:    wire.Direction,
			Price:        wire.Price,
			Confidence:   wire.Confidence,
			PnL:          wire.PnL,
			Detail:       wire.Detail,
		}
		if _, err := c.sequencer.Append(ctx, ev); err != nil {
			if errors.Is(err, models.ErrInvalidConfig) {
				c.logger.Warn().Err(err).
					Int64("offset", msg.Offset).
					Msg("skipping invalid event message")
				continue
			}
			// Storage failure: back out so the message is redelivered.
			return err
		}
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
