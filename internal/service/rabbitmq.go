package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/google/uuid"
	"github.com/ytvault/playlist-tracker-go/internal/config"
	"github.com/ytvault/playlist-tracker-go/internal/models"
	"github.com/ytvault/playlist-tracker-go/pkg/logger"
)

// ChangePublisher emits an event for every reconciliation pass that changed
// a playlist.
type ChangePublisher interface {
	PublishPlaylistChange(ctx context.Context, playlistID string, entry *models.VersionEntry) error
	Close() error
}

// PlaylistChangeEvent is the wire shape of a change event.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type PlaylistChangeEvent struct {
	PlaylistID    string                     `json:"playlist_id"`
	Version       int                        `json:"version"`
	Timestamp     time.Time                  `json:"timestamp"`
	VideosAdded   []string                   `json:"videos_added"`
	VideosRemoved []string                   `json:"videos_removed"`
	StatusChanges []models.VideoStatusChange `json:"status_changes"`
}

// RabbitMQPublisher publishes change events to a direct exchange with
// publisher confirms enabled.
type RabbitMQPublisher struct {
	conn       *amqp.Connection
	channel    *amqp.Channel
	exchange   string
	routingKey string
}

// NewRabbitMQPublisher connects, declares the exchange, queue, and binding,
// and enables publisher confirms.
func NewRabbitMQPublisher(cfg config.RabbitMQConfig) (*RabbitMQPublisher, error) {
	url := fmt.Sprintf("amqp://%s:%s@%s:%d/", cfg.User, cfg.Password, cfg.Host, cfg.Port)

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := channel.ExchangeDeclare(cfg.Exchange, "direct", true, false, false, false, nil); err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	if _, err := channel.QueueDeclare(cfg.Queue, true, false, false, false, nil); err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("declare queue: %w", err)
	}
	if err := channel.QueueBind(cfg.Queue, cfg.RoutingKey, cfg.Exchange, false, nil); err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("bind queue: %w", err)
	}
	if err := channel.Confirm(false); err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("enable publisher confirms: %w", err)
	}

	logger.Log.Info("rabbitmq publisher connected",
		zap.String("host", cfg.Host),
		zap.String("exchange", cfg.Exchange),
		zap.String("queue", cfg.Queue))

	return &RabbitMQPublisher{
		conn:       conn,
		channel:    channel,
		exchange:   cfg.Exchange,
		routingKey: cfg.RoutingKey,
	}, nil
}

func (p *RabbitMQPublisher) PublishPlaylistChange(ctx context.Context, playlistID string, entry *models.VersionEntry) error {
	event := PlaylistChangeEvent{
		PlaylistID:    playlistID,
		Version:       entry.Version,
		Timestamp:     entry.Timestamp,
		VideosAdded:   entry.VideosAdded,
		VideosRemoved: entry.VideosRemoved,
		StatusChanges: entry.StatusChanges,
	}
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode change event: %w", err)
	}

	confirm, err := p.channel.PublishWithDeferredConfirmWithContext(ctx,
		p.exchange,
		p.routingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    uuid.NewString(),
			Timestamp:    time.Now().UTC(),
			Body:         body,
		})
	if err != nil {
		return fmt.Errorf("publish change event: %w", err)
	}

	ok, err := confirm.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("await publish confirm: %w", err)
	}
	if !ok {
		return fmt.Errorf("change event for %s was nacked by broker", playlistID)
	}

	logger.Log.Debug("change event published",
		zap.String("playlist_id", playlistID),
		zap.Int("version", entry.Version))
	return nil
}

func (p *RabbitMQPublisher) Close() error {
	if err := p.channel.Close(); err != nil {
		p.conn.Close()
		return err
	}
	return p.conn.Close()
}
