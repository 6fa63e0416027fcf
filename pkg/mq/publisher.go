package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"resv-system/backend/config"
)

// 预约事件路由键
const (
	EventReservationCreated   = "reservation.created"
	EventReservationCancelled = "reservation.cancelled"
	EventReservationUpdated   = "reservation.updated"
	EventSlotRemoved          = "reservation.slot_removed"
	EventReservationReviewed  = "reservation.reviewed"
)

// Event 发布到交换机的预约事件
type Event struct {
	Type       string    `json:"type"`
	ResvID     string    `json:"resv_id"`
	RoomID     string    `json:"room_id,omitempty"`
	Username   string    `json:"username,omitempty"`
	Status     int       `json:"status"`
	SlotID     string    `json:"slot_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Publisher RabbitMQ 事件发布器
// 仅负责把预约状态变化广播出去，投递与消费不在本服务范围内
type Publisher struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
	logger   *zap.Logger
}

// NewPublisher 连接 RabbitMQ 并声明 topic 交换机
func NewPublisher(cfg *config.MQConfig, logger *zap.Logger) (*Publisher, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("连接 RabbitMQ 失败: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("打开 channel 失败: %w", err)
	}

	if err := ch.ExchangeDeclare(
		cfg.Exchange,
		"topic",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("声明交换机失败: %w", err)
	}

	logger.Info("RabbitMQ 连接成功", zap.String("exchange", cfg.Exchange))

	return &Publisher{conn: conn, ch: ch, exchange: cfg.Exchange, logger: logger}, nil
}

// Publish 发布事件；失败仅记录日志，不影响已提交的业务事务
func (p *Publisher) Publish(ctx context.Context, evt Event) {
	if p == nil {
		return
	}
	if evt.OccurredAt.IsZero() {
		evt.OccurredAt = time.Now()
	}

	body, err := json.Marshal(evt)
	if err != nil {
		p.logger.Error("序列化预约事件失败", zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = p.ch.PublishWithContext(ctx,
		p.exchange,
		evt.Type,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    evt.OccurredAt,
			Body:         body,
		},
	)
	if err != nil {
		p.logger.Warn("发布预约事件失败",
			zap.String("type", evt.Type),
			zap.String("resv_id", evt.ResvID),
			zap.Error(err),
		)
	}
}

// Close 关闭 channel 与连接
func (p *Publisher) Close() error {
	if p == nil {
		return nil
	}
	if err := p.ch.Close(); err != nil {
		p.logger.Warn("关闭 channel 失败", zap.Error(err))
	}
	return p.conn.Close()
}
