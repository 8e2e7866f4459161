package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"storefront/internal/models"

	amqp "github.com/streadway/amqp"
	"go.uber.org/zap"
)

// OrderExchange is the topic exchange order events are published to.
const OrderExchange = "storefront.orders"

// Channel is the subset of *amqp.Channel the client uses.
type Channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	Close() error
}

// Client holds the RabbitMQ connection and channel.
type Client struct {
	conn    *amqp.Connection
	channel Channel
	mu      sync.Mutex // amqp channels are not safe for concurrent publishing
	logger  *zap.Logger
}

// Config holds RabbitMQ connection details.
type Config struct {
	URL string
}

// OrderEvent is the body of an order event.
type OrderEvent struct {
	Event string       `json:"event"`
	Order models.Order `json:"order"`
}

// NewClient connects to RabbitMQ and declares the order exchange.
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	client, err := NewClientWithChannel(ch, logger)
	if err != nil {
		conn.Close()
		return nil, err
	}
	client.conn = conn
	logger.Info("RabbitMQ client connected", zap.String("exchange", OrderExchange))
	return client, nil
}

// NewClientWithChannel wraps an already open channel and declares the order exchange.
func NewClientWithChannel(ch Channel, logger *zap.Logger) (*Client, error) {
	err := ch.ExchangeDeclare(
		OrderExchange, // name
		"topic",       // kind
		true,          // durable
		false,         // auto-deleted
		false,         // internal
		false,         // no-wait
		nil,           // arguments
	)
	if err != nil {
		ch.Close()
		return nil, fmt.Errorf("failed to declare exchange %s: %w", OrderExchange, err)
	}
	return &Client{
		channel: ch,
		logger:  logger,
	}, nil
}

// Close closes the RabbitMQ channel and connection.
func (c *Client) Close() error {
	var errs []error
	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close channel: %w", err))
		}
	}
	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close connection: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("multiple errors occurred during RabbitMQ client close: %v", errs)
	}
	return nil
}

// PublishOrderEvent publishes order under routingKey (order.created, order.updated).
func (c *Client) PublishOrderEvent(ctx context.Context, routingKey string, order *models.Order) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	body, err := json.Marshal(OrderEvent{Event: routingKey, Order: *order})
	if err != nil {
		return fmt.Errorf("failed to marshal order event: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	err = c.channel.Publish(
		OrderExchange, // exchange
		routingKey,    // routing key
		false,         // mandatory
		false,         // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			MessageId:    order.OrderID,
			Timestamp:    time.Now(),
		})
	if err != nil {
		return fmt.Errorf("failed to publish %s: %w", routingKey, err)
	}

	c.logger.Debug("order event published", zap.String("event", routingKey), zap.String("orderId", order.OrderID))
	return nil
}

// ConsumeOrderEvents binds queue to every order event and hands each decoded event to
// handler until ctx is done. Events the handler fails on are requeued once.
func (c *Client) ConsumeOrderEvents(ctx context.Context, queue string, handler func(context.Context, OrderEvent) error) error {
	q, err := c.channel.QueueDeclare(
		queue, // name
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", queue, err)
	}
	if err := c.channel.QueueBind(q.Name, "order.*", OrderExchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue %s: %w", queue, err)
	}

	msgs, err := c.channel.Consume(
		q.Name, // queue
		"",     // consumer
		false,  // auto-ack
		false,  // exclusive
		false,  // no-local
		false,  // no-wait
		nil,    // args
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				c.handle(ctx, msg, handler)
			}
		}
	}()
	return nil
}

func (c *Client) handle(ctx context.Context, msg amqp.Delivery, handler func(context.Context, OrderEvent) error) {
	var event OrderEvent
	if err := json.Unmarshal(msg.Body, &event); err != nil {
		c.logger.Error("dropping undecodable order event", zap.Uint64("deliveryTag", msg.DeliveryTag), zap.Error(err))
		if nackErr := msg.Nack(false, false); nackErr != nil {
			c.logger.Warn("failed to nack order event", zap.Error(nackErr))
		}
		return
	}
	if err := handler(ctx, event); err != nil {
		c.logger.Warn("order event handler failed", zap.String("orderId", event.Order.OrderID), zap.Error(err))
		if nackErr := msg.Nack(false, !msg.Redelivered); nackErr != nil {
			c.logger.Warn("failed to nack order event", zap.Error(nackErr))
		}
		return
	}
	if ackErr := msg.Ack(false); ackErr != nil {
		c.logger.Warn("failed to ack order event", zap.Error(ackErr))
	}
}

// LogOrderEvent is a handler that records each event in the log.
func LogOrderEvent(logger *zap.Logger) func(context.Context, OrderEvent) error {
	return func(_ context.Context, event OrderEvent) error {
		logger.Info("order event",
			zap.String("event", event.Event),
			zap.String("orderId", event.Order.OrderID),
			zap.String("status", string(event.Order.Status)))
		return nil
	}
}
