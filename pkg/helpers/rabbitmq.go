package helpers

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// RabbitPublisher wraps an AMQP channel bound to a durable topic exchange.
type RabbitPublisher struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	Exchange string
}

// RabbitTopology describes the exchange and, optionally, a queue bound to it.
type RabbitTopology struct {
	Exchange    string
	Queue       string
	BindingKeys []string
}

func dialRabbit(url string, topo RabbitTopology) (*amqp.Connection, *amqp.Channel, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, err
	}
	fail := func(err error) (*amqp.Connection, *amqp.Channel, error) {
		_ = ch.Close()
		_ = conn.Close()
		return nil, nil, err
	}

	if err := ch.ExchangeDeclare(
		topo.Exchange,
		amqp.ExchangeTopic,
		true,  // durable
		false, // autoDelete
		false, // internal
		false, // noWait
		nil,
	); err != nil {
		return fail(err)
	}
	if topo.Queue == "" {
		return conn, ch, nil
	}

	if _, err := ch.QueueDeclare(topo.Queue, true, false, false, false, nil); err != nil {
		return fail(err)
	}
	keys := topo.BindingKeys
	if len(keys) == 0 {
		keys = []string{"#"}
	}
	for _, key := range keys {
		if err := ch.QueueBind(topo.Queue, key, topo.Exchange, false, nil); err != nil {
			return fail(err)
		}
	}
	return conn, ch, nil
}

func NewRabbitPublisher(url string, topo RabbitTopology) (*RabbitPublisher, error) {
	conn, ch, err := dialRabbit(url, topo)
	if err != nil {
		return nil, err
	}
	return &RabbitPublisher{conn: conn, ch: ch, Exchange: topo.Exchange}, nil
}

func (p *RabbitPublisher) Close() {
	if p == nil {
		return
	}
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
}

// PublishJSON publishes a persistent JSON message with the given routing key.
func (p *RabbitPublisher) PublishJSON(ctx context.Context, routingKey, messageID string, body any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return err
	}
	return p.ch.PublishWithContext(ctx,
		p.Exchange,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    messageID,
			Type:         routingKey,
			Timestamp:    time.Now().UTC(),
			Body:         b,
		},
	)
}

// RabbitConsumer reads deliveries from a queue bound to the exchange.
type RabbitConsumer struct {
	conn  *amqp.Connection
	ch    *amqp.Channel
	Queue string
}

func NewRabbitConsumer(url string, topo RabbitTopology, prefetch int) (*RabbitConsumer, error) {
	conn, ch, err := dialRabbit(url, topo)
	if err != nil {
		return nil, err
	}
	if prefetch > 0 {
		if err := ch.Qos(prefetch, 0, false); err != nil {
			_ = ch.Close()
			_ = conn.Close()
			return nil, err
		}
	}
	return &RabbitConsumer{conn: conn, ch: ch, Queue: topo.Queue}, nil
}

func (c *RabbitConsumer) Deliveries() (<-chan amqp.Delivery, error) {
	return c.ch.Consume(c.Queue, "", false, false, false, false, nil)
}

func (c *RabbitConsumer) Close() {
	if c == nil {
		return
	}
	if c.ch != nil {
		_ = c.ch.Close()
	}
	if c.conn != nil {
		_ = c.conn.Close()
	}
}
