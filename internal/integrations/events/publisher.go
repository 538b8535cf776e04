package events

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/goccy/go-json"
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	reconnectBaseDelay = 500 * time.Millisecond
	reconnectMaxDelay  = 30 * time.Second
)

// Publisher публикует события записей
type Publisher interface {
	Publish(ctx context.Context, event AppointmentEvent) error
	Close() error
}

// Logger интерфейс логгера издателя
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
}

type amqpChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// session соединение и канал брокера с их уведомлениями о закрытии
type session struct {
	conn       io.Closer
	channel    amqpChannel
	connClosed <-chan *amqp.Error
	chanClosed <-chan *amqp.Error
}

func (s *session) close() {
	_ = s.channel.Close()
	_ = s.conn.Close()
}

type dialFunc func(url, exchange string) (*session, error)

// dialRabbit подключается к брокеру и объявляет exchange
func dialRabbit(url, exchange string) (*session, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnect, err)
	}

	channel, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("%w: open channel: %v", ErrConnect, err)
	}

	if err := channel.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		_ = channel.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("%w: declare exchange %s: %v", ErrConnect, exchange, err)
	}

	return &session{
		conn:       conn,
		channel:    channel,
		connClosed: conn.NotifyClose(make(chan *amqp.Error, 1)),
		chanClosed: channel.NotifyClose(make(chan *amqp.Error, 1)),
	}, nil
}

// RabbitPublisher публикует события в topic exchange RabbitMQ.
// Routing key совпадает с типом события. После обрыва соединения
// переподключается в фоне, пока не вызван Close.
type RabbitPublisher struct {
	url      string
	exchange string
	dial     dialFunc
	logger   Logger

	baseDelay time.Duration
	maxDelay  time.Duration

	mu      sync.Mutex
	current *session

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewRabbitPublisher подключается к брокеру и запускает наблюдение за соединением
func NewRabbitPublisher(url, exchange string, logger Logger) (*RabbitPublisher, error) {
	return newRabbitPublisher(url, exchange, dialRabbit, logger, reconnectBaseDelay, reconnectMaxDelay)
}

func newRabbitPublisher(url, exchange string, dial dialFunc, logger Logger, baseDelay, maxDelay time.Duration) (*RabbitPublisher, error) {
	sess, err := dial(url, exchange)
	if err != nil {
		return nil, err
	}

	p := &RabbitPublisher{
		url:       url,
		exchange:  exchange,
		dial:      dial,
		logger:    logger,
		baseDelay: baseDelay,
		maxDelay:  maxDelay,
		current:   sess,
		done:      make(chan struct{}),
	}

	p.wg.Add(1)
	go p.watch(sess)

	return p, nil
}

func (p *RabbitPublisher) Publish(ctx context.Context, event AppointmentEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("%w: marshal %s: %v", ErrPublish, event.Type, err)
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		MessageId:    event.AppointmentID,
		Timestamp:    event.OccurredAt,
		Type:         string(event.Type),
	}

	// amqp.Channel не безопасен для конкурентной публикации
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.current == nil {
		return fmt.Errorf("%w: %s id=%s: %w", ErrPublish, event.Type, event.AppointmentID, ErrDisconnected)
	}

	if err := p.current.channel.PublishWithContext(ctx, p.exchange, string(event.Type), false, false, msg); err != nil {
		return fmt.Errorf("%w: %s id=%s: %v", ErrPublish, event.Type, event.AppointmentID, err)
	}

	return nil
}

// Close останавливает переподключение и закрывает соединение
func (p *RabbitPublisher) Close() error {
	p.closeOnce.Do(func() {
		close(p.done)

		p.mu.Lock()
		if p.current != nil {
			p.current.close()
			p.current = nil
		}
		p.mu.Unlock()
	})

	p.wg.Wait()
	return nil
}

// watch ждёт закрытия соединения или канала и переподключается
func (p *RabbitPublisher) watch(sess *session) {
	defer p.wg.Done()

	for {
		var reason *amqp.Error
		select {
		case <-p.done:
			return
		case reason = <-sess.connClosed:
		case reason = <-sess.chanClosed:
		}

		// Закрытие по Close приходит тем же путём
		select {
		case <-p.done:
			return
		default:
		}

		p.mu.Lock()
		if p.current == sess {
			p.current = nil
		}
		p.mu.Unlock()
		sess.close()

		if reason != nil {
			p.logger.Warn("RabbitPublisher: connection lost: %v", reason)
		} else {
			p.logger.Warn("RabbitPublisher: connection closed")
		}

		sess = p.reconnect()
		if sess == nil {
			return
		}
	}
}

// reconnect переподключается с экспоненциальной задержкой. Возвращает nil после Close
func (p *RabbitPublisher) reconnect() *session {
	delay := p.baseDelay
	for attempt := 1; ; attempt++ {
		timer := time.NewTimer(delay)
		select {
		case <-p.done:
			timer.Stop()
			return nil
		case <-timer.C:
		}

		sess, err := p.dial(p.url, p.exchange)
		if err != nil {
			p.logger.Warn("RabbitPublisher: reconnect attempt %d failed: %v", attempt, err)
			delay = min(delay*2, p.maxDelay)
			continue
		}

		p.mu.Lock()
		select {
		case <-p.done:
			p.mu.Unlock()
			sess.close()
			return nil
		default:
		}
		p.current = sess
		p.mu.Unlock()

		p.logger.Info("RabbitPublisher: reconnected after %d attempt(s)", attempt)
		return sess
	}
}

// NoopPublisher используется, когда брокер выключен в конфигурации
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, AppointmentEvent) error { return nil }

func (NoopPublisher) Close() error { return nil }
