package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"gopherai-chat/internal/model"
)

type EventSink interface {
	Create(ctx context.Context, event *model.SessionEvent) error
}

// ChannelOpener is satisfied by *amqp.Connection.
type ChannelOpener interface {
	Channel() (*amqp.Channel, error)
}

// SessionEventWorker drains the session event queue into the audit table.
type SessionEventWorker struct {
	conn      ChannelOpener
	sink      EventSink
	queueName string

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewSessionEventWorker(conn ChannelOpener, sink EventSink, queueName string) *SessionEventWorker {
	return &SessionEventWorker{
		conn:      conn,
		sink:      sink,
		queueName: queueName,
	}
}

func (w *SessionEventWorker) Start(ctx context.Context) error {
	if w.cancel != nil {
		return nil
	}

	ch, err := w.conn.Channel()
	if err != nil {
		return fmt.Errorf("open worker channel failed: %w", err)
	}

	if _, err := ch.QueueDeclare(w.queueName, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		return fmt.Errorf("declare worker queue failed: %w", err)
	}
	if err := ch.Qos(16, 0, false); err != nil {
		_ = ch.Close()
		return fmt.Errorf("set worker qos failed: %w", err)
	}

	deliveries, err := ch.Consume(w.queueName, "", false, false, false, false, nil)
	if err != nil {
		_ = ch.Close()
		return fmt.Errorf("consume queue failed: %w", err)
	}

	// Only a consuming worker counts as started, so a failed Start can be retried.
	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer ch.Close()

		for {
			select {
			case <-workerCtx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					slog.Warn("session event deliveries closed", "queue", w.queueName)
					return
				}
				if err := w.handle(workerCtx, d.Body); err != nil {
					slog.Error("session event dropped", "queue", w.queueName, "error", err)
					_ = d.Nack(false, false)
					continue
				}
				_ = d.Ack(false)
			}
		}
	}()

	slog.Info("session event worker started", "queue", w.queueName)
	return nil
}

func (w *SessionEventWorker) handle(ctx context.Context, body []byte) error {
	var event model.SessionEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return fmt.Errorf("decode session event failed: %w", err)
	}
	if event.SessionID == "" || event.Type == "" {
		return fmt.Errorf("session event is missing session id or type")
	}
	event.ID = 0
	if err := w.sink.Create(ctx, &event); err != nil {
		return fmt.Errorf("persist session event failed: %w", err)
	}
	return nil
}

func (w *SessionEventWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
