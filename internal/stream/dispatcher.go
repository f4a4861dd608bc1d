package stream

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Dispatcher batches ledger-stream messages and flushes them either when
// the batch fills or on a timer tick. It runs in a background goroutine
// so the settlement path never blocks on the broker.
type Dispatcher struct {
	writer   messageWriter
	input    chan kafka.Message
	stop     chan struct{}
	done     chan struct{}
	maxBatch int
	tick     time.Duration
}

func NewDispatcher(writer messageWriter, capacity, maxBatch int, tick time.Duration) *Dispatcher {
	d := &Dispatcher{
		writer:   writer,
		input:    make(chan kafka.Message, capacity),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
		maxBatch: maxBatch,
		tick:     tick,
	}
	go d.loop()
	return d
}

func (d *Dispatcher) loop() {
	defer close(d.done)

	batch := make([]kafka.Message, 0, d.maxBatch)
	t := time.NewTicker(d.tick)
	defer t.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		_ = d.writer.WriteMessages(context.Background(), batch...)
		batch = batch[:0]
	}

	for {
		select {
		case m := <-d.input:
			batch = append(batch, m)
			if len(batch) >= d.maxBatch {
				flush()
			}
		case <-t.C:
			flush()
		case <-d.stop:
			// drain whatever arrived before Stop
			for {
				select {
				case m := <-d.input:
					batch = append(batch, m)
				default:
					flush()
					return
				}
			}
		}
	}
}

// Enqueue hands one message to the dispatcher. When the buffer is full
// the message is dropped; the stream is best-effort and the settlement
// already committed.
func (d *Dispatcher) Enqueue(msg kafka.Message) bool {
	select {
	case d.input <- msg:
		return true
	default:
		return false
	}
}

// Stop flushes pending messages and stops the background loop.
func (d *Dispatcher) Stop() {
	close(d.stop)
	<-d.done
}
