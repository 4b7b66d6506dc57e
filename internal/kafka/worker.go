package kafka

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
)

// frame is one raw websocket frame waiting to be published.
type frame struct {
	topic   string
	key     string
	payload []byte
}

// worker drains the sink queue and publishes through the pool.
type worker struct {
	// id is the worker's identifier, used in logs
	id int
	// sender publishes the frames
	sender MessageSender
	// queue receives frames to be sent to Kafka
	queue <-chan frame
	// wg is used to signal when the worker has completed
	wg     *sync.WaitGroup
	logger *logrus.Entry
}

func newWorker(id int, sender MessageSender, queue <-chan frame, wg *sync.WaitGroup) *worker {
	return &worker{
		id:     id,
		sender: sender,
		queue:  queue,
		wg:     wg,
		logger: logrus.WithFields(logrus.Fields{"component": "kafka_sink_worker", "worker_id": id}),
	}
}

// run processes frames until the queue is closed or ctx is cancelled.
// Frames still queued when ctx is cancelled are dropped.
func (w *worker) run(ctx context.Context) {
	defer w.wg.Done()

	for {
		select {
		case <-ctx.Done():
			w.logger.Debug("Context cancelled, stopping worker")
			return
		case f, ok := <-w.queue:
			if !ok {
				w.logger.Debug("Queue closed, stopping worker")
				return
			}
			if err := w.send(ctx, f); err != nil {
				w.logger.WithError(err).Warnf("Failed to publish frame to %s", f.topic)
			}
		}
	}
}

func (w *worker) send(ctx context.Context, f frame) error {
	if ms, ok := w.sender.(interface {
		SendMessage(ctx context.Context, msg Message) error
	}); ok {
		return ms.SendMessage(ctx, Message{Topic: f.topic, Key: f.key, Payload: f.payload})
	}
	return w.sender.Send(ctx, f.topic, f.payload)
}
