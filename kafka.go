package marketd

import (
	"context"

	"github.com/openmarket/marketd/schema"
	"github.com/segmentio/kafka-go"
)

type KWriter struct {
	w *kafka.Writer
}

func NewKWriter(topic string, uri string) (*KWriter, error) {
	w := &kafka.Writer{
		Addr:     kafka.TCP(uri),
		Topic:    topic,
		Balancer: &kafka.LeastBytes{},
	}

	return &KWriter{
		w: w,
	}, nil
}

func (kw *KWriter) Write(body []byte) error {
	err := kw.w.WriteMessages(
		context.Background(),
		kafka.Message{
			Value: body,
		},
	)
	return err
}

func (kw *KWriter) Close() {
	kw.w.Close()
}

func NewKWriters(uri string) (map[string]*KWriter, error) {
	writers := make(map[string]*KWriter)
	for _, topic := range []string{
		schema.FundedTopic,
		schema.FulfilledTopic,
		schema.ExecutedTopic,
		schema.AccessTopic,
	} {
		kw, err := NewKWriter(topic, uri)
		if err != nil {
			return nil, err
		}
		writers[topic] = kw
	}
	return writers, nil
}
