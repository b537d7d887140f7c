package kafka

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestProducer_ConcurrentPublish(t *testing.T) {
	p := NewProducer(ProducerConfig{Brokers: []string{"127.0.0.1:1"}})
	defer p.Close()

	// No broker is reachable; publishes fail fast on the context deadline.
	// The point is that concurrent first publishes must not corrupt the
	// writer map.
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	topics := []string{"records", "records", "audit", "audit"}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = p.Publish(ctx, topics[i%len(topics)], "key", map[string]string{"n": "v"})
		}(i)
	}
	wg.Wait()

	assert.Len(t, p.writers, 2)
}

func TestProducer_GetWriterReusesWriter(t *testing.T) {
	p := NewProducer(ProducerConfig{Brokers: []string{"127.0.0.1:1"}})
	defer p.Close()

	first := p.getWriter("records")
	second := p.getWriter("records")
	assert.Same(t, first, second)

	other := p.getWriter("audit")
	assert.NotSame(t, first, other)
}
