package worker

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"ordertx/internal/broker"
)

// RunPool starts concurrency independent consumers in the same group,
// each running Handle. Kafka rebalances partitions across them; each
// consumer instance processes its assigned partitions strictly serially,
// so per-aggregate ordering within a partition is preserved while
// multiple partitions make progress concurrently.
func RunPool(ctx context.Context, newConsumer func() broker.Consumer, handler broker.MessageHandler, concurrency int, logger *zap.Logger) {
	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		consumer := newConsumer()
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			if err := consumer.Run(ctx, handler); err != nil {
				logger.Error("consumer exited with error", zap.Int("consumerId", id), zap.Error(err))
			}
			if err := consumer.Close(); err != nil {
				logger.Error("consumer close failed", zap.Int("consumerId", id), zap.Error(err))
			}
		}(i)
	}
	wg.Wait()
}
