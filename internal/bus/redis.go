package bus

import (
	"context"
	"encoding/json"

	"dm-gateway/internal/platform/logger"
	"dm-gateway/internal/platform/metrics"

	"github.com/redis/go-redis/v9"
)

// RedisBus 以 Redis pub/sub 實作的事件總線
type RedisBus struct {
	client  *redis.Client
	channel string
}

// NewRedisBus 創建 Redis 事件總線
func NewRedisBus(client *redis.Client, channel string) *RedisBus {
	return &RedisBus{
		client:  client,
		channel: channel,
	}
}

// Publish 發布事件
// 失敗由調用端決定是否忽略（交付編排層會記日誌後繼續）
func (b *RedisBus) Publish(ctx context.Context, env Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}

	if err := b.client.Publish(ctx, b.channel, data).Err(); err != nil {
		metrics.BusPublishFailures.Inc()
		return err
	}

	metrics.BusEventsPublished.WithLabelValues(env.Type).Inc()
	return nil
}

// Subscribe 啟動消費循環
// 每個實例只跑一個消費循環；解析失敗的訊息記日誌後跳過
func (b *RedisBus) Subscribe(ctx context.Context, handler Handler) {
	pubsub := b.client.Subscribe(ctx, b.channel)

	go func() {
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}

				var env Envelope
				if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
					logger.LogWarnf("事件總線收到無法解析的訊息: %v", err)
					continue
				}

				metrics.BusEventsReceived.WithLabelValues(env.Type).Inc()
				handler(env)
			}
		}
	}()
}

// Close 關閉總線
// Redis 客戶端由 driver 層持有並關閉；消費循環隨訂閱的 context 結束
func (b *RedisBus) Close() error {
	return nil
}
