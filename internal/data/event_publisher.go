package data

import (
	"context"
	"encoding/json"
	"fmt"

	"subscription-service/internal/biz"
	"subscription-service/internal/conf"

	"github.com/apache/rocketmq-client-go/v2/primitive"
	"github.com/go-kratos/kratos/v2/log"
)

// eventPublisher 计费事件重放通道（RocketMQ 实现）
type eventPublisher struct {
	data  *Data
	topic string
	log   *log.Helper
}

// NewEventPublisher 创建事件发布器（返回 biz.EventPublisher 接口）
func NewEventPublisher(c *conf.Bootstrap, data *Data, logger log.Logger) biz.EventPublisher {
	topic := ""
	if c.Data != nil && c.Data.Rocketmq != nil {
		topic = c.Data.Rocketmq.Topic
	}
	return &eventPublisher{
		data:  data,
		topic: topic,
		log:   log.NewHelper(logger),
	}
}

// Publish 将归一化计费事件投递到队列
func (p *eventPublisher) Publish(ctx context.Context, event *biz.BillingEvent) error {
	if p.data.mq == nil {
		return fmt.Errorf("rocketmq producer is not enabled")
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal billing event failed: %w", err)
	}

	msg := primitive.NewMessage(p.topic, body)
	// 按用户分片，保证同一用户的事件在队列内有序
	if event.UserID != "" {
		msg.WithShardingKey(event.UserID)
	} else if event.ProviderCustomerID != "" {
		msg.WithShardingKey(event.ProviderCustomerID)
	}

	if _, err := p.data.mq.SendSync(ctx, msg); err != nil {
		p.log.Errorf("publish billing event failed: provider=%s, kind=%s, error=%v", event.Provider, event.Kind, err)
		return err
	}
	return nil
}
