package server

import (
	"context"
	"encoding/json"

	"subscription-service/internal/biz"
	"subscription-service/internal/conf"

	"github.com/apache/rocketmq-client-go/v2"
	"github.com/apache/rocketmq-client-go/v2/consumer"
	"github.com/apache/rocketmq-client-go/v2/primitive"
	"github.com/go-kratos/kratos/v2/log"
)

// MQConsumerServer 消费计费事件队列，逐条对账
type MQConsumerServer struct {
	c           rocketmq.PushConsumer
	reconcileUC *biz.ReconcileUseCase
	conf        *conf.Data
	log         *log.Helper
	enabled     bool
}

// NewMQConsumerServer 创建 RocketMQ 消费者服务
func NewMQConsumerServer(c *conf.Bootstrap, reconcileUC *biz.ReconcileUseCase, logger log.Logger) *MQConsumerServer {
	if c.Data == nil || c.Data.Rocketmq == nil || !c.Data.Rocketmq.Enabled {
		return &MQConsumerServer{enabled: false}
	}

	r, err := rocketmq.NewPushConsumer(
		consumer.WithNsResolver(primitive.NewPassthroughResolver(c.Data.Rocketmq.NameServers)),
		consumer.WithGroupName(c.Data.Rocketmq.GroupName),
		consumer.WithRetry(c.Data.Rocketmq.RetryTimes),
		// 对账按用户串行，顺序消费避免同用户事件乱序
		consumer.WithConsumerModel(consumer.Clustering),
	)
	if err != nil {
		log.NewHelper(logger).Errorf("init consumer error: %v", err)
		return &MQConsumerServer{enabled: false}
	}

	return &MQConsumerServer{
		c:           r,
		reconcileUC: reconcileUC,
		conf:        c.Data,
		log:         log.NewHelper(logger),
		enabled:     true,
	}
}

// Start 启动消费者
func (s *MQConsumerServer) Start(ctx context.Context) error {
	if !s.enabled {
		s.log.Infof("MQConsumerServer is disabled, skipping startup")
		return nil
	}
	if s.c == nil {
		s.log.Warnf("MQConsumerServer consumer is nil, skipping startup")
		return nil
	}

	s.log.Infof("Starting MQConsumerServer, topic: %s", s.conf.Rocketmq.Topic)

	if err := s.c.Subscribe(s.conf.Rocketmq.Topic, consumer.MessageSelector{}, s.handler); err != nil {
		s.log.Errorf("Failed to subscribe to topic %s: %v", s.conf.Rocketmq.Topic, err)
		// 不返回错误，避免导致整个应用启动失败
		return nil
	}

	if err := s.c.Start(); err != nil {
		s.log.Errorf("Failed to start RocketMQ consumer: %v", err)
		return nil
	}

	return nil
}

// Stop 停止消费者
func (s *MQConsumerServer) Stop(ctx context.Context) error {
	if !s.enabled || s.c == nil {
		return nil
	}
	s.log.Info("Stopping MQConsumerServer")
	return s.c.Shutdown()
}

func (s *MQConsumerServer) handler(ctx context.Context, msgs ...*primitive.MessageExt) (consumer.ConsumeResult, error) {
	for _, msg := range msgs {
		var event biz.BillingEvent
		if err := json.Unmarshal(msg.Body, &event); err != nil {
			// 无法解析的消息重试也不会成功，记录后丢弃
			s.log.Errorf("Unmarshal billing event failed: %v, body: %s", err, string(msg.Body))
			continue
		}

		if _, err := s.reconcileUC.Reconcile(ctx, &event); err != nil {
			s.log.Errorf("Reconcile from queue failed: provider=%s, kind=%s, error=%v", event.Provider, event.Kind, err)
			return consumer.ConsumeRetryLater, nil
		}
	}
	return consumer.ConsumeSuccess, nil
}
