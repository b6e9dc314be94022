package kafka

import (
	"context"
	"sync"
	"time"

	"emperror.dev/errors"
	"github.com/lvdashuaibi/littlepoll/config"
	"github.com/lvdashuaibi/littlepoll/internal/model"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

type Consumer struct {
	readers []*kafka.Reader
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

type MessageHandler func(ctx context.Context, event *model.VoteEvent) error

func NewConsumer(cfg config.KafkaConfig) (*Consumer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("未配置Kafka broker")
	}

	ctx, cancel := context.WithCancel(context.Background())

	partitions, err := topicPartitions(ctx, cfg)
	if err != nil {
		cancel()
		return nil, err
	}
	logrus.WithFields(logrus.Fields{"topic": cfg.Topic, "partitions": len(partitions)}).Info("检测到Kafka主题分区")

	readers := make([]*kafka.Reader, 0, len(partitions))
	for _, readerCfg := range readerConfigs(cfg, partitions) {
		readers = append(readers, kafka.NewReader(readerCfg))
	}

	return &Consumer{
		readers: readers,
		ctx:     ctx,
		cancel:  cancel,
	}, nil
}

// readerConfigs 每个分区一个reader，未检测到分区时退回消费者组模式
//
// 投票事件只用于让缓存失效，新的持锁实例从最新位置开始消费，不回放历史。
func readerConfigs(cfg config.KafkaConfig, partitions []int) []kafka.ReaderConfig {
	if len(partitions) == 0 {
		logrus.WithField("group_id", cfg.GroupID).Info("未检测到分区，使用消费者组模式")
		return []kafka.ReaderConfig{{
			Brokers:     cfg.Brokers,
			Topic:       cfg.Topic,
			GroupID:     cfg.GroupID,
			StartOffset: kafka.LastOffset,
			MinBytes:    1,
			MaxBytes:    10e6,
		}}
	}

	configs := make([]kafka.ReaderConfig, 0, len(partitions))
	for i, partition := range partitions {
		configs = append(configs, kafka.ReaderConfig{
			Brokers:     cfg.Brokers,
			Topic:       cfg.Topic,
			Partition:   partition,
			StartOffset: kafka.LastOffset,
			MinBytes:    1,
			MaxBytes:    10e6, // 10MB
		})
		logrus.WithFields(logrus.Fields{"worker": i, "partition": partition}).Debug("消费者工作协程分配分区")
	}
	return configs
}

// StartConsuming 开始消费消息，每个reader一个协程
func (c *Consumer) StartConsuming(handler MessageHandler) {
	for i, reader := range c.readers {
		c.wg.Add(1)
		go func(workerID int, r *kafka.Reader) {
			defer c.wg.Done()
			c.consumeMessages(workerID, r, handler)
		}(i, reader)
	}

	logrus.WithField("workers", len(c.readers)).Info("已启动Kafka消费者")
}

func (c *Consumer) consumeMessages(workerID int, reader *kafka.Reader, handler MessageHandler) {
	log := logrus.WithField("worker", workerID)
	log.Debug("消费者工作协程已启动")

	for {
		m, err := reader.ReadMessage(c.ctx)
		if err != nil {
			if c.ctx.Err() != nil {
				log.Debug("消费者工作协程收到停止信号")
				return
			}
			log.WithError(err).Warn("读取消息失败")
			select {
			case <-c.ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}

		event, err := decodeVoteEvent(m)
		if err != nil {
			log.WithError(err).WithField("offset", m.Offset).Warn("跳过无法解析的消息")
			continue
		}

		if err := handler(c.ctx, event); err != nil {
			log.WithError(err).WithField("poll_id", event.PollID).Warn("处理投票事件失败")
		}
	}
}

// Stop 停止消费
func (c *Consumer) Stop() error {
	logrus.Info("正在停止Kafka消费者...")
	c.cancel()
	c.wg.Wait()

	var errs error
	for _, reader := range c.readers {
		errs = errors.Append(errs, reader.Close())
	}

	logrus.Info("Kafka消费者已停止")
	return errs
}
