package kafka

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"emperror.dev/errors"
	"github.com/lvdashuaibi/littlepoll/config"
	"github.com/lvdashuaibi/littlepoll/internal/model"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

type Producer struct {
	writer *kafka.Writer
}

func NewProducer(cfg config.KafkaConfig) (*Producer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("未配置Kafka broker")
	}

	partitions, err := topicPartitions(context.Background(), cfg)
	if err != nil {
		return nil, err
	}
	logrus.WithFields(logrus.Fields{"topic": cfg.Topic, "partitions": len(partitions)}).Info("生产者检测到Kafka主题分区")

	// 使用Hash分区器，同一投票活动的事件进入同一分区
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
	}

	return &Producer{writer: writer}, nil
}

// topicPartitions 返回主题的分区ID列表
func topicPartitions(ctx context.Context, cfg config.KafkaConfig) ([]int, error) {
	conn, err := kafka.DialLeader(ctx, "tcp", cfg.Brokers[0], cfg.Topic, 0)
	if err != nil {
		return nil, errors.Wrap(err, "连接Kafka失败")
	}
	defer conn.Close()

	partitions, err := conn.ReadPartitions()
	if err != nil {
		return nil, errors.Wrap(err, "读取分区信息失败")
	}

	var ids []int
	for _, p := range partitions {
		if p.Topic == cfg.Topic {
			ids = append(ids, p.ID)
		}
	}
	return ids, nil
}

func encodeVoteEvent(event *model.VoteEvent) (kafka.Message, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, errors.Wrap(err, "序列化投票事件失败")
	}
	return kafka.Message{
		Key:   []byte(strconv.FormatInt(event.PollID, 10)),
		Value: data,
		Time:  event.VotedAt,
	}, nil
}

func decodeVoteEvent(m kafka.Message) (*model.VoteEvent, error) {
	var event model.VoteEvent
	if err := json.Unmarshal(m.Value, &event); err != nil {
		return nil, errors.Wrap(err, "解析投票事件失败")
	}
	if event.PollID == 0 {
		return nil, errors.New("投票事件缺少pollId")
	}
	return &event, nil
}

// PublishVoteEvent 发送投票事件到Kafka
func (p *Producer) PublishVoteEvent(ctx context.Context, event *model.VoteEvent) error {
	if event.VotedAt.IsZero() {
		event.VotedAt = time.Now()
	}
	msg, err := encodeVoteEvent(event)
	if err != nil {
		return err
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return errors.Wrap(err, "发送投票事件失败")
	}
	return nil
}

// Close 关闭Kafka生产者
func (p *Producer) Close() error {
	return p.writer.Close()
}
