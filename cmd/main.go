package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lvdashuaibi/littlepoll/config"
	"github.com/lvdashuaibi/littlepoll/internal/api/graph"
	"github.com/lvdashuaibi/littlepoll/internal/api/rest"
	intkafka "github.com/lvdashuaibi/littlepoll/internal/kafka"
	"github.com/lvdashuaibi/littlepoll/internal/lock"
	"github.com/lvdashuaibi/littlepoll/internal/repository"
	"github.com/lvdashuaibi/littlepoll/internal/service"
	"github.com/sirupsen/logrus"
)

const (
	ConsumerLockName = "littlepoll:analytics:consumer:lock"
	ShutdownTimeout  = 10 * time.Second
)

var (
	configPath = flag.String("config", "config/config.yaml", "配置文件路径")
	instanceID = flag.Int("instance", 1, "实例ID，用于区分多个实例")
)

func setupLogging(cfg config.LogConfig) {
	if cfg.Format == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		logrus.WithError(err).Warnf("无效的日志级别 %q，使用 info", cfg.Level)
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
}

func main() {
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logrus.WithError(err).Fatal("加载配置失败")
	}
	setupLogging(cfg.Log)
	log := logrus.WithField("instance", *instanceID)
	log.Info("配置加载成功")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// MySQL
	mysqlRepo, err := repository.NewMySQLRepository(cfg.MySQL)
	if err != nil {
		log.WithError(err).Fatal("初始化MySQL仓库失败")
	}
	defer mysqlRepo.Close()
	if err := mysqlRepo.InitSchema(ctx); err != nil {
		log.WithError(err).Fatal("初始化数据表失败")
	}
	log.Info("MySQL仓库初始化成功")

	// Redis 统计缓存
	var cache service.AnalyticsCache = service.NopCache{}
	if cfg.Redis.Enabled {
		redisRepo, err := repository.NewRedisRepository(cfg.Redis)
		if err != nil {
			log.WithError(err).Fatal("初始化Redis仓库失败")
		}
		defer redisRepo.Close()
		cache = redisRepo
		log.Info("Redis仓库初始化成功")
	}

	// Kafka 生产者
	var publisher service.EventPublisher = service.NopPublisher{}
	if cfg.Kafka.Enabled {
		producer, err := intkafka.NewProducer(cfg.Kafka)
		if err != nil {
			log.WithError(err).Fatal("初始化Kafka生产者失败")
		}
		defer producer.Close()
		publisher = producer
		log.Info("Kafka生产者初始化成功")
	}

	pollService := service.NewPollService(mysqlRepo, cfg.Server.MaxPageSize)
	analyticsService := service.NewAnalyticsService(mysqlRepo, cache)
	participationService := service.NewParticipationService(
		mysqlRepo, analyticsService, publisher, service.NewRewardSource(cfg.Reward.Seed),
	)

	// 只有获取到锁的实例运行投票事件消费者
	if cfg.Kafka.Enabled {
		stop := startConsumer(ctx, cfg, analyticsService, log)
		defer stop()
	}

	var opts rest.Options
	if cfg.GraphQL.Enabled {
		opts.GraphQLPath = cfg.GraphQL.Path
		opts.GraphQLHandler = graph.NewGraphQLServer(pollService, analyticsService).Handler()
		log.WithField("path", cfg.GraphQL.Path).Info("GraphQL服务初始化成功")
	}

	if logrus.GetLevel() < logrus.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}
	handler := rest.NewHandler(pollService, analyticsService, participationService, mysqlRepo)
	router := rest.NewRouter(handler, opts)

	// 支持多实例，端口按实例ID偏移
	serverPort := cfg.Server.Port + *instanceID - 1
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", serverPort),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("启动HTTP服务器失败")
		}
	}()
	log.WithField("addr", srv.Addr).Info("Little Poll 服务已启动")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("正在关闭服务...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("HTTP服务器关闭失败")
	}
}

// startConsumer 后台持续竞争消费者锁，持锁期间运行Kafka消费者，返回停止函数
func startConsumer(ctx context.Context, cfg *config.Config, analytics *service.AnalyticsService, log *logrus.Entry) func() {
	distributedLock, err := lock.New(cfg)
	if err != nil {
		log.WithError(err).Warn("初始化分布式锁失败，本实例不运行消费者")
		return func() {}
	}

	campaignCtx, campaignCancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		lock.Campaign(campaignCtx, distributedLock, ConsumerLockName, cfg.Lock.Timeout, func(leadCtx context.Context) error {
			return runConsumer(leadCtx, cfg.Kafka, analytics, log)
		})
	}()

	return func() {
		campaignCancel()
		<-done
		if err := distributedLock.Close(); err != nil {
			log.WithError(err).Warn("关闭分布式锁失败")
		}
	}
}

// runConsumer 运行投票事件消费者直到 ctx 结束
func runConsumer(ctx context.Context, cfg config.KafkaConfig, analytics *service.AnalyticsService, log *logrus.Entry) error {
	consumer, err := intkafka.NewConsumer(cfg)
	if err != nil {
		return err
	}
	log.Info("获取消费者锁成功，启动投票事件消费者")
	consumer.StartConsuming(analytics.HandleVoteEvent)

	<-ctx.Done()
	log.Info("停止投票事件消费者")
	return consumer.Stop()
}
