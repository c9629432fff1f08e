package storage

import (
	"context"
	"fmt"
	"strings"

	"skillmatch/internal/config"
	"skillmatch/internal/logger"
)

// Storage 聚合所有存储依赖
type Storage struct {
	MySQL    *MySQL
	Redis    *Redis
	RabbitMQ *RabbitMQ
}

// NewStorage 初始化存储组件。MySQL是必需的，Redis和RabbitMQ失败时降级运行
func NewStorage(ctx context.Context, cfg *config.Config) (*Storage, error) {
	if cfg == nil {
		return nil, fmt.Errorf("配置不能为空")
	}

	s := &Storage{}
	var warnings []string
	var err error

	s.MySQL, err = NewMySQL(&cfg.MySQL)
	if err != nil {
		return nil, fmt.Errorf("初始化MySQL失败 (%s): %w", cfg.MySQLDSNHost(), err)
	}
	logger.Info().Str("target", cfg.MySQLDSNHost()).Msg("MySQL连接成功")

	if cfg.Redis.Address != "" {
		s.Redis, err = NewRedisAdapter(&cfg.Redis)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("Redis: %v", err))
		} else {
			logger.Info().Str("address", cfg.Redis.Address).Msg("Redis连接成功")
		}
	}

	if cfg.Events.Enabled && cfg.RabbitMQ.URL != "" {
		s.RabbitMQ, err = NewRabbitMQ(&cfg.RabbitMQ)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("RabbitMQ: %v", err))
		} else if err := s.RabbitMQ.EnsureExchange(cfg.RabbitMQ.MatchEventsExchange, "topic", true); err != nil {
			warnings = append(warnings, fmt.Sprintf("RabbitMQ exchange: %v", err))
		}
	}

	if len(warnings) > 0 {
		logger.Warn().Str("failed", strings.Join(warnings, "; ")).Msg("部分存储组件初始化失败，以降级模式运行")
	}
	return s, nil
}

// Close 关闭所有连接
func (s *Storage) Close() {
	if s.RabbitMQ != nil {
		if err := s.RabbitMQ.Close(); err != nil {
			logger.Error().Err(err).Msg("关闭RabbitMQ连接失败")
		}
	}
	if s.MySQL != nil {
		if err := s.MySQL.Close(); err != nil {
			logger.Error().Err(err).Msg("关闭MySQL连接失败")
		}
	}
	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil {
			logger.Error().Err(err).Msg("关闭Redis连接失败")
		}
	}
}
