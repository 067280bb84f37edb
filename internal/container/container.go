package container

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/grpc-user-service/config"
	"github.com/oksasatya/grpc-user-service/internal/interface/grpcclient"
)

// app-level container to share constructed components across packages
// Router can auto-wire modules from these singletons.

var (
	cfg         *config.Config
	logger      *logrus.Logger
	pgPool      *pgxpool.Pool
	redisClient *redis.Client
	grpcClient  *grpcclient.Client
)

func SetConfig(c *config.Config) { cfg = c }

func GetConfig() *config.Config { return cfg }

func SetLogger(l *logrus.Logger) { logger = l }

func GetLogger() *logrus.Logger { return logger }

func SetPGPool(p *pgxpool.Pool) { pgPool = p }

func GetPGPool() *pgxpool.Pool { return pgPool }

func SetRedis(r *redis.Client) { redisClient = r }

func GetRedis() *redis.Client { return redisClient }

func SetGRPCClient(c *grpcclient.Client) { grpcClient = c }

func GetGRPCClient() *grpcclient.Client { return grpcClient }
