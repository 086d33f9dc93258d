package config

const (
	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"

	EnvRedisURI = "REDIS_URI"
	EnvCacheTTL = "CACHE_TTL"

	EnvKafkaBrokers           = "KAFKA_BROKERS"
	EnvKafkaAppointmentsTopic = "KAFKA_APPOINTMENTS_TOPIC"

	EnvCloudinaryName      = "CLOUDINARY_CLOUD_NAME"
	EnvCloudinaryAPIKey    = "CLOUDINARY_API_KEY"
	EnvCloudinaryAPISecret = "CLOUDINARY_API_SECRET"
	EnvCloudinaryFolder    = "CLOUDINARY_FOLDER"

	EnvPort     = "PORT"
	EnvLogLevel = "LOG_LEVEL"

	EnvRateLimitRequests = "RATE_LIMIT_REQUESTS"
	EnvRateLimitWindow   = "RATE_LIMIT_WINDOW"

	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvIdempotencyTTL = "IDEMPOTENCY_TTL"
	EnvMaxRequestSize = "MAX_REQUEST_SIZE"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"

	EnvSlotLockTTL          = "SLOT_LOCK_TTL"
	EnvDashboardRecentLimit = "DASHBOARD_RECENT_LIMIT"
)
