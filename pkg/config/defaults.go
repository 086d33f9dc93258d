package config

import "time"

const (
	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "medibook"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultCacheTTL = 5 * time.Minute

	DefaultKafkaAppointmentsTopic = "appointments.lifecycle"

	DefaultCloudinaryFolder = "doctor-profiles"

	DefaultPort = "8080"

	DefaultLogLevel = "info"

	DefaultRateLimitRequests = 30
	DefaultRateLimitWindow   = 1 * time.Minute

	DefaultRequestTimeout = 30 * time.Second
	DefaultIdempotencyTTL = 24 * time.Hour
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	// Advisory lock lifetime for a single reservation attempt. Long
	// enough to cover the transaction, short enough that a crashed
	// request does not hold a slot hostage.
	DefaultSlotLockTTL = 10 * time.Second

	DefaultDashboardRecentLimit = 5

	DefaultPaginationLimit = 100
)
