package main

import (
	appointmenthandler "medibook/internal/appointments/handler"
	appointmentrepo "medibook/internal/appointments/repository"
	appointmentservice "medibook/internal/appointments/service"
	appointmentvalidator "medibook/internal/appointments/validator"
	doctorhandler "medibook/internal/doctors/handler"
	doctorrepo "medibook/internal/doctors/repository"
	doctorservice "medibook/internal/doctors/service"
	doctorvalidator "medibook/internal/doctors/validator"
	"medibook/pkg/app"
	"medibook/pkg/cache"
	"medibook/pkg/config"
	"medibook/pkg/events"
	"medibook/pkg/storage"

	"github.com/joho/godotenv"
)

const ServiceName = "medibook"

func main() {
	_ = godotenv.Load()

	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	cfg.SetRedis()

	cfg.Log.Info("Starting medibook service")

	listCache := cache.New(cfg.Client.Redis, cfg.CacheTTL, cfg.Log)

	producer, err := events.NewProducer(cfg.KafkaBrokers, cfg.KafkaAppointmentsTopic, ServiceName, cfg.Log)
	if err != nil {
		cfg.Log.Fatal("Failed to initialize event producer", "error", err)
	}
	if producer == nil {
		cfg.Log.Info("Kafka not configured, appointment events will not be published")
	}

	var imageStore storage.ImageStore
	if cfg.CloudinaryConfigured() {
		store, err := storage.NewCloudinaryStore(
			cfg.CloudinaryName,
			cfg.CloudinaryAPIKey,
			cfg.CloudinaryAPISecret,
			cfg.CloudinaryFolder,
		)
		if err != nil {
			cfg.Log.Fatal("Failed to initialize Cloudinary", "error", err)
		}
		imageStore = store
	} else {
		cfg.Log.Info("Cloudinary not configured, image uploads disabled")
	}

	doctorValidator := doctorvalidator.NewDoctorValidator(cfg.Log)
	doctorRepo := doctorrepo.NewMongoDoctorRepository(cfg)
	doctorService := doctorservice.NewDoctorService(doctorRepo, doctorValidator, listCache, cfg)

	appointmentValidator := appointmentvalidator.NewAppointmentValidator(cfg.Log)
	appointmentRepo := appointmentrepo.NewMongoAppointmentRepository(cfg)
	lockRepo := appointmentrepo.NewMongoSlotLockRepository(cfg)
	appointmentService := appointmentservice.NewAppointmentService(
		appointmentRepo,
		lockRepo,
		doctorRepo,
		appointmentValidator,
		listCache,
		producer,
		cfg,
	)

	cfg.Log.Info("Services initialized", "database", cfg.MongoDatabaseName)

	serverApp := app.NewApplication(cfg)
	serverApp.SetApp(
		producer,
		doctorhandler.NewDoctorHandler(doctorService, cfg.Log),
		doctorhandler.NewUploadHandler(imageStore, cfg.Log),
		appointmenthandler.NewAppointmentHandler(appointmentService, cfg.Log),
	)
	serverApp.Run()
}
