package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gorilla/mux"
	"github.com/zlnvch/heartfolio/api"
	"github.com/zlnvch/heartfolio/config"
	"github.com/zlnvch/heartfolio/kv"
	"github.com/zlnvch/heartfolio/kv/redis"
	"github.com/zlnvch/heartfolio/kv/sqlite"
	"github.com/zlnvch/heartfolio/mq/sqsmq"
	"github.com/zlnvch/heartfolio/objects"
	"github.com/zlnvch/heartfolio/objects/minio"
	"github.com/zlnvch/heartfolio/repository"
	"github.com/zlnvch/heartfolio/store/dynamo"
	"github.com/zlnvch/heartfolio/worker"
	"golang.org/x/oauth2"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load(os.Args[1:], os.Getenv)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	heartfolioStore, err := dynamo.NewDynamoHeartfolioStore(ctx, cfg.DevMode, cfg.Documents.DynamoDBEndpoint, cfg.Documents.DynamoDBTable)
	if err != nil {
		log.Fatalf("Failed to create dynamodb store: %v", err)
	}

	jobQueue, err := sqsmq.NewSQSMessageQueue(ctx, cfg.DevMode, cfg.Queue.SQSEndpoint, cfg.Queue.Name)
	if err != nil {
		log.Fatalf("Failed to create SQS MQ: %v", err)
	}

	var backend kv.Backend
	var pubsub kv.PubSub
	switch cfg.KV.Backend {
	case config.KVSQLite:
		sqliteKV, err := sqlite.NewSQLiteKV(ctx, cfg.KV.SQLitePath)
		if err != nil {
			log.Fatalf("Failed to open sqlite kv: %v", err)
		}
		defer sqliteKV.Close()
		// A single process owns the file, so notices never leave it
		backend, pubsub = sqliteKV, kv.NewLocalPubSub()
	default:
		redisKV, err := redis.NewRedisKV(ctx, cfg.DevMode, cfg.KV.RedisEndpoint)
		if err != nil {
			log.Fatalf("Failed to create redis kv: %v", err)
		}
		defer redisKV.Close()
		backend, pubsub = redisKV, redisKV
	}
	workspace := kv.NewScopedStore(backend)

	repos := repository.NewRemote(heartfolioStore)
	if cfg.Documents.Store == config.DocumentsLocal {
		repos = repository.NewLocal(workspace)
	}

	// Left as a nil interface when no bucket is configured
	var images objects.ImageStore
	if cfg.Images.Endpoint != "" {
		minioStore, err := minio.NewMinioImageStore(ctx, minio.Options{
			Endpoint:  cfg.Images.Endpoint,
			AccessKey: cfg.Images.AccessKey,
			SecretKey: cfg.Images.SecretKey,
			UseSSL:    cfg.Images.UseSSL,
			Bucket:    cfg.Images.Bucket,
		})
		if err != nil {
			log.Fatalf("Failed to create minio image store: %v", err)
		}
		images = minioStore
	} else {
		log.Printf("No image store configured, uploads are disabled")
	}

	var mailer worker.Mailer = worker.LogMailer{}
	if cfg.Mail.SMTPHost != "" {
		mailer = worker.NewSMTPMailer(
			cfg.Mail.SMTPHost,
			cfg.Mail.SMTPPort,
			cfg.Mail.Username,
			cfg.Mail.Password,
			cfg.Mail.From,
			cfg.Mail.ResetURL,
		)
	} else {
		log.Printf("No SMTP relay configured, reset tokens are only logged")
	}

	oauthConfigs := make(map[string]*oauth2.Config, len(cfg.OAuth))
	for provider, p := range cfg.OAuth {
		if p.ClientID == "" {
			continue
		}
		oauthConfigs[provider] = &oauth2.Config{
			ClientID:     p.ClientID,
			ClientSecret: p.ClientSecret,
			RedirectURL:  p.RedirectURL,
		}
	}

	jwtSecret, err := cfg.JWTKey()
	if err != nil {
		log.Fatalf("Failed to read jwt secret: %v", err)
	}

	shutdownCtx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer stop()

	heartfolioApi, err := api.NewHeartfolioAPI(
		api.Backends{
			Store:     heartfolioStore,
			Repos:     repos,
			Workspace: workspace,
			PubSub:    pubsub,
			Images:    images,
			JobQueue:  jobQueue,
			Mailer:    mailer,
		},
		api.WriterOptions{
			BufferSize:   cfg.Persister.BufferSize,
			WriteTimeout: cfg.Persister.WriteTimeout,
		},
		oauthConfigs,
		jwtSecret,
		shutdownCtx,
	)
	if err != nil {
		log.Fatalf("Failed to create heartfolio api: %v", err)
	}

	router := mux.NewRouter()
	heartfolioApi.RegisterRoutes(router, cfg.AllowedOrigin)

	server := &http.Server{Addr: ":" + cfg.HostPort, Handler: router}
	go func() {
		<-shutdownCtx.Done()
		server.Shutdown(context.Background())
	}()

	log.Printf("Starting server on host port: %s\n", cfg.HostPort)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}

	log.Printf("Server shutting down...")
}
