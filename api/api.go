package api

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/zlnvch/heartfolio/api/rest"
	"github.com/zlnvch/heartfolio/api/ws"
	"github.com/zlnvch/heartfolio/kv"
	"github.com/zlnvch/heartfolio/mq"
	"github.com/zlnvch/heartfolio/objects"
	"github.com/zlnvch/heartfolio/repository"
	"github.com/zlnvch/heartfolio/service"
	"github.com/zlnvch/heartfolio/store"
	"github.com/zlnvch/heartfolio/worker"
	"golang.org/x/oauth2"
)

type HeartfolioAPI struct {
	restHandler *rest.Handler
	wsHandler   *ws.Handler
	shutdownCtx context.Context
}

// Backends are the storage and messaging pieces the API runs on. Images may
// be nil, which disables uploads.
type Backends struct {
	Store     store.HeartfolioStore
	Repos     *repository.Repositories
	Workspace *kv.ScopedStore
	PubSub    kv.PubSub
	Images    objects.ImageStore
	JobQueue  mq.MessageQueue
	Mailer    worker.Mailer
}

type WriterOptions struct {
	BufferSize   int
	WriteTimeout time.Duration
}

func NewHeartfolioAPI(
	backends Backends,
	writer WriterOptions,
	oauthConfigs map[string]*oauth2.Config,
	jwtSecret []byte,
	shutdownCtx context.Context,
) (*HeartfolioAPI, error) {
	wsHub := ws.NewHub(backends.PubSub)
	err := wsHub.InitSubscriptions(shutdownCtx)
	if err != nil {
		log.Printf("Failed to start WS Hub subscriptions service: %v", err)
		return &HeartfolioAPI{}, err
	}
	go wsHub.Run(shutdownCtx)

	persister := worker.NewPersister(writer.BufferSize, writer.WriteTimeout)
	go persister.Run(shutdownCtx)

	mailer := backends.Mailer
	if mailer == nil {
		mailer = worker.LogMailer{}
	}
	mqConsumer := worker.NewMQConsumer(backends.JobQueue, backends.Repos, backends.Images, backends.Workspace, mailer)
	go mqConsumer.Run(shutdownCtx)

	svc, err := service.NewService(
		backends.Store,
		backends.Repos,
		backends.Workspace,
		backends.PubSub,
		backends.Images,
		backends.JobQueue,
		persister,
		oauthConfigs,
		jwtSecret,
	)
	if err != nil {
		log.Printf("Failed to create service: %v", err)
		return &HeartfolioAPI{}, err
	}

	return &HeartfolioAPI{
		restHandler: rest.NewHandler(svc),
		wsHandler:   ws.NewHandler(svc, wsHub),
		shutdownCtx: shutdownCtx,
	}, nil
}

func (heartfolioAPI *HeartfolioAPI) RegisterRoutes(router *mux.Router, requiredOrigin string) {
	// Health check endpoint (no auth required)
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods(http.MethodGet)

	wsUpgrader := heartfolioAPI.wsHandler.NewWsUpgrader(requiredOrigin)
	router.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		heartfolioAPI.wsHandler.ServeWS(wsUpgrader, w, r, heartfolioAPI.shutdownCtx)
	})

	heartfolioAPI.restHandler.RegisterRoutes(router)
}
