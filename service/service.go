package service

import (
	"math/rand/v2"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/zlnvch/heartfolio/kv"
	"github.com/zlnvch/heartfolio/mq"
	"github.com/zlnvch/heartfolio/objects"
	"github.com/zlnvch/heartfolio/repository"
	"github.com/zlnvch/heartfolio/store"
	"github.com/zlnvch/heartfolio/worker"
	"golang.org/x/oauth2"
)

// Pub/sub channels that tell open sessions their state is stale.
const (
	ChannelWorkspaceCleared = "workspace-cleared"
	ChannelUserDeleted      = "user-deleted"
)

type Service struct {
	Store        store.HeartfolioStore
	Repos        *repository.Repositories
	Workspace    *kv.ScopedStore
	PubSub       kv.PubSub
	Images       objects.ImageStore
	MQ           mq.MessageQueue
	Persister    *worker.Persister
	OAuthConfigs map[string]*oauth2.Config
	JWTSecret    []byte

	// Random drives placement jitter and magnet picks, in [0,1)
	Random func() float64

	loginLimiter *attemptLimiter
}

func NewService(
	store store.HeartfolioStore,
	repos *repository.Repositories,
	workspace *kv.ScopedStore,
	pubsub kv.PubSub,
	images objects.ImageStore,
	mq mq.MessageQueue,
	persister *worker.Persister,
	oauthConfigs map[string]*oauth2.Config,
	jwtSecret []byte,
) (*Service, error) {
	oauthConfigs, err := addOauthEndpointsAndScopes(oauthConfigs)
	if err != nil {
		return nil, err
	}

	return &Service{
		Store:        store,
		Repos:        repos,
		Workspace:    workspace,
		PubSub:       pubsub,
		Images:       images,
		MQ:           mq,
		Persister:    persister,
		OAuthConfigs: oauthConfigs,
		JWTSecret:    jwtSecret,
		Random:       rand.Float64,
		loginLimiter: newAttemptLimiter(loginAttemptsPerMinute, loginBurst),
	}, nil
}

// spread returns a value in [-width/2, width/2).
func (s *Service) spread(width float64) float64 {
	return s.Random()*width - width/2
}

func (s *Service) pick(options []string) string {
	i := int(s.Random() * float64(len(options)))
	if i >= len(options) {
		i = len(options) - 1
	}
	return options[i]
}

// newId returns a time-ordered record id.
func newId() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.Must(uuid.NewV4()).String()
	}
	return id.String()
}

// today formats a date the way the mobile client shows it.
func today() string {
	return time.Now().Format("1/2/2006")
}
