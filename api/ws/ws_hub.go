package ws

import (
	"context"
	"encoding/json"
	"log"

	"github.com/zlnvch/heartfolio/kv"
	"github.com/zlnvch/heartfolio/service"
)

type kick struct {
	userId string
	reason string
}

// Hub tracks open sessions per user and closes them when the user's stored
// state is wiped elsewhere, so their in-memory pages cannot write it back.
type Hub struct {
	pubsub        kv.PubSub
	OpenCh        chan *Client
	CloseCh       chan *Client
	KickCh        chan kick
	userToClients map[string]map[*Client]struct{}
}

func NewHub(pubsub kv.PubSub) *Hub {
	return &Hub{
		pubsub:        pubsub,
		OpenCh:        make(chan *Client, 256),
		CloseCh:       make(chan *Client, 256),
		KickCh:        make(chan kick, 64),
		userToClients: make(map[string]map[*Client]struct{}),
	}
}

const maxConnectionsPerUser = 3

func (h *Hub) Run(shutdownCtx context.Context) {
	for {
		select {
		case client := <-h.OpenCh:
			h.open(client)
		case client := <-h.CloseCh:
			h.close(client)
		case k := <-h.KickCh:
			h.kick(k)
		case <-shutdownCtx.Done():
			return
		}
	}
}

func (h *Hub) open(client *Client) {
	if _, ok := h.userToClients[client.user.Id]; !ok {
		h.userToClients[client.user.Id] = make(map[*Client]struct{})
	}

	if len(h.userToClients[client.user.Id]) >= maxConnectionsPerUser {
		log.Printf("User %s reached max connections (%d)", client.user.Id, maxConnectionsPerUser)
		client.Close("Too many connections")
		return
	}

	h.userToClients[client.user.Id][client] = struct{}{}
}

func (h *Hub) close(client *Client) {
	delete(h.userToClients[client.user.Id], client)
	if len(h.userToClients[client.user.Id]) == 0 {
		delete(h.userToClients, client.user.Id)
	}
}

func (h *Hub) kick(k kick) {
	clients, ok := h.userToClients[k.userId]
	if !ok {
		return
	}
	for client := range clients {
		client.Close(k.reason)
	}
	delete(h.userToClients, k.userId)
}

// Connections returns how many sessions a user has open. Not safe to call
// while Run is running.
func (h *Hub) Connections(userId string) int {
	return len(h.userToClients[userId])
}

func (h *Hub) InitSubscriptions(shutdownCtx context.Context) error {
	subscribe := func(channel string, reason string) error {
		return h.pubsub.Subscribe(shutdownCtx, channel, func(message []byte) {
			var notice service.SessionNotice
			if err := json.Unmarshal(message, &notice); err != nil {
				log.Printf("Failed to unmarshal %s message: %v", channel, err)
				return
			}
			h.KickCh <- kick{userId: notice.UserId, reason: reason}
		})
	}

	if err := subscribe(service.ChannelUserDeleted, "Account deleted"); err != nil {
		log.Printf("WS hub failed to subscribe to %s: %v", service.ChannelUserDeleted, err)
		return err
	}
	if err := subscribe(service.ChannelWorkspaceCleared, "Workspace cleared"); err != nil {
		log.Printf("WS hub failed to subscribe to %s: %v", service.ChannelWorkspaceCleared, err)
		return err
	}
	return nil
}
