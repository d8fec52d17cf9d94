package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/zlnvch/heartfolio/models"
	"github.com/zlnvch/heartfolio/mq"
)

// SessionNotice is published when a user's stored state changed under any
// open sessions.
type SessionNotice struct {
	UserId string `json:"userId"`
}

func (s *Service) notifySessions(ctx context.Context, channel string, userId string) {
	if s.PubSub == nil {
		return
	}
	b, err := json.Marshal(SessionNotice{UserId: userId})
	if err != nil {
		return
	}
	if err := s.PubSub.Publish(ctx, channel, b); err != nil {
		log.Printf("Failed to publish %s for user %s: %v", channel, userId, err)
	}
}

// invalidateWrites drops the user's queued page writes and detaches every
// page already open, so nothing stale lands after a wipe.
func (s *Service) invalidateWrites(userId string) {
	if s.Persister != nil {
		s.Persister.Invalidate(userId)
	}
}

// ClearWorkspace wipes the user's key-value namespace and tells open
// sessions to drop their in-memory state. The result is awaited.
func (s *Service) ClearWorkspace(ctx context.Context, userId string) error {
	s.invalidateWrites(userId)
	if err := s.Workspace.ClearWorkspace(ctx, userId); err != nil {
		return fmt.Errorf("clear workspace: %w", err)
	}
	s.notifySessions(ctx, ChannelWorkspaceCleared, userId)
	return nil
}

// PurgeAccount queues deletion of every document and image of the user.
// The account itself stays.
func (s *Service) PurgeAccount(ctx context.Context, userId string) error {
	s.invalidateWrites(userId)
	if err := s.MQ.Send(ctx, mq.Job{Type: mq.JobPurgeAccount, UserId: userId}); err != nil {
		return fmt.Errorf("queue purge: %w", err)
	}
	s.notifySessions(ctx, ChannelWorkspaceCleared, userId)
	return nil
}

func (s *Service) DeleteUser(ctx context.Context, user models.User) error {
	if err := s.Store.DeleteUser(ctx, user.Provider, user.ProviderId); err != nil {
		return err
	}
	s.invalidateWrites(user.Id)

	// Async side-effects - return to caller as soon as as store operation is done
	go func() {
		s.notifySessions(context.Background(), ChannelUserDeleted, user.Id)

		job := mq.Job{
			Type:       mq.JobPurgeAccount,
			UserId:     user.Id,
			Provider:   user.Provider,
			ProviderId: user.ProviderId,
		}
		if err := s.MQ.Send(context.Background(), job); err != nil {
			log.Printf("Failed to queue purge of deleted user %s: %v", user.Id, err)
		}
	}()

	return nil
}
