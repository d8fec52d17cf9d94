package worker

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/zlnvch/heartfolio/kv"
	"github.com/zlnvch/heartfolio/mq"
	"github.com/zlnvch/heartfolio/objects"
	"github.com/zlnvch/heartfolio/repository"
)

// Mailer delivers password reset links.
type Mailer interface {
	SendReset(ctx context.Context, email string, token string) error
}

// LogMailer writes the reset token to the log. Dev mode only.
type LogMailer struct{}

func (LogMailer) SendReset(ctx context.Context, email string, token string) error {
	log.Printf("Password reset for %s: token %s", email, token)
	return nil
}

type MQConsumer struct {
	jobQueue  mq.MessageQueue
	repos     *repository.Repositories
	images    objects.ImageStore
	workspace *kv.ScopedStore
	mailer    Mailer
}

func NewMQConsumer(jobQueue mq.MessageQueue, repos *repository.Repositories, images objects.ImageStore, workspace *kv.ScopedStore, mailer Mailer) *MQConsumer {
	return &MQConsumer{
		jobQueue:  jobQueue,
		repos:     repos,
		images:    images,
		workspace: workspace,
		mailer:    mailer,
	}
}

// Allow up to 5 minutes for the throttled batch deletion of all the user's documents
const visibilityTimeout = 300

func (c *MQConsumer) Run(shutdownCtx context.Context) {
	for {
		msg, err := c.jobQueue.Receive(shutdownCtx, visibilityTimeout)

		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return
			}
			if errors.Is(err, mq.ErrMalformedJob) && msg != nil {
				log.Printf("Dropping malformed job %s: %v", msg.Id, err)
				c.delete(msg)
				continue
			}
			log.Printf("mqConsumer receive error: %v", err)
			continue
		}

		if msg == nil {
			continue
		}

		if err := c.Handle(msg.Job); err != nil {
			// Left on the queue; it becomes visible again after the timeout
			log.Printf("Job %s for user %s failed: %v", msg.Job.Type, msg.Job.UserId, err)
			continue
		}
		c.delete(msg)
	}
}

func (c *MQConsumer) delete(msg *mq.Message) {
	if err := c.jobQueue.Delete(context.Background(), msg); err != nil {
		log.Printf("mqConsumer delete error: %v", err)
	}
}

// Handle executes one job. Unknown job types are logged and treated as done.
func (c *MQConsumer) Handle(job mq.Job) error {
	// timeout should be a little less than queue visibility timeout
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(visibilityTimeout-1)*time.Second)
	defer cancel()

	switch job.Type {
	case mq.JobPurgeAccount:
		return c.purge(ctx, job.UserId)
	case mq.JobResetMail:
		return c.mailer.SendReset(ctx, job.Email, job.Token)
	default:
		log.Printf("Ignoring unknown job type %q", job.Type)
		return nil
	}
}

// purge removes everything an account owns. Every step runs even if an
// earlier one failed; failures are joined so the job is retried.
func (c *MQConsumer) purge(ctx context.Context, userId string) error {
	if err := kv.ValidateUserId(userId); err != nil {
		log.Printf("Refusing to purge user %q: %v", userId, err)
		return nil
	}

	docs, err := c.repos.DeleteAll(ctx, userId)
	if err != nil {
		log.Printf("Failed to delete documents of user %s: %v", userId, err)
	}

	images := 0
	if c.images != nil {
		var imgErr error
		images, imgErr = c.images.DeleteUserImages(ctx, userId)
		if imgErr != nil {
			log.Printf("Failed to delete images of user %s: %v", userId, imgErr)
			err = errors.Join(err, imgErr)
		}
	}

	if c.workspace != nil {
		if wsErr := c.workspace.ClearWorkspace(ctx, userId); wsErr != nil {
			log.Printf("Failed to clear workspace of user %s: %v", userId, wsErr)
			err = errors.Join(err, wsErr)
		}
	}

	if err == nil {
		log.Printf("Purged user %s: %d documents, %d images", userId, docs, images)
	}
	return err
}
