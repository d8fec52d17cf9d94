package mq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

type JobType string

const (
	// Delete every remote document, image and kv key of an account
	JobPurgeAccount JobType = "purge_account"
	// Hand a password reset link to the mailer
	JobResetMail JobType = "reset_mail"
)

// Job is the body of every queued message.
type Job struct {
	Type       JobType `json:"type"`
	UserId     string  `json:"userId,omitempty"`
	Provider   string  `json:"provider,omitempty"`
	ProviderId string  `json:"providerId,omitempty"`
	Email      string  `json:"email,omitempty"`
	Token      string  `json:"token,omitempty"`
}

type MessageQueue interface {
	Send(ctx context.Context, job Job) error
	Receive(ctx context.Context, visibilityTimeout int32) (*Message, error)
	Delete(ctx context.Context, msg *Message) error
}

// Message is a received job. Id is the receipt handle needed to delete it.
type Message struct {
	Id  string
	Job Job
}

// ErrMalformedJob is returned together with a non-nil Message when a body
// could not be decoded, so the consumer can still delete it.
var ErrMalformedJob = errors.New("malformed job")

func EncodeJob(job Job) (string, error) {
	if job.Type == "" {
		return "", fmt.Errorf("%w: missing type", ErrMalformedJob)
	}
	b, err := json.Marshal(job)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func DecodeJob(body string) (Job, error) {
	var job Job
	if err := json.Unmarshal([]byte(body), &job); err != nil {
		return Job{}, fmt.Errorf("%w: %v", ErrMalformedJob, err)
	}
	if job.Type == "" {
		return Job{}, fmt.Errorf("%w: missing type", ErrMalformedJob)
	}
	return job, nil
}
