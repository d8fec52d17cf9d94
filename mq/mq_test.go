package mq_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zlnvch/heartfolio/mq"
)

func TestDecodeJob(t *testing.T) {
	body, err := mq.EncodeJob(mq.Job{Type: mq.JobPurgeAccount, UserId: "u1"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"purge_account","userId":"u1"}`, body)

	job, err := mq.DecodeJob(body)
	require.NoError(t, err)
	assert.Equal(t, mq.JobPurgeAccount, job.Type)
	assert.Equal(t, "u1", job.UserId)
}

func TestDecodeJob_Malformed(t *testing.T) {
	_, err := mq.DecodeJob("not json")
	assert.ErrorIs(t, err, mq.ErrMalformedJob)

	_, err = mq.DecodeJob(`{"userId":"u1"}`)
	assert.ErrorIs(t, err, mq.ErrMalformedJob)

	_, err = mq.EncodeJob(mq.Job{})
	assert.ErrorIs(t, err, mq.ErrMalformedJob)
}
