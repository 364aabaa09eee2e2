package email

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"

	"github.com/jwalitptl/clinic-console/internal/model"
)

type fakeDialer struct {
	sent []*gomail.Message
	err  error
}

func (d *fakeDialer) DialAndSend(m ...*gomail.Message) error {
	if d.err != nil {
		return d.err
	}
	d.sent = append(d.sent, m...)
	return nil
}

func TestSendFeedbackNotice(t *testing.T) {
	d := &fakeDialer{}
	svc := &smtpService{dialer: d, from: "console@clinic.test"}

	evt := model.FeedbackCreatedEvent{
		FeedbackID: uuid.New(),
		ClinicID:   uuid.New(),
		ClinicName: "Sunrise Dental",
		Step:       4,
		Content:    "Gallery upload was slow",
		At:         time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
	require.NoError(t, svc.SendFeedbackNotice(context.Background(), []string{"ops@clinic.test", "cs@clinic.test"}, evt))
	require.Len(t, d.sent, 1)

	m := d.sent[0]
	assert.Equal(t, []string{"console@clinic.test"}, m.GetHeader("From"))
	assert.Equal(t, []string{"ops@clinic.test", "cs@clinic.test"}, m.GetHeader("To"))
	assert.Equal(t, []string{"[clinic-console] Feedback on Sunrise Dental"}, m.GetHeader("Subject"))

	var raw bytes.Buffer
	_, err := m.WriteTo(&raw)
	require.NoError(t, err)
	assert.Contains(t, raw.String(), "Sunrise Dental")
	assert.Contains(t, raw.String(), "Gallery upload was slow")
}

func TestSendWithoutRecipientsIsNoop(t *testing.T) {
	d := &fakeDialer{err: errors.New("must not dial")}
	svc := &smtpService{dialer: d, from: "console@clinic.test"}

	assert.NoError(t, svc.SendCustom(context.Background(), nil, "hi", "body"))
}

func TestSendDialFailure(t *testing.T) {
	d := &fakeDialer{err: errors.New("connection refused")}
	svc := &smtpService{dialer: d, from: "console@clinic.test"}

	err := svc.SendCustom(context.Background(), []string{"ops@clinic.test"}, "hi", "body")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}
