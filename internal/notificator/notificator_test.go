package notificator

import (
	"context"
	"errors"
	"net/smtp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/core-coin/obolus/internal/live"
	"github.com/core-coin/obolus/internal/models"
	"github.com/core-coin/obolus/pkg/logger"
)

type recordingSender struct {
	mu    sync.Mutex
	sent  map[string]string
	err   error
	panic bool
}

func (r *recordingSender) SendNotification(_ context.Context, to, message string) error {
	if r.panic {
		panic("boom")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sent == nil {
		r.sent = map[string]string{}
	}
	r.sent[to] = message
	return r.err
}

func (r *recordingSender) get(to string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	msg, ok := r.sent[to]
	return msg, ok
}

func TestNotifyTipPublishesToTopic(t *testing.T) {
	hub := live.NewHub(logger.NewNopLogger())
	overlay := live.NewClient(hub, nil, "carol")
	require.True(t, hub.Subscribe(overlay))

	n := NewNotificator(logger.NewNopLogger(), hub, nil, nil)
	event := &models.TipEvent{SenderName: "alice", Amount: 100, Message: "gg"}
	require.NoError(t, n.NotifyTip(context.Background(), &models.CreatorProfile{Slug: "carol"}, event))

	msg := <-overlay.Messages()
	assert.Equal(t, live.MessageTypeTip, msg.Type)
	assert.Equal(t, event, msg.Data)
}

func TestNotifyTipExternalChannels(t *testing.T) {
	hub := live.NewHub(logger.NewNopLogger())
	telegram := &recordingSender{}
	email := &recordingSender{err: errors.New("smtp down")}
	n := NewNotificator(logger.NewNopLogger(), hub, telegram, email)

	profile := &models.CreatorProfile{Slug: "carol", TelegramChatID: "1234", Email: "carol@example.com"}
	require.NoError(t, n.NotifyTip(context.Background(), profile, &models.TipEvent{SenderName: "alice", Amount: 10}))

	require.Eventually(t, func() bool {
		_, tg := telegram.get("1234")
		_, em := email.get("carol@example.com")
		return tg && em
	}, time.Second, 5*time.Millisecond)
	msg, _ := telegram.get("1234")
	assert.Equal(t, "alice tipped you 10 tokens", msg)
}

func TestNotifyTipRecoversFromPanickingChannel(t *testing.T) {
	hub := live.NewHub(logger.NewNopLogger())
	n := NewNotificator(logger.NewNopLogger(), hub, &recordingSender{panic: true}, nil)

	assert.NotPanics(t, func() {
		n.sendExternal(context.Background(), &models.CreatorProfile{Slug: "carol", TelegramChatID: "1"}, "hi")
	})
}

func TestNotifyTipRequiresProfile(t *testing.T) {
	n := NewNotificator(logger.NewNopLogger(), live.NewHub(logger.NewNopLogger()), nil, nil)
	assert.Error(t, n.NotifyTip(context.Background(), nil, &models.TipEvent{}))
}

func TestEmailNotificator(t *testing.T) {
	e := NewEmailNotificator(logger.NewNopLogger(), "smtp.example.com", 587, "user", "pass", "tips@example.com")
	var gotAddr string
	var gotTo []string
	var gotMsg []byte
	e.sendMail = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotTo, gotMsg = addr, to, msg
		return nil
	}

	require.NoError(t, e.SendNotification(context.Background(), "carol@example.com", "alice tipped you 10 tokens"))
	assert.Equal(t, "smtp.example.com:587", gotAddr)
	assert.Equal(t, []string{"carol@example.com"}, gotTo)
	assert.Contains(t, string(gotMsg), "Subject: New tip")
	assert.Contains(t, string(gotMsg), "alice tipped you 10 tokens")

	e.sendMail = func(string, smtp.Auth, string, []string, []byte) error { return errors.New("refused") }
	assert.Error(t, e.SendNotification(context.Background(), "carol@example.com", "x"))
}

type fakeLinker struct {
	profiles map[string]*models.CreatorProfile
	linked   map[int64]string
}

func (f *fakeLinker) GetCreatorProfileByTelegramUsername(_ context.Context, username string) (*models.CreatorProfile, error) {
	if p, ok := f.profiles[username]; ok {
		return p, nil
	}
	return nil, models.ErrProfileNotFound
}

func (f *fakeLinker) SetTelegramChatID(_ context.Context, profileID int64, chatID string) error {
	f.linked[profileID] = chatID
	return nil
}

func TestTelegramLinkChat(t *testing.T) {
	linker := &fakeLinker{
		profiles: map[string]*models.CreatorProfile{"carol_tg": {ID: 7, Slug: "carol"}},
		linked:   map[int64]string{},
	}
	tg := &TelegramNotificator{logger: logger.NewNopLogger(), db: linker}

	slug, err := tg.linkChat(context.Background(), "@Carol_TG", "555")
	require.NoError(t, err)
	assert.Equal(t, "carol", slug)
	assert.Equal(t, "555", linker.linked[7])

	_, err = tg.linkChat(context.Background(), "stranger", "1")
	assert.ErrorIs(t, err, models.ErrProfileNotFound)

	_, err = tg.linkChat(context.Background(), "", "1")
	assert.Error(t, err)
}
