//go:build !integration

// File: internal/usecase/mocks_test.go
package usecase

import (
	"context"
	"sync"
	"time"

	"telegram-content-relay/internal/domain"
	"telegram-content-relay/internal/domain/model"
	"telegram-content-relay/internal/domain/ports/adapter"
	"telegram-content-relay/internal/domain/ports/repository"

	"github.com/rs/zerolog"
)

var testLogger = zerolog.Nop()

// --- repositories ---

type mockStateRepo struct {
	mu     sync.Mutex
	states map[int64]*model.ConversationState

	SetStateFunc func(ctx context.Context, userID int64, s *model.ConversationState) error
}

func newMockStateRepo() *mockStateRepo {
	return &mockStateRepo{states: map[int64]*model.ConversationState{}}
}

func (m *mockStateRepo) SetState(ctx context.Context, userID int64, s *model.ConversationState) error {
	if m.SetStateFunc != nil {
		return m.SetStateFunc(ctx, userID, s)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.states[userID] = &cp
	return nil
}

func (m *mockStateRepo) GetState(ctx context.Context, userID int64) (*model.ConversationState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.states[userID]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (m *mockStateRepo) ClearState(ctx context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.states, userID)
	return nil
}

var _ repository.StateRepository = (*mockStateRepo)(nil)

type mockJobRepo struct {
	mu   sync.Mutex
	jobs map[int64]*model.Job

	CreateFunc func(ctx context.Context, job *model.Job) error
	UpdateErr  error
}

func newMockJobRepo() *mockJobRepo {
	return &mockJobRepo{jobs: map[int64]*model.Job{}}
}

func (m *mockJobRepo) Create(ctx context.Context, job *model.Job) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, job)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.jobs[job.UserID]; ok {
		return domain.ErrAlreadyActive
	}
	cp := *job
	m.jobs[job.UserID] = &cp
	return nil
}

func (m *mockJobRepo) Update(ctx context.Context, job *model.Job) error {
	if m.UpdateErr != nil {
		return m.UpdateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *job
	m.jobs[job.UserID] = &cp
	return nil
}

func (m *mockJobRepo) Find(ctx context.Context, userID int64) (*model.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[userID]
	if !ok {
		return nil, domain.ErrNoActiveJob
	}
	cp := *j
	return &cp, nil
}

func (m *mockJobRepo) SetCancel(ctx context.Context, userID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[userID]
	if !ok {
		return false, nil
	}
	j.CancelRequested = true
	return true, nil
}

func (m *mockJobRepo) Delete(ctx context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.jobs, userID)
	return nil
}

func (m *mockJobRepo) ListActive(ctx context.Context) ([]*model.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.Job, 0, len(m.jobs))
	for _, j := range m.jobs {
		cp := *j
		out = append(out, &cp)
	}
	return out, nil
}

var _ repository.JobRepository = (*mockJobRepo)(nil)

type mockUserRepo struct {
	mu    sync.Mutex
	users map[int64]*model.UserSession
	prefs map[int64]map[string]string
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{
		users: map[int64]*model.UserSession{},
		prefs: map[int64]map[string]string{},
	}
}

func (m *mockUserRepo) Save(ctx context.Context, u *model.UserSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *u
	m.users[u.UserID] = &cp
	return nil
}

func (m *mockUserRepo) Find(ctx context.Context, userID int64) (*model.UserSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (m *mockUserRepo) GetPref(ctx context.Context, userID int64, key, def string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.prefs[userID]; ok {
		if v, ok := p[key]; ok {
			return v, nil
		}
	}
	return def, nil
}

func (m *mockUserRepo) SetPref(ctx context.Context, userID int64, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.prefs[userID] == nil {
		m.prefs[userID] = map[string]string{}
	}
	m.prefs[userID][key] = value
	return nil
}

func (m *mockUserRepo) DelPref(ctx context.Context, userID int64, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.prefs[userID]; ok {
		delete(p, key)
	}
	return nil
}

var _ repository.UserRepository = (*mockUserRepo)(nil)

// --- messenger ---

type mockMessenger struct {
	mu sync.Mutex

	sentTexts []string
	edits     []string
	deleted   []model.MessageRef
	byIDSends int
	uploads   []adapter.MediaUpload
	copies    []model.MessageRef
	closed    bool
	nextMsgID int

	GetMessageFunc    func(ctx context.Context, ref model.SourceReference) (*adapter.RemoteMessage, error)
	SendTextFunc      func(ctx context.Context, chatID int64, text string, replyTo int) (model.MessageRef, error)
	SendMediaByIDFunc func(ctx context.Context, chatID int64, msg *adapter.RemoteMessage, caption string, replyTo int) error
	UploadMediaFunc   func(ctx context.Context, chatID int64, up adapter.MediaUpload, replyTo int, progress adapter.ProgressFunc) (model.MessageRef, error)
	DownloadFunc      func(ctx context.Context, msg *adapter.RemoteMessage, dir string, progress adapter.ProgressFunc) (string, error)
	EditMessageFunc   func(ctx context.Context, ref model.MessageRef, text string) error
}

func (m *mockMessenger) GetMessage(ctx context.Context, ref model.SourceReference) (*adapter.RemoteMessage, error) {
	if m.GetMessageFunc != nil {
		return m.GetMessageFunc(ctx, ref)
	}
	return nil, domain.ErrNotFound
}

func (m *mockMessenger) SendText(ctx context.Context, chatID int64, text string, replyTo int) (model.MessageRef, error) {
	if m.SendTextFunc != nil {
		return m.SendTextFunc(ctx, chatID, text, replyTo)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sentTexts = append(m.sentTexts, text)
	m.nextMsgID++
	return model.MessageRef{ChatID: chatID, MessageID: m.nextMsgID}, nil
}

func (m *mockMessenger) SendMediaByID(ctx context.Context, chatID int64, msg *adapter.RemoteMessage, caption string, replyTo int) error {
	if m.SendMediaByIDFunc != nil {
		return m.SendMediaByIDFunc(ctx, chatID, msg, caption, replyTo)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byIDSends++
	return nil
}

func (m *mockMessenger) UploadMedia(ctx context.Context, chatID int64, up adapter.MediaUpload, replyTo int, progress adapter.ProgressFunc) (model.MessageRef, error) {
	if m.UploadMediaFunc != nil {
		return m.UploadMediaFunc(ctx, chatID, up, replyTo, progress)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.uploads = append(m.uploads, up)
	m.nextMsgID++
	return model.MessageRef{ChatID: chatID, MessageID: m.nextMsgID}, nil
}

func (m *mockMessenger) CopyMessage(ctx context.Context, toChatID int64, from model.MessageRef) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.copies = append(m.copies, from)
	return nil
}

func (m *mockMessenger) Download(ctx context.Context, msg *adapter.RemoteMessage, dir string, progress adapter.ProgressFunc) (string, error) {
	if m.DownloadFunc != nil {
		return m.DownloadFunc(ctx, msg, dir, progress)
	}
	return "", domain.ErrTransferFailed
}

func (m *mockMessenger) EditMessage(ctx context.Context, ref model.MessageRef, text string) error {
	if m.EditMessageFunc != nil {
		return m.EditMessageFunc(ctx, ref, text)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.edits = append(m.edits, text)
	return nil
}

func (m *mockMessenger) DeleteMessage(ctx context.Context, ref model.MessageRef) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, ref)
	return nil
}

func (m *mockMessenger) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
}

func (m *mockMessenger) textCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sentTexts)
}

var _ adapter.MessengerClient = (*mockMessenger)(nil)

type mockFactory struct {
	mu            sync.Mutex
	botBuilds     int
	sessionBuilds int

	NewBotClientFunc     func(ctx context.Context, token string) (adapter.MessengerClient, error)
	NewSessionClientFunc func(ctx context.Context, session string) (adapter.MessengerClient, error)
}

func (m *mockFactory) NewBotClient(ctx context.Context, token string) (adapter.MessengerClient, error) {
	m.mu.Lock()
	m.botBuilds++
	m.mu.Unlock()
	if m.NewBotClientFunc != nil {
		return m.NewBotClientFunc(ctx, token)
	}
	return &mockMessenger{}, nil
}

func (m *mockFactory) NewSessionClient(ctx context.Context, session string) (adapter.MessengerClient, error) {
	m.mu.Lock()
	m.sessionBuilds++
	m.mu.Unlock()
	if m.NewSessionClientFunc != nil {
		return m.NewSessionClientFunc(ctx, session)
	}
	return &mockMessenger{}, nil
}

var _ adapter.ClientFactory = (*mockFactory)(nil)

// --- cipher and locker ---

type passthroughCipher struct{}

func (passthroughCipher) Encrypt(s string) (string, error) { return s, nil }
func (passthroughCipher) Decrypt(s string) (string, error) { return s, nil }

var _ adapter.Cipher = passthroughCipher{}

type localLocker struct {
	mu   sync.Mutex
	held map[string]string
}

func newLocalLocker() *localLocker {
	return &localLocker{held: map[string]string{}}
}

func (l *localLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.held[key]; ok {
		return "", context.DeadlineExceeded
	}
	l.held[key] = key
	return key, nil
}

func (l *localLocker) Unlock(ctx context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, key)
	return nil
}
