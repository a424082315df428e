// File: internal/infra/telegram/factory.go
package telegram

import (
	"context"

	"github.com/rs/zerolog"

	"telegram-content-relay/internal/domain/ports/adapter"
)

// Factory builds live Bot API clients from stored credentials. Session
// credentials are opaque to the engine; here they carry the same token shape
// as bot credentials, just bound to a higher-capacity identity.
type Factory struct {
	stagingChat int64
	log         *zerolog.Logger
}

var _ adapter.ClientFactory = (*Factory)(nil)

func NewFactory(stagingChat int64, logger *zerolog.Logger) *Factory {
	return &Factory{stagingChat: stagingChat, log: logger}
}

func (f *Factory) NewBotClient(ctx context.Context, token string) (adapter.MessengerClient, error) {
	return NewClient(token, f.stagingChat, f.log)
}

func (f *Factory) NewSessionClient(ctx context.Context, session string) (adapter.MessengerClient, error) {
	return NewClient(session, f.stagingChat, f.log)
}
