package kit

import "context"

type UpdateKind string

const (
	UpdateMessage UpdateKind = "message"
)

type Update struct {
	Kind    UpdateKind
	Message *Message
}

// ChatKind mirrors the chat types Telegram reports. Everything the bot does
// is keyed on private vs group-like, so channels and other exotic kinds map
// to ChatOther and are ignored by the router.
type ChatKind string

const (
	ChatPrivate    ChatKind = "private"
	ChatGroup      ChatKind = "group"
	ChatSupergroup ChatKind = "supergroup"
	ChatOther      ChatKind = "other"
)

// IsGroupLike reports whether the chat is a group or supergroup conversation.
func (k ChatKind) IsGroupLike() bool {
	return k == ChatGroup || k == ChatSupergroup
}

type Message struct {
	ID           int
	ChatID       int64
	ChatKind     ChatKind
	ChatTitle    string
	FromID       int64
	FromUsername string
	Text         string
}

type ChatTarget struct {
	ChatID int64
}

type SendOptions struct {
	ParseMode      string
	DisablePreview bool
}

type MessageRef struct {
	ChatID    int64
	MessageID int
}

// Adapter is the transport boundary. Start pumps inbound updates into out
// until the context is canceled; SendText delivers one outbound message.
type Adapter interface {
	Start(ctx context.Context, out chan<- Update) error
	Stop(ctx context.Context) error
	SendText(ctx context.Context, to ChatTarget, text string, opt *SendOptions) (MessageRef, error)
}
