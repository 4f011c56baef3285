package core

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"relaybot/internal/kit"
	"relaybot/internal/services/broadcast"
	"relaybot/internal/storage"
	"relaybot/pkg/logx"
)

const startText = `Hi. I relay messages.

Any plain text you send me here goes out to every group conversation I know about.

/add_admin <telegram_id> lets another user broadcast (owners only).
/list_admins shows who can broadcast (owners only).`

// Handlers implements the bot's user-facing operations. Authorization has
// already happened by the time a handler runs; handlers only validate
// arguments and act.
type Handlers struct {
	store  storage.Store
	caster *broadcast.Service
	log    logx.Logger
}

func NewHandlers(store storage.Store, caster *broadcast.Service, log logx.Logger) *Handlers {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Handlers{store: store, caster: caster, log: log}
}

// Commands returns the command table to register with the router.
func (h *Handlers) Commands() []Command {
	return []Command{
		{
			Name:        "start",
			Description: "show what the bot does",
			Access:      AccessAdmin,
			Handle:      h.Start,
		},
		{
			Name:        "add_admin",
			Description: "allow a user to broadcast",
			Usage:       "/add_admin <telegram_id>",
			Access:      AccessOwner,
			Handle:      h.AddAdmin,
		},
		{
			Name:        "list_admins",
			Description: "list users allowed to broadcast",
			Access:      AccessOwner,
			Handle:      h.ListAdmins,
		},
	}
}

func (h *Handlers) Start(ctx context.Context, req *Request) error {
	return req.Reply(ctx, startText)
}

func (h *Handlers) AddAdmin(ctx context.Context, req *Request) error {
	if len(req.Args) == 0 {
		return req.Reply(ctx, "Usage: /add_admin <telegram_id>")
	}
	id, err := strconv.ParseInt(req.Args[0], 10, 64)
	if err != nil {
		return req.Reply(ctx, "The id must be a number. Example: /add_admin 123456789")
	}
	if err := h.store.GrantAdmin(ctx, id, false); err != nil {
		req.Log.Error("grant failed", logx.Int64("user_id", id), logx.Err(err))
		return req.Reply(ctx, "Could not save the admin. Try again.")
	}
	req.Log.Info("admin granted", logx.Int64("user_id", id))
	return req.Reply(ctx, fmt.Sprintf("User %d can now broadcast.", id))
}

func (h *Handlers) ListAdmins(ctx context.Context, req *Request) error {
	ids, err := h.store.AdminIDs(ctx)
	if err != nil {
		req.Log.Error("admin listing failed", logx.Err(err))
		return req.Reply(ctx, "Could not read the admin list. Try again.")
	}
	if len(ids) == 0 {
		return req.Reply(ctx, "No broadcast admins yet.")
	}
	var b strings.Builder
	b.WriteString("Broadcast admin ids:\n")
	for _, id := range ids {
		fmt.Fprintf(&b, "%d\n", id)
	}
	return req.Reply(ctx, strings.TrimRight(b.String(), "\n"))
}

// Broadcast relays the text to every recorded conversation and reports how
// many deliveries succeeded.
func (h *Handlers) Broadcast(ctx context.Context, req *Request) error {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return req.Reply(ctx, "Send me the text you want to broadcast.")
	}

	ids, err := h.store.ChatIDs(ctx)
	if err != nil {
		req.Log.Error("chat listing failed", logx.Err(err))
		return req.Reply(ctx, "Could not read the conversation list. Try again.")
	}
	if len(ids) == 0 {
		return req.Reply(ctx, "No saved conversations to broadcast to yet. Add the bot to a group and write something there.")
	}

	targets := make([]kit.ChatTarget, 0, len(ids))
	for _, id := range ids {
		targets = append(targets, kit.ChatTarget{ChatID: id})
	}
	rep := h.caster.Run(ctx, targets, text)
	return req.Reply(ctx, fmt.Sprintf("Sent to %d conversation(s).", rep.Sent))
}

// RegisterGroup records the conversation a group message arrived in. No reply;
// group members never learn the bot is listening.
func (h *Handlers) RegisterGroup(ctx context.Context, req *Request) error {
	msg := req.Message
	c := storage.Chat{
		ID:    msg.ChatID,
		Title: msg.ChatTitle,
		Kind:  string(msg.ChatKind),
	}
	if err := h.store.UpsertChat(ctx, c); err != nil {
		req.Log.Error("chat registration failed", logx.Int64("chat_id", c.ID), logx.Err(err))
		return err
	}
	req.Log.Debug("chat seen",
		logx.Int64("chat_id", c.ID),
		logx.String("title", c.Title),
		logx.String("kind", c.Kind))
	return nil
}
