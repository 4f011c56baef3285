package core

import (
	"context"
	"strings"
	"sync"
	"time"

	"relaybot/internal/access"
	"relaybot/internal/kit"
	"relaybot/pkg/logx"
)

type Access int

const (
	// AccessAdmin allows any broadcaster: owners plus granted admins.
	AccessAdmin Access = iota
	// AccessOwner restricts to configured owners.
	AccessOwner
)

type Command struct {
	Name        string // without the leading slash, e.g. "add_admin"
	Description string
	Usage       string
	Access      Access
	Handle      HandlerFunc
}

type Request struct {
	Message *kit.Message
	Chat    kit.ChatTarget
	FromID  int64
	Route   string   // "start", "add_admin", "broadcast", "register"
	Args    []string // command arguments, whitespace-split
	Text    string   // full message text (broadcast payload)

	Adapter kit.Adapter
	Log     logx.Logger
}

// Reply sends a plain-text reply to the originating chat.
func (r *Request) Reply(ctx context.Context, text string) error {
	_, err := r.Adapter.SendText(ctx, r.Chat, text, nil)
	return err
}

const handlerTimeout = 2 * time.Minute

// CommandManager routes inbound updates to handlers keyed on chat kind and
// message shape. At most one handler fires per update; updates matching no
// route are dropped without a reply, which is how unauthorized and malformed
// traffic stays invisible to outsiders.
type CommandManager struct {
	mu       sync.RWMutex
	commands map[string]Command

	groupHandler HandlerFunc // any group/supergroup message
	textHandler  HandlerFunc // private non-command text

	policy  *access.Policy
	adapter kit.Adapter
	log     logx.Logger
}

func NewCommandManager(log logx.Logger, adapter kit.Adapter, policy *access.Policy) *CommandManager {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &CommandManager{
		commands: map[string]Command{},
		policy:   policy,
		adapter:  adapter,
		log:      log,
	}
}

func (m *CommandManager) Register(cmds ...Command) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range cmds {
		name := strings.TrimSpace(strings.TrimPrefix(c.Name, "/"))
		if name == "" || c.Handle == nil {
			continue
		}
		c.Name = name
		m.commands[name] = c
	}
}

// SetGroupHandler installs the conversation-registration handler.
func (m *CommandManager) SetGroupHandler(h HandlerFunc) {
	m.mu.Lock()
	m.groupHandler = h
	m.mu.Unlock()
}

// SetTextHandler installs the private plain-text (broadcast) handler.
func (m *CommandManager) SetTextHandler(h HandlerFunc) {
	m.mu.Lock()
	m.textHandler = h
	m.mu.Unlock()
}

// DispatchLoop consumes updates until the context is canceled. Handlers run
// to completion one at a time; the application-level contract is sequential
// processing.
func (m *CommandManager) DispatchLoop(ctx context.Context, updates <-chan kit.Update) error {
	m.log.Info("dispatcher started")
	for {
		select {
		case <-ctx.Done():
			m.log.Info("dispatcher stopped")
			return nil
		case up, ok := <-updates:
			if !ok {
				m.log.Info("dispatcher stopped (updates channel closed)")
				return nil
			}
			m.Route(ctx, up)
		}
	}
}

// Route dispatches a single update. Exposed for tests.
func (m *CommandManager) Route(ctx context.Context, up kit.Update) {
	if up.Kind != kit.UpdateMessage || up.Message == nil {
		return
	}
	msg := up.Message

	switch {
	case msg.ChatKind.IsGroupLike():
		m.routeGroup(ctx, msg)
	case msg.ChatKind == kit.ChatPrivate:
		m.routePrivate(ctx, msg)
	default:
		// channels etc.: not a surface this bot serves
	}
}

func (m *CommandManager) routeGroup(ctx context.Context, msg *kit.Message) {
	m.mu.RLock()
	h := m.groupHandler
	m.mu.RUnlock()
	if h == nil {
		return
	}
	req := m.newRequest(msg, "register", nil, msg.Text)
	// Registration is silent and high-volume; skip the request log.
	_ = Chain(h, MWPanicRecover(m.log), MWTimeout(handlerTimeout))(ctx, req)
}

func (m *CommandManager) routePrivate(ctx context.Context, msg *kit.Message) {
	if msg.FromID == 0 {
		return
	}
	text := strings.TrimSpace(msg.Text)

	if strings.HasPrefix(text, "/") {
		m.routeCommand(ctx, msg, text)
		return
	}
	if text == "" {
		// media or service message in private chat: no matching route
		return
	}

	m.mu.RLock()
	h := m.textHandler
	m.mu.RUnlock()
	if h == nil {
		return
	}
	if !m.policy.CanBroadcast(ctx, msg.FromID) {
		m.log.Debug("plain text from non-admin dropped", logx.Int64("from_id", msg.FromID))
		return
	}
	req := m.newRequest(msg, "broadcast", nil, text)
	m.run(ctx, h, req)
}

func (m *CommandManager) routeCommand(ctx context.Context, msg *kit.Message, text string) {
	parts := strings.Fields(text)
	word := strings.TrimPrefix(parts[0], "/")
	// strip the @botname suffix Telegram appends in some clients
	if i := strings.IndexByte(word, '@'); i >= 0 {
		word = word[:i]
	}

	m.mu.RLock()
	cmd, ok := m.commands[word]
	m.mu.RUnlock()
	if !ok {
		m.log.Debug("unknown command dropped", logx.String("cmd", word), logx.Int64("from_id", msg.FromID))
		return
	}

	allowed := false
	switch cmd.Access {
	case AccessOwner:
		allowed = m.policy.CanManage(ctx, msg.FromID)
	default:
		allowed = m.policy.CanBroadcast(ctx, msg.FromID)
	}
	if !allowed {
		m.log.Debug("unauthorized command dropped",
			logx.String("cmd", word), logx.Int64("from_id", msg.FromID))
		return
	}

	req := m.newRequest(msg, cmd.Name, parts[1:], text)
	m.run(ctx, cmd.Handle, req)
}

func (m *CommandManager) run(ctx context.Context, h HandlerFunc, req *Request) {
	_ = Chain(h,
		MWPanicRecover(m.log),
		MWRequestLog(m.log),
		MWTimeout(handlerTimeout),
	)(ctx, req)
}

func (m *CommandManager) newRequest(msg *kit.Message, route string, args []string, text string) *Request {
	return &Request{
		Message: msg,
		Chat:    kit.ChatTarget{ChatID: msg.ChatID},
		FromID:  msg.FromID,
		Route:   route,
		Args:    args,
		Text:    text,
		Adapter: m.adapter,
		Log: m.log.With(
			logx.String("route", route),
			logx.Int64("from_id", msg.FromID),
		),
	}
}
