package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"elpbot/core/logger"
	"elpbot/core/telegram/commands"

	tele "gopkg.in/telebot.v4"
)

var (
	// ErrInvalidCommand rejects commands without a "/" name, handler or menu description.
	ErrInvalidCommand = errors.New("telegram: invalid command")
	// ErrInvalidCallback rejects an empty key or nil handler.
	ErrInvalidCallback = errors.New("telegram: invalid callback")
	// ErrDuplicate rejects a second registration under the same name or key.
	ErrDuplicate = errors.New("telegram: already registered")
)

// Registry holds bot commands, callback handlers and the fallbacks for unmatched updates.
// Commands are registered during wiring only; callbacks may be looked up concurrently.
type Registry struct {
	commands map[string]commands.Command

	mu        sync.RWMutex
	callbacks map[string]tele.HandlerFunc

	callbackNotFound tele.HandlerFunc
	textFallback     tele.HandlerFunc
}

// NewRegistry returns an empty registry. Unknown buttons are only acknowledged,
// which stops the client spinner.
func NewRegistry() *Registry {
	return &Registry{
		commands:  make(map[string]commands.Command),
		callbacks: make(map[string]tele.HandlerFunc),
		callbackNotFound: func(c tele.Context) error {
			return c.Respond()
		},
	}
}

func wireWarn(event string, attrs ...slog.Attr) {
	logger.TWire.LogAttrs(context.Background(), slog.LevelWarn, event, attrs...)
}

// RegisterCommand adds cmd under name, which must start with "/".
func (r *Registry) RegisterCommand(name string, cmd commands.Command) error {
	if !strings.HasPrefix(name, "/") || len(name) < 2 || cmd.Handler == nil || cmd.Description == "" {
		wireWarn("register.command.skip", slog.String("name", name), slog.String("cause", "invalid"))
		return fmt.Errorf("%w: %q", ErrInvalidCommand, name)
	}
	if _, dup := r.commands[name]; dup {
		wireWarn("register.command.duplicate", slog.String("name", name))
		return fmt.Errorf("%w: command %s", ErrDuplicate, name)
	}
	r.commands[name] = cmd
	return nil
}

// ListCommands returns the command menu sorted by name, without the leading slash
// the Bot API rejects. visibleOnly keeps public commands only.
func (r *Registry) ListCommands(visibleOnly bool) []tele.Command {
	list := make([]tele.Command, 0, len(r.commands))
	for name, meta := range r.commands {
		if visibleOnly && !meta.Public() {
			continue
		}
		list = append(list, tele.Command{Text: strings.TrimPrefix(name, "/"), Description: meta.Description})
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Text < list[j].Text })
	return list
}

// LookupCommand resolves a name or alias, with or without the slash, to its registered key.
func (r *Registry) LookupCommand(name string) (string, commands.Command, bool) {
	name = "/" + strings.TrimPrefix(strings.TrimSpace(name), "/")
	if cmd, ok := r.commands[name]; ok {
		return name, cmd, true
	}
	for key, cmd := range r.commands {
		for _, alias := range cmd.Aliases {
			if "/"+strings.TrimPrefix(alias, "/") == name {
				return key, cmd, true
			}
		}
	}
	return "", commands.Command{}, false
}

// Commands returns all registered commands keyed by name.
func (r *Registry) Commands() map[string]commands.Command {
	return r.commands
}

// RegisterCallback maps a callback key to handler.
func (r *Registry) RegisterCallback(key string, handler tele.HandlerFunc) error {
	if key == "" || handler == nil {
		wireWarn("register.callback.skip", slog.String("cb_key", key), slog.Bool("handler_nil", handler == nil))
		return fmt.Errorf("%w: %q", ErrInvalidCallback, key)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.callbacks[key]; dup {
		wireWarn("register.callback.duplicate", slog.String("cb_key", key))
		return fmt.Errorf("%w: callback %s", ErrDuplicate, key)
	}
	r.callbacks[key] = handler
	return nil
}

// RegisterCallbacks binds one handler to several keys, stopping at the first failure.
func (r *Registry) RegisterCallbacks(keys []string, handler tele.HandlerFunc) error {
	for _, key := range keys {
		if err := r.RegisterCallback(key, handler); err != nil {
			return err
		}
	}
	return nil
}

// GetCallback returns the handler bound to key.
func (r *Registry) GetCallback(key string) (tele.HandlerFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.callbacks[key]
	return h, ok
}

// ListCallbacks returns the registered keys, sorted.
func (r *Registry) ListCallbacks() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.callbacks))
	for k := range r.callbacks {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SetCallbackNotFound replaces the handler for unknown callback keys. nil keeps the current one.
func (r *Registry) SetCallbackNotFound(h tele.HandlerFunc) {
	if h != nil {
		r.callbackNotFound = h
	}
}

func (r *Registry) CallbackNotFound() tele.HandlerFunc { return r.callbackNotFound }

// SetTextFallback sets the handler for text that no command or conversation claims.
func (r *Registry) SetTextFallback(h tele.HandlerFunc) { r.textFallback = h }

func (r *Registry) TextFallback() tele.HandlerFunc { return r.textFallback }

// CommandSetter is the part of the bot API used to publish the command menu.
type CommandSetter interface {
	SetCommands(opts ...interface{}) error
}

// InitBotCommands publishes the public menu for everyone and, when adminID is set,
// the public plus admin commands in the admin's private chat.
func InitBotCommands(bot CommandSetter, reg *Registry, adminID int64) {
	publish := func(scope string, cmds []tele.Command, opts ...interface{}) {
		if err := bot.SetCommands(append([]interface{}{cmds}, opts...)...); err != nil {
			logger.TWire.LogAttrs(context.Background(), slog.LevelError, "register.commands.set_failed",
				slog.String("scope", scope),
				slog.String("err", err.Error()),
			)
		}
	}
	publish("default", reg.ListCommands(true))
	if adminID == 0 {
		return
	}
	var admin []tele.Command
	for _, cmd := range reg.ListCommands(false) {
		if _, meta, ok := reg.LookupCommand(cmd.Text); ok && (meta.Public() || meta.AdminOnly) {
			admin = append(admin, cmd)
		}
	}
	publish("admin", admin, tele.CommandScope{Type: tele.CommandScopeChat, ChatID: adminID})
}
