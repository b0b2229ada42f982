package plugins

import (
	"context"

	"github.com/bjaus/monitor"
)

// Ping answers "ping" with "pong!".
func Ping(r *monitor.Router) *monitor.Definition {
	return r.OnFullMatch(monitor.ChatAny, false, []string{"ping"}, monitor.Module("ping"), monitor.Priority(1)).
		Handle(func(ctx context.Context, m *monitor.Matcher, _ *monitor.Message, _ *monitor.State) error {
			return m.Finish(ctx, "pong!")
		})
}

// Echo repeats the text after the echo command. Without one it asks for
// the text and repeats the next message.
func Echo(r *monitor.Router) *monitor.Definition {
	return r.OnCommand(monitor.ChatAny, monitor.Cmd("echo"), nil, monitor.Module("echo"), monitor.Block(true)).
		Handle(func(ctx context.Context, m *monitor.Matcher, msg *monitor.Message, st *monitor.State) error {
			if args := msg.CommandArgs(st); args != "" {
				return m.Finish(ctx, args)
			}
			return m.Send(ctx, "说点什么吧")
		}).
		Receive(func(ctx context.Context, m *monitor.Matcher, msg *monitor.Message, _ *monitor.State) error {
			return m.Finish(ctx, msg.Text)
		})
}
