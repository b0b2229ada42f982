package monitor_test

import (
	"context"
	"fmt"
	"strings"

	"github.com/bjaus/monitor"
)

// printChannel prints every reply to stdout.
var printChannel = monitor.ChannelFunc(func(_ context.Context, target, text string, _ ...monitor.SendOption) error {
	fmt.Printf("-> %s: %s\n", target, text)
	return nil
})

func say(r *monitor.Router, sender, text string) {
	msg := &monitor.Message{Kind: monitor.ChatDirect, Sender: sender, Text: text, Channel: printChannel}
	if err := r.Handle(context.Background(), msg); err != nil {
		fmt.Println("error:", err)
	}
}

func Example() {
	r := monitor.New()

	r.OnFullMatch(monitor.ChatAny, false, []string{"ping"}).
		Handle(func(ctx context.Context, m *monitor.Matcher, _ *monitor.Message, _ *monitor.State) error {
			return m.Finish(ctx, "pong!")
		})

	say(r, "alice", "ping")

	// Output:
	// -> alice: pong!
}

func Example_conversation() {
	r := monitor.New()

	r.OnCommand(monitor.ChatAny, monitor.Cmd("天气"), nil).
		Handle(func(_ context.Context, _ *monitor.Matcher, msg *monitor.Message, st *monitor.State) error {
			if city := msg.CommandArgs(st); city != "" {
				st.Set("city", city)
			}
			return nil
		}).
		Got("city", "Which city?", nil, func(ctx context.Context, m *monitor.Matcher, _ *monitor.Message, st *monitor.State) error {
			if st.String("city") != "上海" {
				st.Delete("city")
				return m.Reject(ctx, "Only 上海 is supported, try again")
			}
			return m.Finish(ctx, "上海: sunny")
		})

	say(r, "alice", "/天气")
	say(r, "alice", "北京")
	say(r, "alice", "上海")
	say(r, "bob", "/天气 上海")

	// Output:
	// -> alice: Which city?
	// -> alice: Only 上海 is supported, try again
	// -> alice: 上海: sunny
	// -> bob: 上海: sunny
}

func Example_priorities() {
	r := monitor.New()

	r.OnKeyword(monitor.ChatAny, []string{"help"}, monitor.Priority(1), monitor.Block(true)).
		Handle(func(ctx context.Context, m *monitor.Matcher, _ *monitor.Message, _ *monitor.State) error {
			return m.Finish(ctx, "commands: ping, 天气")
		})
	r.OnMessage(monitor.Rule{}, monitor.Priority(10)).
		Handle(func(ctx context.Context, m *monitor.Matcher, msg *monitor.Message, _ *monitor.State) error {
			return m.Finish(ctx, "echo: "+strings.ToUpper(msg.Text))
		})

	say(r, "alice", "help me")
	say(r, "alice", "hello")

	// Output:
	// -> alice: commands: ping, 天气
	// -> alice: echo: HELLO
}

func Example_preprocessor() {
	r := monitor.New(
		monitor.WithEventPreprocessor(func(_ context.Context, msg *monitor.Message, _ *monitor.State) error {
			if msg.Sender == "bot" {
				return monitor.Ignore("own message")
			}
			return nil
		}),
	)
	r.OnMessage(monitor.Rule{}).
		Handle(func(ctx context.Context, m *monitor.Matcher, msg *monitor.Message, _ *monitor.State) error {
			return m.Finish(ctx, "heard "+msg.Sender)
		})

	say(r, "bot", "hi")
	say(r, "alice", "hi")

	// Output:
	// -> alice: heard alice
}
