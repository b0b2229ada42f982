// Package monitor is an event dispatch engine for chat bots.
//
// Every inbound chat message is offered to a set of registered responders.
// Each responder is a Definition: a Rule deciding whether it cares about the
// message, a chain of handlers doing the work, and a priority deciding when
// it runs relative to the others. Handlers can hold a conversation across
// several messages by pausing and resuming.
//
// # Quick Start
//
//	r := monitor.New(monitor.WithLogger(log))
//
//	r.OnFullMatch(monitor.ChatAny, false, []string{"ping"}).
//	    Handle(func(ctx context.Context, m *monitor.Matcher, msg *monitor.Message, st *monitor.State) error {
//	        return m.Finish(ctx, "pong!")
//	    })
//
//	err := r.Handle(ctx, &monitor.Message{
//	    Kind:    monitor.ChatDirect,
//	    Sender:  "wxid_alice",
//	    Text:    "ping",
//	    Channel: wechat,
//	})
//
// # Design Philosophy
//
// The package separates concerns into layers:
//
//   - Transport: Sources turn raw bytes into Messages; Channels send replies
//   - Router: Holds the Registry and the command Trie, runs the dispatch loop
//   - Rules: Cheap predicates over a message, composed with AND
//   - Handlers: Business logic; they end a run with signals
//
// # Dispatch
//
// Definitions live in a Registry bucketed by priority. Lower numbers run
// first. For one message the Router:
//
//  1. Runs event pre-processors; an Ignore drops the message
//  2. Resolves the longest command prefix and suffix into the dispatch State
//  3. Walks the priorities in ascending order. Within a tier every rule is
//     checked concurrently and every matching definition runs concurrently
//  4. Stops after a tier in which a blocking matcher ran
//  5. Runs event post-processors
//
// A failing rule or handler only affects its own matcher. The dispatch goes
// on and the failure is logged and reported to the OnRuleError/OnFailure
// hooks.
//
// # Rules
//
// A Rule is a set of predicates that must all hold. Rules compose with And;
// there is no Or, so alternatives go inside a single predicate (FullMatch
// and Keyword take several texts) or into separate definitions:
//
//	rule := monitor.FullMatch(monitor.ChatGroup, true, "ping", "hello").
//	    And(r.ToMe(monitor.ChatGroup))
//
// Built-in predicates:
//   - StartsWith, EndsWith, FullMatch: Text comparisons, optionally case-insensitive
//   - Keyword, KeywordAll: Substring presence
//   - Regex: Stores the match under KeyMatched, KeyMatchedGroups and KeyMatchedDict
//   - Router.Command: Matches the command resolved by the trie
//   - Router.ToMe, MentionsMe: Group messages mentioning the bot, and direct messages
//   - HasFields, FieldEquals: Raw payload checks
//
// # Commands
//
// Router.Command indexes every literal form of a command: each configured
// start marker followed by the parts joined with each separator. With the
// defaults ("/" and "" as markers, "." as separator), Cmd("test", "sub") is
// recognised as "/test.sub" and "test.sub". The text after the command is
// available from Message.CommandArgs.
//
// # Conversations
//
// Handlers end a run by returning a signal, usually through the Matcher:
//
//   - m.Finish: The matcher is done
//   - m.Pause: The next message from the same sender resumes at the next handler
//   - m.Reject: The next message from the same sender re-runs the current handler
//   - ErrStopPropagation: The matcher is done and lower tiers are skipped
//
// Pause and Reject register a continuation: a temporary definition at
// priority 0 that blocks lower tiers and carries the run's state. Got wraps
// the common "ask for a value" pattern:
//
//	r.OnCommand(monitor.ChatAny, monitor.Cmd("天气"), nil).
//	    Got("city", "Which city?", nil, func(ctx context.Context, m *monitor.Matcher, msg *monitor.Message, st *monitor.State) error {
//	        return m.Finish(ctx, forecast(st.String("city")))
//	    })
//
// # Hooks
//
// Processors run around dispatches and matcher runs; hooks observe them:
//
//	r := monitor.New(
//	    monitor.WithRunPreprocessor(func(ctx context.Context, m *monitor.Matcher, msg *monitor.Message, st *monitor.State) error {
//	        if banned(msg.Sender) {
//	            return monitor.Ignore("banned")
//	        }
//	        return nil
//	    }),
//	    monitor.WithOnFailure(func(ctx context.Context, def *monitor.Definition, err error, d time.Duration) {
//	        alert(def, err)
//	    }),
//	)
//
// The metrics subpackage turns the hooks into Prometheus collectors.
//
// # Thread Safety
//
// Router, Registry, Trie and State are safe for concurrent use. Definitions
// may be registered while messages are being handled; a dispatch only sees
// definitions registered before it started.
package monitor
