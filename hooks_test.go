package monitor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type HooksSuite struct {
	suite.Suite
	ctx context.Context
	ch  *recordingChannel
	mu  sync.Mutex
	log []string
}

func TestHooksSuite(t *testing.T) {
	suite.Run(t, new(HooksSuite))
}

func (s *HooksSuite) SetupTest() {
	s.ctx = context.Background()
	s.ch = &recordingChannel{}
	s.log = nil
}

func (s *HooksSuite) record(entry string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.log = append(s.log, entry)
}

func (s *HooksSuite) entries() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.log...)
}

func (s *HooksSuite) TestEventPreprocessorIgnore() {
	r := New(WithEventPreprocessor(func(_ context.Context, msg *Message, _ *State) error {
		if msg.Sender == "self" {
			return Ignore("own message")
		}
		return nil
	}))
	r.OnMessage(Rule{}).Handle(finish("seen"))

	s.Require().NoError(r.Handle(s.ctx, direct("self", "hi", s.ch)))
	s.Require().NoError(r.Handle(s.ctx, direct("alice", "hi", s.ch)))

	s.Assert().Equal([]string{"seen"}, s.ch.Texts())
}

func (s *HooksSuite) TestEventPreprocessorFailureAbortsDispatch() {
	boom := errors.New("rate limited")
	r := New(WithEventPreprocessor(func(context.Context, *Message, *State) error { return boom }))
	r.OnMessage(Rule{}).Handle(finish("seen"))

	err := r.Handle(s.ctx, direct("alice", "hi", s.ch))

	s.Assert().ErrorIs(err, boom)
	s.Assert().Empty(s.ch.Texts())
}

func (s *HooksSuite) TestEventPreprocessorSeedsState() {
	r := New(WithEventPreprocessor(func(_ context.Context, _ *Message, st *State) error {
		st.Set("lang", "zh")
		return nil
	}))
	r.OnMessage(Rule{}).Handle(func(ctx context.Context, m *Matcher, _ *Message, st *State) error {
		return m.Finish(ctx, st.String("lang"))
	})

	s.Require().NoError(r.Handle(s.ctx, direct("alice", "hi", s.ch)))

	s.Assert().Equal([]string{"zh"}, s.ch.Texts())
}

func (s *HooksSuite) TestRunPreprocessorCancelsOneMatcher() {
	r := New(WithRunPreprocessor(func(_ context.Context, m *Matcher, _ *Message, _ *State) error {
		if m.Definition().Module() == "muted" {
			return Ignore("muted plugin")
		}
		return nil
	}))
	r.OnMessage(Rule{}, Module("muted")).Handle(finish("muted"))
	r.OnMessage(Rule{}, Module("loud")).Handle(finish("loud"))

	s.Require().NoError(r.Handle(s.ctx, direct("alice", "hi", s.ch)))

	s.Assert().Equal([]string{"loud"}, s.ch.Texts())
}

func (s *HooksSuite) TestRunPostprocessorSeesRunError() {
	boom := errors.New("boom")
	var got error
	r := New(WithRunPostprocessor(func(_ context.Context, _ *Matcher, runErr error, _ *Message, _ *State) error {
		got = runErr
		return errors.New("post failure is only logged")
	}))
	r.OnMessage(Rule{}).Handle(func(context.Context, *Matcher, *Message, *State) error { return boom })

	s.Require().NoError(r.Handle(s.ctx, direct("alice", "hi", s.ch)))

	s.Assert().ErrorIs(got, boom)
}

func (s *HooksSuite) TestLifecycleHooks() {
	var dispatched struct {
		ran     int
		blocked bool
	}
	r := New(
		WithEventPostprocessor(func(context.Context, *Message, *State) error {
			s.record("post")
			return nil
		}),
		WithOnMatch(func(_ context.Context, def *Definition, _ *Message) {
			s.record("match:" + def.Module())
		}),
		WithOnSuccess(func(_ context.Context, def *Definition, res Result, _ time.Duration) {
			s.record("success:" + def.Module() + ":" + res.Status.String())
		}),
		WithOnFailure(func(_ context.Context, def *Definition, _ error, _ time.Duration) {
			s.record("failure:" + def.Module())
		}),
		WithOnDispatch(func(_ context.Context, _ *Message, ran int, blocked bool, _ time.Duration) {
			dispatched.ran = ran
			dispatched.blocked = blocked
		}),
	)
	r.OnMessage(Rule{}, Module("ok"), Block(false)).Handle(finish(""))
	r.OnMessage(Rule{}, Module("bad"), Priority(2)).Handle(func(context.Context, *Matcher, *Message, *State) error {
		return errors.New("boom")
	})

	s.Require().NoError(r.Handle(s.ctx, direct("alice", "hi", s.ch)))

	s.Assert().Equal([]string{
		"match:ok", "success:ok:finished",
		"match:bad", "failure:bad",
		"post",
	}, s.entries())
	s.Assert().Equal(2, dispatched.ran)
	s.Assert().False(dispatched.blocked)
}

func (s *HooksSuite) TestOnRuleError() {
	var failed *Definition
	r := New(WithOnRuleError(func(_ context.Context, def *Definition, _ error) {
		failed = def
	}))
	def := r.OnMessage(NewRule(func(context.Context, *Message, *State) (bool, error) {
		return false, errors.New("lookup failed")
	})).Handle(finish("never"))

	s.Require().NoError(r.Handle(s.ctx, direct("alice", "hi", s.ch)))

	s.Assert().Same(def, failed)
	s.Assert().Empty(s.ch.Texts())
}

func (s *HooksSuite) TestProcessorPanicIsContained() {
	r := New(WithEventPreprocessor(func(context.Context, *Message, *State) error {
		panic("bad processor")
	}))

	err := r.Handle(s.ctx, direct("alice", "hi", s.ch))

	var pe *PanicError
	s.Assert().ErrorAs(err, &pe)
}
