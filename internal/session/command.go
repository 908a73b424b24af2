package session

import (
	"context"

	"lumen/internal/command"
)

func (s *Session) ToggleCommandBar() bool { return s.cmd.Toggle() }
func (s *Session) CloseCommandBar()       { s.cmd.Close() }
func (s *Session) SetQuery(q string)      { s.cmd.SetQuery(q) }

// Submit resolves in. Deterministic matches settle before Submit returns;
// otherwise the returned resolution is pending and its result must be handed
// to Settle with the returned token.
func (s *Session) Submit(ctx context.Context, in command.Input) (uint64, command.Resolution) {
	ctx, cancel := context.WithCancel(ctx)
	token := s.cmd.Begin(in, cancel)
	res := s.resolver.Resolve(ctx, in)
	if !res.Async() {
		s.Settle(token, res.Result)
	}
	return token, res
}

// Settle applies res if token is still the latest submission. A match closes
// the command bar. It reports whether res was applied.
func (s *Session) Settle(token uint64, res command.Result) bool {
	if !s.cmd.Finish(token, res) {
		return false
	}
	if res.Status == command.StatusMatched {
		s.cmd.Close()
	}
	return true
}

// Retry re-submits the last input. ok is false when nothing was submitted
// yet.
func (s *Session) Retry(ctx context.Context) (token uint64, res command.Resolution, ok bool) {
	in, ok := s.cmd.LastInput()
	if !ok {
		return 0, command.Resolution{}, false
	}
	s.cmd.Open()
	token, res = s.Submit(ctx, in)
	return token, res, true
}
