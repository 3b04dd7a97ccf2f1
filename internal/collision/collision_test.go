package collision_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"mxf2proxy/internal/collision"
	"mxf2proxy/internal/prompt"
)

type scriptedPrompter struct {
	verdicts []prompt.Verdict
	err      error
	calls    int
}

func (s *scriptedPrompter) ChooseDestination(context.Context, prompt.DestinationRequest) (prompt.DestinationChoice, error) {
	return prompt.DestinationChoice{Kind: prompt.DestinationDefault}, nil
}

func (s *scriptedPrompter) ResolveDuplicate(context.Context, prompt.DuplicateRequest) (prompt.Verdict, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	v := s.verdicts[0]
	s.verdicts = s.verdicts[1:]
	return v, nil
}

func alwaysExists(string) bool { return true }

func TestCheckMissingOutputProceedsWithoutPrompt(t *testing.T) {
	p := &scriptedPrompter{}
	n := collision.New(p, nil)
	out, err := n.Check(context.Background(), collision.Request{Output: filepath.Join(t.TempDir(), "a.mov")})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if out.Action != collision.Proceed || out.Force || p.calls != 0 {
		t.Fatalf("unexpected outcome %+v calls=%d", out, p.calls)
	}
}

func TestCheckRealFileTriggersPrompt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.mov")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	p := &scriptedPrompter{verdicts: []prompt.Verdict{prompt.VerdictSkip}}
	n := collision.New(p, nil)
	out, err := n.Check(context.Background(), collision.Request{Output: path})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if out.Action != collision.Skip || !out.Prompted || p.calls != 1 {
		t.Fatalf("unexpected outcome %+v calls=%d", out, p.calls)
	}
}

func TestVerdicts(t *testing.T) {
	tests := []struct {
		verdict prompt.Verdict
		action  collision.Action
		force   bool
		flags   collision.BatchFlags
	}{
		{prompt.VerdictOverwrite, collision.Proceed, true, collision.BatchFlags{}},
		{prompt.VerdictSkip, collision.Skip, false, collision.BatchFlags{}},
		{prompt.VerdictOverwriteAll, collision.Proceed, true, collision.BatchFlags{OverwriteAll: true}},
		{prompt.VerdictSkipAll, collision.Skip, false, collision.BatchFlags{SkipAll: true}},
		{prompt.VerdictCancel, collision.Cancel, false, collision.BatchFlags{}},
	}
	for _, tt := range tests {
		t.Run(string(tt.verdict), func(t *testing.T) {
			n := collision.New(&scriptedPrompter{verdicts: []prompt.Verdict{tt.verdict}}, nil)
			n.SetExistsFunc(alwaysExists)
			out, err := n.Check(context.Background(), collision.Request{Output: "/out/a.mov"})
			if err != nil {
				t.Fatalf("Check: %v", err)
			}
			if out.Action != tt.action || out.Force != tt.force {
				t.Fatalf("got %+v", out)
			}
			if n.Flags() != tt.flags {
				t.Fatalf("flags = %+v, want %+v", n.Flags(), tt.flags)
			}
		})
	}
}

func TestBatchFlagsSuppressFurtherPrompts(t *testing.T) {
	for _, verdict := range []prompt.Verdict{prompt.VerdictOverwriteAll, prompt.VerdictSkipAll} {
		p := &scriptedPrompter{verdicts: []prompt.Verdict{verdict}}
		n := collision.New(p, nil)
		n.SetExistsFunc(alwaysExists)
		first, _ := n.Check(context.Background(), collision.Request{Output: "/out/a.mov"})
		for i := 0; i < 3; i++ {
			out, err := n.Check(context.Background(), collision.Request{Output: "/out/b.mov"})
			if err != nil {
				t.Fatalf("Check: %v", err)
			}
			if out.Action != first.Action || out.Prompted {
				t.Fatalf("%s: expected silent %v, got %+v", verdict, first.Action, out)
			}
		}
		if p.calls != 1 {
			t.Fatalf("%s: prompter called %d times", verdict, p.calls)
		}
	}
}

func TestOverwriteAllSetsForce(t *testing.T) {
	n := collision.New(&scriptedPrompter{verdicts: []prompt.Verdict{prompt.VerdictOverwriteAll}}, nil)
	n.SetExistsFunc(alwaysExists)
	_, _ = n.Check(context.Background(), collision.Request{Output: "/out/a.mov"})
	out, _ := n.Check(context.Background(), collision.Request{Output: "/out/b.mov"})
	if !out.Force {
		t.Fatal("overwrite-all must clobber later collisions")
	}
}

func TestResetClearsFlags(t *testing.T) {
	p := &scriptedPrompter{verdicts: []prompt.Verdict{prompt.VerdictSkipAll, prompt.VerdictOverwrite}}
	n := collision.New(p, nil)
	n.SetExistsFunc(alwaysExists)
	_, _ = n.Check(context.Background(), collision.Request{Output: "/out/a.mov"})
	n.Reset()
	out, _ := n.Check(context.Background(), collision.Request{Output: "/out/a.mov"})
	if out.Action != collision.Proceed || p.calls != 2 {
		t.Fatalf("expected fresh prompt after reset, got %+v calls=%d", out, p.calls)
	}
}

func TestForcedRequestSkipsPrompt(t *testing.T) {
	p := &scriptedPrompter{}
	n := collision.New(p, nil)
	n.SetExistsFunc(alwaysExists)
	out, err := n.Check(context.Background(), collision.Request{Output: "/out/a.mov", Force: true})
	if err != nil || out.Action != collision.Proceed || !out.Force || p.calls != 0 {
		t.Fatalf("unexpected outcome %+v err=%v calls=%d", out, err, p.calls)
	}
}

func TestPrompterErrorCancels(t *testing.T) {
	boom := errors.New("tty gone")
	n := collision.New(&scriptedPrompter{err: boom}, nil)
	n.SetExistsFunc(alwaysExists)
	out, err := n.Check(context.Background(), collision.Request{Output: "/out/a.mov"})
	if !errors.Is(err, boom) || out.Action != collision.Cancel {
		t.Fatalf("expected cancel with error, got %+v err=%v", out, err)
	}
}
