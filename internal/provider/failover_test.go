package provider

import (
	"context"
	"errors"
	"strings"
	"testing"

	"skynix/internal/domain"
)

type mockRewriter struct {
	name  string
	out   string
	err   error
	calls int
}

func (m *mockRewriter) Name() string { return m.name }

func (m *mockRewriter) Rewrite(ctx context.Context, prompt string) (string, error) {
	m.calls++
	if m.err != nil {
		return "", m.err
	}
	return m.out, nil
}

func TestFailoverRewriter_UsesFirst(t *testing.T) {
	p1 := &mockRewriter{name: "primary", out: "from-primary"}
	p2 := &mockRewriter{name: "secondary", out: "from-secondary"}
	f := NewFailoverRewriter([]domain.Rewriter{p1, p2}, testLogger())

	out, err := f.Rewrite(context.Background(), "p")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "from-primary" || p2.calls != 0 {
		t.Fatalf("expected primary only, got %q (secondary calls=%d)", out, p2.calls)
	}
}

func TestFailoverRewriter_FallsBackOnError(t *testing.T) {
	p1 := &mockRewriter{name: "primary", err: errors.New("api error")}
	p2 := &mockRewriter{name: "secondary", out: "from-secondary"}
	f := NewFailoverRewriter([]domain.Rewriter{p1, p2}, testLogger())

	out, err := f.Rewrite(context.Background(), "p")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "from-secondary" {
		t.Fatalf("expected 'from-secondary', got %q", out)
	}
}

func TestFailoverRewriter_AllFail(t *testing.T) {
	p1 := &mockRewriter{name: "p1", err: errors.New("fail 1")}
	p2 := &mockRewriter{name: "p2", err: errors.New("fail 2")}
	f := NewFailoverRewriter([]domain.Rewriter{p1, p2}, testLogger())

	_, err := f.Rewrite(context.Background(), "p")
	if err == nil || !strings.Contains(err.Error(), "fail 2") {
		t.Fatalf("expected last error wrapped, got %v", err)
	}
}

func TestFailoverRewriter_StopsWhenContextDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p1 := &mockRewriter{name: "p1", err: context.Canceled}
	p2 := &mockRewriter{name: "p2", out: "late"}
	f := NewFailoverRewriter([]domain.Rewriter{p1, p2}, testLogger())

	if _, err := f.Rewrite(ctx, "p"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if p2.calls != 0 {
		t.Fatal("should not try the next rewriter after cancellation")
	}
}

func TestFailoverRewriter_EmptyChain(t *testing.T) {
	f := NewFailoverRewriter(nil, testLogger())
	if _, err := f.Rewrite(context.Background(), "p"); err == nil {
		t.Fatal("expected error for empty chain")
	}
}

func TestFailoverRewriter_Name(t *testing.T) {
	f := NewFailoverRewriter([]domain.Rewriter{&mockRewriter{name: "a"}, &mockRewriter{name: "b"}}, testLogger())
	if f.Name() != "failover(a→b)" {
		t.Fatalf("unexpected name %q", f.Name())
	}
}
