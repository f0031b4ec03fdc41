package rerrors

import (
	"strings"
	"testing"
)

func TestPushFrameAccumulates(t *testing.T) {
	e := New(NoMethod, "undefined method %q for %s", "foo", "Bar")
	e.PushFrame(SourceLoc{Path: "a.rb", Line: 3, MethodName: "baz"})
	e.PushFrame(SourceLoc{Path: "a.rb", Line: 1})
	if len(e.Stack) != 2 {
		t.Fatalf("expected 2 frames, got %d", len(e.Stack))
	}
	if e.Error() != "NoMethodError: undefined method \"foo\" for Bar" {
		t.Fatalf("unexpected message: %s", e.Error())
	}
}

func TestIsControlDistinguishesSignals(t *testing.T) {
	if !IsControl(BlockReturn{Value: 1}) {
		t.Fatalf("BlockReturn should be a control signal")
	}
	if !IsControl(MethodReturn{Value: 1}) {
		t.Fatalf("MethodReturn should be a control signal")
	}
	if IsControl(New(Runtime, "boom")) {
		t.Fatalf("RuntimeErr must not be treated as a control signal")
	}
}

func TestRenderIncludesCaret(t *testing.T) {
	out := Render("NoMethodError", "undefined method 'foo'", []SourceLoc{
		{Path: "a.rb", Line: 1, StartCol: 2, EndCol: 5, MethodName: "<main>"},
	}, func(path string) (string, bool) {
		if path == "a.rb" {
			return "x.foo()", true
		}
		return "", false
	})
	if !strings.Contains(out, "x.foo()\n  ^^^\n") {
		t.Fatalf("expected a caret line under foo, got:\n%s", out)
	}
}
