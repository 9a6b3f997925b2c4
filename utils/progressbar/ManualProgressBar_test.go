package progressbar

import (
	"bytes"
	"strings"
	"testing"
)

func TestManualProgressBar(t *testing.T) {
	var buf bytes.Buffer
	p := NewManualProgressBar(&buf, 10, 4)

	p.Increment()
	p.Display()
	if !strings.Contains(buf.String(), "[25.00%") {
		t.Errorf("expected 25%% progress in %q", buf.String())
	}

	for i := 0; i < 10; i++ {
		p.Increment()
	}
	if p.Progress() != 1 {
		t.Errorf("progress exceeded maximum: %v", p.Progress())
	}

	buf.Reset()
	p.Display()
	if !strings.Contains(buf.String(), "[100.00%") {
		t.Errorf("expected 100%% progress in %q", buf.String())
	}
	if got := strings.Count(buf.String(), "█"); got != 10 {
		t.Errorf("expected 10 filled cells but got %d", got)
	}
}
