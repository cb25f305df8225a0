package nanocam

import (
	"io"
	"os"
	"testing"
)

func TestSetLogLevel(t *testing.T) {
	orig := LOG_LEVEL
	t.Cleanup(func() {
		LOG_LEVEL = orig
		applyLogLevel()
	})

	if !SetLogLevel("warning") {
		t.Fatal("SetLogLevel(warning) = false")
	}
	if LOG_LEVEL != WARNING_LEVEL {
		t.Errorf("LOG_LEVEL = %d, want %d", LOG_LEVEL, WARNING_LEVEL)
	}
	if DEBUGLogger.Writer() != io.Discard || INFOLogger.Writer() != io.Discard {
		t.Error("DEBUG and INFO should be discarded at WARNING")
	}
	if WARNINGLogger.Writer() != os.Stderr || ERRORLogger.Writer() != os.Stderr {
		t.Error("WARNING and ERROR should write to stderr at WARNING")
	}

	if SetLogLevel("verbose") {
		t.Error("SetLogLevel(verbose) = true")
	}
	if LOG_LEVEL != WARNING_LEVEL {
		t.Error("unknown level changed LOG_LEVEL")
	}

	SetLogLevel("DEBUG")
	if DEBUGLogger.Writer() != os.Stderr {
		t.Error("DEBUG should write to stderr at DEBUG")
	}
}
