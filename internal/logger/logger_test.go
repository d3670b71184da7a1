package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// capture routes logger output into a buffer at the given level and
// restores the previous destination when the test ends.
func capture(t *testing.T, level string) *bytes.Buffer {
	t.Helper()
	buf := new(bytes.Buffer)

	mu.Lock()
	prevOut, prevColor := output, useColor
	mu.Unlock()
	prevLevel := GetLevel()
	prevFormat, _ := currentFormat.Load().(string)

	InitWithWriter(buf, level, "text", false)

	t.Cleanup(func() {
		mu.Lock()
		output, useColor = prevOut, prevColor
		mu.Unlock()
		currentLevel.Store(int32(prevLevel))
		currentFormat.Store(prevFormat)
		reconfigure()
	})
	return buf
}

func TestLevelFiltering(t *testing.T) {
	t.Run("DebugShowsEverything", func(t *testing.T) {
		buf := capture(t, "DEBUG")

		Debug("d")
		Info("i")
		Warn("w")
		Error("e")

		out := buf.String()
		for _, s := range []string{"[DEBUG] d", "[INFO] i", "[WARN] w", "[ERROR] e"} {
			assert.Contains(t, out, s)
		}
	})

	t.Run("WarnDropsDebugAndInfo", func(t *testing.T) {
		buf := capture(t, "WARN")

		Debug("d")
		Info("i")
		Warn("w")
		Error("e")

		out := buf.String()
		assert.NotContains(t, out, "[DEBUG]")
		assert.NotContains(t, out, "[INFO]")
		assert.Contains(t, out, "[WARN] w")
		assert.Contains(t, out, "[ERROR] e")
	})

	t.Run("ErrorIsNeverFiltered", func(t *testing.T) {
		buf := capture(t, "ERROR")

		Warn("w")
		Error("e")

		assert.Equal(t, 1, strings.Count(buf.String(), "\n"))
	})
}

func TestSetLevel(t *testing.T) {
	t.Run("CaseInsensitive", func(t *testing.T) {
		capture(t, "info")
		SetLevel("debug")
		assert.Equal(t, LevelDebug, GetLevel())
	})

	t.Run("WarningAlias", func(t *testing.T) {
		capture(t, "INFO")
		SetLevel("warning")
		assert.Equal(t, LevelWarn, GetLevel())
	})

	t.Run("InvalidIgnored", func(t *testing.T) {
		capture(t, "WARN")
		SetLevel("LOUD")
		assert.Equal(t, LevelWarn, GetLevel())
	})
}

func TestLevelString(t *testing.T) {
	assert.Equal(t, "DEBUG", LevelDebug.String())
	assert.Equal(t, "INFO", LevelInfo.String())
	assert.Equal(t, "WARN", LevelWarn.String())
	assert.Equal(t, "ERROR", LevelError.String())
	assert.Equal(t, "UNKNOWN", Level(42).String())
}

func TestTextFormat(t *testing.T) {
	t.Run("Timestamp", func(t *testing.T) {
		buf := capture(t, "INFO")
		Info("hello")
		assert.Regexp(t, `^\[\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}\.\d{3}\] \[INFO\] hello`, buf.String())
	})

	t.Run("StructuredFields", func(t *testing.T) {
		buf := capture(t, "INFO")
		Info("created", KeyPath, "/a", KeyCount, 3)
		out := buf.String()
		assert.Contains(t, out, "path=/a")
		assert.Contains(t, out, "count=3")
	})

	t.Run("QuotesValuesWithSpaces", func(t *testing.T) {
		buf := capture(t, "INFO")
		Info("x", KeyFilename, "two words", KeyShare, "")
		out := buf.String()
		assert.Contains(t, out, `filename="two words"`)
		assert.Contains(t, out, `share=""`)
	})

	t.Run("Groups", func(t *testing.T) {
		buf := capture(t, "INFO")
		With(KeyStore, "sqlite").WithGroup("blob").Info("x", "key", "k1", slog.Group("sub", "n", 1))
		out := buf.String()
		assert.Contains(t, out, "store=sqlite")
		assert.Contains(t, out, "blob.key=k1")
		assert.Contains(t, out, "blob.sub.n=1")
	})

	t.Run("ColorWrapsLevel", func(t *testing.T) {
		buf := new(bytes.Buffer)
		h := NewColorTextHandler(buf, nil, true)
		require.NoError(t, slog.New(h).Handler().Handle(context.Background(),
			slog.NewRecord(time.Now(), slog.LevelWarn, "m", 0)))
		assert.Contains(t, buf.String(), ansiYellow+"WARN"+ansiReset)
	})
}

func TestJSONFormat(t *testing.T) {
	buf := capture(t, "INFO")
	SetFormat("JSON")

	Info("share opened", KeyShare, "alpha", KeyOutcome, "created")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "share opened", rec["msg"])
	assert.Equal(t, "alpha", rec[KeyShare])
	assert.Equal(t, "created", rec[KeyOutcome])
	assert.Contains(t, rec, "time")

	buf.Reset()
	SetFormat("xml")
	Info("still json")
	assert.True(t, json.Valid(buf.Bytes()))
}

func TestContextLogging(t *testing.T) {
	t.Run("InjectsFields", func(t *testing.T) {
		buf := capture(t, "DEBUG")

		lc := NewLogContext("create").WithShare("alpha", "alpha-00ff").WithTrace("t1", "s1")
		ctx := WithContext(context.Background(), lc)
		InfoCtx(ctx, "done", KeyPath, "/x")

		out := buf.String()
		assert.Contains(t, out, "trace_id=t1")
		assert.Contains(t, out, "span_id=s1")
		assert.Contains(t, out, "operation=create")
		assert.Contains(t, out, "share=alpha")
		assert.Contains(t, out, "instance=alpha-00ff")
		assert.Less(t, strings.Index(out, "operation="), strings.Index(out, "path="))
	})

	t.Run("NoLogContext", func(t *testing.T) {
		buf := capture(t, "DEBUG")
		//nolint:staticcheck // nil context is tolerated
		DebugCtx(nil, "a")
		WarnCtx(context.Background(), "b")
		ErrorCtx(context.Background(), "c")
		assert.Equal(t, 3, strings.Count(buf.String(), "\n"))
	})
}

func TestLogContext(t *testing.T) {
	t.Run("CloneIsIndependent", func(t *testing.T) {
		lc := NewLogContext("delete")
		c := lc.WithShare("s", "s-01")
		assert.Empty(t, lc.Share)
		assert.Equal(t, "s", c.Share)
		assert.Equal(t, lc.StartTime, c.StartTime)
	})

	t.Run("NilSafe", func(t *testing.T) {
		var lc *LogContext
		assert.Nil(t, lc.Clone())
		assert.Nil(t, lc.WithTrace("a", "b"))
		assert.Zero(t, lc.DurationMs())
	})

	t.Run("Duration", func(t *testing.T) {
		lc := &LogContext{StartTime: time.Now().Add(-20 * time.Millisecond)}
		assert.GreaterOrEqual(t, lc.DurationMs(), 20.0)
	})
}

func TestFieldHelpers(t *testing.T) {
	assert.Equal(t, "3:7", FileID(3, 7).Value.String())
	assert.Equal(t, "1:2", ChangeID(1, 2).Value.String())
	assert.Equal(t, "0755", Permissions(0o755).Value.String())
	assert.True(t, Err(nil).Equal(slog.Attr{}))
	assert.Equal(t, "boom", Err(errors.New("boom")).Value.String())
}

func TestPrintfStyle(t *testing.T) {
	buf := capture(t, "DEBUG")

	Debugf("d %d", 1)
	Infof("i %s", "two")
	Warnf("w %v", true)
	Errorf("e %q", "x")

	out := buf.String()
	assert.Contains(t, out, "d 1")
	assert.Contains(t, out, "i two")
	assert.Contains(t, out, "w true")
	assert.Contains(t, out, `e "x"`)
}

func TestConcurrentLogging(t *testing.T) {
	buf := capture(t, "INFO")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				Info("msg", KeyCount, n*100+j)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 400, strings.Count(buf.String(), "\n"))
}

func TestInit(t *testing.T) {
	t.Run("File", func(t *testing.T) {
		capture(t, "INFO")
		path := filepath.Join(t.TempDir(), "ds.log")

		require.NoError(t, Init(Config{Level: "DEBUG", Format: "text", Output: path}))
		Debug("to file")
		require.NoError(t, Init(Config{Output: "stderr"}))

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), "to file")
	})

	t.Run("RejectsBadValues", func(t *testing.T) {
		capture(t, "INFO")
		assert.Error(t, Init(Config{Level: "chatty"}))
		assert.Error(t, Init(Config{Format: "yaml"}))
		assert.Error(t, Init(Config{Output: filepath.Join(t.TempDir(), "missing", "x.log")}))
	})

	t.Run("EmptyConfigKeepsSettings", func(t *testing.T) {
		capture(t, "WARN")
		require.NoError(t, Init(Config{}))
		assert.Equal(t, LevelWarn, GetLevel())
	})
}
