package script_test

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/gadgetkb/gadgetkb/keyboard"
	"github.com/gadgetkb/gadgetkb/script"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingEmitter struct {
	sent []keyboard.Report
	err  error
}

func (r *recordingEmitter) Send(press keyboard.Report) error {
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, press)
	return nil
}

type sleepRecorder struct{ slept []time.Duration }

func (s *sleepRecorder) sleep(d time.Duration) { s.slept = append(s.slept, d) }

func run(t *testing.T, src string) (*recordingEmitter, *sleepRecorder, *script.Interpreter, error) {
	t.Helper()
	em := &recordingEmitter{}
	sl := &sleepRecorder{}
	in := script.New(em, script.WithSleep(sl.sleep))
	err := in.Run("test.script", strings.NewReader(src))
	return em, sl, in, err
}

func TestRunScenarios(t *testing.T) {
	type testCase struct {
		name     string
		src      string
		expected []keyboard.Report
	}

	testCases := []testCase{
		{
			name: "text with implied shift",
			src:  `"Hi!"`,
			expected: []keyboard.Report{
				keyboard.Press(0x0B, keyboard.ModShiftL),
				keyboard.Press(0x0C, keyboard.ModNone),
				keyboard.Press(0x1E, keyboard.ModShiftL),
			},
		},
		{
			name: "toggled modifier applies to lowercase",
			src:  `<SHIFT_R>"ab"<SHIFT_R>`,
			expected: []keyboard.Report{
				keyboard.Press(0x04, keyboard.ModShiftR),
				keyboard.Press(0x05, keyboard.ModShiftR),
			},
		},
		{
			name: "implied modifier overrides toggle for one key",
			src:  `<CONTROL_L>"aB"<CONTROL_L>"c"`,
			expected: []keyboard.Report{
				keyboard.Press(0x04, keyboard.ModControlL),
				keyboard.Press(0x05, keyboard.ModShiftL),
				keyboard.Press(0x06, keyboard.ModNone),
			},
		},
		{
			name: "second modifier replaces the first",
			src:  "<SHIFT_L><ALT_L>\"a\"",
			expected: []keyboard.Report{
				keyboard.Press(0x04, keyboard.ModAltL),
			},
		},
		{
			name: "toggle persists across lines",
			src:  "<ALT_L>\n<F4>\n<ALT_L>\n<F4>",
			expected: []keyboard.Report{
				keyboard.Press(keyboard.KeyF4, keyboard.ModAltL),
				keyboard.Press(keyboard.KeyF4, keyboard.ModNone),
			},
		},
		{
			name: "escaped quote",
			src:  `"\"x\""`,
			expected: []keyboard.Report{
				keyboard.Press(0x34, keyboard.ModShiftL),
				keyboard.Press(0x1B, keyboard.ModNone),
				keyboard.Press(0x34, keyboard.ModShiftL),
			},
		},
		{
			name: "comments and blank lines",
			src:  "# only a comment\n\n   \n  <ENTER>   # trailing\n",
			expected: []keyboard.Report{
				keyboard.Press(keyboard.KeyEnter, keyboard.ModNone),
			},
		},
		{
			name:     "nothing to send",
			src:      "DELAY=1\n<SHIFT_L><SHIFT_L>",
			expected: nil,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			em, _, _, err := run(t, tc.src)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, em.sent)
		})
	}
}

func TestToggleCancels(t *testing.T) {
	_, _, in, err := run(t, "<SHIFT_L><SHIFT_L>")
	require.NoError(t, err)
	assert.Equal(t, keyboard.ModNone, in.State().Modifier)

	_, _, in, err = run(t, "<SUPER_L><MULTI>")
	require.NoError(t, err)
	assert.Equal(t, keyboard.ModNone, in.State().Modifier, "MULTI and SUPER_L share a bit")

	_, _, in, err = run(t, "<SHIFT_L>")
	require.NoError(t, err)
	assert.Equal(t, keyboard.ModShiftL, in.State().Modifier)
}

func TestDelay(t *testing.T) {
	em, sl, in, err := run(t, "DELAY=0.1\n<F2>")
	require.NoError(t, err)
	assert.Equal(t, []keyboard.Report{keyboard.Press(0x3B, keyboard.ModNone)}, em.sent)
	assert.Equal(t, []time.Duration{100 * time.Millisecond}, sl.slept)
	assert.Equal(t, 100*time.Millisecond, in.State().Delay)

	_, sl, _, err = run(t, "<F2>\nDELAY = 2\n\"ab\"\nDELAY\n<F3>")
	require.NoError(t, err)
	assert.Equal(t, []time.Duration{2 * time.Second, 2 * time.Second}, sl.slept)
}

func TestRunErrors(t *testing.T) {
	type testCase struct {
		name         string
		src          string
		expectedSent int
		expectedLine int
		expectedMsg  string
		syntax       bool
	}

	testCases := []testCase{
		{
			name:         "missing closing angle",
			src:          "<F1>\n<F2\n<F3>",
			expectedSent: 1,
			expectedLine: 2,
			expectedMsg:  "missing closing '>'",
			syntax:       true,
		},
		{
			name:         "bare characters",
			src:          "xyz",
			expectedLine: 1,
			expectedMsg:  "found 'x' outside of <> and \"\"",
			syntax:       true,
		},
		{
			name:         "broken delay",
			src:          "\"a\"\nDELAY=soon",
			expectedSent: 1,
			expectedLine: 2,
			expectedMsg:  "'soon' not a number",
			syntax:       true,
		},
		{
			name:         "unknown special key",
			src:          "\n\n<F13>",
			expectedLine: 3,
			expectedMsg:  "couldn't translate key: <F13>",
		},
		{
			name:         "untranslatable literal after sent keys",
			src:          `"ab€c"`,
			expectedSent: 2,
			expectedLine: 1,
			expectedMsg:  "couldn't translate key: '€'",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			em, _, _, err := run(t, tc.src)
			require.Error(t, err)
			assert.Len(t, em.sent, tc.expectedSent)
			assert.Contains(t, err.Error(), tc.expectedMsg)
			assert.Contains(t, err.Error(), "test.script")

			if tc.syntax {
				var se *script.SyntaxError
				require.ErrorAs(t, err, &se)
				assert.Equal(t, tc.expectedLine, se.Line)
				assert.Equal(t, "test.script", se.File)
			} else {
				var te *script.TranslateError
				require.ErrorAs(t, err, &te)
				assert.Equal(t, tc.expectedLine, te.Line)
				assert.ErrorIs(t, err, keyboard.ErrUntranslatable)
			}
		})
	}
}

func TestEmitterErrorAborts(t *testing.T) {
	boom := errors.New("boom")
	em := &recordingEmitter{err: boom}
	in := script.New(em, script.WithSleep(func(time.Duration) {}))
	err := in.Run("x", strings.NewReader("<F1>\n<F2>"))
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, in.State().Line)
}

func TestObserver(t *testing.T) {
	var events []script.KeyEvent
	in := script.New(&recordingEmitter{},
		script.WithSleep(func(time.Duration) {}),
		script.WithObserver(func(ev script.KeyEvent) { events = append(events, ev) }),
	)
	require.NoError(t, in.RunLines("x", slices.Values([]string{"", `<CONTROL_R>"A"<UP>`})))
	require.Len(t, events, 2)
	assert.Equal(t, script.KeyEvent{
		Key:      "A",
		Code:     keyboard.KeyCode{Usage: 0x04, Modifier: keyboard.ModShiftL},
		Modifier: keyboard.ModShiftL,
		Line:     2,
		Col:      13,
	}, events[0])
	assert.Equal(t, "UP", events[1].Key)
	assert.Equal(t, keyboard.ModControlR, events[1].Modifier)
}

func TestDelayOutOfRange(t *testing.T) {
	em, sl, in, err := run(t, "DELAY=0.5\nDELAY=1e12\n<F2>")
	var se *script.SyntaxError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 2, se.Line)
	assert.Contains(t, err.Error(), "'1e12' out of range")
	assert.Empty(t, em.sent)
	assert.Empty(t, sl.slept)
	assert.Equal(t, 500*time.Millisecond, in.State().Delay)
}

func TestRunLongLine(t *testing.T) {
	src := `"` + strings.Repeat("a", 70000) + `"<F2>` + "\n<UP>"
	em, _, in, err := run(t, src)
	require.NoError(t, err)
	require.Len(t, em.sent, 70002)
	assert.Equal(t, keyboard.Press(0x04, keyboard.ModNone), em.sent[0])
	assert.Equal(t, keyboard.Press(0x3B, keyboard.ModNone), em.sent[70000])
	assert.Equal(t, keyboard.Press(keyboard.KeyUp, keyboard.ModNone), em.sent[70001])
	assert.Equal(t, 2, in.State().Line)
}

func TestExecKeepsState(t *testing.T) {
	em := &recordingEmitter{}
	in := script.New(em, script.WithSleep(func(time.Duration) {}), script.WithDelay(time.Second))
	in.Reset("<stdin>")
	require.NoError(t, in.Exec("<SHIFT_R>"))
	require.NoError(t, in.Exec(`"a"`))
	assert.Equal(t, []keyboard.Report{keyboard.Press(0x04, keyboard.ModShiftR)}, em.sent)
	assert.Equal(t, 2, in.State().Line)
	assert.Equal(t, time.Second, in.State().Delay)

	err := in.Exec("<")
	assert.EqualError(t, err, "error in file <stdin> on line 3: missing closing '>'")
}

func TestRunFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "keys.txt")
	require.NoError(t, os.WriteFile(path, []byte("<ESCAPE>\n"), 0o644))

	em := &recordingEmitter{}
	in := script.New(em)
	require.NoError(t, in.RunFile(path))
	assert.Equal(t, []keyboard.Report{keyboard.Press(keyboard.KeyEscape, keyboard.ModNone)}, em.sent)

	err := in.RunFile(filepath.Join(dir, "missing.txt"))
	var fe *script.FileError
	assert.ErrorAs(t, err, &fe)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
