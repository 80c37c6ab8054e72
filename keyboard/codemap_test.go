package keyboard_test

import (
	"testing"

	"github.com/gadgetkb/gadgetkb/keyboard"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveLetters(t *testing.T) {
	for i := 0; i < 26; i++ {
		lower := string(rune('a' + i))
		upper := string(rune('A' + i))
		want := uint8(0x04 + i)

		kc, err := keyboard.Resolve(lower)
		require.NoError(t, err)
		assert.Equal(t, keyboard.KeyCode{Usage: want}, kc, lower)

		kc, err = keyboard.Resolve(upper)
		require.NoError(t, err)
		assert.Equal(t, keyboard.KeyCode{Usage: want, Modifier: keyboard.ModShiftL}, kc, upper)
	}
}

func TestResolveDeterministic(t *testing.T) {
	for c := 'a'; c <= 'z'; c++ {
		first, err := keyboard.ResolveRune(c)
		require.NoError(t, err)
		second, err := keyboard.ResolveRune(c)
		require.NoError(t, err)
		assert.Equal(t, first, second)
	}
}

func TestResolve(t *testing.T) {
	type testCase struct {
		name        string
		key         string
		expected    keyboard.KeyCode
		expectedErr string
	}

	testCases := []testCase{
		{name: "function key", key: "F2", expected: keyboard.KeyCode{Usage: 0x3B}},
		{name: "F12", key: "F12", expected: keyboard.KeyCode{Usage: 0x45}},
		{name: "enter", key: "ENTER", expected: keyboard.KeyCode{Usage: 0x28}},
		{name: "prior is page up", key: "PRIOR", expected: keyboard.KeyCode{Usage: 0x4B}},
		{name: "next is page down", key: "NEXT", expected: keyboard.KeyCode{Usage: 0x4E}},
		{name: "arrow up", key: "UP", expected: keyboard.KeyCode{Usage: 0x52}},
		{name: "space", key: " ", expected: keyboard.KeyCode{Usage: 0x2C}},
		{name: "digit", key: "1", expected: keyboard.KeyCode{Usage: 0x1E}},
		{name: "bang shares digit key", key: "!", expected: keyboard.KeyCode{Usage: 0x1E, Modifier: keyboard.ModShiftL}},
		{name: "equal", key: "=", expected: keyboard.KeyCode{Usage: 0x2E}},
		{name: "plus needs shift", key: "+", expected: keyboard.KeyCode{Usage: 0x2E, Modifier: keyboard.ModShiftL}},
		{name: "double quote", key: `"`, expected: keyboard.KeyCode{Usage: 0x34, Modifier: keyboard.ModShiftL}},
		{name: "apostrophe", key: "'", expected: keyboard.KeyCode{Usage: 0x34}},
		{name: "less than", key: "<", expected: keyboard.KeyCode{Usage: 0x36, Modifier: keyboard.ModShiftL}},
		{name: "question", key: "?", expected: keyboard.KeyCode{Usage: 0x38, Modifier: keyboard.ModShiftL}},
		{name: "backslash", key: `\`, expected: keyboard.KeyCode{Usage: 0x31}},
		{name: "unknown name", key: "F13", expectedErr: "couldn't translate key: <F13>"},
		{name: "lowercase name", key: "enter", expectedErr: "couldn't translate key: <enter>"},
		{name: "non ascii char", key: "ä", expectedErr: "couldn't translate key: 'ä'"},
		{name: "tab char", key: "\t", expectedErr: "couldn't translate key: '\t'"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			kc, err := keyboard.Resolve(tc.key)
			if tc.expectedErr != "" {
				assert.ErrorIs(t, err, keyboard.ErrUntranslatable)
				assert.EqualError(t, err, tc.expectedErr)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tc.expected, kc)
		})
	}
}

func TestModifierByName(t *testing.T) {
	m, ok := keyboard.ModifierByName("MULTI")
	assert.True(t, ok)
	assert.Equal(t, keyboard.ModSuperL, m)

	m, ok = keyboard.ModifierByName("ISO_LEVEL3_SHIFT")
	assert.True(t, ok)
	assert.Equal(t, keyboard.Modifier(0x40), m)

	_, ok = keyboard.ModifierByName("shift_l")
	assert.False(t, ok)
}

func TestModifierString(t *testing.T) {
	assert.Equal(t, "NONE", keyboard.ModNone.String())
	assert.Equal(t, "SHIFT_R", keyboard.ModShiftR.String())
	assert.Equal(t, "CONTROL_L|SHIFT_L", (keyboard.ModControlL | keyboard.ModShiftL).String())
}

func TestNames(t *testing.T) {
	keys := keyboard.KeyNames()
	assert.Contains(t, keys, "F1")
	assert.Contains(t, keys, "BACKSPACE")
	assert.NotContains(t, keys, "!")
	assert.IsNonDecreasing(t, keys)

	mods := keyboard.ModifierNames()
	assert.Len(t, mods, 9)
	assert.Contains(t, mods, "SUPER_L")
}
