package prompt

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/manifoldco/promptui"
	"github.com/stretchr/testify/assert"
)

func TestIsAborted(t *testing.T) {
	assert.True(t, IsAborted(promptui.ErrInterrupt))
	assert.True(t, IsAborted(promptui.ErrAbort))
	assert.True(t, IsAborted(fmt.Errorf("init: %w", ErrAborted)))
	assert.False(t, IsAborted(errors.New("boom")))
	assert.False(t, IsAborted(nil))
}

func TestWrapError(t *testing.T) {
	assert.NoError(t, wrapError(nil))
	assert.ErrorIs(t, wrapError(promptui.ErrInterrupt), ErrAborted)

	other := errors.New("tty gone")
	assert.Equal(t, other, wrapError(other))
}

func TestConfirmWithForce(t *testing.T) {
	ok, err := ConfirmWithForce("overwrite?", true)
	assert.NoError(t, err)
	assert.True(t, ok)
}

func TestValidatePort(t *testing.T) {
	tests := []struct {
		in    string
		valid bool
	}{
		{"7734", true},
		{"1", true},
		{"65535", true},
		{"0", false},
		{"65536", false},
		{"http", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if tt.valid {
				assert.NoError(t, ValidatePort(tt.in))
			} else {
				assert.Error(t, ValidatePort(tt.in))
			}
		})
	}
}

func TestValidateDirectory(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "rfc793.txt")
	assert.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	assert.NoError(t, ValidateDirectory(dir))
	assert.Error(t, ValidateDirectory(""))
	assert.Error(t, ValidateDirectory(file))
	assert.Error(t, ValidateDirectory(filepath.Join(dir, "missing")))
}
