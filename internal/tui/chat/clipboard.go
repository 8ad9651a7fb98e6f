package chat

import (
	"errors"

	"github.com/atotto/clipboard"
)

var errNoClipboard = errors.New("no clipboard utility found (install xclip, xsel or wl-clipboard)")

// SystemClipboard copies text to the OS clipboard.
func SystemClipboard(text string) error {
	if clipboard.Unsupported {
		return errNoClipboard
	}
	return clipboard.WriteAll(text)
}
