package progress

import "fmt"

// Update describes a streamed token or a progress notice emitted while a
// response is being generated. Both travel over the same channel; the caller
// tells them apart by content convention only (notices are short
// bracket/asterisk-wrapped strings).
type Update struct {
	// Message is the content to deliver to the caller's sink.
	Message string
}

// Callback receives streamed tokens and progress notices in arrival order.
type Callback func(Update) error

// Text sends a raw streamed fragment if the callback is set.
func Text(cb Callback, text string) error {
	if cb == nil || text == "" {
		return nil
	}
	return cb(Update{Message: text})
}

// Noticef sends a short bracket-wrapped progress notice, e.g.
// "[Rate limited, retrying in 3s...]". Notices keep a long wait from being
// silent.
func Noticef(cb Callback, format string, args ...interface{}) error {
	if cb == nil {
		return nil
	}
	return cb(Update{Message: "\n[" + fmt.Sprintf(format, args...) + "]\n"})
}

// Statusf sends an asterisk-wrapped status line, used for mode switches such
// as entering extended thinking.
func Statusf(cb Callback, format string, args ...interface{}) error {
	if cb == nil {
		return nil
	}
	return cb(Update{Message: "*" + fmt.Sprintf(format, args...) + "*\n\n"})
}
