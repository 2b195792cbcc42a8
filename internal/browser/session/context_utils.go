package session

import (
	"context"
)

// CombineContext returns a context that carries the values of tab (the
// chromedp target lives there) and ends when either tab or op ends.
//
// chromedp resolves its executor from the context values, so a caller's
// operational context cannot be handed to chromedp.Run directly.
func CombineContext(tab, op context.Context) (context.Context, context.CancelFunc) {
	combined, cancel := context.WithCancel(tab)
	stop := context.AfterFunc(op, cancel)
	return combined, func() {
		stop()
		cancel()
	}
}
