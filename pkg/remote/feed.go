package remote

import (
	"context"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/vanderheijden86/graphcanvas/pkg/debug"
	"github.com/vanderheijden86/graphcanvas/pkg/element"
)

// Feed follows a live element feed. Every text message is a complete element
// collection that replaces the parent elements.
type Feed struct {
	conn    *websocket.Conn
	updates chan []element.Element
	errs    chan error

	closeOnce sync.Once
	done      chan struct{}
}

// Dial connects to the feed at url (ws:// or wss://).
func Dial(ctx context.Context, url string) (*Feed, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial live feed %s: %w", url, err)
	}
	f := &Feed{
		conn:    conn,
		updates: make(chan []element.Element, 1),
		errs:    make(chan error, 1),
		done:    make(chan struct{}),
	}
	go f.readLoop()
	return f, nil
}

// Updates delivers each decoded element collection. The channel is closed
// when the connection ends.
func (f *Feed) Updates() <-chan []element.Element { return f.updates }

// Err returns the error that ended the feed, if any, once Updates is closed.
func (f *Feed) Err() error {
	select {
	case err := <-f.errs:
		return err
	default:
		return nil
	}
}

// Close terminates the connection. It is safe to call more than once.
func (f *Feed) Close() error {
	var err error
	f.closeOnce.Do(func() {
		close(f.done)
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = f.conn.WriteMessage(websocket.CloseMessage, msg)
		err = f.conn.Close()
	})
	return err
}

func (f *Feed) readLoop() {
	defer close(f.updates)
	for {
		typ, data, err := f.conn.ReadMessage()
		if err != nil {
			select {
			case <-f.done:
			default:
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					f.errs <- fmt.Errorf("live feed: %w", err)
				}
			}
			return
		}
		if typ != websocket.TextMessage {
			continue
		}
		els, err := element.Parse(data)
		if err != nil {
			debug.Log("remote: skipping undecodable feed message: %v", err)
			continue
		}
		select {
		case f.updates <- els:
		case <-f.done:
			return
		}
	}
}
