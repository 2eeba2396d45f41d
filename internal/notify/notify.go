// Package notify delivers phase notifications for the local CLI.
package notify

import (
	"fmt"
	"io"
	"sync"

	"github.com/godbus/dbus/v5"

	"flowtimer/internal/model"
)

const (
	notificationsService = "org.freedesktop.Notifications"
	notificationsPath    = "/org/freedesktop/Notifications"
	appName              = "flowtimer"
)

// Message returns the summary and body shown for a phase event.
func Message(mode model.Mode, started bool) (string, string) {
	switch {
	case started && mode == model.ModePomodoro:
		return "Focus started", "Stay with one thing until the bell."
	case started:
		return "Break started", "Step away from the screen."
	case mode == model.ModePomodoro:
		return "Pomodoro complete", "Time for a break."
	default:
		return "Break over", "Ready for the next pomodoro?"
	}
}

// Desktop sends org.freedesktop.Notifications popups over the session bus.
type Desktop struct {
	conn    *dbus.Conn
	obj     dbus.BusObject
	timeout int32
	// replaces keeps one popup per timer instead of stacking them.
	mu       sync.Mutex
	replaces uint32
	onError  func(error)
}

func NewDesktop(onError func(error)) (*Desktop, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("connect session bus: %w", err)
	}
	desktop := newDesktop(conn.Object(notificationsService, notificationsPath), onError)
	desktop.conn = conn
	return desktop, nil
}

func newDesktop(obj dbus.BusObject, onError func(error)) *Desktop {
	if onError == nil {
		onError = func(error) {}
	}
	return &Desktop{obj: obj, timeout: 10000, onError: onError}
}

func (d *Desktop) PhaseStarted(mode model.Mode) {
	d.send(mode, true)
}

func (d *Desktop) PhaseEnded(mode model.Mode) {
	d.send(mode, false)
}

func (d *Desktop) send(mode model.Mode, started bool) {
	summary, body := Message(mode, started)
	urgency := byte(1)
	if !started {
		urgency = 2
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	call := d.obj.Call(notificationsService+".Notify", 0,
		appName,
		d.replaces,
		"appointment-soon",
		summary,
		body,
		[]string{},
		map[string]dbus.Variant{
			"urgency": dbus.MakeVariant(urgency),
		},
		d.timeout,
	)
	if call.Err != nil {
		d.onError(fmt.Errorf("send notification: %w", call.Err))
		return
	}
	var id uint32
	if err := call.Store(&id); err == nil {
		d.replaces = id
	}
}

func (d *Desktop) Close() error {
	if d.conn == nil {
		return nil
	}
	return d.conn.Close()
}

// Bell rings the terminal bell and prints the notification text.
type Bell struct {
	mu  sync.Mutex
	out io.Writer
}

func NewBell(out io.Writer) *Bell {
	return &Bell{out: out}
}

func (b *Bell) PhaseStarted(mode model.Mode) {
	b.write(mode, true)
}

func (b *Bell) PhaseEnded(mode model.Mode) {
	b.write(mode, false)
}

func (b *Bell) write(mode model.Mode, started bool) {
	summary, body := Message(mode, started)
	b.mu.Lock()
	defer b.mu.Unlock()
	if started {
		fmt.Fprintf(b.out, "%s. %s\n", summary, body)
		return
	}
	fmt.Fprintf(b.out, "\a%s. %s\n", summary, body)
}
