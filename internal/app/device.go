// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package app

import (
	"context"
	"errors"

	"github.com/aplane-algo/apledger/internal/menu"
)

// ErrExited is returned by a Device whose loop has ended.
var ErrExited = errors.New("device has exited")

type event struct {
	apdu   []byte
	button menu.Button
	isAPDU bool
	reply  chan []byte
}

// Device runs an App on a single goroutine. Transport servers and input
// sources submit APDUs and button presses from any goroutine.
type Device struct {
	app    *App
	events chan event
	done   chan struct{}

	// OnMenu, if set, is called from the device goroutine with the menu
	// label after every event.
	OnMenu func(menu.Label)
}

// NewDevice returns a Device for app. Call Run to start it.
func NewDevice(app *App) *Device {
	return &Device{
		app:    app,
		events: make(chan event),
		done:   make(chan struct{}),
	}
}

// Run processes events until ctx is cancelled or the app exits.
// It returns nil when the app exits.
func (d *Device) Run(ctx context.Context) error {
	defer close(d.done)
	defer d.app.Cancel()

	d.redraw()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-d.events:
			if ev.isAPDU {
				ev.reply <- d.app.HandleAPDU(ev.apdu)
			} else {
				d.app.Press(ev.button)
			}
			if d.app.Exited() {
				return nil
			}
			d.redraw()
		}
	}
}

// Exchange submits a raw command APDU and waits for the raw response.
func (d *Device) Exchange(ctx context.Context, command []byte) ([]byte, error) {
	ev := event{apdu: command, isAPDU: true, reply: make(chan []byte, 1)}
	if err := d.submit(ctx, ev); err != nil {
		return nil, err
	}
	select {
	case resp := <-ev.reply:
		return resp, nil
	case <-d.done:
		// The loop may have answered just before it ended.
		select {
		case resp := <-ev.reply:
			return resp, nil
		default:
			return nil, ErrExited
		}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Press submits a button press.
func (d *Device) Press(ctx context.Context, b menu.Button) error {
	return d.submit(ctx, event{button: b})
}

// Done is closed when Run returns.
func (d *Device) Done() <-chan struct{} { return d.done }

func (d *Device) submit(ctx context.Context, ev event) error {
	select {
	case d.events <- ev:
		return nil
	case <-d.done:
		return ErrExited
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Device) redraw() {
	if d.OnMenu != nil {
		d.OnMenu(d.app.Label())
	}
}
