// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

// Package app is the device application: it dispatches command APDUs to
// the block transfer and the Pocket operations, and routes button presses
// to the menus.
//
// App is not safe for concurrent use. Device serialises APDUs and button
// events onto a single goroutine.
package app

import (
	"log/slog"

	"github.com/aplane-algo/apledger/internal/apdu"
	"github.com/aplane-algo/apledger/internal/block"
	"github.com/aplane-algo/apledger/internal/menu"
	"github.com/aplane-algo/apledger/internal/pocket"
	"github.com/aplane-algo/apledger/internal/prompt"
	"github.com/aplane-algo/apledger/internal/version"
)

// Pass sequences of the parameterised operations. Signing reads the path
// (parameter 1) and then the transaction (parameter 0) twice.
var (
	addressSeq = []int{0}
	signSeq    = []int{1, 0, 0}
)

// Config wires an App to its keys, prompts and settings.
type Config struct {
	Deriver  pocket.Deriver
	Prompter prompt.Prompter
	Settings *menu.Settings
	Logger   *slog.Logger
}

type sessionKind int

const (
	sessionIdle sessionKind = iota
	sessionGetPubkey
	sessionVerifyAddress
	sessionSign
	sessionBlindSign
)

func (k sessionKind) String() string {
	switch k {
	case sessionGetPubkey:
		return "GetPubkey"
	case sessionVerifyAddress:
		return "VerifyAddress"
	case sessionSign:
		return "Sign"
	case sessionBlindSign:
		return "BlindSign"
	default:
		return "Idle"
	}
}

// App holds the state of the device between APDUs.
type App struct {
	deriver  pocket.Deriver
	prompter prompt.Prompter
	settings *menu.Settings
	log      *slog.Logger

	transfer     *block.State
	transferKind sessionKind // operation that opened the live transfer
	kind         sessionKind
	op           *pocket.Operation

	idle   *menu.Idle
	busy   menu.Busy
	exited bool
}

// New returns an idle App.
func New(cfg Config) *App {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	settings := cfg.Settings
	if settings == nil {
		settings = menu.NewSettings(false)
	}
	return &App{
		deriver:  cfg.Deriver,
		prompter: cfg.Prompter,
		settings: settings,
		log:      logger,
		transfer: block.NewState(logger),
		idle:     menu.NewIdle(version.Version, settings),
	}
}

// HandleAPDU processes one raw command APDU and returns the raw response.
func (a *App) HandleAPDU(raw []byte) []byte {
	data, sw := a.handle(raw)
	a.log.Debug("apdu handled", "bytes", len(raw), "status", sw, "session", a.kind)
	if !a.Busy() {
		a.busy.Reset()
	}
	return respond(data, sw)
}

func (a *App) handle(raw []byte) ([]byte, apdu.StatusWord) {
	if len(raw) == 0 {
		return nil, apdu.StatusNothingReceived
	}
	cmd, err := apdu.ParseCommand(raw)
	if err != nil {
		return nil, apdu.StatusOf(err)
	}

	switch cmd.Ins {
	case apdu.InsGetVersion:
		major, minor, patch := version.Triple()
		reply := []byte{block.TagResultFinal, major, minor, patch}
		return append(reply, version.AppName...), apdu.StatusOK

	case apdu.InsGetVersionStr:
		reply := []byte{block.TagResultFinal}
		return append(reply, version.Label()...), apdu.StatusOK

	case apdu.InsGetPubkey:
		return a.transact(cmd.Data, addressSeq, sessionGetPubkey)

	case apdu.InsVerifyAddress:
		return a.transact(cmd.Data, addressSeq, sessionVerifyAddress)

	case apdu.InsSign:
		return a.transact(cmd.Data, signSeq, sessionSign)

	case apdu.InsBlindSign:
		if !a.settings.BlindSigning() {
			if err := a.prompter.Show(prompt.Screen{Title: "Blind Signing must", Body: "be enabled"}); err != nil {
				a.log.Debug("blind signing notice not shown", "error", err)
			}
			return nil, apdu.StatusNotSupported
		}
		return a.transact(cmd.Data, signSeq, sessionBlindSign)

	case apdu.InsExit:
		a.log.Info("exiting at host request")
		a.exited = true
		return nil, apdu.StatusOK
	}
	return nil, apdu.StatusBadIns
}

// transact feeds payload to the block transfer. Only Start may open a
// transfer for another operation than the live one; any other command
// under a different instruction abandons the live operation.
func (a *App) transact(payload []byte, seq []int, kind sessionKind) ([]byte, apdu.StatusWord) {
	isStart := len(payload) > 0 && payload[0] == block.TagStart
	if a.transfer.Active() && kind != a.transferKind && !isStart {
		a.log.Debug("block command for another operation", "live", a.transferKind, "got", kind)
		a.Cancel()
		return nil, apdu.StatusUnknown
	}

	reply, err := a.transfer.Handle(payload, seq, binding{app: a, kind: kind})
	if err != nil {
		a.log.Debug("operation failed", "session", kind, "error", err)
		return nil, apdu.StatusOf(err)
	}
	if isStart {
		a.transferKind = kind
	}
	return reply, apdu.StatusOK
}

// Busy reports whether an operation is in progress.
func (a *App) Busy() bool {
	return a.kind != sessionIdle || a.transfer.Active()
}

// Cancel abandons the operation in progress and erases its secrets.
func (a *App) Cancel() {
	a.transfer.Reset()
	a.resetSession()
	a.busy.Reset()
}

// Exited reports whether the app has been asked to exit.
func (a *App) Exited() bool { return a.exited }

// Press routes a button press to the busy menu while an operation is in
// progress and to the idle menu otherwise.
func (a *App) Press(b menu.Button) {
	if a.Busy() {
		if a.busy.Press(b) == menu.Cancel {
			a.log.Info("operation cancelled from the busy menu", "session", a.kind)
			a.Cancel()
		}
		return
	}
	if a.idle.Press(b) == menu.Exit {
		a.log.Info("exiting from the idle menu")
		a.exited = true
	}
}

// Label returns the label of the menu currently on screen.
func (a *App) Label() menu.Label {
	if a.Busy() {
		return a.busy.Label()
	}
	return a.idle.Label()
}

func (a *App) resetSession() {
	if a.op != nil {
		a.op.Erase()
	}
	a.op = nil
	a.kind = sessionIdle
}

// session returns the live operation of kind, creating it on the first
// block of a transfer.
func (a *App) session(kind sessionKind) *pocket.Operation {
	if a.op != nil && a.kind == kind {
		return a.op
	}
	if a.op != nil {
		a.log.Debug("discarding session", "was", a.kind, "now", kind)
	}
	a.resetSession()

	switch kind {
	case sessionGetPubkey:
		a.op = pocket.NewAddressOperation(a.deriver, a.prompter, false)
	case sessionVerifyAddress:
		a.op = pocket.NewAddressOperation(a.deriver, a.prompter, true)
	case sessionSign:
		a.op = pocket.NewSignOperation(a.deriver, a.prompter)
	case sessionBlindSign:
		a.op = pocket.NewBlindSignOperation(a.deriver, a.prompter)
	}
	a.kind = kind
	return a.op
}

// binding exposes one session kind of the app to the block transfer.
type binding struct {
	app  *App
	kind sessionKind
}

func (b binding) Session() block.Session { return b.app.session(b.kind) }

func (b binding) Reset() { b.app.resetSession() }

func respond(data []byte, sw apdu.StatusWord) []byte {
	raw, err := apdu.EncodeResponse(data, sw)
	if err != nil {
		sw := uint16(apdu.StatusUnknown)
		return []byte{byte(sw >> 8), byte(sw)}
	}
	return raw
}
