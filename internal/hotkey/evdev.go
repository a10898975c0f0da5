package hotkey

import (
	"encoding/binary"
	"fmt"
)

// Linux input event types and codes (from <linux/input-event-codes.h>)
const (
	evKey = 0x01

	evValueRelease = 0
	evValuePress   = 1
	evValueRepeat  = 2
)

// inputEvent mirrors struct input_event on 64-bit Linux.
type inputEvent struct {
	Sec   int64
	Usec  int64
	Type  uint16
	Code  uint16
	Value int32
}

var inputEventSize = binary.Size(inputEvent{})

var modifierCodes = map[uint16]Modifier{
	29:  ModCtrl,  // KEY_LEFTCTRL
	97:  ModCtrl,  // KEY_RIGHTCTRL
	56:  ModAlt,   // KEY_LEFTALT
	100: ModAlt,   // KEY_RIGHTALT
	42:  ModShift, // KEY_LEFTSHIFT
	54:  ModShift, // KEY_RIGHTSHIFT
	125: ModSuper, // KEY_LEFTMETA
	126: ModSuper, // KEY_RIGHTMETA
}

var evdevKeys = func() map[uint16]string {
	keys := map[uint16]string{
		1:   "Escape",
		14:  "Backspace",
		15:  "Tab",
		28:  "Enter",
		57:  "Space",
		102: "Home",
		103: "Up",
		104: "PageUp",
		105: "Left",
		106: "Right",
		107: "End",
		108: "Down",
		109: "PageDown",
		110: "Insert",
		111: "Delete",
		87:  "F11",
		88:  "F12",
	}

	// KEY_1..KEY_9 are 2..10, KEY_0 is 11
	for i := 1; i <= 9; i++ {
		keys[uint16(i+1)] = fmt.Sprint(i)
	}
	keys[11] = "0"

	for code, row := range map[uint16]string{16: "QWERTYUIOP", 30: "ASDFGHJKL", 44: "ZXCVBNM"} {
		for i, ch := range row {
			keys[code+uint16(i)] = string(ch)
		}
	}

	// KEY_F1..KEY_F10 are 59..68, KEY_F13..KEY_F24 are 183..194
	for i := 0; i < 10; i++ {
		keys[uint16(59+i)] = fmt.Sprintf("F%d", i+1)
	}
	for i := 0; i < 12; i++ {
		keys[uint16(183+i)] = fmt.Sprintf("F%d", i+13)
	}

	return keys
}()

// keyState follows modifier keys across one or more keyboards and turns key
// presses into combos.
type keyState struct {
	held map[uint16]bool
}

func newKeyState() *keyState {
	return &keyState{held: make(map[uint16]bool)}
}

func (s *keyState) mods() Modifier {
	var m Modifier
	for code, down := range s.held {
		if down {
			m |= modifierCodes[code]
		}
	}
	return m
}

// handle consumes one event. It returns the combo when a mapped key is
// pressed; auto-repeat does not fire again.
func (s *keyState) handle(ev inputEvent) (Combo, bool) {
	if ev.Type != evKey {
		return Combo{}, false
	}

	if _, ok := modifierCodes[ev.Code]; ok {
		switch ev.Value {
		case evValuePress, evValueRepeat:
			s.held[ev.Code] = true
		case evValueRelease:
			delete(s.held, ev.Code)
		}
		return Combo{}, false
	}

	if ev.Value != evValuePress {
		return Combo{}, false
	}

	key, ok := evdevKeys[ev.Code]
	if !ok {
		return Combo{}, false
	}

	return Combo{Mods: s.mods(), Key: key}, true
}

// reset forgets held modifiers, e.g. after a device was lost mid-press.
func (s *keyState) reset() {
	clear(s.held)
}
