package telegram

import "sync"

// awaitCorrection maps chatID -> workflow id parked in human_review.
var awaitCorrection sync.Map

// modeMap holds per-chat boolean flags.
type modeMap struct{ m sync.Map }

func (mm *modeMap) set(chatID int64, v bool) { mm.m.Store(chatID, v) }

func (mm *modeMap) get(chatID int64) bool {
	if v, ok := mm.m.Load(chatID); ok {
		b, _ := v.(bool)
		return b
	}
	return false
}
