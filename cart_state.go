// cart_state.go - Save states for the hybrid cartridge

package main

import (
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
	"golang.org/x/xerrors"
)

const HYBRID_STATE_VERSION = 1

var stateEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("hybrid: failed to create CBOR enc mode: %v", err))
	}
	stateEncMode = em
}

// HybridState is the serialised bridge. The logic routine's own execution
// point is not part of it.
type HybridState struct {
	Version         int    `cbor:"1,keyasint"`
	Image           []byte `cbor:"2,keyasint"`
	Cursor          uint16 `cbor:"3,keyasint"`
	LogicActive     bool   `cbor:"4,keyasint"`
	EmulationActive bool   `cbor:"5,keyasint"`
	Overblank       bool   `cbor:"6,keyasint"`
}

// captureState copies the bridge. Call it from the emulation side, while
// the logic routine is parked.
func (b *Bridge) captureState() *HybridState {
	logic, emu := b.Handoff().State()
	img := make([]byte, HYBRID_IMAGE_SIZE)
	copy(img, b.image.Bytes())
	return &HybridState{
		Version:         HYBRID_STATE_VERSION,
		Image:           img,
		Cursor:          b.image.Cursor(),
		LogicActive:     logic,
		EmulationActive: emu,
		Overblank:       b.Overblank(),
	}
}

func (b *Bridge) restoreState(s *HybridState) error {
	if b.Running() {
		return ErrStateUnsupported
	}
	if s.Version != HYBRID_STATE_VERSION {
		return xerrors.Errorf("state version %d: %w", s.Version, ErrBadSnapshot)
	}
	h := NewHandoff(b.cfg.HandoffTimeout)
	if err := h.restore(s.LogicActive, s.EmulationActive); err != nil {
		return err
	}
	if err := b.image.restore(s.Image, s.Cursor); err != nil {
		return err
	}
	if s.Overblank {
		b.image.Set(HYBRID_OVERBLANK_FLAG, HYBRID_OVERBLANK_SET)
	} else {
		b.image.Set(HYBRID_OVERBLANK_FLAG, HYBRID_OVERBLANK_CLEAR)
	}

	b.mu.Lock()
	b.handoff = h
	b.mu.Unlock()
	return nil
}

// Save writes the cartridge state as canonical CBOR.
func (c *CartHybrid) Save(w io.Writer) error {
	if err := stateEncMode.NewEncoder(w).Encode(c.bridge.captureState()); err != nil {
		return xerrors.Errorf("hybrid: save state: %w", err)
	}
	return nil
}

// Load restores a state written by Save. A running logic routine cannot be
// rewound to the point the state was taken at, so Load refuses with
// ErrStateUnsupported while one is attached.
func (c *CartHybrid) Load(r io.Reader) error {
	var s HybridState
	if err := cbor.NewDecoder(r).Decode(&s); err != nil {
		return xerrors.Errorf("hybrid: load state: %v: %w", err, ErrBadSnapshot)
	}
	return c.bridge.restoreState(&s)
}
