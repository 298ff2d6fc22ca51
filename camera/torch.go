package camera

import (
	"context"
	"sync"
)

// PhotoCapabilities describes the track photo features relevant to torch
// control.
type PhotoCapabilities struct {
	Torch bool
}

// CapabilityProber is implemented by tracks that support photo capability
// introspection. Tracks without it are treated as having no flash, which is
// reported as absence rather than an error.
type CapabilityProber interface {
	PhotoCapabilities(ctx context.Context) (PhotoCapabilities, error)
}

// TorchSwitch is implemented by tracks that can toggle the torch.
type TorchSwitch interface {
	SetTorch(ctx context.Context, on bool) error
}

// Torch controls the continuous illumination capability of the currently
// bound track. Successful toggles update cached on/off state which On()
// reads synchronously without re-probing hardware.
type Torch struct {
	mu    sync.Mutex
	track Track
	on    bool
}

// NewTorch returns an unbound torch controller.
func NewTorch() *Torch { return &Torch{} }

// Bind attaches the controller to the active stream's track.
func (t *Torch) Bind(track Track) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.track = track
	t.on = false
}

// Unbind detaches the controller. The cached state resets because stopping
// the tracks disabled the torch as a platform side effect.
func (t *Torch) Unbind() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.track = nil
	t.on = false
}

// Available reports whether the bound track has a torch. A track without
// capability introspection yields false without error; only the absence of
// any active track is an error.
func (t *Torch) Available(ctx context.Context) (bool, error) {
	t.mu.Lock()
	track := t.track
	t.mu.Unlock()
	if track == nil {
		return false, &NotAvailableError{Op: "probe flash"}
	}
	prober, ok := track.(CapabilityProber)
	if !ok {
		return false, nil
	}
	caps, err := prober.PhotoCapabilities(ctx)
	if err != nil {
		return false, nil
	}
	return caps.Torch, nil
}

// Set switches the torch on or off.
func (t *Torch) Set(ctx context.Context, on bool) error {
	t.mu.Lock()
	track := t.track
	t.mu.Unlock()
	if track == nil {
		return &NotAvailableError{Op: "set flash"}
	}
	avail, err := t.Available(ctx)
	if err != nil {
		return err
	}
	if !avail {
		return &NoFlashError{}
	}
	sw, ok := track.(TorchSwitch)
	if !ok {
		return &NoFlashError{}
	}
	if err := sw.SetTorch(ctx, on); err != nil {
		return err
	}
	t.mu.Lock()
	t.on = on
	t.mu.Unlock()
	return nil
}

// On returns the cached torch state.
func (t *Torch) On() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.on
}
