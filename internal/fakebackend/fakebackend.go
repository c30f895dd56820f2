// Package fakebackend is an in-memory implementation of backend.Device,
// used by package tests and cmd/framegraphdemo wherever a real GPU device
// is not available. It allocates monotonically increasing handle values
// and logs every call at debug level.
package fakebackend

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/vk/framegraph/internal/backend"
	"github.com/vk/framegraph/internal/ctxlog"
)

// Device is a reference backend.Device that never touches a real GPU. It
// records every call it receives for inspection by tests.
type Device struct {
	ctx context.Context

	nextTexture atomic.Uint64
	nextRT      atomic.Uint64

	Calls []string

	textures      map[backend.Texture]backend.TextureDescriptor
	renderTargets map[backend.RenderTarget]backend.RenderTargetDescriptor

	currentRT   backend.RenderTarget
	FlushCount  int
}

// New returns a ready-to-use Device. ctx is used only for logging.
func New(ctx context.Context) *Device {
	return &Device{
		ctx:           ctx,
		textures:      map[backend.Texture]backend.TextureDescriptor{},
		renderTargets: map[backend.RenderTarget]backend.RenderTargetDescriptor{},
	}
}

func (d *Device) log(format string, args ...any) {
	d.Calls = append(d.Calls, fmt.Sprintf(format, args...))
	ctxlog.FromContext(d.ctx).Debug("fakebackend: " + fmt.Sprintf(format, args...))
}

// CreateTexture allocates the next handle value and records desc.
func (d *Device) CreateTexture(desc backend.TextureDescriptor) (backend.Texture, error) {
	h := backend.Texture(d.nextTexture.Add(1))
	d.textures[h] = desc
	d.log("CreateTexture(%v) -> %v", desc, h)
	return h, nil
}

// DestroyTexture forgets h.
func (d *Device) DestroyTexture(t backend.Texture) {
	d.log("DestroyTexture(%v)", t)
	delete(d.textures, t)
}

// CreateRenderTarget allocates the next render-target handle value and
// records desc and the attachments it was bound to.
func (d *Device) CreateRenderTarget(desc backend.RenderTargetDescriptor, attachments []backend.Texture) (backend.RenderTarget, error) {
	h := backend.RenderTarget(d.nextRT.Add(1))
	d.renderTargets[h] = desc
	d.log("CreateRenderTarget(%v, attachments=%v) -> %v", desc, attachments, h)
	return h, nil
}

// DestroyRenderTarget forgets rt.
func (d *Device) DestroyRenderTarget(rt backend.RenderTarget) {
	d.log("DestroyRenderTarget(%v)", rt)
	delete(d.renderTargets, rt)
}

// BeginRenderPass records the bind and remembers the currently bound
// target for EndRenderPass's log line.
func (d *Device) BeginRenderPass(rt backend.RenderTarget, desc backend.RenderTargetDescriptor, discardStart backend.AttachmentMask) {
	d.currentRT = rt
	d.log("BeginRenderPass(%v, discardStart=%#x)", rt, discardStart)
}

// EndRenderPass records the unbind.
func (d *Device) EndRenderPass(discardEnd backend.AttachmentMask) {
	d.log("EndRenderPass(%v, discardEnd=%#x)", d.currentRT, discardEnd)
	d.currentRT = 0
}

// Flush records a flush.
func (d *Device) Flush() {
	d.FlushCount++
	d.log("Flush() #%d", d.FlushCount)
}

var _ backend.Device = (*Device)(nil)
