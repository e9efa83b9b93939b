package wgpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// RenderPass records one frame's draw sequence into a HAL command encoder.
// It follows the method shapes of gogpu's own HAL render pass encoder
// (SetPipeline/SetBindGroup/SetVertexBuffer/Draw), but forwards every call
// to the underlying hal.RenderPassEncoder immediately instead of recording
// local state for a HAL integration that hasn't landed yet.
type RenderPass struct {
	encoder hal.CommandEncoder
	pass    hal.RenderPassEncoder
	bound   hal.RenderPipeline
}

// RenderPassTarget names the color and depth attachments a pass draws into.
type RenderPassTarget struct {
	ColorView hal.TextureView
	DepthView hal.TextureView
	ClearColor gputypes.Color
}

// BeginRenderPass clears the color and depth attachments (depth clears to
// 0.0, the far plane under reverse-Z) and returns a RenderPass ready to
// record the draw sequence in 4.5.
func BeginRenderPass(encoder hal.CommandEncoder, target RenderPassTarget) (*RenderPass, error) {
	pass, err := encoder.BeginRenderPass(&hal.RenderPassDescriptor{
		ColorAttachments: []hal.RenderPassColorAttachment{{
			View:    target.ColorView,
			LoadOp:  gputypes.LoadOpClear,
			StoreOp: gputypes.StoreOpStore,
			Clear:   target.ClearColor,
		}},
		DepthStencilAttachment: &hal.RenderPassDepthStencilAttachment{
			View:            target.DepthView,
			DepthLoadOp:     gputypes.LoadOpClear,
			DepthStoreOp:    gputypes.StoreOpStore,
			DepthClearValue: 0.0,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("begin render pass: %w", err)
	}
	return &RenderPass{encoder: encoder, pass: pass}, nil
}

// SetPipeline binds pipeline for subsequent draws, skipping the call if it's
// already bound.
func (rp *RenderPass) SetPipeline(pipeline hal.RenderPipeline) {
	if rp.bound == pipeline {
		return
	}
	rp.pass.SetPipeline(pipeline)
	rp.bound = pipeline
}

// SetBindGroup binds the shared resource group (transform, default color,
// color-lookup texture) at index 0.
func (rp *RenderPass) SetBindGroup(index uint32, group hal.BindGroup) {
	rp.pass.SetBindGroup(index, group, nil)
}

// SetVertexBuffer binds a vertex or instance buffer to slot.
func (rp *RenderPass) SetVertexBuffer(slot uint32, buffer hal.Buffer) {
	rp.pass.SetVertexBuffer(slot, buffer, 0, 0)
}

// Draw issues a non-indexed draw call for vertexCount vertices, repeated
// instanceCount times (1 for non-instanced geometry).
func (rp *RenderPass) Draw(vertexCount, instanceCount uint32) {
	rp.pass.Draw(vertexCount, instanceCount, 0, 0)
}

// End finishes the pass.
func (rp *RenderPass) End() error {
	return rp.pass.End()
}
