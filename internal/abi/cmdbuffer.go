// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package abi

// AllocateCommandBuffers registers level for each of the handles the inner
// allocation call produced, per spec.md §3's CommandBufferRecord.
func (c *Core) AllocateCommandBuffers(handles []Handle, level CommandBufferLevel) {
	for _, h := range handles {
		c.cmdbufs.Insert(h, &CommandBufferRecord{Handle: h, Level: level})
	}
}

// FreeCommandBuffers forgets every named handle.
func (c *Core) FreeCommandBuffers(handles []Handle) {
	for _, h := range handles {
		c.cmdbufs.Remove(h)
	}
}

// ResetCommandBuffer clears the enqueued bit, since a reset command buffer
// can no longer be in flight once the application is allowed to re-record
// it.
func (c *Core) ResetCommandBuffer(handle Handle) {
	if rec, ok := c.cmdbufs.Get(handle); ok {
		rec.Enqueued = false
		rec.Queue = 0
	}
}

// BeginCommandBuffer is a no-op bookkeeping hook: recording state isn't
// tracked beyond the enqueued bit QueueSubmit/ResetCommandBuffer maintain.
func (c *Core) BeginCommandBuffer(Handle) {}

// EndCommandBuffer is likewise a no-op bookkeeping hook.
func (c *Core) EndCommandBuffer(Handle) {}

// CmdExecuteCommands has no per-call bookkeeping of its own: the secondary
// buffers it names are not separately marked enqueued, since they do not
// get their own QueueSubmit fence wait — only the primary buffer that
// executes them does.
func (c *Core) CmdExecuteCommands(primary Handle, secondaries []Handle) {}

// CommandBufferRecordFor returns the tracked record for handle, if any.
func (c *Core) CommandBufferRecordFor(handle Handle) (*CommandBufferRecord, bool) {
	return c.cmdbufs.Get(handle)
}
