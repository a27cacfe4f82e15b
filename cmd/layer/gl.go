// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

//go:build linux && cgo

package main

/*
#include <dlfcn.h>
#include <GL/gl.h>
#include <EGL/egl.h>
#include <GL/glx.h>

typedef EGLBoolean (*PFN_eglSwapBuffers)(EGLDisplay, EGLSurface);
typedef Bool (*PFN_glXSwapBuffers_t)(Display *, GLXDrawable);

static void *current_egl_context(void) {
	return (void *)eglGetCurrentContext();
}

static void *current_glx_context(void) {
	return (void *)glXGetCurrentContext();
}

static int call_egl_swap(PFN_eglSwapBuffers fn, EGLDisplay dpy, EGLSurface surf) {
	return fn(dpy, surf);
}

static void call_glx_swap(PFN_glXSwapBuffers_t fn, Display *dpy, GLXDrawable drawable) {
	fn(dpy, drawable);
}

static void get_viewport(GLint *v) {
	glGetIntegerv(GL_VIEWPORT, v);
}

static GLuint current_program(void) {
	GLint p = 0;
	glGetIntegerv(GL_CURRENT_PROGRAM, &p);
	return (GLuint)p;
}

static void use_program(GLuint p) {
	glUseProgram(p);
}

static void set_viewport(GLint x, GLint y, GLint w, GLint h) {
	glViewport(x, y, w, h);
}
*/
import "C"

import (
	"sync"

	"github.com/mangohud/overlayd/internal/glhook"
)

// glBackend implements glhook.StateBackend with the minimal slice of
// real GL state this overlay touches: the active program and viewport.
// Every other field in glhook.SavedGLState stays at its zero value until a
// real widget backend needs it — see DESIGN.md's Non-goal note on
// internal/hud.Compositor.
type glBackend struct{}

func (glBackend) Save() glhook.SavedGLState {
	var vp [4]C.GLint
	C.get_viewport(&vp[0])
	return glhook.SavedGLState{
		Program:  uint32(C.current_program()),
		Viewport: [4]int32{int32(vp[0]), int32(vp[1]), int32(vp[2]), int32(vp[3])},
	}
}

func (glBackend) Restore(s glhook.SavedGLState) {
	C.use_program(C.GLuint(s.Program))
	C.set_viewport(C.GLint(s.Viewport[0]), C.GLint(s.Viewport[1]), C.GLint(s.Viewport[2]), C.GLint(s.Viewport[3]))
}

func currentGLContext() glhook.ContextHandle {
	if ctx := C.current_egl_context(); ctx != nil {
		return glhook.ContextHandle(uintptr(ctx))
	}
	if ctx := C.current_glx_context(); ctx != nil {
		return glhook.ContextHandle(uintptr(ctx))
	}
	return 0
}

var interceptor = glhook.NewInterceptor(glRegistry, currentGLContext, glBackend{}, nil)

var nextEGLSwapBuffers C.PFN_eglSwapBuffers
var nextGLXSwapBuffers C.PFN_glXSwapBuffers_t

var pacingWireOnce sync.Once

// ensurePacingWired connects the GL/EGL interceptor to the same frame-pacing
// primitives the Vulkan present path drives, per SPEC_FULL.md §4.2: a
// process using OpenGL gets fps limiting and present-wait throttling too,
// not just Vulkan apps. Deferred to first swap so dlopen of this layer
// never starts the Overlay's background workers on its own.
func ensurePacingWired() {
	pacingWireOnce.Do(func() {
		ov := ensureOverlay()
		interceptor.SetPacing(ov.FPSLimiter, ov.PresentLimiter, 1, ov.Ring, nil)
	})
}

//export MangoHud_gl_eglSwapBuffers
func MangoHud_gl_eglSwapBuffers(dpy C.EGLDisplay, surf C.EGLSurface) C.EGLBoolean {
	ensurePacingWired()
	if nextEGLSwapBuffers == nil {
		nextEGLSwapBuffers = C.PFN_eglSwapBuffers(C.resolve_next_symbol(C.CString("eglSwapBuffers")))
	}
	ok := interceptor.HandleSwap(func() bool {
		return C.call_egl_swap(nextEGLSwapBuffers, dpy, surf) != 0
	})
	if ok {
		return C.EGL_TRUE
	}
	return C.EGL_FALSE
}

//export MangoHud_gl_glXSwapBuffers
func MangoHud_gl_glXSwapBuffers(dpy *C.Display, drawable C.GLXDrawable) {
	ensurePacingWired()
	if nextGLXSwapBuffers == nil {
		nextGLXSwapBuffers = C.PFN_glXSwapBuffers_t(C.resolve_next_symbol(C.CString("glXSwapBuffers")))
	}
	interceptor.HandleSwap(func() bool {
		if nextGLXSwapBuffers == nil {
			return false
		}
		C.call_glx_swap(nextGLXSwapBuffers, dpy, drawable)
		return true
	})
}
