package preview

import (
	"context"
	"sync"

	"svoextract/internal/framesource"
)

// Session keeps one handle open for repeated previews of a recording. A depth
// mode change closes the handle and opens a fresh one.
type Session struct {
	svc  *Service
	path string

	mu   sync.Mutex
	src  framesource.Source
	mode framesource.DepthMode
}

// NewSession prepares a session for path. No handle is opened until the first request.
func (s *Service) NewSession(path string) *Session {
	return &Session{svc: s, path: path}
}

// Frame renders one view through the session's handle.
func (sess *Session) Frame(ctx context.Context, frame int, view View, mode framesource.DepthMode) (result FrameResult) {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	defer sess.svc.recoverInto(&result.OK, &result.Error, "frame")

	src, err := sess.handle(ctx, mode)
	if err != nil {
		return FrameResult{Error: sess.svc.failure(err, "frame")}
	}
	return sess.svc.renderFrom(src, frame, view)
}

// Inertial returns one inertial sample through the session's handle.
func (sess *Session) Inertial(ctx context.Context, frame int) (result InertialResult) {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	defer sess.svc.recoverInto(&result.OK, &result.Error, "inertial")

	mode := sess.mode
	if mode == "" {
		mode = framesource.DefaultDepthMode
	}
	src, err := sess.handle(ctx, mode)
	if err != nil {
		return InertialResult{Error: sess.svc.failure(err, "inertial")}
	}
	return inertialFrom(src, frame, sess.svc)
}

// Close releases the open handle, if any.
func (sess *Session) Close() error {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.closeLocked()
}

func (sess *Session) handle(ctx context.Context, mode framesource.DepthMode) (framesource.Source, error) {
	if mode == "" {
		mode = framesource.DefaultDepthMode
	}
	if sess.src != nil && sess.mode == mode {
		return sess.src, nil
	}
	if err := sess.closeLocked(); err != nil {
		return nil, err
	}
	src, err := sess.svc.open(ctx, sess.path, mode)
	if err != nil {
		return nil, err
	}
	sess.src = src
	sess.mode = mode
	return src, nil
}

func (sess *Session) closeLocked() error {
	if sess.src == nil {
		return nil
	}
	err := sess.src.Close()
	sess.src = nil
	return err
}
