package service

import (
	"context"
	"fmt"

	"github.com/xiaot623/gogo/chatbot/internal/domain"
)

// bestEffort runs a side step whose failure must not reach the caller. Errors
// and panics are logged and written to the debug log.
func (s *Service) bestEffort(ctx context.Context, component string, fields map[string]any, fn func(ctx context.Context) error) {
	var err error
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic: %v", r)
			}
		}()
		err = fn(ctx)
	}()
	if err == nil {
		return
	}
	s.log.Warn("best-effort step failed", "component", component, "error", err)
	s.debug(ctx, domain.DebugLevelWarning, component, err.Error(), fields)
}

// debug writes to the persistent debug log. Failures are only logged.
func (s *Service) debug(ctx context.Context, level domain.DebugLevel, component, message string, fields map[string]any) {
	if err := s.store.LogDebug(context.WithoutCancel(ctx), level, component, message, fields); err != nil {
		s.log.Warn("failed to write debug log", "component", component, "error", err)
	}
}
