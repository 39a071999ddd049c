package service

import "context"

// Reap runs one reaper pass.
func (s *Service) Reap(ctx context.Context) int { return s.reap(ctx) }
