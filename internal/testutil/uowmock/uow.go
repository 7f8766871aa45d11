package uowmock

import (
	"context"
	"errors"

	"samanvay/internal/domain/project"
	"samanvay/internal/domain/uow"
)

// Ensure compile-time compliance
var _ uow.UnitOfWork = (*UoW)(nil)

var errUnimplemented = errors.New("uowmock: method not implemented")

// UoW is a function-backed mock that satisfies uow.UnitOfWork.
// Fill in the function fields you need in a test; unfilled ones return errUnimplemented.
type UoW struct {
	WithinTxFn        func(ctx context.Context, fn func(r uow.Repos) error) error
	WithinProjectTxFn func(ctx context.Context, projectID string, fn func(r uow.Repos, p *project.Project) error) error
}

// Convenience fluent setters
func New() *UoW { return &UoW{} }
func (m *UoW) WithWithinTx(fn func(context.Context, func(uow.Repos) error) error) *UoW {
	m.WithinTxFn = fn
	return m
}
func (m *UoW) WithWithinProjectTx(fn func(context.Context, string, func(uow.Repos, *project.Project) error) error) *UoW {
	m.WithinProjectTxFn = fn
	return m
}
func (m *UoW) Reset() { *m = UoW{} }

// Serving runs every callback directly against repos. WithinProjectTx hands
// over p when its id matches and project.ErrNotFound otherwise. There is no
// rollback.
func Serving(repos uow.Repos, p *project.Project) *UoW {
	return New().
		WithWithinTx(func(_ context.Context, fn func(uow.Repos) error) error {
			return fn(repos)
		}).
		WithWithinProjectTx(func(_ context.Context, projectID string, fn func(uow.Repos, *project.Project) error) error {
			if p == nil || p.ProjectID != projectID {
				return project.ErrNotFound
			}
			return fn(repos, p)
		})
}

// Methods implementing UnitOfWork
func (m *UoW) WithinTx(ctx context.Context, fn func(r uow.Repos) error) error {
	if m.WithinTxFn != nil {
		return m.WithinTxFn(ctx, fn)
	}
	return errUnimplemented
}
func (m *UoW) WithinProjectTx(ctx context.Context, projectID string, fn func(r uow.Repos, p *project.Project) error) error {
	if m.WithinProjectTxFn != nil {
		return m.WithinProjectTxFn(ctx, projectID, fn)
	}
	return errUnimplemented
}
