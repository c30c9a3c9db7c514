package service

import (
	"context"
	"log/slog"

	"github.com/set-night/coworker/internal/domain"
	"github.com/set-night/coworker/internal/history"
)

type EmployeeLookup interface {
	GetEmployee(ctx context.Context, miamID string) (*domain.EmployeeResponse, error)
}

// ProfileService resolves a user's employee context, caching it in the
// user's own storage scope.
type ProfileService struct {
	employees EmployeeLookup
}

func NewProfileService(employees EmployeeLookup) *ProfileService {
	return &ProfileService{employees: employees}
}

// Resolve returns the profile of miamID. A failed employee lookup leaves
// Employee nil instead of failing. An empty miamID means the user is unknown:
// the employee cache is dropped and ErrNotLoggedIn returned.
func (s *ProfileService) Resolve(ctx context.Context, store *history.Store, miamID string) (*domain.Profile, error) {
	if miamID == "" {
		store.DeleteEmployeeInfo(ctx)
		return nil, domain.ErrNotLoggedIn
	}

	p := &domain.Profile{MiamID: miamID}
	if cached := store.LoadEmployeeInfo(ctx); cached != nil {
		p.Employee = cached
		return p, nil
	}

	resp, err := s.employees.GetEmployee(ctx, miamID)
	if err != nil {
		slog.Warn("fetch employee info", "error", err, "miam_id", miamID)
		return p, nil
	}

	info := domain.EmployeeInfo{
		CompanyCode: resp.Employee.CompanyCode,
		OfficeCode:  resp.Employee.OfficeCode,
	}
	if info.Complete() {
		store.SaveEmployeeInfo(ctx, info)
		p.Employee = &info
	}
	return p, nil
}

// Invalidate drops the cached employee context so the next Resolve looks it
// up again.
func (s *ProfileService) Invalidate(ctx context.Context, store *history.Store) {
	store.DeleteEmployeeInfo(ctx)
}
