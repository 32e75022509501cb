package service

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/sync/errgroup"

	domainauth "github.com/novellms/lms-gateway/internal/domain/auth"
	"github.com/novellms/lms-gateway/internal/domain/progress"
	lmserrors "github.com/novellms/lms-gateway/internal/errors"
	"github.com/novellms/lms-gateway/internal/ports"
)

// ProgressServiceOptions groups dependencies for ProgressService.
type ProgressServiceOptions struct {
	Source    ports.ProgressSource
	Directory ports.UserDirectory
	Logger    *slog.Logger
}

// ProgressService produces display-ready progress summaries for a logged-in
// member.
type ProgressService struct {
	source    ports.ProgressSource
	directory ports.UserDirectory
	logger    *slog.Logger
}

// NewProgressService constructs a ProgressService.
func NewProgressService(opts ProgressServiceOptions) *ProgressService {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &ProgressService{
		source:    opts.Source,
		directory: opts.Directory,
		logger:    logger,
	}
}

// ModuleSummary is one module row with its normalized percentage.
type ModuleSummary struct {
	Name     string          `json:"name"`
	Title    string          `json:"title"`
	Status   progress.Status `json:"status"`
	Progress float64         `json:"progress"`
}

// Summary is the member's dashboard view of their enrollments.
type Summary struct {
	Member   string          `json:"member"`
	FullName string          `json:"full_name"`
	Modules  []ModuleSummary `json:"modules"`
	Average  float64         `json:"average_progress"`
	Stats    progress.Stats  `json:"stats"`
}

// Dashboard fetches the member's identity and enrollments concurrently and
// folds them into a Summary. Raw backend numbers pass through the fractional
// normalization; nothing here re-clamps them.
func (s *ProgressService) Dashboard(ctx context.Context, session domainauth.Session) (*Summary, error) {
	ref := ports.BackendRef{SID: session.BackendSID, Identity: session.Identity}

	var (
		identity domainauth.Identity
		modules  []progress.Module
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		identity, err = s.directory.FetchIdentity(gctx, ref)
		return err
	})
	g.Go(func() error {
		var err error
		modules, err = s.source.FetchMemberModules(gctx, ref)
		return err
	})
	if err := g.Wait(); err != nil {
		// Backend errors already carry their taxonomy code; only bare
		// errors get the generic network code.
		var appErr *lmserrors.AppError
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, lmserrors.Wrap(err, lmserrors.ErrCodeNetwork, "fetch member dashboard")
	}

	summary := &Summary{
		Member:   identity.Name,
		FullName: identity.FullName,
		Modules:  make([]ModuleSummary, 0, len(modules)),
		Average:  progress.AverageProgress(modules),
		Stats:    progress.ComputeStats(modules),
	}
	for _, m := range modules {
		row := ModuleSummary{
			Name:     m.Name,
			Title:    m.Title,
			Progress: progress.ModuleProgress(m.Snapshot),
		}
		if m.Snapshot != nil {
			row.Status = m.Snapshot.Status
		} else {
			row.Status = progress.StatusNotStarted
		}
		summary.Modules = append(summary.Modules, row)
	}
	return summary, nil
}
