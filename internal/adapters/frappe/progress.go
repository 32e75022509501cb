package frappe

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/novellms/lms-gateway/internal/domain/progress"
	lmserrors "github.com/novellms/lms-gateway/internal/errors"
	"github.com/novellms/lms-gateway/internal/ports"
)

// enrollmentDoctype lists a member's course modules together with their
// progress fields.
const enrollmentDoctype = "LMS Enrollment"

// enrollmentRow is the list-view shape of one enrollment document.
type enrollmentRow struct {
	Name            string   `json:"name"`
	Module          string   `json:"module"`
	ModuleTitle     string   `json:"module_title"`
	Status          string   `json:"status"`
	Progress        *float64 `json:"progress"`
	OverallProgress *float64 `json:"overall_progress"`
}

// FetchMemberModules lists the member's enrollments and maps them to domain
// modules. An enrollment with no status and no numbers means the member never
// opened the module; that maps to a nil snapshot.
func (c *Client) FetchMemberModules(ctx context.Context, ref ports.BackendRef) ([]progress.Module, error) {
	filters, err := json.Marshal([][]string{{"member", "=", ref.Identity}})
	if err != nil {
		return nil, lmserrors.Wrap(err, lmserrors.ErrCodeInternal, "encode enrollment filters")
	}
	fields, err := json.Marshal([]string{"name", "module", "module_title", "status", "progress", "overall_progress"})
	if err != nil {
		return nil, lmserrors.Wrap(err, lmserrors.ErrCodeInternal, "encode enrollment fields")
	}

	query := url.Values{}
	query.Set("filters", string(filters))
	query.Set("fields", string(fields))
	query.Set("limit_page_length", "0")

	var out struct {
		Data []enrollmentRow `json:"data"`
	}
	err = c.call(ctx, callParams{
		method: http.MethodGet,
		path:   resourcePath(enrollmentDoctype, ""),
		query:  query,
		sid:    ref.SID,
	}, &out)
	if err != nil {
		return nil, err
	}

	modules := make([]progress.Module, 0, len(out.Data))
	for _, row := range out.Data {
		modules = append(modules, progress.Module{
			Name:     row.Module,
			Title:    row.ModuleTitle,
			Snapshot: row.snapshot(),
		})
	}
	return modules, nil
}

func (r enrollmentRow) snapshot() *progress.Snapshot {
	if r.Status == "" && r.Progress == nil && r.OverallProgress == nil {
		return nil
	}
	return &progress.Snapshot{
		Status:          progress.Status(r.Status),
		Progress:        r.Progress,
		OverallProgress: r.OverallProgress,
	}
}
