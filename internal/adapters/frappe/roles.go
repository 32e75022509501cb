package frappe

import (
	"context"
	"fmt"
	"net/http"

	jmespath "github.com/jmespath-community/go-jmespath"

	domainauth "github.com/novellms/lms-gateway/internal/domain/auth"
	lmserrors "github.com/novellms/lms-gateway/internal/errors"
	"github.com/novellms/lms-gateway/internal/ports"
)

// permissionsMethod is the dedicated RPC that returns the authoritative role
// tag for an identity.
const permissionsMethod = "novel_lms.api.user_permissions.get_user_lms_permissions"

// DefaultRolePath extracts the user_type tag from the permissions RPC
// payload. Deployments that reshape the payload override it in config.
const DefaultRolePath = "message.user_type"

// lmsUsersDoctype is the singleton document whose child lists carry role
// membership rows.
const lmsUsersDoctype = "LMS Users"

// RoleSource resolves an identity's LMS role against the backend. The
// permissions RPC is authoritative; older backends without it fall back to
// scanning the LMS Users membership lists in priority order.
type RoleSource struct {
	client   *Client
	rolePath string
}

// RoleSourceConfig groups constructor options.
type RoleSourceConfig struct {
	// RolePath is the JMESPath expression locating the role tag in the
	// permissions RPC response. Empty uses DefaultRolePath.
	RolePath string
}

// NewRoleSource builds a RoleSource over an existing backend client.
func NewRoleSource(client *Client, cfg RoleSourceConfig) (*RoleSource, error) {
	path := cfg.RolePath
	if path == "" {
		path = DefaultRolePath
	}
	if _, err := jmespath.Compile(path); err != nil {
		return nil, fmt.Errorf("compile role path %q: %w", path, err)
	}
	return &RoleSource{client: client, rolePath: path}, nil
}

// FetchRole returns the identity's role. RoleNone with a nil error is the
// authoritative "no role assigned" answer; an error means the lookup failed
// and nothing is known.
func (s *RoleSource) FetchRole(ctx context.Context, ref ports.BackendRef) (domainauth.Role, error) {
	role, err := s.fetchFromRPC(ctx, ref)
	if err == nil {
		return role, nil
	}
	// The RPC is absent on backends that predate it; only then scan the
	// membership lists ourselves.
	if !lmserrors.IsNotFound(err) {
		return domainauth.RoleNone, lmserrors.Wrap(err, lmserrors.ErrCodePermissionResolution, "role lookup failed")
	}
	return s.fetchFromMembership(ctx, ref)
}

func (s *RoleSource) fetchFromRPC(ctx context.Context, ref ports.BackendRef) (domainauth.Role, error) {
	var payload any
	err := s.client.call(ctx, callParams{
		method: http.MethodPost,
		path:   methodPath(permissionsMethod),
		body:   map[string]string{"user": ref.Identity},
		sid:    ref.SID,
	}, &payload)
	if err != nil {
		return domainauth.RoleNone, err
	}

	tagValue, err := jmespath.Search(s.rolePath, payload)
	if err != nil {
		return domainauth.RoleNone, lmserrors.Wrap(err, lmserrors.ErrCodePermissionResolution, "evaluate role path")
	}
	tag, _ := tagValue.(string)
	return domainauth.ParseRole(tag), nil
}

// membershipRow is one child-table row of the LMS Users singleton.
type membershipRow struct {
	User string `json:"user"`
}

// fetchFromMembership scans the LMS Users child lists. Priority order is
// fixed: admin beats content editor beats student beats team lead.
func (s *RoleSource) fetchFromMembership(ctx context.Context, ref ports.BackendRef) (domainauth.Role, error) {
	var out struct {
		Data struct {
			Admins         []membershipRow `json:"lms_admin"`
			ContentEditors []membershipRow `json:"lms_content_editor"`
			Students       []membershipRow `json:"lms_student"`
			TeamLeads      []membershipRow `json:"lms_team_lead"`
		} `json:"data"`
	}
	err := s.client.call(ctx, callParams{
		method: http.MethodGet,
		path:   resourcePath(lmsUsersDoctype, lmsUsersDoctype),
		sid:    ref.SID,
	}, &out)
	if err != nil {
		return domainauth.RoleNone, lmserrors.Wrap(err, lmserrors.ErrCodePermissionResolution, "fetch membership lists")
	}

	ordered := []struct {
		rows []membershipRow
		role domainauth.Role
	}{
		{out.Data.Admins, domainauth.RoleAdmin},
		{out.Data.ContentEditors, domainauth.RoleContentEditor},
		{out.Data.Students, domainauth.RoleStudent},
		{out.Data.TeamLeads, domainauth.RoleTeamLead},
	}
	for _, group := range ordered {
		for _, row := range group.rows {
			if row.User == ref.Identity {
				return group.role, nil
			}
		}
	}
	return domainauth.RoleNone, nil
}
