package handler_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/merit-go-api/internal/dto"
)

func TestAuditListEndpoint(t *testing.T) {
	env := newTestEnv(t)

	submission := env.createSubmission(t, 7, 4)
	env.approveSubmission(t, submission.ID, 3)

	resp, envelope := env.request(t, http.MethodGet, "/api/v1/audit", nil, 99, "admin")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var list dto.AuditListResponse
	require.NoError(t, json.Unmarshal(envelope.Data, &list))
	// created, applied, credit awarded
	require.GreaterOrEqual(t, len(list.Items), 3)

	actions := make(map[string]bool, len(list.Items))
	for _, item := range list.Items {
		actions[item.Action] = true
	}
	require.True(t, actions["submission.created"])
	require.True(t, actions["transition.applied"])
	require.True(t, actions["credit.awarded"])
}

func TestAuditListFilterByAction(t *testing.T) {
	env := newTestEnv(t)

	submission := env.createSubmission(t, 7, 4)
	env.approveSubmission(t, submission.ID, 3)

	resp, envelope := env.request(t, http.MethodGet, "/api/v1/audit?action=credit.awarded", nil, 99, "admin")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var list dto.AuditListResponse
	require.NoError(t, json.Unmarshal(envelope.Data, &list))
	require.Len(t, list.Items, 1)
}

func TestAuditListBadTimestamp(t *testing.T) {
	env := newTestEnv(t)

	resp, envelope := env.request(t, http.MethodGet, "/api/v1/audit?from=not-a-timestamp", nil, 99, "admin")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.False(t, envelope.Success)

	resp, _ = env.request(t, http.MethodGet, "/api/v1/audit?to=2026/01/01", nil, 99, "admin")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAuditListAdminOnly(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.request(t, http.MethodGet, "/api/v1/audit", nil, 21, "faculty")
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = env.request(t, http.MethodGet, "/api/v1/audit", nil, 7, "student")
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
}
