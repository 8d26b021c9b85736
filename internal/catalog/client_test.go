package catalog

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestDeploymentTypeLookup covers the happy path and the not-found mapping.
func TestDeploymentTypeLookup(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1.0/DeploymentTypes", r.URL.Path)
		require.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		switch r.URL.Query().Get("applicationName") {
		case "Office 365 ProPlus":
			_ = json.NewEncoder(w).Encode(DeploymentType{
				ApplicationID:   "16777619",
				ApplicationName: "Office 365 ProPlus",
				Name:            "Install Office 365",
				Descriptor:      "<AppMgmtDigest/>",
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, "secret", time.Second)

	dt, err := client.DeploymentTypeByApplication(context.Background(), "Office 365 ProPlus")
	require.NoError(t, err)
	require.Equal(t, "16777619", dt.ApplicationID)
	require.Equal(t, "Install Office 365", dt.Name)

	_, err = client.DeploymentTypeByApplication(context.Background(), "Nonexistent App")
	require.ErrorIs(t, err, ErrApplicationNotFound)
}

// TestReplaceDetectionClause verifies the request body and path of a replacement call.
func TestReplaceDetectionClause(t *testing.T) {
	t.Parallel()

	var received replaceDetectionRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		require.Equal(t, "/v1.0/Applications/16777619/DeploymentTypes/Install%20Office%20365/DetectionMethod", r.URL.EscapedPath())
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, "", time.Second)
	dt := &DeploymentType{ApplicationID: "16777619", Name: "Install Office 365"}

	clause, err := NewOfficeVersionClause("16.0.2")
	require.NoError(t, err)

	require.NoError(t, client.ReplaceDetectionClause(context.Background(), dt, "RegSetting_77", clause))
	require.Equal(t, "RegSetting_77", received.RemoveLogicalName)
	require.Equal(t, "16.0.2", received.Clause.Version)
}

// TestRedistributeContent verifies the redistribution call and error mapping
// for unexpected statuses.
func TestRedistributeContent(t *testing.T) {
	t.Parallel()

	var calls int

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++

		require.Equal(t, http.MethodPost, r.Method)

		if calls == 1 {
			w.WriteHeader(http.StatusAccepted)
			return
		}

		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, "", time.Second)
	dt := &DeploymentType{ApplicationID: "16777619", Name: "Install Office 365"}

	require.NoError(t, client.RedistributeContent(context.Background(), dt))
	require.Error(t, client.RedistributeContent(context.Background(), dt))
}
