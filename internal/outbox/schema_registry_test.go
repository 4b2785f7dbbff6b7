package outbox

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEnsureSchemaReturnsRegisteredID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/subjects/activity_events-value", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]any{"subject": "activity_events-value", "id": 11, "version": 2})
	}))
	defer srv.Close()

	id, err := NewSchemaRegistryClient(srv.URL+"/").EnsureSchema(context.Background(), "activity_events-value", activityEventsSchema)
	require.NoError(t, err)
	require.Equal(t, 11, id)
}

func TestEnsureSchemaRegistersUnknownSchema(t *testing.T) {
	for name, code := range map[string]int{"missing subject": 40401, "new schema version": 40403} {
		t.Run(name, func(t *testing.T) {
			var registered map[string]any
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path == "/subjects/workflow_events-value" {
					w.WriteHeader(http.StatusNotFound)
					_ = json.NewEncoder(w).Encode(map[string]any{"error_code": code, "message": "not found"})
					return
				}
				require.Equal(t, "/subjects/workflow_events-value/versions", r.URL.Path)
				require.NoError(t, json.NewDecoder(r.Body).Decode(&registered))
				_ = json.NewEncoder(w).Encode(map[string]any{"id": 12})
			}))
			defer srv.Close()

			id, err := NewSchemaRegistryClient(srv.URL).EnsureSchema(context.Background(), "workflow_events-value", workflowEventsSchema)
			require.NoError(t, err)
			require.Equal(t, 12, id)
			require.Equal(t, "JSON", registered["schemaType"])
			require.JSONEq(t, workflowEventsSchema, registered["schema"].(string))
		})
	}
}

func TestEnsureSchemaSurfacesRegistryErrors(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("boom"))
	}))
	defer srv.Close()

	_, err := NewSchemaRegistryClient(srv.URL).EnsureSchema(context.Background(), "activity_events-value", activityEventsSchema)
	require.ErrorContains(t, err, "boom")

	var regErr *RegistryError
	require.ErrorAs(t, err, &regErr)
	require.Equal(t, http.StatusInternalServerError, regErr.Status)
	require.Equal(t, 1, calls, "server errors must not trigger registration")
}

func TestEnsureSchemaReportsIncompatibleSchema(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/subjects/activity_events-value" {
			w.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(w).Encode(map[string]any{"error_code": 40403, "message": "Schema not found"})
			return
		}
		w.WriteHeader(http.StatusConflict)
		_ = json.NewEncoder(w).Encode(map[string]any{"error_code": 409, "message": "incompatible schema"})
	}))
	defer srv.Close()

	_, err := NewSchemaRegistryClient(srv.URL).EnsureSchema(context.Background(), "activity_events-value", activityEventsSchema)
	var regErr *RegistryError
	require.ErrorAs(t, err, &regErr)
	require.Equal(t, http.StatusConflict, regErr.Status)
	require.Equal(t, "incompatible schema", regErr.Message)
}
