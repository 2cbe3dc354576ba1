package gcp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/api/googleapi"
)

func TestIsPreconditionFailed(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "412", err: &googleapi.Error{Code: http.StatusPreconditionFailed}, want: true},
		{name: "wrapped 412", err: fmt.Errorf("close: %w", &googleapi.Error{Code: http.StatusPreconditionFailed}), want: true},
		{name: "403", err: &googleapi.Error{Code: http.StatusForbidden}, want: false},
		{name: "plain", err: errors.New("boom"), want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isPreconditionFailed(tt.err))
		})
	}
}

func TestBorderoSchemaRequiresTopLevelSections(t *testing.T) {
	schema := BorderoSchema()

	assert.ElementsMatch(t, []string{"match_details", "financial_data", "audience_statistics"}, schema.Required)
	fin := schema.Properties["financial_data"]
	if assert.NotNil(t, fin) {
		assert.NotNil(t, fin.Properties["revenue_details"].Items.Properties["quantity"])
		assert.NotNil(t, fin.Properties["expense_details"].Items.Properties["category"])
	}
}

func TestNewFirestoreClientRequiresProject(t *testing.T) {
	_, err := NewFirestoreClient(context.Background(), "")
	assert.ErrorContains(t, err, "PROJECT_ID")
}
