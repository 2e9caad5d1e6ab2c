package response

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/careerprep-backend/internal/flow"
	"github.com/yungbote/careerprep-backend/internal/flow/schema"
	"github.com/yungbote/careerprep-backend/internal/platform/apierr"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", &flow.ValidationError{Flow: "f", Violations: schema.Violations{{Path: "topic", Reason: "must not be blank"}}}, 400, "validation_error"},
		{"contract", &flow.ModelContractError{Flow: "f", Raw: "secret raw"}, 502, "model_contract_error"},
		{"timeout", &flow.TransportError{Flow: "f", Cause: context.DeadlineExceeded}, 504, "model_timeout"},
		{"rate limited", &flow.TransportError{Flow: "f", Cause: errors.New("429"), Status: 429}, 503, "model_unavailable"},
		{"upstream 500", &flow.TransportError{Flow: "f", Cause: errors.New("boom"), Status: 500}, 503, "model_unavailable"},
		{"transport other", &flow.TransportError{Flow: "f", Cause: errors.New("dial")}, 502, "model_transport_error"},
		{"persistence", &flow.PersistenceError{Collection: "aptitudeTestAttempts", Cause: errors.New("db")}, 500, "persistence_error"},
		{"apierr", apierr.Unauthorized("unauthorized", errors.New("no session")), 401, "unauthorized"},
		{"unknown flow", fmt.Errorf("%w: nope", flow.ErrUnknownFlow), 404, "unknown_flow"},
		{"other", errors.New("x"), 500, "internal_error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, body := Classify(tc.err)
			assert.Equal(t, tc.status, status)
			assert.Equal(t, tc.code, body.Code)
		})
	}
}

func TestRespondFlowErrorHidesRawAnswer(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/", nil)

	RespondFlowError(c, &flow.ModelContractError{Flow: "f", Raw: "secret raw"})
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.NotContains(t, rec.Body.String(), "secret raw")
}

func TestRespondFlowErrorListsViolations(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/", nil)

	RespondFlowError(c, &flow.ValidationError{Flow: "generate-quiz", Violations: schema.Violations{{Path: "topic", Reason: "must not be blank"}}})
	var env ErrorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, "validation_error", env.Error.Code)
	require.Len(t, env.Error.Violations, 1)
	assert.Equal(t, "topic", env.Error.Violations[0].Path)
}
