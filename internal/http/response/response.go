package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/careerprep-backend/internal/flow"
	"github.com/yungbote/careerprep-backend/internal/flow/schema"
	"github.com/yungbote/careerprep-backend/internal/platform/apierr"
)

type APIError struct {
	Message    string             `json:"message"`
	Code       string             `json:"code,omitempty"`
	Violations []schema.Violation `json:"violations,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

// Classify maps an error to its HTTP status, code and client-safe message.
func Classify(err error) (int, APIError) {
	var (
		ve *flow.ValidationError
		ce *flow.ModelContractError
		te *flow.TransportError
		pe *flow.PersistenceError
	)
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest, APIError{
			Message:    "invalid input for " + ve.Flow,
			Code:       "validation_error",
			Violations: ve.Violations,
		}
	case errors.As(err, &ce):
		// The raw model answer stays in the logs.
		return http.StatusBadGateway, APIError{
			Message: "the model returned an answer that did not match the expected format",
			Code:    "model_contract_error",
		}
	case errors.As(err, &te):
		switch {
		case te.Timeout():
			return http.StatusGatewayTimeout, APIError{Message: "the model did not answer in time", Code: "model_timeout"}
		case te.Status == http.StatusTooManyRequests || te.Status >= 500:
			return http.StatusServiceUnavailable, APIError{Message: "the model is unavailable, try again later", Code: "model_unavailable"}
		}
		return http.StatusBadGateway, APIError{Message: "the model request failed", Code: "model_transport_error"}
	case errors.As(err, &pe):
		return http.StatusInternalServerError, APIError{Message: "could not save " + pe.Collection, Code: "persistence_error"}
	}
	if ae, ok := apierr.As(err); ok {
		msg := http.StatusText(ae.Status)
		if ae.Err != nil && ae.Status < 500 {
			msg = ae.Err.Error()
		}
		return ae.Status, APIError{Message: msg, Code: ae.Code}
	}
	if errors.Is(err, flow.ErrUnknownFlow) {
		return http.StatusNotFound, APIError{Message: err.Error(), Code: "unknown_flow"}
	}
	return http.StatusInternalServerError, APIError{Message: "internal error", Code: "internal_error"}
}

// RespondFlowError writes err as an error envelope.
func RespondFlowError(c *gin.Context, err error) {
	status, body := Classify(err)
	_ = c.Error(err)
	c.JSON(status, ErrorEnvelope{Error: body})
}
