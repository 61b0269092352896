package internal_test

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/oneaccess/internal"
)

var _ = Describe("AppError", func() {
	It("maps each type to its status", func() {
		Expect(internal.NewValidationError("bad", internal.ErrCodeValidationFailed).StatusCode).To(Equal(http.StatusBadRequest))
		Expect(internal.NewUnauthorizedError("who", internal.ErrCodeInvalidToken).StatusCode).To(Equal(http.StatusUnauthorized))
		Expect(internal.ErrGateNotAuthorized.StatusCode).To(Equal(http.StatusForbidden))
		Expect(internal.ErrGateNotFound.StatusCode).To(Equal(http.StatusNotFound))
		Expect(internal.NewConflictError("dup", "DUPLICATE").StatusCode).To(Equal(http.StatusConflict))
		Expect(internal.NewInternalError("boom", nil).StatusCode).To(Equal(http.StatusInternalServerError))
	})

	It("still matches its sentinel after being reworded and wrapped", func() {
		err := fmt.Errorf("issuing: %w", internal.ErrGateNotAuthorized.WithMessage("Not allowed for this building"))

		Expect(stderrors.Is(err, internal.ErrGateNotAuthorized)).To(BeTrue())
		Expect(stderrors.Is(err, internal.ErrDeviceRevoked)).To(BeFalse())
		Expect(internal.ErrGateNotAuthorized.Message).To(Equal("Not authorized for gate"))

		appErr, ok := internal.IsAppError(err)
		Expect(ok).To(BeTrue())
		Expect(appErr.Message).To(Equal("Not allowed for this building"))
	})

	It("reports the field message for a field error", func() {
		err := internal.NewValidationFieldError("readerNonce", "readerNonce must be 8-64 characters", internal.ErrCodeInvalidReaderNonce)

		Expect(err.Error()).To(Equal("readerNonce must be 8-64 characters"))
		Expect(err.Code).To(Equal(internal.ErrCodeValidationFailed))
	})

	It("keeps the cause out of the wire form", func() {
		// Given
		appErr := internal.NewInternalError("Internal server error", stderrors.New("dial tcp: refused"))
		status, body := appErr.ToHTTPResponse()

		// When
		raw, err := json.Marshal(body)

		// Then
		Expect(err).NotTo(HaveOccurred())
		Expect(status).To(Equal(http.StatusInternalServerError))
		Expect(string(raw)).To(MatchJSON(`{"error":{"type":"INTERNAL_ERROR","code":"INTERNAL_ERROR","message":"Internal server error"}}`))
		Expect(appErr.Error()).To(ContainSubstring("dial tcp: refused"))
	})
})
