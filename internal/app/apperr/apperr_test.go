package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	cases := []struct {
		err  error
		want Kind
	}{
		{Validation("expiryDate", "must not be before startDate"), KindValidation},
		{InvalidTransition("Cancelled", "Active"), KindInvalidTransition},
		{&UniquenessError{Field: "domainName", Value: "example.com"}, KindUniqueness},
		{NotFound("service", 7), KindNotFound},
		{ConcurrentModification("service", 7), KindConcurrentModification},
		{ImmutableRecord("renewal", 3, "Completed"), KindImmutableRecord},
		{Forbidden("renew services"), KindForbidden},
		{BadRequest("empty id set"), KindBadRequest},
		{errors.New("boom"), KindInternal},
		{nil, ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, KindOf(tc.err), "%v", tc.err)
	}
}

func TestKindOfWrapped(t *testing.T) {
	err := fmt.Errorf("renew service 4: %w", NotFound("service", 4))
	assert.Equal(t, KindNotFound, KindOf(err))

	var nf *NotFoundError
	assert.True(t, errors.As(err, &nf))
	assert.Equal(t, uint(4), nf.ID)
}

func TestTransitionErrorMessage(t *testing.T) {
	err := InvalidTransition("Cancelled", "Active")
	assert.Equal(t, "invalid transition from Cancelled to Active", err.Error())
}
