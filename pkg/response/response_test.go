package response

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSuccessWithPagination(t *testing.T) {
	r := SuccessWithPagination(200, []int{1, 2}, 2, 20, 41)
	assert.Equal(t, "success", r.Status)
	require.NotNil(t, r.Meta)
	assert.EqualValues(t, 3, r.Meta.TotalPages)

	empty := SuccessWithPagination(200, []int{}, 1, 20, 0)
	assert.EqualValues(t, 0, empty.Meta.TotalPages)
}

func TestError(t *testing.T) {
	r := Error(404, "order not found")
	assert.Equal(t, "error", r.Status)
	assert.Equal(t, 404, r.StatusCode)
	assert.Nil(t, r.Data)
}
