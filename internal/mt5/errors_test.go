package mt5

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRetcodeErr(t *testing.T) {
	assert.NoError(t, retcodeErr("0 Done"))
	assert.ErrorIs(t, retcodeErr("13 Not found"), ErrNotFound)

	var rc *RetcodeError
	err := retcodeErr("3 Invalid parameters")
	assert.True(t, errors.As(err, &rc))
	assert.Equal(t, 3, rc.Code)
	assert.Equal(t, "Invalid parameters", rc.Text)

	code, text := parseRetcode("garbage")
	assert.Equal(t, -1, code)
	assert.Equal(t, "garbage", text)
}
