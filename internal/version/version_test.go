package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestString(t *testing.T) {
	v, c, d := Info()
	assert.Equal(t, "dev", v)
	s := String()
	assert.Contains(t, s, v)
	assert.Contains(t, s, "commit: "+c)
	assert.Contains(t, s, "built: "+d)
}
