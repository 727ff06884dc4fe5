package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLiteral(t *testing.T) {
	assert.Equal(t, "'/data/wea.shp'", Literal("/data/wea.shp"))
	assert.Equal(t, "'/data/o''brien.shp'", Literal("/data/o'brien.shp"))
}
