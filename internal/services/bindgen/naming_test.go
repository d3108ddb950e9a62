package bindgen

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExportedName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"util_sum", "UtilSum"},
		{"UTIL_MAX", "UtilMax"},
		{"lib_init_context", "LibInitContext"},
		{"util_status_t", "UtilStatusT"},
		{"uint8_t", "Uint8T"},
		{"_private", "Private"},
		{"__x", "X"},
		{"libInit", "LibInit"},
		{"_", "X"},
		{"_1st", "X1st"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ExportedName(tt.in))
		})
	}
}

func TestLocalName(t *testing.T) {
	assert.Equal(t, "count", LocalName("count", 0))
	assert.Equal(t, "p2", LocalName("", 2))
	assert.Equal(t, "type_", LocalName("type", 0))
	assert.Equal(t, "ret_", LocalName("ret", 0))
	assert.Equal(t, "C_", LocalName("C", 0))
}

func TestPackageName(t *testing.T) {
	assert.Equal(t, "util_example", PackageName("util_example"))
	assert.Equal(t, "my_lib", PackageName("my-lib"))
	assert.Equal(t, "h_3d", PackageName("3d"))
	assert.Equal(t, "type_", PackageName("type"))
}
