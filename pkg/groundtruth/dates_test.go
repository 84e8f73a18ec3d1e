package groundtruth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		input string
		want  string
		ok    bool
	}{
		{"07/22/2010 07:33:23", "2010-07-22", true},
		{"7/2/2010 17:03:00", "2010-07-02", true},
		{"2010-07-22", "2010-07-22", true},
		{"2010-07-22 23:10:00", "2010-07-22", true},
		{"2010-07-22T23:10:00Z", "2010-07-22", true},
		{"2010/07/22", "2010-07-22", true},
		{"07/22/2010", "2010-07-22", true},
		{"  08/01/2010 00:00:01  ", "2010-08-01", true},
		{"2010/07/22 10:00:00", "", false},
		{"13/45/2010 10:00:00", "", false},
		{"yesterday", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			d, ok := ParseDate(tt.input)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, d.String())
			}
		})
	}
}
