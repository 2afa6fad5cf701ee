package fetcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecodeText(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		want string
	}{
		{"utf8", []byte("Bénin"), "Bénin"},
		{"bom", []byte("\xef\xbb\xbfcountry_id"), "country_id"},
		{"latin1", []byte("B\xe9nin"), "Bénin"},
		{"empty", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, string(DecodeText(tt.in)))
		})
	}
}
