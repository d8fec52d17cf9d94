package service_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/zlnvch/heartfolio/service"
)

func TestValidEmail(t *testing.T) {
	tests := []struct {
		email string
		want  bool
	}{
		{"bee@example.com", true},
		{"first.last+tag@mail.example.org", true},
		{"bee@localhost", false},
		{"not-an-email", false},
		{"Bee <bee@example.com>", false},
		{"", false},
		{"@example.com", false},
	}
	for _, tc := range tests {
		t.Run(tc.email, func(t *testing.T) {
			assert.Equal(t, tc.want, service.ValidEmail(tc.email))
		})
	}
}

func TestValidateColor(t *testing.T) {
	tests := []struct {
		name  string
		color string
		valid bool
	}{
		{"Hex Upper", "#FFB7C5", true},
		{"Hex Lower", "#ffb7c5", true},
		{"Transparent", "transparent", true},
		{"Short Hex", "#FFF", false},
		{"Named", "pink", false},
		{"Missing Hash", "FFB7C5", false},
		{"Alpha", "#FFB7C5AA", false},
		{"Empty", "", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := service.ValidateColor(tc.color)
			if tc.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, service.ErrInvalidColor)
			}
		})
	}
}

func TestValidateId(t *testing.T) {
	assert.NoError(t, service.ValidateId("0192f3a4-7b1c-7def-8123-456789abcdef"))
	assert.NoError(t, service.ValidateId("text_0192f3a4"))
	assert.ErrorIs(t, service.ValidateId(""), service.ErrInvalidId)
	assert.ErrorIs(t, service.ValidateId("../etc"), service.ErrInvalidId)
	assert.ErrorIs(t, service.ValidateId("a b"), service.ErrInvalidId)
	assert.ErrorIs(t, service.ValidateId(string(make([]byte, 65))), service.ErrInvalidId)
}
