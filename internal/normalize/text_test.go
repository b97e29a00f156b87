package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFold(t *testing.T) {
	testCases := []struct {
		input    string
		expected string
	}{
		{input: "GRUPO BOLÍVAR S.A.", expected: "grupo bolivar s a"},
		{input: "NT-830025448-GRUPO BOLÍVAR S.A.", expected: "nt 830025448 grupo bolivar s a"},
		{input: "  Ñandú   y   Cía. ", expected: "nandu y cia"},
		{input: "---", expected: ""},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			assert.Equal(t, tc.expected, Fold(tc.input))
		})
	}
}

func TestStripLegalForm(t *testing.T) {
	testCases := []struct {
		input    string
		expected string
	}{
		{input: "GRUPO BOLÍVAR S.A.", expected: "grupo bolivar"},
		{input: "Servicios Andinos S.A.S.", expected: "servicios andinos"},
		{input: "Transportes del Sur Ltda", expected: "transportes del sur"},
		{input: "Comercial Rojas S. en C.", expected: "comercial rojas"},
		{input: "Acme Inc", expected: "acme"},
		{input: "SAS", expected: "sas"},
		{input: "Bancolombia", expected: "bancolombia"},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			assert.Equal(t, tc.expected, StripLegalForm(tc.input))
		})
	}
}

func TestContainsFolded(t *testing.T) {
	assert.True(t, ContainsFolded("830025448 GRUPO BOLIVAR", "Grupo Bolívar"))
	assert.False(t, ContainsFolded("830025448 GRUPO BOLIVAR", ""))
	assert.False(t, ContainsFolded("830025448", "bolivar"))
}
