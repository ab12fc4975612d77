package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanName(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"drops corporate suffix", "Acme Corp. Inc", "Acme Corp"},
		{"drops honorific", "Dr John Smith", "John Smith"},
		{"replaces punctuation and drops suffix token", `O'Brien, Co-Op. "Foods"`, "O'Brien Op Foods"},
		{"collapses whitespace", "Too   Many   Spaces", "Too Many Spaces"},
		{"is case-insensitive on suffix matching", "Widgets ltd", "Widgets"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, CleanName(tc.in))
		})
	}
}

func TestGetAcronym(t *testing.T) {
	assert.Equal(t, "IBM", getAcronym("International Business Machines"))
	assert.Equal(t, "", getAcronym("Acme"))
}

func TestGetSubName(t *testing.T) {
	assert.Equal(t, "International", getSubName("International Business Machines"))
	assert.Equal(t, "", getSubName("A B"))
}

func TestAcronymExpansionPattern(t *testing.T) {
	re, err := acronymExpansionPattern("IBM")
	assert.NoError(t, err)
	assert.True(t, re.MatchString("INTERNATIONAL BUSINESS MACHINES"))
	assert.False(t, re.MatchString("ACME CORP"))
}

func TestUnionCommaList(t *testing.T) {
	got := unionCommaList("Foo, Bar", "bar, Baz")
	assert.Equal(t, "FOO,BAR,BAZ", got)
}
