package fiscalurl

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestNormalize covers the accepted and rejected shapes of scanned codes.
func TestNormalize(t *testing.T) {
	t.Parallel()

	v := NewValidator()

	accepted := []struct {
		raw  string
		want string
	}{
		{raw: "https://suf.purs.gov.rs/abc?x=1", want: "https://suf.purs.gov.rs/abc?x=1"},
		{raw: "  https://suf.purs.gov.rs/v/?vl=A1B2C3==\n", want: "https://suf.purs.gov.rs/v/?vl=A1B2C3=="},
		{raw: "https://SUF.PURS.GOV.RS/v/?vl=x", want: "https://SUF.PURS.GOV.RS/v/?vl=x"},
		{raw: "HTTPS://suf.purs.gov.rs/v/?vl=x", want: "HTTPS://suf.purs.gov.rs/v/?vl=x"},
		{raw: "https://suf.purs.gov.rs:443/v/?vl=x", want: "https://suf.purs.gov.rs:443/v/?vl=x"},
		{raw: "https://suf.purs.gov.rs", want: "https://suf.purs.gov.rs"},
	}
	for _, tc := range accepted {
		got, ok := v.Normalize(tc.raw)
		require.True(t, ok, tc.raw)
		require.Equal(t, tc.want, got)
	}

	rejected := []string{
		"",
		"   ",
		"http://suf.purs.gov.rs/x",
		"https://evil.com/suf.purs.gov.rs",
		"https://suf.purs.gov.rs.evil.com/x",
		"https://evilsuf.purs.gov.rs/x",
		"https://user@evil.com/?h=suf.purs.gov.rs",
		"suf.purs.gov.rs/v/?vl=x",
		"//suf.purs.gov.rs/x",
		"ftp://suf.purs.gov.rs/x",
		"https://",
		"https://%zz",
		"WIFI:S:home;T:WPA;P:secret;;",
		"just some text",
	}
	for _, raw := range rejected {
		got, ok := v.Normalize(raw)
		require.False(t, ok, raw)
		require.Empty(t, got, raw)
	}
}

// TestNewValidator_CustomHosts checks allow-list normalization.
func TestNewValidator_CustomHosts(t *testing.T) {
	t.Parallel()

	v := NewValidator(" Test.Fiscal.Example ", "", "suf.purs.gov.rs")
	require.ElementsMatch(t, []string{"test.fiscal.example", "suf.purs.gov.rs"}, v.Hosts())

	_, ok := v.Normalize("https://test.fiscal.example/v")
	require.True(t, ok)

	_, ok = v.Normalize("https://example/v")
	require.False(t, ok)
}
