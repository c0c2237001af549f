package locale

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/uwe-app/app-sub001/internal/config"
)

func TestParse_EmptyYieldsSinglePrimary(t *testing.T) {
	variants, err := Parse(config.LocaleConfig{})
	require.NoError(t, err)
	require.Len(t, variants, 1)
	require.True(t, variants[0].Primary)
	require.Equal(t, "", variants[0].Dir())
}

func TestParse_PrimaryAndAlternates(t *testing.T) {
	variants, err := Parse(config.LocaleConfig{
		Primary:    "en",
		Alternates: []string{"fr", "de-AT"},
	})
	require.NoError(t, err)
	require.Len(t, variants, 3)
	require.True(t, variants[0].Primary)
	require.Equal(t, "", variants[0].Dir())
	require.Equal(t, "fr", variants[1].Dir())
	require.Equal(t, "de-AT", variants[2].Dir())
}

func TestParse_Invalid(t *testing.T) {
	_, err := Parse(config.LocaleConfig{Primary: "not a tag"})
	require.Error(t, err)

	_, err = Parse(config.LocaleConfig{Alternates: []string{"fr"}})
	require.Error(t, err)

	_, err = Parse(config.LocaleConfig{Primary: "en", Alternates: []string{"fr", "fr"}})
	require.Error(t, err)
}
