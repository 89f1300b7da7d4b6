package i18n

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranslations(t *testing.T) {
	require.NoError(t, Initialize("en"))

	assert.Equal(t, "Cart cleared", T("en", KeyCartCleared))
	assert.Equal(t, "Panier vidé", T("fr", KeyCartCleared))
	assert.Equal(t, "Order CMD-1 created", T("en", KeyOrderCreated, "CMD-1"))

	// unknown language falls back to the default
	assert.Equal(t, "Cart cleared", T("de", KeyCartCleared))
	// unknown key is returned as-is
	assert.Equal(t, "missing.key", T("en", "missing.key"))

	assert.Equal(t, []string{"en", "fr"}, GetSupportedLanguages())
	assert.True(t, IsSupported("fr"))
	assert.False(t, IsSupported("de"))
}

func TestLocalesDefineSameKeys(t *testing.T) {
	require.NoError(t, Initialize("en"))

	en := instance.translations["en"]
	fr := instance.translations["fr"]
	require.NotEmpty(t, en)
	for key := range en {
		_, ok := fr[key]
		assert.True(t, ok, "fr locale is missing %q", key)
	}
	assert.Len(t, fr, len(en))
}
