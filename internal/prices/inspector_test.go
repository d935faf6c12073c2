package prices

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnit_ParseBRL_ExtractsAmounts(t *testing.T) {
	cases := []struct {
		in   string
		want float64
	}{
		{"Inteira R$ 26,00", 26.00},
		{"R$32,50", 32.50},
		{"Meia R$ 13.25", 13.25},
		{"a partir de R$ 9,90 por pessoa", 9.90},
	}
	for _, tc := range cases {
		got := ParseBRL(tc.in)
		require.NotNil(t, got, tc.in)
		assert.Equal(t, tc.want, *got, tc.in)
	}
}

func TestUnit_ParseBRL_NoAmountReturnsNil(t *testing.T) {
	assert.Nil(t, ParseBRL("Comprar ingresso"))
	assert.Nil(t, ParseBRL(""))
	assert.Nil(t, ParseBRL("USD 10.00"))
}

func TestUnit_PriceFromTexts_UsesLabeledAmounts(t *testing.T) {
	price := PriceFromTexts([]string{
		"Inteira R$ 26,00",
		"Meia R$ 13,00",
		"Taxa de serviço R$ 4,00",
	})
	require.NotNil(t, price.Full)
	assert.Equal(t, 26.00, *price.Full)
	require.NotNil(t, price.Half)
	assert.Equal(t, 13.00, *price.Half)
	assert.False(t, price.Free)
}

func TestUnit_PriceFromTexts_UnlabeledFallsBackToMax(t *testing.T) {
	price := PriceFromTexts([]string{"R$ 18,00", "R$ 25,00"})
	require.NotNil(t, price.Full)
	assert.Equal(t, 25.00, *price.Full, "highest amount taken as full")
	require.NotNil(t, price.Half)
	assert.Equal(t, 12.50, *price.Half, "half derived from full")
}

func TestUnit_PriceFromTexts_DerivedHalfRoundsToCents(t *testing.T) {
	price := PriceFromTexts([]string{"R$ 26,50"})
	require.NotNil(t, price.Half)
	assert.Equal(t, 13.25, *price.Half)
}

func TestUnit_PriceFromTexts_NoAmountsMeansFree(t *testing.T) {
	price := PriceFromTexts([]string{"Sessão promocional", "Entrada franca"})
	assert.True(t, price.Free)
	assert.Nil(t, price.Full)
	assert.Nil(t, price.Half)
}

func TestUnit_PriceFromTexts_FirstLabelWins(t *testing.T) {
	price := PriceFromTexts([]string{
		"Inteira R$ 26,00",
		"Inteira promocional R$ 20,00",
	})
	require.NotNil(t, price.Full)
	assert.Equal(t, 26.00, *price.Full)
}
