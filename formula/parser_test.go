package formula

import (
	"encoding/json"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseExpression(t *testing.T) {
	tests := []struct {
		name string
		expr string
		want []string
	}{
		{"empty", "", nil},
		{"no references", "2+3*4", nil},
		{"single global", "@global.commissionAgence+10", []string{"@global.commissionAgence"}},
		{
			"mixed scopes in order",
			"@ligne[pos1_L1].prixUnitAchat * @position[pos1].quantite - @global.totalVente",
			[]string{"@ligne[pos1_L1].prixUnitAchat", "@position[pos1].quantite", "@global.totalVente"},
		},
		{"repeated token kept", "@global.a+@global.a", []string{"@global.a", "@global.a"}},
		{"unknown scope ignored", "@projet.total + @ligne[L1].coeff", []string{"@ligne[L1].coeff"}},
		{"index must be an identifier", "@ligne[1x].coeff", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := slices.Collect(ParseExpression(tt.expr))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseExpression_Restartable(t *testing.T) {
	seq := ParseExpression("@global.a + @global.b + @global.c")

	var first []string
	for tok := range seq {
		first = append(first, tok)
		if len(first) == 2 {
			break
		}
	}
	assert.Equal(t, []string{"@global.a", "@global.b"}, first)
	assert.Equal(t, []string{"@global.a", "@global.b", "@global.c"}, slices.Collect(seq))
}

func TestDependencies_Deduplicates(t *testing.T) {
	deps := Dependencies("@global.a+@ligne[L1].q*@global.a")
	assert.Equal(t, []string{"@global.a", "@ligne[L1].q"}, deps)
}

func TestParseReference(t *testing.T) {
	ref, ok := ParseReference("@ligne[pos1_L1].prixUnitAchat")
	require.True(t, ok)
	assert.Equal(t, Reference{Scope: ScopeLigne, Index: "pos1_L1", Field: "prixUnitAchat"}, ref)
	assert.Equal(t, "@ligne[pos1_L1].prixUnitAchat", ref.String())

	ref, ok = ParseReference("@global.commissionAgence")
	require.True(t, ok)
	assert.Equal(t, "", ref.Index)

	for _, bad := range []string{"", "@ligne", "@ligne[L1]", "ligne[L1].q", "@ligne[L1].q+1", "@other.q"} {
		_, ok := ParseReference(bad)
		assert.False(t, ok, bad)
	}
}

func TestResolve(t *testing.T) {
	ctx := testContext()

	v, ok := Resolve("@ligne[pos1_L1].quantite", ctx)
	assert.True(t, ok)
	assert.InDelta(t, 4, v, 1e-9)

	v, ok = Resolve("@position[pos1].projectManagementPercentage", ctx)
	assert.True(t, ok)
	assert.InDelta(t, 10, v, 1e-9)

	_, ok = Resolve("@position[pos9].quantite", ctx)
	assert.False(t, ok)

	_, ok = Resolve("not a token", ctx)
	assert.False(t, ok)

	_, ok = Resolve("@global.commissionAgence", nil)
	assert.False(t, ok)

	v, ok = Resolve("@global.unknown", &Context{})
	assert.True(t, ok)
	assert.Zero(t, v)
}

func TestContextSetAndClone(t *testing.T) {
	ctx := NewContext()
	require.True(t, ctx.Set("@ligne[p_L1].pVente", 12))
	require.True(t, ctx.Set("@global.totalVente", 30))
	assert.False(t, ctx.Set("@ligne.pVente", 1))
	assert.False(t, ctx.Set("garbage", 1))

	clone := ctx.Clone()
	clone.Lignes["p_L1"]["pVente"] = 99
	assert.InDelta(t, 12, ctx.Lignes["p_L1"]["pVente"], 1e-9)
	assert.InDelta(t, 30, clone.Global["totalVente"], 1e-9)
}

func TestFieldValueJSON(t *testing.T) {
	result := 42.0
	v := FormulaValue(&Formula{
		Expression:   "@global.a*2",
		IsValid:      true,
		Dependencies: []string{"@global.a"},
		Result:       &result,
		CacheValidAt: 3,
	})
	data, err := json.Marshal(v)
	require.NoError(t, err)
	assert.JSONEq(t, `{"isFormula":true,"value":{"expression":"@global.a*2","isValid":true,"dependencies":["@global.a"],"result":42}}`, string(data))

	var back FieldValue
	require.NoError(t, json.Unmarshal(data, &back))
	assert.True(t, back.IsFormula)
	assert.InDelta(t, 42, back.Float(), 1e-9)
	assert.Equal(t, "=@global.a*2", back.Raw())
	_, fresh := back.Formula.CachedResult(3)
	assert.False(t, fresh, "a decoded formula must be stale")

	require.NoError(t, json.Unmarshal([]byte(`{"value":12.5,"isFormula":false}`), &back))
	assert.False(t, back.IsFormula)
	assert.InDelta(t, 12.5, back.Float(), 1e-9)

	require.NoError(t, json.Unmarshal([]byte(`7`), &back))
	assert.Equal(t, NumberValue(7), back)

	assert.Error(t, json.Unmarshal([]byte(`{"value":{"expression":"1"},"isFormula":false}`), &back))
	assert.Error(t, json.Unmarshal([]byte(`{"value":3,"isFormula":true}`), &back))
}
