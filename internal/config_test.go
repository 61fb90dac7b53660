package internal

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadConfig_Empty(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, ""))
	require.NoError(t, err)

	assert.Equal(t, DefaultSubscriptionProduct, cfg.SubscriptionProduct())
	assert.Equal(t, DefaultOneTimeProduct, cfg.OneTimeProduct())
	assert.Equal(t, "USD", cfg.CurrencyCode())
	assert.Equal(t, EventTermination, cfg.EventTypeOf("Debook"))
	assert.Equal(t, EventOther, cfg.EventTypeOf("Renewal"))
}

func TestLoadConfig_Overrides(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, `
products:
  subscription: "100-0001"
opportunity_types:
  Renewal: new_or_increase
  Debook: reduction
currency: eur
overrides:
  forced_tags:
    - account: Copart
      opportunity_type: Add Products
      amount: "0"
      tag: "Start of Subscription - Swap"
      scope: status
  synthetic:
    - account: Sun Source Energy
      from: 2025-01-11
      to: 2025-06-11
      amount: "414.75"
  always_extend: [United Mortgage Lending]
  single_span: [Gamma]
`))
	require.NoError(t, err)

	assert.Equal(t, "100-0001", cfg.SubscriptionProduct())
	assert.Equal(t, DefaultOneTimeProduct, cfg.OneTimeProduct())
	assert.Equal(t, EventNewOrIncrease, cfg.EventTypeOf(" Renewal "))
	assert.Equal(t, EventReduction, cfg.EventTypeOf("Debook"), "user mapping wins")
	assert.Equal(t, EventNewOrIncrease, cfg.EventTypeOf("Add Products"), "defaults are kept")
	assert.True(t, cfg.IsAlwaysExtend("United Mortgage Lending"))
	assert.True(t, cfg.IsSingleSpan("Gamma"))
	assert.False(t, cfg.IsSingleSpan("Beta"))

	zero := opp("Copart", "2024-01-01", "0", EventNewOrIncrease, AccountActive, "1")
	tag, ok := cfg.ForcedTagFor(zero, ScopeStatus)
	require.True(t, ok)
	assert.Equal(t, "Start of Subscription - Swap", tag.String())
	_, ok = cfg.ForcedTagFor(zero, ScopeClassify)
	assert.False(t, ok, "status-scope tags do not apply while classifying")

	paid := opp("Copart", "2024-01-01", "10", EventNewOrIncrease, AccountActive, "1")
	_, ok = cfg.ForcedTagFor(paid, ScopeStatus)
	assert.False(t, ok, "amount must match exactly")

	require.Len(t, cfg.Overrides.Synthetic, 1)
	run := cfg.Overrides.Synthetic[0]
	assert.Equal(t, date("2025-01-11"), run.fromDate)
	assert.Equal(t, date("2025-06-11"), run.toDate)
	assert.Equal(t, "414.75", run.amount.Decimal.StringFixed(2))
	assert.Equal(t, NewTag(LifecycleSubscribedBilling), run.tag)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad event type", "opportunity_types:\n  Renewal: upsell\n"},
		{"bad tag", "overrides:\n  forced_tags:\n    - account: A\n      tag: Paused\n"},
		{"missing account", "overrides:\n  forced_tags:\n    - tag: Duplicate\n"},
		{"bad scope", "overrides:\n  forced_tags:\n    - account: A\n      tag: Duplicate\n      scope: always\n"},
		{"bad amount", "overrides:\n  synthetic:\n    - account: A\n      from: 2024-01-01\n      amount: lots\n"},
		{"bad date", "overrides:\n  synthetic:\n    - account: A\n      from: 01/02/2024\n"},
		{"reversed run", "overrides:\n  synthetic:\n    - account: A\n      from: 2024-05-01\n      to: 2024-01-01\n"},
		{"not yaml", "overrides: [unclosed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestConfig_SaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := NewDefaultConfig()
	cfg.Overrides.AlwaysExtend = []string{"Acme"}
	require.NoError(t, cfg.Save(path))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Products, loaded.Products)
	assert.Equal(t, cfg.OpportunityTypes, loaded.OpportunityTypes)
	assert.True(t, loaded.IsAlwaysExtend("Acme"))
}

func TestConfig_NilSafe(t *testing.T) {
	var cfg *Config
	assert.Equal(t, DefaultSubscriptionProduct, cfg.SubscriptionProduct())
	assert.Equal(t, DefaultCurrency, cfg.CurrencyCode())
	assert.Equal(t, EventReduction, cfg.EventTypeOf("Reduction"))
	assert.False(t, cfg.IsAlwaysExtend("x"))
	_, ok := cfg.ForcedTagFor(Event{}, ScopeClassify)
	assert.False(t, ok)
}

func TestLoadConfig_Example(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join("..", "config.example.yaml"))
	require.NoError(t, err)

	assert.True(t, cfg.IsAlwaysExtend("United Mortgage Lending"))
	assert.Len(t, cfg.Overrides.Synthetic, 5)
	assert.Equal(t, cfg.Overrides.Synthetic[3].fromDate, cfg.Overrides.Synthetic[3].toDate, "to defaults to from")
	assert.Equal(t, "ADT Solar LLC (fka SUNPRO)", cfg.Overrides.Synthetic[0].Account)

	swap := opp("Copart, Inc", "2024-05-01", "0", EventNewOrIncrease, AccountActive, "C1")
	for _, scope := range []string{ScopeClassify, ScopeStatus} {
		tag, ok := cfg.ForcedTagFor(swap, scope)
		require.True(t, ok, scope)
		assert.Equal(t, "Start of Subscription - Swap", tag.String(), scope)
	}

	paid := opp("Copart, Inc", "2024-05-01", "25", EventNewOrIncrease, AccountActive, "C2")
	_, ok := cfg.ForcedTagFor(paid, ScopeClassify)
	assert.False(t, ok, "only $0 rows are swaps")
}
