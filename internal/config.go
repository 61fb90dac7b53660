package internal

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

const (
	DefaultSubscriptionProduct = "350-0100"
	DefaultOneTimeProduct      = "350-0101"
	DefaultCurrency            = "USD"
)

// DefaultOpportunityTypes maps the CRM's opportunity types to event types.
var DefaultOpportunityTypes = map[string]EventType{
	"Add Products": EventNewOrIncrease,
	"Reduction":    EventReduction,
	"Debook":       EventTermination,
}

// Products names the two recognized product classes.
type Products struct {
	Subscription string `yaml:"subscription,omitempty"`
	OneTime      string `yaml:"one_time,omitempty"`
}

// ForcedTag pins the note of matching rows. Scope "classify" (default)
// applies while classifying; scope "status" only rewrites the displayed tag
// of an account's latest record in the status summary.
type ForcedTag struct {
	Account         string  `yaml:"account"`
	Product         string  `yaml:"product,omitempty"`
	OpportunityType string  `yaml:"opportunity_type,omitempty"`
	Amount          *string `yaml:"amount,omitempty"` // exact match, e.g. "0"
	Tag             string  `yaml:"tag"`
	Scope           string  `yaml:"scope,omitempty"`

	// compiled fields
	amount decimal.NullDecimal `yaml:"-"`
	tag    Tag                 `yaml:"-"`
}

const (
	ScopeClassify = "classify"
	ScopeStatus   = "status"
)

// SyntheticRun adds monthly billing rows for an account between two
// inclusive dates, for ledgers whose history was never recorded.
type SyntheticRun struct {
	Account string  `yaml:"account"`
	From    string  `yaml:"from"`             // YYYY-MM-DD
	To      string  `yaml:"to,omitempty"`     // YYYY-MM-DD, defaults to From
	Amount  *string `yaml:"amount,omitempty"` // defaults to the template row's amount
	Tag     string  `yaml:"tag,omitempty"`    // defaults to "Subscribed Billing"

	// compiled fields
	fromDate time.Time           `yaml:"-"`
	toDate   time.Time           `yaml:"-"`
	amount   decimal.NullDecimal `yaml:"-"`
	tag      Tag                 `yaml:"-"`
}

// Overrides is the declarative table of per-account data corrections.
type Overrides struct {
	ForcedTags []ForcedTag    `yaml:"forced_tags,omitempty"`
	Synthetic  []SyntheticRun `yaml:"synthetic,omitempty"`
	// AlwaysExtend lists accounts whose open span is extended to the
	// processing month even when the group has several rows.
	AlwaysExtend []string `yaml:"always_extend,omitempty"`
	// SingleSpan lists accounts never treated as multi-span.
	SingleSpan []string `yaml:"single_span,omitempty"`
}

// Config is the optional YAML configuration. Zero values fall back to the
// built-in defaults.
type Config struct {
	Products Products `yaml:"products,omitempty"`

	// OpportunityTypes maps raw opportunity type values to
	// new_or_increase, reduction, termination or other.
	OpportunityTypes map[string]EventType `yaml:"opportunity_types,omitempty"`

	// Currency is the ISO code used when formatting amounts in reports.
	Currency string `yaml:"currency,omitempty"`

	Overrides Overrides `yaml:"overrides,omitempty"`
}

// DefaultConfigPath returns ~/.subscription-ledger/config.yaml
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".subscription-ledger", "config.yaml")
}

// NewDefaultConfig creates a config with the built-in product codes and
// opportunity type mapping and no overrides.
func NewDefaultConfig() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// LoadConfig reads a YAML config from path, applies defaults and compiles
// the overrides.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading config file")
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "parsing config file")
	}

	cfg.applyDefaults()
	if err := cfg.compile(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Products.Subscription == "" {
		c.Products.Subscription = DefaultSubscriptionProduct
	}
	if c.Products.OneTime == "" {
		c.Products.OneTime = DefaultOneTimeProduct
	}
	if c.Currency == "" {
		c.Currency = DefaultCurrency
	}
	if c.OpportunityTypes == nil {
		c.OpportunityTypes = make(map[string]EventType, len(DefaultOpportunityTypes))
	}
	// User mappings win over defaults
	for raw, typ := range DefaultOpportunityTypes {
		if _, ok := c.OpportunityTypes[raw]; !ok {
			c.OpportunityTypes[raw] = typ
		}
	}
}

func (c *Config) compile() error {
	for raw, typ := range c.OpportunityTypes {
		switch typ {
		case EventNewOrIncrease, EventReduction, EventTermination, EventOther:
		default:
			return errors.Newf("invalid event type %q for opportunity type %q", typ, raw)
		}
	}

	for i := range c.Overrides.ForcedTags {
		ft := &c.Overrides.ForcedTags[i]
		if ft.Account == "" {
			return errors.Newf("forced tag #%d: account is required", i+1)
		}
		tag, err := ParseTag(ft.Tag)
		if err != nil {
			return errors.Wrapf(err, "forced tag for %q", ft.Account)
		}
		ft.tag = tag
		switch ft.Scope {
		case "":
			ft.Scope = ScopeClassify
		case ScopeClassify, ScopeStatus:
		default:
			return errors.Newf("forced tag for %q: invalid scope %q", ft.Account, ft.Scope)
		}
		if ft.Amount != nil {
			d, err := decimal.NewFromString(strings.TrimSpace(*ft.Amount))
			if err != nil {
				return errors.Wrapf(err, "forced tag for %q: invalid amount %q", ft.Account, *ft.Amount)
			}
			ft.amount = decimal.NewNullDecimal(d)
		}
	}

	for i := range c.Overrides.Synthetic {
		run := &c.Overrides.Synthetic[i]
		if run.Account == "" {
			return errors.Newf("synthetic run #%d: account is required", i+1)
		}
		from, err := time.Parse("2006-01-02", run.From)
		if err != nil {
			return errors.Wrapf(err, "invalid 'from' date %q in synthetic run for %q", run.From, run.Account)
		}
		run.fromDate = from
		run.toDate = from
		if run.To != "" {
			to, err := time.Parse("2006-01-02", run.To)
			if err != nil {
				return errors.Wrapf(err, "invalid 'to' date %q in synthetic run for %q", run.To, run.Account)
			}
			if to.Before(from) {
				return errors.Newf("synthetic run for %q ends before it starts", run.Account)
			}
			run.toDate = to
		}
		if run.Amount != nil {
			d, err := decimal.NewFromString(strings.TrimSpace(*run.Amount))
			if err != nil {
				return errors.Wrapf(err, "invalid amount %q in synthetic run for %q", *run.Amount, run.Account)
			}
			run.amount = decimal.NewNullDecimal(d)
		}
		run.tag = NewTag(LifecycleSubscribedBilling)
		if run.Tag != "" {
			tag, err := ParseTag(run.Tag)
			if err != nil {
				return errors.Wrapf(err, "synthetic run for %q", run.Account)
			}
			run.tag = tag
		}
	}
	return nil
}

// Save writes the config as YAML, creating parent directories as needed.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "marshaling config")
	}

	// Create parent directories if they don't exist
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return errors.Wrapf(err, "creating directory %s", dir)
		}
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.Wrap(err, "writing config file")
	}
	return nil
}

func (c *Config) SubscriptionProduct() string {
	if c == nil || c.Products.Subscription == "" {
		return DefaultSubscriptionProduct
	}
	return c.Products.Subscription
}

func (c *Config) OneTimeProduct() string {
	if c == nil || c.Products.OneTime == "" {
		return DefaultOneTimeProduct
	}
	return c.Products.OneTime
}

// CurrencyCode returns the reporting currency.
func (c *Config) CurrencyCode() string {
	if c == nil || c.Currency == "" {
		return DefaultCurrency
	}
	return c.Currency
}

// EventTypeOf maps a raw opportunity type value to an event type.
func (c *Config) EventTypeOf(raw string) EventType {
	raw = strings.TrimSpace(raw)
	types := DefaultOpportunityTypes
	if c != nil && c.OpportunityTypes != nil {
		types = c.OpportunityTypes
	}
	if typ, ok := types[raw]; ok {
		return typ
	}
	return EventOther
}

func (c *Config) IsSingleSpan(account string) bool {
	return c != nil && lo.Contains(c.Overrides.SingleSpan, account)
}

func (c *Config) IsAlwaysExtend(account string) bool {
	return c != nil && lo.Contains(c.Overrides.AlwaysExtend, account)
}

// ForcedTagFor returns the first forced tag of the given scope matching ev.
func (c *Config) ForcedTagFor(ev Event, scope string) (Tag, bool) {
	if c == nil {
		return Tag{}, false
	}
	for i := range c.Overrides.ForcedTags {
		if c.Overrides.ForcedTags[i].Scope == scope && c.Overrides.ForcedTags[i].Matches(ev) {
			return c.Overrides.ForcedTags[i].tag, true
		}
	}
	return Tag{}, false
}

// Matches returns true if ev falls under this forced tag rule
func (f *ForcedTag) Matches(ev Event) bool {
	if f.Account != ev.AccountName {
		return false
	}
	if f.Product != "" && f.Product != ev.ProductCode {
		return false
	}
	if f.OpportunityType != "" && f.OpportunityType != ev.OpportunityType {
		return false
	}
	if f.amount.Valid && (!ev.Amount.Valid || !ev.Amount.Decimal.Equal(f.amount.Decimal)) {
		return false
	}
	return true
}
