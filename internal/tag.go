package internal

import (
	"strings"

	"github.com/cockroachdb/errors"
)

// Lifecycle is the role a record plays in a subscription's life.
type Lifecycle int

const (
	LifecycleNone Lifecycle = iota
	LifecycleStart
	LifecycleSubscribedBilling
	LifecycleReductionBilling
	LifecycleReductionEnd
	LifecycleOnDemand
	LifecycleReduction
	LifecycleDuplicate
)

var lifecycleText = map[Lifecycle]string{
	LifecycleNone:              "",
	LifecycleStart:             "Start of Subscription",
	LifecycleSubscribedBilling: "Subscribed Billing",
	LifecycleReductionBilling:  "Reduction - Subscribed Billing",
	LifecycleReductionEnd:      "Reduction - End of Subscription",
	LifecycleOnDemand:          "On Demand Entry",
	LifecycleReduction:         "Reduction",
	LifecycleDuplicate:         "Duplicate",
}

func (l Lifecycle) String() string {
	return lifecycleText[l]
}

// Variant qualifies a lifecycle tag, e.g. a start that was really a swap.
type Variant string

const (
	VariantNone     Variant = ""
	VariantSwap     Variant = "Swap"
	VariantChurned  Variant = "Churned"
	VariantInactive Variant = "Inactive"
)

// Ends reports whether the variant marks a subscription as over.
func (v Variant) Ends() bool {
	return v == VariantSwap || v == VariantChurned || v == VariantInactive
}

// Tag is the note attached to a record.
type Tag struct {
	Kind    Lifecycle
	Variant Variant
}

// NewTag returns a tag of the given kind without a variant.
func NewTag(kind Lifecycle) Tag {
	return Tag{Kind: kind}
}

// WithVariant returns a copy of the tag carrying v.
func (t Tag) WithVariant(v Variant) Tag {
	t.Variant = v
	return t
}

// String renders the tag the way it appears in the Note column.
func (t Tag) String() string {
	base := t.Kind.String()
	if t.Variant == VariantNone {
		return base
	}
	if base == "" {
		return "- " + string(t.Variant)
	}
	return base + " - " + string(t.Variant)
}

// IsZero reports whether t is the empty note.
func (t Tag) IsZero() bool {
	return t.Kind == LifecycleNone && t.Variant == VariantNone
}

// MarshalText implements encoding.TextMarshaler.
func (t Tag) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Tag) UnmarshalText(b []byte) error {
	parsed, err := ParseTag(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ParseTag is the inverse of Tag.String.
func ParseTag(s string) (Tag, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Tag{}, nil
	}

	// Longest texts first so "Reduction - End of Subscription" is not read
	// as "Reduction" plus variant "End of Subscription".
	kinds := []Lifecycle{
		LifecycleReductionEnd,
		LifecycleReductionBilling,
		LifecycleStart,
		LifecycleSubscribedBilling,
		LifecycleOnDemand,
		LifecycleDuplicate,
		LifecycleReduction,
	}
	for _, kind := range kinds {
		text := kind.String()
		if s == text {
			return Tag{Kind: kind}, nil
		}
		if rest, ok := strings.CutPrefix(s, text+" - "); ok {
			v, err := parseVariant(rest)
			if err != nil {
				return Tag{}, err
			}
			return Tag{Kind: kind, Variant: v}, nil
		}
	}
	if rest, ok := strings.CutPrefix(s, "- "); ok {
		v, err := parseVariant(rest)
		if err != nil {
			return Tag{}, err
		}
		return Tag{Variant: v}, nil
	}
	return Tag{}, errors.Newf("unknown lifecycle tag %q", s)
}

func parseVariant(s string) (Variant, error) {
	switch Variant(s) {
	case VariantSwap, VariantChurned, VariantInactive:
		return Variant(s), nil
	}
	return VariantNone, errors.Newf("unknown tag variant %q", s)
}
