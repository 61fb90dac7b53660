package internal

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// span is a reconstructed start-to-end interval inside one group.
type span struct {
	number   int
	identity string
	variant  Variant
	start    int // position of the opening event
	end      int // position of the full end, -1 while open
	partial  int // position of the applied partial reduction, -1 if none
}

type assignment struct {
	tag  Tag
	span *span
}

// groupClassifier tags one account/product group. It holds all per-group
// state; groups never share one.
type groupClassifier struct {
	group   Group
	cfg     *Config
	multi   *MultiSpan
	horizon time.Time
	log     *zap.Logger

	starts      []int
	spans       []*span
	spanByStart map[int]*span
	assigned    map[int]assignment
	anomalies   []Anomaly
}

func newGroupClassifier(g Group, cfg *Config, multi *MultiSpan, horizon time.Time, log *zap.Logger) *groupClassifier {
	return &groupClassifier{
		group:       g,
		cfg:         cfg,
		multi:       multi,
		horizon:     horizon,
		log:         log,
		spanByStart: make(map[int]*span),
		assigned:    make(map[int]assignment),
	}
}

// classify returns one record per event of the group, plus the synthetic
// rows of the subscription product, in output order.
func (c *groupClassifier) classify() []Record {
	var records []Record
	switch c.group.ProductCode {
	case c.cfg.SubscriptionProduct():
		records = c.classifySubscription()
		records = append(records, c.synthesize(records)...)
	case c.cfg.OneTimeProduct():
		records = c.classifyOneTime()
	default:
		records = c.passThrough()
	}
	sortGroupRecords(records)
	return records
}

func (c *groupClassifier) baseRecord(i int) Record {
	ev := c.group.Events[i]
	rec := Record{Event: ev, Identity: ev.AccountName}
	if c.multi != nil {
		n := c.multi.spanOf(i)
		rec.Identity = SpanIdentity(ev.AccountName, n)
	}
	if c.group.Duplicate[i] {
		rec.Note = NewTag(LifecycleDuplicate)
		rec.Amount = decimal.NullDecimal{}
	}
	return rec
}

func (c *groupClassifier) passThrough() []Record {
	records := make([]Record, 0, len(c.group.Events))
	for i := range c.group.Events {
		rec := c.baseRecord(i)
		if !c.group.Duplicate[i] {
			if tag, ok := c.cfg.ForcedTagFor(rec.Event, ScopeClassify); ok {
				rec.Note = tag
			}
		}
		records = append(records, rec)
	}
	return records
}

func (c *groupClassifier) classifyOneTime() []Record {
	records := make([]Record, 0, len(c.group.Events))
	for i, ev := range c.group.Events {
		rec := c.baseRecord(i)
		if c.group.Duplicate[i] {
			records = append(records, rec)
			continue
		}
		if tag, ok := c.cfg.ForcedTagFor(ev, ScopeClassify); ok {
			rec.Note = tag
		} else {
			switch ev.Type {
			case EventNewOrIncrease:
				rec.Note = NewTag(LifecycleOnDemand)
			case EventReduction, EventTermination:
				rec.Note = NewTag(LifecycleReduction)
			}
		}
		records = append(records, rec)
	}
	return records
}

func (c *groupClassifier) classifySubscription() []Record {
	c.starts = c.group.candidateStarts()

	records := make([]Record, 0, len(c.group.Events))
	for i, ev := range c.group.Events {
		rec := c.baseRecord(i)

		if c.group.Duplicate[i] {
			records = append(records, rec)
			continue
		}

		// Already resolved by an earlier start's forward scan
		if a, ok := c.assigned[i]; ok {
			rec.Note = a.tag
			rec.Identity = a.span.identity
			rec.Span = a.span.number
			records = append(records, rec)
			continue
		}

		if !ev.DateValid {
			c.anomaly(ErrDateParse, ev, "unparseable date "+strconv.Quote(ev.RawDate)+", row passed through")
			records = append(records, rec)
			continue
		}

		forced, hasForced := c.cfg.ForcedTagFor(ev, ScopeClassify)

		switch {
		case ev.IsCandidateStart() && (!hasForced || forced.Kind == LifecycleStart):
			sp := c.openSpan(i, forced.Variant)
			rec.Note = Tag{Kind: LifecycleStart, Variant: sp.variant}
			rec.Identity = sp.identity
			rec.Span = sp.number

		case hasForced:
			rec.Note = forced

		case ev.Type == EventReduction && ev.IsNegative():
			if sp := c.priorSpan(i); sp != nil {
				kind := LifecycleReductionEnd
				if c.group.Events[sp.start].Amount.Decimal.Abs().GreaterThan(ev.Amount.Decimal.Abs()) {
					kind = LifecycleReductionBilling
				}
				rec.Note = Tag{Kind: kind, Variant: sp.variant}
				rec.Identity = sp.identity
				rec.Span = sp.number
			} else {
				rec.Note = NewTag(LifecycleReductionEnd)
				c.anomaly(ErrAmbiguous, ev, "reduction without a prior start")
			}

		case ev.Type == EventTermination:
			if sp := c.priorSpan(i); sp != nil {
				rec.Note = Tag{Kind: LifecycleReductionEnd, Variant: sp.variant}
				rec.Identity = sp.identity
				rec.Span = sp.number
			} else {
				rec.Note = NewTag(LifecycleReductionEnd)
				c.anomaly(ErrAmbiguous, ev, "termination without a prior start")
			}

		case ev.IsPartialReduction():
			if sp := c.priorSpan(i); sp != nil {
				rec.Note = Tag{Kind: LifecycleReductionBilling, Variant: sp.variant}
				rec.Identity = sp.identity
				rec.Span = sp.number
			} else {
				rec.Note = NewTag(LifecycleReduction)
				c.anomaly(ErrAmbiguous, ev, "partial reduction without a prior start")
			}
		}

		records = append(records, rec)
	}
	return records
}

// openSpan registers the span started at position i and resolves its end
// and partial reduction by scanning forward.
func (c *groupClassifier) openSpan(i int, variant Variant) *span {
	sp := &span{
		number:   c.spanNumber(i),
		variant:  variant,
		start:    i,
		end:      -1,
		partial:  -1,
		identity: c.group.AccountName,
	}
	if c.multi != nil {
		sp.identity = SpanIdentity(c.group.AccountName, sp.number)
	}
	c.spans = append(c.spans, sp)
	c.spanByStart[i] = sp

	events := c.group.Events
	for j := i + 1; j < len(events); j++ {
		if c.group.Duplicate[j] || !events[j].DateValid {
			continue
		}
		// Concurrent spans own the rows that follow their own start
		if c.multi != nil && events[j].IsCandidateStart() {
			break
		}
		if events[j].IsFullEnd() {
			sp.end = j
			c.assign(j, Tag{Kind: LifecycleReductionEnd, Variant: sp.variant}, sp)
			break
		}
		if events[j].IsPartialReduction() {
			sp.partial = j
		}
	}
	if sp.partial >= 0 {
		c.assign(sp.partial, Tag{Kind: LifecycleReductionBilling, Variant: sp.variant}, sp)
	}
	return sp
}

// assign records a forward-scan hit unless an earlier span already owns it.
func (c *groupClassifier) assign(j int, tag Tag, sp *span) {
	if _, taken := c.assigned[j]; taken {
		return
	}
	c.assigned[j] = assignment{tag: tag, span: sp}
}

// spanNumber is the 1-based rank of position i among the group's starts.
func (c *groupClassifier) spanNumber(i int) int {
	if c.multi != nil {
		for k, s := range c.multi.Starts {
			if s == i {
				return k + 1
			}
		}
	}
	return len(c.spans) + 1
}

// priorSpan scans backward from position i for the nearest opened span.
func (c *groupClassifier) priorSpan(i int) *span {
	for j := i - 1; j >= 0; j-- {
		if sp, ok := c.spanByStart[j]; ok {
			return sp
		}
	}
	return nil
}

func (c *groupClassifier) anomaly(kind error, ev Event, detail string) {
	c.anomalies = append(c.anomalies, Anomaly{
		Kind:          kind,
		AccountName:   ev.AccountName,
		ProductCode:   ev.ProductCode,
		OpportunityID: ev.OpportunityID,
		Seq:           ev.Seq,
		Detail:        detail,
	})
	c.log.Warn(kind.Error(),
		zap.String("account", ev.AccountName),
		zap.String("product", ev.ProductCode),
		zap.String("opportunity_id", ev.OpportunityID),
		zap.Int("row", ev.Seq),
		zap.String("detail", detail))
}
