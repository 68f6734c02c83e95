package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"vfms/internal/amqp"
	"vfms/internal/core"
	applog "vfms/internal/log"
	"vfms/internal/metrics"
	"vfms/internal/storage"
)

// RecurringProcessor generates the dated monthly funds behind each template
// and reconciles generated funds that lost their template link.
type RecurringProcessor struct {
	store     storage.Store
	publisher Publisher
	metrics   *metrics.Metrics

	// Generation reads the fund list and then writes; runs do not overlap.
	mu sync.Mutex
}

func NewRecurringProcessor(store storage.Store, publisher Publisher, m *metrics.Metrics) *RecurringProcessor {
	return &RecurringProcessor{
		store:     store,
		publisher: publisher,
		metrics:   m,
	}
}

type ExpansionResult struct {
	TemplateID    string   `json:"templateId"`
	CreatedCount  int      `json:"createdCount"`
	CreatedTitles []string `json:"createdTitles"`
	CreatedIDs    []string `json:"createdIds"`
}

type RepairResult struct {
	Repaired int      `json:"repaired"`
	FundIDs  []string `json:"fundIds"`
}

// ExpandMonthlyTemplate creates the missing monthly funds of templateID for
// months 0..throughMonthIndex of year. Existing funds are never duplicated
// or modified, so repeated calls create nothing.
func (p *RecurringProcessor) ExpandMonthlyTemplate(ctx context.Context, templateID string, year, throughMonthIndex int) (ExpansionResult, error) {
	defer p.metrics.ObserveSince(applog.OpExpand, time.Now())

	if throughMonthIndex < 0 || throughMonthIndex > 11 {
		return ExpansionResult{}, core.ErrInvalidMonthIndex
	}
	if year < 1 {
		return ExpansionResult{}, core.ErrInvalidYear
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	funds, err := p.store.Funds().GetAll(ctx)
	if err != nil {
		return ExpansionResult{}, fmt.Errorf("load funds: %w", err)
	}
	return p.expandLocked(ctx, funds, templateID, year, throughMonthIndex)
}

func (p *RecurringProcessor) expandLocked(ctx context.Context, funds []core.Fund, templateID string, year, through int) (ExpansionResult, error) {
	result := ExpansionResult{TemplateID: templateID, CreatedTitles: []string{}, CreatedIDs: []string{}}

	var template *core.Fund
	existing := make(map[string]struct{}, len(funds))
	for i := range funds {
		existing[funds[i].ID] = struct{}{}
		if funds[i].ID == templateID {
			template = &funds[i]
		}
	}
	if template == nil {
		return result, fmt.Errorf("%w: %s", core.ErrTemplateNotFound, templateID)
	}
	if template.Kind() != core.TemplateFund {
		return result, fmt.Errorf("%w: %s is a %s fund", core.ErrNotTemplate, templateID, template.Kind())
	}
	if parent, _, _, ok := core.ParseChildFundID(templateID); ok {
		if _, parentExists := existing[parent]; parentExists {
			return result, fmt.Errorf("%w: %s is an unlinked month of %s", core.ErrNotTemplate, templateID, parent)
		}
	}

	for month := 0; month <= through; month++ {
		id := core.ChildFundID(templateID, year, month)
		if _, ok := existing[id]; ok {
			continue
		}
		child := core.NewRecurringChild(*template, year, month)
		if err := p.store.Funds().Put(ctx, child); err != nil {
			return result, fmt.Errorf("create %s: %w", id, err)
		}
		existing[id] = struct{}{}
		result.CreatedCount++
		result.CreatedTitles = append(result.CreatedTitles, child.Title)
		result.CreatedIDs = append(result.CreatedIDs, child.ID)
	}

	if result.CreatedCount > 0 {
		p.metrics.AddDuesGenerated(result.CreatedCount)
		slog.InfoContext(ctx, "Generated monthly dues",
			applog.FieldTemplateID, templateID,
			applog.FieldYear, year,
			"through_month", through+1,
			"created", result.CreatedCount)
		publishEvent(ctx, p.publisher, p.metrics, amqp.NewDuesGenerated(templateID, result.CreatedIDs))
	}
	return result, nil
}

// GenerateYearlyDues expands a template through December of year.
func (p *RecurringProcessor) GenerateYearlyDues(ctx context.Context, templateID string, year int) (ExpansionResult, error) {
	return p.ExpandMonthlyTemplate(ctx, templateID, year, 11)
}

// RepairLinks restores the template link of generated funds stored without
// one. The link is read back from the generated id; amounts, titles and
// payments are left untouched.
func (p *RecurringProcessor) RepairLinks(ctx context.Context) (RepairResult, error) {
	defer p.metrics.ObserveSince(applog.OpRepairLinks, time.Now())

	p.mu.Lock()
	defer p.mu.Unlock()

	result := RepairResult{FundIDs: []string{}}
	funds, err := p.store.Funds().GetAll(ctx)
	if err != nil {
		return result, fmt.Errorf("load funds: %w", err)
	}

	templates := templateIDs(funds)
	for _, f := range funds {
		if f.Recurrence != nil {
			continue
		}
		tplID, year, month, ok := core.ParseChildFundID(f.ID)
		if !ok {
			continue
		}
		if _, isTemplate := templates[tplID]; !isTemplate {
			continue
		}
		f.Recurrence = &core.Recurrence{GroupID: tplID, MonthIndex: month, Year: year}
		if err := p.store.Funds().Put(ctx, f); err != nil {
			fields := applog.NewFields().WithFund(f.ID).WithError(err).WithOperation(applog.OpRepairLinks)
			fields[applog.FieldTemplateID] = tplID
			slog.ErrorContext(ctx, "Failed to repair recurring fund link", fields.ToSlice()...)
			continue
		}
		result.Repaired++
		result.FundIDs = append(result.FundIDs, f.ID)
		slog.InfoContext(ctx, "Repaired recurring fund link",
			applog.FieldFundID, f.ID,
			applog.FieldTemplateID, tplID,
			applog.FieldYear, year,
			"month_index", month)
	}

	if result.Repaired > 0 {
		p.metrics.AddLinksRepaired(result.Repaired)
		publishEvent(ctx, p.publisher, p.metrics, amqp.NewLinksRepaired(result.FundIDs))
	}
	return result, nil
}

// templateIDs returns the real templates. A Monthly fund whose id is itself
// a generated id of another template is an unlinked child, not a template.
func templateIDs(funds []core.Fund) map[string]struct{} {
	candidates := make(map[string]struct{})
	for _, f := range funds {
		if f.Kind() == core.TemplateFund {
			candidates[f.ID] = struct{}{}
		}
	}
	for id := range candidates {
		if parent, _, _, ok := core.ParseChildFundID(id); ok {
			if _, parentIsTemplate := candidates[parent]; parentIsTemplate {
				delete(candidates, id)
			}
		}
	}
	return candidates
}

// ProcessTemplates expands every template up to the horizon computed from
// now. A failing template is logged and skipped. It returns how many funds
// were created.
func (p *RecurringProcessor) ProcessTemplates(ctx context.Context, now time.Time, horizon Horizon) (int, error) {
	if horizon == nil {
		horizon = CurrentMonth{}
	}
	year, through := horizon.Through(now)

	p.mu.Lock()
	defer p.mu.Unlock()

	funds, err := p.store.Funds().GetAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("load funds: %w", err)
	}

	templates := templateIDs(funds)
	slog.InfoContext(ctx, "Processing monthly templates",
		"templates", len(templates),
		applog.FieldYear, year,
		"through_month", through+1)

	created := 0
	for _, f := range funds {
		if _, ok := templates[f.ID]; !ok {
			continue
		}
		res, err := p.expandLocked(ctx, funds, f.ID, year, through)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to expand template",
				applog.FieldTemplateID, f.ID,
				applog.FieldOperation, applog.OpExpand,
				applog.FieldError, err)
			continue
		}
		created += res.CreatedCount
	}

	slog.InfoContext(ctx, "Monthly template processing complete",
		"created", created,
		"templates", len(templates))
	return created, nil
}
