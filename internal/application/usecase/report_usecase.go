package usecase

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/pos-ledger/internal/application/dto"
	"github.com/jhoicas/pos-ledger/internal/domain"
	"github.com/jhoicas/pos-ledger/internal/domain/pricing"
	"github.com/jhoicas/pos-ledger/internal/domain/repository"
)

const (
	defaultTopN     = 20
	maxTopN         = 200
	paretoThreshold = 80 // el top de SKUs que acumula el 80% del ingreso
	dateLayout      = "2006-01-02"
)

var (
	hundred  = decimal.NewFromInt(100)
	pareto80 = decimal.NewFromInt(paretoThreshold)
)

// ReportUseCase agrega los hechos de venta. No toma bloqueos: lee lo ya confirmado.
type ReportUseCase struct {
	repo repository.ReportRepository
	now  func() time.Time
}

// NewReportUseCase construye el caso de uso.
func NewReportUseCase(repo repository.ReportRepository) *ReportUseCase {
	return &ReportUseCase{repo: repo, now: func() time.Time { return time.Now().UTC() }}
}

// SalesSummary totaliza las ventas del período, en general y por método de pago.
func (uc *ReportUseCase) SalesSummary(ctx context.Context, req dto.ReportRequest) (*dto.SalesSummaryDTO, error) {
	filter, err := uc.filter(req)
	if err != nil {
		return nil, err
	}
	headers, err := uc.repo.SaleHeaders(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("reportes: ventas: %w", err)
	}

	out := &dto.SalesSummaryDTO{
		BranchID: filter.BranchID,
		From:     filter.From,
		To:       filter.To,
		Subtotal: decimal.Zero,
		Discount: decimal.Zero,
		Tax:      decimal.Zero,
		Total:    decimal.Zero,
		ByMethod: []dto.PaymentMethodTotalDTO{},
	}
	byMethod := map[string]*dto.PaymentMethodTotalDTO{}
	for _, h := range headers {
		out.SaleCount++
		out.Subtotal = out.Subtotal.Add(h.Subtotal)
		out.Discount = out.Discount.Add(h.Discount)
		out.Tax = out.Tax.Add(h.Tax)
		out.Total = out.Total.Add(h.Total)

		m, ok := byMethod[h.PaymentMethod]
		if !ok {
			m = &dto.PaymentMethodTotalDTO{Method: h.PaymentMethod, Total: decimal.Zero}
			byMethod[h.PaymentMethod] = m
		}
		m.Count++
		m.Total = m.Total.Add(h.Total)
	}
	out.AverageTicket = decimal.Zero
	if out.SaleCount > 0 {
		out.AverageTicket = out.Total.Div(decimal.NewFromInt(int64(out.SaleCount))).RoundBank(pricing.MoneyPlaces)
	}
	for _, m := range byMethod {
		out.ByMethod = append(out.ByMethod, *m)
	}
	sort.Slice(out.ByMethod, func(i, j int) bool {
		if !out.ByMethod[i].Total.Equal(out.ByMethod[j].Total) {
			return out.ByMethod[i].Total.GreaterThan(out.ByMethod[j].Total)
		}
		return out.ByMethod[i].Method < out.ByMethod[j].Method
	})
	return out, nil
}

// Margins calcula quantity × (unit_price − unit_cost) por producto con los precios y
// costos congelados en cada línea, y marca los SKUs que acumulan el 80% del ingreso.
func (uc *ReportUseCase) Margins(ctx context.Context, req dto.ReportRequest) (*dto.MarginReportDTO, error) {
	filter, err := uc.filter(req)
	if err != nil {
		return nil, err
	}
	topN := req.TopN
	if topN <= 0 {
		topN = defaultTopN
	}
	if topN > maxTopN {
		topN = maxTopN
	}
	lines, err := uc.repo.SaleLines(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("reportes: líneas: %w", err)
	}

	type agg struct {
		row     dto.SKURankingDTO
		revenue decimal.Decimal
		cogs    decimal.Decimal
	}
	byProduct := map[string]*agg{}
	var totalRevenue, totalCOGS decimal.Decimal
	for _, l := range lines {
		a, ok := byProduct[l.ProductID]
		if !ok {
			a = &agg{row: dto.SKURankingDTO{ProductID: l.ProductID, SKU: l.SKU, ProductName: l.Name}}
			byProduct[l.ProductID] = a
		}
		qty := decimal.NewFromInt(l.Quantity)
		revenue := l.UnitPrice.Mul(qty)
		cogs := l.UnitCost.Mul(qty)
		a.row.UnitsSold += l.Quantity
		a.revenue = a.revenue.Add(revenue)
		a.cogs = a.cogs.Add(cogs)
		totalRevenue = totalRevenue.Add(revenue)
		totalCOGS = totalCOGS.Add(cogs)
	}

	rows := make([]*agg, 0, len(byProduct))
	for _, a := range byProduct {
		rows = append(rows, a)
	}
	// Mayor utilidad primero; empates por SKU para un orden estable.
	sort.Slice(rows, func(i, j int) bool {
		pi, pj := rows[i].revenue.Sub(rows[i].cogs), rows[j].revenue.Sub(rows[j].cogs)
		if !pi.Equal(pj) {
			return pi.GreaterThan(pj)
		}
		return rows[i].row.SKU < rows[j].row.SKU
	})

	// El acumulado de Pareto se mide por ingreso, así que se recorre en ese orden.
	byRevenue := make([]*agg, len(rows))
	copy(byRevenue, rows)
	sort.SliceStable(byRevenue, func(i, j int) bool { return byRevenue[i].revenue.GreaterThan(byRevenue[j].revenue) })
	var cumulative decimal.Decimal
	for i, a := range byRevenue {
		revenuePct := percent(a.revenue, totalRevenue)
		cumulative = cumulative.Add(revenuePct)
		a.row.RevenuePct = revenuePct
		a.row.CumulativeRevPct = cumulative.Round(2)
		a.row.IsTopPareto = i == 0 || cumulative.LessThanOrEqual(pareto80)
	}

	products := make([]dto.SKURankingDTO, 0, min(topN, len(rows)))
	for i, a := range rows {
		if i >= topN {
			break
		}
		r := a.row
		r.Rank = i + 1
		r.GrossRevenue = a.revenue.Round(2)
		r.TotalCOGS = a.cogs.Round(2)
		r.GrossProfit = a.revenue.Sub(a.cogs).Round(2)
		r.MarginPct = percent(a.revenue.Sub(a.cogs), a.revenue)
		products = append(products, r)
	}

	return &dto.MarginReportDTO{
		From:         filter.From,
		To:           filter.To,
		TotalRevenue: totalRevenue.Round(2),
		TotalCOGS:    totalCOGS.Round(2),
		TotalProfit:  totalRevenue.Sub(totalCOGS).Round(2),
		MarginPct:    percent(totalRevenue.Sub(totalCOGS), totalRevenue),
		Products:     products,
	}, nil
}

func percent(part, whole decimal.Decimal) decimal.Decimal {
	if !whole.IsPositive() {
		return decimal.Zero
	}
	return part.Div(whole).Mul(hundred).Round(2)
}

// filter convierte el período en [From, To) UTC. Sin fechas se toma el mes en curso.
func (uc *ReportUseCase) filter(req dto.ReportRequest) (repository.ReportFilter, error) {
	from, to, err := parsePeriod(req.StartDate, req.EndDate, uc.now())
	if err != nil {
		return repository.ReportFilter{}, err
	}
	return repository.ReportFilter{BranchID: req.BranchID, From: from, To: to}, nil
}

// parsePeriod interpreta end como inclusivo: To es la medianoche del día siguiente.
func parsePeriod(startStr, endStr string, now time.Time) (start, end time.Time, err error) {
	now = now.UTC()
	if endStr == "" {
		end = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
	} else {
		end, err = time.Parse(dateLayout, endStr)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("%w: end_date %q", domain.ErrInvalidInput, endStr)
		}
		end = end.AddDate(0, 0, 1)
	}

	if startStr == "" {
		start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	} else {
		start, err = time.Parse(dateLayout, startStr)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("%w: start_date %q", domain.ErrInvalidInput, startStr)
		}
	}

	if !start.Before(end) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: start_date posterior a end_date", domain.ErrInvalidInput)
	}
	return start, end, nil
}
